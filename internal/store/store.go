package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/yangwenmai/cloudpoem/internal/imagegen"
	"github.com/yangwenmai/cloudpoem/internal/model"
	"github.com/yangwenmai/cloudpoem/internal/redact"
)

// Verify at compile time that Store implements all interfaces.
var (
	_ GenerationWriter  = (*Store)(nil)
	_ GenerationReader  = (*Store)(nil)
	_ imagegen.Recorder = (*Store)(nil)
)

// MaxListLimit caps ListRecent.
const MaxListLimit = 200

// Store is the SQLite-backed generation journal.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// New creates a new Store and initialises the schema.
func New(db *sqlx.DB) (*Store, error) {
	s := &Store{db: db, logger: slog.Default()}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var version int
	err := s.db.Get(&version, `SELECT version FROM schema_version LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES (0)`); err != nil {
			return fmt.Errorf("init schema version: %w", err)
		}
		version = 0
	} else if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	// Index 0 = migration from v0 to v1, etc.
	migrations := []func() error{
		s.migrateV1, // v0 → v1: generations table
	}

	for i := version; i < len(migrations); i++ {
		if err := migrations[i](); err != nil {
			return fmt.Errorf("migration v%d→v%d: %w", i, i+1, err)
		}
		if _, err := s.db.Exec(`UPDATE schema_version SET version = ?`, i+1); err != nil {
			return fmt.Errorf("update schema version to %d: %w", i+1, err)
		}
	}
	return nil
}

func (s *Store) migrateV1() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS generations (
		id            TEXT PRIMARY KEY,
		request_id    TEXT NOT NULL DEFAULT '',
		provider      TEXT NOT NULL,
		status        TEXT NOT NULL,
		error_kind    TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		image_kind    TEXT NOT NULL DEFAULT '',
		image_url     TEXT NOT NULL DEFAULT '',
		duration_ms   INTEGER NOT NULL,
		created_at    TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_generations_created ON generations(created_at DESC);
	`)
	return err
}

// Record inserts one generation record.
func (s *Store) Record(ctx context.Context, g model.Generation) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO generations (id, request_id, provider, status, error_kind, error_message, image_kind, image_url, duration_ms, created_at)
		VALUES (:id, :request_id, :provider, :status, :error_kind, :error_message, :image_kind, :image_url, :duration_ms, :created_at)`, g)
	if err != nil {
		return fmt.Errorf("insert generation %s: %w", g.ID, err)
	}
	return nil
}

// ListRecent returns the newest records first. limit is clamped to
// [1, MaxListLimit].
func (s *Store) ListRecent(ctx context.Context, limit int) ([]model.Generation, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}
	out := []model.Generation{}
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, request_id, provider, status, error_kind, error_message, image_kind, image_url, duration_ms, created_at
		FROM generations ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	return out, nil
}

// RecordAttempt journals a dispatcher attempt. Write errors are logged and
// never reach the caller.
func (s *Store) RecordAttempt(ctx context.Context, rec imagegen.AttemptRecord) {
	var g model.Generation
	id := uuid.NewString()
	if rec.Failure != nil {
		g = model.NewFailure(id, rec.Provider, string(rec.Failure.Kind), redact.String(rec.Failure.Message), rec.Duration)
	} else {
		g = model.NewSuccess(id, rec.Provider, rec.Image.URL, rec.Image.Inline(), rec.Duration)
	}
	g.RequestID = middleware.GetReqID(ctx)

	if err := s.Record(ctx, g); err != nil {
		s.logger.Warn("journal write failed", "provider", rec.Provider, "error", err)
	}
}
