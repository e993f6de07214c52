package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/yangwenmai/cloudpoem/internal/api"
	"github.com/yangwenmai/cloudpoem/internal/config"
	"github.com/yangwenmai/cloudpoem/internal/imagegen"
	"github.com/yangwenmai/cloudpoem/internal/logger"
	"github.com/yangwenmai/cloudpoem/internal/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.Setup(cfg.Server.LogLevel, cfg.Server.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		journal  *store.Store
		recorder imagegen.Recorder
	)
	if cfg.Store.DBPath != "" {
		db, err := store.OpenSQLite(cfg.Store.DBPath)
		if err != nil {
			return err
		}
		journal, err = store.New(db)
		if err != nil {
			db.Close()
			return fmt.Errorf("init store: %w", err)
		}
		defer journal.Close()
		recorder = journal
		log.Info("generation journal enabled", "path", cfg.Store.DBPath)
	}

	studio, err := buildStudio(ctx, cfg, recorder, log)
	if err != nil {
		return err
	}
	st := studio.Status()
	log.Info("studio ready",
		"llm_provider", cfg.LLM.Provider,
		"llm", st.LLM,
		"transcription", st.Transcription,
		"image_providers", st.ImageProviders,
	)
	if len(st.ImageProviders) == 0 {
		log.Warn("no image provider configured; image generation will answer 503")
	}

	opts := []api.Option{
		api.WithLogger(log),
		api.WithCORSOrigin(cfg.Server.CORSOrigin),
		api.WithRateLimit(cfg.Server.RateLimitPerMinute),
		api.WithTrustProxy(cfg.Server.TrustProxy),
	}
	if journal != nil {
		opts = append(opts, api.WithJournal(journal))
	}
	srv := api.New(studio, opts...)

	httpServer := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("cloudpoem server listening", "addr", httpServer.Addr, "env", cfg.Server.Env)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
