package store

import (
	"context"

	"github.com/yangwenmai/cloudpoem/internal/model"
)

// GenerationWriter appends attempt records to the journal.
type GenerationWriter interface {
	Record(ctx context.Context, g model.Generation) error
}

// GenerationReader reads the journal.
type GenerationReader interface {
	ListRecent(ctx context.Context, limit int) ([]model.Generation, error)
}
