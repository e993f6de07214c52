package engine

import (
	"context"

	"github.com/yangwenmai/cloudpoem/internal/imagegen"
	"github.com/yangwenmai/cloudpoem/internal/prompt"
)

// ModelClient abstracts chat LLM calls. Implementations wrap OpenAI, Claude,
// Gemini, or a stub for development.
type ModelClient interface {
	Complete(ctx context.Context, chat prompt.Chat) (string, error)
}

// Transcriber turns recorded speech into text.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio []byte) (string, error)
}

// ImageDispatcher produces one image from a prompt by trying providers in order.
type ImageDispatcher interface {
	Generate(ctx context.Context, prompt string) (*imagegen.Outcome, error)
	Providers() []string
}
