package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/yangwenmai/cloudpoem/internal/imagegen"
	"github.com/yangwenmai/cloudpoem/internal/prompt"
	"github.com/yangwenmai/cloudpoem/internal/redact"
)

var (
	// ErrLLMNotConfigured is returned when poem generation has no LLM backend.
	ErrLLMNotConfigured = errors.New("llm provider not configured")

	// ErrTranscriberNotConfigured is returned when speech-to-text has no backend.
	ErrTranscriberNotConfigured = errors.New("transcription provider not configured")
)

// Translation sources reported on an Illustration.
const (
	TranslatedByLLM      = "llm"
	TranslatedByKeywords = "keywords"
)

// Poetry is the result of GeneratePoetry.
type Poetry struct {
	Poetry string
	Words  []string
	Mood   string
}

// ImageRequest carries exactly one of a ready prompt or a poem to illustrate.
type ImageRequest struct {
	Prompt string
	Poetry string
}

// Illustration is the result of GenerateImage.
type Illustration struct {
	Image      imagegen.Image
	Provider   string
	Prompt     string
	Translated string
	// TranslationSource is TranslatedByLLM or TranslatedByKeywords; empty for direct prompts.
	TranslationSource string
}

// Studio runs the mood -> poem -> image flow. It holds no per-request state
// and is safe for concurrent use.
type Studio struct {
	llm         ModelClient
	transcriber Transcriber
	images      ImageDispatcher
	translator  prompt.KeywordTranslator
	builder     *prompt.Builder
	styles      []string
	logger      *slog.Logger
}

// StudioOption configures a Studio.
type StudioOption func(*Studio)

// WithModelClient sets the LLM used for poems and translations. Without one,
// poem generation fails with ErrLLMNotConfigured and translation falls back
// to keyword substitution.
func WithModelClient(mc ModelClient) StudioOption {
	return func(s *Studio) { s.llm = mc }
}

// WithTranscriber enables speech-to-text.
func WithTranscriber(t Transcriber) StudioOption {
	return func(s *Studio) { s.transcriber = t }
}

// WithPromptBuilder sets the image prompt builder (default cap: prompt.DefaultMaxLength).
func WithPromptBuilder(b *prompt.Builder) StudioOption {
	return func(s *Studio) { s.builder = b }
}

// WithStyleKeywords appends keywords to every image prompt built from a poem.
func WithStyleKeywords(keywords []string) StudioOption {
	return func(s *Studio) { s.styles = keywords }
}

// WithStudioLogger sets the logger (default: slog.Default()).
func WithStudioLogger(l *slog.Logger) StudioOption {
	return func(s *Studio) { s.logger = l }
}

// NewStudio creates a Studio dispatching images through images.
func NewStudio(images ImageDispatcher, opts ...StudioOption) *Studio {
	s := &Studio{images: images}
	for _, opt := range opts {
		opt(s)
	}
	if s.builder == nil {
		s.builder = prompt.NewBuilder(prompt.DefaultMaxLength)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Status reports which capabilities are configured.
type Status struct {
	LLM            bool     `json:"llm"`
	Transcription  bool     `json:"transcription"`
	ImageProviders []string `json:"image_providers"`
}

// Status returns the configured capabilities.
func (s *Studio) Status() Status {
	providers := s.images.Providers()
	if providers == nil {
		providers = []string{}
	}
	return Status{
		LLM:            s.llm != nil,
		Transcription:  s.transcriber != nil,
		ImageProviders: providers,
	}
}

// GeneratePoetry writes a poem for mood and segments it into words.
func (s *Studio) GeneratePoetry(ctx context.Context, mood string) (*Poetry, error) {
	chat, err := prompt.BuildPoemPrompt(mood)
	if err != nil {
		return nil, err
	}
	if s.llm == nil {
		return nil, ErrLLMNotConfigured
	}

	poem, err := s.llm.Complete(ctx, chat)
	if err != nil {
		return nil, &StepError{Step: "poem", Err: err}
	}
	if strings.TrimSpace(poem) == "" {
		return nil, &StepError{Step: "poem", Err: errors.New("empty poem")}
	}

	return &Poetry{
		Poetry: poem,
		Words:  prompt.SegmentWords(poem),
		Mood:   strings.TrimSpace(mood),
	}, nil
}

// GenerateImage produces one image. A direct prompt is cleaned and sent as is;
// a poem is translated (LLM, else keyword fallback) and wrapped in the image
// template first. Over-length prompts are logged, not rejected. With no
// eligible image provider it fails before any LLM call.
func (s *Studio) GenerateImage(ctx context.Context, req ImageRequest) (*Illustration, error) {
	direct := strings.TrimSpace(req.Prompt)
	poem := strings.TrimSpace(req.Poetry)

	switch {
	case direct == "" && poem == "":
		return nil, &prompt.ValidationError{Field: "prompt", Message: "prompt or poetry is required"}
	case direct != "" && poem != "":
		return nil, &prompt.ValidationError{Field: "prompt", Message: "provide either prompt or poetry, not both"}
	}

	if len(s.images.Providers()) == 0 {
		return nil, &StepError{Step: "dispatch", Err: imagegen.ErrNoProvider}
	}

	ill := &Illustration{}
	var lengthErr error
	if direct != "" {
		ill.Prompt, lengthErr = s.builder.Clean(direct)
	} else {
		ill.Translated, ill.TranslationSource = s.translate(ctx, poem)
		ill.Prompt, lengthErr = s.builder.BuildImagePrompt(ill.Translated, s.styles)
	}
	if lengthErr != nil {
		s.logger.Warn("image prompt over length cap", "error", lengthErr)
	}
	if ill.Prompt == "" {
		return nil, &prompt.ValidationError{Field: "prompt", Message: "prompt is empty after cleaning"}
	}

	out, err := s.images.Generate(ctx, ill.Prompt)
	if err != nil {
		return nil, &StepError{Step: "dispatch", Err: err}
	}
	ill.Image = out.Image
	ill.Provider = out.Provider
	return ill, nil
}

// translate never fails: any LLM problem falls back to keyword substitution.
func (s *Studio) translate(ctx context.Context, poem string) (string, string) {
	if s.llm == nil {
		return s.translator.Translate(poem), TranslatedByKeywords
	}

	chat, err := prompt.BuildTranslationPrompt(poem)
	if err == nil {
		var text string
		text, err = s.llm.Complete(ctx, chat)
		if err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text), TranslatedByLLM
		}
		if err == nil {
			err = errors.New("empty translation")
		}
	}

	s.logger.Warn("translation failed, using keyword fallback", "error", redact.Error(err))
	return s.translator.Translate(poem), TranslatedByKeywords
}

// Transcribe converts recorded speech to text.
func (s *Studio) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", &prompt.ValidationError{Field: "audio", Message: "audio is empty"}
	}
	if s.transcriber == nil {
		return "", ErrTranscriberNotConfigured
	}
	text, err := s.transcriber.Transcribe(ctx, filename, audio)
	if err != nil {
		return "", &StepError{Step: "transcribe", Err: err}
	}
	return text, nil
}

// StepError wraps an error with the step name that failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return e.Step + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// StepName returns the failed step.
func (e *StepError) StepName() string {
	return e.Step
}
