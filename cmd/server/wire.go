package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/yangwenmai/cloudpoem/internal/config"
	"github.com/yangwenmai/cloudpoem/internal/engine"
	"github.com/yangwenmai/cloudpoem/internal/imagegen"
	"github.com/yangwenmai/cloudpoem/internal/prompt"
)

// buildStudio assembles the LLM backend, image providers and prompt settings
// from cfg. recorder may be nil.
func buildStudio(ctx context.Context, cfg *config.Config, recorder imagegen.Recorder, log *slog.Logger) (*engine.Studio, error) {
	opts := []engine.StudioOption{
		engine.WithPromptBuilder(prompt.NewBuilder(cfg.Prompt.MaxLength)),
		engine.WithStudioLogger(log),
	}

	llm, err := buildModelClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if llm != nil {
		opts = append(opts, engine.WithModelClient(llm))
	} else {
		log.Warn("llm provider has no credentials; poem generation disabled", "provider", cfg.LLM.Provider)
	}

	if t := buildTranscriber(cfg); t != nil {
		opts = append(opts, engine.WithTranscriber(t))
	}

	if len(cfg.Prompt.Styles) > 0 {
		keywords, unknown := prompt.StyleKeywords(cfg.Prompt.Styles...)
		if len(unknown) > 0 {
			log.Warn("unknown prompt style groups ignored", "styles", unknown, "known", prompt.StyleGroups())
		}
		opts = append(opts, engine.WithStyleKeywords(keywords))
	}

	dispatcherOpts := []imagegen.DispatcherOption{imagegen.WithLogger(log)}
	if recorder != nil {
		dispatcherOpts = append(dispatcherOpts, imagegen.WithRecorder(recorder))
	}
	dispatcher := imagegen.NewDispatcher(buildProviders(cfg, log), dispatcherOpts...)

	return engine.NewStudio(dispatcher, opts...), nil
}

// buildModelClient returns nil when the selected backend has no credentials.
func buildModelClient(ctx context.Context, cfg *config.Config) (engine.ModelClient, error) {
	if !cfg.LLMConfigured() {
		return nil, nil
	}
	switch cfg.LLM.Provider {
	case "stub":
		return &engine.StubModelClient{}, nil
	case "gemini":
		c, err := engine.NewGeminiClient(ctx, cfg.Gemini.APIKey, engine.WithGeminiModel(cfg.Gemini.Model))
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		return c, nil
	case "claude":
		return engine.NewClaudeClient(cfg.Anthropic.APIKey, engine.WithClaudeModel(cfg.Anthropic.Model)), nil
	default:
		return engine.NewOpenAIClient(cfg.OpenAI.APIKey,
			engine.WithBaseURL(cfg.OpenAI.BaseURL),
			engine.WithModel(cfg.OpenAI.ChatModel),
			engine.WithTimeout(cfg.Server.HTTPTimeout),
		), nil
	}
}

func buildTranscriber(cfg *config.Config) engine.Transcriber {
	switch {
	case cfg.OpenAI.Configured():
		return engine.NewWhisperTranscriber(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.TranscriptionModel)
	case cfg.LLM.Provider == "stub":
		return engine.StubTranscriber{}
	default:
		return nil
	}
}

// buildProviders returns image providers in priority order. Unconfigured
// providers are included; the dispatcher skips them.
func buildProviders(cfg *config.Config, log *slog.Logger) []imagegen.Provider {
	client := &http.Client{Timeout: cfg.Server.HTTPTimeout}

	openai := imagegen.NewOpenAIProvider(cfg.OpenAI.APIKey, cfg.OpenAI.Configured(),
		imagegen.WithOpenAIBaseURL(cfg.OpenAI.BaseURL),
		imagegen.WithOpenAIModel(cfg.OpenAI.ImageModel),
		imagegen.WithImageSize(cfg.OpenAI.ImageSize),
		imagegen.WithImageQuality(cfg.OpenAI.ImageQuality),
		imagegen.WithImageStyle(cfg.OpenAI.ImageStyle),
		imagegen.WithOpenAIHTTPClient(client),
	)

	ark := imagegen.NewArkProvider(cfg.Ark.APIKey, cfg.Ark.BaseURL, cfg.Ark.Model, cfg.Ark.Size, cfg.Ark.Configured())

	kling := imagegen.NewKlingProvider(cfg.Kling.AccessKey, cfg.Kling.SecretKey, cfg.Kling.Configured(),
		imagegen.WithKlingBaseURL(cfg.Kling.APIURL),
		imagegen.WithKlingModel(cfg.Kling.Model),
		imagegen.WithAspectRatio(cfg.Kling.AspectRatio),
		imagegen.WithPolling(cfg.Kling.PollInterval, cfg.Kling.MaxPollAttempts),
		imagegen.WithSigner(imagegen.SignerFor(cfg.Kling.AuthMode)),
		imagegen.WithResignEachRequest(cfg.Kling.ResignEachRequest),
		imagegen.WithKlingHTTPClient(client),
		imagegen.WithKlingLogger(log),
	)

	return []imagegen.Provider{openai, ark, kling}
}
