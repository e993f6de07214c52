package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/yangwenmai/cloudpoem/internal/prompt"
)

// GeminiClient implements ModelClient with the Google Gen AI SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// GeminiOption configures the Gemini client.
type GeminiOption func(*geminiSettings)

type geminiSettings struct {
	model   string
	baseURL string
}

// WithGeminiModel sets the model name.
func WithGeminiModel(model string) GeminiOption {
	return func(s *geminiSettings) { s.model = model }
}

// WithGeminiBaseURL overrides the API endpoint.
func WithGeminiBaseURL(url string) GeminiOption {
	return func(s *geminiSettings) { s.baseURL = strings.TrimRight(url, "/") + "/" }
}

// NewGeminiClient creates a new Google Gemini model client.
func NewGeminiClient(ctx context.Context, apiKey string, opts ...GeminiOption) (*GeminiClient, error) {
	s := geminiSettings{model: "gemini-2.0-flash"}
	for _, opt := range opts {
		opt(&s)
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if s.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: s.baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiClient{client: client, model: s.model}, nil
}

// Complete sends the chat to Gemini and returns the response text.
func (c *GeminiClient) Complete(ctx context.Context, chat prompt.Chat) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.8),
		MaxOutputTokens: 500,
	}
	if chat.System != "" {
		config.SystemInstruction = genai.NewContentFromText(chat.System, genai.RoleUser)
	}
	contents := []*genai.Content{genai.NewContentFromText(chat.User, genai.RoleUser)}

	return withRetry(ctx, "gemini", func() (string, error) {
		resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
		if err != nil {
			var apiErr genai.APIError
			if errors.As(err, &apiErr) {
				return "", &apiError{StatusCode: apiErr.Code, Body: apiErr.Message}
			}
			return "", err
		}
		text := strings.TrimSpace(resp.Text())
		if text == "" {
			return "", fmt.Errorf("no content in response")
		}
		return text, nil
	})
}
