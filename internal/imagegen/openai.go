package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAIProvider is a synchronous provider backed by the OpenAI images API,
// or any compatible service reachable at a custom base URL.
type OpenAIProvider struct {
	apiKey     string
	baseURL    string
	model      string
	size       string
	quality    string
	style      string
	configured bool
	httpClient *http.Client
}

// OpenAIOption configures an OpenAIProvider.
type OpenAIOption func(*OpenAIProvider)

// WithOpenAIBaseURL overrides the API endpoint (default: https://api.openai.com/v1).
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(p *OpenAIProvider) { p.baseURL = strings.TrimRight(url, "/") }
}

// WithOpenAIModel sets the image model (default: dall-e-3).
func WithOpenAIModel(model string) OpenAIOption {
	return func(p *OpenAIProvider) { p.model = model }
}

// WithImageSize sets the requested size, e.g. "1024x1024".
func WithImageSize(size string) OpenAIOption {
	return func(p *OpenAIProvider) { p.size = size }
}

// WithImageQuality sets the quality field ("standard", "hd").
func WithImageQuality(q string) OpenAIOption {
	return func(p *OpenAIProvider) { p.quality = q }
}

// WithImageStyle sets the style field ("vivid", "natural").
func WithImageStyle(s string) OpenAIOption {
	return func(p *OpenAIProvider) { p.style = s }
}

// WithOpenAIHTTPClient replaces the HTTP client.
func WithOpenAIHTTPClient(c *http.Client) OpenAIOption {
	return func(p *OpenAIProvider) { p.httpClient = c }
}

// NewOpenAIProvider creates the synchronous provider. configured is decided by
// the caller from the loaded configuration.
func NewOpenAIProvider(apiKey string, configured bool, opts ...OpenAIOption) *OpenAIProvider {
	p := &OpenAIProvider{
		apiKey:     apiKey,
		baseURL:    "https://api.openai.com/v1",
		model:      "dall-e-3",
		size:       "1024x1024",
		quality:    "standard",
		configured: configured,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *OpenAIProvider) ID() string       { return "openai" }
func (p *OpenAIProvider) Configured() bool { return p.configured }

type imageRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	N       int    `json:"n"`
	Size    string `json:"size,omitempty"`
	Quality string `json:"quality,omitempty"`
	Style   string `json:"style,omitempty"`
}

type imageResponse struct {
	Data []struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	} `json:"data"`
	Error *openAIError `json:"error,omitempty"`
}

type openAIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

func (e *openAIError) code() string {
	if e == nil || e.Code == nil {
		return ""
	}
	return fmt.Sprint(e.Code)
}

// Attempt issues one image request. Failures are returned immediately.
func (p *OpenAIProvider) Attempt(ctx context.Context, prompt string) (Image, error) {
	body, err := json.Marshal(imageRequest{
		Model:   p.model,
		Prompt:  prompt,
		N:       1,
		Size:    p.size,
		Quality: p.quality,
		Style:   p.style,
	})
	if err != nil {
		return Image{}, fail(p.ID(), KindUnknown, "marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/images/generations", bytes.NewReader(body))
	if err != nil {
		return Image{}, fail(p.ID(), KindUnknown, "", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Image{}, fail(p.ID(), "", "", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Image{}, fail(p.ID(), "", "read response", err)
	}

	var ir imageResponse
	decodeErr := json.Unmarshal(respBody, &ir)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		f := &Failure{
			Provider:   p.ID(),
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(respBody)),
		}
		if decodeErr == nil && ir.Error != nil {
			f.Code = ir.Error.code()
			f.Message = ir.Error.Message
			f.Kind = ClassifyOpenAI(resp.StatusCode, f.Code, ir.Error.Type)
		} else {
			f.Kind = ClassifyStatus(resp.StatusCode)
		}
		if f.Message == "" {
			f.Message = http.StatusText(resp.StatusCode)
		}
		return Image{}, f
	}

	if decodeErr != nil {
		return Image{}, fail(p.ID(), KindUnknown, "unmarshal response", decodeErr)
	}
	if ir.Error != nil {
		return Image{}, &Failure{
			Provider: p.ID(),
			Kind:     ClassifyOpenAI(resp.StatusCode, ir.Error.code(), ir.Error.Type),
			Message:  ir.Error.Message,
			Code:     ir.Error.code(),
		}
	}
	if len(ir.Data) == 0 {
		return Image{}, fail(p.ID(), KindUnknown, "no image in response", nil)
	}

	d := ir.Data[0]
	if d.B64JSON != "" {
		return Image{B64: d.B64JSON}, nil
	}
	if d.URL != "" {
		return Image{URL: d.URL}, nil
	}
	return Image{}, fail(p.ID(), KindUnknown, "image has neither url nor b64_json", nil)
}
