package imagegen

import (
	"context"
	"fmt"
	"strings"

	"github.com/volcengine/volcengine-go-sdk/service/arkruntime"
	"github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"
	"github.com/volcengine/volcengine-go-sdk/volcengine"
)

// arkResult is the part of an Ark images response the provider uses.
type arkResult struct {
	URLs       []string
	ErrCode    string
	ErrMessage string
}

// arkBackend performs the Ark call; tests replace it.
type arkBackend interface {
	generate(ctx context.Context, req model.GenerateImagesRequest) (arkResult, error)
}

type arkSDK struct {
	client *arkruntime.Client
}

func (a arkSDK) generate(ctx context.Context, req model.GenerateImagesRequest) (arkResult, error) {
	resp, err := a.client.GenerateImages(ctx, req)
	if err != nil {
		return arkResult{}, err
	}
	var out arkResult
	if resp.Error != nil {
		out.ErrCode = fmt.Sprint(resp.Error.Code)
		out.ErrMessage = resp.Error.Message
		return out, nil
	}
	for _, d := range resp.Data {
		if d.Url != nil && *d.Url != "" {
			out.URLs = append(out.URLs, *d.Url)
		}
	}
	return out, nil
}

// ArkProvider is a synchronous provider backed by volcengine Ark image models.
type ArkProvider struct {
	model      string
	size       string
	configured bool
	backend    arkBackend
}

// NewArkProvider creates the Ark provider. An empty baseURL keeps the SDK default.
func NewArkProvider(apiKey, baseURL, modelName, size string, configured bool) *ArkProvider {
	client := arkruntime.NewClientWithApiKey(apiKey)
	if baseURL != "" {
		client = arkruntime.NewClientWithApiKey(apiKey, arkruntime.WithBaseUrl(strings.TrimRight(baseURL, "/")))
	}
	return &ArkProvider{
		model:      modelName,
		size:       size,
		configured: configured,
		backend:    arkSDK{client: client},
	}
}

func (p *ArkProvider) ID() string       { return "ark" }
func (p *ArkProvider) Configured() bool { return p.configured }

// Attempt requests a single URL-format image without watermark.
func (p *ArkProvider) Attempt(ctx context.Context, prompt string) (Image, error) {
	req := model.GenerateImagesRequest{
		Model:          p.model,
		Prompt:         prompt,
		ResponseFormat: volcengine.String(model.GenerateImagesResponseFormatURL),
		Watermark:      volcengine.Bool(false),
	}
	if p.size != "" {
		req.Size = volcengine.String(p.size)
	}

	res, err := p.backend.generate(ctx, req)
	if err != nil {
		return Image{}, fail(p.ID(), "", "", err)
	}
	if res.ErrCode != "" || res.ErrMessage != "" {
		return Image{}, &Failure{
			Provider: p.ID(),
			Kind:     ClassifyArk(res.ErrCode),
			Message:  res.ErrMessage,
			Code:     res.ErrCode,
		}
	}
	if len(res.URLs) == 0 {
		return Image{}, fail(p.ID(), KindUnknown, "no image in response", nil)
	}
	return Image{URL: res.URLs[0]}, nil
}
