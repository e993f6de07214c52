package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yangwenmai/cloudpoem/internal/redact"
	"github.com/yangwenmai/cloudpoem/internal/worker"
)

// KlingProvider is the asynchronous provider: it submits a signed task and
// polls its status until a terminal state or the attempt budget runs out.
type KlingProvider struct {
	accessKey   string
	secretKey   string
	baseURL     string
	model       string
	aspectRatio string
	interval    time.Duration
	maxAttempts int
	signer      Signer
	resign      bool
	configured  bool
	httpClient  *http.Client
	now         func() time.Time
	logger      *slog.Logger
}

// KlingOption configures a KlingProvider.
type KlingOption func(*KlingProvider)

// WithKlingBaseURL overrides the API endpoint (default: https://api.klingai.com).
func WithKlingBaseURL(url string) KlingOption {
	return func(p *KlingProvider) { p.baseURL = strings.TrimRight(url, "/") }
}

// WithKlingModel sets model_name (default: kling-v1).
func WithKlingModel(model string) KlingOption {
	return func(p *KlingProvider) { p.model = model }
}

// WithAspectRatio sets aspect_ratio (default: 1:1).
func WithAspectRatio(ratio string) KlingOption {
	return func(p *KlingProvider) { p.aspectRatio = ratio }
}

// WithPolling sets the interval between polls and the poll attempt budget.
func WithPolling(interval time.Duration, maxAttempts int) KlingOption {
	return func(p *KlingProvider) {
		p.interval = interval
		p.maxAttempts = maxAttempts
	}
}

// WithSigner selects how requests are authenticated (default: HMACSigner).
func WithSigner(s Signer) KlingOption {
	return func(p *KlingProvider) { p.signer = s }
}

// WithResignEachRequest computes fresh credentials for every poll instead of
// reusing the pair computed at submission.
func WithResignEachRequest(on bool) KlingOption {
	return func(p *KlingProvider) { p.resign = on }
}

// WithKlingHTTPClient replaces the HTTP client used for each request.
func WithKlingHTTPClient(c *http.Client) KlingOption {
	return func(p *KlingProvider) { p.httpClient = c }
}

// WithClock replaces time.Now for signing and task timestamps.
func WithClock(now func() time.Time) KlingOption {
	return func(p *KlingProvider) { p.now = now }
}

// WithKlingLogger sets the logger (default: slog.Default()).
func WithKlingLogger(l *slog.Logger) KlingOption {
	return func(p *KlingProvider) { p.logger = l }
}

// NewKlingProvider creates the async provider.
func NewKlingProvider(accessKey, secretKey string, configured bool, opts ...KlingOption) *KlingProvider {
	p := &KlingProvider{
		accessKey:   accessKey,
		secretKey:   secretKey,
		baseURL:     "https://api.klingai.com",
		model:       "kling-v1",
		aspectRatio: "1:1",
		interval:    5 * time.Second,
		maxAttempts: 60,
		signer:      HMACSigner{},
		configured:  configured,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

func (p *KlingProvider) ID() string       { return "kling" }
func (p *KlingProvider) Configured() bool { return p.configured }

type klingSubmitRequest struct {
	ModelName   string `json:"model_name"`
	Prompt      string `json:"prompt"`
	N           int    `json:"n"`
	AspectRatio string `json:"aspect_ratio"`
}

type klingEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type klingSubmitData struct {
	TaskID string `json:"task_id"`
}

type klingTaskData struct {
	TaskID        string `json:"task_id"`
	TaskStatus    string `json:"task_status"`
	TaskStatusMsg string `json:"task_status_msg"`
	TaskResult    *struct {
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"task_result"`
}

// Attempt runs the task to completion on a background job and waits for it.
func (p *KlingProvider) Attempt(ctx context.Context, prompt string) (Image, error) {
	task, err := p.Start(ctx, prompt).Wait(ctx)
	if err != nil {
		return Image{}, err
	}
	return task.Image, nil
}

// Start submits and polls on a background job. The job reports every state
// transition on its Updates channel and yields the finished task. Cancelling
// ctx or the job stops polling and yields a KindCancelled failure.
func (p *KlingProvider) Start(ctx context.Context, prompt string) *worker.Job[*GenerationTask] {
	return worker.Start(ctx, "kling", func(ctx context.Context, report worker.ReportFunc) (*GenerationTask, error) {
		return p.run(ctx, prompt, report)
	})
}

func (p *KlingProvider) run(ctx context.Context, prompt string, report worker.ReportFunc) (*GenerationTask, error) {
	task := newGenerationTask(p.now())
	enter := func(s TaskState, detail string) {
		if err := task.transition(s); err != nil {
			p.logger.Error("kling task state", "error", err)
			return
		}
		report(string(s), task.AttemptsUsed, detail)
	}
	finish := func(s TaskState, f *Failure) (*GenerationTask, error) {
		enter(s, f.Message)
		p.logger.Warn("kling task ended",
			"task_id", task.ID,
			"state", s,
			"attempts", task.AttemptsUsed,
			"kind", f.Kind,
			"error", redact.String(f.Message))
		return task, f
	}

	creds, err := p.signer.Credentials(p.accessKey, p.secretKey, p.now())
	if err != nil {
		return finish(TaskFailed, fail(p.ID(), KindAuthentication, "sign request", err))
	}

	taskID, f := p.submit(ctx, prompt, creds)
	if f != nil {
		return finish(stateFor(f), f)
	}
	task.ID = taskID
	enter(TaskSubmitted, taskID)
	p.logger.Info("kling task submitted", "task_id", taskID)

	for task.AttemptsUsed < p.maxAttempts {
		if err := worker.Sleep(ctx, p.interval); err != nil {
			f := fail(p.ID(), "", "polling interrupted", err)
			return finish(stateFor(f), f)
		}

		if p.resign {
			if creds, err = p.signer.Credentials(p.accessKey, p.secretKey, p.now()); err != nil {
				return finish(TaskFailed, fail(p.ID(), KindAuthentication, "sign request", err))
			}
		}

		data, f := p.poll(ctx, taskID, creds)
		if f != nil {
			return finish(stateFor(f), f)
		}

		switch data.TaskStatus {
		case "succeed":
			if data.TaskResult == nil || len(data.TaskResult.Images) == 0 || data.TaskResult.Images[0].URL == "" {
				return finish(TaskFailed, fail(p.ID(), KindUnknown, "task succeeded without an image", nil))
			}
			task.Image = Image{URL: data.TaskResult.Images[0].URL}
			enter(TaskSucceeded, task.Image.URL)
			p.logger.Info("kling task succeeded", "task_id", taskID, "attempts", task.AttemptsUsed)
			return task, nil
		case "failed":
			msg := data.TaskStatusMsg
			if msg == "" {
				msg = "image generation task failed"
			}
			return finish(TaskFailed, fail(p.ID(), KindUnknown, msg, nil))
		case "submitted", "processing":
			task.AttemptsUsed++
			enter(TaskPolling, data.TaskStatus)
			p.logger.Debug("kling task pending", "task_id", taskID, "status", data.TaskStatus, "attempt", task.AttemptsUsed)
		default:
			return finish(TaskFailed, fail(p.ID(), KindUnknown, fmt.Sprintf("unknown task status %q", data.TaskStatus), nil))
		}
	}

	f = fail(p.ID(), KindTimeout, fmt.Sprintf("task %s not finished after %d polls", taskID, task.AttemptsUsed), nil)
	return finish(TaskTimedOut, f)
}

// stateFor picks the terminal state for a failure.
func stateFor(f *Failure) TaskState {
	switch {
	case f.Kind == KindCancelled:
		return TaskCancelled
	case f.Kind == KindTimeout && errors.Is(f.Err, context.DeadlineExceeded):
		return TaskTimedOut
	default:
		return TaskFailed
	}
}

func (p *KlingProvider) submit(ctx context.Context, prompt string, creds Credentials) (string, *Failure) {
	body, err := json.Marshal(klingSubmitRequest{
		ModelName:   p.model,
		Prompt:      prompt,
		N:           1,
		AspectRatio: p.aspectRatio,
	})
	if err != nil {
		return "", fail(p.ID(), KindUnknown, "marshal request", err)
	}

	var data klingSubmitData
	if f := p.do(ctx, http.MethodPost, p.baseURL+"/v1/images/generations", body, creds, &data); f != nil {
		return "", f
	}
	if data.TaskID == "" {
		return "", fail(p.ID(), KindUnknown, "no task_id in response", nil)
	}
	return data.TaskID, nil
}

func (p *KlingProvider) poll(ctx context.Context, taskID string, creds Credentials) (*klingTaskData, *Failure) {
	var data klingTaskData
	if f := p.do(ctx, http.MethodGet, p.baseURL+"/v1/images/generations/"+taskID, nil, creds, &data); f != nil {
		return nil, f
	}
	return &data, nil
}

// do sends one signed request and decodes the envelope's data into out. A
// transport error, non-2xx status or non-zero embedded code is a Failure.
func (p *KlingProvider) do(ctx context.Context, method, url string, body []byte, creds Credentials, out any) *Failure {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rdr)
	if err != nil {
		return fail(p.ID(), KindUnknown, "", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	creds.Apply(req.Header)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fail(p.ID(), "", "", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(p.ID(), "", "read response", err)
	}

	var env klingEnvelope
	decodeErr := json.Unmarshal(respBody, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		f := &Failure{Provider: p.ID(), StatusCode: resp.StatusCode, Kind: ClassifyStatus(resp.StatusCode)}
		if decodeErr == nil && env.Code != 0 {
			f.Code = fmt.Sprint(env.Code)
			f.Message = env.Message
			if k := ClassifyKling(env.Code); k != KindUnknown {
				f.Kind = k
			}
		}
		if f.Message == "" {
			f.Message = strings.TrimSpace(string(respBody))
		}
		if f.Message == "" {
			f.Message = http.StatusText(resp.StatusCode)
		}
		return f
	}

	if decodeErr != nil {
		return fail(p.ID(), KindUnknown, "unmarshal response", decodeErr)
	}
	if env.Code != 0 {
		msg := env.Message
		if msg == "" {
			msg = fmt.Sprintf("provider returned code %d", env.Code)
		}
		return &Failure{
			Provider:   p.ID(),
			Kind:       ClassifyKling(env.Code),
			Message:    msg,
			Code:       fmt.Sprint(env.Code),
			StatusCode: resp.StatusCode,
		}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return fail(p.ID(), KindUnknown, "empty data in response", nil)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fail(p.ID(), KindUnknown, "unmarshal data", err)
	}
	return nil
}
