package imagegen

import (
	"context"
	"log/slog"
	"time"

	"github.com/yangwenmai/cloudpoem/internal/redact"
)

// AttemptRecord describes one provider attempt made by the Dispatcher.
type AttemptRecord struct {
	Provider string
	Image    Image
	Failure  *Failure
	Duration time.Duration
}

// Recorder receives every attempt as it completes.
type Recorder interface {
	RecordAttempt(ctx context.Context, rec AttemptRecord)
}

// Outcome is a successful dispatch: the image, the provider that produced it,
// and the failures of providers tried before it.
type Outcome struct {
	Image    Image
	Provider string
	Failures []*Failure
}

// Dispatcher tries providers strictly in order until one succeeds.
type Dispatcher struct {
	providers []Provider
	recorder  Recorder
	logger    *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithRecorder attaches a Recorder for attempt outcomes.
func WithRecorder(r Recorder) DispatcherOption {
	return func(d *Dispatcher) { d.recorder = r }
}

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = l }
}

// NewDispatcher creates a Dispatcher over providers in priority order.
func NewDispatcher(providers []Provider, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{providers: providers}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Providers returns the IDs of providers with usable credentials, in order.
func (d *Dispatcher) Providers() []string {
	var ids []string
	for _, p := range d.providers {
		if p.Configured() {
			ids = append(ids, p.ID())
		}
	}
	return ids
}

// Generate returns the first success. Unconfigured providers are skipped and
// later providers are never invoked after a success. When every eligible
// provider fails the last *Failure is returned; with none eligible the
// error is ErrNoProvider.
func (d *Dispatcher) Generate(ctx context.Context, prompt string) (*Outcome, error) {
	var failures []*Failure
	eligible := 0

	for _, p := range d.providers {
		if !p.Configured() {
			d.logger.Debug("skipping unconfigured image provider", "provider", p.ID())
			continue
		}
		eligible++

		start := time.Now()
		img, err := p.Attempt(ctx, prompt)
		rec := AttemptRecord{Provider: p.ID(), Duration: time.Since(start)}

		if err == nil {
			rec.Image = img
			d.record(ctx, rec)
			d.logger.Info("image generated", "provider", p.ID(), "duration_ms", rec.Duration.Milliseconds(), "inline", img.Inline())
			return &Outcome{Image: img, Provider: p.ID(), Failures: failures}, nil
		}

		f := AsFailure(p.ID(), err)
		rec.Failure = f
		d.record(ctx, rec)
		failures = append(failures, f)
		d.logger.Warn("image provider failed",
			"provider", p.ID(),
			"kind", f.Kind,
			"status", f.StatusCode,
			"error", redact.String(f.Message))

		if f.Kind == KindCancelled || ctx.Err() != nil {
			break
		}
	}

	if eligible == 0 {
		return nil, ErrNoProvider
	}
	return nil, failures[len(failures)-1]
}

func (d *Dispatcher) record(ctx context.Context, rec AttemptRecord) {
	if d.recorder == nil {
		return
	}
	d.recorder.RecordAttempt(context.WithoutCancel(ctx), rec)
}
