// Package worker runs long suspending work, such as provider poll loops, as
// cancellable background jobs so a request handler can wait, time out or
// abandon them without leaking goroutines.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Update is an intermediate progress report emitted by a running job.
type Update struct {
	State   string
	Attempt int
	Detail  string
	At      time.Time
}

// ReportFunc publishes progress from inside a job. It never blocks.
type ReportFunc func(state string, attempt int, detail string)

// Func is the body of a job. It must return promptly once ctx is done.
type Func[T any] func(ctx context.Context, report ReportFunc) (T, error)

// updateBuffer bounds queued progress reports; overflow is dropped.
const updateBuffer = 64

// Job is a future for a background computation producing a T.
type Job[T any] struct {
	cancel  context.CancelFunc
	updates chan Update
	done    chan struct{}

	mu     sync.Mutex
	result T
	err    error
}

// Start launches fn in its own goroutine with a context derived from ctx.
// Cancelling ctx or calling Cancel stops the job.
func Start[T any](ctx context.Context, name string, fn Func[T]) *Job[T] {
	jctx, cancel := context.WithCancel(ctx)
	j := &Job[T]{
		cancel:  cancel,
		updates: make(chan Update, updateBuffer),
		done:    make(chan struct{}),
	}

	go func() {
		defer close(j.done)
		defer close(j.updates)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("job panicked", "job", name, "panic", r)
				j.finish(*new(T), fmt.Errorf("job %s panicked: %v", name, r))
			}
		}()

		res, err := fn(jctx, j.report)
		j.finish(res, err)
	}()
	return j
}

func (j *Job[T]) report(state string, attempt int, detail string) {
	u := Update{State: state, Attempt: attempt, Detail: detail, At: time.Now()}
	select {
	case j.updates <- u:
	default:
	}
}

func (j *Job[T]) finish(res T, err error) {
	j.mu.Lock()
	j.result, j.err = res, err
	j.mu.Unlock()
}

// Updates streams progress reports. The channel is closed when the job ends.
func (j *Job[T]) Updates() <-chan Update { return j.updates }

// Done is closed once the job has finished and its result is available.
func (j *Job[T]) Done() <-chan struct{} { return j.done }

// Cancel asks the job to stop. It is safe to call more than once.
func (j *Job[T]) Cancel() { j.cancel() }

// Result returns the outcome of a finished job. Call it after Done is closed.
func (j *Job[T]) Result() (T, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result, j.err
}

// Wait blocks until the job finishes or ctx is done. When ctx ends first the
// job is cancelled and Wait still waits for it to exit, so no work leaks.
func (j *Job[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-j.done:
	case <-ctx.Done():
		j.cancel()
		<-j.done
	}
	return j.Result()
}

// Sleep pauses for d or until ctx is done, whichever comes first. It reports
// ctx.Err() when interrupted.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
