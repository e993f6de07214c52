package imagegen

import (
	"fmt"
	"time"
)

// TaskState is a GenerationTask lifecycle state.
type TaskState string

const (
	TaskCreated   TaskState = "created"
	TaskSubmitted TaskState = "submitted"
	TaskPolling   TaskState = "polling"
	TaskSucceeded TaskState = "succeeded"
	TaskFailed    TaskState = "failed"
	TaskTimedOut  TaskState = "timed_out"
	TaskCancelled TaskState = "cancelled"
)

// IsTerminal reports whether no further transition is possible from s.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskSucceeded, TaskFailed, TaskTimedOut, TaskCancelled:
		return true
	default:
		return false
	}
}

func isAllowedTransition(from, to TaskState) bool {
	switch from {
	case TaskCreated:
		return to == TaskSubmitted || to == TaskFailed || to == TaskCancelled || to == TaskTimedOut
	case TaskSubmitted, TaskPolling:
		return to == TaskPolling || to.IsTerminal()
	default:
		return false
	}
}

// GenerationTask tracks one remote task through submission and polling. It is
// owned by a single poll loop and never shared.
type GenerationTask struct {
	ID           string
	State        TaskState
	CreatedAt    time.Time
	AttemptsUsed int
	Image        Image

	// History lists every state entered after TaskCreated, in order.
	History []TaskState
}

func newGenerationTask(now time.Time) *GenerationTask {
	return &GenerationTask{State: TaskCreated, CreatedAt: now}
}

// transition moves the task to the next state, rejecting invalid moves.
func (t *GenerationTask) transition(to TaskState) error {
	if !isAllowedTransition(t.State, to) {
		return fmt.Errorf("task %q: disallowed transition %s -> %s", t.ID, t.State, to)
	}
	t.State = to
	t.History = append(t.History, to)
	return nil
}
