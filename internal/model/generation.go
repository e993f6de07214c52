// Package model holds the records persisted by the generation journal.
package model

import "time"

// Generation status constants
const (
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
)

// Image kind constants
const (
	ImageKindURL    = "url"
	ImageKindInline = "inline"
)

// TimeLayout is the fixed-width UTC layout of CreatedAt, so text order is
// time order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Generation is one provider attempt. It records the outcome only: mood,
// poem and prompt text are never stored.
type Generation struct {
	ID           string `db:"id" json:"id"`
	RequestID    string `db:"request_id" json:"request_id,omitempty"`
	Provider     string `db:"provider" json:"provider"`
	Status       string `db:"status" json:"status"`
	ErrorKind    string `db:"error_kind" json:"error_kind,omitempty"`
	ErrorMessage string `db:"error_message" json:"error_message,omitempty"`
	ImageKind    string `db:"image_kind" json:"image_kind,omitempty"`
	ImageURL     string `db:"image_url" json:"image_url,omitempty"`
	DurationMS   int64  `db:"duration_ms" json:"duration_ms"`
	CreatedAt    string `db:"created_at" json:"created_at"`
}

// NewSuccess creates a SUCCEEDED record. Inline images keep no payload.
func NewSuccess(id, provider, imageURL string, inline bool, d time.Duration) Generation {
	g := newGeneration(id, provider, StatusSucceeded, d)
	if inline {
		g.ImageKind = ImageKindInline
	} else {
		g.ImageKind = ImageKindURL
		g.ImageURL = imageURL
	}
	return g
}

// NewFailure creates a FAILED record.
func NewFailure(id, provider, kind, message string, d time.Duration) Generation {
	g := newGeneration(id, provider, StatusFailed, d)
	g.ErrorKind = kind
	g.ErrorMessage = message
	return g
}

func newGeneration(id, provider, status string, d time.Duration) Generation {
	return Generation{
		ID:         id,
		Provider:   provider,
		Status:     status,
		DurationMS: d.Milliseconds(),
		CreatedAt:  FormatTime(time.Now()),
	}
}
