// Package imagegen turns an image prompt into one image by trying an ordered
// list of providers. Providers are either synchronous (one request) or
// asynchronous (submit a task, then poll it until a terminal status).
package imagegen

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoProvider is returned when no provider has usable credentials.
var ErrNoProvider = errors.New("no image provider configured")

// Image locates a generated image: a remote URL or an inline base64 payload.
type Image struct {
	URL string `json:"url,omitempty"`
	B64 string `json:"b64_json,omitempty"`
}

// Inline reports whether the image is carried as base64 data.
func (i Image) Inline() bool { return i.URL == "" && i.B64 != "" }

// Locator returns a single string usable as an <img> src for either shape.
func (i Image) Locator() string {
	if i.URL != "" {
		return i.URL
	}
	if i.B64 != "" {
		return "data:image/png;base64," + i.B64
	}
	return ""
}

// Provider is one strategy for producing an image from a prompt.
type Provider interface {
	// ID names the provider in logs, failures and the journal.
	ID() string

	// Configured reports whether credentials are present and not placeholders.
	Configured() bool

	// Attempt makes one generation attempt. A non-nil error is a *Failure.
	Attempt(ctx context.Context, prompt string) (Image, error)
}

// Failure is the error returned by every provider attempt.
type Failure struct {
	Provider   string
	Kind       Kind
	Message    string
	StatusCode int
	Code       string
	Err        error
}

func (f *Failure) Error() string {
	if f.Provider == "" {
		return fmt.Sprintf("%s: %s", f.Kind, f.Message)
	}
	return fmt.Sprintf("%s: %s: %s", f.Provider, f.Kind, f.Message)
}

func (f *Failure) Unwrap() error { return f.Err }

// fail builds a Failure, classifying err when kind is empty.
func fail(provider string, kind Kind, msg string, err error) *Failure {
	if kind == "" {
		kind = Classify(err)
	}
	switch {
	case msg == "" && err != nil:
		msg = err.Error()
	case err != nil:
		msg = msg + ": " + err.Error()
	}
	return &Failure{Provider: provider, Kind: kind, Message: msg, Err: err}
}

// AsFailure converts any error into a *Failure attributed to provider.
func AsFailure(provider string, err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return fail(provider, "", "", err)
}
