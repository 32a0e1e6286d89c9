// Package llm wraps the external chat-completion service behind a small
// interface so generation can be tested with a stub.
package llm

import (
	"context"
	"errors"
)

var (
	// ErrNotConfigured means no API credential is present; callers fail
	// fast instead of attempting the call.
	ErrNotConfigured = errors.New("llm_not_configured")
	// ErrEmptyCompletion means the upstream returned no usable content.
	ErrEmptyCompletion = errors.New("llm_empty_completion")
)

type Client interface {
	// Complete sends a system+user message pair and returns the raw
	// completion text.
	Complete(ctx context.Context, system, user string) (string, error)
	// Configured reports whether a credential is available.
	Configured() bool
	// Model returns the model identifier in use.
	Model() string
}
