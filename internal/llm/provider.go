package llm

import (
	"context"
	"errors"
)

// ErrCompletionFailed indicates the completion provider failed after
// exhausting its retry budget. The wrapped error carries the upstream
// status and message from the last attempt.
var ErrCompletionFailed = errors.New("completion failed")

// CompletionRequest describes a single completion call
type CompletionRequest struct {
	// Prompt is the user text to complete; must be non-empty.
	Prompt string
	// System is an optional system instruction.
	System string
	// Model selects a supported model identifier; empty means the
	// provider's default.
	Model string
}

// Provider defines the interface for completion providers. Implementations
// must be safe for concurrent use and hold no state between calls.
type Provider interface {
	// Complete sends the request and returns the completion text.
	// Transient failures are retried internally; the returned text is
	// guaranteed non-empty on success.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
