package conversation

import "errors"

// Service error taxonomy. NotFound and CompletionFailed are the store
// and provider sentinels passed through unchanged (db.ErrNotFound,
// llm.ErrCompletionFailed); the two below originate here.
var (
	// ErrInvalidInput indicates an empty prompt, content, or an
	// unacceptable message type.
	ErrInvalidInput = errors.New("invalid input")
	// ErrPersistenceFailed indicates the store rejected a write after
	// the completion call already succeeded. The store's own sentinel
	// stays visible through errors.Is on the wrapped chain.
	ErrPersistenceFailed = errors.New("persistence failed")
)
