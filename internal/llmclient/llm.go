package llmclient

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("llm: empty response from model")

// Client is the narrow text-in/text-out contract every provider satisfies.
// Cross-cutting concerns (rate limiting, retries, logging, timeouts) are
// layered on top by the llm middleware package.
type Client interface {
	Name() string
	Close() error
	CountTokens(text string) int
	TokenCapacity() int
	Generate(ctx context.Context, prompt string) (string, error)
}

// PermanentError indicates an error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err (or anything it wraps) is a PermanentError.
func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}
