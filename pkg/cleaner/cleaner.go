// Package cleaner removes signature blocks from email body text.
// The real implementations ask a text-generation backend to do the work;
// Noop and Func exist for dry runs and tests.
package cleaner

import (
	"context"
	"errors"
)

var (
	// ErrEmptyResponse is returned when the backend answers with no text.
	ErrEmptyResponse = errors.New("empty response from model")

	// ErrSuspiciousOutput is returned by Guard when the cleaned text is too
	// short relative to the input.
	ErrSuspiciousOutput = errors.New("cleaned output suspiciously short")
)

// TextCleaner strips signatures from a message body.
type TextCleaner interface {
	// Clean returns text with every signature block removed.
	Clean(ctx context.Context, text string) (string, error)

	// Name returns the cleaner type for logging/debugging.
	Name() string
}

// Func adapts an ordinary function to TextCleaner.
type Func func(ctx context.Context, text string) (string, error)

// Clean calls f.
func (f Func) Clean(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}

// Name returns the cleaner type.
func (f Func) Name() string {
	return "func"
}
