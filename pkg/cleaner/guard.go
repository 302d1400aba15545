package cleaner

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Guard rejects answers that look like the model failed: empty output, or
// output shorter than MinRatio times the input. The runner records either
// case as a model error.
type Guard struct {
	Next     TextCleaner
	MinRatio float64
}

// NewGuard wraps next. A minRatio of 0 still rejects empty answers to
// non-empty input.
func NewGuard(next TextCleaner, minRatio float64) *Guard {
	return &Guard{Next: next, MinRatio: minRatio}
}

// Clean implements TextCleaner.
func (g *Guard) Clean(ctx context.Context, text string) (string, error) {
	out, err := g.Next.Clean(ctx, text)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(out) == "" && strings.TrimSpace(text) != "" {
		return "", ErrEmptyResponse
	}

	in := utf8.RuneCountInString(text)
	got := utf8.RuneCountInString(out)
	if g.MinRatio > 0 && in > 0 && float64(got) < g.MinRatio*float64(in) {
		return "", fmt.Errorf("%w: %d of %d characters kept (min ratio %.2f)",
			ErrSuspiciousOutput, got, in, g.MinRatio)
	}
	return out, nil
}

// Name returns the cleaner type.
func (g *Guard) Name() string {
	return "guard(" + g.Next.Name() + ")"
}
