package llm

import (
	"context"
	"time"
)

// LLMObserver receives a notification after every LLM call, successful or
// not. Implementations must not block for long; they run on the caller's
// goroutine.
type LLMObserver interface {
	OnLLMCall(ctx context.Context, event LLMCallEvent)
}

// LLMCallEvent contains all information about an LLM call.
type LLMCallEvent struct {
	Provider string
	Model    string

	// InputContentSize is the size in bytes of the text being cleaned.
	InputContentSize int

	// Response is nil if the call failed before a response arrived.
	Response *Response

	Error     error
	Duration  time.Duration
	StartedAt time.Time
}

// ObserverFunc is a convenience type for using a function as an LLMObserver.
type ObserverFunc func(ctx context.Context, event LLMCallEvent)

// OnLLMCall implements LLMObserver.
func (f ObserverFunc) OnLLMCall(ctx context.Context, event LLMCallEvent) {
	f(ctx, event)
}
