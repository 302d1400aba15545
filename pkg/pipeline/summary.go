package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/jmylchreest/sigstrip/internal/logger"
	"github.com/jmylchreest/sigstrip/pkg/llm"
)

// Summary describes a finished (or interrupted) run.
type Summary struct {
	OutputPath string `json:"output_path" yaml:"output_path"`

	Files       int `json:"files" yaml:"files"`
	Processed   int `json:"processed" yaml:"processed"`
	Succeeded   int `json:"succeeded" yaml:"succeeded"`
	NoContent   int `json:"no_content" yaml:"no_content"`
	FileErrors  int `json:"file_errors" yaml:"file_errors"`
	LLMErrors   int `json:"llm_errors" yaml:"llm_errors"`
	WriteErrors int `json:"write_errors" yaml:"write_errors"`

	Usage Usage `json:"usage" yaml:"usage"`

	StartedAt  time.Time     `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time     `json:"finished_at" yaml:"finished_at"`
	Duration   time.Duration `json:"duration_ns" yaml:"duration_ns"`
}

func (s *Summary) count(err error) {
	s.Processed++
	switch KindOf(err) {
	case 0:
		if err == nil {
			s.Succeeded++
		} else {
			s.FileErrors++
		}
	case KindNoContent:
		s.NoContent++
	case KindLLM:
		s.LLMErrors++
	default:
		s.FileErrors++
	}
}

// Usage aggregates model calls over a run.
type Usage struct {
	Calls        int     `json:"calls" yaml:"calls"`
	Failures     int     `json:"failures" yaml:"failures"`
	InputTokens  int     `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int     `json:"output_tokens" yaml:"output_tokens"`
	Cost         float64 `json:"cost_usd" yaml:"cost_usd"`
}

// UsageTracker is an llm.LLMObserver that totals token usage and logs
// every call at debug level.
type UsageTracker struct {
	mu     sync.Mutex
	totals Usage
}

// NewUsageTracker creates an empty tracker.
func NewUsageTracker() *UsageTracker {
	return &UsageTracker{}
}

// OnLLMCall implements llm.LLMObserver.
func (u *UsageTracker) OnLLMCall(_ context.Context, e llm.LLMCallEvent) {
	u.mu.Lock()
	u.totals.Calls++
	if e.Error != nil {
		u.totals.Failures++
	}
	if e.Response != nil {
		u.totals.InputTokens += e.Response.Usage.InputTokens
		u.totals.OutputTokens += e.Response.Usage.OutputTokens
		u.totals.Cost += e.Response.Cost
	}
	u.mu.Unlock()

	attrs := []any{
		"provider", e.Provider,
		"model", e.Model,
		"input_bytes", e.InputContentSize,
		"duration", e.Duration.Round(time.Millisecond),
	}
	if e.Response != nil {
		attrs = append(attrs,
			"input_tokens", e.Response.Usage.InputTokens,
			"output_tokens", e.Response.Usage.OutputTokens,
			"finish_reason", e.Response.FinishReason)
	}
	if e.Error != nil {
		attrs = append(attrs, "error", e.Error)
	}
	logger.Debug("llm call", attrs...)
}

// Totals returns a snapshot of the accumulated usage.
func (u *UsageTracker) Totals() Usage {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.totals
}
