// Package llm provides a unified interface for the text-generation backends
// used to strip signatures: hosted APIs (OpenAI, Anthropic) and a local
// Ollama instance.
package llm

import (
	"context"
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a chat message.
type Message struct {
	Role    Role
	Content string
}

// Request represents a completion request to the LLM.
type Request struct {
	Messages    []Message
	MaxTokens   int // 0 leaves the provider default
	Temperature float64
}

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Response represents the result of an LLM execution.
type Response struct {
	Content      string
	FinishReason string
	Usage        Usage
	Model        string // Actual model reported by the backend
	Cost         float64
	Duration     time.Duration
}

// Provider is the core interface that all LLM backends must implement.
type Provider interface {
	// Execute sends a completion request and returns the response.
	Execute(ctx context.Context, req Request) (*Response, error)

	// Name returns the provider identifier (e.g., "openai", "ollama").
	Name() string

	// Model returns the configured model name.
	Model() string
}

// CostEstimator is an optional interface for providers that can estimate
// costs based on token counts without making an API call.
type CostEstimator interface {
	EstimateCost(modelID string, inputTokens, outputTokens int) float64
}

// ProviderConfig holds common configuration for providers.
type ProviderConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// Timeout bounds a single request. Zero keeps the provider default.
	Timeout time.Duration
}
