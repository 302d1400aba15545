package cleaner

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jmylchreest/sigstrip/internal/logger"
	"github.com/jmylchreest/sigstrip/pkg/llm"
)

// DefaultTemperature keeps the model close to deterministic.
const DefaultTemperature = 0.1

// Config holds settings shared by the model-backed cleaners.
type Config struct {
	Temperature    float64
	MaxTokens      int // 0 leaves the provider default
	MaxContentSize int // bytes of email text sent to the model, 0 = unlimited
	Observer       llm.LLMObserver
}

// DefaultConfig returns the default cleaner settings.
func DefaultConfig() Config {
	return Config{Temperature: DefaultTemperature}
}

// Option configures a model-backed cleaner.
type Option func(*Config)

// WithTemperature overrides DefaultTemperature.
func WithTemperature(t float64) Option {
	return func(c *Config) { c.Temperature = t }
}

// WithMaxTokens caps the length of the model answer.
func WithMaxTokens(n int) Option {
	return func(c *Config) { c.MaxTokens = n }
}

// WithMaxContentSize caps the email bytes interpolated into the prompt.
func WithMaxContentSize(n int) Option {
	return func(c *Config) { c.MaxContentSize = n }
}

// WithObserver registers an observer notified after every model call.
func WithObserver(obs llm.LLMObserver) Option {
	return func(c *Config) { c.Observer = obs }
}

// modelCleaner sends the signature prompt through an llm.Provider.
type modelCleaner struct {
	provider llm.Provider
	config   Config
}

func newModelCleaner(p llm.Provider, opts []Option) modelCleaner {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return modelCleaner{provider: p, config: cfg}
}

func (m *modelCleaner) complete(ctx context.Context, text string) (string, error) {
	if m.config.MaxContentSize > 0 && len(text) > m.config.MaxContentSize {
		logger.Warn("content truncated due to length",
			"original_bytes", len(text),
			"max_bytes", m.config.MaxContentSize)
	}
	prompt := BuildPrompt(text, m.config.MaxContentSize)

	logger.Debug("cleaner calling LLM",
		"provider", m.provider.Name(),
		"model", m.provider.Model(),
		"temperature", m.config.Temperature,
		"prompt_size", len(prompt))

	startedAt := time.Now()
	resp, err := m.provider.Execute(ctx, llm.Request{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		MaxTokens:   m.config.MaxTokens,
		Temperature: m.config.Temperature,
	})
	duration := time.Since(startedAt)

	if m.config.Observer != nil {
		event := llm.LLMCallEvent{
			Provider:         m.provider.Name(),
			Model:            m.provider.Model(),
			InputContentSize: len(text),
			Response:         resp,
			Error:            err,
			Duration:         duration,
			StartedAt:        startedAt,
		}
		if resp != nil && resp.Model != "" {
			event.Model = resp.Model
		}
		m.config.Observer.OnLLMCall(ctx, event)
	}

	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (m *modelCleaner) label(kind string) string {
	return kind + ":" + m.provider.Name() + "/" + m.provider.Model()
}

// HostedCleaner removes signatures with a hosted chat API (OpenAI or
// Anthropic). The model answer is returned as is.
type HostedCleaner struct {
	modelCleaner
}

// NewHosted creates a cleaner backed by a hosted provider.
func NewHosted(p llm.Provider, opts ...Option) *HostedCleaner {
	return &HostedCleaner{modelCleaner: newModelCleaner(p, opts)}
}

// Clean implements TextCleaner.
func (c *HostedCleaner) Clean(ctx context.Context, text string) (string, error) {
	out, err := c.complete(ctx, text)
	if err != nil {
		return "", fmt.Errorf("%s: %w", c.provider.Name(), err)
	}
	return out, nil
}

// Name returns the cleaner type.
func (c *HostedCleaner) Name() string {
	return c.label("hosted")
}

// thinkBlock matches reasoning markup emitted by local reasoning models.
var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// LocalCleaner removes signatures with a locally served model. Reasoning
// blocks are stripped from the answer, which is then trimmed.
type LocalCleaner struct {
	modelCleaner
}

// NewLocal creates a cleaner backed by a local provider such as Ollama.
func NewLocal(p llm.Provider, opts ...Option) *LocalCleaner {
	return &LocalCleaner{modelCleaner: newModelCleaner(p, opts)}
}

// Clean implements TextCleaner.
func (c *LocalCleaner) Clean(ctx context.Context, text string) (string, error) {
	out, err := c.complete(ctx, text)
	if err != nil {
		return "", fmt.Errorf("%s: %w", c.provider.Name(), err)
	}
	return StripReasoning(out), nil
}

// Name returns the cleaner type.
func (c *LocalCleaner) Name() string {
	return c.label("local")
}

// StripReasoning removes every <think>...</think> block and trims the rest.
func StripReasoning(s string) string {
	return strings.TrimSpace(thinkBlock.ReplaceAllString(s, ""))
}
