package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gertlabs/gert/llm"
	"github.com/gertlabs/gert/prompts"
)

// ErrEmptyUtterance rejects blank input before anything is loaded or saved
var ErrEmptyUtterance = errors.New("utterance is empty")

// State is the position of a turn in its lifecycle
type State int

const (
	StateStart State = iota
	StateModelCalled
	StateToolRequested
	StateToolDispatched
	StateFinalModelCalled
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateModelCalled:
		return "model_called"
	case StateToolRequested:
		return "tool_requested"
	case StateToolDispatched:
		return "tool_dispatched"
	case StateFinalModelCalled:
		return "final_model_called"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// TimeoutPolicy decides what a tool timeout does to the turn
type TimeoutPolicy int

const (
	// AbortOnTimeout fails the turn and persists nothing
	AbortOnTimeout TimeoutPolicy = iota
	// FoldTimeout records the timeout as the tool's error payload and
	// continues
	FoldTimeout
)

// ParseTimeoutPolicy maps "abort" and "fold" to a policy
func ParseTimeoutPolicy(s string) (TimeoutPolicy, error) {
	switch s {
	case "", "abort":
		return AbortOnTimeout, nil
	case "fold":
		return FoldTimeout, nil
	}
	return AbortOnTimeout, fmt.Errorf("unknown timeout policy %q (want abort or fold)", s)
}

func (p TimeoutPolicy) String() string {
	if p == FoldTimeout {
		return "fold"
	}
	return "abort"
}

// PersistenceError means the turn completed but could not be saved
type PersistenceError struct {
	ConversationID string
	Err            error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to save conversation %s: %v", e.ConversationID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ToolRun describes the tool dispatched during a turn
type ToolRun struct {
	Name      string
	Arguments json.RawMessage
	Payload   string
	Failed    bool
}

// Response is the outcome of one turn. On failure it is still returned,
// with State set to StateFailed, alongside the error.
type Response struct {
	Content        string
	ConversationID string
	Tool           *ToolRun
	State          State
	Usage          llm.Usage
}

// Config contains orchestrator configuration
type Config struct {
	Model         string
	SystemPrompt  string
	Temperature   float32
	MaxTokens     int
	Tools         []string
	TimeoutPolicy TimeoutPolicy
	Logger        zerolog.Logger
	Now           func() time.Time
}

// DefaultConfig returns the default orchestrator configuration
func DefaultConfig() Config {
	return Config{
		SystemPrompt:  prompts.For(prompts.Primary),
		Temperature:   0.7,
		MaxTokens:     2048,
		TimeoutPolicy: AbortOnTimeout,
		Logger:        zerolog.Nop(),
		Now:           time.Now,
	}
}

// Option is a functional option for configuring the orchestrator
type Option func(*Config)

// WithModel sets the primary model name
func WithModel(model string) Option {
	return func(c *Config) {
		c.Model = model
	}
}

// WithSystemPrompt sets the prompt seeded into new conversations
func WithSystemPrompt(prompt string) Option {
	return func(c *Config) {
		c.SystemPrompt = prompt
	}
}

// WithTemperature sets the temperature
func WithTemperature(temp float32) Option {
	return func(c *Config) {
		c.Temperature = temp
	}
}

// WithMaxTokens sets the max tokens
func WithMaxTokens(max int) Option {
	return func(c *Config) {
		c.MaxTokens = max
	}
}

// WithTools limits the tools offered to the model; empty offers all
func WithTools(names []string) Option {
	return func(c *Config) {
		c.Tools = names
	}
}

// WithTimeoutPolicy sets how tool timeouts are handled
func WithTimeoutPolicy(p TimeoutPolicy) Option {
	return func(c *Config) {
		c.TimeoutPolicy = p
	}
}

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithClock overrides time.Now for conversation ids
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		c.Now = now
	}
}
