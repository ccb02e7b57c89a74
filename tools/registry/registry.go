package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gertlabs/gert/deadline"
	"github.com/gertlabs/gert/internal/schema"
	"github.com/gertlabs/gert/internal/validator"
	"github.com/gertlabs/gert/llm"
	"github.com/gertlabs/gert/tools"
)

var (
	// ErrToolNotFound is returned by Dispatch for an unregistered name
	ErrToolNotFound = errors.New("tool not found")
	// ErrToolTimeout is matched by every TimeoutError
	ErrToolTimeout = errors.New("tool timed out")
)

// TimeoutError reports a tool that overran its declared timeout. It matches
// both ErrToolTimeout and deadline.ErrDeadlineExceeded.
type TimeoutError struct {
	Tool  string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("tool %s timed out after %s", e.Tool, e.After)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrToolTimeout || target == deadline.ErrDeadlineExceeded
}

// ToolFactory is a function that creates a new tool instance
type ToolFactory func() tools.Tool

// Registry manages tool registration and dispatch
type Registry struct {
	mu        sync.RWMutex
	tools     map[string]ToolFactory
	generator *schema.Generator
	validator *validator.Validator
	logger    zerolog.Logger
}

// Option configures a Registry
type Option func(*Registry)

// WithLogger sets the dispatch logger
func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// New creates a new tool registry
func New(opts ...Option) *Registry {
	r := &Registry{
		tools:     make(map[string]ToolFactory),
		generator: schema.NewGenerator(),
		validator: validator.New(),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register registers a tool factory with the given name
func (r *Registry) Register(name string, factory ToolFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool '%s' is already registered", name)
	}
	r.tools[name] = factory
	return nil
}

// Has reports whether name is registered
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Get retrieves a tool by name
func (r *Registry) Get(name string) (tools.Tool, error) {
	r.mu.RLock()
	factory, exists := r.tools[name]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return factory(), nil
}

// List returns the registered tool names in sorted order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Spec returns the function spec for a tool
func (r *Registry) Spec(name string) (map[string]interface{}, error) {
	tool, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return r.generator.FunctionSpec(tool.Name(), tool.Description(), tool.Parameters())
}

// Specs returns the function specs of every registered tool, sorted by name
func (r *Registry) Specs() []map[string]interface{} {
	return r.SpecsFor(r.List()...)
}

// SpecsFor returns the specs of the named tools, skipping unknown names
func (r *Registry) SpecsFor(names ...string) []map[string]interface{} {
	specs := make([]map[string]interface{}, 0, len(names))
	for _, name := range names {
		spec, err := r.Spec(name)
		if err != nil {
			continue
		}
		specs = append(specs, spec)
	}
	return specs
}

// Dispatch runs the named tool under its declared timeout.
//
// An unknown name fails with ErrToolNotFound before anything runs. Bad
// arguments, handler errors and handler panics come back as an error
// Result with a nil error. Only a timeout is returned as an error
// (*TimeoutError), leaving its severity to the caller, along with the
// caller's own context errors.
func (r *Registry) Dispatch(ctx context.Context, name string, params json.RawMessage) (tools.Result, error) {
	tool, err := r.Get(name)
	if err != nil {
		return tools.Result{}, err
	}

	_, normalized := llm.NormalizeToolArguments(params)

	args := tool.Parameters()
	if args != nil {
		if err := json.Unmarshal(normalized, args); err != nil {
			return tools.Failf(tools.CodeInvalidParams, "failed to parse parameters", err), nil
		}
		if err := r.validator.Validate(args); err != nil {
			return tools.Failf(tools.CodeValidationFailed, "parameter validation failed", err), nil
		}
	}

	log := r.logger.With().Str("tool", name).Logger()
	start := time.Now()
	timeout := tool.Timeout()

	result, err := deadline.Run(ctx, timeout, func(ctx context.Context) (tools.Result, error) {
		return tool.Execute(ctx, normalized), nil
	})
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, deadline.ErrDeadlineExceeded) {
			log.Warn().Dur("timeout", timeout).Dur("elapsed", elapsed).Msg("tool timed out")
			return tools.Result{}, &TimeoutError{Tool: name, After: timeout}
		}
		var pe *deadline.PanicError
		if errors.As(err, &pe) {
			log.Error().Interface("panic", pe.Value).Msg("tool panicked")
			return tools.Failf(tools.CodeExecutionFailed, fmt.Sprintf("%s failed", name), err), nil
		}
		// The caller's context ended; nothing to fold.
		return tools.Result{}, err
	}

	if result.IsErr() {
		log.Debug().Str("code", result.Err.Code).Dur("elapsed", elapsed).Msg("tool returned error")
	} else {
		log.Debug().Dur("elapsed", elapsed).Msg("tool completed")
	}
	return result, nil
}
