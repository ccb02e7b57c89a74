package tools

import (
	"context"
	"encoding/json"
	"time"
)

// Tool defines the interface that all tools must implement
type Tool interface {
	// Name returns the unique name of the tool
	Name() string

	// Description returns a brief description of what the tool does
	Description() string

	// Parameters returns a pointer to the struct that describes the tool's
	// arguments. It is used for schema generation and validation.
	Parameters() interface{}

	// Timeout is the wall-clock budget for one Execute call
	Timeout() time.Duration

	// Execute runs the tool. Failures are reported through the Result,
	// never by panicking.
	Execute(ctx context.Context, params json.RawMessage) Result
}

// Error codes carried by ToolError
const (
	CodeInvalidParams    = "INVALID_PARAMS"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeExecutionFailed  = "EXECUTION_FAILED"
	CodeNotConfigured    = "NOT_CONFIGURED"
	CodeAccessDenied     = "ACCESS_DENIED"
	CodeNotFound         = "NOT_FOUND"
	CodeUpstream         = "UPSTREAM_ERROR"
	CodeTimeout          = "TIMEOUT"
)

// ToolError represents a structured error from a tool
type ToolError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// NewToolError creates a new tool error
func NewToolError(code, message string) *ToolError {
	return &ToolError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WithDetail adds a detail to the error
func (e *ToolError) WithDetail(key string, value interface{}) *ToolError {
	e.Details[key] = value
	return e
}

// Result is the tagged outcome of a tool call: either a payload or an error.
type Result struct {
	Payload interface{}
	Err     *ToolError
}

// Ok wraps a successful payload
func Ok(payload interface{}) Result {
	return Result{Payload: payload}
}

// Fail builds an error result
func Fail(code, message string) Result {
	return Result{Err: NewToolError(code, message)}
}

// Failf builds an error result from err, keeping the cause in the details
func Failf(code, message string, err error) Result {
	te := NewToolError(code, message)
	if err != nil {
		te.Message = message + ": " + err.Error()
		te.WithDetail("error", err.Error())
	}
	return Result{Err: te}
}

// IsErr reports whether the result carries an error
func (r Result) IsErr() bool {
	return r.Err != nil
}

// Text serializes the result for a model prompt or an RPC response.
// Success is the JSON of the payload; a bare string payload is wrapped as
// {"result": ...}. Failure is {"error": <message>}.
func (r Result) Text() string {
	if r.Err != nil {
		return mustJSON(map[string]string{"error": r.Err.Message})
	}
	switch p := r.Payload.(type) {
	case nil:
		return "{}"
	case string:
		return mustJSON(map[string]string{"result": p})
	case json.RawMessage:
		return string(p)
	default:
		return mustJSON(p)
	}
}

func mustJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		data, _ = json.Marshal(map[string]string{"error": "failed to encode result: " + err.Error()})
	}
	return string(data)
}
