package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gertlabs/gert/tools/registry"
)

// ServerName is reported by initialize
const ServerName = "gert"

// Server answers JSON-RPC requests against a registry, exposing only the
// configured tool names.
type Server struct {
	reg     *registry.Registry
	exposed []string
	allowed map[string]bool
	version string
	logger  zerolog.Logger
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the request logger
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithVersion sets the serverInfo version
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// NewServer exposes the named tools of reg. Names that are not registered
// are dropped.
func NewServer(reg *registry.Registry, exposed []string, opts ...Option) *Server {
	s := &Server{
		reg:     reg,
		allowed: make(map[string]bool),
		version: "dev",
		logger:  zerolog.Nop(),
	}
	for _, name := range exposed {
		if reg.Has(name) && !s.allowed[name] {
			s.allowed[name] = true
			s.exposed = append(s.exposed, name)
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Exposed returns the exposed tool names in configured order
func (s *Server) Exposed() []string {
	return append([]string(nil), s.exposed...)
}

// HandleBytes decodes one raw request and handles it. It returns nil for
// notifications.
func (s *Server) HandleBytes(ctx context.Context, data []byte) *Response {
	data = bytes.TrimSpace(data)
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return errorResponse(nil, CodeParseError, "Parse error: "+err.Error())
	}
	return s.Handle(ctx, &req)
}

// Handle answers one request. It returns nil for notifications.
func (s *Server) Handle(ctx context.Context, req *Request) *Response {
	if req.JSONRPC != Version || req.Method == "" {
		return errorResponse(req.ID, CodeInvalidRequest, "Invalid Request")
	}

	log := s.logger.With().Str("method", req.Method).RawJSON("id", idOrNull(req.ID)).Logger()
	log.Debug().Msg("rpc request")

	result, rpcErr := s.dispatch(ctx, req)
	if len(req.ID) == 0 {
		return nil
	}
	if rpcErr != nil {
		log.Warn().Int("code", rpcErr.Code).Str("error", rpcErr.Message).Msg("rpc request failed")
		return &Response{JSONRPC: Version, ID: req.ID, Error: rpcErr}
	}
	return &Response{JSONRPC: Version, ID: req.ID, Result: result}
}

func (s *Server) dispatch(ctx context.Context, req *Request) (interface{}, *Error) {
	switch req.Method {
	case "initialize":
		return s.initialize(), nil
	case "notifications/initialized":
		return map[string]interface{}{}, nil
	case "tools/list":
		return s.listTools(), nil
	case "tools/call":
		return s.callTool(ctx, req.Params)
	default:
		return nil, &Error{Code: CodeMethodNotFound, Message: "Method not found: " + req.Method}
	}
}

func (s *Server) initialize() map[string]interface{} {
	return map[string]interface{}{
		"protocolVersion": ProtocolVersion,
		"capabilities": map[string]interface{}{
			"tools": map[string]interface{}{},
		},
		"serverInfo": map[string]interface{}{
			"name":    ServerName,
			"version": s.version,
		},
	}
}

func (s *Server) listTools() map[string]interface{} {
	infos := make([]ToolInfo, 0, len(s.exposed))
	for _, spec := range s.reg.SpecsFor(s.exposed...) {
		fn, _ := spec["function"].(map[string]interface{})
		name, _ := fn["name"].(string)
		desc, _ := fn["description"].(string)
		infos = append(infos, ToolInfo{Name: name, Description: desc, InputSchema: fn["parameters"]})
	}
	return map[string]interface{}{"tools": infos}
}

func (s *Server) callTool(ctx context.Context, raw json.RawMessage) (interface{}, *Error) {
	var params CallParams
	if len(raw) == 0 {
		return nil, &Error{Code: CodeInvalidParams, Message: "Invalid params: missing tool name"}
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "Invalid params: " + err.Error()}
	}
	if params.Name == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "Invalid params: missing tool name"}
	}
	if !s.allowed[params.Name] {
		return nil, &Error{Code: CodeMethodNotFound, Message: "Unknown tool: " + params.Name}
	}

	args := params.Arguments
	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage("{}")
	}

	result, err := s.reg.Dispatch(ctx, params.Name, args)
	if err != nil {
		var te *registry.TimeoutError
		switch {
		case errors.As(err, &te):
			return nil, &Error{Code: CodeToolTimeout, Message: te.Error()}
		case errors.Is(err, registry.ErrToolNotFound):
			return nil, &Error{Code: CodeMethodNotFound, Message: "Unknown tool: " + params.Name}
		default:
			return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("Tool execution error: %v", err)}
		}
	}

	return CallResult{
		Content: []Content{{Type: "text", Text: result.Text()}},
		IsError: result.IsErr(),
	}, nil
}

func idOrNull(id json.RawMessage) []byte {
	if len(id) == 0 {
		return nullID
	}
	return id
}
