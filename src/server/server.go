// Package server ties a registry and dispatcher to the wire protocol,
// independent of any transport binding. Bindings feed it frames and carry
// back whatever it returns.
package server

import (
	"context"
	"errors"

	"github.com/toolwire-protocol/go-toolwire/src/dispatch"
	"github.com/toolwire-protocol/go-toolwire/src/json"
	"github.com/toolwire-protocol/go-toolwire/src/registry"
	"github.com/toolwire-protocol/go-toolwire/src/schema"
	"github.com/toolwire-protocol/go-toolwire/src/tools"
	"github.com/toolwire-protocol/go-toolwire/src/wire"
)

// Option mutates a Server during construction.
type Option func(*Server)

// Server exposes a fixed tool set over the wire protocol. The registry is
// sealed by the first request, so concurrent sessions share it without
// locking concerns.
type Server struct {
	name    string
	version string

	registry   *registry.Registry
	dispatcher *dispatch.Dispatcher
	logger     func(format string, args ...interface{})
}

// New creates a server with an empty registry.
func New(name string, opts ...Option) *Server {
	s := &Server{
		name:    name,
		version: "1.0.0",
		logger:  func(string, ...interface{}) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = registry.New()
	}
	s.dispatcher = dispatch.New(s.registry, s.logger)
	return s
}

// WithVersion overrides the implementation version advertised at initialize.
func WithVersion(version string) Option {
	return func(s *Server) {
		if version != "" {
			s.version = version
		}
	}
}

// WithLogger sets the diagnostic logger. Diagnostics never touch the
// protocol channel; bindings route them to a side channel such as stderr.
func WithLogger(logger func(format string, args ...interface{})) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRegistry installs a pre-populated registry.
func WithRegistry(reg *registry.Registry) Option {
	return func(s *Server) {
		if reg != nil {
			s.registry = reg
		}
	}
}

// Name returns the implementation name advertised at initialize.
func (s *Server) Name() string { return s.name }

// Register adds a tool to the server's registry.
func (s *Server) Register(t tools.Tool) error {
	return s.registry.Register(t)
}

// MustRegister adds a tool or panics on a duplicate name.
func (s *Server) MustRegister(t tools.Tool) {
	s.registry.MustRegister(t)
}

// Registry exposes the underlying registry, mainly for tests and bindings.
func (s *Server) Registry() *registry.Registry { return s.registry }

// HandleFrame decodes one raw frame and produces the response frame bytes.
func (s *Server) HandleFrame(ctx context.Context, frame []byte) []byte {
	var req wire.Request
	if err := json.Unmarshal(frame, &req); err != nil {
		s.logger("unparseable frame: %v", err)
		resp := wire.NewError(0, wire.CodeParseError, "parse error: "+err.Error())
		return mustMarshal(resp)
	}
	return mustMarshal(s.HandleRequest(ctx, &req))
}

// HandleRequest serves one decoded request. It always returns exactly one
// response for the request's id.
func (s *Server) HandleRequest(ctx context.Context, req *wire.Request) *wire.Response {
	if !req.Valid() {
		return wire.NewError(req.ID, wire.CodeInvalidRequest, "invalid request frame")
	}

	switch req.Method {
	case wire.MethodInitialize:
		return s.handleInitialize(req)
	case wire.MethodListTools:
		return s.handleListTools(req)
	case wire.MethodCallTool:
		return s.handleCallTool(ctx, req)
	default:
		return wire.NewError(req.ID, wire.CodeMethodNotFound, "unknown method: "+req.Method)
	}
}

func (s *Server) handleInitialize(req *wire.Request) *wire.Response {
	var params wire.InitializeParams
	if err := req.UnmarshalParams(&params); err != nil {
		return wire.NewError(req.ID, wire.CodeInvalidParams, err.Error())
	}
	s.logger("initialize from %s %s", params.ClientInfo.Name, params.ClientInfo.Version)

	resp, err := wire.NewResult(req.ID, wire.InitializeResult{
		ServerInfo: wire.Implementation{Name: s.name, Version: s.version},
	})
	if err != nil {
		return wire.NewError(req.ID, wire.CodeInternalError, err.Error())
	}
	return resp
}

func (s *Server) handleListTools(req *wire.Request) *wire.Response {
	resp, err := wire.NewResult(req.ID, wire.ListToolsResult{Tools: s.registry.Tools()})
	if err != nil {
		return wire.NewError(req.ID, wire.CodeInternalError, err.Error())
	}
	return resp
}

func (s *Server) handleCallTool(ctx context.Context, req *wire.Request) *wire.Response {
	var params wire.CallToolParams
	if err := req.UnmarshalParams(&params); err != nil {
		return wire.NewError(req.ID, wire.CodeInvalidParams, err.Error())
	}
	if params.Name == "" {
		return wire.NewError(req.ID, wire.CodeInvalidParams, "tool name is required")
	}

	result, err := s.dispatcher.Execute(ctx, tools.Call{Name: params.Name, Arguments: params.Arguments})
	if err != nil {
		var unknown *registry.UnknownToolError
		if errors.As(err, &unknown) {
			return wire.NewError(req.ID, wire.CodeMethodNotFound, err.Error())
		}
		var invalid *schema.ValidationError
		if errors.As(err, &invalid) {
			return wire.NewError(req.ID, wire.CodeInvalidParams, err.Error())
		}
		return wire.NewError(req.ID, wire.CodeInternalError, err.Error())
	}

	resp, err := wire.NewResult(req.ID, result)
	if err != nil {
		return wire.NewError(req.ID, wire.CodeInternalError, err.Error())
	}
	return resp
}

// mustMarshal encodes a response frame. Response payloads are built from
// marshalable values only, so a failure here is a programming error.
func mustMarshal(resp *wire.Response) []byte {
	data, err := json.Marshal(resp)
	if err != nil {
		panic(err)
	}
	return data
}
