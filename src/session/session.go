// Package session implements the client-side connection lifecycle:
// Disconnected, Connecting, Initialized, Ready, Closed. One request is in
// flight at a time; responses arrive in request order.
package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/toolwire-protocol/go-toolwire/src/tools"
	"github.com/toolwire-protocol/go-toolwire/src/transports"
	"github.com/toolwire-protocol/go-toolwire/src/wire"
)

// State is the session lifecycle position.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateInitialized
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateInitialized:
		return "initialized"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Session drives one transport binding through the protocol. Methods are
// safe for concurrent use but serialize on the internal lock: the protocol
// keeps a single request in flight per session.
type Session struct {
	transport  transports.ClientTransport
	clientInfo wire.Implementation
	logger     func(format string, args ...interface{})

	mu         sync.Mutex
	state      State
	serverInfo wire.Implementation
	nextID     atomic.Int64
}

// Option mutates a Session during construction.
type Option func(*Session)

// WithClientInfo sets the implementation identity sent in the handshake.
func WithClientInfo(name, version string) Option {
	return func(s *Session) {
		s.clientInfo = wire.Implementation{Name: name, Version: version}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger func(format string, args ...interface{})) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New builds a session over an unopened transport.
func New(transport transports.ClientTransport, opts ...Option) *Session {
	s := &Session{
		transport:  transport,
		clientInfo: wire.Implementation{Name: "go-toolwire", Version: "1.0.0"},
		logger:     func(string, ...interface{}) {},
		state:      StateDisconnected,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open is the scoped-acquisition helper: connect and initialize in one step.
// The caller owns the session and must defer Close.
func Open(ctx context.Context, transport transports.ClientTransport, opts ...Option) (*Session, error) {
	s := New(transport, opts...)
	if err := s.Connect(ctx); err != nil {
		return nil, err
	}
	if err := s.Initialize(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// State reports the current lifecycle position.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ServerInfo returns the implementation identity the server sent at
// initialize. Zero before Initialize succeeds.
func (s *Session) ServerInfo() wire.Implementation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serverInfo
}

// Connect opens the transport. Failures surface as *ConnectionError and
// leave the session Closed.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateDisconnected {
		return &StateError{Op: "connect", State: s.state}
	}
	s.state = StateConnecting

	if err := s.transport.Open(ctx); err != nil {
		s.closeLocked()
		return &ConnectionError{Err: err}
	}
	return nil
}

// Initialize performs the handshake and moves the session to Initialized.
// A malformed server response is a *ProtocolError.
func (s *Session) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnecting {
		return &StateError{Op: "initialize", State: s.state}
	}

	resp, err := s.roundTripLocked(ctx, wire.MethodInitialize, wire.InitializeParams{ClientInfo: s.clientInfo})
	if err != nil {
		return err
	}
	var result wire.InitializeResult
	if err := resp.UnmarshalResult(&result); err != nil {
		s.closeLocked()
		return &ProtocolError{Err: fmt.Errorf("malformed initialize response: %w", err)}
	}
	if result.ServerInfo.Name == "" {
		s.closeLocked()
		return &ProtocolError{Err: fmt.Errorf("initialize response is missing server info")}
	}

	s.serverInfo = result.ServerInfo
	s.state = StateInitialized
	s.logger("initialized against %s %s", result.ServerInfo.Name, result.ServerInfo.Version)
	return nil
}

// ListTools returns the server's tool descriptors in registration order.
// Valid from Initialized on; the first successful call moves the session to
// Ready. The set is fixed for the life of the session, so repeated calls
// observe the same sequence.
func (s *Session) ListTools(ctx context.Context) ([]tools.Tool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInitialized && s.state != StateReady {
		return nil, &StateError{Op: "list_tools", State: s.state}
	}

	resp, err := s.roundTripLocked(ctx, wire.MethodListTools, nil)
	if err != nil {
		return nil, err
	}
	var result wire.ListToolsResult
	if err := resp.UnmarshalResult(&result); err != nil {
		s.closeLocked()
		return nil, &ProtocolError{Err: fmt.Errorf("malformed tools/list response: %w", err)}
	}

	s.state = StateReady
	return result.Tools, nil
}

// CallTool invokes a named tool. Valid only in Ready. A returned Result may
// carry IsError for domain failures; transport and protocol failures come
// back as errors and close the session.
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) (*tools.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return nil, &StateError{Op: "call_tool", State: s.state}
	}

	resp, err := s.roundTripLocked(ctx, wire.MethodCallTool, wire.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		// Protocol-level rejection: unknown tool, invalid arguments. The
		// session stays usable.
		return nil, &ProtocolError{Code: resp.Error.Code, Err: resp.Error}
	}
	var result tools.Result
	if err := resp.UnmarshalResult(&result); err != nil {
		s.closeLocked()
		return nil, &ProtocolError{Err: fmt.Errorf("malformed tools/call response: %w", err)}
	}
	return &result, nil
}

// Close releases the transport. Idempotent; a second call is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *Session) closeLocked() error {
	if s.state == StateClosed {
		return nil
	}
	s.state = StateClosed
	return s.transport.Close()
}

// roundTripLocked sends one request and returns the raw response, except for
// initialize/list failures: a dead or cancelled transport closes the session
// so no zombie Ready state survives an aborted call.
func (s *Session) roundTripLocked(ctx context.Context, method string, params any) (*wire.Response, error) {
	req, err := wire.NewRequest(s.nextID.Add(1), method, params)
	if err != nil {
		return nil, &ProtocolError{Err: err}
	}
	resp, err := s.transport.RoundTrip(ctx, req)
	if err != nil {
		s.closeLocked()
		return nil, &ProtocolError{Err: fmt.Errorf("%s failed: %w", method, err)}
	}
	if resp.Error != nil && method != wire.MethodCallTool {
		s.closeLocked()
		return nil, &ProtocolError{Code: resp.Error.Code, Err: resp.Error}
	}
	return resp, nil
}
