// Package agent is the client façade: it attaches to every configured tool
// server, exposes their tools under namespaced names, and routes calls to
// the owning session.
package agent

import (
	"context"
	"fmt"
	"sort"

	"github.com/toolwire-protocol/go-toolwire/src/session"
	"github.com/toolwire-protocol/go-toolwire/src/tools"
	"github.com/toolwire-protocol/go-toolwire/src/transports"
	"github.com/toolwire-protocol/go-toolwire/src/transports/stdio"
	"github.com/toolwire-protocol/go-toolwire/src/transports/streamhttp"
	"github.com/toolwire-protocol/go-toolwire/src/transports/websocket"
)

// Agent holds one ready session per configured server. Tool names are
// namespaced as "server.tool" so two servers can expose the same tool name
// without colliding.
type Agent struct {
	logger   func(format string, args ...interface{})
	sessions map[string]*session.Session
	catalog  []tools.Tool
}

// Option mutates an Agent during construction.
type Option func(*Agent)

// WithLogger sets the diagnostic logger.
func WithLogger(logger func(format string, args ...interface{})) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// Connect attaches to every enabled server in the configuration, drives
// each session to Ready, and collects the combined tool catalog. A server
// that fails to come up aborts the whole connect; sessions opened so far
// are closed.
func Connect(ctx context.Context, cfg *Config, opts ...Option) (*Agent, error) {
	a := &Agent{
		logger:   func(string, ...interface{}) {},
		sessions: make(map[string]*session.Session),
	}
	for _, opt := range opts {
		opt(a)
	}

	// Deterministic attach order regardless of map iteration.
	names := make([]string, 0, len(cfg.Servers))
	for name := range cfg.Servers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		sc := cfg.Servers[name]
		if sc.Disabled {
			a.logger("server %s: disabled, skipping", name)
			continue
		}
		if err := a.attach(ctx, cfg, name, sc); err != nil {
			a.Close()
			return nil, fmt.Errorf("server %s: %w", name, err)
		}
	}
	return a, nil
}

func (a *Agent) attach(ctx context.Context, cfg *Config, name string, sc ServerConfig) error {
	resolved, err := cfg.resolveServer(sc)
	if err != nil {
		return err
	}
	transport, err := a.buildTransport(name, resolved)
	if err != nil {
		return err
	}

	sess, err := session.Open(ctx, transport, session.WithLogger(a.logger))
	if err != nil {
		return err
	}
	listed, err := sess.ListTools(ctx)
	if err != nil {
		sess.Close()
		return err
	}

	a.sessions[name] = sess
	for _, t := range listed {
		t.Name = name + "." + t.Name
		t.Handler = nil
		a.catalog = append(a.catalog, t)
	}
	a.logger("server %s: ready with %d tools", name, len(listed))
	return nil
}

func (a *Agent) buildTransport(name string, sc ServerConfig) (transports.ClientTransport, error) {
	prefixed := func(format string, args ...interface{}) {
		a.logger("["+name+"] "+format, args...)
	}
	switch sc.Transport {
	case TransportStdio:
		return stdio.NewTransport(sc.Command,
			stdio.WithEnv(sc.Env), stdio.WithLogger(prefixed)), nil
	case TransportStreamHTTP:
		return streamhttp.NewTransport(sc.URL,
			streamhttp.WithHeaders(sc.Headers), streamhttp.WithLogger(prefixed)), nil
	case TransportWebSocket:
		return websocket.NewTransport(sc.URL, websocket.WithLogger(prefixed)), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", sc.Transport)
	}
}

// Tools returns the combined catalog under namespaced names, ordered by
// server name and then by each server's registration order.
func (a *Agent) Tools() []tools.Tool {
	out := make([]tools.Tool, len(a.catalog))
	copy(out, a.catalog)
	return out
}

// Session returns the session attached to a named server, or nil.
func (a *Agent) Session(server string) *session.Session {
	return a.sessions[server]
}

// CallTool routes a namespaced call to the owning server's session.
func (a *Agent) CallTool(ctx context.Context, name string, args map[string]any) (*tools.Result, error) {
	server, tool, ok := splitToolName(name)
	if !ok {
		return nil, fmt.Errorf("tool name %q is not of the form server.tool", name)
	}
	sess, ok := a.sessions[server]
	if !ok {
		return nil, fmt.Errorf("no server named %q is attached", server)
	}
	return sess.CallTool(ctx, tool, args)
}

// Close shuts down every session. Safe to call more than once.
func (a *Agent) Close() error {
	var firstErr error
	for name, sess := range a.sessions {
		if err := sess.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close %s: %w", name, err)
		}
	}
	return firstErr
}
