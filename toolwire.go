// Package toolwire re-exports the pieces most callers need: building a tool
// server, attaching a client session, and the tool descriptor types. The
// full surface lives in the src packages.
package toolwire

import (
	"context"

	"github.com/toolwire-protocol/go-toolwire/src/registry"
	"github.com/toolwire-protocol/go-toolwire/src/server"
	"github.com/toolwire-protocol/go-toolwire/src/session"
	"github.com/toolwire-protocol/go-toolwire/src/tools"
	"github.com/toolwire-protocol/go-toolwire/src/transports"
)

// Tool and friends are the descriptor types shared by both sides.
type (
	Tool        = tools.Tool
	Handler     = tools.Handler
	InputSchema = tools.InputSchema
	Result      = tools.Result

	Registry = registry.Registry
	Server   = server.Server
	Session  = session.Session

	ClientTransport = transports.ClientTransport
)

// NewServer creates a tool server with an empty registry.
func NewServer(name string, opts ...server.Option) *Server {
	return server.New(name, opts...)
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return registry.New()
}

// OpenSession connects and initializes a session over an unopened
// transport. The caller must defer Close.
func OpenSession(ctx context.Context, transport ClientTransport, opts ...session.Option) (*Session, error) {
	return session.Open(ctx, transport, opts...)
}
