// Package transports defines the client-side contract every binding
// implements. A transport moves whole frames; correlation and protocol state
// live in the session above it.
package transports

import (
	"context"

	"github.com/toolwire-protocol/go-toolwire/src/wire"
)

// ClientTransport is an ordered, reliable request/response channel to a tool
// server. Implementations deliver exactly one response per request and keep
// at most one round trip in flight.
type ClientTransport interface {
	// Open establishes the channel: spawning the subprocess, opening the
	// HTTP exchange, or dialing the socket.
	Open(ctx context.Context) error

	// RoundTrip sends one request frame and blocks until the response with
	// the matching id arrives, the context is done, or the channel dies.
	RoundTrip(ctx context.Context, req *wire.Request) (*wire.Response, error)

	// Close releases the channel. It must be safe to call more than once
	// and on a transport that never opened.
	Close() error
}
