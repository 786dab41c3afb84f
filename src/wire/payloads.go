package wire

import (
	"github.com/toolwire-protocol/go-toolwire/src/tools"
)

// Implementation identifies one side of the handshake.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeParams is the payload of an initialize request.
type InitializeParams struct {
	ClientInfo Implementation `json:"clientInfo"`
}

// InitializeResult is the payload of an initialize response.
type InitializeResult struct {
	ServerInfo Implementation `json:"serverInfo"`
	SessionID  string         `json:"sessionId,omitempty"`
}

// ListToolsResult is the payload of a tools/list response. Order is
// registration order and is part of the discovery contract.
type ListToolsResult struct {
	Tools []tools.Tool `json:"tools"`
}

// CallToolParams is the payload of a tools/call request.
type CallToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}
