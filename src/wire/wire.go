// Package wire defines the framing shared by every transport binding:
// newline-delimited JSON-RPC 2.0, one frame per line, requests correlated to
// responses by integer id.
package wire

import (
	"fmt"

	"github.com/toolwire-protocol/go-toolwire/src/json"
)

// Version is the JSON-RPC version carried on every frame.
const Version = "2.0"

// Methods understood by a tool server.
const (
	MethodInitialize = "initialize"
	MethodListTools  = "tools/list"
	MethodCallTool   = "tools/call"
)

// JSON-RPC error codes used by the protocol layer.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Request is one JSON-RPC request frame.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is one JSON-RPC response frame.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is the JSON-RPC error member of a response.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// NewRequest builds a request frame, marshaling params. A nil params value
// produces a frame without a params member.
func NewRequest(id int64, method string, params any) (*Request, error) {
	req := &Request{JSONRPC: Version, ID: id, Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal params for %s: %w", method, err)
		}
		req.Params = raw
	}
	return req, nil
}

// NewResult builds a successful response frame for the given request id.
func NewResult(id int64, result any) (*Response, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return &Response{JSONRPC: Version, ID: id, Result: raw}, nil
}

// NewError builds an error response frame for the given request id.
func NewError(id int64, code int, message string) *Response {
	return &Response{JSONRPC: Version, ID: id, Error: &Error{Code: code, Message: message}}
}

// Valid reports whether the frame carries the expected JSON-RPC version and
// a method name.
func (r *Request) Valid() bool {
	return r.JSONRPC == Version && r.Method != ""
}

// UnmarshalParams decodes the request params into out. Absent params decode
// as the zero value.
func (r *Request) UnmarshalParams(out any) error {
	if len(r.Params) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Params, out); err != nil {
		return fmt.Errorf("invalid params for %s: %w", r.Method, err)
	}
	return nil
}

// UnmarshalResult decodes the response result into out.
func (r *Response) UnmarshalResult(out any) error {
	if r.Error != nil {
		return r.Error
	}
	if err := json.Unmarshal(r.Result, out); err != nil {
		return fmt.Errorf("invalid result payload: %w", err)
	}
	return nil
}
