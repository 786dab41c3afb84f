package session

import "fmt"

// ConnectionError wraps a transport-open failure: refused connection,
// failed process spawn. The session is Closed when it is returned.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection failed: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ProtocolError wraps a protocol-level failure: malformed frames, a dropped
// connection mid-call, or a server-side rejection (unknown tool, invalid
// arguments). It is distinct from a domain failure, which arrives as a
// normal Result with IsError set. Code carries the wire error code when the
// failure came from the server.
type ProtocolError struct {
	Code int
	Err  error
}

func (e *ProtocolError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("protocol error %d: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("protocol error: %v", e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// StateError reports an operation attempted outside its valid lifecycle
// position, e.g. call_tool before the session is ready.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s is not valid in session state %q", e.Op, e.State)
}
