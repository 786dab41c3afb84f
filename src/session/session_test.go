package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/toolwire-protocol/go-toolwire/src/json"
	"github.com/toolwire-protocol/go-toolwire/src/tools"
	"github.com/toolwire-protocol/go-toolwire/src/wire"
)

// fakeTransport scripts responses per method without any real I/O.
type fakeTransport struct {
	openErr   error
	respond   func(req *wire.Request) (*wire.Response, error)
	closed    int
	lastReq   *wire.Request
	roundErrs map[string]error
}

func (f *fakeTransport) Open(ctx context.Context) error { return f.openErr }

func (f *fakeTransport) RoundTrip(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	f.lastReq = req
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := f.roundErrs[req.Method]; ok {
		return nil, err
	}
	return f.respond(req)
}

func (f *fakeTransport) Close() error {
	f.closed++
	return nil
}

func wellBehaved() *fakeTransport {
	return &fakeTransport{respond: func(req *wire.Request) (*wire.Response, error) {
		switch req.Method {
		case wire.MethodInitialize:
			resp, _ := wire.NewResult(req.ID, wire.InitializeResult{
				ServerInfo: wire.Implementation{Name: "fake-server", Version: "1.0"},
			})
			return resp, nil
		case wire.MethodListTools:
			resp, _ := wire.NewResult(req.ID, wire.ListToolsResult{
				Tools: []tools.Tool{{Name: "echo", Description: "Echo."}},
			})
			return resp, nil
		case wire.MethodCallTool:
			resp, _ := wire.NewResult(req.ID, tools.TextResult("pong"))
			return resp, nil
		}
		return nil, fmt.Errorf("unexpected method %s", req.Method)
	}}
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	ft := wellBehaved()
	s := New(ft, WithClientInfo("test-client", "0.1"))

	if got := s.State(); got != StateDisconnected {
		t.Fatalf("new session state = %v", got)
	}
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if got := s.State(); got != StateConnecting {
		t.Fatalf("state after connect = %v", got)
	}
	if err := s.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if got := s.State(); got != StateInitialized {
		t.Fatalf("state after initialize = %v", got)
	}
	if info := s.ServerInfo(); info.Name != "fake-server" {
		t.Fatalf("server info = %+v", info)
	}

	listed, err := s.ListTools(ctx)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	if len(listed) != 1 || listed[0].Name != "echo" {
		t.Fatalf("unexpected tools: %+v", listed)
	}
	if got := s.State(); got != StateReady {
		t.Fatalf("state after list = %v", got)
	}

	res, err := s.CallTool(ctx, "echo", map[string]any{"message": "hi"})
	if err != nil {
		t.Fatalf("call tool: %v", err)
	}
	if res.Text() != "pong" {
		t.Fatalf("result = %q", res.Text())
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := s.State(); got != StateClosed {
		t.Fatalf("state after close = %v", got)
	}
}

func TestOperationsOutOfOrder(t *testing.T) {
	ctx := context.Background()
	s := New(wellBehaved())

	var serr *StateError
	if _, err := s.CallTool(ctx, "echo", nil); !errors.As(err, &serr) {
		t.Fatalf("call before ready: %v", err)
	}
	if _, err := s.ListTools(ctx); !errors.As(err, &serr) {
		t.Fatalf("list before initialize: %v", err)
	}
	if err := s.Initialize(ctx); !errors.As(err, &serr) {
		t.Fatalf("initialize before connect: %v", err)
	}
}

func TestCallToolRequiresReady(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, wellBehaved())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	// Initialized but not yet Ready: no tool list observed.
	var serr *StateError
	if _, err := s.CallTool(ctx, "echo", nil); !errors.As(err, &serr) {
		t.Fatalf("call before list: %v", err)
	}
	if s.State() != StateInitialized {
		t.Fatalf("rejected call changed state to %v", s.State())
	}
}

func TestConnectFailure(t *testing.T) {
	ft := wellBehaved()
	ft.openErr = fmt.Errorf("connection refused")
	s := New(ft)

	err := s.Connect(context.Background())
	var cerr *ConnectionError
	if !errors.As(err, &cerr) {
		t.Fatalf("want ConnectionError, got %v", err)
	}
	if s.State() != StateClosed {
		t.Fatalf("state after failed connect = %v", s.State())
	}
}

func TestTransportFailureClosesSession(t *testing.T) {
	ctx := context.Background()
	ft := wellBehaved()
	s, err := Open(ctx, ft)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.ListTools(ctx); err != nil {
		t.Fatalf("list: %v", err)
	}

	ft.roundErrs = map[string]error{wire.MethodCallTool: fmt.Errorf("pipe broke")}
	_, err = s.CallTool(ctx, "echo", nil)
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("want ProtocolError, got %v", err)
	}
	if s.State() != StateClosed {
		t.Fatalf("session must close on transport failure, state = %v", s.State())
	}
}

func TestCancelledCallClosesSession(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, wellBehaved())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.ListTools(ctx); err != nil {
		t.Fatalf("list: %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.CallTool(cancelled, "echo", nil)
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("want ProtocolError, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("cause must be the cancellation, got %v", err)
	}
	// No zombie Ready state survives an aborted call.
	if s.State() != StateClosed {
		t.Fatalf("state = %v", s.State())
	}
}

func TestServerRejectionKeepsSessionReady(t *testing.T) {
	ctx := context.Background()
	ft := wellBehaved()
	base := ft.respond
	ft.respond = func(req *wire.Request) (*wire.Response, error) {
		if req.Method == wire.MethodCallTool {
			return wire.NewError(req.ID, wire.CodeMethodNotFound, "unknown tool"), nil
		}
		return base(req)
	}

	s, err := Open(ctx, ft)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.ListTools(ctx); err != nil {
		t.Fatalf("list: %v", err)
	}

	_, err = s.CallTool(ctx, "ghost", nil)
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("want ProtocolError, got %v", err)
	}
	if perr.Code != wire.CodeMethodNotFound {
		t.Fatalf("code = %d", perr.Code)
	}
	if s.State() != StateReady {
		t.Fatalf("rejected call must keep the session usable, state = %v", s.State())
	}

	// Next call still works.
	ft.respond = base
	if _, err := s.CallTool(ctx, "echo", nil); err != nil {
		t.Fatalf("call after rejection: %v", err)
	}
}

func TestMalformedInitializeClosesSession(t *testing.T) {
	ft := wellBehaved()
	ft.respond = func(req *wire.Request) (*wire.Response, error) {
		resp, _ := wire.NewResult(req.ID, map[string]any{})
		return resp, nil
	}
	_, err := Open(context.Background(), ft)
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("want ProtocolError, got %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	ft := wellBehaved()
	s, err := Open(context.Background(), ft)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if ft.closed != 1 {
		t.Fatalf("transport closed %d times", ft.closed)
	}
}

func TestRequestIDsIncrease(t *testing.T) {
	ctx := context.Background()
	ft := wellBehaved()
	s, err := Open(ctx, ft)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	firstID := ft.lastReq.ID
	if _, err := s.ListTools(ctx); err != nil {
		t.Fatalf("list: %v", err)
	}
	if ft.lastReq.ID <= firstID {
		t.Fatalf("ids must increase: %d then %d", firstID, ft.lastReq.ID)
	}
}

func TestCallToolArgumentsOnWire(t *testing.T) {
	ctx := context.Background()
	ft := wellBehaved()
	s, err := Open(ctx, ft)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if _, err := s.ListTools(ctx); err != nil {
		t.Fatalf("list: %v", err)
	}
	if _, err := s.CallTool(ctx, "echo", map[string]any{"message": "hi"}); err != nil {
		t.Fatalf("call: %v", err)
	}

	var params wire.CallToolParams
	if err := json.Unmarshal(ft.lastReq.Params, &params); err != nil {
		t.Fatalf("decode params: %v", err)
	}
	if params.Name != "echo" || params.Arguments["message"] != "hi" {
		t.Fatalf("params on wire: %+v", params)
	}
}
