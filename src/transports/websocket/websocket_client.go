package websocket

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/toolwire-protocol/go-toolwire/src/json"
	"github.com/toolwire-protocol/go-toolwire/src/wire"
)

// Transport is the client side of the websocket binding.
type Transport struct {
	url     string
	headers map[string]string
	logger  func(format string, args ...interface{})

	mu     sync.Mutex
	conn   *websocket.Conn
	frames chan []byte
	closed bool
}

// TransportOption mutates a Transport during construction.
type TransportOption func(*Transport)

// WithLogger sets the diagnostic logger.
func WithLogger(logger func(format string, args ...interface{})) TransportOption {
	return func(t *Transport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTransport builds a websocket transport for a ws:// or wss:// URL.
func NewTransport(url string, opts ...TransportOption) *Transport {
	t := &Transport{
		url:    url,
		logger: func(string, ...interface{}) {},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Open dials the server.
func (t *Transport) Open(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		return errors.New("transport already open")
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", t.url, err)
	}
	t.conn = conn
	t.frames = make(chan []byte, 4)
	go t.pumpFrames(conn)
	return nil
}

func (t *Transport) pumpFrames(conn *websocket.Conn) {
	defer close(t.frames)
	for {
		kind, frame, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				t.logger("frame stream ended: %v", err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		t.frames <- frame
	}
}

// RoundTrip sends one request frame and waits for the matching response.
func (t *Transport) RoundTrip(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	t.mu.Lock()
	if t.conn == nil || t.closed {
		t.mu.Unlock()
		return nil, errors.New("transport is not open")
	}
	conn, frames := t.conn, t.frames
	t.mu.Unlock()

	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case frame, ok := <-frames:
			if !ok {
				return nil, errors.New("server closed the connection")
			}
			var resp wire.Response
			if err := json.Unmarshal(frame, &resp); err != nil {
				return nil, fmt.Errorf("unparseable response frame: %w", err)
			}
			if resp.ID != req.ID {
				t.logger("skipping stale frame for request %d", resp.ID)
				continue
			}
			return &resp, nil
		}
	}
}

// Close sends a close frame and tears the connection down. Idempotent.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.conn == nil {
		return nil
	}
	_ = t.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return t.conn.Close()
}
