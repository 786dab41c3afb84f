package streamhttp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/toolwire-protocol/go-toolwire/src/json"
	"github.com/toolwire-protocol/go-toolwire/src/wire"
)

// Transport holds one streaming exchange open to a server endpoint and
// multiplexes request/response pairs over it.
type Transport struct {
	url     string
	headers map[string]string
	client  *http.Client
	logger  func(format string, args ...interface{})

	mu     sync.Mutex
	cancel context.CancelFunc
	body   *io.PipeWriter
	writer *wire.FrameWriter
	resp   *http.Response
	frames chan []byte
	closed bool
}

// TransportOption mutates a Transport during construction.
type TransportOption func(*Transport)

// WithHeaders adds headers to the session request, e.g. authorization.
func WithHeaders(headers map[string]string) TransportOption {
	return func(t *Transport) { t.headers = headers }
}

// WithHTTPClient overrides the HTTP client. The default has no timeout;
// the exchange lives as long as the session.
func WithHTTPClient(client *http.Client) TransportOption {
	return func(t *Transport) {
		if client != nil {
			t.client = client
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger func(format string, args ...interface{})) TransportOption {
	return func(t *Transport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTransport builds a streaming HTTP transport for the endpoint URL.
func NewTransport(url string, opts ...TransportOption) *Transport {
	t := &Transport{
		url:    url,
		client: &http.Client{},
		logger: func(string, ...interface{}) {},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Open starts the exchange. The ctx bounds the dial; the exchange itself
// lives until Close.
func (t *Transport) Open(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.resp != nil {
		return errors.New("transport already open")
	}

	sessionCtx, cancel := context.WithCancel(context.Background())
	pr, pw := io.Pipe()

	req, err := http.NewRequestWithContext(sessionCtx, http.MethodPost, t.url, pr)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to build session request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", contentType)
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}

	// Abort the dial if the caller's context dies first.
	dialDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-dialDone:
		}
	}()

	resp, err := t.client.Do(req)
	close(dialDone)
	if err != nil {
		cancel()
		pw.Close()
		return fmt.Errorf("failed to open session: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		cancel()
		pw.Close()
		return fmt.Errorf("server rejected session: %s: %s", resp.Status, string(body))
	}
	if id := resp.Header.Get("Toolwire-Session-Id"); id != "" {
		t.logger("session %s open to %s", id, t.url)
	} else {
		t.logger("session open to %s", t.url)
	}

	t.cancel = cancel
	t.body = pw
	t.writer = wire.NewFrameWriter(pw)
	t.resp = resp
	t.frames = make(chan []byte, 4)

	go t.pumpFrames(resp.Body)
	return nil
}

func (t *Transport) pumpFrames(body io.Reader) {
	defer close(t.frames)
	reader := wire.NewFrameReader(body)
	for {
		frame, err := reader.Read()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				t.logger("response stream ended: %v", err)
			}
			return
		}
		t.frames <- frame
	}
}

// RoundTrip sends one request frame and waits for the matching response.
func (t *Transport) RoundTrip(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	t.mu.Lock()
	if t.resp == nil || t.closed {
		t.mu.Unlock()
		return nil, errors.New("transport is not open")
	}
	writer, frames := t.writer, t.frames
	t.mu.Unlock()

	if err := writer.Write(req); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case frame, ok := <-frames:
			if !ok {
				return nil, errors.New("server closed the exchange")
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

// Close ends the exchange. Safe to call repeatedly and before Open.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.body != nil {
		t.body.Close()
	}
	if t.resp != nil {
		t.resp.Body.Close()
	}
	if t.cancel != nil {
		t.cancel()
	}
	return nil
}
