package stdio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/toolwire-protocol/go-toolwire/src/json"
	"github.com/toolwire-protocol/go-toolwire/src/wire"
)

// Transport spawns a tool server as a child process and exchanges frames
// over its stdin/stdout. The child's stderr is drained to the logger so
// diagnostics never mix with protocol data.
type Transport struct {
	command []string
	env     map[string]string
	dir     string
	logger  func(format string, args ...interface{})

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	writer *wire.FrameWriter
	frames chan []byte
	closed bool
}

// TransportOption mutates a Transport during construction.
type TransportOption func(*Transport)

// WithEnv adds environment variables for the child on top of the parent's
// environment.
func WithEnv(env map[string]string) TransportOption {
	return func(t *Transport) { t.env = env }
}

// WithDir sets the child's working directory.
func WithDir(dir string) TransportOption {
	return func(t *Transport) { t.dir = dir }
}

// WithLogger sets the diagnostic logger. The child's stderr is copied to it
// line by line.
func WithLogger(logger func(format string, args ...interface{})) TransportOption {
	return func(t *Transport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTransport builds a subprocess transport for the given command line.
func NewTransport(command []string, opts ...TransportOption) *Transport {
	t := &Transport{
		command: command,
		logger:  func(string, ...interface{}) {},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Open starts the child process and begins pumping its stdout frames.
func (t *Transport) Open(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cmd != nil {
		return errors.New("transport already open")
	}
	if len(t.command) == 0 {
		return errors.New("no server command configured")
	}

	cmd := exec.CommandContext(ctx, t.command[0], t.command[1:]...)
	cmd.Env = os.Environ()
	for k, v := range t.env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	if t.dir != "" {
		cmd.Dir = t.dir
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdin.Close()
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		return fmt.Errorf("failed to start server process: %w", err)
	}
	t.logger("started server process %q (pid %d)", t.command[0], cmd.Process.Pid)

	t.cmd = cmd
	t.stdin = stdin
	t.writer = wire.NewFrameWriter(stdin)
	t.frames = make(chan []byte, 4)

	go t.pumpFrames(stdout)
	go t.pumpStderr(stderr)
	return nil
}

// pumpFrames forwards child stdout frames until the stream ends.
func (t *Transport) pumpFrames(stdout io.Reader) {
	defer close(t.frames)
	reader := wire.NewFrameReader(stdout)
	for {
		frame, err := reader.Read()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				t.logger("frame stream ended: %v", err)
			}
			return
		}
		t.frames <- frame
	}
}

// pumpStderr copies child diagnostics to the logger.
func (t *Transport) pumpStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		t.logger("server: %s", scanner.Text())
	}
}

// RoundTrip sends one request and waits for the response bearing its id.
// Frames with other ids (stale responses from an aborted call) are skipped.
func (t *Transport) RoundTrip(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	t.mu.Lock()
	if t.cmd == nil || t.closed {
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
				return nil, errors.New("server process closed the stream")
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

// Close terminates the child. Closing its stdin asks it to exit; the process
// is then killed and reaped so nothing leaks. Safe to call repeatedly.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.cmd == nil {
		t.closed = true
		return nil
	}
	t.closed = true

	if t.stdin != nil {
		t.stdin.Close()
	}
	if t.cmd.Process != nil {
		t.cmd.Process.Kill()
	}
	t.cmd.Wait()
	t.logger("server process terminated")
	return nil
}
