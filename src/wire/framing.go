package wire

import (
	"bufio"
	"bytes"
	"io"
	"sync"

	"github.com/toolwire-protocol/go-toolwire/src/json"
)

// maxFrameSize bounds a single NDJSON frame. Large tool payloads fit well
// under this; anything bigger is a framing violation.
const maxFrameSize = 16 * 1024 * 1024

// FrameReader reads newline-delimited frames, yielding exactly one logical
// message per Read call. Blank lines are skipped.
type FrameReader struct {
	scanner *bufio.Scanner
}

// NewFrameReader wraps r in a frame reader.
func NewFrameReader(r io.Reader) *FrameReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxFrameSize)
	return &FrameReader{scanner: scanner}
}

// Read returns the next non-empty frame, or io.EOF when the stream ends.
func (fr *FrameReader) Read() ([]byte, error) {
	for fr.scanner.Scan() {
		line := bytes.TrimSpace(fr.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		frame := make([]byte, len(line))
		copy(frame, line)
		return frame, nil
	}
	if err := fr.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// FrameWriter writes one frame per line. Writes are serialized so concurrent
// responders cannot interleave partial frames.
type FrameWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewFrameWriter wraps w in a frame writer.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

// Write marshals v and emits it followed by a newline.
func (fw *FrameWriter) Write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return fw.WriteRaw(data)
}

// WriteRaw emits an already-marshaled frame followed by a newline.
func (fw *FrameWriter) WriteRaw(data []byte) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if _, err := fw.w.Write(data); err != nil {
		return err
	}
	_, err := fw.w.Write([]byte{'\n'})
	return err
}
