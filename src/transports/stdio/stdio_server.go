// Package stdio is the subprocess byte-stream binding: protocol frames on
// stdin/stdout, diagnostics on stderr, process lifetime owned by the client.
package stdio

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/toolwire-protocol/go-toolwire/src/server"
	"github.com/toolwire-protocol/go-toolwire/src/wire"
)

// ServeStream runs the server loop over an arbitrary frame stream, one
// request at a time, until the reader is exhausted or the context is done.
// Protocol data goes to w and nothing else; the server's logger is the only
// diagnostic channel.
func ServeStream(ctx context.Context, srv *server.Server, r io.Reader, w io.Writer) error {
	reader := wire.NewFrameReader(r)
	writer := wire.NewFrameWriter(w)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := writer.WriteRaw(srv.HandleFrame(ctx, frame)); err != nil {
			return err
		}
	}
}

// Serve runs the server loop on the process's standard streams. The client
// closing our stdin ends the loop cleanly.
func Serve(ctx context.Context, srv *server.Server) error {
	return ServeStream(ctx, srv, os.Stdin, os.Stdout)
}
