// Package streamhttp is the HTTP streaming binding. A session is one POST
// exchange on the endpoint path: the request body is a stream of NDJSON
// request frames and the response body streams back one response frame per
// request, in order. The server is stateless across sessions.
package streamhttp

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/toolwire-protocol/go-toolwire/src/server"
	"github.com/toolwire-protocol/go-toolwire/src/wire"
)

// DefaultPath is the endpoint the binding mounts when none is configured.
const DefaultPath = "/mcp"

const contentType = "application/x-ndjson"

// Handler serves the streaming exchange for srv. Each accepted POST is an
// independent session; the registry behind srv is shared read-only.
func Handler(srv *server.Server, logger func(format string, args ...interface{})) http.Handler {
	if logger == nil {
		logger = func(string, ...interface{}) {}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		defer r.Body.Close()

		sessionID := uuid.NewString()
		logger("session %s opened from %s", sessionID, r.RemoteAddr)

		rc := http.NewResponseController(w)
		// Full duplex lets us stream responses while the client is still
		// writing requests on the same exchange. Not every wrapper supports
		// it; a plain one-request session still works without it.
		_ = rc.EnableFullDuplex()

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Toolwire-Session-Id", sessionID)
		w.WriteHeader(http.StatusOK)
		_ = rc.Flush()

		reader := wire.NewFrameReader(r.Body)
		writer := wire.NewFrameWriter(w)
		for {
			frame, err := reader.Read()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					logger("session %s read failed: %v", sessionID, err)
				}
				break
			}
			if err := writer.WriteRaw(srv.HandleFrame(r.Context(), frame)); err != nil {
				logger("session %s write failed: %v", sessionID, err)
				break
			}
			_ = rc.Flush()
		}
		logger("session %s closed", sessionID)
	})
}

// Mux mounts the binding at path on a fresh mux, alongside a health probe.
func Mux(srv *server.Server, path string, logger func(format string, args ...interface{})) *http.ServeMux {
	if path == "" {
		path = DefaultPath
	}
	mux := http.NewServeMux()
	mux.Handle(path, Handler(srv, logger))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Serve binds addr and serves sessions until the context is canceled, then
// shuts down gracefully.
func Serve(ctx context.Context, srv *server.Server, addr, path string, logger func(format string, args ...interface{})) error {
	if addr == "" {
		addr = ":8000"
	}

	httpServer := &http.Server{
		Addr:    addr,
		Handler: Mux(srv, path, logger),
	}

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		close(done)
	}()

	err := httpServer.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}
