// Package websocket carries the same three message kinds as the other
// bindings, one JSON-RPC frame per websocket text message.
package websocket

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/toolwire-protocol/go-toolwire/src/server"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// Handler upgrades each request to a websocket session and serves frames
// until the peer disconnects. One request is handled at a time per session.
func Handler(srv *server.Server, logger func(format string, args ...interface{})) http.Handler {
	if logger == nil {
		logger = func(string, ...interface{}) {}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger("upgrade failed for %s: %v", r.RemoteAddr, err)
			return
		}
		defer conn.Close()

		sessionID := uuid.NewString()
		logger("session %s opened from %s", sessionID, r.RemoteAddr)

		for {
			kind, frame, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger("session %s read failed: %v", sessionID, err)
				}
				break
			}
			if kind != websocket.TextMessage {
				continue
			}
			resp := srv.HandleFrame(r.Context(), frame)
			if err := conn.WriteMessage(websocket.TextMessage, resp); err != nil {
				logger("session %s write failed: %v", sessionID, err)
				break
			}
		}
		logger("session %s closed", sessionID)
	})
}
