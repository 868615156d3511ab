package httprouter

import (
	"log/slog"
	"net/http"
	"time"

	"vidrelay/internal/consts"
	"vidrelay/internal/infrastructure/delivery/http/response"

	"github.com/gorilla/websocket"
)

const (
	// pongWait is how long a peer may stay silent before its connection is
	// reaped; pingInterval must be shorter so the peer gets a chance to
	// answer.
	pongWait     = 60 * time.Second
	pingInterval = 25 * time.Second
	// pingWriteWait bounds the control frame write itself.
	pingWriteWait = 10 * time.Second
)

// upgrader accepts any origin: the service fronts a local browser page and
// carries no credentials worth protecting cross-origin.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(_ *http.Request) bool { return true },
}

// Connect upgrades the request to the progress push channel. The client
// identifies itself with the clientId query parameter; a reconnect under
// the same id replaces the previous channel.
func (ro *Router) Connect(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With("handler", "Connect")
	ctx := r.Context()

	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		log.ErrorContext(ctx, consts.RespClientIDMissing)
		response.BadRequest(w, consts.RespClientIDMissing)

		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		log.ErrorContext(ctx, "push channel upgrade failed", slog.Any("error", err))

		return
	}

	ro.sessions.Register(clientID, conn)

	log.DebugContext(ctx, "push channel connected", slog.String("client_id", clientID))

	done := make(chan struct{})

	go ro.ping(conn, done)
	go ro.drain(clientID, conn, done)
}

// drain consumes inbound frames until the peer goes away. The client sends
// nothing meaningful; reading is how close and pong frames surface, and the
// read deadline reaps peers that stop answering pings.
func (ro *Router) drain(clientID string, conn *websocket.Conn, done chan struct{}) {
	defer func() {
		close(done)
		ro.sessions.Remove(clientID, conn)
		conn.Close()

		ro.log.Debug("push channel closed", slog.String("client_id", clientID))
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// ping keeps the connection alive and detects half-open peers. WriteControl
// is safe alongside the registry's event writes.
func (ro *Router) ping(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(pingWriteWait)); err != nil {
				return
			}
		}
	}
}
