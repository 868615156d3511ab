// Package session tracks connected push channels keyed by client id.
package session

import (
	"log/slog"
	"sync"
	"time"

	"vidrelay/internal/entity"
	"vidrelay/internal/observability"
)

// writeTimeout bounds a single push write. A peer that stops reading gets
// its event dropped instead of holding the writer hostage.
const writeTimeout = 10 * time.Second

// Channel is the surface of an open push connection the registry needs.
// *websocket.Conn satisfies it.
type Channel interface {
	WriteJSON(v any) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// client pairs a channel with its own write lock so frames from concurrent
// downloads cannot interleave on one connection.
type client struct {
	mu sync.Mutex
	ch Channel
}

// Registry is the process-wide mapping from client id to open push channel.
// Delivery is at-most-once, best-effort: no queuing, no backpressure.
type Registry struct {
	log     *slog.Logger
	metrics *observability.Metrics

	mu      sync.Mutex
	clients map[string]*client
}

// NewRegistry creates an empty registry.
func NewRegistry(log *slog.Logger, metrics *observability.Metrics) *Registry {
	return &Registry{
		log:     log.With(slog.String("package", "session")),
		metrics: metrics,
		clients: make(map[string]*client),
	}
}

// Register stores the channel under id. A later connect with the same id
// replaces the earlier handle; the replaced channel is closed.
func (r *Registry) Register(id string, ch Channel) {
	r.mu.Lock()

	var old Channel
	if cur, ok := r.clients[id]; ok {
		old = cur.ch
	}

	r.clients[id] = &client{ch: ch}
	count := len(r.clients)
	r.mu.Unlock()

	if old != nil && old != ch {
		old.Close() //nolint:errcheck
	}

	r.metrics.SetSessionsConnected(count)

	r.log.Info("client connected", slog.String("client_id", id))
}

// Remove deletes the mapping for id, but only while ch is still the
// registered handle; a reconnect that already replaced it stays untouched.
func (r *Registry) Remove(id string, ch Channel) {
	r.mu.Lock()

	if cur, ok := r.clients[id]; ok && (ch == nil || cur.ch == ch) {
		delete(r.clients, id)
	}

	count := len(r.clients)
	r.mu.Unlock()

	r.metrics.SetSessionsConnected(count)

	r.log.Info("client disconnected", slog.String("client_id", id))
}

// Send pushes the event to the channel registered under id. A missing or
// broken channel drops the event with a log line; Send never fails.
//
// The registry lock only guards the lookup; the write happens under the
// client's own lock with a deadline, so one stalled peer can delay at most
// its own events, never another session's or the registry itself.
func (r *Registry) Send(id string, event entity.ProgressEvent) {
	if id == "" {
		return
	}

	r.mu.Lock()
	c, ok := r.clients[id]
	r.mu.Unlock()

	if !ok {
		r.log.Debug("push channel not registered, dropping event",
			slog.String("client_id", id), slog.Any("event", event))
		r.metrics.RecordEventDropped()

		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.ch.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck

	if err := c.ch.WriteJSON(event); err != nil {
		r.log.Warn("push channel write failed, dropping event",
			slog.String("client_id", id), slog.Any("error", err))
		r.metrics.RecordEventDropped()

		return
	}

	r.metrics.RecordEventSent()
}

// Len reports the number of connected sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.clients)
}
