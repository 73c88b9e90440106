package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/driver-rides/internal/models"
)

// DefaultWriteWait bounds a single notification write to a UI client.
const DefaultWriteWait = 5 * time.Second

// WSSession represents a connected UI client.
type WSSession struct {
	conn      *websocket.Conn
	writeWait time.Duration
	mu        sync.Mutex
}

// Send writes n under a deadline so a client that stopped reading fails the
// write instead of blocking the ride operation that raised n.
func (s *WSSession) Send(n models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeWait)); err != nil {
		return err
	}
	return s.conn.WriteJSON(n)
}

// WSRegistry holds client sessions and broadcasts notifications to them.
// WriteWait applies to sessions added after it is set.
type WSRegistry struct {
	WriteWait time.Duration

	mu       sync.RWMutex
	sessions map[string]*WSSession
	logger   *slog.Logger
}

func NewWSRegistry(logger *slog.Logger) *WSRegistry {
	return &WSRegistry{WriteWait: DefaultWriteWait, sessions: make(map[string]*WSSession), logger: logger}
}

// Add registers conn under clientID, closing any connection it replaces.
func (r *WSRegistry) Add(clientID string, conn *websocket.Conn) {
	r.mu.Lock()
	prev := r.sessions[clientID]
	wait := r.WriteWait
	if wait <= 0 {
		wait = DefaultWriteWait
	}
	r.sessions[clientID] = &WSSession{conn: conn, writeWait: wait}
	r.mu.Unlock()
	if prev != nil {
		_ = prev.conn.Close()
	}
}

// Remove drops the session if it still belongs to conn.
func (r *WSRegistry) Remove(clientID string, conn *websocket.Conn) {
	r.mu.Lock()
	if s, ok := r.sessions[clientID]; ok && s.conn == conn {
		delete(r.sessions, clientID)
	}
	r.mu.Unlock()
	_ = conn.Close()
}

func (r *WSRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Send delivers n to a single client.
func (r *WSRegistry) Send(clientID string, n models.Notification) error {
	r.mu.RLock()
	s, ok := r.sessions[clientID]
	r.mu.RUnlock()
	if !ok {
		return ErrNoSession
	}
	return s.Send(n)
}

// Notify broadcasts n to every connected client. Clients whose write fails are dropped.
func (r *WSRegistry) Notify(ctx context.Context, n models.Notification) {
	r.mu.RLock()
	targets := make(map[string]*WSSession, len(r.sessions))
	for id, s := range r.sessions {
		targets[id] = s
	}
	r.mu.RUnlock()

	for id, s := range targets {
		if err := s.Send(n); err != nil {
			r.logger.WarnContext(ctx, "ws send failed", "client_id", id, "error", err)
			r.Remove(id, s.conn)
		}
	}
}

var ErrNoSession = &NoSessionError{}

type NoSessionError struct{}

func (n *NoSessionError) Error() string { return "no ws session" }
