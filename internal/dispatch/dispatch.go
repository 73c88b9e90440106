// Package dispatch carries user-facing notifications out of the core. Sinks
// are fire-and-forget: they log their own failures and never hand an error
// back to the code that raised the notification.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/driver-rides/internal/models"
	"github.com/example/driver-rides/internal/observability"
)

// Notifier is the notification boundary.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification)
}

// New fills in the id and timestamp of a notification.
func New(kind models.NotificationKind, rideID, message string) models.Notification {
	return models.Notification{
		ID:      uuid.NewString(),
		Kind:    kind,
		RideID:  rideID,
		Message: message,
		At:      time.Now().UTC(),
	}
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l *LogNotifier) Notify(ctx context.Context, n models.Notification) {
	l.Logger.InfoContext(ctx, "notification", "id", n.ID, "kind", n.Kind, "ride_id", n.RideID, "message", n.Message)
}

// Fanout delivers each notification to every sink in order.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, n models.Notification) {
	observability.NotificationsSent.WithLabelValues(string(n.Kind)).Inc()
	for _, s := range f {
		if s != nil {
			s.Notify(ctx, n)
		}
	}
}

// Nop drops notifications.
type Nop struct{}

func (Nop) Notify(context.Context, models.Notification) {}

// Recorder keeps every notification it receives, in order.
type Recorder struct {
	mu    sync.Mutex
	items []models.Notification
}

func (r *Recorder) Notify(_ context.Context, n models.Notification) {
	r.mu.Lock()
	r.items = append(r.items, n)
	r.mu.Unlock()
}

// Drain returns the recorded notifications and resets the recorder.
func (r *Recorder) Drain() []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.items
	r.items = nil
	return out
}

// Kinds lists the kinds recorded so far without draining.
func (r *Recorder) Kinds() []models.NotificationKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.NotificationKind, len(r.items))
	for i, n := range r.items {
		out[i] = n.Kind
	}
	return out
}
