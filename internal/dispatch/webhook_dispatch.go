package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/driver-rides/internal/models"
)

// WebhookNotifier POSTs notifications as JSON to a push relay.
type WebhookNotifier struct {
	Endpoint string
	Client   *http.Client
	Logger   *slog.Logger
}

func NewWebhookNotifier(endpoint string, logger *slog.Logger) *WebhookNotifier {
	return &WebhookNotifier{Endpoint: endpoint, Client: &http.Client{Timeout: 3 * time.Second}, Logger: logger}
}

func (w *WebhookNotifier) Notify(ctx context.Context, n models.Notification) {
	if err := w.post(ctx, n); err != nil {
		w.Logger.WarnContext(ctx, "webhook notify failed", "kind", n.Kind, "error", err)
	}
}

func (w *WebhookNotifier) post(ctx context.Context, n models.Notification) error {
	b, err := json.Marshal(map[string]any{"notification": n})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.Endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	return nil
}
