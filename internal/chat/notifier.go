// Package chat delivers fulfillment events to the chat transport.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-storefront/internal/fulfillment"
)

// WebhookNotifier POSTs each event as JSON to the bot bridge.
type WebhookNotifier struct {
	URL  string
	HTTP *http.Client
}

// NewWebhookNotifier returns a notifier with its own timeout-bound client.
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{URL: url, HTTP: &http.Client{Timeout: timeout}}
}

// payload is the wire shape expected by the bridge.
type payload struct {
	UserID    int64  `json:"user_id"`
	Event     string `json:"event"`
	Text      string `json:"text"`
	ProductID uint   `json:"product_id"`
	SessionID string `json:"session_id,omitempty"`
}

func (n *WebhookNotifier) Notify(ctx context.Context, ev fulfillment.Event) error {
	body, err := json.Marshal(payload{
		UserID:    ev.UserID,
		Event:     string(ev.Kind),
		Text:      ev.Text,
		ProductID: ev.ProductID,
		SessionID: ev.SessionID,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("chat webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("chat webhook: status %d", resp.StatusCode)
	}
	return nil
}

// LogNotifier only logs events. It is used when no webhook is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, ev fulfillment.Event) error {
	log.Info().
		Str("session_id", ev.SessionID).
		Int64("user_id", ev.UserID).
		Uint("product_id", ev.ProductID).
		Str("event", string(ev.Kind)).
		Str("text", ev.Text).
		Msg("chat notification")
	return nil
}

// New picks the webhook notifier when url is set, the log notifier otherwise.
func New(url string, timeout time.Duration) fulfillment.Notifier {
	if url == "" {
		return LogNotifier{}
	}
	return NewWebhookNotifier(url, timeout)
}
