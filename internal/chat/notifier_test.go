package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-storefront/internal/fulfillment"
)

func TestWebhookNotifier_PostsEvent(t *testing.T) {
	got := make(chan payload, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var p payload
		_ = json.NewDecoder(r.Body).Decode(&p)
		got <- p
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, time.Second)
	err := n.Notify(context.Background(), fulfillment.Event{
		SessionID: "s-1", UserID: 7, ProductID: 3, Kind: fulfillment.EventConfirmed, Text: "paid",
	})
	require.NoError(t, err)

	p := <-got
	assert.Equal(t, int64(7), p.UserID)
	assert.Equal(t, uint(3), p.ProductID)
	assert.Equal(t, "confirmed", p.Event)
	assert.Equal(t, "paid", p.Text)
	assert.Equal(t, "s-1", p.SessionID)
}

func TestWebhookNotifier_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL, time.Second).Notify(context.Background(), fulfillment.Event{Kind: fulfillment.EventFailed})
	assert.Error(t, err)
}

func TestNew_FallsBackToLog(t *testing.T) {
	n := New("", time.Second)
	assert.IsType(t, LogNotifier{}, n)
	assert.NoError(t, n.Notify(context.Background(), fulfillment.Event{Kind: fulfillment.EventCancelled}))

	assert.IsType(t, &WebhookNotifier{}, New("http://bridge.local/hook", time.Second))
}
