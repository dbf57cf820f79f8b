package notify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rebatetrack/rebatetrack/internal/config"
)

func testEvent() *Event {
	return &Event{
		Event:      config.NotificationEventRefundRecorded,
		TesterUUID: "tester-1",
		Purchase:   "purchase-1",
		Amount:     10.99,
		OccurredAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestWebhookNotifierDelivers(t *testing.T) {
	var received []byte
	var gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		received, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := &config.NotificationConfig{
		Events:  []config.NotificationEvent{config.NotificationEventRefundRecorded},
		Webhook: config.WebhookNotificationConfig{URL: server.URL},
	}

	NewWebhookNotifier(cfg).Notify(context.Background(), testEvent())

	if received == nil {
		t.Fatal("Expected webhook to receive a request")
	}
	if gotContentType != "application/json" {
		t.Errorf("Expected application/json, got %s", gotContentType)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(received, &payload); err != nil {
		t.Fatalf("Failed to parse payload: %v", err)
	}
	if payload["event"] != "refund.recorded" {
		t.Errorf("Expected event refund.recorded, got %v", payload["event"])
	}
	if payload["purchase"] != "purchase-1" {
		t.Errorf("Expected purchase purchase-1, got %v", payload["purchase"])
	}
	if payload["amount"] != 10.99 {
		t.Errorf("Expected amount 10.99, got %v", payload["amount"])
	}
}

func TestWebhookNotifierSignsPayload(t *testing.T) {
	const secret = "shared-secret"

	var gotSignature string
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get("X-RebateTrack-Signature")
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := &config.NotificationConfig{
		Events:  []config.NotificationEvent{config.NotificationEventRefundRecorded},
		Webhook: config.WebhookNotificationConfig{URL: server.URL, Secret: secret},
	}

	NewWebhookNotifier(cfg).Notify(context.Background(), testEvent())

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	want := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	if gotSignature != want {
		t.Errorf("Expected signature %s, got %s", want, gotSignature)
	}
}

func TestWebhookNotifierSkipsDisabledEvents(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	// Empty events list: nothing is delivered
	cfg := &config.NotificationConfig{
		Webhook: config.WebhookNotificationConfig{URL: server.URL},
	}

	NewWebhookNotifier(cfg).Notify(context.Background(), testEvent())

	if called {
		t.Error("Expected no delivery for an event not in the enabled list")
	}
}

func TestWebhookNotifierSwallowsFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := &config.NotificationConfig{
		Events:  []config.NotificationEvent{config.NotificationEventRefundRecorded},
		Webhook: config.WebhookNotificationConfig{URL: server.URL},
	}

	// Must not panic or propagate the failure
	NewWebhookNotifier(cfg).Notify(context.Background(), testEvent())
}

func TestFromConfig(t *testing.T) {
	if _, ok := FromConfig(nil).(Noop); !ok {
		t.Error("Expected Noop for nil config")
	}
	if _, ok := FromConfig(&config.NotificationConfig{}).(Noop); !ok {
		t.Error("Expected Noop when webhook URL is empty")
	}

	cfg := &config.NotificationConfig{
		Webhook: config.WebhookNotificationConfig{URL: "https://hooks.example.com"},
	}
	if _, ok := FromConfig(cfg).(*WebhookNotifier); !ok {
		t.Error("Expected WebhookNotifier when webhook URL is set")
	}
}
