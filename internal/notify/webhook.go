package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/rebatetrack/rebatetrack/internal/config"
	"github.com/rebatetrack/rebatetrack/pkg/logger"
)

// WebhookNotifier posts events as JSON to a configured endpoint
type WebhookNotifier struct {
	config *config.NotificationConfig
	client *http.Client
}

// NewWebhookNotifier creates a webhook notifier from the notification config
func NewWebhookNotifier(cfg *config.NotificationConfig) *WebhookNotifier {
	timeout := time.Duration(cfg.Webhook.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		config: cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// Notify delivers the event to the webhook URL. Events not in the enabled
// list are skipped; failures are logged and swallowed.
func (w *WebhookNotifier) Notify(ctx context.Context, event *Event) {
	if !w.config.HasEvent(event.Event) {
		logger.Debug("Event not in notification list, skipping",
			zap.String("event", string(event.Event)))
		return
	}

	if err := w.send(ctx, event); err != nil {
		logger.Warn("Webhook notification failed",
			zap.String("event", string(event.Event)),
			zap.String("purchase", event.Purchase),
			zap.Error(err))
		return
	}

	logger.Debug("Webhook notification sent",
		zap.String("event", string(event.Event)),
		zap.String("purchase", event.Purchase))
}

func (w *WebhookNotifier) send(ctx context.Context, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.Webhook.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "RebateTrack-Notifier/1.0")

	// HMAC signature when a shared secret is configured
	if w.config.Webhook.Secret != "" {
		req.Header.Set("X-RebateTrack-Signature", w.computeSignature(body))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &deliveryError{status: resp.StatusCode, body: string(respBody)}
	}
	return nil
}

// computeSignature returns the hex HMAC-SHA256 of the body
func (w *WebhookNotifier) computeSignature(body []byte) string {
	mac := hmac.New(sha256.New, []byte(w.config.Webhook.Secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

type deliveryError struct {
	status int
	body   string
}

func (e *deliveryError) Error() string {
	return fmt.Sprintf("webhook returned status %d: %s", e.status, e.body)
}
