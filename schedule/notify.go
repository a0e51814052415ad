// notify.go - Outbound notifications for booking and leave events.
//
// Delivery is best effort and happens after the owning transaction
// commits. A failed delivery is logged and never fails the operation.
package schedule

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Notification kinds.
const (
	NotifyBookingCreated   = "booking_created"
	NotifyBookingCancelled = "booking_cancelled"
	NotifyLeaveFiled       = "leave_filed"
	NotifyLeaveDecided     = "leave_decided"
	NotifyRequestOpened    = "request_opened"
	NotifyRequestDecided   = "request_decided"
)

// Notification is the payload handed to a dispatcher.
type Notification struct {
	Kind     string            `json:"kind"`
	UserID   string            `json:"userId"`
	UserName string            `json:"userName"`
	Detail   map[string]string `json:"detail,omitempty"`
	At       time.Time         `json:"at"`
}

// NotificationDispatcher delivers notifications to an external channel.
// Dispatch reports whether delivery succeeded; callers ignore the result
// beyond logging.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, n Notification) bool
}

// NoopDispatcher drops every notification. Used in tests and when no
// webhook is configured.
type NoopDispatcher struct{}

func (NoopDispatcher) Dispatch(context.Context, Notification) bool { return true }

// WebhookDispatcher POSTs notifications as JSON to a configured URL.
type WebhookDispatcher struct {
	url    string
	client *http.Client
	log    *zap.Logger
}

func NewWebhookDispatcher(url string, log *zap.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
		log:    log,
	}
}

func (w *WebhookDispatcher) Dispatch(ctx context.Context, n Notification) bool {
	body, err := json.Marshal(n)
	if err != nil {
		w.log.Warn("notification encode failed", zap.String("kind", n.Kind), zap.Error(err))
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		w.log.Warn("notification request failed", zap.String("kind", n.Kind), zap.Error(err))
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		w.log.Warn("notification delivery failed",
			zap.String("kind", n.Kind),
			zap.String("url", w.url),
			zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		w.log.Warn("notification rejected",
			zap.String("kind", n.Kind),
			zap.Int("status", resp.StatusCode))
		return false
	}
	return true
}
