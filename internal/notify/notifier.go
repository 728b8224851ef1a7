package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"adwatch-rewards-go/internal/models"

	"go.uber.org/zap"
)

// Store is the slice of the reward store the notifier needs.
type Store interface {
	DueNotifications(ctx context.Context, now time.Time, limit int) ([]models.Notification, error)
	MarkNotificationDelivered(ctx context.Context, id string) error
	RescheduleNotification(ctx context.Context, id string, attempts int, next time.Time) error
}

// Notifier drains the notification queue and POSTs each payload to the
// configured webhook. Delivery is at-least-once: rows are only marked
// delivered after a successful POST, failures reschedule with exponential
// backoff. The queue is written by the crediting transaction; this worker
// never touches balances, so a delivery failure can never be confused with a
// ledger failure.
type Notifier struct {
	store  Store
	cfg    models.NotifyConfig
	client *http.Client
}

func New(store Store, cfg models.NotifyConfig) *Notifier {
	return &Notifier{
		store:  store,
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.HTTPTimeout},
	}
}

// Run polls until the context is cancelled.
func (n *Notifier) Run(ctx context.Context) {
	zap.L().Info("Notification worker started",
		zap.Duration("poll_interval", n.cfg.PollInterval),
		zap.Bool("delivery_enabled", n.cfg.WebhookURL != ""))

	ticker := time.NewTicker(n.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("Notification worker stopped")
			return
		case <-ticker.C:
			n.Drain(ctx)
		}
	}
}

// Drain processes one batch of due notifications.
func (n *Notifier) Drain(ctx context.Context) {
	due, err := n.store.DueNotifications(ctx, time.Now().UTC(), n.cfg.BatchSize)
	if err != nil {
		zap.L().Error("Failed to query due notifications", zap.Error(err))
		return
	}

	for _, notification := range due {
		n.deliverOne(ctx, notification)
	}
}

func (n *Notifier) deliverOne(ctx context.Context, notification models.Notification) {
	if n.cfg.WebhookURL == "" {
		zap.L().Debug("Notification delivery disabled, draining",
			zap.String("id", notification.Id))
		if err := n.store.MarkNotificationDelivered(ctx, notification.Id); err != nil {
			zap.L().Error("Failed to mark notification delivered", zap.Error(err))
		}
		return
	}

	if err := n.post(ctx, notification); err != nil {
		attempts := notification.Attempts + 1
		if attempts >= n.cfg.MaxAttempts {
			zap.L().Error("Giving up on notification after max attempts",
				zap.String("id", notification.Id),
				zap.Int("attempts", attempts),
				zap.Error(err))
			if merr := n.store.MarkNotificationDelivered(ctx, notification.Id); merr != nil {
				zap.L().Error("Failed to mark notification delivered", zap.Error(merr))
			}
			return
		}

		next := time.Now().UTC().Add(n.backoff(attempts))
		zap.L().Warn("Notification delivery failed, rescheduling",
			zap.String("id", notification.Id),
			zap.Int("attempts", attempts),
			zap.Time("next_attempt", next),
			zap.Error(err))
		if rerr := n.store.RescheduleNotification(ctx, notification.Id, attempts, next); rerr != nil {
			zap.L().Error("Failed to reschedule notification", zap.Error(rerr))
		}
		return
	}

	if err := n.store.MarkNotificationDelivered(ctx, notification.Id); err != nil {
		// Row stays due; the webhook may see the same notice again. That is
		// the at-least-once contract.
		zap.L().Error("Failed to mark notification delivered", zap.Error(err))
		return
	}

	zap.L().Info("Notification delivered",
		zap.String("id", notification.Id),
		zap.String("kind", notification.Kind),
		zap.Int64("user_id", notification.UserId))
}

func (n *Notifier) post(ctx context.Context, notification models.Notification) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL,
		bytes.NewBufferString(notification.Payload))
	if err != nil {
		return fmt.Errorf("unable to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Notification-Kind", notification.Kind)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			zap.L().Warn("Failed to close webhook response body", zap.Error(cerr))
		}
	}()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// backoff doubles per attempt starting from the base, capped at an hour.
func (n *Notifier) backoff(attempts int) time.Duration {
	d := n.cfg.BaseBackoff
	for i := 1; i < attempts && d < time.Hour; i++ {
		d *= 2
	}
	if d > time.Hour {
		d = time.Hour
	}
	return d
}
