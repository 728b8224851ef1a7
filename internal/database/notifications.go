package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"adwatch-rewards-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationKindSessionCompleted marks the completion notice enqueued with
// every credited session.
const NotificationKindSessionCompleted = "session_completed"

type completionPayload struct {
	UserId         int64  `json:"user_id"`
	SessionId      string `json:"session_id"`
	RewardTl       string `json:"reward_tl"`
	RewardDiamonds string `json:"reward_diamonds"`
}

// enqueueCompletionTx inserts the outbound notification row inside the
// crediting transaction: the notice exists exactly when the credit does.
// Delivery is the notifier's problem, later and at-least-once.
func (s *Service) enqueueCompletionTx(ctx context.Context, tx *sql.Tx, ses *models.AdSession, now time.Time) error {
	payload, err := json.Marshal(completionPayload{
		UserId:         ses.UserId,
		SessionId:      ses.Id,
		RewardTl:       ses.RewardTl.String(),
		RewardDiamonds: ses.RewardDiamonds.String(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification payload: %w", err)
	}

	_, err = tx.ExecContext(ctx, queryInsertNotification,
		uuid.New().String(), ses.UserId, NotificationKindSessionCompleted,
		string(payload), now, now)
	if err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}
	return nil
}

// DueNotifications returns undelivered notifications whose next attempt time
// has passed.
func (s *Service) DueNotifications(ctx context.Context, now time.Time, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, queryDueNotifications, now, limit)
	if err != nil {
		return nil, fmt.Errorf("unable to query due notifications: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.Id, &n.UserId, &n.Kind, &n.Payload, &n.Attempts); err != nil {
			return nil, fmt.Errorf("unable to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}
	return notifications, nil
}

// MarkNotificationDelivered marks a notification as done.
func (s *Service) MarkNotificationDelivered(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, queryMarkNotificationDelivered, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("unable to mark notification %s delivered: %w", id, err)
	}
	return nil
}

// RescheduleNotification records a failed attempt and the next retry time.
func (s *Service) RescheduleNotification(ctx context.Context, id string, attempts int, next time.Time) error {
	if _, err := s.db.ExecContext(ctx, queryRescheduleNotification, attempts, next, id); err != nil {
		return fmt.Errorf("unable to reschedule notification %s: %w", id, err)
	}
	return nil
}
