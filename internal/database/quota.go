package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"adwatch-rewards-go/internal/schema"

	"go.uber.org/zap"
)

// dayKey buckets the quota by UTC calendar day. No carry-over between days.
func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// TodayCount returns how many sessions the user has started today (UTC).
func (s *Service) TodayCount(ctx context.Context, userId int64) (int, error) {
	return s.quotaCount(ctx, s.db, userId, dayKey(time.Now()))
}

func (s *Service) quotaCount(ctx context.Context, q execer, userId int64, day string) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, queryQuotaCount, userId, day).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("unable to query daily counter for user %d: %w", userId, err)
	}
	return count, nil
}

// quotaIncrement bumps the daily counter, creating it on first touch. When a
// legacy users-table daily column exists it is mirrored best-effort so older
// readers keep seeing a number; a mirror failure never aborts the start.
func (s *Service) quotaIncrement(ctx context.Context, q execer, userId int64, day string) error {
	if _, err := q.ExecContext(ctx, queryQuotaIncrement, userId, day); err != nil {
		return fmt.Errorf("unable to increment daily counter for user %d: %w", userId, err)
	}

	if col, ok := s.adapter.UserCol(schema.UserDaily); ok {
		mirror := fmt.Sprintf(`UPDATE %s SET %s = COALESCE(%s, 0) + 1 WHERE %s = ?`,
			s.adapter.UsersTable(), col, col, s.adapter.UserIdCol())
		if _, err := q.ExecContext(ctx, mirror, userId); err != nil {
			zap.L().Warn("Failed to mirror daily counter to users table",
				zap.Int64("user_id", userId), zap.Error(err))
		}
	}
	return nil
}
