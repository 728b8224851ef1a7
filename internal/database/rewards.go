package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"adwatch-rewards-go/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// settleRewardTx runs inside the completion transaction, after the flip:
// credits the watcher from the session snapshot, records the ad click
// (deactivating the ad when the cap is reached), determines whether this is
// the watcher's first completed session, resolves the referrer, and enqueues
// the completion notification. The first-completion check happens here, under
// the same serialization as the flip, so two racing first-time completions
// cannot both observe count == 1.
func (s *Service) settleRewardTx(ctx context.Context, tx *sql.Tx, ses *models.AdSession, now time.Time) (bool, *int64, error) {
	if err := s.creditExec(ctx, tx, ses.UserId, ses.RewardTl, ses.RewardDiamonds); err != nil {
		return false, nil, err
	}

	if _, err := tx.ExecContext(ctx, queryRecordAdClick, ses.AdId); err != nil {
		return false, nil, fmt.Errorf("failed to record ad click for ad %d: %w", ses.AdId, err)
	}

	var completedCount int
	if err := tx.QueryRowContext(ctx, queryCountCompletedSessions, ses.UserId).Scan(&completedCount); err != nil {
		return false, nil, fmt.Errorf("failed to count completed sessions for user %d: %w", ses.UserId, err)
	}
	firstCompleted := completedCount == 1

	referrerId, err := s.referrerOf(ctx, tx, ses.UserId)
	if err != nil {
		return false, nil, err
	}

	if err := s.enqueueCompletionTx(ctx, tx, ses, now); err != nil {
		return false, nil, err
	}

	return firstCompleted, referrerId, nil
}

// creditReferral pays the referral cascade for one completed session: the
// ongoing commission on every completion, plus the one-time signup bonus on
// the referred user's first. Both components are computed from the watcher's
// reward snapshot with 2-place rounding, summed into a single credit, and
// recorded in the append-only earnings ledger.
//
// This runs after the watcher's reward is durably committed. Failures are
// logged and swallowed: a referral problem must never surface to the watcher
// or claw back the primary reward.
func (s *Service) creditReferral(ctx context.Context, ses *models.AdSession, referrerId int64, firstCompleted bool) {
	bonusTl := ses.RewardTl.Mul(s.rewards.OngoingRate).Round(2)
	bonusDiamonds := ses.RewardDiamonds.Mul(s.rewards.OngoingRate).Round(2)
	if firstCompleted {
		bonusTl = bonusTl.Add(ses.RewardTl.Mul(s.rewards.SignupRate).Round(2))
		bonusDiamonds = bonusDiamonds.Add(ses.RewardDiamonds.Mul(s.rewards.SignupRate).Round(2))
	}
	if bonusTl.IsZero() && bonusDiamonds.IsZero() {
		return
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		zap.L().Error("Referral credit skipped: cannot begin transaction",
			zap.Int64("referrer_id", referrerId), zap.Error(err))
		return
	}
	defer tx.Rollback()

	if err := s.creditExec(ctx, tx, referrerId, bonusTl, bonusDiamonds); err != nil {
		zap.L().Error("Referral credit failed",
			zap.Int64("referrer_id", referrerId),
			zap.Int64("referred_id", ses.UserId),
			zap.Error(err))
		return
	}

	_, err = tx.ExecContext(ctx, queryInsertReferralEarning,
		uuid.New().String(), referrerId, ses.UserId, ses.Id,
		bonusTl.String(), bonusDiamonds.String(), time.Now().UTC())
	if err != nil {
		zap.L().Error("Referral earning record failed",
			zap.Int64("referrer_id", referrerId),
			zap.String("session_id", ses.Id),
			zap.Error(err))
		return
	}

	if err := tx.Commit(); err != nil {
		zap.L().Error("Referral credit commit failed",
			zap.Int64("referrer_id", referrerId), zap.Error(err))
		return
	}

	zap.L().Info("Referral credited",
		zap.Int64("referrer_id", referrerId),
		zap.Int64("referred_id", ses.UserId),
		zap.String("amount_tl", bonusTl.String()),
		zap.String("amount_diamonds", bonusDiamonds.String()),
		zap.Bool("signup_bonus", firstCompleted))
}

// ReferralEarnings returns the most recent earnings credited to a referrer.
func (s *Service) ReferralEarnings(ctx context.Context, referrerId int64, limit int) ([]models.ReferralEarning, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, queryGetReferralEarnings, referrerId, limit)
	if err != nil {
		return nil, fmt.Errorf("unable to query referral earnings: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var earnings []models.ReferralEarning
	for rows.Next() {
		var (
			e      models.ReferralEarning
			tlStr  string
			diaStr string
		)
		if err := rows.Scan(&e.Id, &e.ReferrerId, &e.ReferredId, &e.SessionId, &tlStr, &diaStr, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("unable to scan referral earning: %w", err)
		}
		if e.AmountTl, err = decimal.NewFromString(tlStr); err != nil {
			return nil, fmt.Errorf("unable to parse earning amount %q: %w", tlStr, err)
		}
		if e.AmountDiamonds, err = decimal.NewFromString(diaStr); err != nil {
			return nil, fmt.Errorf("unable to parse earning amount %q: %w", diaStr, err)
		}
		earnings = append(earnings, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating referral earnings: %w", err)
	}
	return earnings, nil
}
