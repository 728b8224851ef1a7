package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"adwatch-rewards-go/internal/models"
	"adwatch-rewards-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StartSession opens a PENDING watch session: quota check, ad pick, snapshot.
// The daily counter increments here, at start — a shown ad counts against the
// cap whether or not it is completed, which stops rapid re-triggering.
func (s *Service) StartSession(ctx context.Context, userId int64, wantsVip bool) (*store.StartResult, error) {
	if userId <= 0 {
		return nil, fmt.Errorf("user id must be positive, got %d", userId)
	}

	now := time.Now().UTC()
	day := dayKey(now)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.ensureUserExec(ctx, tx, userId, nil); err != nil {
		return nil, err
	}

	seen, err := s.quotaCount(ctx, tx, userId, day)
	if err != nil {
		return nil, err
	}
	if seen >= s.rewards.DailyLimit {
		return nil, &store.DailyLimitError{Limit: s.rewards.DailyLimit}
	}

	ad, err := s.pickAdTx(ctx, tx, wantsVip)
	if err != nil {
		return nil, err
	}

	if err := s.quotaIncrement(ctx, tx, userId, day); err != nil {
		return nil, err
	}

	sessionId := uuid.New().String()
	_, err = tx.ExecContext(ctx, queryInsertSession,
		sessionId, userId, ad.Id, ad.Seconds,
		ad.RewardTl.String(), ad.RewardDiamonds.String(), now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Session started",
		zap.String("session_id", sessionId),
		zap.Int64("user_id", userId),
		zap.Int64("ad_id", ad.Id),
		zap.Int("seconds", ad.Seconds),
		zap.Int("seen", seen+1))

	return &store.StartResult{
		SessionId: sessionId,
		Seconds:   ad.Seconds,
		Reward:    models.Balances{Tl: ad.RewardTl, Diamonds: ad.RewardDiamonds},
		Ad:        models.AdSummary{Id: ad.Id, Title: ad.Title, Seconds: ad.Seconds},
		Seen:      seen + 1,
		Limit:     s.rewards.DailyLimit,
	}, nil
}

// CompleteSession validates the elapsed watch time and flips the session to
// COMPLETED exactly once. The flip and the watcher's credit share one
// transaction; the referral cascade runs afterwards, best-effort, so its
// failure can never roll back the primary reward. Retrying a completed
// session returns success with Already set and credits nothing.
func (s *Service) CompleteSession(ctx context.Context, sessionId string, userId int64) (*store.CompleteResult, error) {
	if sessionId == "" {
		return nil, store.ErrSessionNotFound
	}

	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		ses       models.AdSession
		tlStr     string
		diaStr    string
		completed int64
	)
	err = tx.QueryRowContext(ctx, queryGetSession, sessionId).Scan(
		&ses.Id, &ses.UserId, &ses.AdId, &ses.Seconds, &tlStr, &diaStr, &ses.StartedAt, &completed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session %s: %w", sessionId, err)
	}

	if ses.UserId != userId {
		return nil, store.ErrNotYourSession
	}

	if ses.RewardTl, err = decimal.NewFromString(tlStr); err != nil {
		return nil, fmt.Errorf("failed to parse reward snapshot %q: %w", tlStr, err)
	}
	if ses.RewardDiamonds, err = decimal.NewFromString(diaStr); err != nil {
		return nil, fmt.Errorf("failed to parse reward snapshot %q: %w", diaStr, err)
	}

	if completed != 0 {
		balances, berr := s.getBalancesQ(ctx, tx, userId)
		if berr != nil {
			return nil, berr
		}
		return &store.CompleteResult{Already: true, Balances: balances}, nil
	}

	elapsed := now.Sub(ses.StartedAt.UTC())
	required := time.Duration(ses.Seconds) * time.Second
	if elapsed+s.rewards.Tolerance < required {
		remaining := decimal.NewFromFloat((required - elapsed).Seconds()).Round(2)
		return nil, &store.TooEarlyError{Remaining: remaining}
	}

	// The conditional flip. A concurrent completion may have won between the
	// read above and this statement; the loser sees zero rows and reports
	// "already completed", never an error and never a second credit.
	result, err := tx.ExecContext(ctx, queryCompleteSession, now, sessionId)
	if err != nil {
		return nil, fmt.Errorf("failed to complete session %s: %w", sessionId, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		balances, berr := s.getBalancesQ(ctx, tx, userId)
		if berr != nil {
			return nil, berr
		}
		return &store.CompleteResult{Already: true, Balances: balances}, nil
	}

	firstCompleted, referrerId, err := s.settleRewardTx(ctx, tx, &ses, now)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Session completed",
		zap.String("session_id", sessionId),
		zap.Int64("user_id", userId),
		zap.String("reward_tl", ses.RewardTl.String()),
		zap.String("reward_diamonds", ses.RewardDiamonds.String()),
		zap.Bool("first_completed", firstCompleted))

	if referrerId != nil {
		s.creditReferral(ctx, &ses, *referrerId, firstCompleted)
	}

	balances, err := s.GetBalances(ctx, userId)
	if err != nil {
		return nil, err
	}
	return &store.CompleteResult{Balances: balances}, nil
}
