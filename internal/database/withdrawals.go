package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"adwatch-rewards-go/internal/models"
	"adwatch-rewards-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Convert exchanges between the two currencies at the configured rate
// (diamonds per 1 TL). Debit and credit happen in one transaction.
func (s *Service) Convert(ctx context.Context, userId int64, amount decimal.Decimal, direction string) (models.Balances, error) {
	var balances models.Balances

	if amount.LessThanOrEqual(decimal.Zero) {
		return balances, store.ErrBadAmount
	}
	if direction != store.DirectionTlToDiamond && direction != store.DirectionDiamondToTl {
		return balances, store.ErrInvalidDirection
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return balances, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := s.getBalancesQ(ctx, tx, userId)
	if err != nil {
		return balances, err
	}

	var deltaTl, deltaDiamonds decimal.Decimal
	switch direction {
	case store.DirectionTlToDiamond:
		if current.Tl.LessThan(amount) {
			return balances, store.ErrInsufficientFunds
		}
		deltaTl = amount.Neg()
		deltaDiamonds = amount.Mul(s.rewards.ConvertDiamondPerTl).Round(2)
	case store.DirectionDiamondToTl:
		if current.Diamonds.LessThan(amount) {
			return balances, store.ErrInsufficientFunds
		}
		deltaDiamonds = amount.Neg()
		deltaTl = amount.DivRound(s.rewards.ConvertDiamondPerTl, 2)
	}

	if err := s.creditExec(ctx, tx, userId, deltaTl, deltaDiamonds); err != nil {
		return balances, err
	}

	balances, err = s.getBalancesQ(ctx, tx, userId)
	if err != nil {
		return balances, err
	}

	if err := tx.Commit(); err != nil {
		return models.Balances{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Currency converted",
		zap.Int64("user_id", userId),
		zap.String("direction", direction),
		zap.String("amount", amount.String()))
	return balances, nil
}

// RequestWithdraw records a payout request and debits the TL balance
// immediately — a pessimistic hold so concurrent requests cannot double-spend
// the same funds. Payout itself happens out of band; the row stays pending.
func (s *Service) RequestWithdraw(ctx context.Context, userId int64, amount decimal.Decimal, destination string) (*models.WithdrawRequest, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, store.ErrBadAmount
	}
	if amount.LessThan(s.rewards.MinWithdraw) {
		return nil, store.ErrMinWithdraw
	}
	if destination == "" {
		return nil, store.ErrBadAmount
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := s.getBalancesQ(ctx, tx, userId)
	if err != nil {
		return nil, err
	}
	if current.Tl.LessThan(amount) {
		return nil, store.ErrInsufficientBalance
	}

	if err := s.creditExec(ctx, tx, userId, amount.Neg(), decimal.Zero); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	request := &models.WithdrawRequest{
		Id:          uuid.New().String(),
		UserId:      userId,
		Amount:      amount,
		Destination: destination,
		Status:      models.WithdrawStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err = tx.ExecContext(ctx, queryInsertWithdrawRequest,
		request.Id, request.UserId, request.Amount.String(),
		request.Destination, request.Status, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert withdraw request: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Withdraw requested",
		zap.String("request_id", request.Id),
		zap.Int64("user_id", userId),
		zap.String("amount", amount.String()))
	return request, nil
}

// ListWithdrawRequests returns a user's most recent withdraw requests.
func (s *Service) ListWithdrawRequests(ctx context.Context, userId int64, limit int) ([]models.WithdrawRequest, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, queryGetWithdrawRequests, userId, limit)
	if err != nil {
		return nil, fmt.Errorf("unable to query withdraw requests: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var requests []models.WithdrawRequest
	for rows.Next() {
		var (
			r         models.WithdrawRequest
			amountStr string
		)
		if err := rows.Scan(&r.Id, &r.UserId, &amountStr, &r.Destination, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("unable to scan withdraw request: %w", err)
		}
		if r.Amount, err = decimal.NewFromString(amountStr); err != nil {
			return nil, fmt.Errorf("unable to parse withdraw amount %q: %w", amountStr, err)
		}
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating withdraw requests: %w", err)
	}
	return requests, nil
}
