package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"adwatch-rewards-go/internal/models"
	"adwatch-rewards-go/internal/schema"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// EnsureUser lazily creates the user row. If the row already exists the
// referrer is set only when currently absent (first-write-wins), inside the
// same upsert statement so two racing calls cannot both win. A user can never
// refer themselves.
func (s *Service) EnsureUser(ctx context.Context, userId int64, referrerId *int64) error {
	if userId <= 0 {
		return fmt.Errorf("user id must be positive, got %d", userId)
	}
	return s.ensureUserExec(ctx, s.db, userId, referrerId)
}

func (s *Service) ensureUserExec(ctx context.Context, q execer, userId int64, referrerId *int64) error {
	idCol := s.adapter.UserIdCol()
	table := s.adapter.UsersTable()

	refCol, hasRef := s.adapter.UserCol(schema.UserReferredBy)
	if referrerId != nil && (*referrerId == userId || *referrerId <= 0) {
		referrerId = nil
	}

	if hasRef && referrerId != nil {
		query := fmt.Sprintf(`
			INSERT INTO %s (%s, %s) VALUES (?, ?)
			ON CONFLICT(%s) DO UPDATE SET %s = COALESCE(%s, excluded.%s)`,
			table, idCol, refCol, idCol, refCol, refCol, refCol)
		if _, err := q.ExecContext(ctx, query, userId, *referrerId); err != nil {
			return fmt.Errorf("unable to upsert user %d: %w", userId, err)
		}
		return nil
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?) ON CONFLICT(%s) DO NOTHING`,
		table, idCol, idCol)
	if _, err := q.ExecContext(ctx, query, userId); err != nil {
		return fmt.Errorf("unable to upsert user %d: %w", userId, err)
	}
	return nil
}

// GetBalances returns the dual-currency balance pair. A missing row or a
// missing optional currency column reads as zero; this call never fails on
// account state.
func (s *Service) GetBalances(ctx context.Context, userId int64) (models.Balances, error) {
	return s.getBalancesQ(ctx, s.db, userId)
}

func (s *Service) getBalancesQ(ctx context.Context, q execer, userId int64) (models.Balances, error) {
	balances := models.Balances{Tl: decimal.Zero, Diamonds: decimal.Zero}

	tlExpr := "0"
	if col, ok := s.adapter.UserCol(schema.UserBalanceTl); ok {
		tlExpr = fmt.Sprintf("COALESCE(%s, 0)", col)
	}
	diaExpr := "0"
	if col, ok := s.adapter.UserCol(schema.UserDiamonds); ok {
		diaExpr = fmt.Sprintf("COALESCE(%s, 0)", col)
	}

	query := fmt.Sprintf(`SELECT %s, %s FROM %s WHERE %s = ?`,
		tlExpr, diaExpr, s.adapter.UsersTable(), s.adapter.UserIdCol())

	var tlStr, diaStr string
	err := q.QueryRowContext(ctx, query, userId).Scan(&tlStr, &diaStr)
	if errors.Is(err, sql.ErrNoRows) {
		return balances, nil
	}
	if err != nil {
		return balances, fmt.Errorf("unable to query balances for user %d: %w", userId, err)
	}

	if balances.Tl, err = decimal.NewFromString(tlStr); err != nil {
		return balances, fmt.Errorf("unable to parse tl balance %q: %w", tlStr, err)
	}
	if balances.Diamonds, err = decimal.NewFromString(diaStr); err != nil {
		return balances, fmt.Errorf("unable to parse diamond balance %q: %w", diaStr, err)
	}
	return balances, nil
}

// Credit applies additive balance deltas in a single UPDATE so concurrent
// credits on the same row compose. Negative deltas debit. A currency whose
// column is absent in this deployment degrades to a no-op without blocking
// the other currency.
func (s *Service) Credit(ctx context.Context, userId int64, deltaTl, deltaDiamonds decimal.Decimal) error {
	return s.creditExec(ctx, s.db, userId, deltaTl, deltaDiamonds)
}

func (s *Service) creditExec(ctx context.Context, q execer, userId int64, deltaTl, deltaDiamonds decimal.Decimal) error {
	if err := s.ensureUserExec(ctx, q, userId, nil); err != nil {
		return err
	}

	var sets []string
	var args []any
	if col, ok := s.adapter.UserCol(schema.UserBalanceTl); ok {
		sets = append(sets, fmt.Sprintf("%s = ROUND(COALESCE(%s, 0) + ?, 8)", col, col))
		args = append(args, deltaTl.String())
	} else if !deltaTl.IsZero() {
		zap.L().Warn("No TL balance column, skipping TL credit",
			zap.Int64("user_id", userId), zap.String("delta", deltaTl.String()))
	}
	if col, ok := s.adapter.UserCol(schema.UserDiamonds); ok {
		sets = append(sets, fmt.Sprintf("%s = ROUND(COALESCE(%s, 0) + ?, 8)", col, col))
		args = append(args, deltaDiamonds.String())
	} else if !deltaDiamonds.IsZero() {
		zap.L().Warn("No diamond balance column, skipping diamond credit",
			zap.Int64("user_id", userId), zap.String("delta", deltaDiamonds.String()))
	}
	if len(sets) == 0 {
		return nil
	}

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE %s = ?`,
		s.adapter.UsersTable(), strings.Join(sets, ", "), s.adapter.UserIdCol())
	args = append(args, userId)

	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("unable to credit user %d: %w", userId, err)
	}
	return nil
}

// referrerOf resolves the watcher's referrer, or nil when unset or when the
// deployment has no referrer column.
func (s *Service) referrerOf(ctx context.Context, q execer, userId int64) (*int64, error) {
	refCol, ok := s.adapter.UserCol(schema.UserReferredBy)
	if !ok {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ?`,
		refCol, s.adapter.UsersTable(), s.adapter.UserIdCol())

	var ref sql.NullInt64
	err := q.QueryRowContext(ctx, query, userId).Scan(&ref)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to query referrer of user %d: %w", userId, err)
	}
	if !ref.Valid || ref.Int64 == userId {
		return nil, nil
	}
	return &ref.Int64, nil
}
