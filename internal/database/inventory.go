package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"adwatch-rewards-go/internal/models"
	"adwatch-rewards-go/internal/schema"
	"adwatch-rewards-go/internal/store"

	"github.com/shopspring/decimal"
)

// pickAdTx selects one eligible ad: active, VIP flag matching the request,
// and under its click cap. Policy "random" orders uniformly at random,
// "round_robin" by ascending click count; ties break on ascending id either
// way. Absent per-ad duration/reward columns fall back to the configured
// schedule. Returns store.ErrNoAd when nothing is eligible, which callers
// treat as "nothing to show", not a failure.
func (s *Service) pickAdTx(ctx context.Context, q execer, wantsVip bool) (*models.Ad, error) {
	secExpr := "NULL"
	if col, ok := s.adapter.AdCol(schema.AdSeconds); ok {
		secExpr = col
	}
	tlExpr := "NULL"
	if col, ok := s.adapter.AdCol(schema.AdRewardTl); ok {
		tlExpr = col
	}
	diaExpr := "NULL"
	if col, ok := s.adapter.AdCol(schema.AdRewardDiamonds); ok {
		diaExpr = col
	}

	order := "RANDOM()"
	if s.rewards.PickPolicy == models.PickPolicyRoundRobin {
		order = "clicks ASC, id ASC"
	}

	query := fmt.Sprintf(`
		SELECT id, title, %s, %s, %s, clicks, max_clicks
		FROM %s
		WHERE active = 1 AND vip_only = ? AND (max_clicks IS NULL OR clicks < max_clicks)
		ORDER BY %s
		LIMIT 1`,
		secExpr, tlExpr, diaExpr, s.adapter.AdsTable(), order)

	var (
		ad        models.Ad
		seconds   sql.NullInt64
		tlStr     sql.NullString
		diaStr    sql.NullString
		maxClicks sql.NullInt64
	)
	err := q.QueryRowContext(ctx, query, boolToInt(wantsVip)).
		Scan(&ad.Id, &ad.Title, &seconds, &tlStr, &diaStr, &ad.Clicks, &maxClicks)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNoAd
	}
	if err != nil {
		return nil, fmt.Errorf("unable to pick ad: %w", err)
	}

	ad.VipOnly = wantsVip
	ad.Active = true
	if maxClicks.Valid {
		ad.MaxClicks = &maxClicks.Int64
	}

	ad.Seconds = s.rewards.DefaultSeconds
	if seconds.Valid && seconds.Int64 > 0 {
		ad.Seconds = int(seconds.Int64)
	}
	if ad.Seconds < s.rewards.MinSeconds {
		ad.Seconds = s.rewards.MinSeconds
	}
	if ad.Seconds > s.rewards.MaxSeconds {
		ad.Seconds = s.rewards.MaxSeconds
	}

	ad.RewardTl = s.rewards.DefaultRewardTl
	if tlStr.Valid && tlStr.String != "" {
		if v, perr := decimal.NewFromString(tlStr.String); perr == nil {
			ad.RewardTl = v
		}
	}
	ad.RewardDiamonds = s.rewards.DefaultRewardDiamonds
	if diaStr.Valid && diaStr.String != "" {
		if v, perr := decimal.NewFromString(diaStr.String); perr == nil {
			ad.RewardDiamonds = v
		}
	}

	return &ad, nil
}

// CreateAd inserts an ad into the canonical inventory table. The admin CRUD
// surface lives elsewhere; this exists for seeding and tests.
func (s *Service) CreateAd(ctx context.Context, ad models.Ad) (int64, error) {
	if ad.Seconds <= 0 {
		return 0, fmt.Errorf("ad duration must be positive, got %d", ad.Seconds)
	}

	var rewardTl, rewardDiamonds any
	if !ad.RewardTl.IsZero() {
		rewardTl = ad.RewardTl.String()
	}
	if !ad.RewardDiamonds.IsZero() {
		rewardDiamonds = ad.RewardDiamonds.String()
	}
	var maxClicks any
	if ad.MaxClicks != nil {
		maxClicks = *ad.MaxClicks
	}

	result, err := s.db.ExecContext(ctx, queryInsertAd,
		ad.Title, ad.Seconds, rewardTl, rewardDiamonds,
		boolToInt(ad.VipOnly), 1, maxClicks, ad.CreatedBy)
	if err != nil {
		return 0, fmt.Errorf("unable to insert ad: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("unable to read inserted ad id: %w", err)
	}
	return id, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
