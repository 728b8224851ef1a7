package database

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"adwatch-rewards-go/internal/store"

	"github.com/shopspring/decimal"
)

func TestStartSession_SnapshotsRewardAndCounts(t *testing.T) {
	service := newTestService(t)
	seedAd(t, service, 15)
	ctx := context.Background()

	result, err := service.StartSession(ctx, 1, false)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	if result.SessionId == "" {
		t.Error("Expected a session id")
	}
	if result.Seconds != 15 {
		t.Errorf("Expected 15 seconds, got %d", result.Seconds)
	}
	mustEqual(t, result.Reward.Tl, decimal.RequireFromString("0.25"), "reward tl")
	mustEqual(t, result.Reward.Diamonds, decimal.RequireFromString("0.25"), "reward diamonds")
	if result.Seen != 1 || result.Limit != 3 {
		t.Errorf("Expected seen=1 limit=3, got seen=%d limit=%d", result.Seen, result.Limit)
	}
}

func TestStartSession_NoEligibleAd(t *testing.T) {
	service := newTestService(t)

	_, err := service.StartSession(context.Background(), 1, false)
	if !errors.Is(err, store.ErrNoAd) {
		t.Fatalf("Expected ErrNoAd, got %v", err)
	}
}

func TestStartSession_VipFlagFilters(t *testing.T) {
	service := newTestService(t)
	seedAd(t, service, 15) // non-VIP only

	_, err := service.StartSession(context.Background(), 1, true)
	if !errors.Is(err, store.ErrNoAd) {
		t.Fatalf("Expected ErrNoAd for VIP request, got %v", err)
	}
}

func TestStartSession_DailyLimitRollsOver(t *testing.T) {
	service := newTestService(t)
	seedAd(t, service, 15)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := service.StartSession(ctx, 1, false); err != nil {
			t.Fatalf("StartSession %d failed: %v", i+1, err)
		}
	}

	_, err := service.StartSession(ctx, 1, false)
	if !errors.Is(err, store.ErrDailyLimit) {
		t.Fatalf("Expected ErrDailyLimit on 4th start, got %v", err)
	}
	var dailyLimit *store.DailyLimitError
	if !errors.As(err, &dailyLimit) || dailyLimit.Limit != 3 {
		t.Errorf("Expected the rejection to carry limit 3, got %v", err)
	}

	// Move the counter to yesterday: a new UTC day starts fresh.
	yesterday := dayKey(time.Now().UTC().AddDate(0, 0, -1))
	if _, err := service.db.Exec("UPDATE daily_counters SET day = ? WHERE user_id = ?", yesterday, int64(1)); err != nil {
		t.Fatalf("Failed to rewind counter: %v", err)
	}

	if _, err := service.StartSession(ctx, 1, false); err != nil {
		t.Fatalf("StartSession after day roll failed: %v", err)
	}
}

func TestCompleteSession_TooEarlyCreditsNothing(t *testing.T) {
	service := newTestService(t)
	seedAd(t, service, 15)
	ctx := context.Background()

	result, err := service.StartSession(ctx, 1, false)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	_, err = service.CompleteSession(ctx, result.SessionId, 1)
	if !errors.Is(err, store.ErrTooEarly) {
		t.Fatalf("Expected ErrTooEarly, got %v", err)
	}

	var tooEarly *store.TooEarlyError
	if !errors.As(err, &tooEarly) {
		t.Fatalf("Expected TooEarlyError, got %T", err)
	}
	if tooEarly.Remaining.LessThanOrEqual(decimal.Zero) {
		t.Errorf("Expected positive remaining seconds, got %s", tooEarly.Remaining.String())
	}

	balances, err := service.GetBalances(ctx, 1)
	if err != nil {
		t.Fatalf("GetBalances failed: %v", err)
	}
	mustEqual(t, balances.Tl, decimal.Zero, "tl balance")
}

func TestCompleteSession_ToleranceAbsorbsJitter(t *testing.T) {
	service := newTestService(t)
	seedAd(t, service, 15)
	ctx := context.Background()

	// 14s elapsed: even with the 0.45s tolerance the watch is about 1s short.
	early, err := service.StartSession(ctx, 1, false)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	backdateSession(t, service, early.SessionId, 14*time.Second)

	_, err = service.CompleteSession(ctx, early.SessionId, 1)
	var tooEarly *store.TooEarlyError
	if !errors.As(err, &tooEarly) {
		t.Fatalf("Expected TooEarlyError at 14s, got %v", err)
	}
	if tooEarly.Remaining.LessThan(decimal.RequireFromString("0.5")) ||
		tooEarly.Remaining.GreaterThan(decimal.RequireFromString("1.5")) {
		t.Errorf("Expected remaining near 1s, got %s", tooEarly.Remaining.String())
	}

	// 14.8s elapsed: inside the tolerance window, accepted.
	late, err := service.StartSession(ctx, 1, false)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	backdateSession(t, service, late.SessionId, 14800*time.Millisecond)

	if _, err := service.CompleteSession(ctx, late.SessionId, 1); err != nil {
		t.Fatalf("Expected completion inside tolerance, got %v", err)
	}
}

func TestCompleteSession_CreditsExactlyOnce(t *testing.T) {
	service := newTestService(t)
	seedAd(t, service, 15)
	ctx := context.Background()

	result, err := service.StartSession(ctx, 1, false)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	backdateSession(t, service, result.SessionId, 16*time.Second)

	first, err := service.CompleteSession(ctx, result.SessionId, 1)
	if err != nil {
		t.Fatalf("CompleteSession failed: %v", err)
	}
	if first.Already {
		t.Error("First completion should not report already")
	}
	mustEqual(t, first.Balances.Tl, decimal.RequireFromString("0.25"), "tl balance")
	mustEqual(t, first.Balances.Diamonds, decimal.RequireFromString("0.25"), "diamond balance")

	second, err := service.CompleteSession(ctx, result.SessionId, 1)
	if err != nil {
		t.Fatalf("Second CompleteSession failed: %v", err)
	}
	if !second.Already {
		t.Error("Second completion should report already")
	}
	mustEqual(t, second.Balances.Tl, decimal.RequireFromString("0.25"), "tl balance after retry")
}

func TestCompleteSession_WrongOwner(t *testing.T) {
	service := newTestService(t)
	seedAd(t, service, 15)
	ctx := context.Background()

	result, err := service.StartSession(ctx, 1, false)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	_, err = service.CompleteSession(ctx, result.SessionId, 2)
	if !errors.Is(err, store.ErrNotYourSession) {
		t.Fatalf("Expected ErrNotYourSession, got %v", err)
	}
}

func TestCompleteSession_UnknownSession(t *testing.T) {
	service := newTestService(t)

	_, err := service.CompleteSession(context.Background(), "no-such-session", 1)
	if !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestCompleteSession_ConcurrentDuplicates(t *testing.T) {
	service := newTestService(t)
	seedAd(t, service, 15)
	ctx := context.Background()

	result, err := service.StartSession(ctx, 1, false)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	backdateSession(t, service, result.SessionId, 16*time.Second)

	const attempts = 4
	outcomes := make([]*store.CompleteResult, attempts)
	errs := make([]error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = service.CompleteSession(ctx, result.SessionId, 1)
		}(i)
	}
	wg.Wait()

	credited := 0
	for i := 0; i < attempts; i++ {
		if errs[i] != nil {
			t.Fatalf("Concurrent completion %d failed: %v", i, errs[i])
		}
		if !outcomes[i].Already {
			credited++
		}
	}
	if credited != 1 {
		t.Errorf("Expected exactly one crediting completion, got %d", credited)
	}

	balances, err := service.GetBalances(ctx, 1)
	if err != nil {
		t.Fatalf("GetBalances failed: %v", err)
	}
	mustEqual(t, balances.Tl, decimal.RequireFromString("0.25"), "total credited tl")
	mustEqual(t, balances.Diamonds, decimal.RequireFromString("0.25"), "total credited diamonds")
}

func TestStartSession_LegacySchemaMirrorsDailyCounter(t *testing.T) {
	service := newLegacyService(t,
		`CREATE TABLE users (user_id INTEGER PRIMARY KEY, balance NUMERIC DEFAULT 0, ads_today INTEGER DEFAULT 0)`,
		`CREATE TABLE ads (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL DEFAULT '',
			seconds INTEGER NOT NULL,
			vip_only INTEGER NOT NULL DEFAULT 0,
			active INTEGER NOT NULL DEFAULT 1,
			max_clicks INTEGER,
			clicks INTEGER NOT NULL DEFAULT 0
		)`)
	ctx := context.Background()

	if _, err := service.db.Exec("INSERT INTO ads (title, seconds) VALUES ('legacy ad', 15)"); err != nil {
		t.Fatalf("Failed to seed legacy ad: %v", err)
	}

	result, err := service.StartSession(ctx, 1, false)
	if err != nil {
		t.Fatalf("StartSession on legacy schema failed: %v", err)
	}
	if result.Seconds != 15 {
		t.Errorf("Expected duration from legacy seconds column, got %d", result.Seconds)
	}
	// No per-ad reward columns: the global schedule applies.
	mustEqual(t, result.Reward.Tl, decimal.RequireFromString("0.25"), "fallback reward tl")

	var mirrored int
	if err := service.db.QueryRow("SELECT ads_today FROM users WHERE user_id = 1").Scan(&mirrored); err != nil {
		t.Fatalf("Failed to read mirrored counter: %v", err)
	}
	if mirrored != 1 {
		t.Errorf("Expected legacy daily counter mirrored to 1, got %d", mirrored)
	}

	backdateSession(t, service, result.SessionId, 16*time.Second)
	completion, err := service.CompleteSession(ctx, result.SessionId, 1)
	if err != nil {
		t.Fatalf("CompleteSession on legacy schema failed: %v", err)
	}
	mustEqual(t, completion.Balances.Tl, decimal.RequireFromString("0.25"), "legacy tl balance")
	mustEqual(t, completion.Balances.Diamonds, decimal.Zero, "legacy diamond balance")
}
