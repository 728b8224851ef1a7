package store

import (
	"context"
	"errors"
	"fmt"

	"adwatch-rewards-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across backends and mapped to wire error codes by
// the HTTP layer.
var (
	ErrDailyLimit          = errors.New("daily watch limit reached")
	ErrNoAd                = errors.New("no eligible ad")
	ErrSessionNotFound     = errors.New("session not found")
	ErrNotYourSession      = errors.New("session owned by another user")
	ErrTooEarly            = errors.New("required watch time not elapsed")
	ErrBadAmount           = errors.New("amount must be positive")
	ErrInvalidDirection    = errors.New("invalid conversion direction")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrMinWithdraw         = errors.New("amount below withdrawal minimum")
)

// TooEarlyError reports how many seconds are still missing. It matches
// ErrTooEarly under errors.Is so callers can branch without unpacking.
type TooEarlyError struct {
	Remaining decimal.Decimal
}

func (e *TooEarlyError) Error() string {
	return fmt.Sprintf("required watch time not elapsed, %s seconds remaining", e.Remaining.String())
}

func (e *TooEarlyError) Is(target error) bool { return target == ErrTooEarly }

// DailyLimitError reports the cap that was hit. It matches ErrDailyLimit
// under errors.Is.
type DailyLimitError struct {
	Limit int
}

func (e *DailyLimitError) Error() string {
	return fmt.Sprintf("daily watch limit of %d reached", e.Limit)
}

func (e *DailyLimitError) Is(target error) bool { return target == ErrDailyLimit }

// StartResult is the snapshot handed back when a session is opened.
type StartResult struct {
	SessionId string
	Seconds   int
	Reward    models.Balances
	Ad        models.AdSummary
	Seen      int
	Limit     int
}

// CompleteResult reports the outcome of a completion attempt. Already is true
// when the session had been completed before this call; no additional reward
// was credited in that case.
type CompleteResult struct {
	Already  bool
	Balances models.Balances
}

// Conversion directions.
const (
	DirectionTlToDiamond = "tl_to_diamond"
	DirectionDiamondToTl = "diamond_to_tl"
)

// RewardStore defines the contract the ad-watch engine exposes to the HTTP
// layer and the operator tooling.
type RewardStore interface {
	// --- Accounts ---
	EnsureUser(ctx context.Context, userId int64, referrerId *int64) error
	GetBalances(ctx context.Context, userId int64) (models.Balances, error)
	Credit(ctx context.Context, userId int64, deltaTl, deltaDiamonds decimal.Decimal) error

	// --- Sessions ---
	StartSession(ctx context.Context, userId int64, wantsVip bool) (*StartResult, error)
	CompleteSession(ctx context.Context, sessionId string, userId int64) (*CompleteResult, error)
	TodayCount(ctx context.Context, userId int64) (int, error)

	// --- Inventory ---
	CreateAd(ctx context.Context, ad models.Ad) (int64, error)

	// --- Money movement ---
	Convert(ctx context.Context, userId int64, amount decimal.Decimal, direction string) (models.Balances, error)
	RequestWithdraw(ctx context.Context, userId int64, amount decimal.Decimal, destination string) (*models.WithdrawRequest, error)
	ListWithdrawRequests(ctx context.Context, userId int64, limit int) ([]models.WithdrawRequest, error)

	// --- Audit ---
	ReferralEarnings(ctx context.Context, referrerId int64, limit int) ([]models.ReferralEarning, error)

	// --- Lifecycle ---
	Close()
}
