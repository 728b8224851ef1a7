package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balances is the dual-currency balance pair returned to callers. User rows
// are created lazily on first interaction and read through adapter-resolved
// columns, so there is no fixed user struct.
type Balances struct {
	Tl       decimal.Decimal `json:"tl"`
	Diamonds decimal.Decimal `json:"diamonds"`
}

// Ad is an advertisement creative. Reward columns are nullable; a missing
// value falls back to the global reward schedule. An ad deactivates itself
// once Clicks reaches MaxClicks.
type Ad struct {
	Id             int64           `db:"id"`
	Title          string          `db:"title"`
	Seconds        int             `db:"duration_seconds"`
	RewardTl       decimal.Decimal `db:"reward_tl"`
	RewardDiamonds decimal.Decimal `db:"reward_diamonds"`
	VipOnly        bool            `db:"vip_only"`
	Active         bool            `db:"active"`
	MaxClicks      *int64          `db:"max_clicks"`
	Clicks         int64           `db:"clicks"`
	CreatedBy      int64           `db:"created_by"`
	CreatedAt      time.Time       `db:"created_at"`
}

// AdSession is one watch attempt. The required seconds and reward amounts are
// snapshotted at creation so later schedule changes never retroactively alter
// a pending session. The only transition is completed false -> true, once.
type AdSession struct {
	Id             string          `db:"id"`
	UserId         int64           `db:"user_id"`
	AdId           int64           `db:"ad_id"`
	Seconds        int             `db:"seconds"`
	RewardTl       decimal.Decimal `db:"reward_tl"`
	RewardDiamonds decimal.Decimal `db:"reward_diamonds"`
	StartedAt      time.Time       `db:"started_at"`
	Completed      bool            `db:"completed"`
	CompletedAt    *time.Time      `db:"completed_at"`
}

// ReferralEarning is an append-only audit record of a referral credit.
type ReferralEarning struct {
	Id             string          `db:"id"`
	ReferrerId     int64           `db:"referrer_id"`
	ReferredId     int64           `db:"referred_id"`
	SessionId      string          `db:"session_id"`
	AmountTl       decimal.Decimal `db:"amount_tl"`
	AmountDiamonds decimal.Decimal `db:"amount_diamonds"`
	CreatedAt      time.Time       `db:"created_at"`
}

// Withdraw request statuses. The balance is debited at request time; payout
// itself happens out of band.
const (
	WithdrawStatusPending  = "pending"
	WithdrawStatusApproved = "approved"
	WithdrawStatusRejected = "rejected"
	WithdrawStatusPaid     = "paid"
)

// WithdrawRequest records a payout request with a pessimistic balance hold.
type WithdrawRequest struct {
	Id          string          `db:"id"`
	UserId      int64           `db:"user_id"`
	Amount      decimal.Decimal `db:"amount"`
	Destination string          `db:"destination"`
	Status      string          `db:"status"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

// Notification is an outbound at-least-once delivery task, enqueued in the
// same transaction as the event it reports and delivered by a background
// worker.
type Notification struct {
	Id            string     `db:"id"`
	UserId        int64      `db:"user_id"`
	Kind          string     `db:"kind"`
	Payload       string     `db:"payload"`
	Attempts      int        `db:"attempts"`
	NextAttemptAt time.Time  `db:"next_attempt_at"`
	Delivered     bool       `db:"delivered"`
	CreatedAt     time.Time  `db:"created_at"`
	DeliveredAt   *time.Time `db:"delivered_at"`
}
