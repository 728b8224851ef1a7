package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	Rewards  RewardConfig
	Server   ServerConfig
	Notify   NotifyConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// Ad selection policies.
const (
	PickPolicyRandom     = "random"
	PickPolicyRoundRobin = "round_robin"
)

// RewardConfig holds the reward schedule and session rules. Per-ad reward and
// duration columns override the defaults when present.
type RewardConfig struct {
	DefaultRewardTl       decimal.Decimal
	DefaultRewardDiamonds decimal.Decimal
	DefaultSeconds        int
	MinSeconds            int
	MaxSeconds            int
	OngoingRate           decimal.Decimal
	SignupRate            decimal.Decimal
	DailyLimit            int
	Tolerance             time.Duration
	PickPolicy            string
	ConvertDiamondPerTl   decimal.Decimal
	MinWithdraw           decimal.Decimal
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// NotifyConfig holds the outbound notification worker settings. An empty
// WebhookURL disables delivery; rows are drained with a debug log instead.
type NotifyConfig struct {
	WebhookURL   string
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	BaseBackoff  time.Duration
	HTTPTimeout  time.Duration
}
