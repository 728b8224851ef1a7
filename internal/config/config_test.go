package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"adwatch-rewards-go/internal/models"

	"github.com/shopspring/decimal"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Path != "adwatch.db" {
		t.Errorf("Expected default database path, got %s", cfg.Database.Path)
	}
	if !cfg.Rewards.DefaultRewardTl.Equal(decimal.RequireFromString("0.25")) {
		t.Errorf("Expected default reward 0.25, got %s", cfg.Rewards.DefaultRewardTl.String())
	}
	if cfg.Rewards.DailyLimit != 50 {
		t.Errorf("Expected daily limit 50, got %d", cfg.Rewards.DailyLimit)
	}
	if cfg.Rewards.Tolerance != 450*time.Millisecond {
		t.Errorf("Expected 450ms tolerance, got %s", cfg.Rewards.Tolerance)
	}
	if cfg.Rewards.PickPolicy != models.PickPolicyRandom {
		t.Errorf("Expected random pick policy, got %s", cfg.Rewards.PickPolicy)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Expected default address, got %s", cfg.Server.Addr)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("REWARD_TL", "0.40")
	t.Setenv("DAILY_LIMIT", "10")
	t.Setenv("WATCH_TOLERANCE", "1s")
	t.Setenv("PICK_POLICY", models.PickPolicyRoundRobin)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !cfg.Rewards.DefaultRewardTl.Equal(decimal.RequireFromString("0.40")) {
		t.Errorf("Expected reward 0.40, got %s", cfg.Rewards.DefaultRewardTl.String())
	}
	if cfg.Rewards.DailyLimit != 10 {
		t.Errorf("Expected daily limit 10, got %d", cfg.Rewards.DailyLimit)
	}
	if cfg.Rewards.Tolerance != time.Second {
		t.Errorf("Expected 1s tolerance, got %s", cfg.Rewards.Tolerance)
	}
	if cfg.Rewards.PickPolicy != models.PickPolicyRoundRobin {
		t.Errorf("Expected round_robin, got %s", cfg.Rewards.PickPolicy)
	}
}

func TestLoad_RewardFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rewards.yaml")
	content := "reward_tl: \"0.50\"\ndaily_limit: 5\nsignup_rate: \"0.20\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write reward file: %v", err)
	}
	t.Setenv("REWARDS_FILE", path)
	t.Setenv("REWARD_DIAMONDS", "0.30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// File wins where set, env/default carries the rest.
	if !cfg.Rewards.DefaultRewardTl.Equal(decimal.RequireFromString("0.50")) {
		t.Errorf("Expected file reward 0.50, got %s", cfg.Rewards.DefaultRewardTl.String())
	}
	if cfg.Rewards.DailyLimit != 5 {
		t.Errorf("Expected file daily limit 5, got %d", cfg.Rewards.DailyLimit)
	}
	if !cfg.Rewards.SignupRate.Equal(decimal.RequireFromString("0.20")) {
		t.Errorf("Expected file signup rate 0.20, got %s", cfg.Rewards.SignupRate.String())
	}
	if !cfg.Rewards.DefaultRewardDiamonds.Equal(decimal.RequireFromString("0.30")) {
		t.Errorf("Expected env diamond reward 0.30, got %s", cfg.Rewards.DefaultRewardDiamonds.String())
	}
}

func TestLoad_RejectsInvalidPickPolicy(t *testing.T) {
	t.Setenv("PICK_POLICY", "alphabetical")

	if _, err := Load(); err == nil {
		t.Fatal("Expected error for unknown pick policy")
	}
}

func TestLoad_RejectsInvalidDurationBounds(t *testing.T) {
	t.Setenv("WATCH_MIN_SECONDS", "30")
	t.Setenv("WATCH_MAX_SECONDS", "10")

	if _, err := Load(); err == nil {
		t.Fatal("Expected error for inverted duration bounds")
	}
}

func TestLoad_RejectsNonPositiveConvertRate(t *testing.T) {
	t.Setenv("CONVERT_DIAMOND_PER_TL", "0")

	if _, err := Load(); err == nil {
		t.Fatal("Expected error for zero conversion rate")
	}

	t.Setenv("CONVERT_DIAMOND_PER_TL", "-2")
	if _, err := Load(); err == nil {
		t.Fatal("Expected error for negative conversion rate")
	}
}

func TestLoad_RejectsNegativeMinWithdraw(t *testing.T) {
	t.Setenv("MIN_WITHDRAW", "-1")

	if _, err := Load(); err == nil {
		t.Fatal("Expected error for negative withdrawal minimum")
	}
}

func TestLoad_RejectsBadDuration(t *testing.T) {
	t.Setenv("WATCH_TOLERANCE", "not-a-duration")

	if _, err := Load(); err == nil {
		t.Fatal("Expected error for malformed duration")
	}
}
