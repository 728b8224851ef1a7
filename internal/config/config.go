package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"adwatch-rewards-go/internal/models"

	"github.com/shopspring/decimal"
	yaml "gopkg.in/yaml.v2"
)

// Load reads configuration from environment variables, then overlays the
// optional YAML reward schedule (REWARDS_FILE) on top of the reward defaults.
func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}
	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	tolerance, err := getEnvDuration("WATCH_TOLERANCE", 450*time.Millisecond)
	if err != nil {
		return nil, err
	}
	readTimeout, err := getEnvDuration("HTTP_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	writeTimeout, err := getEnvDuration("HTTP_WRITE_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := getEnvDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	pollInterval, err := getEnvDuration("NOTIFY_POLL_INTERVAL", 5*time.Second)
	if err != nil {
		return nil, err
	}
	baseBackoff, err := getEnvDuration("NOTIFY_BASE_BACKOFF", 10*time.Second)
	if err != nil {
		return nil, err
	}
	httpTimeout, err := getEnvDuration("NOTIFY_HTTP_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	rewards := models.RewardConfig{
		DefaultRewardTl:       getEnvDecimal("REWARD_TL", decimal.RequireFromString("0.25")),
		DefaultRewardDiamonds: getEnvDecimal("REWARD_DIAMONDS", decimal.RequireFromString("0.25")),
		DefaultSeconds:        getEnvInt("WATCH_SECONDS", 15),
		MinSeconds:            getEnvInt("WATCH_MIN_SECONDS", 3),
		MaxSeconds:            getEnvInt("WATCH_MAX_SECONDS", 300),
		OngoingRate:           getEnvDecimal("REFERRAL_ONGOING_RATE", decimal.RequireFromString("0.05")),
		SignupRate:            getEnvDecimal("REFERRAL_SIGNUP_RATE", decimal.RequireFromString("0.18")),
		DailyLimit:            getEnvInt("DAILY_LIMIT", 50),
		Tolerance:             tolerance,
		PickPolicy:            getEnvString("PICK_POLICY", models.PickPolicyRandom),
		ConvertDiamondPerTl:   getEnvDecimal("CONVERT_DIAMOND_PER_TL", decimal.NewFromInt(1)),
		MinWithdraw:           getEnvDecimal("MIN_WITHDRAW", decimal.NewFromInt(10)),
	}

	if rewardsFile := getEnvString("REWARDS_FILE", ""); rewardsFile != "" {
		if err := overlayRewardFile(rewardsFile, &rewards); err != nil {
			return nil, err
		}
	}

	if rewards.PickPolicy != models.PickPolicyRandom && rewards.PickPolicy != models.PickPolicyRoundRobin {
		return nil, fmt.Errorf("invalid pick policy %q", rewards.PickPolicy)
	}
	if rewards.MinSeconds <= 0 || rewards.MaxSeconds < rewards.MinSeconds {
		return nil, fmt.Errorf("invalid watch duration bounds [%d, %d]", rewards.MinSeconds, rewards.MaxSeconds)
	}
	if !rewards.ConvertDiamondPerTl.IsPositive() {
		return nil, fmt.Errorf("conversion rate must be positive, got %s", rewards.ConvertDiamondPerTl.String())
	}
	if rewards.MinWithdraw.IsNegative() {
		return nil, fmt.Errorf("withdrawal minimum cannot be negative, got %s", rewards.MinWithdraw.String())
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "adwatch.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
		},
		Rewards: rewards,
		Server: models.ServerConfig{
			Addr:            getEnvString("HTTP_ADDR", ":8080"),
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
		},
		Notify: models.NotifyConfig{
			WebhookURL:   getEnvString("NOTIFY_WEBHOOK_URL", ""),
			PollInterval: pollInterval,
			BatchSize:    getEnvInt("NOTIFY_BATCH_SIZE", 50),
			MaxAttempts:  getEnvInt("NOTIFY_MAX_ATTEMPTS", 8),
			BaseBackoff:  baseBackoff,
			HTTPTimeout:  httpTimeout,
		},
	}, nil
}

// rewardFile mirrors RewardConfig for the YAML overlay. Amounts are strings
// so they survive the trip into decimal without float noise. Zero values mean
// "keep the env/default value".
type rewardFile struct {
	RewardTl       string `yaml:"reward_tl"`
	RewardDiamonds string `yaml:"reward_diamonds"`
	OngoingRate    string `yaml:"ongoing_rate"`
	SignupRate     string `yaml:"signup_rate"`
	DailyLimit     int    `yaml:"daily_limit"`
	MinWithdraw    string `yaml:"min_withdraw"`
	PickPolicy     string `yaml:"pick_policy"`
}

func overlayRewardFile(path string, rewards *models.RewardConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to read %s: %w", path, err)
	}

	var file rewardFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("unable to parse %s: %w", path, err)
	}

	assign := func(field *decimal.Decimal, raw, name string) error {
		if raw == "" {
			return nil
		}
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("invalid %s in %s: %q (%w)", name, path, raw, err)
		}
		*field = value
		return nil
	}

	if err := assign(&rewards.DefaultRewardTl, file.RewardTl, "reward_tl"); err != nil {
		return err
	}
	if err := assign(&rewards.DefaultRewardDiamonds, file.RewardDiamonds, "reward_diamonds"); err != nil {
		return err
	}
	if err := assign(&rewards.OngoingRate, file.OngoingRate, "ongoing_rate"); err != nil {
		return err
	}
	if err := assign(&rewards.SignupRate, file.SignupRate, "signup_rate"); err != nil {
		return err
	}
	if err := assign(&rewards.MinWithdraw, file.MinWithdraw, "min_withdraw"); err != nil {
		return err
	}
	if file.DailyLimit > 0 {
		rewards.DailyLimit = file.DailyLimit
	}
	if file.PickPolicy != "" {
		rewards.PickPolicy = file.PickPolicy
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if decValue, err := decimal.NewFromString(value); err == nil {
			return decValue
		}
	}
	return defaultValue
}
