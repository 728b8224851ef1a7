package database

import (
	"context"
	"database/sql"
	"fmt"

	"adwatch-rewards-go/internal/models"
	"adwatch-rewards-go/internal/schema"
	"adwatch-rewards-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.RewardStore.
var _ store.RewardStore = (*Service)(nil)

// Service is the sqlite-backed reward engine. All monetary mutations run as
// short transactions; the session-completion flip and the watcher's credit
// share one transaction, the referral cascade runs in its own afterwards.
type Service struct {
	db      *sql.DB
	adapter *schema.Adapter
	rewards models.RewardConfig
}

func NewService(ctx context.Context, cfg models.DatabaseConfig, rewards models.RewardConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}
	if rewards.DailyLimit <= 0 {
		return nil, fmt.Errorf("daily limit must be positive, got %d", rewards.DailyLimit)
	}
	if !rewards.ConvertDiamondPerTl.IsPositive() {
		return nil, fmt.Errorf("conversion rate must be positive, got %s", rewards.ConvertDiamondPerTl.String())
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", sqliteDSN(cfg.Path))
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := &Service{db: db, rewards: rewards}
	if err := service.initSchema(); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	// Resolve which physical columns back the logical user/ad attributes.
	// A missing user identifier is fatal; optional attributes degrade at the
	// call sites.
	adapter, err := schema.Resolve(ctx, db, "users", "ads")
	if err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("unable to resolve schema: %w", err)
	}
	service.adapter = adapter

	zap.L().Info("Reward store initialized",
		zap.Int("daily_limit", rewards.DailyLimit),
		zap.String("pick_policy", rewards.PickPolicy))
	return service, nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

// sqliteDSN appends the connection parameters for file-backed databases: WAL
// journaling, a busy timeout, and immediate transactions so writers take the
// write lock at BEGIN instead of racing for it at first write.
func sqliteDSN(path string) string {
	if path == ":memory:" {
		return path
	}
	return path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_txlock=immediate"
}

// initSchema creates the canonical tables. Legacy deployments with drifted
// user/ad column names keep working through the schema adapter; new tables
// always use the canonical layout.
func (s *Service) initSchema() error {
	schemaSQL := `
	CREATE TABLE IF NOT EXISTS users (
		tg_id INTEGER PRIMARY KEY,
		balance_tl NUMERIC NOT NULL DEFAULT 0,
		diamonds NUMERIC NOT NULL DEFAULT 0,
		referred_by INTEGER,
		is_vip INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS ads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL DEFAULT '',
		duration_seconds INTEGER NOT NULL,
		reward_tl NUMERIC,
		reward_diamonds NUMERIC,
		vip_only INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1,
		max_clicks INTEGER,
		clicks INTEGER NOT NULL DEFAULT 0,
		created_by INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_ads_active ON ads(active, vip_only);

	CREATE TABLE IF NOT EXISTS ad_sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		ad_id INTEGER NOT NULL,
		seconds INTEGER NOT NULL,
		reward_tl NUMERIC NOT NULL,
		reward_diamonds NUMERIC NOT NULL,
		started_at TIMESTAMP NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0,
		completed_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_ad_sessions_user ON ad_sessions(user_id, completed);

	CREATE TABLE IF NOT EXISTS daily_counters (
		user_id INTEGER NOT NULL,
		day TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (user_id, day)
	);

	CREATE TABLE IF NOT EXISTS referral_earnings (
		id TEXT PRIMARY KEY,
		referrer_id INTEGER NOT NULL,
		referred_id INTEGER NOT NULL,
		session_id TEXT NOT NULL,
		amount_tl NUMERIC NOT NULL,
		amount_diamonds NUMERIC NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_referral_earnings_referrer ON referral_earnings(referrer_id, created_at);

	CREATE TABLE IF NOT EXISTS withdraw_requests (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		amount NUMERIC NOT NULL,
		destination TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_withdraw_requests_user ON withdraw_requests(user_id, created_at);

	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		payload TEXT NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		next_attempt_at TIMESTAMP NOT NULL,
		delivered INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		delivered_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_due ON notifications(delivered, next_attempt_at);
	`

	_, err := s.db.Exec(schemaSQL)
	return err
}

// execer is satisfied by both *sql.DB and *sql.Tx so the account helpers can
// run inside or outside a transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
