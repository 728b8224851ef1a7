package database

// Static SQL lives here. Queries against the users table (and the ads table's
// reward/duration columns) are built at the call sites from adapter-resolved
// column names, validated against the identifier pattern during resolution.
const (
	// Session queries
	queryInsertSession = `
		INSERT INTO ad_sessions (id, user_id, ad_id, seconds, reward_tl, reward_diamonds, started_at, completed)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0)`

	queryGetSession = `
		SELECT id, user_id, ad_id, seconds, reward_tl, reward_diamonds, started_at, completed
		FROM ad_sessions
		WHERE id = ?`

	// The conditional flip: two racing completions may both reach this
	// statement, only one observes rows_affected = 1.
	queryCompleteSession = `
		UPDATE ad_sessions
		SET completed = 1, completed_at = ?
		WHERE id = ? AND completed = 0`

	queryCountCompletedSessions = `
		SELECT COUNT(*)
		FROM ad_sessions
		WHERE user_id = ? AND completed = 1`

	// Ad queries
	queryInsertAd = `
		INSERT INTO ads (title, duration_seconds, reward_tl, reward_diamonds, vip_only, active, max_clicks, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	// Click accounting and cap-based deactivation in one statement.
	queryRecordAdClick = `
		UPDATE ads
		SET clicks = clicks + 1,
		    active = CASE WHEN max_clicks IS NOT NULL AND clicks + 1 >= max_clicks THEN 0 ELSE active END
		WHERE id = ?`

	// Daily quota queries
	queryQuotaCount = `
		SELECT count FROM daily_counters WHERE user_id = ? AND day = ?`

	queryQuotaIncrement = `
		INSERT INTO daily_counters (user_id, day, count) VALUES (?, ?, 1)
		ON CONFLICT(user_id, day) DO UPDATE SET count = count + 1`

	// Referral ledger queries
	queryInsertReferralEarning = `
		INSERT INTO referral_earnings (id, referrer_id, referred_id, session_id, amount_tl, amount_diamonds, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	queryGetReferralEarnings = `
		SELECT id, referrer_id, referred_id, session_id, amount_tl, amount_diamonds, created_at
		FROM referral_earnings
		WHERE referrer_id = ?
		ORDER BY created_at DESC
		LIMIT ?`

	// Withdraw queries
	queryInsertWithdrawRequest = `
		INSERT INTO withdraw_requests (id, user_id, amount, destination, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	queryGetWithdrawRequests = `
		SELECT id, user_id, amount, destination, status, created_at, updated_at
		FROM withdraw_requests
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?`

	// Notification queries
	queryInsertNotification = `
		INSERT INTO notifications (id, user_id, kind, payload, attempts, next_attempt_at, delivered, created_at)
		VALUES (?, ?, ?, ?, 0, ?, 0, ?)`

	queryDueNotifications = `
		SELECT id, user_id, kind, payload, attempts
		FROM notifications
		WHERE delivered = 0 AND next_attempt_at <= ?
		ORDER BY next_attempt_at
		LIMIT ?`

	queryMarkNotificationDelivered = `
		UPDATE notifications SET delivered = 1, delivered_at = ? WHERE id = ?`

	queryRescheduleNotification = `
		UPDATE notifications SET attempts = ?, next_attempt_at = ? WHERE id = ?`
)
