package schema

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Attr is a logical attribute name. Deployments of this system drifted in how
// they named the physical columns, so every query that touches the users or
// ads table goes through an Adapter that resolved the live names once at
// startup.
type Attr string

const (
	UserId         Attr = "tg_id"
	UserBalanceTl  Attr = "balance_tl"
	UserDiamonds   Attr = "diamonds"
	UserDaily      Attr = "daily_ads_watched"
	UserReferredBy Attr = "referred_by"
	UserVip        Attr = "is_vip"

	AdSeconds        Attr = "duration_seconds"
	AdRewardTl       Attr = "reward_tl"
	AdRewardDiamonds Attr = "reward_diamonds"
)

// Candidate physical names per logical attribute, in priority order. The
// first name present in the live table wins.
var userCandidates = map[Attr][]string{
	UserId:         {"tg_id", "telegram_id", "user_id", "uid", "id"},
	UserBalanceTl:  {"balance_tl", "tl_balance", "balance", "money"},
	UserDiamonds:   {"diamonds", "diamond", "gems", "crystals"},
	UserDaily:      {"daily_ads_watched", "ads_today", "daily_count", "watched_today"},
	UserReferredBy: {"referred_by", "referrer_id", "ref_id", "invited_by"},
	UserVip:        {"is_vip", "vip"},
}

var adCandidates = map[Attr][]string{
	AdSeconds:        {"duration_seconds", "seconds", "watch_seconds", "duration"},
	AdRewardTl:       {"reward_tl", "reward", "price_tl"},
	AdRewardDiamonds: {"reward_diamonds", "diamonds_reward", "reward_diamond"},
}

// identPattern is the only shape a resolved identifier may take before it is
// interpolated into SQL text.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Adapter holds the resolved logical-to-physical column mapping for one
// database. Resolution happens once; lookups afterwards are map reads.
type Adapter struct {
	usersTable string
	adsTable   string
	userCols   map[Attr]string
	adCols     map[Attr]string
}

// Resolve introspects the catalog of db and builds the column mapping for the
// users and ads tables. The user identifier is mandatory: if no candidate
// column exists the whole initialization fails and the caller must treat that
// as fatal. Every other attribute is optional and degrades at the call site.
func Resolve(ctx context.Context, db *sql.DB, usersTable, adsTable string) (*Adapter, error) {
	for _, table := range []string{usersTable, adsTable} {
		if !identPattern.MatchString(table) {
			return nil, fmt.Errorf("invalid table name %q", table)
		}
	}

	userCols, err := resolveTable(ctx, db, usersTable, userCandidates)
	if err != nil {
		return nil, err
	}
	if _, ok := userCols[UserId]; !ok {
		return nil, fmt.Errorf("table %s has no user identifier column (tried %s)",
			usersTable, strings.Join(userCandidates[UserId], ", "))
	}

	adCols, err := resolveTable(ctx, db, adsTable, adCandidates)
	if err != nil {
		return nil, err
	}

	zap.L().Info("Schema adapter resolved",
		zap.String("users_table", usersTable),
		zap.String("ads_table", adsTable),
		zap.Int("user_columns", len(userCols)),
		zap.Int("ad_columns", len(adCols)))

	return &Adapter{
		usersTable: usersTable,
		adsTable:   adsTable,
		userCols:   userCols,
		adCols:     adCols,
	}, nil
}

func resolveTable(ctx context.Context, db *sql.DB, table string, candidates map[Attr][]string) (map[Attr]string, error) {
	existing, err := tableColumns(ctx, db, table)
	if err != nil {
		return nil, err
	}

	resolved := make(map[Attr]string, len(candidates))
	for attr, names := range candidates {
		for _, name := range names {
			if _, ok := existing[strings.ToLower(name)]; !ok {
				continue
			}
			if !identPattern.MatchString(name) {
				return nil, fmt.Errorf("resolved column %q for %s.%s is not a valid identifier", name, table, attr)
			}
			resolved[attr] = name
			break
		}
		if _, ok := resolved[attr]; !ok {
			zap.L().Debug("Optional attribute has no backing column",
				zap.String("table", table),
				zap.String("attribute", string(attr)))
		}
	}
	return resolved, nil
}

// tableColumns lists the physical columns of table, lower-cased.
func tableColumns(ctx context.Context, db *sql.DB, table string) (map[string]struct{}, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("unable to introspect table %s: %w", table, err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	cols := make(map[string]struct{})
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return nil, fmt.Errorf("unable to scan table_info row for %s: %w", table, err)
		}
		cols[strings.ToLower(name)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating table_info rows for %s: %w", table, err)
	}
	return cols, nil
}

// UsersTable returns the validated users table name.
func (a *Adapter) UsersTable() string { return a.usersTable }

// AdsTable returns the validated ads table name.
func (a *Adapter) AdsTable() string { return a.adsTable }

// UserCol returns the physical column backing a logical user attribute.
func (a *Adapter) UserCol(attr Attr) (string, bool) {
	col, ok := a.userCols[attr]
	return col, ok
}

// AdCol returns the physical column backing a logical ad attribute.
func (a *Adapter) AdCol(attr Attr) (string, bool) {
	col, ok := a.adCols[attr]
	return col, ok
}

// UserIdCol returns the mandatory user identifier column. Resolve guarantees
// it exists.
func (a *Adapter) UserIdCol() string { return a.userCols[UserId] }
