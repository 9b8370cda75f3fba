package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/okian/cadence/internal/domain/model"
	"github.com/okian/cadence/internal/domain/weights"
)

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore persists pipeline state in a single SQLite database.
// Nested structures are stored as JSON columns; lookups go through the
// primary keys only, so no secondary indexes are needed.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and ensures the
// schema exists. Use ":memory:" for tests.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS account_profiles (
	account_id TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS weight_sets (
	version    TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS touchpoint_plans (
	campaign_id TEXT NOT NULL,
	account_id  TEXT NOT NULL,
	payload     TEXT NOT NULL,
	updated_at  TEXT NOT NULL,
	PRIMARY KEY (campaign_id, account_id)
);
CREATE TABLE IF NOT EXISTS campaign_results (
	campaign_id TEXT PRIMARY KEY,
	payload     TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// SaveProfile upserts the account's live profile.
func (s *SQLiteStore) SaveProfile(ctx context.Context, p model.AccountProfile) error {
	return s.upsert(ctx,
		`INSERT INTO account_profiles (account_id, payload, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(account_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		p, p.AccountID)
}

// Profile loads the account's live profile.
func (s *SQLiteStore) Profile(ctx context.Context, accountID string) (model.AccountProfile, error) {
	var p model.AccountProfile
	err := s.load(ctx, `SELECT payload FROM account_profiles WHERE account_id = ?`, &p, accountID)
	return p, err
}

// SaveWeightSet stores an immutable weight set version. Versions are never
// overwritten.
func (s *SQLiteStore) SaveWeightSet(ctx context.Context, ws weights.WeightSet) error {
	return s.upsert(ctx,
		`INSERT INTO weight_sets (version, payload, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(version) DO NOTHING`,
		ws, ws.Version)
}

// WeightSet loads a weight set by version.
func (s *SQLiteStore) WeightSet(ctx context.Context, version string) (weights.WeightSet, error) {
	var ws weights.WeightSet
	err := s.load(ctx, `SELECT payload FROM weight_sets WHERE version = ?`, &ws, version)
	return ws, err
}

// SavePlan upserts the account's plan for a campaign.
func (s *SQLiteStore) SavePlan(ctx context.Context, plan model.TouchpointPlan) error {
	payload, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("encoding plan: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO touchpoint_plans (campaign_id, account_id, payload, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(campaign_id, account_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		plan.CampaignID, plan.AccountID, string(payload), now())
	if err != nil {
		return fmt.Errorf("saving plan: %w", err)
	}
	return nil
}

// Plan loads the account's plan for a campaign.
func (s *SQLiteStore) Plan(ctx context.Context, campaignID, accountID string) (model.TouchpointPlan, error) {
	var plan model.TouchpointPlan
	err := s.load(ctx, `SELECT payload FROM touchpoint_plans WHERE campaign_id = ? AND account_id = ?`,
		&plan, campaignID, accountID)
	return plan, err
}

// SaveResult upserts a campaign result snapshot.
func (s *SQLiteStore) SaveResult(ctx context.Context, result *model.CampaignResult) error {
	return s.upsert(ctx,
		`INSERT INTO campaign_results (campaign_id, payload, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(campaign_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		result, result.CampaignID)
}

// Result loads a campaign result by campaign id.
func (s *SQLiteStore) Result(ctx context.Context, campaignID string) (*model.CampaignResult, error) {
	var result model.CampaignResult
	if err := s.load(ctx, `SELECT payload FROM campaign_results WHERE campaign_id = ?`, &result, campaignID); err != nil {
		return nil, err
	}
	return &result, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) upsert(ctx context.Context, query string, v any, key string) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding record %s: %w", key, err)
	}
	if _, err := s.db.ExecContext(ctx, query, key, string(payload), now()); err != nil {
		return fmt.Errorf("saving record %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) load(ctx context.Context, query string, dst any, args ...any) error {
	var payload string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("loading record: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), dst); err != nil {
		return fmt.Errorf("decoding record: %w", err)
	}
	return nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
