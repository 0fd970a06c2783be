// File: internal/store/store.go

// Package store persists terminal run results to PostgreSQL.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/forgelabs-io/accountforge/internal/pipeline"
)

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store provides a PostgreSQL implementation of the result repository.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

const sqlCreateAccounts = `
	CREATE TABLE IF NOT EXISTS accounts (
		run_id        UUID PRIMARY KEY,
		outcome       TEXT NOT NULL,
		reason        TEXT NOT NULL DEFAULT '',
		last_state    TEXT NOT NULL,
		email         TEXT NOT NULL DEFAULT '',
		password      TEXT NOT NULL DEFAULT '',
		first_name    TEXT NOT NULL DEFAULT '',
		last_name     TEXT NOT NULL DEFAULT '',
		phone_number  TEXT NOT NULL DEFAULT '',
		phone_country TEXT NOT NULL DEFAULT '',
		activation_id TEXT NOT NULL DEFAULT '',
		profile_id    TEXT NOT NULL DEFAULT '',
		started_at    TIMESTAMPTZ NOT NULL,
		finished_at   TIMESTAMPTZ NOT NULL
	);
`

const sqlInsertAccount = `
	INSERT INTO accounts (
		run_id, outcome, reason, last_state,
		email, password, first_name, last_name,
		phone_number, phone_country, activation_id, profile_id,
		started_at, finished_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	ON CONFLICT (run_id) DO NOTHING;
`

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// InitSchema creates the accounts table when it does not exist yet.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, sqlCreateAccounts); err != nil {
		return fmt.Errorf("failed to create accounts table: %w", err)
	}
	return nil
}

// SaveResult inserts one terminal run record. Re-saving the same run is a
// no-op.
func (s *Store) SaveResult(ctx context.Context, result *pipeline.RunResult) error {
	tag, err := s.pool.Exec(ctx, sqlInsertAccount,
		result.RunID,
		string(result.Outcome),
		result.Reason,
		string(result.LastState),
		result.Email,
		result.Password,
		result.FirstName,
		result.LastName,
		result.PhoneNumber,
		result.PhoneCountry,
		result.ActivationID,
		result.ProfileID,
		result.StartedAt,
		result.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		s.log.Debug("Run result already persisted.", zap.String("run_id", result.RunID.String()))
	}
	return nil
}

// CountByOutcome reports how many stored runs finished with the given
// outcome.
func (s *Store) CountByOutcome(ctx context.Context, outcome pipeline.Outcome) (int64, error) {
	var n int64
	row := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE outcome = $1`, string(outcome))
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count results: %w", err)
	}
	return n, nil
}
