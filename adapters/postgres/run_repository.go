// Package postgres persists pipeline runs and their result lists.
package postgres

import (
	"context"
	"encoding/json"

	"claimlab/domain/abtest"
	"claimlab/internal/errors"
	"claimlab/ports"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS ab_runs (
	id UUID PRIMARY KEY,
	alpha DOUBLE PRECISION NOT NULL,
	spec_count INTEGER NOT NULL,
	result_count INTEGER NOT NULL,
	config_digest TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS ab_test_results (
	id UUID PRIMARY KEY,
	run_id UUID NOT NULL REFERENCES ab_runs(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	name TEXT NOT NULL,
	feature TEXT NOT NULL,
	group_a TEXT NOT NULL,
	group_b TEXT NOT NULL,
	kpi TEXT NOT NULL,
	test_kind TEXT NOT NULL,
	statistic DOUBLE PRECISION NOT NULL,
	p_value DOUBLE PRECISION NOT NULL,
	decision TEXT NOT NULL,
	group_a_size INTEGER NOT NULL,
	group_b_size INTEGER NOT NULL,
	balance_flags JSONB NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_ab_test_results_run ON ab_test_results(run_id, position);
`

// RunRepository implements ports.ResultStore for PostgreSQL.
type RunRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a PostgreSQL run repository.
func NewRunRepository(db *sqlx.DB) ports.ResultStore {
	return &RunRepository{db: db}
}

// Open connects to the database and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ensure schema")
	}
	return db, nil
}

// SaveRun stores a run and its ordered results in one transaction.
func (r *RunRepository) SaveRun(ctx context.Context, run abtest.Run, results []abtest.TestResult) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ab_runs (id, alpha, spec_count, result_count, config_digest)
		VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.Alpha, run.SpecCount, run.ResultCount, run.ConfigDigest)
	if err != nil {
		return errors.Wrap(err, "failed to insert run")
	}

	for i, result := range results {
		flags, _ := json.Marshal(result.BalanceFlags)
		if result.BalanceFlags == nil {
			flags = []byte("[]")
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO ab_test_results (
				id, run_id, position, name, feature, group_a, group_b,
				kpi, test_kind, statistic, p_value, decision,
				group_a_size, group_b_size, balance_flags
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			result.ID, run.ID, i, result.Name, result.Feature, result.GroupA, result.GroupB,
			result.KPI, result.Test, result.Statistic, result.PValue, result.Decision,
			result.GroupASize, result.GroupBSize, flags)
		if err != nil {
			return errors.Wrapf(err, "failed to insert result %q", result.Name)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit run")
	}
	return nil
}

// ListRuns returns stored runs, newest first.
func (r *RunRepository) ListRuns(ctx context.Context) ([]abtest.Run, error) {
	var runs []abtest.Run
	err := r.db.SelectContext(ctx, &runs, `
		SELECT id, alpha, spec_count, result_count, config_digest
		FROM ab_runs
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list runs")
	}
	return runs, nil
}

// ResultsByRun returns the ordered result list of one run.
func (r *RunRepository) ResultsByRun(ctx context.Context, runID string) ([]abtest.TestResult, error) {
	id, err := uuid.Parse(runID)
	if err != nil {
		return nil, errors.ConfigInvalid("invalid run id: " + runID)
	}

	rows, err := r.db.QueryxContext(ctx, `
		SELECT id, name, feature, group_a, group_b, kpi, test_kind,
		       statistic, p_value, decision, group_a_size, group_b_size, balance_flags
		FROM ab_test_results
		WHERE run_id = $1
		ORDER BY position`, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query results")
	}
	defer rows.Close()

	var results []abtest.TestResult
	for rows.Next() {
		var result abtest.TestResult
		var flags []byte
		err := rows.Scan(&result.ID, &result.Name, &result.Feature, &result.GroupA, &result.GroupB,
			&result.KPI, &result.Test, &result.Statistic, &result.PValue, &result.Decision,
			&result.GroupASize, &result.GroupBSize, &flags)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan result row")
		}
		if len(flags) > 0 {
			_ = json.Unmarshal(flags, &result.BalanceFlags)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// NewRun builds the run record persisted alongside a result list.
func NewRun(alpha float64, specCount int, results []abtest.TestResult, configDigest string) abtest.Run {
	return abtest.Run{
		ID:           uuid.New(),
		Alpha:        alpha,
		SpecCount:    specCount,
		ResultCount:  len(results),
		ConfigDigest: configDigest,
	}
}
