package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxPool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it
// in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore keeps the checkpoint as a single JSONB document per job
// name. Row replacement via upsert gives the same atomicity as the file
// store's rename.
//
// Expected schema:
//
//	CREATE TABLE harvest_checkpoints (
//	    job_name   TEXT PRIMARY KEY,
//	    state      JSONB NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL
//	);
type PostgresStore struct {
	journal
	db  PgxPool
	job string
}

// NewPostgresStore connects a pool and pings it to fail fast on bad DSNs.
func NewPostgresStore(ctx context.Context, dsn, job string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresStoreWithPool(pool, job), nil
}

// NewPostgresStoreWithPool wraps an existing pool; used by tests.
func NewPostgresStoreWithPool(db PgxPool, job string) *PostgresStore {
	return &PostgresStore{journal: newJournal(), db: db, job: job}
}

// Load fetches and parses the job's checkpoint document.
func (s *PostgresStore) Load(ctx context.Context) error {
	var raw []byte
	query := `SELECT state FROM harvest_checkpoints WHERE job_name = $1`
	if err := s.db.QueryRow(ctx, query, s.job).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: job %s", ErrNotExist, s.job)
		}
		return fmt.Errorf("load checkpoint for job %s: %w", s.job, err)
	}
	rec, err := decodeRecord(raw)
	if err != nil {
		return fmt.Errorf("job %s: %w", s.job, err)
	}
	s.adopt(rec)
	return nil
}

// Flush upserts the current state.
func (s *PostgresStore) Flush(ctx context.Context) error {
	data, err := s.marshal()
	if err != nil {
		return err
	}
	query := `
		INSERT INTO harvest_checkpoints (job_name, state, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (job_name) DO UPDATE
		SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.Exec(ctx, query, s.job, data, time.Now().UTC()); err != nil {
		return fmt.Errorf("flush checkpoint for job %s: %w", s.job, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}
