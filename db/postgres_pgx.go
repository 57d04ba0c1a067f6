package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool wraps a pgx connection pool with the small set of helpers the store,
// query, and snapshot packages need: plain exec/query, row scanning, and
// transaction-scoped execution for multi-statement writes that must commit
// atomically.
type Pool struct {
	pool *pgxpool.Pool
}

// Open creates a Pool from a standard PostgreSQL connection string
// (postgresql://[user[:password]@][host][:port][/dbname][?params]), pinging
// once to fail fast on a bad connection string rather than on first use.
func Open(ctx context.Context, connString string) (*Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("db: creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db: pinging database: %w", err)
	}
	return &Pool{pool: pool}, nil
}

// Close releases every connection in the pool.
func (p *Pool) Close() { p.pool.Close() }

// Exec runs a statement that returns no rows.
func (p *Pool) Exec(ctx context.Context, sql string, args ...any) error {
	_, err := p.pool.Exec(ctx, sql, args...)
	return err
}

// Query runs a statement that returns rows. The caller must close the
// returned Rows.
func (p *Pool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return p.pool.Query(ctx, sql, args...)
}

// QueryRow runs a statement expected to return at most one row.
func (p *Pool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return p.pool.QueryRow(ctx, sql, args...)
}

// Raw returns the underlying pgxpool.Pool for callers that need batch
// operations or COPY support beyond what Pool exposes directly.
func (p *Pool) Raw() *pgxpool.Pool { return p.pool }

// Tx is a transaction-scoped handle with the same Exec/Query/QueryRow shape
// as Pool, so store operations can be written once and run either
// standalone or inside WithTx.
type Tx struct {
	tx pgx.Tx
}

func (t *Tx) Exec(ctx context.Context, sql string, args ...any) error {
	_, err := t.tx.Exec(ctx, sql, args...)
	return err
}

func (t *Tx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return t.tx.Query(ctx, sql, args...)
}

func (t *Tx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.tx.QueryRow(ctx, sql, args...)
}

// WithTx runs fn inside a single transaction, committing if fn returns nil
// and rolling back otherwise. Every store mutation that must be atomic
// (create_entity plus its link-endpoint rows, for instance) goes through
// this rather than issuing bare Pool.Exec calls.
func (p *Pool) WithTx(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	pgxTx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("db: beginning transaction: %w", err)
	}
	if err := fn(ctx, &Tx{tx: pgxTx}); err != nil {
		if rollbackErr := pgxTx.Rollback(ctx); rollbackErr != nil {
			return fmt.Errorf("db: rolling back after %w: %v", err, rollbackErr)
		}
		return err
	}
	if err := pgxTx.Commit(ctx); err != nil {
		return fmt.Errorf("db: committing transaction: %w", err)
	}
	return nil
}
