package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresOptions tunes the connection pool of OpenPostgres.
type PostgresOptions struct {
	Tables       Tables
	MaxOpenConns int
	MaxIdleConns int
}

// OpenPostgres connects to PostgreSQL and pings it. The schema is owned by
// the caller; run EnsureSchema explicitly when the tables may be missing.
// Transactions run at READ COMMITTED.
func OpenPostgres(ctx context.Context, dsn string, opts PostgresOptions) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore: ping postgres: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}

	s, err := newStore(db, postgresDialect, opts.Tables)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}
