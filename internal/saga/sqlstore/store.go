// Package sqlstore provides the SQL implementation of saga.Store.
//
// Two tables back every store handle:
//
//	"Sagas"       ("CorrelationId" PK, "BlobData" TEXT)
//	"SagaHeaders" ("CorrelationId", "Key", "Value")
//
// Table names are configurable so that each saga type can keep its own blob
// table; column names are fixed. SQLite (modernc.org/sqlite) and PostgreSQL
// (github.com/lib/pq) are supported through a small dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"

	"github.com/jcmexdev/sagastore/internal/saga"
)

const (
	DefaultBlobTable   = "Sagas"
	DefaultHeaderTable = "SagaHeaders"
)

// Tables names the two tables a Store reads and writes.
type Tables struct {
	Blob   string
	Header string
}

func (t Tables) withDefaults() Tables {
	if t.Blob == "" {
		t.Blob = DefaultBlobTable
	}
	if t.Header == "" {
		t.Header = DefaultHeaderTable
	}
	return t
}

var identRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func (t Tables) validate() error {
	for _, name := range []string{t.Blob, t.Header} {
		if !identRE.MatchString(name) {
			return fmt.Errorf("sqlstore: invalid table name %q", name)
		}
	}
	if t.Blob == t.Header {
		return fmt.Errorf("sqlstore: blob and header tables must differ, both are %q", t.Blob)
	}
	return nil
}

// Store is the SQL implementation of saga.Store.
type Store struct {
	db      *sql.DB
	dialect dialect
	q       queries
}

var _ saga.Store = (*Store)(nil)

func newStore(db *sql.DB, d dialect, tables Tables) (*Store, error) {
	tables = tables.withDefaults()
	if err := tables.validate(); err != nil {
		return nil, err
	}
	return &Store{db: db, dialect: d, q: buildQueries(d, tables)}, nil
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s.db == nil {
		return errors.New("sqlstore: store is closed")
	}
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlstore: ping: %w", err)
	}
	return nil
}

// Close releases the database connection. Call it with defer in main().
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// EnsureSchema creates both tables and the header index when they are
// missing. Idempotent due to IF NOT EXISTS.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.q.schema); err != nil {
		return fmt.Errorf("sqlstore: apply schema: %w", err)
	}
	return nil
}

// LoadBlob implements saga.Store.
func (s *Store) LoadBlob(ctx context.Context, correlationID uuid.UUID) (string, bool, error) {
	var blob sql.NullString
	err := s.db.QueryRowContext(ctx, s.q.selectBlob, correlationID.String()).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlstore: load blob %s: %w", correlationID, err)
	}
	return blob.String, true, nil
}

// LoadHeaders implements saga.Store.
func (s *Store) LoadHeaders(ctx context.Context, correlationID uuid.UUID) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, s.q.selectHeaders, correlationID.String())
	if err != nil {
		return nil, fmt.Errorf("sqlstore: load headers %s: %w", correlationID, err)
	}
	defer rows.Close()

	headers := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("sqlstore: scan header %s: %w", correlationID, err)
		}
		headers[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: header iteration %s: %w", correlationID, err)
	}
	return headers, nil
}

// InTx implements saga.Store. The transaction is rolled back on every exit
// path except a successful commit.
func (s *Store) InTx(ctx context.Context, fn func(tx saga.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, s.dialect.txOptions)
	if err != nil {
		return fmt.Errorf("sqlstore: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&sqlTx{tx: tx, q: &s.q}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: commit: %w", err)
	}
	return nil
}
