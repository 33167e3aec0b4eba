package saga

import (
	"context"

	"github.com/google/uuid"
)

// Store is the port for the durable backing store: one table of payload
// blobs and one table of headers, both keyed by correlation id.
// The Repository depends on this abstraction, not on a SQL driver, so the
// implementation can be SQLite, Postgres, or a decorator around either.
type Store interface {
	// LoadBlob returns the stored blob for correlationID. found is false when
	// no row exists; that is not an error.
	LoadBlob(ctx context.Context, correlationID uuid.UUID) (blob string, found bool, err error)

	// LoadHeaders returns every header row for correlationID. An id without
	// headers yields an empty, non-nil map.
	LoadHeaders(ctx context.Context, correlationID uuid.UUID) (map[string]string, error)

	// InTx runs fn inside a single transaction. The transaction commits when
	// fn returns nil and rolls back otherwise, so either all of fn's writes
	// become visible or none do.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of writes available inside Store.InTx.
type Tx interface {
	// UpsertBlob updates the blob row in place, or inserts it if missing.
	UpsertBlob(ctx context.Context, correlationID uuid.UUID, blob string) error

	// UpsertHeader updates the (correlationID, key) row in place, or inserts
	// it if missing.
	UpsertHeader(ctx context.Context, correlationID uuid.UUID, key, value string) error

	// DeleteBlob removes the blob row. Missing rows are not an error.
	DeleteBlob(ctx context.Context, correlationID uuid.UUID) error

	// DeleteHeaders removes all header rows of correlationID.
	DeleteHeaders(ctx context.Context, correlationID uuid.UUID) error
}
