package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// sqlTx implements saga.Tx on a *sql.Tx.
//
// Upserts run UPDATE first and INSERT only when no row matched. This works
// whether or not the caller's schema carries a unique constraint on
// (CorrelationId, Key), which ON CONFLICT would require.
type sqlTx struct {
	tx *sql.Tx
	q  *queries
}

func (t *sqlTx) UpsertBlob(ctx context.Context, correlationID uuid.UUID, blob string) error {
	id := correlationID.String()
	updated, err := t.execAffected(ctx, t.q.updateBlob, blob, id)
	if err != nil {
		return fmt.Errorf("sqlstore: update blob %s: %w", correlationID, err)
	}
	if updated > 0 {
		return nil
	}
	if _, err := t.tx.ExecContext(ctx, t.q.insertBlob, id, blob); err != nil {
		return fmt.Errorf("sqlstore: insert blob %s: %w", correlationID, err)
	}
	return nil
}

func (t *sqlTx) UpsertHeader(ctx context.Context, correlationID uuid.UUID, key, value string) error {
	id := correlationID.String()
	updated, err := t.execAffected(ctx, t.q.updateHeader, value, id, key)
	if err != nil {
		return fmt.Errorf("sqlstore: update header %s %q: %w", correlationID, key, err)
	}
	if updated > 0 {
		return nil
	}
	if _, err := t.tx.ExecContext(ctx, t.q.insertHeader, id, key, value); err != nil {
		return fmt.Errorf("sqlstore: insert header %s %q: %w", correlationID, key, err)
	}
	return nil
}

func (t *sqlTx) DeleteBlob(ctx context.Context, correlationID uuid.UUID) error {
	if _, err := t.tx.ExecContext(ctx, t.q.deleteBlob, correlationID.String()); err != nil {
		return fmt.Errorf("sqlstore: delete blob %s: %w", correlationID, err)
	}
	return nil
}

func (t *sqlTx) DeleteHeaders(ctx context.Context, correlationID uuid.UUID) error {
	if _, err := t.tx.ExecContext(ctx, t.q.deleteHeaders, correlationID.String()); err != nil {
		return fmt.Errorf("sqlstore: delete headers %s: %w", correlationID, err)
	}
	return nil
}

func (t *sqlTx) execAffected(ctx context.Context, q string, args ...any) (int64, error) {
	res, err := t.tx.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
