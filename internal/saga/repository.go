package saga

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Repository mediates between saga aggregates of payload type T and the
// Store. It holds no mutable state and is safe for concurrent use as long as
// the Store is.
//
// Failures are returned to the caller and never retried or logged here.
type Repository[T any] struct {
	store   Store
	codec   Codec[T]
	factory Factory[T]
}

// NewRepository binds a Store to the codec and factory of one saga type.
func NewRepository[T any](store Store, codec Codec[T], factory Factory[T]) *Repository[T] {
	return &Repository[T]{
		store:   store,
		codec:   codec,
		factory: factory,
	}
}

// Type returns the saga type tag handled by this repository.
func (r *Repository[T]) Type() Type {
	return r.factory.Type()
}

// Find loads the saga stored under correlationID. It returns (nil, nil) when
// nothing is stored: a missing saga is an expected outcome, not an error.
func (r *Repository[T]) Find(ctx context.Context, correlationID uuid.UUID) (*Saga[T], error) {
	blob, found, err := r.store.LoadBlob(ctx, correlationID)
	if err != nil {
		return nil, &StoreError{Op: "find", CorrelationID: correlationID, Err: err}
	}
	if !found {
		return nil, nil
	}

	data, err := r.codec.Decode(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s %s: %w", ErrSerialization, r.factory.Type(), correlationID, err)
	}

	headers, err := r.store.LoadHeaders(ctx, correlationID)
	if err != nil {
		return nil, &StoreError{Op: "find headers", CorrelationID: correlationID, Err: err}
	}

	s, err := r.factory.Create(correlationID, &data, headers)
	if err != nil {
		return nil, fmt.Errorf("%w: create %s %s: %w", ErrFactory, r.factory.Type(), correlationID, err)
	}
	return s, nil
}

// Save upserts the payload and every header of s in one transaction.
//
// Headers stored by an earlier Save but absent from s.Headers are left in
// place; only Complete removes headers.
func (r *Repository[T]) Save(ctx context.Context, s *Saga[T]) error {
	if err := checkIdentity(s); err != nil {
		return err
	}

	// Encode before touching the store so a bad payload never opens a transaction.
	blob, err := r.codec.Encode(s.Data)
	if err != nil {
		return fmt.Errorf("%w: encode %s %s: %w", ErrSerialization, r.factory.Type(), s.CorrelationID, err)
	}

	err = r.store.InTx(ctx, func(tx Tx) error {
		if err := tx.UpsertBlob(ctx, s.CorrelationID, blob); err != nil {
			return err
		}
		for key, value := range s.Headers {
			if err := tx.UpsertHeader(ctx, s.CorrelationID, key, value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return &StoreError{Op: "save", CorrelationID: s.CorrelationID, Err: err}
	}
	return nil
}

// Complete deletes the payload and all headers of s in one transaction.
// Completing a saga that is not stored is a no-op.
func (r *Repository[T]) Complete(ctx context.Context, s *Saga[T]) error {
	if err := checkIdentity(s); err != nil {
		return err
	}

	err := r.store.InTx(ctx, func(tx Tx) error {
		if err := tx.DeleteBlob(ctx, s.CorrelationID); err != nil {
			return err
		}
		return tx.DeleteHeaders(ctx, s.CorrelationID)
	})
	if err != nil {
		return &StoreError{Op: "complete", CorrelationID: s.CorrelationID, Err: err}
	}
	return nil
}

func checkIdentity[T any](s *Saga[T]) error {
	if s == nil {
		return ErrNilSaga
	}
	if s.CorrelationID == uuid.Nil {
		return ErrNoCorrelationID
	}
	return nil
}
