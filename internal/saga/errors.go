package saga

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrStoreAccess marks failures of the backing store: connectivity,
	// timeouts, constraint violations. Match it with errors.Is.
	ErrStoreAccess = errors.New("saga store access failed")

	// ErrSerialization marks payloads the Codec could not encode or decode.
	ErrSerialization = errors.New("saga payload serialization failed")

	// ErrFactory marks sagas the Factory could not build.
	ErrFactory = errors.New("saga factory failed")

	// ErrNilSaga is returned by Save and Complete when given a nil saga.
	ErrNilSaga = errors.New("saga is nil")

	// ErrNoCorrelationID is returned by Save and Complete for a saga whose
	// correlation id is the zero UUID.
	ErrNoCorrelationID = errors.New("saga has no correlation id")
)

// StoreError carries a store failure together with the operation and the
// correlation id it happened on. The driver error is kept as-is.
type StoreError struct {
	Op            string
	CorrelationID uuid.UUID
	Err           error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("saga: %s %s: %v", e.Op, e.CorrelationID, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is reports ErrStoreAccess for every StoreError.
func (e *StoreError) Is(target error) bool { return target == ErrStoreAccess }
