// Package saga defines the persistence contract for long-running business
// processes.
//
// A saga instance is identified by a correlation id and carries an opaque
// payload plus a set of string headers. The Repository is the only place that
// moves a saga between memory and the backing Store:
//
//	absent --Save--> persisted --Save*--> persisted --Complete--> absent
//
// Business logic, payload encoding and saga construction are collaborators
// (Codec, Factory) plugged into the Repository; this package never inspects
// the payload itself.
package saga

import "github.com/google/uuid"

// Type is the tag naming a kind of saga, e.g. "OrderFulfilment".
type Type string

// Saga is the in-memory aggregate of one saga instance.
type Saga[T any] struct {
	// CorrelationID binds the instance to its persisted state.
	// It must not change once assigned.
	CorrelationID uuid.UUID

	// Data is the business payload. It is stored as the text produced by the
	// repository's Codec.
	Data T

	// Headers are free-form key/value pairs persisted next to the payload.
	Headers map[string]string
}

// Header returns the value stored under key and whether it was present.
func (s *Saga[T]) Header(key string) (string, bool) {
	v, ok := s.Headers[key]
	return v, ok
}

// SetHeader sets key to value, allocating the header map on first use.
func (s *Saga[T]) SetHeader(key, value string) {
	if s.Headers == nil {
		s.Headers = make(map[string]string)
	}
	s.Headers[key] = value
}
