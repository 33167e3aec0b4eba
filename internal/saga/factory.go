package saga

import (
	"maps"

	"github.com/google/uuid"
)

// Factory builds saga instances of one type.
//
// Create receives the stored payload already decoded, or nil when the saga is
// new. It must fall back to a default payload when data is nil and must keep
// correlationID and headers exactly as given.
type Factory[T any] interface {
	Type() Type
	Create(correlationID uuid.UUID, data *T, headers map[string]string) (*Saga[T], error)
}

// FactoryFunc adapts a plain function to the Factory interface.
type FactoryFunc[T any] struct {
	Tag Type
	Fn  func(correlationID uuid.UUID, data *T, headers map[string]string) (*Saga[T], error)
}

func (f FactoryFunc[T]) Type() Type { return f.Tag }

func (f FactoryFunc[T]) Create(correlationID uuid.UUID, data *T, headers map[string]string) (*Saga[T], error) {
	return f.Fn(correlationID, data, headers)
}

type defaultFactory[T any] struct {
	tag     Type
	newData func() T
}

// NewFactory returns a Factory for tag. newData produces the payload of a
// fresh saga; when it is nil the zero value of T is used.
func NewFactory[T any](tag Type, newData func() T) Factory[T] {
	return &defaultFactory[T]{tag: tag, newData: newData}
}

func (f *defaultFactory[T]) Type() Type { return f.tag }

func (f *defaultFactory[T]) Create(correlationID uuid.UUID, data *T, headers map[string]string) (*Saga[T], error) {
	s := &Saga[T]{
		CorrelationID: correlationID,
		Headers:       make(map[string]string, len(headers)),
	}
	maps.Copy(s.Headers, headers)

	switch {
	case data != nil:
		s.Data = *data
	case f.newData != nil:
		s.Data = f.newData()
	}
	return s, nil
}

// New starts a fresh saga of the factory's type under a random correlation id.
func New[T any](f Factory[T]) (*Saga[T], error) {
	return f.Create(uuid.New(), nil, nil)
}
