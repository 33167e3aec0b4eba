// Package tracedstore wraps a saga.Store with OpenTelemetry spans.
//
// Every read gets its own span; a transaction gets one span with an event
// per write. Errors are recorded on the span and returned unchanged.
package tracedstore

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jcmexdev/sagastore/internal/saga"
)

const instrumentationName = "github.com/jcmexdev/sagastore/internal/saga/tracedstore"

const attrCorrelationID = attribute.Key("saga.correlation_id")

type Store struct {
	next   saga.Store
	tracer trace.Tracer
	attrs  []attribute.KeyValue
}

var _ saga.Store = (*Store)(nil)

// New wraps next. A nil provider uses the global TracerProvider. attrs are
// added to every span, e.g. attribute.String("saga.table", "Sagas").
func New(next saga.Store, provider trace.TracerProvider, attrs ...attribute.KeyValue) *Store {
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	return &Store{
		next:   next,
		tracer: provider.Tracer(instrumentationName),
		attrs:  attrs,
	}
}

func (s *Store) start(ctx context.Context, name string, id uuid.UUID) (context.Context, trace.Span) {
	attrs := s.attrs
	if id != uuid.Nil {
		attrs = append(attrs[:len(attrs):len(attrs)], attrCorrelationID.String(id.String()))
	}
	return s.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

func end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *Store) LoadBlob(ctx context.Context, correlationID uuid.UUID) (string, bool, error) {
	ctx, span := s.start(ctx, "saga.store.load_blob", correlationID)
	blob, found, err := s.next.LoadBlob(ctx, correlationID)
	span.SetAttributes(attribute.Bool("saga.found", found))
	end(span, err)
	return blob, found, err
}

func (s *Store) LoadHeaders(ctx context.Context, correlationID uuid.UUID) (map[string]string, error) {
	ctx, span := s.start(ctx, "saga.store.load_headers", correlationID)
	headers, err := s.next.LoadHeaders(ctx, correlationID)
	span.SetAttributes(attribute.Int("saga.header_count", len(headers)))
	end(span, err)
	return headers, err
}

func (s *Store) InTx(ctx context.Context, fn func(tx saga.Tx) error) error {
	ctx, span := s.start(ctx, "saga.store.tx", uuid.Nil)
	err := s.next.InTx(ctx, func(tx saga.Tx) error {
		return fn(&tracedTx{next: tx, span: span})
	})
	end(span, err)
	return err
}

type tracedTx struct {
	next saga.Tx
	span trace.Span
}

func (t *tracedTx) event(name string, id uuid.UUID, extra ...attribute.KeyValue) {
	t.span.AddEvent(name, trace.WithAttributes(append(extra, attrCorrelationID.String(id.String()))...))
}

func (t *tracedTx) UpsertBlob(ctx context.Context, id uuid.UUID, blob string) error {
	t.event("upsert_blob", id, attribute.Int("saga.blob_size", len(blob)))
	return t.next.UpsertBlob(ctx, id, blob)
}

func (t *tracedTx) UpsertHeader(ctx context.Context, id uuid.UUID, key, value string) error {
	t.event("upsert_header", id, attribute.String("saga.header_key", key))
	return t.next.UpsertHeader(ctx, id, key, value)
}

func (t *tracedTx) DeleteBlob(ctx context.Context, id uuid.UUID) error {
	t.event("delete_blob", id)
	return t.next.DeleteBlob(ctx, id)
}

func (t *tracedTx) DeleteHeaders(ctx context.Context, id uuid.UUID) error {
	t.event("delete_headers", id)
	return t.next.DeleteHeaders(ctx, id)
}
