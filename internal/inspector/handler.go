// Package inspector exposes an operator HTTP API over the saga store: read a
// saga's stored blob and headers, or force-complete a saga that is stuck.
package inspector

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/jcmexdev/sagastore/internal/pkg/telemetry"
	"github.com/jcmexdev/sagastore/internal/saga"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Sagas is the part of saga.Repository the handler needs. Payloads are kept
// as raw text.
type Sagas interface {
	Type() saga.Type
	Find(ctx context.Context, correlationID uuid.UUID) (*saga.Saga[string], error)
	Complete(ctx context.Context, s *saga.Saga[string]) error
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the inspector endpoints.
type Handler struct {
	sagas Sagas
	store Pinger
}

// NewHandler builds a Handler. A nil store skips the health check.
func NewHandler(sagas Sagas, store Pinger) *Handler {
	return &Handler{sagas: sagas, store: store}
}

// Health pings the store; it is used by container readiness probes.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		if err := h.store.Ping(r.Context()); err != nil {
			slog.ErrorContext(r.Context(), "saga store unreachable", "error", err)
			writeError(w, r, http.StatusServiceUnavailable, "store_unavailable", "saga store is unreachable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetSaga returns the stored blob and headers of one saga.
func (h *Handler) GetSaga(w http.ResponseWriter, r *http.Request) {
	id, ok := correlationID(w, r)
	if !ok {
		return
	}

	s, err := h.sagas.Find(r.Context(), id)
	if err != nil {
		h.storeError(w, r, "find", id, err)
		return
	}
	if s == nil {
		writeError(w, r, http.StatusNotFound, "saga_not_found", id.String())
		return
	}

	writeJSON(w, http.StatusOK, SagaResponse{
		CorrelationID: s.CorrelationID.String(),
		Type:          string(h.sagas.Type()),
		Blob:          blobValue(s.Data),
		Headers:       s.Headers,
	})
}

// CompleteSaga deletes the saga's blob and headers. Idempotent.
func (h *Handler) CompleteSaga(w http.ResponseWriter, r *http.Request) {
	id, ok := correlationID(w, r)
	if !ok {
		return
	}

	if err := h.sagas.Complete(r.Context(), &saga.Saga[string]{CorrelationID: id}); err != nil {
		h.storeError(w, r, "complete", id, err)
		return
	}

	slog.InfoContext(r.Context(), "saga completed by operator", "correlation_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) storeError(w http.ResponseWriter, r *http.Request, op string, id uuid.UUID, err error) {
	slog.ErrorContext(r.Context(), "saga "+op+" failed", "correlation_id", id, "error", err)
	writeError(w, r, http.StatusInternalServerError, "saga_"+op+"_failed", "saga store failure, see logs by trace id")
}

func correlationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil || id == uuid.Nil {
		writeError(w, r, http.StatusBadRequest, "invalid_correlation_id", chi.URLParam(r, "id"))
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
		TraceID: telemetry.ExtractTraceInfo(r.Context()).TraceID,
	})
}
