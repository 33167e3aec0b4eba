package inspector

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jcmexdev/sagastore/internal/inspector/middlewares"
)

const tracerName = "github.com/jcmexdev/sagastore/internal/inspector"

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middlewares.Trace(tracerName))
	r.Use(middlewares.Log)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handler.Health)
	r.Get("/sagas/{id}", handler.GetSaga)
	r.Delete("/sagas/{id}", handler.CompleteSaga)
	return r
}
