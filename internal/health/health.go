// Package health exposes liveness and readiness probes over HTTP. Liveness
// always succeeds while the process runs; readiness asks the database
// plugin for its engine and pings the database, so a wrong configuration or
// an unreachable server reports not-ready.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/koustreak/dbridge/internal/database"
	"github.com/koustreak/dbridge/internal/logger"
)

// pingTimeout bounds the readiness database round trip.
const pingTimeout = 2 * time.Second

type status struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Handler serves the probe endpoints for one plugin instance.
type Handler struct {
	plugin *database.Plugin
	log    *logger.Logger
}

// NewHandler creates a probe handler backed by p.
func NewHandler(p *database.Plugin, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Global()
	}
	return &Handler{plugin: p, log: log}
}

// Router returns the probe routes mounted on a chi router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)
	r.Get("/livez", h.Livez)
	r.Get("/readyz", h.Readyz)
	return r
}

// Livez reports process liveness.
func (h *Handler) Livez(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, status{Status: "ok"})
}

// Readyz reports whether the database behind the plugin is reachable.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	engine, err := h.plugin.Engine()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, status{
			Status:   "unavailable",
			Database: "down",
			Error:    err.Error(),
		})
		return
	}

	if err := engine.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, status{
			Status:   "unavailable",
			Database: "down",
			Error:    err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, status{Status: "ok", Database: "up"})
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.log.HTTPEvent().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
