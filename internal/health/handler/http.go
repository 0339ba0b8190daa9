// Package handler serves liveness and readiness probes.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"tenant-admin-plane/internal/server/respond"
)

// Pinger reports database reachability, typically *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker reports that the in-process policy engine can evaluate, typically the OPA evaluator.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Handler serves /healthz and /readyz.
type Handler struct {
	db     Pinger
	policy PolicyChecker
	log    *zap.Logger
}

// New returns a health handler. db and policy may be nil; their checks are skipped.
func New(db Pinger, policy PolicyChecker, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{db: db, policy: policy, log: log}
}

// Routes registers the probe routes on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.live)
	r.Get("/readyz", h.ready)
}

func (h *Handler) live(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			h.log.Warn("readiness: database unreachable", zap.Error(err))
			respond.Error(w, http.StatusServiceUnavailable, "not_ready", "database unreachable")
			return
		}
	}
	if h.policy != nil {
		if err := h.policy.HealthCheck(ctx); err != nil {
			h.log.Warn("readiness: policy engine unhealthy", zap.Error(err))
			respond.Error(w, http.StatusServiceUnavailable, "not_ready", "policy engine unhealthy")
			return
		}
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
