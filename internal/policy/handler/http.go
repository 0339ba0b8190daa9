// Package handler exposes the per-organization access-policy override routes.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"tenant-admin-plane/internal/audit"
	"tenant-admin-plane/internal/policy/domain"
	"tenant-admin-plane/internal/policy/engine"
	policyrepo "tenant-admin-plane/internal/policy/repository"
	"tenant-admin-plane/internal/server/access"
	"tenant-admin-plane/internal/server/middleware"
	"tenant-admin-plane/internal/server/respond"
)

// Handler serves the access-policy routes.
type Handler struct {
	policies policyrepo.Repository
	guard    *access.Guard
	audit    audit.AuditLogger
	log      *zap.Logger
}

// New returns a policy handler.
func New(policies policyrepo.Repository, guard *access.Guard, auditLog audit.AuditLogger, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{policies: policies, guard: guard, audit: auditLog, log: log}
}

// Routes registers the policy routes on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/organizations/{orgID}/policy", h.get)
	r.Put("/organizations/{orgID}/policy", h.put)
	r.Delete("/organizations/{orgID}/policy", h.delete)
}

type policyResponse struct {
	OrgID     string    `json:"org_id"`
	Rego      string    `json:"rego"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	if !h.guard.Require(w, r, engine.ActionOrgWrite, orgID) {
		return
	}
	p, err := h.policies.GetByOrg(r.Context(), orgID)
	if err != nil {
		h.log.Error("failed to load access policy", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	if p == nil {
		respond.Error(w, http.StatusNotFound, "not_found", "no policy override for organization")
		return
	}
	respond.JSON(w, http.StatusOK, policyResponse{OrgID: p.OrgID, Rego: p.Rego, UpdatedAt: p.UpdatedAt})
}

type putPolicyRequest struct {
	Rego string `json:"rego"`
}

func (h *Handler) put(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	if !h.guard.Require(w, r, engine.ActionOrgWrite, orgID) {
		return
	}
	var req putPolicyRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if req.Rego == "" {
		respond.Error(w, http.StatusBadRequest, "bad_request", "rego is required")
		return
	}
	p := &domain.AccessPolicy{OrgID: orgID, Rego: req.Rego, UpdatedAt: time.Now().UTC()}
	if err := h.policies.Upsert(r.Context(), p); err != nil {
		h.log.Error("failed to store access policy", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	actor, _ := middleware.GetUserID(r.Context())
	h.audit.LogEvent(r.Context(), orgID, actor, "policy.update", "access_policies", "")
	respond.JSON(w, http.StatusOK, policyResponse{OrgID: p.OrgID, Rego: p.Rego, UpdatedAt: p.UpdatedAt})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	if !h.guard.Require(w, r, engine.ActionOrgWrite, orgID) {
		return
	}
	if err := h.policies.Delete(r.Context(), orgID); err != nil {
		h.log.Error("failed to delete access policy", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	actor, _ := middleware.GetUserID(r.Context())
	h.audit.LogEvent(r.Context(), orgID, actor, "policy.delete", "access_policies", "")
	respond.JSON(w, http.StatusNoContent, nil)
}
