// Package handler exposes admin-invitation management. All routes are
// superadmin-only under the default access policy.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tenant-admin-plane/internal/admininvite/domain"
	adminrepo "tenant-admin-plane/internal/admininvite/repository"
	"tenant-admin-plane/internal/audit"
	"tenant-admin-plane/internal/identity/service"
	"tenant-admin-plane/internal/policy/engine"
	"tenant-admin-plane/internal/server/access"
	"tenant-admin-plane/internal/server/middleware"
	"tenant-admin-plane/internal/server/respond"
)

// Handler serves the admin-invitation routes.
type Handler struct {
	invites adminrepo.Repository
	guard   *access.Guard
	audit   audit.AuditLogger
	log     *zap.Logger
}

// New returns an admin-invitation handler.
func New(invites adminrepo.Repository, guard *access.Guard, auditLog audit.AuditLogger, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{invites: invites, guard: guard, audit: auditLog, log: log}
}

// Routes registers the admin-invitation routes on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/admins/invitations", h.list)
	r.Post("/admins/invitations", h.create)
	r.Delete("/admins/invitations/{invitationID}", h.delete)
}

type invitationResponse struct {
	ID           string    `json:"id"`
	InvitedEmail string    `json:"invited_email"`
	CreatedAt    time.Time `json:"created_at"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	if !h.guard.Require(w, r, engine.ActionAdminInvite, "") {
		return
	}
	invites, err := h.invites.List(r.Context())
	if err != nil {
		h.log.Error("failed to list admin invitations", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	items := make([]invitationResponse, len(invites))
	for i, inv := range invites {
		items[i] = invitationResponse{ID: inv.ID, InvitedEmail: inv.InvitedEmail, CreatedAt: inv.CreatedAt}
	}
	respond.JSON(w, http.StatusOK, map[string]any{"items": items})
}

type createInvitationRequest struct {
	Email string `json:"email"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if !h.guard.Require(w, r, engine.ActionAdminInvite, "") {
		return
	}
	var req createInvitationRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	inv := &domain.AdminInvitation{
		ID:           uuid.New().String(),
		InvitedEmail: service.CanonicalEmail(req.Email),
		CreatedAt:    time.Now().UTC(),
	}
	if err := inv.Validate(); err != nil {
		respond.Error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if err := h.invites.Create(r.Context(), inv); err != nil {
		h.log.Error("failed to create admin invitation", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	actor, _ := middleware.GetUserID(r.Context())
	h.audit.LogEvent(r.Context(), "", actor, "admin.invite", "admin_invitations", "")
	respond.JSON(w, http.StatusCreated, invitationResponse{
		ID: inv.ID, InvitedEmail: inv.InvitedEmail, CreatedAt: inv.CreatedAt,
	})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if !h.guard.Require(w, r, engine.ActionAdminInvite, "") {
		return
	}
	invitationID := chi.URLParam(r, "invitationID")
	if err := h.invites.Delete(r.Context(), invitationID); err != nil {
		h.log.Error("failed to delete admin invitation", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	actor, _ := middleware.GetUserID(r.Context())
	h.audit.LogEvent(r.Context(), "", actor, "admin.invite.revoke", "admin_invitations", "")
	respond.JSON(w, http.StatusNoContent, nil)
}
