// Package handler exposes the user administration routes.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"tenant-admin-plane/internal/audit"
	"tenant-admin-plane/internal/policy/engine"
	"tenant-admin-plane/internal/server/access"
	"tenant-admin-plane/internal/server/middleware"
	"tenant-admin-plane/internal/server/pagination"
	"tenant-admin-plane/internal/server/respond"
	userrepo "tenant-admin-plane/internal/user/repository"
)

// Handler serves the user routes.
type Handler struct {
	users userrepo.Repository
	guard *access.Guard
	audit audit.AuditLogger
	log   *zap.Logger
}

// New returns a user handler.
func New(users userrepo.Repository, guard *access.Guard, auditLog audit.AuditLogger, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{users: users, guard: guard, audit: auditLog, log: log}
}

// Routes registers the user routes on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/users", h.list)
	r.Get("/users/{userID}", h.get)
	r.Delete("/users/{userID}", h.delete)
}

type userMembershipResponse struct {
	ID      string `json:"id"`
	OrgID   string `json:"org_id"`
	OrgName string `json:"org_name"`
	Role    string `json:"role"`
}

type userResponse struct {
	ID            string                   `json:"id"`
	Email         string                   `json:"email"`
	Name          string                   `json:"name,omitempty"`
	Role          string                   `json:"role"`
	EmailVerified *time.Time               `json:"email_verified,omitempty"`
	Memberships   []userMembershipResponse `json:"memberships"`
	CreatedAt     time.Time                `json:"created_at"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	if !h.guard.Require(w, r, engine.ActionUserRead, "") {
		return
	}
	limit, cursor := pagination.Params(r)
	users, err := h.users.List(r.Context(), limit+1, cursor)
	if err != nil {
		h.log.Error("failed to list users", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	items := make([]userResponse, len(users))
	for i, u := range users {
		items[i] = toUserResponse(u)
	}
	respond.JSON(w, http.StatusOK, pagination.Trim(items, limit, func(u userResponse) string { return u.ID }))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	if !h.guard.Require(w, r, engine.ActionUserRead, "") {
		return
	}
	u, err := h.users.GetByID(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.log.Error("failed to load user", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	if u == nil {
		respond.Error(w, http.StatusNotFound, "not_found", "user not found")
		return
	}
	respond.JSON(w, http.StatusOK, userResponse{
		ID: u.ID, Email: u.Email, Name: u.Name, Role: string(u.Role),
		EmailVerified: u.EmailVerified, Memberships: []userMembershipResponse{},
		CreatedAt: u.CreatedAt,
	})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if !h.guard.Require(w, r, engine.ActionUserWrite, "") {
		return
	}
	userID := chi.URLParam(r, "userID")
	actor, _ := middleware.GetUserID(r.Context())
	if userID == actor {
		respond.Error(w, http.StatusBadRequest, "bad_request", "cannot delete own account")
		return
	}
	if err := h.users.Delete(r.Context(), userID); err != nil {
		h.log.Error("failed to delete user", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	h.audit.LogEvent(r.Context(), "", actor, "user.delete", "users", `{"user_id":"`+userID+`"}`)
	respond.JSON(w, http.StatusNoContent, nil)
}

func toUserResponse(u *userrepo.UserWithMemberships) userResponse {
	resp := userResponse{
		ID: u.ID, Email: u.Email, Name: u.Name, Role: string(u.Role),
		EmailVerified: u.EmailVerified,
		Memberships:   make([]userMembershipResponse, len(u.Memberships)),
		CreatedAt:     u.CreatedAt,
	}
	for i, m := range u.Memberships {
		resp.Memberships[i] = userMembershipResponse{
			ID:      m.ID,
			OrgID:   m.OrgID,
			OrgName: m.Organization.Name,
			Role:    string(m.Role),
		}
	}
	return resp
}
