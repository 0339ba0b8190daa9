// Package handler exposes organization administration over HTTP: CRUD plus
// membership management within an organization.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tenant-admin-plane/internal/audit"
	"tenant-admin-plane/internal/identity/service"
	membershipdomain "tenant-admin-plane/internal/membership/domain"
	membershiprepo "tenant-admin-plane/internal/membership/repository"
	"tenant-admin-plane/internal/organization/domain"
	orgrepo "tenant-admin-plane/internal/organization/repository"
	"tenant-admin-plane/internal/policy/engine"
	"tenant-admin-plane/internal/server/access"
	"tenant-admin-plane/internal/server/middleware"
	"tenant-admin-plane/internal/server/pagination"
	"tenant-admin-plane/internal/server/respond"
	userrepo "tenant-admin-plane/internal/user/repository"
)

// Handler serves the organization routes.
type Handler struct {
	orgs        orgrepo.Repository
	memberships membershiprepo.Repository
	users       userrepo.Repository
	guard       *access.Guard
	audit       audit.AuditLogger
	log         *zap.Logger
}

// New returns an organization handler.
func New(orgs orgrepo.Repository, memberships membershiprepo.Repository, users userrepo.Repository, guard *access.Guard, auditLog audit.AuditLogger, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{orgs: orgs, memberships: memberships, users: users, guard: guard, audit: auditLog, log: log}
}

// Routes registers the organization routes on r. Callers mount it under the
// authenticated API group.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/organizations", h.list)
	r.Post("/organizations", h.create)
	r.Get("/organizations/{orgID}", h.get)
	r.Patch("/organizations/{orgID}", h.update)
	r.Delete("/organizations/{orgID}", h.delete)
	r.Post("/organizations/{orgID}/members", h.addMember)
	r.Delete("/organizations/{orgID}/members/{membershipID}", h.removeMember)
	r.Get("/memberships/invited", h.listInvited)
}

type orgResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	MembershipCount int64     `json:"membership_count,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type memberResponse struct {
	ID           string    `json:"id"`
	Role         string    `json:"role"`
	UserID       string    `json:"user_id,omitempty"`
	Email        string    `json:"email,omitempty"`
	Name         string    `json:"name,omitempty"`
	InvitedEmail string    `json:"invited_email,omitempty"`
	InvitedName  string    `json:"invited_name,omitempty"`
	Pending      bool      `json:"pending"`
	CreatedAt    time.Time `json:"created_at"`
}

type orgDetailResponse struct {
	orgResponse
	Members []memberResponse `json:"members"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	if !h.guard.Require(w, r, engine.ActionOrgRead, "") {
		return
	}
	limit, cursor := pagination.Params(r)
	orgs, err := h.orgs.List(r.Context(), limit+1, cursor)
	if err != nil {
		h.log.Error("failed to list organizations", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	items := make([]orgResponse, len(orgs))
	for i, o := range orgs {
		items[i] = orgResponse{
			ID: o.ID, Name: o.Name, MembershipCount: o.MembershipCount,
			CreatedAt: o.CreatedAt, UpdatedAt: o.UpdatedAt,
		}
	}
	respond.JSON(w, http.StatusOK, pagination.Trim(items, limit, func(o orgResponse) string { return o.ID }))
}

type createOrgRequest struct {
	Name string `json:"name"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if !h.guard.Require(w, r, engine.ActionOrgWrite, "") {
		return
	}
	var req createOrgRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	now := time.Now().UTC()
	org := &domain.Org{ID: uuid.New().String(), Name: req.Name, CreatedAt: now, UpdatedAt: now}
	if err := org.Validate(); err != nil {
		respond.Error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if err := h.orgs.Create(r.Context(), org); err != nil {
		h.log.Error("failed to create organization", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	userID, _ := middleware.GetUserID(r.Context())
	h.audit.LogEvent(r.Context(), org.ID, userID, "org.create", "organizations", "")
	respond.JSON(w, http.StatusCreated, orgResponse{
		ID: org.ID, Name: org.Name, CreatedAt: org.CreatedAt, UpdatedAt: org.UpdatedAt,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	if !h.guard.Require(w, r, engine.ActionOrgRead, orgID) {
		return
	}
	org, err := h.orgs.GetWithMembers(r.Context(), orgID)
	if err != nil {
		h.log.Error("failed to load organization", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	if org == nil {
		respond.Error(w, http.StatusNotFound, "not_found", "organization not found")
		return
	}
	resp := orgDetailResponse{
		orgResponse: orgResponse{ID: org.ID, Name: org.Name, CreatedAt: org.CreatedAt, UpdatedAt: org.UpdatedAt},
		Members:     make([]memberResponse, len(org.Members)),
	}
	for i, m := range org.Members {
		mr := memberResponse{
			ID: m.ID, Role: string(m.Role), Pending: m.Pending(), CreatedAt: m.CreatedAt,
			InvitedEmail: m.InvitedEmail, InvitedName: m.InvitedName,
		}
		if m.User != nil {
			mr.UserID = m.User.ID
			mr.Email = m.User.Email
			mr.Name = m.User.Name
		}
		resp.Members[i] = mr
	}
	respond.JSON(w, http.StatusOK, resp)
}

type updateOrgRequest struct {
	Name string `json:"name"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	if !h.guard.Require(w, r, engine.ActionOrgWrite, orgID) {
		return
	}
	var req updateOrgRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	org, err := h.orgs.GetByID(r.Context(), orgID)
	if err != nil {
		h.log.Error("failed to load organization", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	if org == nil {
		respond.Error(w, http.StatusNotFound, "not_found", "organization not found")
		return
	}
	org.Name = req.Name
	org.UpdatedAt = time.Now().UTC()
	if err := org.Validate(); err != nil {
		respond.Error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if err := h.orgs.Update(r.Context(), org); err != nil {
		h.log.Error("failed to update organization", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	userID, _ := middleware.GetUserID(r.Context())
	h.audit.LogEvent(r.Context(), orgID, userID, "org.update", "organizations", "")
	respond.JSON(w, http.StatusOK, orgResponse{
		ID: org.ID, Name: org.Name, CreatedAt: org.CreatedAt, UpdatedAt: org.UpdatedAt,
	})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	if !h.guard.Require(w, r, engine.ActionOrgWrite, orgID) {
		return
	}
	if err := h.orgs.Delete(r.Context(), orgID); err != nil {
		h.log.Error("failed to delete organization", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	userID, _ := middleware.GetUserID(r.Context())
	h.audit.LogEvent(r.Context(), orgID, userID, "org.delete", "organizations", "")
	respond.JSON(w, http.StatusNoContent, nil)
}

type invitedResponse struct {
	ID           string    `json:"id"`
	OrgID        string    `json:"org_id"`
	InvitedEmail string    `json:"invited_email"`
	InvitedName  string    `json:"invited_name,omitempty"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// listInvited returns every membership invitation still waiting for its email
// to sign in, across all organizations.
func (h *Handler) listInvited(w http.ResponseWriter, r *http.Request) {
	if !h.guard.Require(w, r, engine.ActionUserRead, "") {
		return
	}
	pending, err := h.memberships.ListPending(r.Context())
	if err != nil {
		h.log.Error("failed to list pending memberships", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	items := make([]invitedResponse, len(pending))
	for i, m := range pending {
		items[i] = invitedResponse{
			ID: m.ID, OrgID: m.OrgID,
			InvitedEmail: m.InvitedEmail, InvitedName: m.InvitedName,
			Role: string(m.Role), CreatedAt: m.CreatedAt,
		}
	}
	respond.JSON(w, http.StatusOK, map[string]any{"items": items})
}

type addMemberRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// addMember invites an email into the organization. When a user with the
// address already exists the membership binds immediately; otherwise it stays
// pending until that email signs in.
func (h *Handler) addMember(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	if !h.guard.Require(w, r, engine.ActionMemberWrite, orgID) {
		return
	}
	var req addMemberRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	email := service.CanonicalEmail(req.Email)
	if email == "" {
		respond.Error(w, http.StatusBadRequest, "bad_request", "email is required")
		return
	}
	role := membershipdomain.Role(req.Role)
	if req.Role == "" {
		role = membershipdomain.RoleMember
	}
	if !role.Valid() {
		respond.Error(w, http.StatusBadRequest, "bad_request", "invalid role")
		return
	}

	ctx := r.Context()
	org, err := h.orgs.GetByID(ctx, orgID)
	if err != nil {
		h.log.Error("failed to load organization", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	if org == nil {
		respond.Error(w, http.StatusNotFound, "not_found", "organization not found")
		return
	}

	m := &membershipdomain.Membership{
		ID:        uuid.New().String(),
		OrgID:     orgID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	existing, err := h.users.GetByEmail(ctx, email)
	if err != nil {
		h.log.Error("user lookup failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	if existing != nil {
		m.UserID = existing.ID
	} else {
		m.InvitedEmail = email
		m.InvitedName = req.Name
	}
	if err := m.Validate(); err != nil {
		respond.Error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if err := h.memberships.Create(ctx, m); err != nil {
		h.log.Error("failed to create membership", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	actor, _ := middleware.GetUserID(ctx)
	h.audit.LogEvent(ctx, orgID, actor, "member.add", "memberships", "")
	resp := memberResponse{
		ID: m.ID, Role: string(m.Role), Pending: m.Pending(), CreatedAt: m.CreatedAt,
		InvitedEmail: m.InvitedEmail, InvitedName: m.InvitedName,
	}
	if existing != nil {
		resp.UserID = existing.ID
		resp.Email = existing.Email
		resp.Name = existing.Name
	}
	respond.JSON(w, http.StatusCreated, resp)
}

func (h *Handler) removeMember(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	membershipID := chi.URLParam(r, "membershipID")
	if !h.guard.Require(w, r, engine.ActionMemberWrite, orgID) {
		return
	}
	ctx := r.Context()
	m, err := h.memberships.GetByID(ctx, membershipID)
	if err != nil {
		h.log.Error("failed to load membership", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	if m == nil || m.OrgID != orgID {
		respond.Error(w, http.StatusNotFound, "not_found", "membership not found")
		return
	}
	if err := h.memberships.Delete(ctx, membershipID); err != nil {
		h.log.Error("failed to delete membership", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	actor, _ := middleware.GetUserID(ctx)
	h.audit.LogEvent(ctx, orgID, actor, "member.remove", "memberships", "")
	respond.JSON(w, http.StatusNoContent, nil)
}
