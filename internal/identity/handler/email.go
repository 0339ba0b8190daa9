package handler

import (
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	identitydomain "tenant-admin-plane/internal/identity/domain"
	"tenant-admin-plane/internal/identity/service"
	"tenant-admin-plane/internal/security"
	"tenant-admin-plane/internal/server/respond"
)

type emailStartRequest struct {
	Email string `json:"email"`
}

// emailStart begins the magic-link flow. The response is the same whether or
// not a link was sent, so the endpoint cannot be used to probe invitations.
func (h *Handler) emailStart(w http.ResponseWriter, r *http.Request) {
	var req emailStartRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	email := service.CanonicalEmail(req.Email)
	if email == "" {
		respond.Error(w, http.StatusBadRequest, "bad_request", "email is required")
		return
	}
	ctx := r.Context()

	existing, err := h.users.GetByEmail(ctx, email)
	if err != nil {
		h.log.Error("user lookup failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	ok, err := h.gate.Authorize(ctx, service.SignInRequest{
		AccountType:       identitydomain.AccountTypeEmail,
		ProviderAccountID: email,
		ExistingUser:      existing,
	})
	if err != nil {
		h.log.Error("sign-in gate failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	if !ok {
		h.audit.LogEvent(ctx, "", "", "signin.rejected", "sessions", `{"provider":"email"}`)
		respond.JSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
		return
	}

	// Failures past the gate also answer 202: any other status would reveal
	// that the address is invited.
	raw, err := security.GenerateLinkToken()
	if err != nil {
		h.log.Error("failed to generate link token", zap.Error(err))
		respond.JSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
		return
	}
	now := time.Now().UTC()
	vt := &identitydomain.VerificationToken{
		Identifier: email,
		TokenHash:  security.DigestToken(raw),
		ExpiresAt:  now.Add(h.cfg.EmailTokenTTL),
		CreatedAt:  now,
	}
	if err := h.tokenStore.CreateVerificationToken(ctx, vt); err != nil {
		h.log.Error("failed to store verification token", zap.Error(err))
		respond.JSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
		return
	}

	link := h.cfg.BaseURL + "/auth/email/callback?" + url.Values{
		"identifier": {email},
		"token":      {raw},
	}.Encode()
	if err := h.mailer.SendSignInLink(ctx, email, link); err != nil {
		h.log.Error("failed to send sign-in link", zap.Error(err))
		respond.JSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
		return
	}
	respond.JSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

// emailCallback completes the magic-link flow. Consuming the token proves
// ownership of the address, which also stamps email_verified.
func (h *Handler) emailCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email := service.CanonicalEmail(r.URL.Query().Get("identifier"))
	raw := r.URL.Query().Get("token")
	if email == "" || raw == "" {
		h.redirectError(w, r, "invalid_link")
		return
	}

	vt, err := h.tokenStore.ConsumeVerificationToken(ctx, email, security.DigestToken(raw))
	if err != nil {
		h.log.Error("failed to consume verification token", zap.Error(err))
		h.redirectError(w, r, "internal")
		return
	}
	if vt == nil || vt.ExpiresAt.Before(time.Now().UTC()) {
		h.redirectError(w, r, "invalid_link")
		return
	}

	sess, err := h.establishSession(ctx, email, "", true)
	if err != nil {
		h.log.Error("failed to establish session", zap.Error(err))
		h.redirectError(w, r, "internal")
		return
	}
	if err := h.issueCookie(w, sess); err != nil {
		h.log.Error("failed to issue session token", zap.Error(err))
		h.redirectError(w, r, "internal")
		return
	}
	h.audit.LogEvent(ctx, "", sess.User.ID, "signin.accepted", "sessions", `{"provider":"email"}`)
	http.Redirect(w, r, h.cfg.BaseURL+"/", http.StatusSeeOther)
}
