// Package handler exposes the sign-in flows over HTTP: Google OAuth, email
// magic links, and the session endpoint that runs reconciliation on every read.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"tenant-admin-plane/internal/audit"
	identitydomain "tenant-admin-plane/internal/identity/domain"
	"tenant-admin-plane/internal/identity/service"
	"tenant-admin-plane/internal/security"
	"tenant-admin-plane/internal/server/middleware"
	userdomain "tenant-admin-plane/internal/user/domain"
	userrepo "tenant-admin-plane/internal/user/repository"
)

// TokenStore persists and consumes email verification tokens.
type TokenStore interface {
	CreateVerificationToken(ctx context.Context, t *identitydomain.VerificationToken) error
	ConsumeVerificationToken(ctx context.Context, identifier, tokenHash string) (*identitydomain.VerificationToken, error)
}

// Config holds the identity handler's static settings.
type Config struct {
	BaseURL            string
	GoogleClientID     string
	GoogleClientSecret string
	EmailTokenTTL      time.Duration
	// SecureCookies should be true everywhere except local development.
	SecureCookies bool
}

// Handler wires the sign-in gate, the reconciler, and token issuance to routes.
type Handler struct {
	cfg        Config
	gate       *service.Gate
	reconciler *service.Reconciler
	users      userrepo.Repository
	tokenStore TokenStore
	tokens     *security.TokenProvider
	mailer     Mailer
	audit      audit.AuditLogger
	log        *zap.Logger
}

// New returns an identity handler.
func New(cfg Config, gate *service.Gate, reconciler *service.Reconciler, users userrepo.Repository, tokenStore TokenStore, tokens *security.TokenProvider, mailer Mailer, auditLog audit.AuditLogger, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		cfg:        cfg,
		gate:       gate,
		reconciler: reconciler,
		users:      users,
		tokenStore: tokenStore,
		tokens:     tokens,
		mailer:     mailer,
		audit:      auditLog,
		log:        log,
	}
}

// Routes registers the public auth routes and the authenticated session route.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/auth/google", h.googleLogin)
	r.Get("/auth/google/callback", h.googleCallback)
	r.Post("/auth/email", h.emailStart)
	r.Get("/auth/email/callback", h.emailCallback)
	r.Post("/auth/signout", h.signOut)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.tokens))
		r.Get("/auth/session", h.session)
	})
}

// establishSession runs reconciliation for the signed-in email, creating the
// user record first if this is the principal's first accepted sign-in.
func (h *Handler) establishSession(ctx context.Context, email, name string, emailVerified bool) (*identitydomain.Session, error) {
	email = service.CanonicalEmail(email)
	user, err := h.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user = newUser(email, name, emailVerified)
		if err := h.users.Create(ctx, user); err != nil {
			return nil, err
		}
	} else if emailVerified && user.EmailVerified == nil {
		if err := h.users.SetEmailVerified(ctx, user.ID); err != nil {
			return nil, err
		}
	}
	sess, err := h.reconciler.Reconcile(ctx, email)
	if err != nil {
		return nil, err
	}
	if sess.User.Role == userdomain.GlobalRoleSuperadmin && user.Role != userdomain.GlobalRoleSuperadmin {
		h.audit.LogEvent(ctx, "", sess.User.ID, "admin.promote", "users", "")
	}
	return sess, nil
}

func (h *Handler) issueCookie(w http.ResponseWriter, sess *identitydomain.Session) error {
	id := security.SessionIdentity{
		UserID: sess.User.ID,
		Email:  sess.User.Email,
		Role:   string(sess.User.Role),
	}
	if sess.Membership != nil {
		id.OrgID = sess.Membership.OrgID
	}
	token, expiresAt, err := h.tokens.IssueSession(id)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (h *Handler) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// redirectRejected sends the browser back to the login page. The reason is
// deliberately generic: rejected principals learn nothing about invitations.
func (h *Handler) redirectRejected(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.cfg.BaseURL+"/login?error=access_denied", http.StatusSeeOther)
}

func (h *Handler) redirectError(w http.ResponseWriter, r *http.Request, reason string) {
	http.Redirect(w, r, h.cfg.BaseURL+"/login?error="+reason, http.StatusSeeOther)
}
