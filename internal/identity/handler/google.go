package handler

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	identitydomain "tenant-admin-plane/internal/identity/domain"
	"tenant-admin-plane/internal/identity/service"
)

const stateCookieName = "tap_oauth_state"

func (h *Handler) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.cfg.GoogleClientID,
		ClientSecret: h.cfg.GoogleClientSecret,
		RedirectURL:  h.cfg.BaseURL + "/auth/google/callback",
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

// googleLogin starts the OAuth flow: random state in a short-lived cookie,
// then off to the consent screen.
func (h *Handler) googleLogin(w http.ResponseWriter, r *http.Request) {
	if h.cfg.GoogleClientID == "" || h.cfg.GoogleClientSecret == "" {
		h.log.Warn("google sign-in requested but not configured")
		h.redirectError(w, r, "google_not_configured")
		return
	}
	state, err := generateState()
	if err != nil {
		h.log.Error("failed to generate oauth state", zap.Error(err))
		h.redirectError(w, r, "internal")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/auth/google",
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.oauth2Config().AuthCodeURL(state), http.StatusTemporaryRedirect)
}

func (h *Handler) googleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.log.Warn("google oauth error", zap.String("error", errParam))
		h.redirectError(w, r, "google_denied")
		return
	}

	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie(stateCookieName)
	if state == "" || err != nil || cookie.Value != state {
		h.log.Warn("oauth state mismatch")
		h.redirectError(w, r, "invalid_state")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.redirectError(w, r, "invalid_code")
		return
	}
	token, err := h.oauth2Config().Exchange(ctx, code)
	if err != nil {
		h.log.Error("oauth code exchange failed", zap.Error(err))
		h.redirectError(w, r, "token_exchange")
		return
	}

	profile, err := fetchGoogleUserInfo(ctx, token)
	if err != nil {
		h.log.Error("failed to fetch google user info", zap.Error(err))
		h.redirectError(w, r, "user_info")
		return
	}

	email := service.CanonicalEmail(profile.Email)
	existing, err := h.users.GetByEmail(ctx, email)
	if err != nil {
		h.log.Error("user lookup failed", zap.Error(err))
		h.redirectError(w, r, "internal")
		return
	}

	ok, err := h.gate.Authorize(ctx, service.SignInRequest{
		AccountType:       identitydomain.AccountTypeOAuth,
		ProfileEmail:      profile.Email,
		ProviderAccountID: profile.ID,
		ExistingUser:      existing,
	})
	if err != nil {
		h.log.Error("sign-in gate failed", zap.Error(err))
		h.redirectError(w, r, "internal")
		return
	}
	if !ok {
		h.audit.LogEvent(ctx, "", "", "signin.rejected", "sessions", `{"provider":"google"}`)
		h.redirectRejected(w, r)
		return
	}

	sess, err := h.establishSession(ctx, email, profile.Name, profile.EmailVerified)
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
	h.audit.LogEvent(ctx, "", sess.User.ID, "signin.accepted", "sessions", `{"provider":"google"}`)
	http.Redirect(w, r, h.cfg.BaseURL+"/", http.StatusSeeOther)
}

// googleUserInfo represents user info returned from Google.
type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
}

func fetchGoogleUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}
	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}
	return &info, nil
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
