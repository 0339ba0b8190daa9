package middleware

import (
	"net"
	"net/http"
	"strings"

	"tenant-admin-plane/internal/security"
	"tenant-admin-plane/internal/server/respond"
)

const bearerPrefix = "bearer "

// SessionCookieName is the cookie the identity handlers set on sign-in.
// Bearer tokens take precedence when both are present.
const SessionCookieName = "tap_session"

// RequireAuth validates the session token from the Authorization header or the
// session cookie and sets the principal in context. Requests without a valid
// token get 401.
func RequireAuth(tokens *security.TokenProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				respond.Error(w, http.StatusUnauthorized, "unauthenticated", "missing or invalid authorization")
				return
			}
			id, err := tokens.ValidateSession(token)
			if err != nil {
				respond.Error(w, http.StatusUnauthorized, "unauthenticated", "missing or invalid authorization")
				return
			}
			ctx := WithIdentity(r.Context(), id.UserID, id.Email, id.Role, id.OrgID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken returns the session token from the request, or "" if absent.
func extractToken(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) >= len(bearerPrefix) && strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(v[len(bearerPrefix):])
	}
	if c, err := r.Cookie(SessionCookieName); err == nil {
		return c.Value
	}
	return ""
}

// ClientIP records the request's client IP in context so the audit logger can
// read it without holding the request.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.Header.Get("X-Forwarded-For")
		if ip != "" {
			// First hop in the chain is the client.
			if i := strings.IndexByte(ip, ','); i >= 0 {
				ip = ip[:i]
			}
			ip = strings.TrimSpace(ip)
		} else if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			ip = host
		} else {
			ip = r.RemoteAddr
		}
		next.ServeHTTP(w, r.WithContext(WithClientIP(r.Context(), ip)))
	})
}
