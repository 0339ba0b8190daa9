package middleware

import "context"

type contextKey struct{ name string }

var (
	userIDKey = contextKey{"user_id"}
	emailKey  = contextKey{"email"}
	roleKey   = contextKey{"role"}
	orgIDKey  = contextKey{"org_id"}
	clientIP  = contextKey{"client_ip"}
)

// WithIdentity returns a context with the authenticated principal set.
// Handlers read it via GetUserID, GetEmail, GetRole, GetOrgID.
func WithIdentity(ctx context.Context, userID, email, role, orgID string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, emailKey, email)
	ctx = context.WithValue(ctx, roleKey, role)
	ctx = context.WithValue(ctx, orgIDKey, orgID)
	return ctx
}

// GetUserID returns the user_id from context and true if set; otherwise "", false.
func GetUserID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey).(string)
	return v, ok
}

// GetEmail returns the authenticated email from context and true if set; otherwise "", false.
func GetEmail(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(emailKey).(string)
	return v, ok
}

// GetRole returns the global role from context and true if set; otherwise "", false.
func GetRole(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(roleKey).(string)
	return v, ok
}

// GetOrgID returns the session org_id from context and true if set; otherwise "", false.
func GetOrgID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(orgIDKey).(string)
	return v, ok
}

// WithClientIP returns a context carrying the request's client IP.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIP, ip)
}

// GetClientIP returns the client IP from context, or "" if not set.
func GetClientIP(ctx context.Context) string {
	v, _ := ctx.Value(clientIP).(string)
	return v
}
