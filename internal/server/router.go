// Package server assembles the HTTP API: public auth routes, the
// authenticated admin API under /api/v1, and the health probes.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	admininvitehandler "tenant-admin-plane/internal/admininvite/handler"
	audithandler "tenant-admin-plane/internal/audit/handler"
	healthhandler "tenant-admin-plane/internal/health/handler"
	identityhandler "tenant-admin-plane/internal/identity/handler"
	organizationhandler "tenant-admin-plane/internal/organization/handler"
	policyhandler "tenant-admin-plane/internal/policy/handler"
	"tenant-admin-plane/internal/security"
	"tenant-admin-plane/internal/server/middleware"
	userhandler "tenant-admin-plane/internal/user/handler"
)

// Deps holds the handlers and cross-cutting pieces the router mounts.
type Deps struct {
	Identity      *identityhandler.Handler
	Organizations *organizationhandler.Handler
	Users         *userhandler.Handler
	AdminInvites  *admininvitehandler.Handler
	Policies      *policyhandler.Handler
	AuditLogs     *audithandler.Handler
	Health        *healthhandler.Handler

	Tokens         *security.TokenProvider
	AllowedOrigins []string
	Log            *zap.Logger
}

// NewRouter builds the chi router with the shared middleware stack.
func NewRouter(deps Deps) http.Handler {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.ClientIP)
	r.Use(requestLogger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))
	if len(deps.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   deps.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	deps.Health.Routes(r)
	deps.Identity.Routes(r)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.Tokens))
		deps.Organizations.Routes(r)
		deps.Users.Routes(r)
		deps.AdminInvites.Routes(r)
		deps.Policies.Routes(r)
		deps.AuditLogs.Routes(r)
	})

	return otelhttp.NewHandler(r, "http.server")
}

// requestLogger logs one line per request after it completes.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)))
		})
	}
}
