// server runs the tenant administration API.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	admininvitehandler "tenant-admin-plane/internal/admininvite/handler"
	admininviterepo "tenant-admin-plane/internal/admininvite/repository"
	"tenant-admin-plane/internal/audit"
	audithandler "tenant-admin-plane/internal/audit/handler"
	auditrepo "tenant-admin-plane/internal/audit/repository"
	"tenant-admin-plane/internal/config"
	"tenant-admin-plane/internal/db"
	"tenant-admin-plane/internal/db/migrate"
	healthhandler "tenant-admin-plane/internal/health/handler"
	identityhandler "tenant-admin-plane/internal/identity/handler"
	identityrepo "tenant-admin-plane/internal/identity/repository"
	identityservice "tenant-admin-plane/internal/identity/service"
	membershiprepo "tenant-admin-plane/internal/membership/repository"
	organizationhandler "tenant-admin-plane/internal/organization/handler"
	organizationrepo "tenant-admin-plane/internal/organization/repository"
	policyengine "tenant-admin-plane/internal/policy/engine"
	policyhandler "tenant-admin-plane/internal/policy/handler"
	policyrepo "tenant-admin-plane/internal/policy/repository"
	"tenant-admin-plane/internal/security"
	"tenant-admin-plane/internal/server"
	"tenant-admin-plane/internal/server/access"
	"tenant-admin-plane/internal/server/middleware"
	"tenant-admin-plane/internal/telemetry/otel"
	userhandler "tenant-admin-plane/internal/user/handler"
	userrepo "tenant-admin-plane/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "tenant-admin-plane", cfg.OTLPInsecure)
	if err != nil {
		logger.Fatal("telemetry setup failed", zap.Error(err))
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	if cfg.MigrateOnStart {
		if err := migrate.Run(cfg.DatabaseURL, "up"); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logger.Fatal("migrate on start failed", zap.Error(err))
		}
	}
	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database open failed", zap.Error(err))
	}
	defer conn.Close()

	privateKey, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		logger.Fatal("JWT_PRIVATE_KEY invalid", zap.Error(err))
	}
	publicKey, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		logger.Fatal("JWT_PUBLIC_KEY invalid", zap.Error(err))
	}
	tokens := security.NewTokenProvider(privateKey, publicKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.SessionTTLDuration())

	users := userrepo.NewPostgresRepository(conn)
	orgs := organizationrepo.NewPostgresRepository(conn)
	memberships := membershiprepo.NewPostgresRepository(conn)
	adminInvites := admininviterepo.NewPostgresRepository(conn)
	identities := identityrepo.NewPostgresRepository(conn)
	policies := policyrepo.NewPostgresRepository(conn)
	auditLogs := auditrepo.NewPostgresRepository(conn)

	auditEmitter := otel.NewAuditEmitter(providers.LoggerProvider)
	auditLogger := audit.NewLogger(auditLogs, middleware.GetClientIP, auditEmitter, logger)
	evaluator := policyengine.NewOPAEvaluator(policies, logger)
	guard := access.NewGuard(evaluator, memberships)

	gate := identityservice.NewGate(identities, logger)
	reconciler := identityservice.NewReconciler(identities, users, memberships, identities, logger)

	identityH := identityhandler.New(identityhandler.Config{
		BaseURL:            cfg.BaseURL,
		GoogleClientID:     cfg.GoogleClientID,
		GoogleClientSecret: cfg.GoogleClientSecret,
		EmailTokenTTL:      cfg.EmailTokenTTLDuration(),
		SecureCookies:      cfg.Env == "production",
	}, gate, reconciler, users, identities, tokens, &identityhandler.LogMailer{Log: logger}, auditLogger, logger)

	router := server.NewRouter(server.Deps{
		Identity:       identityH,
		Organizations:  organizationhandler.New(orgs, memberships, users, guard, auditLogger, logger),
		Users:          userhandler.New(users, guard, auditLogger, logger),
		AdminInvites:   admininvitehandler.New(adminInvites, guard, auditLogger, logger),
		Policies:       policyhandler.New(policies, guard, auditLogger, logger),
		AuditLogs:      audithandler.New(auditLogs, guard, logger),
		Health:         healthhandler.New(conn, evaluator, logger),
		Tokens:         tokens,
		AllowedOrigins: cfg.CORSAllowedOriginsList(),
		Log:            logger,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("serve failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
	logger.Info("http server stopped")
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
