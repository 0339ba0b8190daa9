package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tenant-admin-plane/internal/audit/domain"
	auditrepo "tenant-admin-plane/internal/audit/repository"
)

// SentinelOrgID is the org_id used for audit events that have no org (e.g. sign-in rejections, admin invitations).
const SentinelOrgID = "_system"

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event with explicit action/resource.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, orgID, userID, action, resource, metadata string)
}

// EventEmitter mirrors audit entries to an external sink (e.g. the telemetry
// pipeline). Best-effort; errors are logged, never returned to the caller.
type EventEmitter interface {
	Emit(ctx context.Context, entry *domain.AuditLog) error
}

// Logger implements AuditLogger using the audit repository, an optional IP
// extractor, and an optional emitter that mirrors entries to telemetry.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
	emitter     EventEmitter
	log         *zap.Logger
}

// NewLogger returns an AuditLogger that persists to repo and uses ipExtractor for client IP.
// ipExtractor may be nil; then IP is recorded as "unknown". emitter may be nil.
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor, emitter EventEmitter, log *zap.Logger) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{repo: repo, ipExtractor: ipExtractor, emitter: emitter, log: log}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, orgID, userID, action, resource, metadata string) {
	if l.repo == nil && l.emitter == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	if orgID == "" {
		orgID = SentinelOrgID
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		OrgID:     orgID,
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if l.repo != nil {
		if err := l.repo.Create(ctx, entry); err != nil {
			l.log.Error("failed to write audit event",
				zap.String("action", action),
				zap.String("resource", resource),
				zap.Error(err))
		}
	}
	if l.emitter != nil {
		if err := l.emitter.Emit(ctx, entry); err != nil {
			l.log.Error("failed to emit audit event",
				zap.String("action", action),
				zap.Error(err))
		}
	}
}
