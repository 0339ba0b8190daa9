package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"tenant-admin-plane/internal/audit"
	auditdomain "tenant-admin-plane/internal/audit/domain"
)

// recordLogger is the slice of otellog.Logger the emitter uses; tests inject a capture.
type recordLogger interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// NewAuditEmitter returns an audit.EventEmitter that mirrors audit entries as
// OTel log records via the given LoggerProvider. If provider is nil, returns a
// no-op emitter.
func NewAuditEmitter(provider *sdklog.LoggerProvider) audit.EventEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: provider.Logger("tap.audit")}
}

// NewAuditEmitterWithLogger is NewAuditEmitter with the logger supplied directly.
func NewAuditEmitterWithLogger(logger recordLogger) audit.EventEmitter {
	return &otelEmitter{logger: logger}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *auditdomain.AuditLog) error { return nil }

type otelEmitter struct {
	logger recordLogger
}

// Emit converts the audit entry to an OTel log record and emits it.
func (e *otelEmitter) Emit(ctx context.Context, entry *auditdomain.AuditLog) error {
	if entry == nil {
		return nil
	}
	rec := otellog.Record{}
	if !entry.CreatedAt.IsZero() {
		rec.SetTimestamp(entry.CreatedAt)
	} else {
		rec.SetTimestamp(time.Now().UTC())
	}
	if entry.Metadata != "" {
		rec.SetBody(otellog.StringValue(entry.Metadata))
	}
	if entry.OrgID != "" {
		rec.AddAttributes(otellog.String("org_id", entry.OrgID))
	}
	if entry.UserID != "" {
		rec.AddAttributes(otellog.String("user_id", entry.UserID))
	}
	if entry.Action != "" {
		rec.AddAttributes(otellog.String("action", entry.Action))
	}
	if entry.Resource != "" {
		rec.AddAttributes(otellog.String("resource", entry.Resource))
	}
	if entry.IP != "" {
		rec.AddAttributes(otellog.String("ip", entry.IP))
	}
	e.logger.Emit(ctx, rec)
	return nil
}
