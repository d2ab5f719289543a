package otel

import (
	"context"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"loandesk/internal/audit"
)

// NewAuditEmitter returns an audit.AuditLogger that emits every audit event as
// an OTel log record via the given LoggerProvider, so operators see logins,
// revocations, and permission changes in their log backend without querying
// the audit table. If provider is nil, a no-op logger is returned.
func NewAuditEmitter(provider *sdklog.LoggerProvider) audit.AuditLogger {
	if provider == nil {
		return audit.Nop{}
	}
	return &auditEmitter{logger: provider.Logger("loandesk.audit")}
}

type auditEmitter struct {
	logger otellog.Logger
}

// LogEvent emits the audit event as a log record. Best-effort by contract.
func (e *auditEmitter) LogEvent(ctx context.Context, companyID, userID, action, resource, metadata string) {
	rec := otellog.Record{}
	rec.SetBody(otellog.StringValue(action))
	rec.AddAttributes(
		otellog.String("company_id", companyID),
		otellog.String("resource", resource),
	)
	if userID != "" {
		rec.AddAttributes(otellog.String("user_id", userID))
	}
	if metadata != "" {
		rec.AddAttributes(otellog.String("metadata", metadata))
	}
	e.logger.Emit(ctx, rec)
}
