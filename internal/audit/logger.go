// Package audit records security-relevant events (logins, logouts, permission
// changes) to the audit store. Recording is best-effort and never fails the
// operation being audited.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"loandesk/internal/audit/domain"
	auditrepo "loandesk/internal/audit/repository"
	"loandesk/internal/fingerprint"
)

// SentinelCompanyID is the company_id used for events with no tenant, e.g. a
// login failure for an unknown username.
const SentinelCompanyID = "_system"

// Actions recorded by the authentication and RBAC code paths.
const (
	ActionLoginSuccess      = "login_success"
	ActionLoginFailure      = "login_failure"
	ActionLogout            = "logout"
	ActionSessionRevoked    = "session_revoked"
	ActionSessionFlagged    = "session_flagged"
	ActionPermissionsUpdate = "role_permissions_updated"
	ActionPasswordReset     = "password_reset"
)

// Resources the actions above apply to.
const (
	ResourceSession = "session"
	ResourceRole    = "role"
	ResourceUser    = "user"
)

// AuditLogger writes a single audit event with explicit action/resource.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, companyID, userID, action, resource, metadata string)
}

// Logger implements AuditLogger using the audit repository. The client IP is
// taken from the fingerprint already captured on the request context.
type Logger struct {
	repo auditrepo.Repository
}

// NewLogger returns an AuditLogger that persists to repo.
func NewLogger(repo auditrepo.Repository) *Logger {
	return &Logger{repo: repo}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, companyID, userID, action, resource, metadata string) {
	if l.repo == nil {
		return
	}
	ip := "unknown"
	if fp, ok := fingerprint.FromContext(ctx); ok {
		ip = fp.IP
	}
	if companyID == "" {
		companyID = SentinelCompanyID
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		CompanyID: companyID,
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s/%s: %v", action, resource, err)
	}
}

// Nop is an AuditLogger that discards every event. Useful in tests.
type Nop struct{}

// LogEvent discards the event.
func (Nop) LogEvent(ctx context.Context, companyID, userID, action, resource, metadata string) {}

// Multi fans one event out to several loggers, e.g. the persisted audit trail
// plus a telemetry emitter.
func Multi(loggers ...AuditLogger) AuditLogger {
	return multiLogger(loggers)
}

type multiLogger []AuditLogger

func (m multiLogger) LogEvent(ctx context.Context, companyID, userID, action, resource, metadata string) {
	for _, l := range m {
		l.LogEvent(ctx, companyID, userID, action, resource, metadata)
	}
}
