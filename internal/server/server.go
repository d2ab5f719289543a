// Package server wires the HTTP API: login/logout, session refresh, the
// identity endpoint for the dashboard layout, role administration, password
// reset, and health. Every protected route sits behind the session guard.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"loandesk/internal/access"
	"loandesk/internal/audit"
	"loandesk/internal/config"
	"loandesk/internal/fingerprint"
	identityservice "loandesk/internal/identity/service"
	roledomain "loandesk/internal/role/domain"
	roleservice "loandesk/internal/role/service"
	sessionservice "loandesk/internal/session/service"
)

// Pinger reports storage reachability, e.g. *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker reports whether the policy engine can evaluate, e.g. the OPA evaluator.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the services the HTTP server exposes. Audit may be nil; health
// probes may be nil when the corresponding subsystem is not configured.
type Deps struct {
	Verifier *identityservice.Verifier
	Sessions *sessionservice.Manager
	Roles    *roleservice.Resolver
	Gate     *access.Gate
	Reset    *identityservice.ResetService
	Audit    audit.AuditLogger

	DBPinger      Pinger
	PolicyChecker PolicyChecker
}

// Server is the HTTP transport for the loan-dashboard auth core.
type Server struct {
	cfg  *config.Config
	deps Deps
}

// New returns a Server with the given config and dependencies.
func New(cfg *config.Config, deps Deps) *Server {
	if deps.Audit == nil {
		deps.Audit = audit.Nop{}
	}
	return &Server{cfg: cfg, deps: deps}
}

// Handler builds the routed HTTP handler: fingerprint capture wraps everything
// so even the login handler sees the device, and otelhttp instruments the
// whole tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(fingerprint.Capture)

	r.Get("/healthz", s.handleHealthz)

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
		r.Post("/session/refresh", s.handleRefresh)
		r.Post("/password-reset/request", s.handleResetRequest)
		r.Post("/password-reset/complete", s.handleResetComplete)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)
			r.With(s.requirePermission(roledomain.PermDashboardView)).Get("/me", s.handleMe)
			r.With(s.requirePermission(roledomain.PermSettingsRolesView)).Get("/roles", s.handleListRoles)
			r.With(s.requirePermission(roledomain.PermSettingsRolesView)).Get("/permissions", s.handlePermissionCatalog)
			r.With(s.requirePermission(roledomain.PermSettingsRolesEdit)).Put("/roles/{roleID}/permissions", s.handleSetPermissions)
		})
	})

	return otelhttp.NewHandler(r, "loandesk.http")
}

// sessionCookie builds the session cookie for token. A negative maxAge clears it.
func (s *Server) sessionCookie(token string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// sessionToken extracts the opaque token from the request cookie.
func (s *Server) sessionToken(r *http.Request) (string, bool) {
	c, err := r.Cookie(s.cfg.CookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}
