package server

import (
	"errors"
	"net/http"

	"loandesk/internal/access"
	"loandesk/internal/fingerprint"
	roledomain "loandesk/internal/role/domain"
)

// requireSession authenticates the request's session cookie against the
// captured fingerprint and attaches the resolved principal to the context.
// A missing or failing session sends browsers to /login and API callers a 401.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := s.sessionToken(r)
		if !ok {
			writeUnauthenticated(w, r)
			return
		}
		fp, _ := fingerprint.FromContext(r.Context())
		p, err := s.deps.Gate.Authenticate(r.Context(), token, fp)
		if err != nil {
			var unauth *access.UnauthenticatedError
			if errors.As(err, &unauth) {
				writeUnauthenticated(w, r)
				return
			}
			writeServerError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), p)))
	})
}

// requirePermission gates a route on one permission key of the principal
// resolved by requireSession.
func (s *Server) requirePermission(key roledomain.Key) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeUnauthenticated(w, r)
				return
			}
			if !p.Allows(key) {
				writeForbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
