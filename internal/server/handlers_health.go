package server

import "net/http"

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// handleHealthz reports readiness: the database must answer a ping and the
// policy engine must evaluate. Unconfigured probes are skipped.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	healthy := true

	if s.deps.DBPinger != nil {
		if err := s.deps.DBPinger.PingContext(r.Context()); err != nil {
			checks["database"] = err.Error()
			healthy = false
		} else {
			checks["database"] = "ok"
		}
	}
	if s.deps.PolicyChecker != nil {
		if err := s.deps.PolicyChecker.HealthCheck(r.Context()); err != nil {
			checks["policy"] = err.Error()
			healthy = false
		} else {
			checks["policy"] = "ok"
		}
	}

	if !healthy {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Checks: checks})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Checks: checks})
}
