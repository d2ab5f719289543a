package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"loandesk/internal/audit"
	"loandesk/internal/fingerprint"
	identitydomain "loandesk/internal/identity/domain"
	identityservice "loandesk/internal/identity/service"
	sessionservice "loandesk/internal/session/service"
)

// msgInvalidCredentials is the single in-band message for any credential
// mismatch; unknown users and wrong passwords are indistinguishable.
const msgInvalidCredentials = "Invalid username or password"

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse is the in-band login decision. Field and credential failures
// come back with HTTP 200 and success=false so the client handles one shape.
type loginResponse struct {
	Success  bool             `json:"success"`
	Message  []string         `json:"message,omitempty"`
	Identity *identityPayload `json:"identity,omitempty"`
}

type identityPayload struct {
	UserID      string   `json:"user_id"`
	CompanyID   string   `json:"company_id"`
	RoleID      string   `json:"role_id"`
	Username    string   `json:"username"`
	Email       string   `json:"email,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	DisplayName string   `json:"display_name,omitempty"`
	AvatarRef   string   `json:"avatar_ref,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

func identityToPayload(i *identitydomain.Identity) *identityPayload {
	return &identityPayload{
		UserID:      i.ID,
		CompanyID:   i.CompanyID,
		RoleID:      i.RoleID,
		Username:    i.Username,
		Email:       i.Email,
		Phone:       i.Phone,
		DisplayName: i.DisplayName,
		AvatarRef:   i.AvatarRef,
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	ident, err := s.deps.Verifier.Verify(r.Context(), req.Username, req.Password)
	if err != nil {
		var missing *identityservice.MissingFieldsError
		if errors.As(err, &missing) {
			writeJSON(w, http.StatusOK, loginResponse{Success: false, Message: missing.Messages})
			return
		}
		if errors.Is(err, identityservice.ErrInvalidCredentials) {
			s.deps.Audit.LogEvent(r.Context(), "", "", audit.ActionLoginFailure, audit.ResourceSession, "")
			writeJSON(w, http.StatusOK, loginResponse{Success: false, Message: []string{msgInvalidCredentials}})
			return
		}
		writeServerError(w, err)
		return
	}

	fp, _ := fingerprint.FromContext(r.Context())
	token, sess, err := s.deps.Sessions.Issue(r.Context(), ident, fp)
	if err != nil {
		writeServerError(w, err)
		return
	}

	s.deps.Audit.LogEvent(r.Context(), ident.CompanyID, ident.ID, audit.ActionLoginSuccess, audit.ResourceSession, "")
	http.SetCookie(w, s.sessionCookie(token, int(time.Until(sess.ExpiresAt).Seconds())))
	writeJSON(w, http.StatusOK, loginResponse{Success: true, Identity: identityToPayload(ident)})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token, ok := s.sessionToken(r); ok {
		if err := s.deps.Sessions.Revoke(r.Context(), token); err != nil {
			writeServerError(w, err)
			return
		}
		s.deps.Audit.LogEvent(r.Context(), "", "", audit.ActionLogout, audit.ResourceSession, "")
	}
	http.SetCookie(w, s.sessionCookie("", -1))
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type refreshResponse struct {
	Success   bool   `json:"success"`
	ExpiresAt string `json:"expires_at"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token, ok := s.sessionToken(r)
	if !ok {
		writeUnauthenticated(w, r)
		return
	}
	fp, _ := fingerprint.FromContext(r.Context())
	sess, err := s.deps.Sessions.Refresh(r.Context(), token, fp)
	if err != nil {
		if isSessionError(err) {
			writeUnauthenticated(w, r)
			return
		}
		writeServerError(w, err)
		return
	}
	http.SetCookie(w, s.sessionCookie(token, int(time.Until(sess.ExpiresAt).Seconds())))
	writeJSON(w, http.StatusOK, refreshResponse{
		Success:   true,
		ExpiresAt: sess.ExpiresAt.Format(time.RFC3339),
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w, r)
		return
	}
	payload := identityToPayload(p.Identity)
	for _, k := range p.Permissions.Keys() {
		payload.Permissions = append(payload.Permissions, string(k))
	}
	writeJSON(w, http.StatusOK, payload)
}

type resetRequestBody struct {
	Username string `json:"username"`
}

func (s *Server) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	if s.deps.Reset == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "password reset is not configured"})
		return
	}
	var req resetRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	// The response is identical for known and unknown usernames; the token
	// travels out of band.
	if _, err := s.deps.Reset.Request(r.Context(), req.Username); err != nil {
		writeServerError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"success": true})
}

type resetCompleteBody struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (s *Server) handleResetComplete(w http.ResponseWriter, r *http.Request) {
	if s.deps.Reset == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "password reset is not configured"})
		return
	}
	var req resetCompleteBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if err := s.deps.Reset.Complete(r.Context(), req.Token, req.Password); err != nil {
		if errors.Is(err, identityservice.ErrInvalidResetToken) {
			writeBadRequest(w, "invalid or expired reset token")
			return
		}
		var weak *identityservice.PasswordPolicyError
		if errors.As(err, &weak) {
			writeBadRequest(w, weak.Error())
			return
		}
		writeServerError(w, err)
		return
	}
	s.deps.Audit.LogEvent(r.Context(), "", "", audit.ActionPasswordReset, audit.ResourceUser, "")
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func isSessionError(err error) bool {
	return errors.Is(err, sessionservice.ErrNotFound) ||
		errors.Is(err, sessionservice.ErrRevoked) ||
		errors.Is(err, sessionservice.ErrExpired) ||
		errors.Is(err, sessionservice.ErrDeviceMismatch)
}
