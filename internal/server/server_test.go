package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"loandesk/internal/access"
	"loandesk/internal/audit"
	auditrepo "loandesk/internal/audit/repository"
	companydomain "loandesk/internal/company/domain"
	companyrepo "loandesk/internal/company/repository"
	"loandesk/internal/config"
	identitydomain "loandesk/internal/identity/domain"
	identityrepo "loandesk/internal/identity/repository"
	identityservice "loandesk/internal/identity/service"
	"loandesk/internal/policy/engine"
	roledomain "loandesk/internal/role/domain"
	rolerepo "loandesk/internal/role/repository"
	roleservice "loandesk/internal/role/service"
	"loandesk/internal/security"
	sessionrepo "loandesk/internal/session/repository"
	sessionservice "loandesk/internal/session/service"
)

const (
	adminPassword   = "Adm1n$Password!"
	officerPassword = "0fficer$Password!"
)

type testEnv struct {
	handler http.Handler
	cfg     *config.Config
	audit   *auditrepo.MemoryRepository
	reset   *identityservice.ResetService
	roles   *rolerepo.MemoryRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	cfg := &config.Config{
		CookieName:        "loandesk_session",
		CookieSecure:      false,
		FingerprintPolicy: config.FingerprintPolicyStrict,
	}

	companies := companyrepo.NewMemoryRepository()
	if err := companies.Create(ctx, &companydomain.Company{
		ID: "company-a", Name: "Acme Lending",
		Status: companydomain.CompanyStatusActive, CreatedAt: now,
	}); err != nil {
		t.Fatalf("Create company: %v", err)
	}

	roles := rolerepo.NewMemoryRepository()
	for _, role := range []*roledomain.Role{
		{
			ID: "role-admin", CompanyID: "company-a", Name: "Admin",
			Permissions: roledomain.NewPermissionSet(roledomain.Catalog()...),
			CreatedAt:   now, UpdatedAt: now,
		},
		{
			ID: "role-officer", CompanyID: "company-a", Name: "Loan Officer",
			Permissions: roledomain.NewPermissionSet(roledomain.PermDashboardView, roledomain.PermLoansView),
			CreatedAt:   now, UpdatedAt: now,
		},
	} {
		if err := roles.Create(ctx, role); err != nil {
			t.Fatalf("Create role: %v", err)
		}
	}

	hasher := security.NewHasher(4)
	identities := identityrepo.NewMemoryRepository()
	for _, u := range []struct {
		id, role, username, password string
	}{
		{"user-admin", "role-admin", "admin", adminPassword},
		{"user-jdoe", "role-officer", "jdoe", officerPassword},
	} {
		hash, err := hasher.Hash([]byte(u.password))
		if err != nil {
			t.Fatalf("Hash: %v", err)
		}
		ident := &identitydomain.Identity{
			ID: u.id, CompanyID: "company-a", RoleID: u.role,
			Username: u.username, DisplayName: u.username,
			PasswordHash: hash, Status: identitydomain.StatusActive,
			CreatedAt: now, UpdatedAt: now,
		}
		if err := identities.Create(ctx, ident); err != nil {
			t.Fatalf("Create identity: %v", err)
		}
	}

	policy, err := engine.NewOPAEvaluator(cfg.FingerprintPolicy, "")
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	sessions := sessionservice.NewManager(sessionrepo.NewMemoryRepository(), policy, time.Hour, 24*time.Hour)
	resolver := roleservice.NewResolver(roles)

	tokens, err := security.NewTestResetTokenProvider(30 * time.Minute)
	if err != nil {
		t.Fatalf("NewTestResetTokenProvider: %v", err)
	}
	reset := identityservice.NewResetService(identities, hasher, tokens, sessions)

	auditStore := auditrepo.NewMemoryRepository()
	srv := New(cfg, Deps{
		Verifier:      identityservice.NewVerifier(identities, companies, hasher),
		Sessions:      sessions,
		Roles:         resolver,
		Gate:          access.NewGate(sessions, resolver, identities),
		Reset:         reset,
		Audit:         audit.NewLogger(auditStore),
		PolicyChecker: policy,
	})
	return &testEnv{handler: srv.Handler(), cfg: cfg, audit: auditStore, reset: reset, roles: roles}
}

func (e *testEnv) do(t *testing.T, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	r.RemoteAddr = "203.0.113.9:51234"
	r.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64)")
	if cookie != nil {
		r.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, r)
	return w
}

// login authenticates the given user and returns the session cookie.
func (e *testEnv) login(t *testing.T, username, password string) *http.Cookie {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/login",
		`{"username":"`+username+`","password":"`+password+`"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d", w.Code)
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == e.cfg.CookieName && c.Value != "" {
			return c
		}
	}
	t.Fatal("login did not set the session cookie")
	return nil
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestLogin_MissingFieldsInBand(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/api/login", `{"username":"","password":"x"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with in-band error", w.Code)
	}
	resp := decode[loginResponse](t, w)
	if resp.Success {
		t.Error("success should be false")
	}
	if len(resp.Message) != 1 || resp.Message[0] != identityservice.MsgUsernameRequired {
		t.Errorf("message = %v, want [%q]", resp.Message, identityservice.MsgUsernameRequired)
	}

	w = e.do(t, http.MethodPost, "/api/login", `{"username":"","password":""}`, nil)
	resp = decode[loginResponse](t, w)
	if len(resp.Message) != 2 {
		t.Errorf("message = %v, want both required-field messages", resp.Message)
	}
}

func TestLogin_InvalidCredentialsInBand(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/api/login", `{"username":"jdoe","password":"wrong"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	resp := decode[loginResponse](t, w)
	if resp.Success || len(resp.Message) != 1 {
		t.Errorf("response = %+v, want in-band failure", resp)
	}

	entries := e.audit.All()
	if len(entries) != 1 || entries[0].Action != audit.ActionLoginFailure {
		t.Errorf("audit entries = %+v, want one login_failure", entries)
	}
}

func TestLogin_SuccessSetsCookie(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/api/login",
		`{"username":"jdoe","password":"`+officerPassword+`"}`, nil)
	resp := decode[loginResponse](t, w)
	if !resp.Success || resp.Identity == nil {
		t.Fatalf("response = %+v", resp)
	}
	if resp.Identity.UserID != "user-jdoe" || resp.Identity.CompanyID != "company-a" {
		t.Errorf("identity = %+v", resp.Identity)
	}

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == e.cfg.CookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("session cookie not set")
	}
	if !cookie.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Error("session cookie should be SameSite=Lax")
	}
}

func TestMe_ReturnsIdentityAndPermissions(t *testing.T) {
	e := newTestEnv(t)
	cookie := e.login(t, "jdoe", officerPassword)

	w := e.do(t, http.MethodGet, "/api/me", "", cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	me := decode[identityPayload](t, w)
	if me.UserID != "user-jdoe" {
		t.Errorf("UserID = %q", me.UserID)
	}
	want := []string{string(roledomain.PermDashboardView), string(roledomain.PermLoansView)}
	if len(me.Permissions) != len(want) {
		t.Fatalf("Permissions = %v, want %v", me.Permissions, want)
	}
}

func TestProtected_NoSession(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/api/me", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for an API caller", w.Code)
	}

	r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	r.Header.Set("Accept", "text/html")
	r.RemoteAddr = "203.0.113.9:51234"
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, r)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Errorf("browser should be redirected to /login, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestProtected_DeviceMismatchRejected(t *testing.T) {
	e := newTestEnv(t)
	cookie := e.login(t, "jdoe", officerPassword)

	r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	r.RemoteAddr = "198.51.100.7:443"
	r.Header.Set("User-Agent", "curl/8.0")
	r.AddCookie(cookie)
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 under the strict policy", w.Code)
	}
}

func TestRoles_GuardedByPermission(t *testing.T) {
	e := newTestEnv(t)

	officer := e.login(t, "jdoe", officerPassword)
	if w := e.do(t, http.MethodGet, "/api/roles", "", officer); w.Code != http.StatusForbidden {
		t.Errorf("officer status = %d, want 403", w.Code)
	}

	admin := e.login(t, "admin", adminPassword)
	w := e.do(t, http.MethodGet, "/api/roles?search=officer", "", admin)
	if w.Code != http.StatusOK {
		t.Fatalf("admin status = %d", w.Code)
	}
	resp := decode[struct {
		Roles []rolePayload `json:"roles"`
	}](t, w)
	if len(resp.Roles) != 1 || resp.Roles[0].Name != "Loan Officer" {
		t.Errorf("roles = %+v, want the single matching role", resp.Roles)
	}
}

func TestPermissionCatalog(t *testing.T) {
	e := newTestEnv(t)
	admin := e.login(t, "admin", adminPassword)

	w := e.do(t, http.MethodGet, "/api/permissions", "", admin)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode[struct {
		Permissions []string `json:"permissions"`
	}](t, w)
	if len(resp.Permissions) != len(roledomain.Catalog()) {
		t.Errorf("catalog size = %d, want %d", len(resp.Permissions), len(roledomain.Catalog()))
	}
}

func TestSetPermissions_UnknownKeysAggregated(t *testing.T) {
	e := newTestEnv(t)
	admin := e.login(t, "admin", adminPassword)

	w := e.do(t, http.MethodPut, "/api/roles/role-officer/permissions",
		`{"permissions":["loans.view","loans.frobnicate","reports.shred"]}`, admin)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	body := decode[errorBody](t, w)
	for _, unknown := range []string{"loans.frobnicate", "reports.shred"} {
		if !strings.Contains(body.Error, unknown) {
			t.Errorf("error %q should mention %q", body.Error, unknown)
		}
	}
}

func TestSetPermissions_Success(t *testing.T) {
	e := newTestEnv(t)
	admin := e.login(t, "admin", adminPassword)

	w := e.do(t, http.MethodPut, "/api/roles/role-officer/permissions",
		`{"permissions":["dashboard.view","loans.view","loans.edit"]}`, admin)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	role, err := e.roles.GetByID(context.Background(), "role-officer")
	if err != nil || role == nil {
		t.Fatalf("GetByID: (%v, %v)", role, err)
	}
	if !role.Permissions.Has(roledomain.PermLoansEdit) {
		t.Error("loans.edit should have been granted")
	}

	var updated bool
	for _, entry := range e.audit.All() {
		if entry.Action == audit.ActionPermissionsUpdate && entry.Metadata == "role-officer" {
			updated = true
		}
	}
	if !updated {
		t.Error("permission update should be audited")
	}
}

func TestSetPermissions_OfficerForbidden(t *testing.T) {
	e := newTestEnv(t)
	officer := e.login(t, "jdoe", officerPassword)

	w := e.do(t, http.MethodPut, "/api/roles/role-officer/permissions",
		`{"permissions":["dashboard.view"]}`, officer)
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403 before the handler runs", w.Code)
	}
}

func TestRefresh_ExtendsSession(t *testing.T) {
	e := newTestEnv(t)
	cookie := e.login(t, "jdoe", officerPassword)

	w := e.do(t, http.MethodPost, "/api/session/refresh", "", cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode[refreshResponse](t, w)
	if !resp.Success || resp.ExpiresAt == "" {
		t.Errorf("response = %+v", resp)
	}

	if w := e.do(t, http.MethodPost, "/api/session/refresh", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("refresh without a cookie: status = %d, want 401", w.Code)
	}
}

func TestLogout_RevokesSession(t *testing.T) {
	e := newTestEnv(t)
	cookie := e.login(t, "jdoe", officerPassword)

	w := e.do(t, http.MethodPost, "/api/logout", "", cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var cleared bool
	for _, c := range w.Result().Cookies() {
		if c.Name == e.cfg.CookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("logout should clear the session cookie")
	}

	if w := e.do(t, http.MethodGet, "/api/me", "", cookie); w.Code != http.StatusUnauthorized {
		t.Errorf("me after logout: status = %d, want 401", w.Code)
	}

	// Logging out again with the same token is harmless.
	if w := e.do(t, http.MethodPost, "/api/logout", "", cookie); w.Code != http.StatusOK {
		t.Errorf("repeated logout: status = %d, want 200", w.Code)
	}
}

func TestPasswordReset_Flow(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/api/password-reset/request", `{"username":"ghost"}`, nil)
	if w.Code != http.StatusAccepted {
		t.Errorf("unknown user: status = %d, want 202 (no enumeration)", w.Code)
	}

	// The token travels out of band; mint one directly for the completion step.
	token, err := e.reset.Request(context.Background(), "jdoe")
	if err != nil || token == "" {
		t.Fatalf("Request: token=%q err=%v", token, err)
	}

	const newPassword = "Fresh$Password99"
	w = e.do(t, http.MethodPost, "/api/password-reset/complete",
		`{"token":"`+token+`","password":"`+newPassword+`"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("complete: status = %d, body = %s", w.Code, w.Body.String())
	}

	if w := e.do(t, http.MethodPost, "/api/password-reset/complete",
		`{"token":"garbage","password":"`+newPassword+`"}`, nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad token: status = %d, want 400", w.Code)
	}

	e.login(t, "jdoe", newPassword)
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/healthz", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode[healthResponse](t, w)
	if resp.Status != "ok" || resp.Checks["policy"] != "ok" {
		t.Errorf("response = %+v", resp)
	}
}
