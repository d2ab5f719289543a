package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.SessionTTL != "1h" {
		t.Errorf("SessionTTL = %q, want %q", cfg.SessionTTL, "1h")
	}
	if cfg.SessionGrace != "24h" {
		t.Errorf("SessionGrace = %q, want %q", cfg.SessionGrace, "24h")
	}
	if cfg.FingerprintPolicy != FingerprintPolicyStrict {
		t.Errorf("FingerprintPolicy = %q, want %q", cfg.FingerprintPolicy, FingerprintPolicyStrict)
	}
	if cfg.CookieName != "loandesk_session" {
		t.Errorf("CookieName = %q, want %q", cfg.CookieName, "loandesk_session")
	}
	if !cfg.CookieSecure {
		t.Error("CookieSecure should default to true")
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("SESSION_TTL", "2h")
	os.Setenv("DEVICE_MISMATCH_POLICY", FingerprintPolicyPermissive)
	os.Setenv("BCRYPT_COST", "14")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.SessionTTL != "2h" {
		t.Errorf("SessionTTL = %q, want %q", cfg.SessionTTL, "2h")
	}
	if cfg.FingerprintPolicy != FingerprintPolicyPermissive {
		t.Errorf("FingerprintPolicy = %q, want %q", cfg.FingerprintPolicy, FingerprintPolicyPermissive)
	}
	if cfg.BcryptCost != 14 {
		t.Errorf("BcryptCost = %d, want 14", cfg.BcryptCost)
	}
}

func TestLoad_InvalidFingerprintPolicy(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("DEVICE_MISMATCH_POLICY", "lenient")

	cfg, err := Load()
	if err == nil {
		t.Fatal("Load should return error for unknown DEVICE_MISMATCH_POLICY")
	}
	if cfg != nil {
		t.Error("Load should return nil config on error")
	}
}

func TestLoad_InsecureCookieProduction(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("SESSION_COOKIE_SECURE", "false")
	os.Setenv("APP_ENV", "production")

	cfg, err := Load()
	if err == nil {
		t.Fatal("Load should return error when SESSION_COOKIE_SECURE=false and APP_ENV=production")
	}
	if cfg != nil {
		t.Error("Load should return nil config on error")
	}
}

func TestLoad_InsecureCookieDevelopment(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("SESSION_COOKIE_SECURE", "false")
	os.Setenv("APP_ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CookieSecure {
		t.Error("CookieSecure should be false")
	}
}

func TestLoad_BCRYPT_COSTRange(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  int
		err   bool
	}{
		{"valid min", "4", 4, false},
		{"valid max", "31", 31, false},
		{"valid middle", "12", 12, false},
		{"too low", "3", 0, true},
		{"too high", "32", 0, true},
		{"zero", "0", 12, false}, // falls back to default
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("HTTP_ADDR", ":8080")
			os.Setenv("BCRYPT_COST", tc.value)

			cfg, err := Load()
			if tc.err {
				if err == nil {
					t.Fatal("Load should return error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.BcryptCost != tc.want {
				t.Errorf("BcryptCost = %d, want %d", cfg.BcryptCost, tc.want)
			}
		})
	}
}

func TestTTL(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"valid", "30m", 30 * time.Minute},
		{"invalid", "soon", time.Hour},
		{"zero", "0", time.Hour},
		{"negative", "-5m", time.Hour},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("HTTP_ADDR", ":8080")
			os.Setenv("SESSION_TTL", tc.value)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got := cfg.TTL(); got != tc.want {
				t.Errorf("TTL = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestGrace_ZeroAllowed(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("SESSION_GRACE", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Grace(); got != 0 {
		t.Errorf("Grace = %v, want 0", got)
	}
}

func TestSweepInterval_Disabled(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("SESSION_SWEEP_INTERVAL", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.SweepInterval(); got != 0 {
		t.Errorf("SweepInterval = %v, want 0 (disabled)", got)
	}
}

func TestResetTTL_Default(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.ResetTTL(); got != 30*time.Minute {
		t.Errorf("ResetTTL = %v, want %v", got, 30*time.Minute)
	}
}
