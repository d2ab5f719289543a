package migrate

import "testing"

func TestRun_EmptyDSN(t *testing.T) {
	if err := Run("", "up"); err == nil {
		t.Fatal("Run with empty DSN should return error")
	}
}

func TestRun_BadDirection(t *testing.T) {
	for _, dir := range []string{"sideways", "", "UP"} {
		if err := Run("postgres://localhost/x", dir); err == nil {
			t.Errorf("Run with direction %q should return error", dir)
		}
	}
}
