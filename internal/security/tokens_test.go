package security

import "testing"

func TestGenerateSessionToken(t *testing.T) {
	tok, err := GenerateSessionToken()
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}
	if len(tok) != sessionTokenBytes*2 {
		t.Errorf("token length = %d, want %d hex chars", len(tok), sessionTokenBytes*2)
	}
	tok2, err := GenerateSessionToken()
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}
	if tok == tok2 {
		t.Error("two generated tokens should not be equal")
	}
}

func TestHashSessionToken_Deterministic(t *testing.T) {
	if HashSessionToken("abc") != HashSessionToken("abc") {
		t.Error("hash of the same token should be stable")
	}
	if HashSessionToken("abc") == HashSessionToken("abd") {
		t.Error("different tokens should hash differently")
	}
}

func TestSessionTokenHashEqual(t *testing.T) {
	tok, err := GenerateSessionToken()
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}
	stored := HashSessionToken(tok)
	if !SessionTokenHashEqual(tok, stored) {
		t.Error("matching token should compare equal to its stored hash")
	}
	if SessionTokenHashEqual(tok+"x", stored) {
		t.Error("non-matching token should not compare equal")
	}
	if SessionTokenHashEqual("", stored) {
		t.Error("empty token should not compare equal")
	}
}
