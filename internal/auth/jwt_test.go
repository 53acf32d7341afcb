package auth

import (
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	token, err := Issue("S001", "checkin-service", "test-key", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := Parse(token.Value, "test-key", "checkin-service")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "S001" {
		t.Fatalf("expected subject S001, got %q", claims.Subject)
	}
	if claims.Role != "student" {
		t.Fatalf("expected student role, got %q", claims.Role)
	}
}

func TestParseRejectsBadTokens(t *testing.T) {
	token, err := Issue("S001", "checkin-service", "test-key", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := Parse(token.Value, "other-key", "checkin-service"); err == nil {
		t.Fatal("wrong signing key should fail")
	}
	if _, err := Parse(token.Value, "test-key", "other-issuer"); err == nil {
		t.Fatal("issuer mismatch should fail")
	}
	if _, err := Parse("not-a-token", "test-key", "checkin-service"); err == nil {
		t.Fatal("garbage token should fail")
	}

	expired, err := Issue("S001", "checkin-service", "test-key", -time.Minute)
	if err != nil {
		t.Fatalf("issue expired: %v", err)
	}
	if _, err := Parse(expired.Value, "test-key", "checkin-service"); err == nil {
		t.Fatal("expired token should fail")
	}
}
