package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mercadia/storefront-backend/pkg/config"
)

var testJWT = config.JWTConfig{Secret: "test-secret", Issuer: "storefront-test"}

func TestIssueAndParseRoundTrip(t *testing.T) {
	t.Parallel()

	customerID := uuid.New()
	raw, err := IssueToken(testJWT, customerID, RoleCustomer, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := ParseToken(testJWT, raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.CustomerID != customerID {
		t.Fatalf("customer id mismatch: %s", claims.CustomerID)
	}
	if claims.Role != RoleCustomer {
		t.Fatalf("unexpected role %q", claims.Role)
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	t.Parallel()

	raw, err := IssueToken(config.JWTConfig{Secret: "test-secret", Issuer: "someone-else"}, uuid.New(), RoleCustomer, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ParseToken(testJWT, raw); err == nil {
		t.Fatal("expected issuer mismatch error")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	raw, err := IssueToken(testJWT, uuid.New(), RoleAdmin, -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ParseToken(testJWT, raw); err == nil {
		t.Fatal("expected expiry error")
	}
}

func TestParseRejectsTamperedSecret(t *testing.T) {
	t.Parallel()

	raw, err := IssueToken(config.JWTConfig{Secret: "other-secret", Issuer: testJWT.Issuer}, uuid.New(), RoleCustomer, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ParseToken(testJWT, raw); err == nil {
		t.Fatal("expected signature error")
	}
}
