package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudylake/tenantapi/internal/apperror"
)

func TestIssueAndVerify(t *testing.T) {
	tm := NewTokenManager("test-secret", "cloudylake")

	token, err := tm.Issue("user-1", "acme", time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := tm.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", claims.UserID)
	}
	if claims.TenantID != "acme" {
		t.Errorf("TenantID = %q, want acme", claims.TenantID)
	}
	if claims.Issuer != "cloudylake" {
		t.Errorf("Issuer = %q, want cloudylake", claims.Issuer)
	}
}

func TestIssueRequiresUser(t *testing.T) {
	tm := NewTokenManager("test-secret", "cloudylake")
	if _, err := tm.Issue("", "acme", time.Hour); err == nil {
		t.Fatal("expected error for empty user id")
	}
}

func TestVerifyFailuresCollapse(t *testing.T) {
	tm := NewTokenManager("test-secret", "cloudylake")
	other := NewTokenManager("other-secret", "cloudylake")

	expired, err := tm.Issue("user-1", "acme", -time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	wrongKey, err := other.Issue("user-1", "acme", time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	cases := map[string]string{
		"empty":     "",
		"garbage":   "not.a.token",
		"expired":   expired,
		"wrong key": wrongKey,
		"oversized": strings.Repeat("a", maxTokenLength+1),
	}
	for name, token := range cases {
		if _, err := tm.Verify(token); !errors.Is(err, apperror.ErrInvalidToken) {
			t.Errorf("%s: error = %v, want ErrInvalidToken", name, err)
		}
	}
}

func TestExtractBearer(t *testing.T) {
	if token, ok := ExtractBearer("Bearer abc123"); !ok || token != "abc123" {
		t.Errorf("ExtractBearer = %q, %v", token, ok)
	}
	for _, header := range []string{"", "abc123", "Basic abc123", "Bearer "} {
		if _, ok := ExtractBearer(header); ok {
			t.Errorf("header %q should not extract", header)
		}
	}
}
