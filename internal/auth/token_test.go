package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenIssuerRoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret", 30*time.Minute)
	if err != nil {
		t.Fatalf("NewTokenIssuer() error = %v", err)
	}

	token, expires, err := issuer.Issue("admin")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if time.Until(expires) <= 29*time.Minute {
		t.Errorf("expected expiry about 30 minutes out, got %v", expires)
	}

	username, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if username != "admin" {
		t.Errorf("expected subject admin, got %q", username)
	}
}

func TestTokenIssuerRejects(t *testing.T) {
	issuer, _ := NewTokenIssuer("test-secret", time.Minute)
	other, _ := NewTokenIssuer("other-secret", time.Minute)

	forged, _, _ := other.Issue("admin")

	expiredIssuer, _ := NewTokenIssuer("test-secret", time.Minute)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, _, _ := expiredIssuer.Issue("admin")

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	wrongIssuer, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "someone-else",
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("test-secret"))

	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:  tokenIssuer,
		Subject: "admin",
	}).SignedString([]byte("test-secret"))

	tests := []struct {
		name  string
		token string
	}{
		{"Garbage", "not-a-token"},
		{"Empty", ""},
		{"Other secret", forged},
		{"Expired", expired},
		{"Unsigned", none},
		{"Wrong issuer", wrongIssuer},
		{"No expiry", noExpiry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuer.Parse(tt.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestTokenIssuerTokensAreUnique(t *testing.T) {
	issuer, _ := NewTokenIssuer("test-secret", time.Minute)
	a, _, _ := issuer.Issue("admin")
	b, _, _ := issuer.Issue("admin")
	if a == b {
		t.Error("expected distinct tokens for separate logins")
	}
	if strings.Count(a, ".") != 2 {
		t.Errorf("expected a three part JWT, got %q", a)
	}
}

func TestNewTokenIssuerValidation(t *testing.T) {
	if _, err := NewTokenIssuer("", time.Minute); err == nil {
		t.Error("expected an empty secret to be rejected")
	}
	if _, err := NewTokenIssuer("secret", 0); err == nil {
		t.Error("expected a zero ttl to be rejected")
	}
}
