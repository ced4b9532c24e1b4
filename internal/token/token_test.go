package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func newTestCodec(t *testing.T, ttl time.Duration) *Codec {
	t.Helper()
	codec, err := NewCodec(testSecret, ttl)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return codec
}

func TestNewCodecRejectsBadConfig(t *testing.T) {
	if _, err := NewCodec("", time.Hour); err == nil {
		t.Fatalf("expected error for empty secret")
	}
	if _, err := NewCodec("secret", 0); err == nil {
		t.Fatalf("expected error for zero ttl")
	}
	if _, err := NewCodec("secret", -time.Hour); err == nil {
		t.Fatalf("expected error for negative ttl")
	}
}

func TestIssueVerifyRoundtrip(t *testing.T) {
	codec := newTestCodec(t, 24*time.Hour)
	now := time.Now()

	tokenString, err := codec.Issue("user-123", []string{"user"}, now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := codec.Verify(tokenString, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "user-123" {
		t.Fatalf("unexpected subject: %q", claims.Subject)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "user" {
		t.Fatalf("unexpected roles: %v", claims.Roles)
	}
}

func TestVerifyExpiry(t *testing.T) {
	codec := newTestCodec(t, time.Hour)
	now := time.Now().Truncate(time.Second)

	tokenString, err := codec.Issue("user-123", nil, now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	expiry := now.Add(time.Hour)

	if _, err := codec.Verify(tokenString, expiry.Add(-time.Second)); err != nil {
		t.Fatalf("token should be valid just before expiry: %v", err)
	}
	if _, err := codec.Verify(tokenString, expiry); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired at expiry, got %v", err)
	}
	if _, err := codec.Verify(tokenString, expiry.Add(time.Hour)); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired after expiry, got %v", err)
	}
}

func TestVerifyTamperedSignature(t *testing.T) {
	codec := newTestCodec(t, time.Hour)
	now := time.Now()

	tokenString, err := codec.Issue("user-123", nil, now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", tokenString)
	}

	// Flip the top bit of each signature character's 6-bit value in turn.
	// The top bit always lands in the decoded signature bytes, so every
	// tampered variant decodes to a different MAC.
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	for i := range parts[2] {
		sig := []byte(parts[2])
		idx := strings.IndexByte(alphabet, sig[i])
		if idx < 0 {
			t.Fatalf("byte %d: %q not in base64url alphabet", i, sig[i])
		}
		sig[i] = alphabet[idx^0x20]
		tampered := parts[0] + "." + parts[1] + "." + string(sig)
		if _, err := codec.Verify(tampered, now); !errors.Is(err, ErrBadSignature) {
			t.Fatalf("byte %d: expected ErrBadSignature, got %v", i, err)
		}
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	codec := newTestCodec(t, time.Hour)
	other, err := NewCodec("other-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	now := time.Now()
	tokenString, err := other.Issue("user-123", nil, now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := codec.Verify(tokenString, now); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}
}

func TestVerifyMalformed(t *testing.T) {
	codec := newTestCodec(t, time.Hour)
	now := time.Now()

	for _, tokenString := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		if _, err := codec.Verify(tokenString, now); !errors.Is(err, ErrMalformed) {
			t.Fatalf("%q: expected ErrMalformed, got %v", tokenString, err)
		}
	}
}

func TestVerifyRejectsForeignSigningMethod(t *testing.T) {
	codec := newTestCodec(t, time.Hour)
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS384, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := codec.Verify(foreign, now); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}
}

func TestVerifyRejectsMissingExpiry(t *testing.T) {
	codec := newTestCodec(t, time.Hour)
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  "user-123",
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := codec.Verify(noExpiry, now); err == nil {
		t.Fatalf("expected error for token without expiry")
	}
}
