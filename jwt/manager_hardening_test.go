package jwt

import (
	"errors"
	"strings"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func TestParseSessionRejectsWrongAlgorithm(t *testing.T) {
	m := newTestManager(t)

	claims := SessionClaims{UID: "acct-1", RegisteredClaims: gjwt.RegisteredClaims{
		IssuedAt:  gjwt.NewNumericDate(time.Now()),
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}

	hs384, err := gjwt.NewWithClaims(gjwt.SigningMethodHS384, claims).SignedString(testKey)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := m.ParseSession(hs384); err == nil {
		t.Fatal("expected wrong algorithm to be rejected")
	}

	none, err := gjwt.NewWithClaims(gjwt.SigningMethodNone, claims).SignedString(gjwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := m.ParseSession(none); err == nil {
		t.Fatal("expected alg=none to be rejected")
	}
}

func TestParseSessionIssuerAudience(t *testing.T) {
	m, err := NewManager(Config{SigningKey: testKey, Issuer: "authd", Audience: "api"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	own, err := m.CreateSession("acct-1", "alice", "standard")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := m.ParseSession(own); err != nil {
		t.Fatalf("expected own token to parse: %v", err)
	}

	mint := func(issuer, audience string) string {
		t.Helper()
		claims := SessionClaims{UID: "acct-1", RegisteredClaims: gjwt.RegisteredClaims{
			Issuer:    issuer,
			Audience:  gjwt.ClaimStrings{audience},
			IssuedAt:  gjwt.NewNumericDate(time.Now()),
			ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
		}}
		token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(testKey)
		if err != nil {
			t.Fatalf("sign token: %v", err)
		}
		return token
	}

	if _, err := m.ParseSession(mint("other", "api")); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("wrong issuer: err = %v, want ErrTokenMalformed", err)
	}
	if _, err := m.ParseSession(mint("authd", "other-api")); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("wrong audience: err = %v, want ErrTokenMalformed", err)
	}
}

func TestParseSessionLeeway(t *testing.T) {
	m, err := NewManager(Config{SigningKey: testKey, Leeway: 30 * time.Second})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	mint := func(exp time.Time) string {
		t.Helper()
		claims := SessionClaims{UID: "acct-1", RegisteredClaims: gjwt.RegisteredClaims{
			IssuedAt:  gjwt.NewNumericDate(time.Now().Add(-time.Minute)),
			ExpiresAt: gjwt.NewNumericDate(exp),
		}}
		token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(testKey)
		if err != nil {
			t.Fatalf("sign token: %v", err)
		}
		return token
	}

	if _, err := m.ParseSession(mint(time.Now().Add(-15 * time.Second))); err != nil {
		t.Fatalf("expected expiry within leeway to pass: %v", err)
	}
	if _, err := m.ParseSession(mint(time.Now().Add(-2 * time.Minute))); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expiry beyond leeway: err = %v, want ErrTokenExpired", err)
	}
}

func TestParseSessionTamperedPayload(t *testing.T) {
	m := newTestManager(t)

	alice, err := m.CreateSession("acct-1", "alice", "standard")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	bob, err := m.CreateSession("acct-2", "bob", "elevated")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	aliceParts := strings.Split(alice, ".")
	bobParts := strings.Split(bob, ".")
	if len(aliceParts) != 3 || len(bobParts) != 3 {
		t.Fatalf("unexpected token shape: %d/%d segments", len(aliceParts), len(bobParts))
	}

	// Bob's payload stitched onto Alice's signature.
	stitched := strings.Join([]string{bobParts[0], bobParts[1], aliceParts[2]}, ".")
	if _, err := m.ParseSession(stitched); !errors.Is(err, ErrTokenSignature) {
		t.Fatalf("err = %v, want ErrTokenSignature", err)
	}
}

func TestParseSessionFutureIssuedAt(t *testing.T) {
	m := newTestManager(t)

	claims := SessionClaims{UID: "acct-1", RegisteredClaims: gjwt.RegisteredClaims{
		IssuedAt:  gjwt.NewNumericDate(time.Now().Add(time.Hour)),
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(25 * time.Hour)),
	}}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(testKey)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := m.ParseSession(token); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("err = %v, want ErrTokenMalformed for future iat", err)
	}
}
