package credential

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"
)

func newHSManager(t *testing.T, ttl time.Duration) *Manager {
	t.Helper()

	m, err := NewManager(Config{
		TTL:           ttl,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("test-signing-secret-0123456789"),
		Issuer:        "recovery",
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func TestIssueAndParseRoundTrip(t *testing.T) {
	m := newHSManager(t, 15*time.Minute)

	token, err := m.Issue("acct-1", "password_reset")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if claims.AccountID != "acct-1" {
		t.Fatalf("AccountID = %q", claims.AccountID)
	}
	if claims.Purpose != "password_reset" {
		t.Fatalf("Purpose = %q", claims.Purpose)
	}
}

func TestParseRejectsExpired(t *testing.T) {
	m := newHSManager(t, time.Millisecond)

	token, err := m.Issue("acct-1", "password_reset")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	if _, err := m.Parse(token); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expired token error = %v, want ErrInvalidCredential", err)
	}
}

func TestParseRejectsWrongKey(t *testing.T) {
	m := newHSManager(t, 15*time.Minute)

	other, err := NewManager(Config{
		TTL:           15 * time.Minute,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("a-completely-different-secret!"),
		Issuer:        "recovery",
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	token, err := other.Issue("acct-1", "password_reset")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := m.Parse(token); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("wrong-key token error = %v, want ErrInvalidCredential", err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	m := newHSManager(t, 15*time.Minute)

	for _, token := range []string{"", "garbage", "a.b.c"} {
		if _, err := m.Parse(token); !errors.Is(err, ErrInvalidCredential) {
			t.Fatalf("token %q error = %v, want ErrInvalidCredential", token, err)
		}
	}
}

func TestEd25519RoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	m, err := NewManager(Config{
		TTL:           15 * time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "recovery",
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	token, err := m.Issue("acct-1", "password_reset")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if claims.AccountID != "acct-1" {
		t.Fatalf("AccountID = %q", claims.AccountID)
	}
}

func TestNewManagerValidation(t *testing.T) {
	cases := []Config{
		{TTL: 0, SigningMethod: MethodHS256, PrivateKey: []byte("k")},
		{TTL: time.Minute, SigningMethod: MethodHS256},
		{TTL: time.Minute, SigningMethod: "rs256", PrivateKey: []byte("k")},
		{TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: []byte("k"), Leeway: 5 * time.Minute},
		{TTL: time.Minute, SigningMethod: MethodEd25519, PrivateKey: []byte("too short")},
	}
	for i, cfg := range cases {
		if _, err := NewManager(cfg); err == nil {
			t.Fatalf("case %d: NewManager succeeded, want error", i)
		}
	}
}

func TestIssueRequiresAccountID(t *testing.T) {
	m := newHSManager(t, 15*time.Minute)
	if _, err := m.Issue("", "password_reset"); err == nil {
		t.Fatal("Issue with empty account succeeded")
	}
}
