package authservice

import (
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/todoapp/todokit/authsvc"
)

type clock struct {
	t time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2026, 1, 23, 10, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time { return c.t }

func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTokenizer(c *clock) *tokenizer {
	return &tokenizer{secret: []byte("test-secret"), ttl: time.Hour, now: c.Now}
}

func TestTokenizerRoundTrip(t *testing.T) {
	tk := newTestTokenizer(newClock())

	token, err := tk.Generate("alice")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	username, err := tk.Username(token)
	if err != nil {
		t.Fatalf("username: %v", err)
	}
	if username != "alice" {
		t.Fatalf("expected alice, got %q", username)
	}
	if !tk.Validate(token, "alice") {
		t.Fatal("expected token to validate for alice")
	}
	if tk.Validate(token, "bob") {
		t.Fatal("expected token not to validate for bob")
	}
}

func TestTokenizerExpiry(t *testing.T) {
	c := newClock()
	tk := newTestTokenizer(c)

	token, err := tk.Generate("alice")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	c.Advance(time.Hour)
	if !tk.Validate(token, "alice") {
		t.Fatal("expected token to be valid at its expiry instant")
	}

	c.Advance(time.Second)
	if tk.Validate(token, "alice") {
		t.Fatal("expected token to be expired")
	}
	if _, err := tk.Username(token); err != authsvc.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenizerRejectsForeignTokens(t *testing.T) {
	c := newClock()
	tk := newTestTokenizer(c)
	other := &tokenizer{secret: []byte("other-secret"), ttl: time.Hour, now: c.Now}

	forged, err := other.Generate("alice")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.StandardClaims{
		Subject:   "alice",
		ExpiresAt: c.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	for name, token := range map[string]string{
		"empty":      "",
		"garbage":    "not-a-token",
		"bad secret": forged,
		"alg none":   none,
	} {
		if _, err := tk.Username(token); err != authsvc.ErrInvalidToken {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
		if tk.Validate(token, "alice") {
			t.Fatalf("%s: expected token to be invalid", name)
		}
	}
}

func TestTokenizerRequiresUsername(t *testing.T) {
	tk := newTestTokenizer(newClock())
	if _, err := tk.Generate(""); err != authsvc.ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
