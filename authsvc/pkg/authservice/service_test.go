package authservice

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/todoapp/todokit/authsvc"
	"github.com/todoapp/todokit/authsvc/inmem"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(c *clock) (Service, authsvc.UserRepository) {
	users := inmem.NewUserRepository()
	return NewBasicService(users, newTestTokenizer(c), NewHasher(bcrypt.MinCost)), users
}

func strptr(s string) *string { return &s }

func TestRegisterDuplicateUsername(t *testing.T) {
	svc, _ := newTestService(newClock())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "pw1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := svc.Register(ctx, "alice", "pw2")
	if err != authsvc.ErrUsernameTaken {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestRegisterStoresHashedPassword(t *testing.T) {
	svc, users := newTestService(newClock())

	s, err := svc.Register(context.Background(), "alice", "pw1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if s.Username != "alice" || s.Token == "" {
		t.Fatalf("unexpected session %+v", s)
	}

	u, err := users.FindByUsername("alice")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if u.Password == "pw1" || !strings.HasPrefix(u.Password, "$2") {
		t.Fatalf("expected a bcrypt hash, got %q", u.Password)
	}
}

func TestRegisterRejectsEmptyInput(t *testing.T) {
	svc, _ := newTestService(newClock())

	for _, in := range [][2]string{{"", "pw"}, {"alice", ""}} {
		if _, err := svc.Register(context.Background(), in[0], in[1]); err != authsvc.ErrInvalidArgument {
			t.Fatalf("register(%q, %q): expected ErrInvalidArgument, got %v", in[0], in[1], err)
		}
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestService(newClock())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "pw1"); err != nil {
		t.Fatalf("register: %v", err)
	}

	s, err := svc.Login(ctx, "alice", "wrong")
	if err != authsvc.ErrBadCredentials {
		t.Fatalf("expected ErrBadCredentials, got %v", err)
	}
	if s.Token != "" {
		t.Fatalf("expected no token, got %q", s.Token)
	}

	if _, err := svc.Login(ctx, "nobody", "pw1"); err != authsvc.ErrBadCredentials {
		t.Fatalf("expected ErrBadCredentials for unknown user, got %v", err)
	}
}

func TestTokenValidUntilExpiry(t *testing.T) {
	c := newClock()
	svc, _ := newTestService(c)
	ctx := context.Background()

	reg, err := svc.Register(ctx, "alice", "pw1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	login, err := svc.Login(ctx, "alice", "pw1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	for name, token := range map[string]string{"register": reg.Token, "login": login.Token} {
		if v, _ := svc.Validate(ctx, token); !v {
			t.Fatalf("%s token: expected valid immediately", name)
		}
	}

	c.Advance(time.Hour + time.Second)

	for name, token := range map[string]string{"register": reg.Token, "login": login.Token} {
		v, err := svc.Validate(ctx, token)
		if err != nil {
			t.Fatalf("%s token: validate should not fail, got %v", name, err)
		}
		if v {
			t.Fatalf("%s token: expected invalid after expiry", name)
		}
	}
}

func TestValidateUnknownUserAndGarbage(t *testing.T) {
	c := newClock()
	svc, _ := newTestService(c)
	ctx := context.Background()

	orphan, err := newTestTokenizer(c).Generate("ghost")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	for _, token := range []string{"", "garbage", orphan} {
		v, err := svc.Validate(ctx, token)
		if err != nil || v {
			t.Fatalf("validate(%q): expected false, nil; got %v, %v", token, v, err)
		}
	}
}

func TestUsernameFromToken(t *testing.T) {
	svc, _ := newTestService(newClock())
	ctx := context.Background()

	s, err := svc.Register(ctx, "alice", "pw1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	username, err := svc.Username(ctx, s.Token)
	if err != nil || username != "alice" {
		t.Fatalf("expected alice, got %q, %v", username, err)
	}
	if _, err := svc.Username(ctx, "x.y.z"); err != authsvc.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestProfileMissingUser(t *testing.T) {
	svc, _ := newTestService(newClock())

	if _, err := svc.Profile(context.Background(), "ghost"); err != authsvc.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	_, err := svc.UpdateProfile(context.Background(), "ghost", authsvc.ProfilePatch{AvatarURL: strptr("x")})
	if err != authsvc.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUpdateProfileAvatarOnly(t *testing.T) {
	svc, _ := newTestService(newClock())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "pw1"); err != nil {
		t.Fatalf("register: %v", err)
	}

	updated, err := svc.UpdateProfile(ctx, "alice", authsvc.ProfilePatch{AvatarURL: strptr("https://example.com/a.png")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Username != "alice" {
		t.Fatalf("expected username unchanged, got %q", updated.Username)
	}

	got, err := svc.Profile(ctx, "alice")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if got.Username != "alice" || got.AvatarURL == nil || *got.AvatarURL != "https://example.com/a.png" {
		t.Fatalf("unexpected profile %+v", got)
	}
}

func TestUpdateProfileRenameConflict(t *testing.T) {
	svc, users := newTestService(newClock())
	ctx := context.Background()

	for _, name := range []string{"alice", "bob"} {
		if _, err := svc.Register(ctx, name, "pw"); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	_, err := svc.UpdateProfile(ctx, "alice", authsvc.ProfilePatch{
		Username:  strptr("bob"),
		AvatarURL: strptr("https://example.com/a.png"),
	})
	if err != authsvc.ErrUsernameTaken {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}

	alice, err := users.FindByUsername("alice")
	if err != nil {
		t.Fatalf("alice should still exist: %v", err)
	}
	if alice.AvatarURL != nil {
		t.Fatalf("expected alice untouched, got avatar %q", *alice.AvatarURL)
	}
	bob, err := users.FindByUsername("bob")
	if err != nil {
		t.Fatalf("bob should still exist: %v", err)
	}
	if bob.ID == alice.ID {
		t.Fatal("expected two distinct users")
	}
}

func TestUpdateProfileRename(t *testing.T) {
	svc, _ := newTestService(newClock())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "pw1"); err != nil {
		t.Fatalf("register: %v", err)
	}

	p, err := svc.UpdateProfile(ctx, "alice", authsvc.ProfilePatch{Username: strptr("alicia")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if p.Username != "alicia" || p.AvatarURL != nil {
		t.Fatalf("unexpected profile %+v", p)
	}

	if _, err := svc.Profile(ctx, "alice"); err != authsvc.ErrUserNotFound {
		t.Fatalf("expected old name to be gone, got %v", err)
	}
	if _, err := svc.Login(ctx, "alicia", "pw1"); err != nil {
		t.Fatalf("login under new name: %v", err)
	}

	// Renaming to the current name is a no-op, not a conflict.
	if _, err := svc.UpdateProfile(ctx, "alicia", authsvc.ProfilePatch{Username: strptr("alicia")}); err != nil {
		t.Fatalf("same-name update: %v", err)
	}
	if _, err := svc.UpdateProfile(ctx, "alicia", authsvc.ProfilePatch{Username: strptr("")}); err != authsvc.ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument for empty name, got %v", err)
	}
}

func TestRegisterLoginValidateProfile(t *testing.T) {
	svc, _ := newTestService(newClock())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "pw1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	s, err := svc.Login(ctx, "alice", "pw1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if v, _ := svc.Validate(ctx, s.Token); !v {
		t.Fatal("expected token to validate")
	}

	username, err := svc.Username(ctx, s.Token)
	if err != nil {
		t.Fatalf("username: %v", err)
	}
	p, err := svc.Profile(ctx, username)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.Username != "alice" || p.AvatarURL != nil {
		t.Fatalf("unexpected profile %+v", p)
	}
}
