package client

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/sd"
	"github.com/todoapp/todokit/authsvc"
	"github.com/todoapp/todokit/authsvc/inmem"
	"github.com/todoapp/todokit/authsvc/pkg/authendpoint"
	"github.com/todoapp/todokit/authsvc/pkg/authservice"
	"github.com/todoapp/todokit/authsvc/pkg/authtransport"
	"golang.org/x/crypto/bcrypt"
)

func TestNewWithInstancer(t *testing.T) {
	logger := log.NewNopLogger()
	svc := authservice.NewBasicService(
		inmem.NewUserRepository(),
		authservice.NewTokenizer("test-secret", time.Hour),
		authservice.NewHasher(bcrypt.MinCost),
	)
	srv := httptest.NewServer(authtransport.NewHTTPHandler(authendpoint.New(svc, logger), logger))
	defer srv.Close()

	instancer := sd.FixedInstancer{strings.TrimPrefix(srv.URL, "http://")}
	endpoints := NewWithInstancer(instancer, logger, 3, time.Second)
	ctx := context.Background()

	// The endpointer learns about the fixed instance asynchronously.
	deadline := time.Now().Add(2 * time.Second)
	for {
		_, err := endpoints.Validate(ctx, "")
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("no endpoint became available: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	s, err := endpoints.Register(ctx, "alice", "pw1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := endpoints.Register(ctx, "alice", "pw1"); err != authsvc.ErrUsernameTaken {
		t.Fatalf("expected ErrUsernameTaken without retries, got %v", err)
	}

	p, err := endpoints.Profile(ctx, s.Token)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.Username != "alice" {
		t.Fatalf("expected alice, got %q", p.Username)
	}
}
