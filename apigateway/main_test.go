package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/sd"
	"github.com/todoapp/todokit/authsvc"
	authclient "github.com/todoapp/todokit/authsvc/client"
	authinmem "github.com/todoapp/todokit/authsvc/inmem"
	"github.com/todoapp/todokit/authsvc/pkg/authendpoint"
	"github.com/todoapp/todokit/authsvc/pkg/authservice"
	"github.com/todoapp/todokit/authsvc/pkg/authtransport"
	"github.com/todoapp/todokit/tasksvc"
	taskclient "github.com/todoapp/todokit/tasksvc/client"
	taskinmem "github.com/todoapp/todokit/tasksvc/inmem"
	"github.com/todoapp/todokit/tasksvc/pb"
	"github.com/todoapp/todokit/tasksvc/pkg/taskendpoint"
	"github.com/todoapp/todokit/tasksvc/pkg/taskservice"
	"github.com/todoapp/todokit/tasksvc/pkg/tasktransport"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"
)

// newTestGateway runs both services on loopback and fronts them with the
// gateway router, the way main does with consul-discovered instances.
func newTestGateway(t *testing.T) (*httptest.Server, authendpoint.Set, taskendpoint.Set) {
	t.Helper()
	logger := log.NewNopLogger()

	authSvc := authservice.New(
		authinmem.NewUserRepository(),
		authservice.NewTokenizer("test-secret", time.Hour),
		authservice.NewHasher(bcrypt.MinCost),
		logger,
	)
	authSrv := httptest.NewServer(authtransport.NewHTTPHandler(authendpoint.New(authSvc, logger), logger))
	t.Cleanup(authSrv.Close)
	authEndpoints := authclient.NewWithInstancer(sd.FixedInstancer{strings.TrimPrefix(authSrv.URL, "http://")}, logger, 3, time.Second)

	taskSvc := taskservice.New(taskinmem.NewTaskRepository(), logger)
	taskSvc = taskservice.ProxingMiddleware(authEndpoints.ProfileEndpoint)(taskSvc)
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	baseServer := grpc.NewServer()
	pb.RegisterTaskSVCServer(baseServer, tasktransport.NewGRPCServer(taskendpoint.New(taskSvc, logger), logger))
	go baseServer.Serve(lis)
	t.Cleanup(baseServer.Stop)
	taskEndpoints := taskclient.NewWithInstancer(sd.FixedInstancer{lis.Addr().String()}, logger, 3, time.Second)

	gateway := httptest.NewServer(newRouter(authEndpoints, taskEndpoints, logger))
	t.Cleanup(gateway.Close)
	return gateway, authEndpoints, taskEndpoints
}

// waitReady blocks until both endpointers have picked up their instance.
func waitReady(t *testing.T, authEndpoints authendpoint.Set, taskEndpoints taskendpoint.Set) {
	t.Helper()
	ctx := context.Background()

	deadline := time.Now().Add(2 * time.Second)
	for {
		_, authErr := authEndpoints.Validate(ctx, "")
		_, taskErr := taskEndpoints.Tasks(ctx, tasksvc.Auth{Token: "garbage"}, "alice")
		if authErr == nil && taskErr == tasksvc.ErrUnauthorized {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("no endpoint became available: auth %v, task %v", authErr, taskErr)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func do(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestGatewayRoutesToServices(t *testing.T) {
	gateway, authEndpoints, taskEndpoints := newTestGateway(t)
	waitReady(t, authEndpoints, taskEndpoints)

	resp := do(t, "GET", gateway.URL+"/auth/v1/validate?token=garbage", "", "")
	var valid bool
	decode(t, resp, &valid)
	if resp.StatusCode != http.StatusOK || valid {
		t.Fatalf("validate: expected 200 false, got %d %v", resp.StatusCode, valid)
	}

	resp = do(t, "POST", gateway.URL+"/auth/v1/register", "", `{"username":"alice","password":"pw1"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register: expected 200, got %d", resp.StatusCode)
	}
	var session authsvc.Session
	decode(t, resp, &session)

	resp = do(t, "GET", gateway.URL+"/auth/v1/validate?token="+session.Token, "", "")
	decode(t, resp, &valid)
	if resp.StatusCode != http.StatusOK || !valid {
		t.Fatalf("validate: expected 200 true, got %d %v", resp.StatusCode, valid)
	}

	// The bare prefix reaches the task service as its root path.
	resp = do(t, "POST", gateway.URL+"/task/v1", session.Token, `{"title":"buy milk"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create: expected 200, got %d", resp.StatusCode)
	}
	var created tasksvc.Task
	decode(t, resp, &created)
	if created.ID == 0 || created.Username != "alice" || created.Title != "buy milk" {
		t.Fatalf("unexpected task %+v", created)
	}

	resp = do(t, "POST", gateway.URL+"/task/v1/", session.Token, `{"title":"water plants"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create with trailing slash: expected 200, got %d", resp.StatusCode)
	}

	resp = do(t, "GET", gateway.URL+"/task/v1/user/alice", session.Token, "")
	var tasks []tasksvc.Task
	decode(t, resp, &tasks)
	if resp.StatusCode != http.StatusOK || len(tasks) != 2 {
		t.Fatalf("list: expected 200 with 2 tasks, got %d %+v", resp.StatusCode, tasks)
	}

	resp = do(t, "POST", gateway.URL+"/task/v1", "garbage", `{"title":"x"}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("create with bad token: expected 401, got %d", resp.StatusCode)
	}
}

func TestMountBarePrefix(t *testing.T) {
	var seen string
	h := mount("/task/v1", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.URL.Path
	}))

	for path, want := range map[string]string{
		"/task/v1":        "/",
		"/task/v1/":       "/",
		"/task/v1/user/a": "/user/a",
	} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", path, nil))
		if seen != want {
			t.Fatalf("%s: expected %q, got %q", path, want, seen)
		}
	}
}
