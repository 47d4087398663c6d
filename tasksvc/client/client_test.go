package client

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/sd"
	"github.com/todoapp/todokit/authsvc"
	"github.com/todoapp/todokit/authsvc/pkg/authendpoint"
	"github.com/todoapp/todokit/tasksvc"
	"github.com/todoapp/todokit/tasksvc/inmem"
	"github.com/todoapp/todokit/tasksvc/pb"
	"github.com/todoapp/todokit/tasksvc/pkg/taskendpoint"
	"github.com/todoapp/todokit/tasksvc/pkg/taskservice"
	"github.com/todoapp/todokit/tasksvc/pkg/tasktransport"
	"google.golang.org/grpc"
)

func TestNewWithInstancer(t *testing.T) {
	logger := log.NewNopLogger()

	profile := func(_ context.Context, request interface{}) (interface{}, error) {
		if request.(authendpoint.ProfileRequest).Token != "t-alice" {
			return authendpoint.ProfileResponse{Err: authsvc.ErrInvalidToken}, nil
		}
		return authendpoint.ProfileResponse{Profile: authsvc.Profile{Username: "alice"}}, nil
	}
	svc := taskservice.ProxingMiddleware(profile)(taskservice.New(inmem.NewTaskRepository(), logger))

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	baseServer := grpc.NewServer()
	pb.RegisterTaskSVCServer(baseServer, tasktransport.NewGRPCServer(taskendpoint.New(svc, logger), logger))
	go baseServer.Serve(lis)
	defer baseServer.Stop()

	endpoints := NewWithInstancer(sd.FixedInstancer{lis.Addr().String()}, logger, 3, time.Second)
	ctx := context.Background()
	alice := tasksvc.Auth{Token: "t-alice"}

	// The endpointer learns about the fixed instance asynchronously.
	deadline := time.Now().Add(2 * time.Second)
	for {
		_, err := endpoints.Tasks(ctx, alice, "alice")
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("no endpoint became available: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	task, err := endpoints.CreateTask(ctx, alice, tasksvc.Task{Title: "water plants"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := endpoints.Task(ctx, tasksvc.Auth{Token: "garbage"}, task.ID); err != tasksvc.ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized without retries, got %v", err)
	}

	got, err := endpoints.Task(ctx, alice, task.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "water plants" {
		t.Fatalf("unexpected task %+v", got)
	}
}
