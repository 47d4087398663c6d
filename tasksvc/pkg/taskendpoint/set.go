package taskendpoint

import (
	"context"
	"encoding/json"
	"net/http"

	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/todoapp/todokit/tasksvc"
	"github.com/todoapp/todokit/tasksvc/pkg/taskservice"
)

type Set struct {
	CreateTaskEndpoint endpoint.Endpoint
	TasksEndpoint      endpoint.Endpoint
	TaskEndpoint       endpoint.Endpoint
	UpdateTaskEndpoint endpoint.Endpoint
	DeleteTaskEndpoint endpoint.Endpoint
}

func New(svc taskservice.Service, logger log.Logger) Set {
	var createTaskEndpoint endpoint.Endpoint
	{
		createTaskEndpoint = MakeCreateTaskEndpoint(svc)
		createTaskEndpoint = LoggingMiddleware(log.With(logger, "method", "CreateTask"))(createTaskEndpoint)
	}

	var tasksEndpoint endpoint.Endpoint
	{
		tasksEndpoint = MakeTasksEndpoint(svc)
		tasksEndpoint = LoggingMiddleware(log.With(logger, "method", "Tasks"))(tasksEndpoint)
	}

	var taskEndpoint endpoint.Endpoint
	{
		taskEndpoint = MakeTaskEndpoint(svc)
		taskEndpoint = LoggingMiddleware(log.With(logger, "method", "Task"))(taskEndpoint)
	}

	var updateTaskEndpoint endpoint.Endpoint
	{
		updateTaskEndpoint = MakeUpdateTaskEndpoint(svc)
		updateTaskEndpoint = LoggingMiddleware(log.With(logger, "method", "UpdateTask"))(updateTaskEndpoint)
	}

	var deleteTaskEndpoint endpoint.Endpoint
	{
		deleteTaskEndpoint = MakeDeleteTaskEndpoint(svc)
		deleteTaskEndpoint = LoggingMiddleware(log.With(logger, "method", "DeleteTask"))(deleteTaskEndpoint)
	}

	return Set{
		CreateTaskEndpoint: createTaskEndpoint,
		TasksEndpoint:      tasksEndpoint,
		TaskEndpoint:       taskEndpoint,
		UpdateTaskEndpoint: updateTaskEndpoint,
		DeleteTaskEndpoint: deleteTaskEndpoint,
	}
}

// The Set methods carry a.Token in the context, where the transports expect
// the caller's bearer token.

func (s Set) Tasks(ctx context.Context, a tasksvc.Auth, username string) ([]tasksvc.Task, error) {
	resp, err := s.TasksEndpoint(withToken(ctx, a), TasksRequest{Username: username})
	if err != nil {
		return nil, err
	}
	response := resp.(TasksResponse)
	return response.Tasks, response.Err
}

func (s Set) Task(ctx context.Context, a tasksvc.Auth, taskID uint64) (tasksvc.Task, error) {
	resp, err := s.TaskEndpoint(withToken(ctx, a), TaskRequest{TaskID: taskID})
	if err != nil {
		return tasksvc.Task{}, err
	}
	response := resp.(TaskResponse)
	return response.Task, response.Err
}

func (s Set) CreateTask(ctx context.Context, a tasksvc.Auth, task tasksvc.Task) (tasksvc.Task, error) {
	resp, err := s.CreateTaskEndpoint(withToken(ctx, a), CreateTaskRequest{Task: task})
	if err != nil {
		return tasksvc.Task{}, err
	}
	response := resp.(TaskResponse)
	return response.Task, response.Err
}

func (s Set) UpdateTask(ctx context.Context, a tasksvc.Auth, taskID uint64, task tasksvc.Task) (tasksvc.Task, error) {
	resp, err := s.UpdateTaskEndpoint(withToken(ctx, a), UpdateTaskRequest{TaskID: taskID, Task: task})
	if err != nil {
		return tasksvc.Task{}, err
	}
	response := resp.(TaskResponse)
	return response.Task, response.Err
}

func (s Set) DeleteTask(ctx context.Context, a tasksvc.Auth, taskID uint64) error {
	resp, err := s.DeleteTaskEndpoint(withToken(ctx, a), DeleteTaskRequest{TaskID: taskID})
	if err != nil {
		return err
	}
	response := resp.(DeleteTaskResponse)
	return response.Err
}

func MakeTasksEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(TasksRequest)
		t, err := s.Tasks(ctx, auth(ctx), req.Username)
		return TasksResponse{Tasks: t, Err: err}, nil
	}
}

func MakeTaskEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(TaskRequest)
		t, err := s.Task(ctx, auth(ctx), req.TaskID)
		return TaskResponse{Task: t, Err: err}, nil
	}
}

func MakeCreateTaskEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(CreateTaskRequest)
		t, err := s.CreateTask(ctx, auth(ctx), req.Task)
		return TaskResponse{Task: t, Err: err}, nil
	}
}

func MakeUpdateTaskEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(UpdateTaskRequest)
		t, err := s.UpdateTask(ctx, auth(ctx), req.TaskID, req.Task)
		return TaskResponse{Task: t, Err: err}, nil
	}
}

func MakeDeleteTaskEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(DeleteTaskRequest)
		err = s.DeleteTask(ctx, auth(ctx), req.TaskID)
		return DeleteTaskResponse{Err: err}, nil
	}
}

func auth(ctx context.Context) tasksvc.Auth {
	token, _ := ctx.Value(kitjwt.JWTTokenContextKey).(string)
	return tasksvc.Auth{Token: token}
}

func withToken(ctx context.Context, a tasksvc.Auth) context.Context {
	if a.Token == "" {
		return ctx
	}
	return context.WithValue(ctx, kitjwt.JWTTokenContextKey, a.Token)
}

var (
	_ endpoint.Failer = TasksResponse{}
	_ endpoint.Failer = TaskResponse{}
	_ endpoint.Failer = DeleteTaskResponse{}
)

type TasksRequest struct {
	Username string
}

type TasksResponse struct {
	Tasks []tasksvc.Task
	Err   error
}

func (r TasksResponse) Failed() error { return r.Err }

// MarshalJSON renders the response as a bare array.
func (r TasksResponse) MarshalJSON() ([]byte, error) {
	if r.Tasks == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r.Tasks)
}

type TaskRequest struct {
	TaskID uint64
}

type CreateTaskRequest struct {
	Task tasksvc.Task
}

type UpdateTaskRequest struct {
	TaskID uint64
	Task   tasksvc.Task
}

// TaskResponse answers get, create and update.
type TaskResponse struct {
	tasksvc.Task
	Err error `json:"-"`
}

func (r TaskResponse) Failed() error { return r.Err }

type DeleteTaskRequest struct {
	TaskID uint64
}

type DeleteTaskResponse struct {
	Err error `json:"-"`
}

func (r DeleteTaskResponse) Failed() error { return r.Err }

func (r DeleteTaskResponse) StatusCode() int { return http.StatusNoContent }
