package tasktransport

import (
	"context"
	"errors"
	"time"

	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/circuitbreaker"
	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/ratelimit"
	"github.com/go-kit/kit/transport"
	grpctransport "github.com/go-kit/kit/transport/grpc"
	"github.com/sony/gobreaker"
	"github.com/todoapp/todokit/tasksvc"
	"github.com/todoapp/todokit/tasksvc/pb"
	"github.com/todoapp/todokit/tasksvc/pkg/taskendpoint"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
)

type grpcServer struct {
	tasks      grpctransport.Handler
	task       grpctransport.Handler
	createTask grpctransport.Handler
	updateTask grpctransport.Handler
	deleteTask grpctransport.Handler
}

// NewGRPCServer serves the task endpoints over gRPC. The bearer token
// travels in the "authorization" metadata key.
func NewGRPCServer(endpoints taskendpoint.Set, logger log.Logger) pb.TaskSVCServer {
	options := []grpctransport.ServerOption{
		grpctransport.ServerErrorHandler(transport.NewLogErrorHandler(logger)),
		grpctransport.ServerBefore(kitjwt.GRPCToContext()),
	}

	return &grpcServer{
		tasks: grpctransport.NewServer(
			endpoints.TasksEndpoint,
			decodeGRPCTasksRequest,
			encodeGRPCTasksResponse,
			options...,
		),
		task: grpctransport.NewServer(
			endpoints.TaskEndpoint,
			decodeGRPCTaskRequest,
			encodeGRPCTaskResponse,
			options...,
		),
		createTask: grpctransport.NewServer(
			endpoints.CreateTaskEndpoint,
			decodeGRPCCreateTaskRequest,
			encodeGRPCTaskResponse,
			options...,
		),
		updateTask: grpctransport.NewServer(
			endpoints.UpdateTaskEndpoint,
			decodeGRPCUpdateTaskRequest,
			encodeGRPCTaskResponse,
			options...,
		),
		deleteTask: grpctransport.NewServer(
			endpoints.DeleteTaskEndpoint,
			decodeGRPCDeleteTaskRequest,
			encodeGRPCDeleteTaskResponse,
			options...,
		),
	}
}

func (s *grpcServer) Tasks(ctx context.Context, req *pb.TasksRequest) (*pb.TasksReply, error) {
	_, rep, err := s.tasks.ServeGRPC(ctx, req)
	if err != nil {
		return nil, err
	}
	return rep.(*pb.TasksReply), nil
}

func (s *grpcServer) Task(ctx context.Context, req *pb.TaskRequest) (*pb.TaskReply, error) {
	_, rep, err := s.task.ServeGRPC(ctx, req)
	if err != nil {
		return nil, err
	}
	return rep.(*pb.TaskReply), nil
}

func (s *grpcServer) CreateTask(ctx context.Context, req *pb.CreateTaskRequest) (*pb.TaskReply, error) {
	_, rep, err := s.createTask.ServeGRPC(ctx, req)
	if err != nil {
		return nil, err
	}
	return rep.(*pb.TaskReply), nil
}

func (s *grpcServer) UpdateTask(ctx context.Context, req *pb.UpdateTaskRequest) (*pb.TaskReply, error) {
	_, rep, err := s.updateTask.ServeGRPC(ctx, req)
	if err != nil {
		return nil, err
	}
	return rep.(*pb.TaskReply), nil
}

func (s *grpcServer) DeleteTask(ctx context.Context, req *pb.DeleteTaskRequest) (*pb.DeleteTaskReply, error) {
	_, rep, err := s.deleteTask.ServeGRPC(ctx, req)
	if err != nil {
		return nil, err
	}
	return rep.(*pb.DeleteTaskReply), nil
}

// NewGRPCClient returns endpoints that call a remote task service over conn.
// The connection must be dialed with pb.WithCodec. Every endpoint shares one
// rate limiter and has its own circuit breaker.
func NewGRPCClient(conn *grpc.ClientConn, logger log.Logger) taskendpoint.Set {
	limiter := ratelimit.NewErroringLimiter(rate.NewLimiter(rate.Every(10*time.Millisecond), 100))

	options := []grpctransport.ClientOption{
		grpctransport.ClientBefore(kitjwt.ContextToGRPC()),
	}

	guard := func(method string, e endpoint.Endpoint) endpoint.Endpoint {
		e = limiter(e)
		e = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    method,
			Timeout: 30 * time.Second,
		}))(e)
		return LoggingClientMiddleware(log.With(logger, "method", method))(e)
	}

	var tasksEndpoint endpoint.Endpoint
	{
		tasksEndpoint = grpctransport.NewClient(
			conn,
			pb.ServiceName,
			"Tasks",
			encodeGRPCTasksRequest,
			decodeGRPCTasksResponse,
			pb.TasksReply{},
			options...,
		).Endpoint()
		tasksEndpoint = guard("Tasks", tasksEndpoint)
	}

	var taskEndpoint endpoint.Endpoint
	{
		taskEndpoint = grpctransport.NewClient(
			conn,
			pb.ServiceName,
			"Task",
			encodeGRPCTaskRequest,
			decodeGRPCTaskResponse,
			pb.TaskReply{},
			options...,
		).Endpoint()
		taskEndpoint = guard("Task", taskEndpoint)
	}

	var createTaskEndpoint endpoint.Endpoint
	{
		createTaskEndpoint = grpctransport.NewClient(
			conn,
			pb.ServiceName,
			"CreateTask",
			encodeGRPCCreateTaskRequest,
			decodeGRPCTaskResponse,
			pb.TaskReply{},
			options...,
		).Endpoint()
		createTaskEndpoint = guard("CreateTask", createTaskEndpoint)
	}

	var updateTaskEndpoint endpoint.Endpoint
	{
		updateTaskEndpoint = grpctransport.NewClient(
			conn,
			pb.ServiceName,
			"UpdateTask",
			encodeGRPCUpdateTaskRequest,
			decodeGRPCTaskResponse,
			pb.TaskReply{},
			options...,
		).Endpoint()
		updateTaskEndpoint = guard("UpdateTask", updateTaskEndpoint)
	}

	var deleteTaskEndpoint endpoint.Endpoint
	{
		deleteTaskEndpoint = grpctransport.NewClient(
			conn,
			pb.ServiceName,
			"DeleteTask",
			encodeGRPCDeleteTaskRequest,
			decodeGRPCDeleteTaskResponse,
			pb.DeleteTaskReply{},
			options...,
		).Endpoint()
		deleteTaskEndpoint = guard("DeleteTask", deleteTaskEndpoint)
	}

	return taskendpoint.Set{
		TasksEndpoint:      tasksEndpoint,
		TaskEndpoint:       taskEndpoint,
		CreateTaskEndpoint: createTaskEndpoint,
		UpdateTaskEndpoint: updateTaskEndpoint,
		DeleteTaskEndpoint: deleteTaskEndpoint,
	}
}

// LoggingClientMiddleware logs failed outbound calls.
func LoggingClientMiddleware(logger log.Logger) endpoint.Middleware {
	return func(next endpoint.Endpoint) endpoint.Endpoint {
		return func(ctx context.Context, request interface{}) (interface{}, error) {
			response, err := next(ctx, request)
			if err != nil {
				logger.Log("transport", "gRPC", "err", err)
			}
			return response, err
		}
	}
}

func decodeGRPCTasksRequest(_ context.Context, grpcReq interface{}) (interface{}, error) {
	req := grpcReq.(*pb.TasksRequest)
	return taskendpoint.TasksRequest{Username: req.Username}, nil
}

func encodeGRPCTasksResponse(_ context.Context, response interface{}) (interface{}, error) {
	resp := response.(taskendpoint.TasksResponse)
	tasks := make([]*pb.Task, 0, len(resp.Tasks))
	for _, t := range resp.Tasks {
		tasks = append(tasks, taskToPB(t))
	}
	return &pb.TasksReply{Tasks: tasks, Err: err2str(resp.Err)}, nil
}

func encodeGRPCTasksRequest(_ context.Context, request interface{}) (interface{}, error) {
	req := request.(taskendpoint.TasksRequest)
	return &pb.TasksRequest{Username: req.Username}, nil
}

func decodeGRPCTasksResponse(_ context.Context, grpcReply interface{}) (interface{}, error) {
	reply := grpcReply.(*pb.TasksReply)
	tasks := make([]tasksvc.Task, 0, len(reply.Tasks))
	for _, t := range reply.Tasks {
		tasks = append(tasks, taskFromPB(t))
	}
	return taskendpoint.TasksResponse{Tasks: tasks, Err: str2err(reply.Err)}, nil
}

func decodeGRPCTaskRequest(_ context.Context, grpcReq interface{}) (interface{}, error) {
	req := grpcReq.(*pb.TaskRequest)
	return taskendpoint.TaskRequest{TaskID: req.TaskId}, nil
}

func encodeGRPCTaskRequest(_ context.Context, request interface{}) (interface{}, error) {
	req := request.(taskendpoint.TaskRequest)
	return &pb.TaskRequest{TaskId: req.TaskID}, nil
}

func decodeGRPCCreateTaskRequest(_ context.Context, grpcReq interface{}) (interface{}, error) {
	req := grpcReq.(*pb.CreateTaskRequest)
	return taskendpoint.CreateTaskRequest{Task: taskFromPB(req.Task)}, nil
}

func encodeGRPCCreateTaskRequest(_ context.Context, request interface{}) (interface{}, error) {
	req := request.(taskendpoint.CreateTaskRequest)
	return &pb.CreateTaskRequest{Task: taskToPB(req.Task)}, nil
}

func decodeGRPCUpdateTaskRequest(_ context.Context, grpcReq interface{}) (interface{}, error) {
	req := grpcReq.(*pb.UpdateTaskRequest)
	return taskendpoint.UpdateTaskRequest{TaskID: req.TaskId, Task: taskFromPB(req.Task)}, nil
}

func encodeGRPCUpdateTaskRequest(_ context.Context, request interface{}) (interface{}, error) {
	req := request.(taskendpoint.UpdateTaskRequest)
	return &pb.UpdateTaskRequest{TaskId: req.TaskID, Task: taskToPB(req.Task)}, nil
}

// encodeGRPCTaskResponse answers get, create and update.
func encodeGRPCTaskResponse(_ context.Context, response interface{}) (interface{}, error) {
	resp := response.(taskendpoint.TaskResponse)
	if resp.Err != nil {
		return &pb.TaskReply{Err: err2str(resp.Err)}, nil
	}
	return &pb.TaskReply{Task: taskToPB(resp.Task)}, nil
}

func decodeGRPCTaskResponse(_ context.Context, grpcReply interface{}) (interface{}, error) {
	reply := grpcReply.(*pb.TaskReply)
	return taskendpoint.TaskResponse{Task: taskFromPB(reply.Task), Err: str2err(reply.Err)}, nil
}

func decodeGRPCDeleteTaskRequest(_ context.Context, grpcReq interface{}) (interface{}, error) {
	req := grpcReq.(*pb.DeleteTaskRequest)
	return taskendpoint.DeleteTaskRequest{TaskID: req.TaskId}, nil
}

func encodeGRPCDeleteTaskRequest(_ context.Context, request interface{}) (interface{}, error) {
	req := request.(taskendpoint.DeleteTaskRequest)
	return &pb.DeleteTaskRequest{TaskId: req.TaskID}, nil
}

func encodeGRPCDeleteTaskResponse(_ context.Context, response interface{}) (interface{}, error) {
	resp := response.(taskendpoint.DeleteTaskResponse)
	return &pb.DeleteTaskReply{Err: err2str(resp.Err)}, nil
}

func decodeGRPCDeleteTaskResponse(_ context.Context, grpcReply interface{}) (interface{}, error) {
	reply := grpcReply.(*pb.DeleteTaskReply)
	return taskendpoint.DeleteTaskResponse{Err: str2err(reply.Err)}, nil
}

func taskToPB(t tasksvc.Task) *pb.Task {
	p := &pb.Task{
		Id:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		Username:    t.Username,
	}
	if !t.CreatedAt.IsZero() {
		p.CreatedAt = t.CreatedAt.UnixNano()
	}
	if t.CompletedAt != nil {
		p.CompletedAt = t.CompletedAt.UnixNano()
	}
	return p
}

func taskFromPB(p *pb.Task) tasksvc.Task {
	if p == nil {
		return tasksvc.Task{}
	}

	t := tasksvc.Task{
		ID:          p.Id,
		Title:       p.Title,
		Description: p.Description,
		Completed:   p.Completed,
		Username:    p.Username,
	}
	if p.CreatedAt != 0 {
		t.CreatedAt = time.Unix(0, p.CreatedAt).UTC()
	}
	if p.CompletedAt != 0 {
		completedAt := time.Unix(0, p.CompletedAt).UTC()
		t.CompletedAt = &completedAt
	}
	return t
}

func str2err(s string) error {
	switch s {
	case "":
		return nil
	case tasksvc.ErrInvalidArgument.Error():
		return tasksvc.ErrInvalidArgument
	case tasksvc.ErrTaskNotFound.Error():
		return tasksvc.ErrTaskNotFound
	case tasksvc.ErrUnauthorized.Error():
		return tasksvc.ErrUnauthorized
	case tasksvc.ErrForbidden.Error():
		return tasksvc.ErrForbidden
	}
	return errors.New(s)
}

func err2str(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
