package pb

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "pb.TaskSVC"

type TaskSVCServer interface {
	Tasks(context.Context, *TasksRequest) (*TasksReply, error)
	Task(context.Context, *TaskRequest) (*TaskReply, error)
	CreateTask(context.Context, *CreateTaskRequest) (*TaskReply, error)
	UpdateTask(context.Context, *UpdateTaskRequest) (*TaskReply, error)
	DeleteTask(context.Context, *DeleteTaskRequest) (*DeleteTaskReply, error)
}

func RegisterTaskSVCServer(s grpc.ServiceRegistrar, srv TaskSVCServer) {
	s.RegisterService(&TaskSVCServiceDesc, srv)
}

var TaskSVCServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TaskSVCServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Tasks",
			Handler: unary("Tasks", func() interface{} { return new(TasksRequest) },
				func(ctx context.Context, srv TaskSVCServer, req interface{}) (interface{}, error) {
					return srv.Tasks(ctx, req.(*TasksRequest))
				}),
		},
		{
			MethodName: "Task",
			Handler: unary("Task", func() interface{} { return new(TaskRequest) },
				func(ctx context.Context, srv TaskSVCServer, req interface{}) (interface{}, error) {
					return srv.Task(ctx, req.(*TaskRequest))
				}),
		},
		{
			MethodName: "CreateTask",
			Handler: unary("CreateTask", func() interface{} { return new(CreateTaskRequest) },
				func(ctx context.Context, srv TaskSVCServer, req interface{}) (interface{}, error) {
					return srv.CreateTask(ctx, req.(*CreateTaskRequest))
				}),
		},
		{
			MethodName: "UpdateTask",
			Handler: unary("UpdateTask", func() interface{} { return new(UpdateTaskRequest) },
				func(ctx context.Context, srv TaskSVCServer, req interface{}) (interface{}, error) {
					return srv.UpdateTask(ctx, req.(*UpdateTaskRequest))
				}),
		},
		{
			MethodName: "DeleteTask",
			Handler: unary("DeleteTask", func() interface{} { return new(DeleteTaskRequest) },
				func(ctx context.Context, srv TaskSVCServer, req interface{}) (interface{}, error) {
					return srv.DeleteTask(ctx, req.(*DeleteTaskRequest))
				}),
		},
	},
	Streams: []grpc.StreamDesc{},
}

func unary(
	method string,
	newRequest func() interface{},
	call func(context.Context, TaskSVCServer, interface{}) (interface{}, error),
) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := newRequest()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(ctx, srv.(TaskSVCServer), in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + ServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(ctx, srv.(TaskSVCServer), req)
		}
		return interceptor(ctx, in, info, handler)
	}
}
