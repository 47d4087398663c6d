package client

import (
	"io"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/sd"
	consulsd "github.com/go-kit/kit/sd/consul"
	"github.com/go-kit/kit/sd/lb"
	"github.com/todoapp/todokit/tasksvc/pb"
	"github.com/todoapp/todokit/tasksvc/pkg/taskendpoint"
	"github.com/todoapp/todokit/tasksvc/pkg/tasktransport"
	"google.golang.org/grpc"
)

// New returns task endpoints backed by the gRPC listeners of the tasksvc
// instances registered in consul.
func New(apiclient consulsd.Client, logger log.Logger, retryMax int, retryTimeout time.Duration) (taskendpoint.Set, error) {
	var (
		tags        = []string{}
		passingOnly = true
		instancer   = consulsd.NewInstancer(apiclient, logger, "tasksvc", tags, passingOnly)
	)

	return NewWithInstancer(instancer, logger, retryMax, retryTimeout), nil
}

func NewWithInstancer(instancer sd.Instancer, logger log.Logger, retryMax int, retryTimeout time.Duration) taskendpoint.Set {
	balanced := func(pick func(taskendpoint.Set) endpoint.Endpoint) endpoint.Endpoint {
		endpointer := sd.NewEndpointer(instancer, factoryFor(pick, logger), logger)
		balancer := lb.NewRoundRobin(endpointer)
		return lb.Retry(retryMax, retryTimeout, balancer)
	}

	return taskendpoint.Set{
		TasksEndpoint:      balanced(func(s taskendpoint.Set) endpoint.Endpoint { return s.TasksEndpoint }),
		TaskEndpoint:       balanced(func(s taskendpoint.Set) endpoint.Endpoint { return s.TaskEndpoint }),
		CreateTaskEndpoint: balanced(func(s taskendpoint.Set) endpoint.Endpoint { return s.CreateTaskEndpoint }),
		UpdateTaskEndpoint: balanced(func(s taskendpoint.Set) endpoint.Endpoint { return s.UpdateTaskEndpoint }),
		DeleteTaskEndpoint: balanced(func(s taskendpoint.Set) endpoint.Endpoint { return s.DeleteTaskEndpoint }),
	}
}

func factoryFor(pick func(taskendpoint.Set) endpoint.Endpoint, logger log.Logger) sd.Factory {
	return func(instance string) (endpoint.Endpoint, io.Closer, error) {
		conn, err := grpc.Dial(instance, grpc.WithInsecure(), pb.WithCodec())
		if err != nil {
			return nil, nil, err
		}
		endpoints := tasktransport.NewGRPCClient(conn, logger)

		return pick(endpoints), conn, nil
	}
}
