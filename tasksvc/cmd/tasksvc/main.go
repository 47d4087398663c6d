package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/go-kit/kit/log"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	"github.com/go-kit/kit/sd"
	consulsd "github.com/go-kit/kit/sd/consul"
	kitgrpc "github.com/go-kit/kit/transport/grpc"
	"github.com/hashicorp/consul/api"
	"github.com/oklog/oklog/pkg/group"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	authclient "github.com/todoapp/todokit/authsvc/client"
	"github.com/todoapp/todokit/authsvc/pkg/authendpoint"
	"github.com/todoapp/todokit/tasksvc"
	"github.com/todoapp/todokit/tasksvc/db/gorm"
	"github.com/todoapp/todokit/tasksvc/inmem"
	"github.com/todoapp/todokit/tasksvc/pb"
	"github.com/todoapp/todokit/tasksvc/pkg/taskendpoint"
	"github.com/todoapp/todokit/tasksvc/pkg/taskservice"
	"github.com/todoapp/todokit/tasksvc/pkg/tasktransport"
	"github.com/twinj/uuid"
	"google.golang.org/grpc"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	libgorm "gorm.io/gorm"
)

func main() {
	var logger log.Logger
	{
		logger = log.NewLogfmtLogger(os.Stderr)
		logger = log.With(logger, "ts", log.DefaultTimestampUTC)
		logger = log.With(logger, "caller", log.DefaultCaller)
	}

	cfg, err := tasksvc.LoadConfig()
	if err != nil {
		logger.Log("during", "LoadConfig", "err", err)
		os.Exit(1)
	}

	fs := flag.NewFlagSet("tasksvc", flag.ExitOnError)
	var (
		httpAddr     = fs.String("http.addr", cfg.HTTPAddr, "HTTP listen address")
		grpcAddr     = fs.String("grpc.addr", cfg.GRPCAddr, "gRPC listen address")
		consulAddr   = fs.String("consul.addr", cfg.ConsulAddr, "Consul agent address")
		databaseURL  = fs.String("database.url", cfg.DatabaseURL, "Database URL (empty for sqlite, \"inmem\" for memory)")
		authAddr     = fs.String("auth.addr", cfg.AuthAddr, "authsvc HTTP address (empty to discover through consul)")
		retryMax     = fs.Int("retry.max", cfg.RetryMax, "per-request retries to different instances")
		retryTimeout = fs.Duration("retry.timeout", cfg.RetryTimeout, "per-request timeout, including retries")
	)

	fs.Usage = usageFor(fs, os.Args[0]+" [flags]")
	fs.Parse(os.Args[1:])

	var tasks tasksvc.TaskRepository
	{
		if *databaseURL == "inmem" {
			tasks = inmem.NewTaskRepository()
		} else {
			var db *libgorm.DB
			if *databaseURL != "" {
				db, err = libgorm.Open(postgres.Open(*databaseURL), &libgorm.Config{})
			} else {
				db, err = libgorm.Open(sqlite.Open("task.db"), &libgorm.Config{})
			}
			if err != nil {
				logger.Log("during", "Open", "err", err)
				os.Exit(1)
			}
			if err := db.AutoMigrate(&tasksvc.Task{}); err != nil {
				logger.Log("during", "AutoMigrate", "err", err)
				os.Exit(1)
			}
			tasks = gorm.NewTaskRepository(db)
		}
	}

	var (
		client    consulsd.Client
		registrar *consulsd.Registrar
	)
	{
		consulConfig := api.DefaultConfig()
		if len(*consulAddr) > 0 {
			consulConfig.Address = *consulAddr
		}
		consulClient, err := api.NewClient(consulConfig)
		if err != nil {
			logger.Log("err", err)
			os.Exit(1)
		}

		host, port, err := net.SplitHostPort(*grpcAddr)
		if err != nil {
			logger.Log("err", err)
			os.Exit(1)
		}
		if host == "" {
			host = "localhost"
		}

		// The gateway reaches task instances over gRPC, so that is the
		// address consul hands out.
		p, _ := strconv.Atoi(port)
		asr := &api.AgentServiceRegistration{
			ID:      uuid.NewV4().String(),
			Name:    "tasksvc",
			Address: host,
			Port:    p,
		}

		client = consulsd.NewClient(consulClient)
		registrar = consulsd.NewRegistrar(client, asr, logger)
		registrar.Register()
		defer registrar.Deregister()
	}

	var authEndpoints authendpoint.Set
	{
		authLogger := log.With(logger, "component", "authclient")
		if *authAddr != "" {
			authEndpoints = authclient.NewWithInstancer(sd.FixedInstancer{*authAddr}, authLogger, *retryMax, *retryTimeout)
		} else {
			authEndpoints, _ = authclient.New(client, authLogger, *retryMax, *retryTimeout)
		}
	}

	fieldKeys := []string{"method"}

	var service taskservice.Service
	{
		service = taskservice.New(tasks, logger)
		service = taskservice.InstrumentingMiddleware(
			kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
				Namespace: "api",
				Subsystem: "task_service",
				Name:      "request_count",
				Help:      "Number of requests received.",
			}, fieldKeys),
			kitprometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
				Namespace: "api",
				Subsystem: "task_service",
				Name:      "request_latency_seconds",
				Help:      "Total duration of requests in seconds.",
			}, fieldKeys),
		)(service)
		service = taskservice.ProxingMiddleware(authEndpoints.ProfileEndpoint)(service)
	}

	var (
		endpoints   = taskendpoint.New(service, logger)
		httpHandler = tasktransport.NewHTTPHandler(endpoints, logger)
		grpcServer  = tasktransport.NewGRPCServer(endpoints, logger)
	)

	var g group.Group
	{
		// The HTTP listener mounts the Go kit HTTP handler we created.
		httpListener, err := net.Listen("tcp", *httpAddr)
		if err != nil {
			logger.Log("transport", "HTTP", "during", "Listen", "err", err)
			registrar.Deregister()
			os.Exit(1)
		}
		g.Add(func() error {
			logger.Log("transport", "HTTP", "addr", *httpAddr)
			return http.Serve(httpListener, httpHandler)
		}, func(error) {
			httpListener.Close()
		})
	}
	{
		// The gRPC listener mounts the Go kit gRPC server we created.
		grpcListener, err := net.Listen("tcp", *grpcAddr)
		if err != nil {
			logger.Log("transport", "gRPC", "during", "Listen", "err", err)
			registrar.Deregister()
			os.Exit(1)
		}
		g.Add(func() error {
			logger.Log("transport", "gRPC", "addr", *grpcAddr)
			baseServer := grpc.NewServer(grpc.UnaryInterceptor(kitgrpc.Interceptor))
			pb.RegisterTaskSVCServer(baseServer, grpcServer)
			return baseServer.Serve(grpcListener)
		}, func(error) {
			grpcListener.Close()
		})
	}
	{
		// This function just sits and waits for ctrl-C.
		cancelInterrupt := make(chan struct{})
		g.Add(func() error {
			c := make(chan os.Signal, 1)
			signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
			select {
			case sig := <-c:
				return fmt.Errorf("received signal %s", sig)
			case <-cancelInterrupt:
				return nil
			}
		}, func(error) {
			close(cancelInterrupt)
		})
	}
	logger.Log("exit", g.Run())
}

func usageFor(fs *flag.FlagSet, short string) func() {
	return func() {
		fmt.Fprintf(os.Stderr, "USAGE\n")
		fmt.Fprintf(os.Stderr, "  %s\n", short)
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "FLAGS\n")
		w := tabwriter.NewWriter(os.Stderr, 0, 2, 2, ' ', 0)
		fs.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(w, "\t-%s %s\t%s\n", f.Name, f.DefValue, f.Usage)
		})
		w.Flush()
		fmt.Fprintf(os.Stderr, "\n")
	}
}
