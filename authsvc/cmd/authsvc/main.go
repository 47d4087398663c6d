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
	consulsd "github.com/go-kit/kit/sd/consul"
	"github.com/hashicorp/consul/api"
	"github.com/oklog/oklog/pkg/group"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/todoapp/todokit/authsvc"
	"github.com/todoapp/todokit/authsvc/db/gorm"
	"github.com/todoapp/todokit/authsvc/inmem"
	"github.com/todoapp/todokit/authsvc/pkg/authendpoint"
	"github.com/todoapp/todokit/authsvc/pkg/authservice"
	"github.com/todoapp/todokit/authsvc/pkg/authtransport"
	"github.com/twinj/uuid"
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

	cfg, err := authsvc.LoadConfig()
	if err != nil {
		logger.Log("during", "LoadConfig", "err", err)
		os.Exit(1)
	}

	fs := flag.NewFlagSet("authsvc", flag.ExitOnError)
	var (
		httpAddr    = fs.String("http.addr", cfg.HTTPAddr, "HTTP listen address")
		consulAddr  = fs.String("consul.addr", cfg.ConsulAddr, "Consul agent address")
		databaseURL = fs.String("database.url", cfg.DatabaseURL, "Database URL (empty for sqlite, \"inmem\" for memory)")
		tokenTTL    = fs.Duration("token.ttl", cfg.TokenTTL, "lifetime of issued bearer tokens")
	)

	fs.Usage = usageFor(fs, os.Args[0]+" [flags]")
	fs.Parse(os.Args[1:])

	var users authsvc.UserRepository
	{
		if *databaseURL == "inmem" {
			users = inmem.NewUserRepository()
		} else {
			var db *libgorm.DB
			if *databaseURL != "" {
				db, err = libgorm.Open(postgres.Open(*databaseURL), &libgorm.Config{})
			} else {
				db, err = libgorm.Open(sqlite.Open("auth.db"), &libgorm.Config{})
			}
			if err != nil {
				logger.Log("during", "Open", "err", err)
				os.Exit(1)
			}
			if err := db.AutoMigrate(&authsvc.User{}); err != nil {
				logger.Log("during", "AutoMigrate", "err", err)
				os.Exit(1)
			}
			users = gorm.NewUserRepository(db)
		}
	}

	fieldKeys := []string{"method"}

	var service authservice.Service
	{
		service = authservice.New(
			users,
			authservice.NewTokenizer(cfg.TokenSecret, *tokenTTL),
			authservice.NewHasher(0),
			logger,
		)
		service = authservice.InstrumentingMiddleware(
			kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
				Namespace: "api",
				Subsystem: "auth_service",
				Name:      "request_count",
				Help:      "Number of requests received.",
			}, fieldKeys),
			kitprometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
				Namespace: "api",
				Subsystem: "auth_service",
				Name:      "request_latency_seconds",
				Help:      "Total duration of requests in seconds.",
			}, fieldKeys),
		)(service)
	}

	var (
		endpoints   = authendpoint.New(service, logger)
		httpHandler = authtransport.NewHTTPHandler(endpoints, logger)
	)

	var registrar *consulsd.Registrar
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

		host, port, err := net.SplitHostPort(*httpAddr)
		if err != nil {
			logger.Log("err", err)
			os.Exit(1)
		}
		if host == "" {
			host = "localhost"
		}

		p, _ := strconv.Atoi(port)
		asr := &api.AgentServiceRegistration{
			ID:      uuid.NewV4().String(),
			Name:    "authsvc",
			Address: host,
			Port:    p,
		}

		client := consulsd.NewClient(consulClient)
		registrar = consulsd.NewRegistrar(client, asr, logger)
		registrar.Register()
		defer registrar.Deregister()
	}

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
			logger.Log("transport", "HTTP", "addr", *httpAddr, "env", cfg.AppEnv)
			return http.Serve(httpListener, httpHandler)
		}, func(error) {
			httpListener.Close()
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
