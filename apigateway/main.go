package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-kit/kit/log"
	consulsd "github.com/go-kit/kit/sd/consul"
	"github.com/gorilla/mux"
	"github.com/hashicorp/consul/api"
	authclient "github.com/todoapp/todokit/authsvc/client"
	"github.com/todoapp/todokit/authsvc/pkg/authendpoint"
	"github.com/todoapp/todokit/authsvc/pkg/authtransport"
	taskclient "github.com/todoapp/todokit/tasksvc/client"
	"github.com/todoapp/todokit/tasksvc/pkg/taskendpoint"
	"github.com/todoapp/todokit/tasksvc/pkg/tasktransport"
)

type config struct {
	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8000"`
	ConsulAddr   string        `env:"CONSUL_ADDR"`
	RetryMax     int           `env:"RETRY_MAX" envDefault:"3"`
	RetryTimeout time.Duration `env:"RETRY_TIMEOUT" envDefault:"500ms"`
}

func main() {
	var logger log.Logger
	{
		logger = log.NewLogfmtLogger(os.Stderr)
		logger = log.With(logger, "ts", log.DefaultTimestampUTC)
		logger = log.With(logger, "caller", log.DefaultCaller)
	}

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		logger.Log("during", "LoadConfig", "err", err)
		os.Exit(1)
	}

	var (
		httpAddr     = flag.String("http.addr", cfg.HTTPAddr, "Address for HTTP (JSON) server")
		consulAddr   = flag.String("consul.addr", cfg.ConsulAddr, "Consul agent address")
		retryMax     = flag.Int("retry.max", cfg.RetryMax, "per-request retries to different instances")
		retryTimeout = flag.Duration("retry.timeout", cfg.RetryTimeout, "per-request timeout, including retries")
	)
	flag.Parse()

	var client consulsd.Client
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

		client = consulsd.NewClient(consulClient)
	}

	var r http.Handler
	{
		authEndpoints, _ := authclient.New(client, logger, *retryMax, *retryTimeout)
		taskEndpoints, _ := taskclient.New(client, logger, *retryMax, *retryTimeout)
		r = newRouter(authEndpoints, taskEndpoints, logger)
	}

	// Interrupt handler.
	errc := make(chan error)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	// HTTP transport.
	go func() {
		logger.Log("transport", "HTTP", "addr", *httpAddr)
		errc <- http.ListenAndServe(*httpAddr, r)
	}()

	// Run!
	logger.Log("exit", <-errc)
}

func newRouter(authEndpoints authendpoint.Set, taskEndpoints taskendpoint.Set, logger log.Logger) http.Handler {
	r := mux.NewRouter()
	r.PathPrefix("/auth/v1").Handler(mount("/auth/v1", authtransport.NewHTTPHandler(authEndpoints, logger)))
	r.PathPrefix("/task/v1").Handler(mount("/task/v1", tasktransport.NewHTTPHandler(taskEndpoints, logger)))
	return r
}

// mount strips prefix and hands the rest to h. A request for the bare
// prefix reaches h as "/".
func mount(prefix string, h http.Handler) http.Handler {
	return http.StripPrefix(prefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" {
			r.URL.Path = "/"
		}
		h.ServeHTTP(w, r)
	}))
}
