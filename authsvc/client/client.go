package client

import (
	"io"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/sd"
	consulsd "github.com/go-kit/kit/sd/consul"
	"github.com/go-kit/kit/sd/lb"
	"github.com/todoapp/todokit/authsvc/pkg/authendpoint"
	"github.com/todoapp/todokit/authsvc/pkg/authtransport"
)

// New returns auth endpoints that discover healthy authsvc instances
// through consul and retry across them.
func New(apiclient consulsd.Client, logger log.Logger, retryMax int, retryTimeout time.Duration) (authendpoint.Set, error) {
	var (
		tags        = []string{}
		passingOnly = true
		instancer   = consulsd.NewInstancer(apiclient, logger, "authsvc", tags, passingOnly)
	)

	return NewWithInstancer(instancer, logger, retryMax, retryTimeout), nil
}

// NewWithInstancer builds the balanced endpoint set on top of any
// instancer, e.g. sd.FixedInstancer for a known address.
func NewWithInstancer(instancer sd.Instancer, logger log.Logger, retryMax int, retryTimeout time.Duration) authendpoint.Set {
	balanced := func(pick func(authendpoint.Set) endpoint.Endpoint) endpoint.Endpoint {
		endpointer := sd.NewEndpointer(instancer, factoryFor(pick, logger), logger)
		balancer := lb.NewRoundRobin(endpointer)
		return lb.Retry(retryMax, retryTimeout, balancer)
	}

	return authendpoint.Set{
		RegisterEndpoint:      balanced(func(s authendpoint.Set) endpoint.Endpoint { return s.RegisterEndpoint }),
		LoginEndpoint:         balanced(func(s authendpoint.Set) endpoint.Endpoint { return s.LoginEndpoint }),
		ValidateEndpoint:      balanced(func(s authendpoint.Set) endpoint.Endpoint { return s.ValidateEndpoint }),
		ProfileEndpoint:       balanced(func(s authendpoint.Set) endpoint.Endpoint { return s.ProfileEndpoint }),
		UpdateProfileEndpoint: balanced(func(s authendpoint.Set) endpoint.Endpoint { return s.UpdateProfileEndpoint }),
	}
}

func factoryFor(pick func(authendpoint.Set) endpoint.Endpoint, logger log.Logger) sd.Factory {
	return func(instance string) (endpoint.Endpoint, io.Closer, error) {
		endpoints, err := authtransport.NewHTTPClient(instance, logger)
		if err != nil {
			return nil, nil, err
		}
		return pick(endpoints), nil, nil
	}
}
