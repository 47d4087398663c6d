package authendpoint

import (
	"context"
	"encoding/json"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/todoapp/todokit/authsvc"
	"github.com/todoapp/todokit/authsvc/pkg/authservice"
)

type Set struct {
	RegisterEndpoint      endpoint.Endpoint
	LoginEndpoint         endpoint.Endpoint
	ValidateEndpoint      endpoint.Endpoint
	ProfileEndpoint       endpoint.Endpoint
	UpdateProfileEndpoint endpoint.Endpoint
}

func New(svc authservice.Service, logger log.Logger) Set {
	var registerEndpoint endpoint.Endpoint
	{
		registerEndpoint = MakeRegisterEndpoint(svc)
		registerEndpoint = LoggingMiddleware(log.With(logger, "method", "Register"))(registerEndpoint)
	}

	var loginEndpoint endpoint.Endpoint
	{
		loginEndpoint = MakeLoginEndpoint(svc)
		loginEndpoint = LoggingMiddleware(log.With(logger, "method", "Login"))(loginEndpoint)
	}

	var validateEndpoint endpoint.Endpoint
	{
		validateEndpoint = MakeValidateEndpoint(svc)
		validateEndpoint = LoggingMiddleware(log.With(logger, "method", "Validate"))(validateEndpoint)
	}

	var profileEndpoint endpoint.Endpoint
	{
		profileEndpoint = MakeProfileEndpoint(svc)
		profileEndpoint = LoggingMiddleware(log.With(logger, "method", "Profile"))(profileEndpoint)
	}

	var updateProfileEndpoint endpoint.Endpoint
	{
		updateProfileEndpoint = MakeUpdateProfileEndpoint(svc)
		updateProfileEndpoint = LoggingMiddleware(log.With(logger, "method", "UpdateProfile"))(updateProfileEndpoint)
	}

	return Set{
		RegisterEndpoint:      registerEndpoint,
		LoginEndpoint:         loginEndpoint,
		ValidateEndpoint:      validateEndpoint,
		ProfileEndpoint:       profileEndpoint,
		UpdateProfileEndpoint: updateProfileEndpoint,
	}
}

func (s Set) Register(ctx context.Context, username, password string) (authsvc.Session, error) {
	response, err := s.RegisterEndpoint(ctx, RegisterRequest{Username: username, Password: password})
	if err != nil {
		return authsvc.Session{}, err
	}

	resp := response.(RegisterResponse)
	return resp.Session, resp.Err
}

func (s Set) Login(ctx context.Context, username, password string) (authsvc.Session, error) {
	response, err := s.LoginEndpoint(ctx, LoginRequest{Username: username, Password: password})
	if err != nil {
		return authsvc.Session{}, err
	}

	resp := response.(LoginResponse)
	return resp.Session, resp.Err
}

func (s Set) Validate(ctx context.Context, token string) (bool, error) {
	response, err := s.ValidateEndpoint(ctx, ValidateRequest{Token: token})
	if err != nil {
		return false, err
	}

	resp := response.(ValidateResponse)
	return resp.V, resp.Err
}

// Profile returns the profile of the token's subject.
func (s Set) Profile(ctx context.Context, token string) (authsvc.Profile, error) {
	response, err := s.ProfileEndpoint(ctx, ProfileRequest{Token: token})
	if err != nil {
		return authsvc.Profile{}, err
	}

	resp := response.(ProfileResponse)
	return resp.Profile, resp.Err
}

func (s Set) UpdateProfile(ctx context.Context, token string, patch authsvc.ProfilePatch) (authsvc.Profile, error) {
	response, err := s.UpdateProfileEndpoint(ctx, UpdateProfileRequest{Token: token, Patch: patch})
	if err != nil {
		return authsvc.Profile{}, err
	}

	resp := response.(ProfileResponse)
	return resp.Profile, resp.Err
}

func MakeRegisterEndpoint(s authservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(RegisterRequest)
		session, err := s.Register(ctx, req.Username, req.Password)

		return RegisterResponse{Session: session, Err: err}, nil
	}
}

func MakeLoginEndpoint(s authservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(LoginRequest)
		session, err := s.Login(ctx, req.Username, req.Password)

		return LoginResponse{Session: session, Err: err}, nil
	}
}

func MakeValidateEndpoint(s authservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(ValidateRequest)
		v, err := s.Validate(ctx, req.Token)

		return ValidateResponse{V: v, Err: err}, nil
	}
}

func MakeProfileEndpoint(s authservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(ProfileRequest)
		username, err := s.Username(ctx, req.Token)
		if err != nil {
			return ProfileResponse{Err: err}, nil
		}

		p, err := s.Profile(ctx, username)
		return ProfileResponse{Profile: p, Err: subjectErr(err)}, nil
	}
}

func MakeUpdateProfileEndpoint(s authservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(UpdateProfileRequest)
		username, err := s.Username(ctx, req.Token)
		if err != nil {
			return ProfileResponse{Err: err}, nil
		}

		p, err := s.UpdateProfile(ctx, username, req.Patch)
		return ProfileResponse{Profile: p, Err: subjectErr(err)}, nil
	}
}

// subjectErr reports a token whose subject no longer exists, e.g. after a
// rename, as an invalid token.
func subjectErr(err error) error {
	if err == authsvc.ErrUserNotFound {
		return authsvc.ErrInvalidToken
	}
	return err
}

var (
	_ endpoint.Failer = RegisterResponse{}
	_ endpoint.Failer = LoginResponse{}
	_ endpoint.Failer = ValidateResponse{}
	_ endpoint.Failer = ProfileResponse{}
)

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	authsvc.Session
	Err error `json:"-"`
}

func (r RegisterResponse) Failed() error { return r.Err }

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	authsvc.Session
	Err error `json:"-"`
}

func (r LoginResponse) Failed() error { return r.Err }

type ValidateRequest struct {
	Token string `json:"token"`
}

type ValidateResponse struct {
	V   bool  `json:"v"`
	Err error `json:"-"`
}

func (r ValidateResponse) Failed() error { return r.Err }

// MarshalJSON renders the response as a bare boolean.
func (r ValidateResponse) MarshalJSON() ([]byte, error) { return json.Marshal(r.V) }

type ProfileRequest struct {
	Token string `json:"-"`
}

type UpdateProfileRequest struct {
	Token string `json:"-"`
	Patch authsvc.ProfilePatch
}

type ProfileResponse struct {
	authsvc.Profile
	Err error `json:"-"`
}

func (r ProfileResponse) Failed() error { return r.Err }
