package authtransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"

	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/transport"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/todoapp/todokit/authsvc"
	"github.com/todoapp/todokit/authsvc/pkg/authendpoint"
)

func NewHTTPHandler(endpoints authendpoint.Set, logger log.Logger) http.Handler {
	options := []httptransport.ServerOption{
		httptransport.ServerErrorEncoder(errorEncoder),
		httptransport.ServerErrorHandler(transport.NewLogErrorHandler(logger)),
	}

	registerHandler := httptransport.NewServer(
		endpoints.RegisterEndpoint,
		decodeHTTPRegisterRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	loginHandler := httptransport.NewServer(
		endpoints.LoginEndpoint,
		decodeHTTPLoginRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	validateHandler := httptransport.NewServer(
		endpoints.ValidateEndpoint,
		decodeHTTPValidateRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	profileHandler := httptransport.NewServer(
		endpoints.ProfileEndpoint,
		decodeHTTPProfileRequest,
		encodeHTTPGenericResponse,
		append(options, httptransport.ServerBefore(kitjwt.HTTPToContext()))...,
	)

	updateProfileHandler := httptransport.NewServer(
		endpoints.UpdateProfileEndpoint,
		decodeHTTPUpdateProfileRequest,
		encodeHTTPGenericResponse,
		append(options, httptransport.ServerBefore(kitjwt.HTTPToContext()))...,
	)

	r := mux.NewRouter()

	r.Methods("POST").Path("/register").Handler(registerHandler)
	r.Methods("POST").Path("/login").Handler(loginHandler)
	r.Methods("GET").Path("/validate").Handler(validateHandler)
	r.Methods("GET").Path("/profile").Handler(profileHandler)
	r.Methods("PUT").Path("/profile").Handler(updateProfileHandler)
	r.Methods("GET").Path("/metrics").Handler(promhttp.Handler())

	return r
}

// NewHTTPClient returns endpoints that call a remote auth service instance.
// Business errors come back inside responses; only transport failures and
// 5xx replies surface as endpoint errors, so retries skip the former.
func NewHTTPClient(instance string, logger log.Logger) (authendpoint.Set, error) {
	// Quickly sanitize the instance string.
	if !strings.HasPrefix(instance, "http") {
		instance = "http://" + instance
	}
	u, err := url.Parse(instance)
	if err != nil {
		return authendpoint.Set{}, err
	}

	var options []httptransport.ClientOption

	var registerEndpoint endpoint.Endpoint
	{
		registerEndpoint = httptransport.NewClient(
			"POST",
			copyURL(u, "/register"),
			encodeHTTPGenericRequest,
			decodeHTTPRegisterResponse,
			options...,
		).Endpoint()
	}

	var loginEndpoint endpoint.Endpoint
	{
		loginEndpoint = httptransport.NewClient(
			"POST",
			copyURL(u, "/login"),
			encodeHTTPGenericRequest,
			decodeHTTPLoginResponse,
			options...,
		).Endpoint()
	}

	var validateEndpoint endpoint.Endpoint
	{
		validateEndpoint = httptransport.NewClient(
			"GET",
			copyURL(u, "/validate"),
			encodeHTTPValidateRequest,
			decodeHTTPValidateResponse,
			options...,
		).Endpoint()
	}

	var profileEndpoint endpoint.Endpoint
	{
		profileEndpoint = httptransport.NewClient(
			"GET",
			copyURL(u, "/profile"),
			encodeHTTPProfileRequest,
			decodeHTTPProfileResponse,
			options...,
		).Endpoint()
	}

	var updateProfileEndpoint endpoint.Endpoint
	{
		updateProfileEndpoint = httptransport.NewClient(
			"PUT",
			copyURL(u, "/profile"),
			encodeHTTPUpdateProfileRequest,
			decodeHTTPProfileResponse,
			options...,
		).Endpoint()
	}

	return authendpoint.Set{
		RegisterEndpoint:      registerEndpoint,
		LoginEndpoint:         loginEndpoint,
		ValidateEndpoint:      validateEndpoint,
		ProfileEndpoint:       profileEndpoint,
		UpdateProfileEndpoint: updateProfileEndpoint,
	}, nil
}

func copyURL(base *url.URL, path string) *url.URL {
	next := *base
	next.Path = strings.TrimSuffix(base.Path, "/") + path
	return &next
}

func errorEncoder(_ context.Context, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(err2code(err))
	json.NewEncoder(w).Encode(errorWrapper{Error: err.Error()})
}

func err2code(err error) int {
	switch err {
	case authsvc.ErrInvalidArgument:
		return http.StatusBadRequest
	case authsvc.ErrUsernameTaken:
		return http.StatusConflict
	case authsvc.ErrUserNotFound:
		return http.StatusNotFound
	case authsvc.ErrBadCredentials, authsvc.ErrInvalidToken:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func str2err(s string) error {
	switch s {
	case "":
		return nil
	case authsvc.ErrInvalidArgument.Error():
		return authsvc.ErrInvalidArgument
	case authsvc.ErrUsernameTaken.Error():
		return authsvc.ErrUsernameTaken
	case authsvc.ErrUserNotFound.Error():
		return authsvc.ErrUserNotFound
	case authsvc.ErrBadCredentials.Error():
		return authsvc.ErrBadCredentials
	case authsvc.ErrInvalidToken.Error():
		return authsvc.ErrInvalidToken
	}
	return errors.New(s)
}

type errorWrapper struct {
	Error string `json:"error"`
}

func decodeHTTPRegisterRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var req authendpoint.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, authsvc.ErrInvalidArgument
	}
	return req, nil
}

func decodeHTTPLoginRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var req authendpoint.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, authsvc.ErrInvalidArgument
	}
	return req, nil
}

func decodeHTTPValidateRequest(_ context.Context, r *http.Request) (interface{}, error) {
	return authendpoint.ValidateRequest{Token: r.URL.Query().Get("token")}, nil
}

func decodeHTTPProfileRequest(ctx context.Context, _ *http.Request) (interface{}, error) {
	return authendpoint.ProfileRequest{Token: bearer(ctx)}, nil
}

func decodeHTTPUpdateProfileRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	var patch authsvc.ProfilePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		return nil, authsvc.ErrInvalidArgument
	}
	return authendpoint.UpdateProfileRequest{Token: bearer(ctx), Patch: patch}, nil
}

// bearer returns the token kitjwt.HTTPToContext lifted out of the
// Authorization header, or "" when the header was absent or malformed.
func bearer(ctx context.Context) string {
	token, _ := ctx.Value(kitjwt.JWTTokenContextKey).(string)
	return token
}

func encodeHTTPValidateRequest(_ context.Context, r *http.Request, request interface{}) error {
	req := request.(authendpoint.ValidateRequest)
	q := r.URL.Query()
	q.Set("token", req.Token)
	r.URL.RawQuery = q.Encode()
	return nil
}

func encodeHTTPProfileRequest(_ context.Context, r *http.Request, request interface{}) error {
	req := request.(authendpoint.ProfileRequest)
	r.Header.Set("Authorization", "Bearer "+req.Token)
	return nil
}

func encodeHTTPUpdateProfileRequest(ctx context.Context, r *http.Request, request interface{}) error {
	req := request.(authendpoint.UpdateProfileRequest)
	r.Header.Set("Authorization", "Bearer "+req.Token)
	return encodeHTTPGenericRequest(ctx, r, req.Patch)
}

func decodeHTTPRegisterResponse(_ context.Context, r *http.Response) (interface{}, error) {
	var resp authendpoint.RegisterResponse
	if err := decodeHTTPResponse(r, &resp.Session, &resp.Err); err != nil {
		return nil, err
	}
	return resp, nil
}

func decodeHTTPLoginResponse(_ context.Context, r *http.Response) (interface{}, error) {
	var resp authendpoint.LoginResponse
	if err := decodeHTTPResponse(r, &resp.Session, &resp.Err); err != nil {
		return nil, err
	}
	return resp, nil
}

func decodeHTTPValidateResponse(_ context.Context, r *http.Response) (interface{}, error) {
	var resp authendpoint.ValidateResponse
	if err := decodeHTTPResponse(r, &resp.V, &resp.Err); err != nil {
		return nil, err
	}
	return resp, nil
}

func decodeHTTPProfileResponse(_ context.Context, r *http.Response) (interface{}, error) {
	var resp authendpoint.ProfileResponse
	if err := decodeHTTPResponse(r, &resp.Profile, &resp.Err); err != nil {
		return nil, err
	}
	return resp, nil
}

// decodeHTTPResponse decodes a 200 body into v, a 4xx error body into
// *failed, and reports anything else as a transport error.
func decodeHTTPResponse(r *http.Response, v interface{}, failed *error) error {
	switch {
	case r.StatusCode == http.StatusOK:
		return json.NewDecoder(r.Body).Decode(v)
	case r.StatusCode >= 400 && r.StatusCode < 500:
		var w errorWrapper
		if err := json.NewDecoder(r.Body).Decode(&w); err != nil || w.Error == "" {
			*failed = errors.New(r.Status)
			return nil
		}
		*failed = str2err(w.Error)
		return nil
	}
	return errors.New(r.Status)
}

// encodeHTTPGenericRequest is a transport/http.EncodeRequestFunc that
// JSON-encodes any request to the request body. Primarily useful in a client.
func encodeHTTPGenericRequest(_ context.Context, r *http.Request, request interface{}) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(request); err != nil {
		return err
	}
	r.Header.Set("Content-Type", "application/json; charset=utf-8")
	r.Body = ioutil.NopCloser(&buf)
	return nil
}

// encodeHTTPGenericResponse is a transport/http.EncodeResponseFunc that encodes
// the response as JSON to the response writer. Primarily useful in a server.
func encodeHTTPGenericResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	if f, ok := response.(endpoint.Failer); ok && f.Failed() != nil {
		errorEncoder(ctx, f.Failed(), w)
		return nil
	}
	return httptransport.EncodeJSONResponse(ctx, w, response)
}
