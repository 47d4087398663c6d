package tasktransport

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/transport"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/todoapp/todokit/tasksvc"
	"github.com/todoapp/todokit/tasksvc/pkg/taskendpoint"
)

// NewHTTPHandler serves the task API. The bearer token from the
// Authorization header is moved into the request context for the endpoints.
func NewHTTPHandler(endpoints taskendpoint.Set, logger log.Logger) http.Handler {
	options := []httptransport.ServerOption{
		httptransport.ServerErrorEncoder(errorEncoder),
		httptransport.ServerErrorHandler(transport.NewLogErrorHandler(logger)),
		httptransport.ServerBefore(kitjwt.HTTPToContext()),
	}

	tasksHandler := httptransport.NewServer(
		endpoints.TasksEndpoint,
		decodeHTTPTasksRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	taskHandler := httptransport.NewServer(
		endpoints.TaskEndpoint,
		decodeHTTPTaskRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	createTaskHandler := httptransport.NewServer(
		endpoints.CreateTaskEndpoint,
		decodeHTTPCreateTaskRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	updateTaskHandler := httptransport.NewServer(
		endpoints.UpdateTaskEndpoint,
		decodeHTTPUpdateTaskRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	deleteTaskHandler := httptransport.NewServer(
		endpoints.DeleteTaskEndpoint,
		decodeHTTPDeleteTaskRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	r := mux.NewRouter()

	r.Methods("GET").Path("/user/{username}").Handler(tasksHandler)
	r.Methods("GET").Path("/{task_id:[0-9]+}").Handler(taskHandler)
	r.Methods("POST").Path("/").Handler(createTaskHandler)
	r.Methods("PUT").Path("/{task_id:[0-9]+}").Handler(updateTaskHandler)
	r.Methods("DELETE").Path("/{task_id:[0-9]+}").Handler(deleteTaskHandler)
	r.Methods("GET").Path("/metrics").Handler(promhttp.Handler())

	return r
}

func errorEncoder(_ context.Context, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(err2code(err))
	json.NewEncoder(w).Encode(errorWrapper{Error: err.Error()})
}

type errorWrapper struct {
	Error string `json:"error"`
}

func err2code(err error) int {
	switch err {
	case tasksvc.ErrInvalidArgument:
		return http.StatusBadRequest
	case tasksvc.ErrTaskNotFound:
		return http.StatusNotFound
	case tasksvc.ErrUnauthorized:
		return http.StatusUnauthorized
	case tasksvc.ErrForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func decodeHTTPTasksRequest(_ context.Context, r *http.Request) (interface{}, error) {
	return taskendpoint.TasksRequest{Username: mux.Vars(r)["username"]}, nil
}

func decodeHTTPTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	taskID, err := taskIDFrom(r)
	if err != nil {
		return nil, err
	}
	return taskendpoint.TaskRequest{TaskID: taskID}, nil
}

func decodeHTTPCreateTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var req taskendpoint.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req.Task); err != nil {
		return nil, tasksvc.ErrInvalidArgument
	}
	return req, nil
}

func decodeHTTPUpdateTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	taskID, err := taskIDFrom(r)
	if err != nil {
		return nil, err
	}

	req := taskendpoint.UpdateTaskRequest{TaskID: taskID}
	if err := json.NewDecoder(r.Body).Decode(&req.Task); err != nil {
		return nil, tasksvc.ErrInvalidArgument
	}
	return req, nil
}

func decodeHTTPDeleteTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	taskID, err := taskIDFrom(r)
	if err != nil {
		return nil, err
	}
	return taskendpoint.DeleteTaskRequest{TaskID: taskID}, nil
}

// taskIDFrom parses the task_id path variable. The route pattern only admits
// digits, so failure here means the id overflows uint64.
func taskIDFrom(r *http.Request) (uint64, error) {
	taskID, err := strconv.ParseUint(mux.Vars(r)["task_id"], 10, 64)
	if err != nil {
		return 0, tasksvc.ErrInvalidArgument
	}
	return taskID, nil
}

func encodeHTTPGenericResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	if f, ok := response.(endpoint.Failer); ok && f.Failed() != nil {
		errorEncoder(ctx, f.Failed(), w)
		return nil
	}
	return httptransport.EncodeJSONResponse(ctx, w, response)
}
