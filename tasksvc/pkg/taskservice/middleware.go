package taskservice

import (
	"context"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics"
	"github.com/todoapp/todokit/authsvc"
	"github.com/todoapp/todokit/authsvc/pkg/authendpoint"
	"github.com/todoapp/todokit/tasksvc"
)

type Middleware func(Service) Service

func LoggingMiddleware(logger log.Logger) Middleware {
	return func(next Service) Service {
		return loggingMiddleware{logger, next}
	}
}

type loggingMiddleware struct {
	logger log.Logger
	next   Service
}

func (mw loggingMiddleware) Tasks(ctx context.Context, a tasksvc.Auth, username string) (t []tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log(
			"method", "Tasks",
			"user", a.Username,
			"username", username,
			"count", len(t),
			"err", err,
		)
	}()
	return mw.next.Tasks(ctx, a, username)
}

func (mw loggingMiddleware) Task(ctx context.Context, a tasksvc.Auth, taskID uint64) (t tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log(
			"method", "Task",
			"user", a.Username,
			"task_id", taskID,
			"err", err,
		)
	}()
	return mw.next.Task(ctx, a, taskID)
}

func (mw loggingMiddleware) CreateTask(ctx context.Context, a tasksvc.Auth, task tasksvc.Task) (t tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log(
			"method", "CreateTask",
			"user", a.Username,
			"task_id", t.ID,
			"title", task.Title,
			"err", err,
		)
	}()
	return mw.next.CreateTask(ctx, a, task)
}

func (mw loggingMiddleware) UpdateTask(ctx context.Context, a tasksvc.Auth, taskID uint64, task tasksvc.Task) (t tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log(
			"method", "UpdateTask",
			"user", a.Username,
			"task_id", taskID,
			"title", task.Title,
			"completed", task.Completed,
			"err", err,
		)
	}()
	return mw.next.UpdateTask(ctx, a, taskID, task)
}

func (mw loggingMiddleware) DeleteTask(ctx context.Context, a tasksvc.Auth, taskID uint64) (err error) {
	defer func() {
		mw.logger.Log(
			"method", "DeleteTask",
			"user", a.Username,
			"task_id", taskID,
			"err", err,
		)
	}()
	return mw.next.DeleteTask(ctx, a, taskID)
}

func InstrumentingMiddleware(counter metrics.Counter, latency metrics.Histogram) Middleware {
	return func(next Service) Service {
		return instrumentingMiddleware{counter, latency, next}
	}
}

type instrumentingMiddleware struct {
	requestCount   metrics.Counter
	requestLatency metrics.Histogram
	next           Service
}

func (mw instrumentingMiddleware) Tasks(ctx context.Context, a tasksvc.Auth, username string) ([]tasksvc.Task, error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "tasks").Add(1)
		mw.requestLatency.With("method", "tasks").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.Tasks(ctx, a, username)
}

func (mw instrumentingMiddleware) Task(ctx context.Context, a tasksvc.Auth, taskID uint64) (tasksvc.Task, error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "task").Add(1)
		mw.requestLatency.With("method", "task").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.Task(ctx, a, taskID)
}

func (mw instrumentingMiddleware) CreateTask(ctx context.Context, a tasksvc.Auth, task tasksvc.Task) (tasksvc.Task, error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "create_task").Add(1)
		mw.requestLatency.With("method", "create_task").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.CreateTask(ctx, a, task)
}

func (mw instrumentingMiddleware) UpdateTask(ctx context.Context, a tasksvc.Auth, taskID uint64, task tasksvc.Task) (tasksvc.Task, error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "update_task").Add(1)
		mw.requestLatency.With("method", "update_task").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.UpdateTask(ctx, a, taskID, task)
}

func (mw instrumentingMiddleware) DeleteTask(ctx context.Context, a tasksvc.Auth, taskID uint64) error {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "delete_task").Add(1)
		mw.requestLatency.With("method", "delete_task").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.DeleteTask(ctx, a, taskID)
}

// ProxingMiddleware resolves a.Token to a username by asking the auth
// service for the token holder's profile. Whatever a.Username held before
// is discarded.
func ProxingMiddleware(profile endpoint.Endpoint) Middleware {
	return func(next Service) Service {
		return proxingMiddleware{next, profile}
	}
}

type proxingMiddleware struct {
	next    Service
	profile endpoint.Endpoint
}

func (mw proxingMiddleware) Tasks(ctx context.Context, a tasksvc.Auth, username string) ([]tasksvc.Task, error) {
	a, err := mw.authenticate(ctx, a)
	if err != nil {
		return nil, err
	}

	return mw.next.Tasks(ctx, a, username)
}

func (mw proxingMiddleware) Task(ctx context.Context, a tasksvc.Auth, taskID uint64) (tasksvc.Task, error) {
	a, err := mw.authenticate(ctx, a)
	if err != nil {
		return tasksvc.Task{}, err
	}

	return mw.next.Task(ctx, a, taskID)
}

func (mw proxingMiddleware) CreateTask(ctx context.Context, a tasksvc.Auth, task tasksvc.Task) (tasksvc.Task, error) {
	a, err := mw.authenticate(ctx, a)
	if err != nil {
		return tasksvc.Task{}, err
	}

	return mw.next.CreateTask(ctx, a, task)
}

func (mw proxingMiddleware) UpdateTask(ctx context.Context, a tasksvc.Auth, taskID uint64, task tasksvc.Task) (tasksvc.Task, error) {
	a, err := mw.authenticate(ctx, a)
	if err != nil {
		return tasksvc.Task{}, err
	}

	return mw.next.UpdateTask(ctx, a, taskID, task)
}

func (mw proxingMiddleware) DeleteTask(ctx context.Context, a tasksvc.Auth, taskID uint64) error {
	a, err := mw.authenticate(ctx, a)
	if err != nil {
		return err
	}

	return mw.next.DeleteTask(ctx, a, taskID)
}

func (mw proxingMiddleware) authenticate(ctx context.Context, a tasksvc.Auth) (tasksvc.Auth, error) {
	a.Username = ""
	if a.Token == "" {
		return a, tasksvc.ErrUnauthorized
	}

	response, err := mw.profile(ctx, authendpoint.ProfileRequest{Token: a.Token})
	if err != nil {
		return a, err
	}

	resp := response.(authendpoint.ProfileResponse)
	switch resp.Err {
	case nil:
	case authsvc.ErrInvalidToken, authsvc.ErrUserNotFound:
		return a, tasksvc.ErrUnauthorized
	default:
		return a, resp.Err
	}

	a.Username = resp.Username
	return a, nil
}
