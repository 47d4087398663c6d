package authservice

import (
	"context"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics"
	"github.com/todoapp/todokit/authsvc"
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

func (mw loggingMiddleware) Register(ctx context.Context, username, password string) (s authsvc.Session, err error) {
	defer func() {
		mw.logger.Log("method", "Register", "username", username, "err", err)
	}()
	return mw.next.Register(ctx, username, password)
}

func (mw loggingMiddleware) Login(ctx context.Context, username, password string) (s authsvc.Session, err error) {
	defer func() {
		mw.logger.Log("method", "Login", "username", username, "err", err)
	}()
	return mw.next.Login(ctx, username, password)
}

func (mw loggingMiddleware) Validate(ctx context.Context, token string) (v bool, err error) {
	defer func() {
		mw.logger.Log("method", "Validate", "v", v, "err", err)
	}()
	return mw.next.Validate(ctx, token)
}

func (mw loggingMiddleware) Username(ctx context.Context, token string) (username string, err error) {
	defer func() {
		mw.logger.Log("method", "Username", "username", username, "err", err)
	}()
	return mw.next.Username(ctx, token)
}

func (mw loggingMiddleware) Profile(ctx context.Context, username string) (p authsvc.Profile, err error) {
	defer func() {
		mw.logger.Log("method", "Profile", "username", username, "err", err)
	}()
	return mw.next.Profile(ctx, username)
}

func (mw loggingMiddleware) UpdateProfile(ctx context.Context, username string, patch authsvc.ProfilePatch) (p authsvc.Profile, err error) {
	defer func() {
		mw.logger.Log(
			"method", "UpdateProfile",
			"username", username,
			"new_username", p.Username,
			"avatar_changed", patch.AvatarURL != nil,
			"err", err,
		)
	}()
	return mw.next.UpdateProfile(ctx, username, patch)
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

func (mw instrumentingMiddleware) observe(method string, begin time.Time) {
	mw.requestCount.With("method", method).Add(1)
	mw.requestLatency.With("method", method).Observe(time.Since(begin).Seconds())
}

func (mw instrumentingMiddleware) Register(ctx context.Context, username, password string) (authsvc.Session, error) {
	defer mw.observe("register", time.Now())
	return mw.next.Register(ctx, username, password)
}

func (mw instrumentingMiddleware) Login(ctx context.Context, username, password string) (authsvc.Session, error) {
	defer mw.observe("login", time.Now())
	return mw.next.Login(ctx, username, password)
}

func (mw instrumentingMiddleware) Validate(ctx context.Context, token string) (bool, error) {
	defer mw.observe("validate", time.Now())
	return mw.next.Validate(ctx, token)
}

func (mw instrumentingMiddleware) Username(ctx context.Context, token string) (string, error) {
	defer mw.observe("username", time.Now())
	return mw.next.Username(ctx, token)
}

func (mw instrumentingMiddleware) Profile(ctx context.Context, username string) (authsvc.Profile, error) {
	defer mw.observe("profile", time.Now())
	return mw.next.Profile(ctx, username)
}

func (mw instrumentingMiddleware) UpdateProfile(ctx context.Context, username string, patch authsvc.ProfilePatch) (authsvc.Profile, error) {
	defer mw.observe("update_profile", time.Now())
	return mw.next.UpdateProfile(ctx, username, patch)
}
