package authservice

import (
	"context"

	"github.com/go-kit/kit/log"
	"github.com/todoapp/todokit/authsvc"
)

type Service interface {
	Register(ctx context.Context, username, password string) (authsvc.Session, error)
	Login(ctx context.Context, username, password string) (authsvc.Session, error)
	Validate(ctx context.Context, token string) (bool, error)
	Username(ctx context.Context, token string) (string, error)
	Profile(ctx context.Context, username string) (authsvc.Profile, error)
	UpdateProfile(ctx context.Context, username string, patch authsvc.ProfilePatch) (authsvc.Profile, error)
}

func New(users authsvc.UserRepository, t Tokenizer, h Hasher, logger log.Logger) Service {
	var svc Service
	{
		svc = NewBasicService(users, t, h)
		svc = LoggingMiddleware(logger)(svc)
	}
	return svc
}

type basicService struct {
	users     authsvc.UserRepository
	tokenizer Tokenizer
	hasher    Hasher
}

func NewBasicService(users authsvc.UserRepository, t Tokenizer, h Hasher) Service {
	return &basicService{users: users, tokenizer: t, hasher: h}
}

func (s *basicService) Register(_ context.Context, username, password string) (authsvc.Session, error) {
	if username == "" || password == "" {
		return authsvc.Session{}, authsvc.ErrInvalidArgument
	}

	exists, err := s.users.ExistsByUsername(username)
	if err != nil {
		return authsvc.Session{}, err
	}
	if exists {
		return authsvc.Session{}, authsvc.ErrUsernameTaken
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return authsvc.Session{}, err
	}

	user, err := s.users.Save(authsvc.User{Username: username, Password: hash})
	if err != nil {
		return authsvc.Session{}, err
	}

	return s.session(user.Username)
}

func (s *basicService) Login(_ context.Context, username, password string) (authsvc.Session, error) {
	if username == "" || password == "" {
		return authsvc.Session{}, authsvc.ErrInvalidArgument
	}

	user, err := s.users.FindByUsername(username)
	switch {
	case err == authsvc.ErrUserNotFound:
		return authsvc.Session{}, authsvc.ErrBadCredentials
	case err != nil:
		return authsvc.Session{}, err
	}

	if !s.hasher.Compare(user.Password, password) {
		return authsvc.Session{}, authsvc.ErrBadCredentials
	}

	return s.session(user.Username)
}

// Validate never fails: a malformed or expired token, or one whose subject
// no longer exists, is simply not valid.
func (s *basicService) Validate(_ context.Context, token string) (bool, error) {
	username, err := s.tokenizer.Username(token)
	if err != nil {
		return false, nil
	}

	user, err := s.users.FindByUsername(username)
	if err != nil {
		return false, nil
	}

	return s.tokenizer.Validate(token, user.Username), nil
}

func (s *basicService) Username(_ context.Context, token string) (string, error) {
	return s.tokenizer.Username(token)
}

func (s *basicService) Profile(_ context.Context, username string) (authsvc.Profile, error) {
	user, err := s.users.FindByUsername(username)
	if err != nil {
		return authsvc.Profile{}, err
	}
	return authsvc.NewProfile(user), nil
}

func (s *basicService) UpdateProfile(_ context.Context, username string, patch authsvc.ProfilePatch) (authsvc.Profile, error) {
	user, err := s.users.FindByUsername(username)
	if err != nil {
		return authsvc.Profile{}, err
	}

	if patch.Username != nil && *patch.Username != user.Username {
		if *patch.Username == "" {
			return authsvc.Profile{}, authsvc.ErrInvalidArgument
		}

		// Check-then-write: two concurrent renames to the same name race here
		// and only the store's unique index stops the second one.
		exists, err := s.users.ExistsByUsername(*patch.Username)
		if err != nil {
			return authsvc.Profile{}, err
		}
		if exists {
			return authsvc.Profile{}, authsvc.ErrUsernameTaken
		}
		user.Username = *patch.Username
	}
	if patch.AvatarURL != nil {
		user.AvatarURL = patch.AvatarURL
	}

	user, err = s.users.Save(user)
	if err != nil {
		return authsvc.Profile{}, err
	}
	return authsvc.NewProfile(user), nil
}

func (s *basicService) session(username string) (authsvc.Session, error) {
	token, err := s.tokenizer.Generate(username)
	if err != nil {
		return authsvc.Session{}, err
	}
	return authsvc.Session{Token: token, Username: username}, nil
}
