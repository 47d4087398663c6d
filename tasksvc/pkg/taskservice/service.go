package taskservice

import (
	"context"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/todoapp/todokit/tasksvc"
)

// Service manages tasks on behalf of an authenticated caller. Every method
// expects a.Username to hold the caller's resolved identity and only lets
// callers see or touch tasks they own.
type Service interface {
	Tasks(ctx context.Context, a tasksvc.Auth, username string) ([]tasksvc.Task, error)
	Task(ctx context.Context, a tasksvc.Auth, taskID uint64) (tasksvc.Task, error)
	CreateTask(ctx context.Context, a tasksvc.Auth, task tasksvc.Task) (tasksvc.Task, error)
	UpdateTask(ctx context.Context, a tasksvc.Auth, taskID uint64, task tasksvc.Task) (tasksvc.Task, error)
	DeleteTask(ctx context.Context, a tasksvc.Auth, taskID uint64) error
}

func New(t tasksvc.TaskRepository, logger log.Logger) Service {
	var svc Service
	{
		svc = NewBasicService(t)
		svc = LoggingMiddleware(logger)(svc)
	}
	return svc
}

type basicService struct {
	tasks tasksvc.TaskRepository
	now   func() time.Time
}

func NewBasicService(t tasksvc.TaskRepository) Service {
	return basicService{tasks: t, now: time.Now}
}

func (s basicService) Tasks(_ context.Context, a tasksvc.Auth, username string) ([]tasksvc.Task, error) {
	if a.Username == "" {
		return nil, tasksvc.ErrUnauthorized
	}
	if username == "" {
		return nil, tasksvc.ErrInvalidArgument
	}
	if username != a.Username {
		return nil, tasksvc.ErrForbidden
	}

	tasks, err := s.tasks.FindByUsername(username)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []tasksvc.Task{}
	}
	return tasks, nil
}

func (s basicService) Task(_ context.Context, a tasksvc.Auth, taskID uint64) (tasksvc.Task, error) {
	return s.owned(a, taskID)
}

func (s basicService) CreateTask(_ context.Context, a tasksvc.Auth, task tasksvc.Task) (tasksvc.Task, error) {
	if a.Username == "" {
		return tasksvc.Task{}, tasksvc.ErrUnauthorized
	}
	if task.Title == "" {
		return tasksvc.Task{}, tasksvc.ErrInvalidArgument
	}

	switch task.Username {
	case "":
		task.Username = a.Username
	case a.Username:
	default:
		return tasksvc.Task{}, tasksvc.ErrForbidden
	}

	now := s.timestamp()
	task.ID = 0
	task.CreatedAt = now
	task.CompletedAt = nil
	if task.Completed {
		task.CompletedAt = &now
	}

	return s.tasks.Create(task)
}

func (s basicService) UpdateTask(_ context.Context, a tasksvc.Auth, taskID uint64, task tasksvc.Task) (tasksvc.Task, error) {
	existing, err := s.owned(a, taskID)
	if err != nil {
		return tasksvc.Task{}, err
	}
	if task.Title == "" {
		return tasksvc.Task{}, tasksvc.ErrInvalidArgument
	}
	if task.Username != "" && task.Username != existing.Username {
		return tasksvc.Task{}, tasksvc.ErrInvalidArgument
	}

	task.ID = taskID
	switch {
	case !task.Completed:
		task.CompletedAt = nil
	case existing.Completed:
		task.CompletedAt = existing.CompletedAt
	default:
		now := s.timestamp()
		task.CompletedAt = &now
	}

	return s.tasks.Update(task)
}

func (s basicService) DeleteTask(_ context.Context, a tasksvc.Auth, taskID uint64) error {
	if _, err := s.owned(a, taskID); err != nil {
		return err
	}
	return s.tasks.Delete(taskID)
}

// timestamp is the current time at the resolution every task store keeps,
// so a stored task reads back equal to the one returned on write.
func (s basicService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// owned loads a task and checks that the caller owns it.
func (s basicService) owned(a tasksvc.Auth, taskID uint64) (tasksvc.Task, error) {
	if a.Username == "" {
		return tasksvc.Task{}, tasksvc.ErrUnauthorized
	}
	if taskID == 0 {
		return tasksvc.Task{}, tasksvc.ErrInvalidArgument
	}

	task, err := s.tasks.Find(taskID)
	if err != nil {
		return tasksvc.Task{}, err
	}
	if task.Username != a.Username {
		return tasksvc.Task{}, tasksvc.ErrForbidden
	}
	return task, nil
}
