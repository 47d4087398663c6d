package tasksvc

import (
	"errors"
	"time"
)

type Task struct {
	ID          uint64     `json:"id" gorm:"primaryKey"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	Username    string     `json:"username" gorm:"index;not null"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

type TaskRepository interface {
	Create(task Task) (Task, error)
	FindByUsername(username string) ([]Task, error)
	Find(taskID uint64) (Task, error)
	Update(task Task) (Task, error)
	Delete(taskID uint64) error
}

// Auth identifies the caller of a task operation. Token is what the client
// presented; Username is filled in once the token has been resolved.
type Auth struct {
	Token    string
	Username string
}

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrTaskNotFound    = errors.New("task not found")
	ErrUnauthorized    = errors.New("missing or invalid token")
	ErrForbidden       = errors.New("task belongs to another user")
)
