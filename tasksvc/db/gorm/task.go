package gorm

import (
	"errors"

	"github.com/todoapp/todokit/tasksvc"
	stdgorm "gorm.io/gorm"
)

type taskRepository struct {
	db *stdgorm.DB
}

func NewTaskRepository(db *stdgorm.DB) tasksvc.TaskRepository {
	return &taskRepository{db}
}

func (t taskRepository) Create(task tasksvc.Task) (tasksvc.Task, error) {
	task.ID = 0
	result := t.db.Create(&task)
	if result.Error != nil {
		return tasksvc.Task{}, result.Error
	}

	return t.Find(task.ID)
}

func (t taskRepository) FindByUsername(username string) ([]tasksvc.Task, error) {
	tasks := []tasksvc.Task{}
	result := t.db.Where("username = ?", username).Order("id").Find(&tasks)
	for i := range tasks {
		tasks[i] = inUTC(tasks[i])
	}

	return tasks, result.Error
}

func (t taskRepository) Find(taskID uint64) (tasksvc.Task, error) {
	var task tasksvc.Task
	result := t.db.First(&task, taskID)
	if errors.Is(result.Error, stdgorm.ErrRecordNotFound) {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}

	return inUTC(task), result.Error
}

// Update overwrites the mutable columns of an existing task. Owner and
// creation time are left as stored.
func (t taskRepository) Update(task tasksvc.Task) (tasksvc.Task, error) {
	tk, err := t.Find(task.ID)
	if err != nil {
		return tasksvc.Task{}, err
	}

	result := t.db.Model(&tk).Updates(
		map[string]interface{}{
			"title":        task.Title,
			"description":  task.Description,
			"completed":    task.Completed,
			"completed_at": task.CompletedAt,
		})
	if result.Error != nil {
		return tasksvc.Task{}, result.Error
	}

	return t.Find(task.ID)
}

func (t taskRepository) Delete(taskID uint64) error {
	result := t.db.Delete(&tasksvc.Task{}, taskID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return tasksvc.ErrTaskNotFound
	}
	return nil
}

// inUTC undoes the driver's conversion of timestamps to the local zone.
func inUTC(task tasksvc.Task) tasksvc.Task {
	task.CreatedAt = task.CreatedAt.UTC()
	if task.CompletedAt != nil {
		completedAt := task.CompletedAt.UTC()
		task.CompletedAt = &completedAt
	}
	return task
}
