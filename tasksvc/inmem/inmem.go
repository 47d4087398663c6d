package inmem

import (
	"sort"
	"sync"

	"github.com/todoapp/todokit/tasksvc"
)

type taskRepository struct {
	mtx    sync.RWMutex
	nextID uint64
	tasks  map[uint64]tasksvc.Task
}

// NewTaskRepository returns a TaskRepository backed by process memory.
func NewTaskRepository() tasksvc.TaskRepository {
	return &taskRepository{tasks: make(map[uint64]tasksvc.Task)}
}

func (r *taskRepository) Create(task tasksvc.Task) (tasksvc.Task, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.nextID++
	task.ID = r.nextID
	r.tasks[task.ID] = task
	return task, nil
}

func (r *taskRepository) FindByUsername(username string) ([]tasksvc.Task, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	tasks := []tasksvc.Task{}
	for _, t := range r.tasks {
		if t.Username == username {
			tasks = append(tasks, t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

func (r *taskRepository) Find(taskID uint64) (tasksvc.Task, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	t, ok := r.tasks[taskID]
	if !ok {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}
	return t, nil
}

func (r *taskRepository) Update(task tasksvc.Task) (tasksvc.Task, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	t, ok := r.tasks[task.ID]
	if !ok {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}
	t.Title = task.Title
	t.Description = task.Description
	t.Completed = task.Completed
	t.CompletedAt = task.CompletedAt
	r.tasks[t.ID] = t
	return t, nil
}

func (r *taskRepository) Delete(taskID uint64) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if _, ok := r.tasks[taskID]; !ok {
		return tasksvc.ErrTaskNotFound
	}
	delete(r.tasks, taskID)
	return nil
}
