package pb

// Task is the wire form of a task. Timestamps are Unix nanoseconds in UTC;
// a zero CompletedAt means the task is not completed.
type Task struct {
	Id          uint64 `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	Username    string `json:"username"`
	CreatedAt   int64  `json:"created_at"`
	CompletedAt int64  `json:"completed_at,omitempty"`
}

type TasksRequest struct {
	Username string `json:"username"`
}

type TasksReply struct {
	Tasks []*Task `json:"tasks"`
	Err   string  `json:"err,omitempty"`
}

type TaskRequest struct {
	TaskId uint64 `json:"task_id"`
}

type CreateTaskRequest struct {
	Task *Task `json:"task"`
}

type UpdateTaskRequest struct {
	TaskId uint64 `json:"task_id"`
	Task   *Task  `json:"task"`
}

type TaskReply struct {
	Task *Task  `json:"task,omitempty"`
	Err  string `json:"err,omitempty"`
}

type DeleteTaskRequest struct {
	TaskId uint64 `json:"task_id"`
}

type DeleteTaskReply struct {
	Err string `json:"err,omitempty"`
}
