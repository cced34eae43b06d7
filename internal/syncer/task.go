package syncer

import "sync"

// Status is the outcome of a sync operation.
type Status int

// Sync statuses.
const (
	StatusIdle Status = iota
	StatusPending
	StatusOK
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusOK:
		return "ok"
	case StatusFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Task tracks one asynchronous sync operation.
type Task struct {
	done chan struct{}

	mu     sync.Mutex
	status Status
	err    error
}

func newTask() *Task {
	return &Task{done: make(chan struct{}), status: StatusPending}
}

// finishedTask returns a task that is already resolved.
func finishedTask(status Status, err error) *Task {
	t := &Task{done: make(chan struct{})}
	t.finish(status, err)
	return t
}

func (t *Task) finish(status Status, err error) {
	t.mu.Lock()
	t.status = status
	t.err = err
	t.mu.Unlock()
	close(t.done)
}

// Done is closed once the task has resolved.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task resolves and returns its error.
func (t *Task) Wait() error {
	<-t.done
	return t.Err()
}

// Status returns the current status.
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Err returns the failure, if any.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}
