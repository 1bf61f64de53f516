package usecase

import (
	"context"
	"sync"
)

// TaskRegistry tracks the background scan of every running snapshot so
// they can be cancelled and drained on shutdown.
type TaskRegistry struct {
	mu     sync.Mutex
	tasks  map[string]*scanTask
	closed bool
	wg     sync.WaitGroup
}

type scanTask struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{tasks: map[string]*scanTask{}}
}

// Go runs fn in its own goroutine with a context that is cancelled by
// Cancel or Shutdown, never by the caller's request.
func (r *TaskRegistry) Go(id string, fn func(ctx context.Context)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrShuttingDown
	}
	if _, ok := r.tasks[id]; ok {
		return ErrTaskExists
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &scanTask{cancel: cancel, done: make(chan struct{})}
	r.tasks[id] = t
	r.wg.Add(1)

	go func() {
		defer r.wg.Done()
		defer func() {
			cancel()
			r.mu.Lock()
			delete(r.tasks, id)
			r.mu.Unlock()
			close(t.done)
		}()
		fn(ctx)
	}()
	return nil
}

// Cancel stops a running task. It reports whether the task was found.
func (r *TaskRegistry) Cancel(id string) bool {
	r.mu.Lock()
	t, ok := r.tasks[id]
	r.mu.Unlock()
	if ok {
		t.cancel()
	}
	return ok
}

// Done returns a channel closed when the task exits, or nil if no such task runs.
func (r *TaskRegistry) Done(id string) <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tasks[id]; ok {
		return t.done
	}
	return nil
}

func (r *TaskRegistry) Running() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// Shutdown refuses new tasks, cancels running ones and waits for them to
// exit or for ctx to expire.
func (r *TaskRegistry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	for _, t := range r.tasks {
		t.cancel()
	}
	r.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
