package core

// dispatch.go runs fire-and-forget work (welcome emails) off the request
// path. A semaphore caps how many tasks run at once; tasks beyond the cap
// wait in their own goroutine, so Go never blocks the caller. Task errors
// and panics are logged and dropped.

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/richway/internal/logging"
	"github.com/JonMunkholm/richway/internal/metrics"
)

// DefaultMaxConcurrentTasks is used when NewDispatcher gets a non-positive limit.
const DefaultMaxConcurrentTasks = 4

// DefaultTaskTimeout is used when NewDispatcher gets a non-positive timeout.
const DefaultTaskTimeout = 30 * time.Second

// Dispatcher executes background tasks with bounded concurrency.
type Dispatcher struct {
	semaphore chan struct{}
	timeout   time.Duration
	wg        sync.WaitGroup

	mu      sync.RWMutex
	pending int
}

// NewDispatcher creates a dispatcher running at most maxConcurrent tasks at a
// time, each bounded by timeout.
func NewDispatcher(maxConcurrent int, timeout time.Duration) *Dispatcher {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentTasks
	}
	if timeout <= 0 {
		timeout = DefaultTaskTimeout
	}
	return &Dispatcher{
		semaphore: make(chan struct{}, maxConcurrent),
		timeout:   timeout,
	}
}

// Go schedules task and returns immediately. The task context keeps ctx's
// values (request id) but not its cancellation, so the task outlives the
// request that spawned it.
func (d *Dispatcher) Go(ctx context.Context, name string, task func(context.Context) error) {
	taskID := uuid.NewString()
	logger := logging.WithFields(ctx, "task", name, "task_id", taskID)
	base := context.WithoutCancel(ctx)

	d.mu.Lock()
	d.pending++
	d.mu.Unlock()
	d.wg.Add(1)
	metrics.TaskStarted()

	go func() {
		var err error
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("panic: %v", p)
			}
			if err != nil {
				logger.Warn("background task failed", "error", err)
			} else {
				logger.Debug("background task done")
			}
			metrics.TaskFinished(name, err)

			d.mu.Lock()
			d.pending--
			d.mu.Unlock()
			d.wg.Done()
		}()

		d.semaphore <- struct{}{}
		defer func() { <-d.semaphore }()

		taskCtx, cancel := context.WithTimeout(base, d.timeout)
		defer cancel()
		err = task(taskCtx)
	}()
}

// Pending returns the number of tasks queued or running.
func (d *Dispatcher) Pending() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.pending
}

// MaxConcurrent returns the concurrency cap.
func (d *Dispatcher) MaxConcurrent() int {
	return cap(d.semaphore)
}

// WaitForDrain blocks until every scheduled task has finished or ctx ends.
// Call it after the HTTP server has stopped accepting requests.
func (d *Dispatcher) WaitForDrain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
