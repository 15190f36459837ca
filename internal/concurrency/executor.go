// File: internal/concurrency/executor.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Executor runs tasks on a fixed set of worker goroutines fed by a bounded
// queue. Close drains every task accepted before it was called.

package concurrency

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-udp/api"
)

var _ api.Executor = (*Executor)(nil)

// TaskFunc is a unit of work to execute.
type TaskFunc func()

// Executor manages a pool of worker goroutines.
type Executor struct {
	tasks      chan TaskFunc
	mu         sync.RWMutex // guards closed against concurrent sends
	closed     bool
	wg         sync.WaitGroup
	numWorkers int

	totalTasks     atomic.Int64
	completedTasks atomic.Int64
	panics         atomic.Int64
}

// NewExecutor starts numWorkers goroutines. queueSize bounds the number of
// accepted but not yet started tasks; values below numWorkers are raised to it.
func NewExecutor(numWorkers, queueSize int) (*Executor, error) {
	if numWorkers <= 0 {
		return nil, ErrInvalidWorkerCount
	}
	if queueSize < numWorkers {
		queueSize = numWorkers
	}
	e := &Executor{
		tasks:      make(chan TaskFunc, queueSize),
		numWorkers: numWorkers,
	}
	e.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go e.run()
	}
	return e, nil
}

// Submit enqueues a task, blocking while the queue is full.
func (e *Executor) Submit(task func()) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return ErrExecutorClosed
	}
	e.totalTasks.Add(1)
	e.tasks <- task
	return nil
}

// TrySubmit enqueues a task without blocking.
func (e *Executor) TrySubmit(task func()) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return ErrExecutorClosed
	}
	select {
	case e.tasks <- task:
		e.totalTasks.Add(1)
		return nil
	default:
		return ErrQueueFull
	}
}

// NumWorkers returns the worker count.
func (e *Executor) NumWorkers() int {
	return e.numWorkers
}

// Close stops accepting tasks, runs the queued ones and waits for workers.
// It is safe to call more than once.
func (e *Executor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.wg.Wait()
		return
	}
	e.closed = true
	close(e.tasks)
	e.mu.Unlock()
	e.wg.Wait()
}

// Stats returns basic executor metrics.
func (e *Executor) Stats() map[string]int64 {
	total := e.totalTasks.Load()
	done := e.completedTasks.Load()
	return map[string]int64{
		"total_tasks":     total,
		"completed_tasks": done,
		"pending_tasks":   total - done,
		"panicked_tasks":  e.panics.Load(),
		"num_workers":     int64(e.numWorkers),
	}
}

func (e *Executor) run() {
	defer e.wg.Done()
	for task := range e.tasks {
		e.safeExecute(task)
	}
}

// safeExecute runs the task, keeping the worker alive on panic.
func (e *Executor) safeExecute(task TaskFunc) {
	defer func() {
		if r := recover(); r != nil {
			e.panics.Add(1)
		}
		e.completedTasks.Add(1)
	}()
	task()
}
