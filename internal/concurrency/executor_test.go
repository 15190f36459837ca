package concurrency

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutor_RunsAllTasks(t *testing.T) {
	e, err := NewExecutor(4, 16)
	require.NoError(t, err)

	var ran atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		require.NoError(t, e.Submit(func() {
			defer wg.Done()
			ran.Add(1)
		}))
	}
	wg.Wait()
	e.Close()

	assert.EqualValues(t, 100, ran.Load())
	stats := e.Stats()
	assert.EqualValues(t, 100, stats["completed_tasks"])
	assert.EqualValues(t, 0, stats["pending_tasks"])
	assert.EqualValues(t, 4, stats["num_workers"])
}

func TestExecutor_CloseDrainsQueuedTasks(t *testing.T) {
	e, err := NewExecutor(1, 8)
	require.NoError(t, err)

	gate := make(chan struct{})
	var ran atomic.Int64
	require.NoError(t, e.Submit(func() { <-gate; ran.Add(1) }))
	for i := 0; i < 5; i++ {
		require.NoError(t, e.Submit(func() { ran.Add(1) }))
	}
	close(gate)
	e.Close()
	assert.EqualValues(t, 6, ran.Load())
}

func TestExecutor_SubmitAfterClose(t *testing.T) {
	e, err := NewExecutor(2, 2)
	require.NoError(t, err)
	e.Close()
	e.Close()

	assert.ErrorIs(t, e.Submit(func() {}), ErrExecutorClosed)
	assert.ErrorIs(t, e.TrySubmit(func() {}), ErrExecutorClosed)
}

func TestExecutor_TrySubmitFull(t *testing.T) {
	e, err := NewExecutor(1, 1)
	require.NoError(t, err)

	started := make(chan struct{})
	gate := make(chan struct{})
	require.NoError(t, e.Submit(func() { close(started); <-gate }))
	<-started
	require.NoError(t, e.TrySubmit(func() {}))
	assert.ErrorIs(t, e.TrySubmit(func() {}), ErrQueueFull)

	close(gate)
	e.Close()
}

func TestExecutor_SurvivesPanics(t *testing.T) {
	e, err := NewExecutor(1, 4)
	require.NoError(t, err)

	done := make(chan struct{})
	require.NoError(t, e.Submit(func() { panic("boom") }))
	require.NoError(t, e.Submit(func() { close(done) }))
	<-done
	e.Close()
	assert.EqualValues(t, 1, e.Stats()["panicked_tasks"])
}

func TestExecutor_InvalidWorkerCount(t *testing.T) {
	_, err := NewExecutor(0, 1)
	assert.ErrorIs(t, err, ErrInvalidWorkerCount)
}
