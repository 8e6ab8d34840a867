// Package swarm runs tasks on a fixed-size pool of workers.
package swarm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// ErrStopped is returned by Submit once the engine no longer accepts work.
var ErrStopped = errors.New("swarm engine stopped")

// Task represents a unit of work for the swarm.
type Task func(ctx context.Context) error

// PanicError wraps a panic recovered from a task.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Engine manages the worker pool.
type Engine struct {
	workers int
	tasks   chan Task
	wg      sync.WaitGroup
	quit    chan struct{}
	logger  *slog.Logger

	startOnce sync.Once
	closeOnce sync.Once
	stopOnce  sync.Once

	// sendMu is held shared while sending and exclusively while closing the
	// task channel.
	sendMu sync.RWMutex
	closed bool

	mu     sync.Mutex
	active int
	stats  Stats
}

// Stats holds runtime statistics for the engine.
type Stats struct {
	Workers        int
	ActiveWorkers  int
	TasksSubmitted int64
	TasksCompleted int64
	TasksFailed    int64
}

// Option customises an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for task failures.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithBuffer sets the size of the task channel.
func WithBuffer(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.tasks = make(chan Task, n)
		}
	}
}

// NewEngine creates an engine with the given number of workers (at least one).
func NewEngine(workers int, opts ...Option) *Engine {
	if workers < 1 {
		workers = 1
	}
	e := &Engine{
		workers: workers,
		tasks:   make(chan Task, workers*4),
		quit:    make(chan struct{}),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start launches the workers. Calling it more than once has no effect.
func (e *Engine) Start(ctx context.Context) {
	e.startOnce.Do(func() {
		for i := 0; i < e.workers; i++ {
			e.wg.Add(1)
			go e.worker(ctx, i)
		}
	})
}

// Submit queues a task, blocking while the buffer is full.
func (e *Engine) Submit(ctx context.Context, t Task) error {
	e.sendMu.RLock()
	defer e.sendMu.RUnlock()
	if e.closed {
		return ErrStopped
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	e.stats.TasksSubmitted++
	e.mu.Unlock()

	select {
	case <-ctx.Done():
		e.unsubmit()
		return ctx.Err()
	case <-e.quit:
		e.unsubmit()
		return ErrStopped
	case e.tasks <- t:
		return nil
	}
}

// Wait stops accepting tasks and blocks until every queued task has run or
// the workers were told to quit.
func (e *Engine) Wait() {
	e.close()
	e.wg.Wait()
}

// Stop makes workers return after their current task. Queued tasks are dropped.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.quit) })
	e.close()
	e.wg.Wait()
}

// GetStats returns current engine stats.
func (e *Engine) GetStats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stats
	s.Workers = e.workers
	s.ActiveWorkers = e.active
	return s
}

func (e *Engine) close() {
	e.closeOnce.Do(func() {
		e.sendMu.Lock()
		defer e.sendMu.Unlock()
		e.closed = true
		close(e.tasks)
	})
}

func (e *Engine) unsubmit() {
	e.mu.Lock()
	e.stats.TasksSubmitted--
	e.mu.Unlock()
}

func (e *Engine) worker(ctx context.Context, id int) {
	e.mu.Lock()
	e.active++
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.active--
		e.mu.Unlock()
		e.wg.Done()
	}()

	logger := e.logger.With("worker", id)
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.quit:
			return
		case task, ok := <-e.tasks:
			if !ok {
				return
			}
			err := e.run(ctx, task)

			e.mu.Lock()
			if err != nil {
				e.stats.TasksFailed++
			} else {
				e.stats.TasksCompleted++
			}
			e.mu.Unlock()

			if err != nil {
				logger.Debug("Task failed", "error", err)
			}
		}
	}
}

func (e *Engine) run(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return task(ctx)
}
