package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Task func()

// WorkerPool runs submitted tasks on a fixed number of goroutines.
type WorkerPool struct {
	tasks       chan Task
	wg          sync.WaitGroup
	busyWorkers int
	maxWorkers  int
	logger      zerolog.Logger
	mu          sync.RWMutex

	// stateMu guards started/stopped and the close of tasks.
	stateMu sync.RWMutex
	started bool
	stopped bool
}

func NewWorkerPool(maxWorkers int, logger zerolog.Logger) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	return &WorkerPool{
		tasks:      make(chan Task, maxWorkers*10),
		maxWorkers: maxWorkers,
		logger:     logger,
	}
}

func (wp *WorkerPool) Start(ctx context.Context) error {
	wp.stateMu.Lock()
	defer wp.stateMu.Unlock()
	if wp.started {
		return nil
	}
	wp.started = true

	for i := 0; i < wp.maxWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}

	wp.logger.Info().Int("max_workers", wp.maxWorkers).Msg("Worker pool started")
	return nil
}

// Stop drains queued tasks and waits for the workers to exit.
func (wp *WorkerPool) Stop() error {
	wp.stateMu.Lock()
	if !wp.started || wp.stopped {
		wp.stateMu.Unlock()
		return nil
	}
	wp.stopped = true
	close(wp.tasks)
	wp.stateMu.Unlock()

	wp.wg.Wait()

	wp.logger.Info().Msg("Worker pool stopped")
	return nil
}

// Submit queues a task. It reports false when the pool is stopped or the
// queue stayed full for a second.
func (wp *WorkerPool) Submit(task Task) bool {
	wp.stateMu.RLock()
	defer wp.stateMu.RUnlock()
	if wp.stopped {
		wp.logger.Warn().Msg("Task submitted to stopped worker pool")
		return false
	}

	select {
	case wp.tasks <- task:
		return true
	default:
	}

	wp.logger.Warn().Msg("Worker pool task queue is full")
	select {
	case wp.tasks <- task:
		return true
	case <-time.After(time.Second):
		wp.logger.Error().Msg("Failed to submit task to worker pool (timeout)")
		return false
	}
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	wp.logger.Debug().Int("worker_id", id).Msg("Worker started")

	for task := range wp.tasks {
		wp.setBusy(1)
		func() {
			defer func() {
				if r := recover(); r != nil {
					wp.logger.Error().
						Int("worker_id", id).
						Interface("panic", r).
						Msg("Worker recovered from panic")
				}
				wp.setBusy(-1)
			}()

			task()
		}()
	}

	wp.logger.Debug().Int("worker_id", id).Msg("Worker stopped")
}

func (wp *WorkerPool) setBusy(delta int) {
	wp.mu.Lock()
	wp.busyWorkers += delta
	wp.mu.Unlock()
}

func (wp *WorkerPool) BusyWorkers() int {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	return wp.busyWorkers
}

func (wp *WorkerPool) QueueLength() int {
	return len(wp.tasks)
}

func (wp *WorkerPool) Stats() map[string]interface{} {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	return map[string]interface{}{
		"busy_workers":   wp.busyWorkers,
		"max_workers":    wp.maxWorkers,
		"queue_length":   len(wp.tasks),
		"queue_capacity": cap(wp.tasks),
	}
}
