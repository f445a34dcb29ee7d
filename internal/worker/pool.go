package worker

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Pool is a bounded worker pool for background notification and ingestion
// work. When the queue is full new tasks are rejected rather than queued
// unboundedly or run on the submitting goroutine.
type Pool struct {
	tasks chan func()
	log   *zap.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	dropped int64
}

// NewPool starts workers goroutines draining a queue of queueSize tasks.
func NewPool(workers, queueSize int, log *zap.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	p := &Pool{
		tasks: make(chan func(), queueSize),
		log:   log,
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.run(i)
	}

	log.Info("worker pool started",
		zap.Int("workers", workers),
		zap.Int("queue_size", queueSize))

	return p
}

func (p *Pool) run(id int) {
	defer p.wg.Done()
	for task := range p.tasks {
		p.safeExec(id, task)
	}
}

func (p *Pool) safeExec(id int, task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("worker task panicked",
				zap.Int("worker", id),
				zap.Any("panic", r))
		}
	}()
	task()
}

// Submit enqueues a task for background execution. It returns false when
// the pool is saturated or shut down; the task is dropped and logged.
func (p *Pool) Submit(task func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		p.log.Warn("task rejected: pool is shut down")
		return false
	}

	select {
	case p.tasks <- task:
		return true
	default:
		p.dropped++
		p.log.Warn("task rejected: queue full", zap.Int64("dropped_total", p.dropped))
		return false
	}
}

// Shutdown stops accepting work and waits up to timeout for in-flight
// tasks to finish. Tasks still running after the timeout are abandoned.
func (p *Pool) Shutdown(timeout time.Duration) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.log.Info("worker pool drained")
	case <-time.After(timeout):
		p.log.Warn("worker pool shutdown timed out, abandoning remaining tasks",
			zap.Duration("timeout", timeout))
	}
}
