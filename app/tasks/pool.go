package tasks

import (
	"log/slog"
	"sync"
)

// Pool is a bounded worker pool shared by the archive pipeline and the
// media scanner. A fixed number of workers drain tasks from a buffered
// queue; Submit blocks once the queue is full, so memory stays bounded
// regardless of archive size.
type Pool struct {
	logger    *slog.Logger
	taskQueue chan func()
	workers   sync.WaitGroup
	pending   sync.WaitGroup
	closeOnce sync.Once
}

func NewPool(workerCount int, queueSize int, logger *slog.Logger) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	p := &Pool{
		logger:    logger,
		taskQueue: make(chan func(), queueSize),
	}

	for i := 0; i < workerCount; i++ {
		p.workers.Add(1)
		go p.worker(i)
	}

	return p
}

// Submit enqueues a task for execution, blocking while the queue is full.
func (p *Pool) Submit(task func()) {
	p.pending.Add(1)
	p.taskQueue <- task
}

// Wait blocks until every task submitted so far has finished. The pool
// remains usable for further submissions afterwards.
func (p *Pool) Wait() {
	p.pending.Wait()
}

// Close waits for outstanding tasks and stops the workers. Safe to call
// more than once.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.pending.Wait()
		close(p.taskQueue)
		p.workers.Wait()
	})
}

func (p *Pool) worker(id int) {
	defer p.workers.Done()

	for task := range p.taskQueue {
		p.execute(id, task)
	}
}

// execute runs a single task, converting a panic into a logged failure so
// one bad entry never takes down sibling tasks or the worker itself.
func (p *Pool) execute(workerID int, task func()) {
	defer p.pending.Done()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Worker task panicked", "worker_id", workerID, "panic", r)
		}
	}()

	task()
}
