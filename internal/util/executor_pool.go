package util

import "sync"

// ExecutorPool runs submitted tasks on a fixed number of goroutines
type ExecutorPool struct {
	tasks chan any
	wg    sync.WaitGroup
	once  sync.Once
}

// NewExecutorPool starts workers goroutines that pass every submitted task
// to fn. queueSize bounds the number of pending tasks; Submit blocks when
// the queue is full.
func NewExecutorPool(workers, queueSize int, fn func(task any)) *ExecutorPool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	p := &ExecutorPool{tasks: make(chan any, queueSize)}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer p.wg.Done()
			for task := range p.tasks {
				fn(task)
			}
		}()
	}
	return p
}

// Submit queues a task. It must not be called after Close.
func (p *ExecutorPool) Submit(task any) {
	p.tasks <- task
}

// Close stops accepting tasks and waits for queued ones to finish
func (p *ExecutorPool) Close() {
	p.once.Do(func() {
		close(p.tasks)
	})
	p.wg.Wait()
}
