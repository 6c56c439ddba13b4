package worker

import (
	"context"
	"errors"
	"sync"
)

var ErrPoolClosed = errors.New("worker pool closed")

type ProcessFunc[T any] func(ctx context.Context, job T)

// Pool runs jobs of type T on a fixed number of goroutines fed from a
// buffered queue.
type Pool[T any] struct {
	numWorkers int
	jobs       chan T
	process    ProcessFunc[T]
	wg         sync.WaitGroup

	mu       sync.RWMutex
	closed   bool
	quit     chan struct{}
	quitOnce sync.Once
}

func NewPool[T any](numWorkers, bufferSize int, process ProcessFunc[T]) *Pool[T] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Pool[T]{
		numWorkers: numWorkers,
		jobs:       make(chan T, bufferSize),
		process:    process,
		quit:       make(chan struct{}),
	}
}

func (p *Pool[T]) Start(ctx context.Context) {
	for i := 1; i <= p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

func (p *Pool[T]) worker(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.process(ctx, job)
		}
	}
}

// Submit queues a job, blocking while the queue is full. It gives up when ctx
// is done or the pool is stopped.
func (p *Pool[T]) Submit(ctx context.Context, job T) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.jobs <- job:
		return nil
	case <-p.quit:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop rejects new jobs and waits for the workers to finish what they hold.
func (p *Pool[T]) Stop() {
	p.quitOnce.Do(func() { close(p.quit) })

	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	p.wg.Wait()
}
