package concurrent

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

var (
	ErrPoolClosed = errors.New("pool is closed")
	ErrQueueFull  = errors.New("pool queue is full")
)

// Task is a unit of work executed by a Pool worker.
type Task func(ctx context.Context)

// Pool runs submitted tasks on a fixed number of worker goroutines.
// Submit never blocks: when the queue is full the task is rejected.
type Pool struct {
	mu     sync.RWMutex
	closed bool
	tasks  chan Task
	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
}

// NewPool starts workers goroutines reading from a queue of the given capacity.
func NewPool(ctx context.Context, workers, queue int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queue <= 0 {
		queue = workers
	}

	ctx, cancel := context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(ctx)

	p := &Pool{
		tasks:  make(chan Task, queue),
		group:  group,
		ctx:    ctx,
		cancel: cancel,
	}

	for i := 0; i < workers; i++ {
		group.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case task, ok := <-p.tasks:
					if !ok {
						return nil
					}
					task(gctx)
				}
			}
		})
	}

	return p
}

// Submit enqueues a task without blocking.
func (p *Pool) Submit(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending reports how many tasks wait in the queue.
func (p *Pool) Pending() int {
	return len(p.tasks)
}

// Close stops accepting tasks, drains the queue and waits for the workers.
func (p *Pool) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()

	err := p.group.Wait()
	p.cancel()
	return err
}

// Abort cancels in-flight work. Tasks still queued are run once on the
// caller goroutine with the cancelled context so they can release their state.
func (p *Pool) Abort() error {
	p.cancel()
	err := p.Close()
	for task := range p.tasks {
		task(p.ctx)
	}
	return err
}
