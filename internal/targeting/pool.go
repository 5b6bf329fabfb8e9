package targeting

import (
	"context"
	"runtime"
	"sync"
)

// Pool is a fixed-size worker pool that runs predicate evaluations. One pool
// is created at startup and shared by every evaluator for the life of the
// process; spinning up workers per evaluation call is exactly what this
// avoids.
type Pool struct {
	tasks chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

// NewPool starts a pool with the given number of workers. Non-positive
// worker counts fall back to the number of CPUs.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	p := &Pool{tasks: make(chan func())}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for task := range p.tasks {
				task()
			}
		}()
	}
	return p
}

// Submit schedules fn on the pool. It blocks until a worker accepts the task
// or ctx is done.
func (p *Pool) Submit(ctx context.Context, fn func()) error {
	select {
	case p.tasks <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting work and waits for in-flight tasks to finish.
func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.tasks)
	})
	p.wg.Wait()
}
