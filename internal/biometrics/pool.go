package biometrics

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Pool bounds the number of CPU-bound inference calls running at once.
type Pool struct {
	sem  *semaphore.Weighted
	size int
}

// NewPool creates a pool of size slots; size <= 0 uses GOMAXPROCS.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

func (p *Pool) Size() int {
	return p.size
}

// Do runs fn once a slot is free. Waiting honours ctx; fn itself is not
// interrupted.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	if p == nil {
		return fn()
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn()
}
