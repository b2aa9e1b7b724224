package pitchmix

import (
	"context"
	"fmt"
	"sync"
)

// Pool bounds the number of engine invocations running at once.
type Pool struct {
	maxWorkers int
	semaphore  chan struct{}
	active     int
	mu         sync.Mutex
}

// NewPool creates a pool allowing maxWorkers concurrent jobs. Non-positive
// values fall back to the default.
func NewPool(maxWorkers int) *Pool {
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkers
	}

	return &Pool{
		maxWorkers: maxWorkers,
		semaphore:  make(chan struct{}, maxWorkers),
	}
}

// Acquire blocks until a worker slot is available or ctx is done.
func (p *Pool) Acquire(ctx context.Context) error {
	select {
	case p.semaphore <- struct{}{}:
		p.mu.Lock()
		p.active++
		p.mu.Unlock()
		return nil
	case <-ctx.Done():
		return fmt.Errorf("pool acquire cancelled: %w", ctx.Err())
	}
}

// Release frees a worker slot.
func (p *Pool) Release() {
	p.mu.Lock()
	p.active--
	p.mu.Unlock()
	<-p.semaphore
}

// ActiveWorkers returns the number of slots in use.
func (p *Pool) ActiveWorkers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// MaxWorkers returns the pool capacity.
func (p *Pool) MaxWorkers() int {
	return p.maxWorkers
}

// AvailableSlots returns the number of free slots.
func (p *Pool) AvailableSlots() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxWorkers - p.active
}
