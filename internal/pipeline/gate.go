package pipeline

import "context"

// Gate is a counting semaphore bounding how many tasks render at once.
// Submission itself is never blocked; the dispatcher holds a slot for the
// lifetime of each runner goroutine.
type Gate struct {
	slots chan struct{}
}

// NewGate creates a gate with n concurrent slots. Non-positive n falls back
// to 1.
func NewGate(n int) *Gate {
	if n < 1 {
		n = 1
	}
	return &Gate{slots: make(chan struct{}, n)}
}

// Acquire blocks until a slot is free or the context is done.
func (g *Gate) Acquire(ctx context.Context) error {
	select {
	case g.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire takes a slot without blocking.
func (g *Gate) TryAcquire() bool {
	select {
	case g.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release frees a previously acquired slot.
func (g *Gate) Release() {
	select {
	case <-g.slots:
	default:
	}
}

// InUse returns the number of held slots.
func (g *Gate) InUse() int {
	return len(g.slots)
}
