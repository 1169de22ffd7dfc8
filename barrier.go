package hiersched

import "sync"

// Barrier is a reusable cyclic barrier over a fixed number of parties. Wait
// blocks the calling goroutine until the n-th party arrives in the current
// generation, then releases all of them together and advances to the next
// generation so the same Barrier instance can be reused for the next
// crossing. This is the "pool_barrier.wait()" collaborator of spec §6 —
// Dispatcher's first entry crosses it three times per worker, and three
// more times on the degrade-to-static path.
type Barrier struct {
	mu         sync.Mutex
	cond       *sync.Cond
	parties    int
	waiting    int
	generation uint64
}

// NewBarrier creates a barrier for n parties. n must be >= 1.
func NewBarrier(n int) *Barrier {
	if n < 1 {
		n = 1
	}
	b := &Barrier{parties: n}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Wait blocks until all parties have called Wait in the current generation.
func (b *Barrier) Wait() {
	b.mu.Lock()
	defer b.mu.Unlock()

	gen := b.generation
	b.waiting++
	if b.waiting == b.parties {
		b.waiting = 0
		b.generation++
		b.cond.Broadcast()
		return
	}
	for gen == b.generation {
		b.cond.Wait()
	}
}

// Parties returns the number of parties this barrier synchronizes.
func (b *Barrier) Parties() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.parties
}
