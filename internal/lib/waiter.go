package lib

// Waiter parks goroutines on a condition guarded by the caller's lock and
// wakes them one at a time, oldest first.
//
// Waiter has no lock of its own: every method must be called while holding
// the lock that protects the condition being waited on. A parked goroutine
// releases that lock, blocks on the channel returned by Park and re-acquires
// the lock once the channel is closed.
type Waiter struct {
	waiters []chan struct{}
}

// NewWaiter creates a Waiter with nobody parked.
func NewWaiter() *Waiter {
	return &Waiter{}
}

// Park registers a new waiter and returns a channel that is closed when that
// waiter is woken by WakeOne or WakeAll.
func (p *Waiter) Park() <-chan struct{} {
	ch := make(chan struct{})
	p.waiters = append(p.waiters, ch)
	return ch
}

// WakeOne wakes the oldest parked waiter and reports whether there was one.
func (p *Waiter) WakeOne() bool {
	if len(p.waiters) == 0 {
		return false
	}
	ch := p.waiters[0]
	p.waiters[0] = nil
	p.waiters = p.waiters[1:]
	close(ch)
	return true
}

// WakeAll wakes every parked waiter.
func (p *Waiter) WakeAll() {
	for _, ch := range p.waiters {
		close(ch)
	}
	p.waiters = nil
}

// Cancel removes the waiter owning ch. It returns false if the waiter was
// already woken, in which case the caller owns a wake it did not use and
// should pass it on.
func (p *Waiter) Cancel(ch <-chan struct{}) bool {
	for i, w := range p.waiters {
		if w == ch {
			copy(p.waiters[i:], p.waiters[i+1:])
			p.waiters[len(p.waiters)-1] = nil
			p.waiters = p.waiters[:len(p.waiters)-1]
			return true
		}
	}
	return false
}

// Len returns the number of parked waiters.
func (p *Waiter) Len() int {
	return len(p.waiters)
}
