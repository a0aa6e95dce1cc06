// Package mailbox provides a blocking hand-off queue between goroutines.
//
// Senders never block. Receivers block until a value is available, the
// context is done or the mailbox is closed. Every value is handed to exactly
// one receiver.
package mailbox

import (
	"context"
	"errors"
	"sync"

	"github.com/quintans/go-trafficlight/internal/lib"
)

var ErrClosed = errors.New("mailbox is closed")

// Order defines which pending value a receiver takes.
type Order int

const (
	// FIFO hands out the oldest pending value first.
	FIFO Order = iota
	// LIFO hands out the most recently sent value first.
	LIFO
)

func (o Order) String() string {
	if o == LIFO {
		return "lifo"
	}
	return "fifo"
}

// Mailbox is a goroutine safe queue of pending values.
// The zero value is not usable, use New.
type Mailbox[T any] struct {
	mu       sync.Mutex
	items    []T
	waiters  *lib.Waiter
	order    Order
	capacity int
	closed   bool
}

type Option func(*options)

type options struct {
	order    Order
	capacity int
}

// OrderOption sets the extraction order. Defaults to FIFO.
func OrderOption(order Order) Option {
	return func(o *options) {
		o.order = order
	}
}

// CapacityOption bounds the number of pending values.
// When the mailbox is full, Send evicts the oldest pending value.
// Zero or less means unbounded.
func CapacityOption(capacity int) Option {
	return func(o *options) {
		o.capacity = capacity
	}
}

func New[T any](opts ...Option) *Mailbox[T] {
	o := options{}
	for _, f := range opts {
		f(&o)
	}
	if o.capacity < 0 {
		o.capacity = 0
	}

	return &Mailbox[T]{
		waiters:  lib.NewWaiter(),
		order:    o.order,
		capacity: o.capacity,
	}
}

// Send queues v and wakes one blocked receiver, if any.
// It never blocks. Values sent after Close are discarded.
func (m *Mailbox[T]) Send(v T) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	if m.capacity > 0 && len(m.items) == m.capacity {
		m.removeAt(0)
	}
	m.items = append(m.items, v)
	m.waiters.WakeOne()
}

// Receive blocks until a value is available and removes it from the mailbox.
// It returns the context error if ctx is done first, and ErrClosed once the
// mailbox is closed and drained.
func (m *Mailbox[T]) Receive(ctx context.Context) (T, error) {
	var zero T

	m.mu.Lock()
	for len(m.items) == 0 {
		if m.closed {
			m.mu.Unlock()
			return zero, ErrClosed
		}

		wake := m.waiters.Park()
		m.mu.Unlock()

		select {
		case <-wake:
			m.mu.Lock()
		case <-ctx.Done():
			m.mu.Lock()
			// a sender may have picked us in the meantime
			if !m.waiters.Cancel(wake) && len(m.items) > 0 {
				m.waiters.WakeOne()
			}
			m.mu.Unlock()
			return zero, ctx.Err()
		}
	}

	v := m.pop()
	m.mu.Unlock()

	return v, nil
}

// TryReceive removes and returns a pending value without blocking.
func (m *Mailbox[T]) TryReceive() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.items) == 0 {
		var zero T
		return zero, false
	}
	return m.pop(), true
}

// Len returns the number of pending values.
func (m *Mailbox[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.items)
}

// Close wakes every blocked receiver. Pending values can still be received.
// Calling Close more than once has no effect.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	m.waiters.WakeAll()
}

func (m *Mailbox[T]) pop() T {
	if m.order == LIFO {
		return m.removeAt(len(m.items) - 1)
	}
	return m.removeAt(0)
}

func (m *Mailbox[T]) removeAt(i int) T {
	var zero T
	v := m.items[i]
	last := len(m.items) - 1
	if i == 0 {
		m.items[0] = zero
		m.items = m.items[1:]
		return v
	}
	copy(m.items[i:], m.items[i+1:])
	m.items[last] = zero
	m.items = m.items[:last]
	return v
}
