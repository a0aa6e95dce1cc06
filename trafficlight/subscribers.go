package trafficlight

import (
	"context"
	"errors"
	"sync"

	"github.com/quintans/go-trafficlight/mailbox"
)

// Subscription is a private path for the phase changes of a light.
// Every subscription receives every phase event published after it was created.
type Subscription struct {
	id    string
	mb    *mailbox.Mailbox[Phase]
	owner *subscribers
}

// Receive blocks until the next phase event.
// It returns ErrClosed when the subscription or its light is closed.
func (s *Subscription) Receive(ctx context.Context) (Phase, error) {
	p, err := s.mb.Receive(ctx)
	if errors.Is(err, mailbox.ErrClosed) {
		return p, ErrClosed
	}
	return p, err
}

// Close stops the delivery of events to the subscription.
func (s *Subscription) Close() {
	s.owner.Delete(s.id)
	s.mb.Close()
}

// subscribers tracks the open subscriptions of a light.
type subscribers struct {
	mu     sync.RWMutex
	subs   map[string]*Subscription
	closed bool
}

func newSubscribers() *subscribers {
	return &subscribers{
		subs: map[string]*Subscription{},
	}
}

func (m *subscribers) Add(sub *Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.subs[sub.id] = sub
	return nil
}

func (m *subscribers) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.subs, id)
}

func (m *subscribers) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.subs)
}

// Broadcast hands p to every subscription. It never blocks.
func (m *subscribers) Broadcast(p Phase) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subs {
		sub.mb.Send(p)
	}
}

// CloseAll closes every subscription and rejects new ones.
func (m *subscribers) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	for id, sub := range m.subs {
		sub.mb.Close()
		delete(m.subs, id)
	}
}
