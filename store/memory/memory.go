package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/quintans/go-trafficlight/trafficlight"
)

// MemStore keeps the journal in memory, per light, ordered by sequence.
type MemStore struct {
	mu     sync.Mutex
	lights map[string][]trafficlight.Transition
}

func New() *MemStore {
	return &MemStore{
		lights: map[string][]trafficlight.Transition{},
	}
}

func (s *MemStore) Append(_ context.Context, t trafficlight.Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.lights[t.LightID]
	i, found := slices.BinarySearchFunc(entries, t.Seq, func(e trafficlight.Transition, seq int64) int {
		return cmp.Compare(e.Seq, seq)
	})
	if found {
		return fmt.Errorf("append transition %d of '%s': %w", t.Seq, t.LightID, trafficlight.ErrTransitionExists)
	}
	s.lights[t.LightID] = slices.Insert(entries, i, t)

	return nil
}

func (s *MemStore) List(_ context.Context, lightID string) ([]trafficlight.Transition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]trafficlight.Transition{}, s.lights[lightID]...), nil
}

func (s *MemStore) Last(_ context.Context, lightID string) (*trafficlight.Transition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.lights[lightID]
	if len(entries) == 0 {
		return nil, fmt.Errorf("last transition of '%s': %w", lightID, trafficlight.ErrTransitionNotFound)
	}
	last := entries[len(entries)-1]

	return &last, nil
}

func (s *MemStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lights = map[string][]trafficlight.Transition{}

	return nil
}
