package trigger

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

var ErrExpired = errors.New("trigger has expired")

// Trigger decides when the next phase change of a traffic light happens.
type Trigger interface {

	// NextFireTime returns the next time at which the Trigger is scheduled to fire.
	NextFireTime(prev time.Time) (time.Time, error)

	// Description returns a Trigger description.
	Description() string
}

// RandomTrigger implements the Trigger interface; every interval is drawn
// uniformly from [Min, Max).
type RandomTrigger struct {
	Min time.Duration
	Max time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomTrigger returns a new RandomTrigger seeded from the current time.
func NewRandomTrigger(min, max time.Duration) *RandomTrigger {
	return NewRandomTriggerWithSource(min, max, rand.NewSource(time.Now().UnixNano()))
}

// NewRandomTriggerWithSource returns a new RandomTrigger drawing from src.
// If max is not greater than min, every interval is min.
func NewRandomTriggerWithSource(min, max time.Duration, src rand.Source) *RandomTrigger {
	return &RandomTrigger{
		Min: min,
		Max: max,
		rnd: rand.New(src),
	}
}

// NextFireTime returns prev plus a random interval.
func (rt *RandomTrigger) NextFireTime(prev time.Time) (time.Time, error) {
	return prev.Add(rt.Interval()), nil
}

// Interval draws the next interval.
func (rt *RandomTrigger) Interval() time.Duration {
	span := int64(rt.Max - rt.Min)
	if span <= 0 {
		return rt.Min
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	return rt.Min + time.Duration(rt.rnd.Int63n(span))
}

// Description returns a RandomTrigger description.
func (rt *RandomTrigger) Description() string {
	return fmt.Sprintf("RandomTrigger with intervals between %s and %s.", rt.Min, rt.Max)
}

// SimpleTrigger implements the Trigger interface; uses a time.Duration interval.
type SimpleTrigger struct {
	Interval time.Duration
}

// NewSimpleTrigger returns a new SimpleTrigger.
func NewSimpleTrigger(interval time.Duration) *SimpleTrigger {
	return &SimpleTrigger{interval}
}

// NextFireTime returns the next time at which the SimpleTrigger is scheduled to fire.
func (st *SimpleTrigger) NextFireTime(prev time.Time) (time.Time, error) {
	return prev.Add(st.Interval), nil
}

// Description returns a SimpleTrigger description.
func (st *SimpleTrigger) Description() string {
	return fmt.Sprintf("SimpleTrigger with the interval %s.", st.Interval)
}

// RunOnceTrigger implements the Trigger interface. Could be triggered only once.
type RunOnceTrigger struct {
	Delay time.Duration

	mu      sync.Mutex
	expired bool
}

// NewRunOnceTrigger returns a new RunOnceTrigger.
func NewRunOnceTrigger(delay time.Duration) *RunOnceTrigger {
	return &RunOnceTrigger{Delay: delay}
}

// NextFireTime returns the next time at which the RunOnceTrigger is scheduled to fire.
// Sets expired to true afterwards.
func (st *RunOnceTrigger) NextFireTime(prev time.Time) (time.Time, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.expired {
		st.expired = true
		return prev.Add(st.Delay), nil
	}

	return time.Time{}, ErrExpired
}

// Description returns a RunOnceTrigger description.
func (st *RunOnceTrigger) Description() string {
	st.mu.Lock()
	defer st.mu.Unlock()

	status := "valid"
	if st.expired {
		status = "expired"
	}

	return fmt.Sprintf("RunOnceTrigger (%s).", status)
}
