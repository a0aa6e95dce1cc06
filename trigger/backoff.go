package trigger

import (
	"errors"
	"time"
)

var ErrFinished = errors.New("no more retries")

// Backoff is the Backoff interface to calculate the next attempt after a failed one
type Backoff interface {
	// NextRetryTime returns the next time at which the retry should happen.
	NextRetryTime(prev time.Time, retry int) (time.Time, error)
}

type ExponentialBackoff struct {
	incBackoff time.Duration
	maxBackoff time.Duration
	maxRetries int
}

func NewExponentialBackoff(options ...ExponentialBackoffOption) ExponentialBackoff {
	b := ExponentialBackoff{
		incBackoff: 100 * time.Millisecond,
		maxBackoff: 5 * time.Second,
		maxRetries: 5,
	}
	for _, o := range options {
		o(&b)
	}

	return b
}

// NextRetryTime doubles the delay on every retry, capped at the max backoff.
// Retries are counted from 1.
func (b ExponentialBackoff) NextRetryTime(prev time.Time, retry int) (time.Time, error) {
	if retry < 1 || (b.maxRetries > 0 && retry > b.maxRetries) {
		return time.Time{}, ErrFinished
	}

	factor := int64(1)
	var backoff int64
	for i := 1; i <= retry; i++ {
		backoff = factor * int64(b.incBackoff)
		if backoff > b.maxBackoff.Nanoseconds() {
			backoff = b.maxBackoff.Nanoseconds()
			break
		}
		factor = factor * 2
	}
	return prev.Add(time.Duration(backoff)), nil
}

type ExponentialBackoffOption func(*ExponentialBackoff)

func IncBackoffOption(backoff time.Duration) ExponentialBackoffOption {
	return func(s *ExponentialBackoff) {
		s.incBackoff = backoff
	}
}

func MaxBackoffOption(backoff time.Duration) ExponentialBackoffOption {
	return func(s *ExponentialBackoff) {
		s.maxBackoff = backoff
	}
}

// MaxRetriesOption limits the number of retries. Zero means no limit.
func MaxRetriesOption(retries int) ExponentialBackoffOption {
	return func(s *ExponentialBackoff) {
		s.maxRetries = retries
	}
}

type FixedBackoff struct {
	retries []time.Duration
}

func NewFixedBackoff(retries ...time.Duration) FixedBackoff {
	return FixedBackoff{retries: retries}
}

func (b FixedBackoff) NextRetryTime(prev time.Time, retry int) (time.Time, error) {
	if retry > 0 && retry <= len(b.retries) {
		return prev.Add(b.retries[retry-1]), nil
	}
	return time.Time{}, ErrFinished
}
