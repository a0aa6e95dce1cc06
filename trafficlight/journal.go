package trafficlight

import (
	"context"
	"errors"
	"time"

	"github.com/quintans/go-trafficlight/mailbox"
	"github.com/quintans/go-trafficlight/trigger"
)

var (
	ErrTransitionNotFound = errors.New("no transition was found")
	ErrTransitionExists   = errors.New("transition already exists")
)

const defaultAppendTimeout = 5 * time.Second

// Transition records one phase change of a traffic light.
type Transition struct {
	LightID string
	// Seq starts at 1 and grows by one on every phase change of the same light.
	Seq   int64
	Phase Phase
	At    time.Time
	// Elapsed is the time since the previous phase change.
	Elapsed time.Duration
}

// Journal represents the store for the phase changes of traffic lights
type Journal interface {
	// Append records a transition. Returns ErrTransitionExists if LightID and Seq are already present.
	Append(context.Context, Transition) error
	// List returns the transitions of a light ordered by Seq
	List(ctx context.Context, lightID string) ([]Transition, error)
	// Last returns the transition with the highest Seq
	Last(ctx context.Context, lightID string) (*Transition, error)
	// Clear removes all the transitions
	Clear(context.Context) error
}

// recorder writes transitions to the journal away from the cycling loop,
// retrying failed writes according to backoff.
type recorder struct {
	journal Journal
	backoff trigger.Backoff
	logger  Logger
	pending *mailbox.Mailbox[Transition]
	done    <-chan struct{}
}

func newRecorder(journal Journal, backoff trigger.Backoff, logger Logger, done <-chan struct{}) *recorder {
	return &recorder{
		journal: journal,
		backoff: backoff,
		logger:  logger,
		pending: mailbox.New[Transition](),
		done:    done,
	}
}

func (r *recorder) record(t Transition) {
	r.pending.Send(t)
}

func (r *recorder) close() {
	r.pending.Close()
}

// run consumes pending transitions until the recorder is closed and drained.
func (r *recorder) run() {
	for {
		t, err := r.pending.Receive(context.Background())
		if err != nil {
			return
		}
		r.write(t)
	}
}

func (r *recorder) write(t Transition) {
	for retry := 1; ; retry++ {
		err := r.append(t)
		if err == nil {
			return
		}
		if errors.Is(err, ErrTransitionExists) {
			r.logger.Warn("transition %d of light '%s' already recorded", t.Seq, t.LightID)
			return
		}

		now := time.Now()
		next, berr := r.backoff.NextRetryTime(now, retry)
		if berr != nil {
			r.logger.Error("dropping transition %d of light '%s' after %d attempts: %+v", t.Seq, t.LightID, retry, err)
			return
		}
		r.logger.Warn("failed to record transition %d of light '%s'. Backoff %s: %+v", t.Seq, t.LightID, next.Sub(now), err)

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-timer.C:
		case <-r.done:
			timer.Stop()
			r.logger.Error("dropping transition %d of light '%s' on close: %+v", t.Seq, t.LightID, err)
			return
		}
	}
}

func (r *recorder) append(t Transition) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultAppendTimeout)
	defer cancel()

	return r.journal.Append(ctx, t)
}
