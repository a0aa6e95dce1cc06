// Package trafficlight simulates a traffic light that alternates between red
// and green on its own, and lets any number of goroutines wait for green.
package trafficlight

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quintans/go-trafficlight/mailbox"
	"github.com/quintans/go-trafficlight/trigger"
)

var (
	ErrAlreadyRunning = errors.New("traffic light is already running")
	ErrClosed         = errors.New("traffic light is closed")
)

const (
	DefaultMinCycle = 4 * time.Second
	DefaultMaxCycle = 6 * time.Second
)

// TrafficLight owns the current phase and the mailbox where every phase
// change is published.
type TrafficLight struct {
	id             string
	trigger        trigger.Trigger
	journal        Journal
	backoff        trigger.Backoff
	logger         Logger
	levelTriggered bool
	order          mailbox.Order

	mu           sync.RWMutex
	currentPhase Phase

	queue    *mailbox.Mailbox[Phase]
	subs     *subscribers
	recorder *recorder

	// lifecycle
	lifeMu  sync.Mutex
	running bool
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}

	// tracks the goroutines started by the light
	wg sync.WaitGroup
}

type Option func(*TrafficLight)

func IDOption(id string) Option {
	return func(tl *TrafficLight) {
		tl.id = id
	}
}

// TriggerOption sets the policy deciding when the phase changes.
// Defaults to a random interval between DefaultMinCycle and DefaultMaxCycle.
func TriggerOption(t trigger.Trigger) Option {
	return func(tl *TrafficLight) {
		tl.trigger = t
	}
}

// JournalOption records every phase change in j.
func JournalOption(j Journal) Option {
	return func(tl *TrafficLight) {
		tl.journal = j
	}
}

func JournalBackoffOption(b trigger.Backoff) Option {
	return func(tl *TrafficLight) {
		tl.backoff = b
	}
}

func LoggerOption(l Logger) Option {
	return func(tl *TrafficLight) {
		tl.logger = l
	}
}

// LevelTriggeredOption makes WaitForGreen return immediately when the light
// is already green, instead of waiting for the next change to green.
func LevelTriggeredOption(on bool) Option {
	return func(tl *TrafficLight) {
		tl.levelTriggered = on
	}
}

func MailboxOrderOption(order mailbox.Order) Option {
	return func(tl *TrafficLight) {
		tl.order = order
	}
}

// New returns a red traffic light. Call Simulate to start cycling and Close to
// release it.
func New(options ...Option) *TrafficLight {
	tl := &TrafficLight{
		currentPhase: Red,
		order:        mailbox.FIFO,
		subs:         newSubscribers(),
		done:         make(chan struct{}),
	}
	for _, f := range options {
		f(tl)
	}

	if tl.id == "" {
		tl.id = uuid.NewString()
	}
	if tl.trigger == nil {
		tl.trigger = trigger.NewRandomTrigger(DefaultMinCycle, DefaultMaxCycle)
	}
	if tl.logger == nil {
		tl.logger = NewLogrusLogger(nil).WithField("light", tl.id)
	}
	if tl.backoff == nil {
		tl.backoff = trigger.NewExponentialBackoff()
	}
	tl.queue = mailbox.New[Phase](mailbox.OrderOption(tl.order))

	tl.wg.Add(1)
	go tl.dispatch()

	if tl.journal != nil {
		tl.recorder = newRecorder(tl.journal, tl.backoff, tl.logger, tl.done)
		tl.wg.Add(1)
		go func() {
			defer tl.wg.Done()
			tl.recorder.run()
		}()
	}

	return tl
}

func (tl *TrafficLight) ID() string {
	return tl.id
}

// CurrentPhase returns the last committed phase.
func (tl *TrafficLight) CurrentPhase() Phase {
	tl.mu.RLock()
	defer tl.mu.RUnlock()

	return tl.currentPhase
}

// Publish sends a phase event to every waiter without changing the current phase.
func (tl *TrafficLight) Publish(p Phase) {
	tl.queue.Send(p)
}

// Subscribe returns a subscription that receives every phase event published from now on.
func (tl *TrafficLight) Subscribe() (*Subscription, error) {
	sub := &Subscription{
		id:    uuid.NewString(),
		mb:    mailbox.New[Phase](mailbox.OrderOption(tl.order)),
		owner: tl.subs,
	}
	if err := tl.subs.Add(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// WaitForGreen blocks until a green phase event is received.
//
// Events are edge triggered: a caller arriving while the light is green waits
// for the next change to green, unless the light was created with
// LevelTriggeredOption.
func (tl *TrafficLight) WaitForGreen(ctx context.Context) error {
	// subscribe before looking at the phase so that no event is missed
	sub, err := tl.Subscribe()
	if err != nil {
		return err
	}
	defer sub.Close()

	if tl.levelTriggered && tl.CurrentPhase() == Green {
		return nil
	}

	for {
		p, err := sub.Receive(ctx)
		if err != nil {
			return err
		}
		if p == Green {
			return nil
		}
	}
}

// Simulate starts cycling through the phases on a separate goroutine.
// The cycle stops when ctx is done or the light is closed.
// It can only be called once.
func (tl *TrafficLight) Simulate(ctx context.Context) error {
	tl.lifeMu.Lock()
	defer tl.lifeMu.Unlock()

	if tl.closed {
		return ErrClosed
	}
	if tl.running {
		return ErrAlreadyRunning
	}

	seq, err := tl.lastSeq(ctx)
	if err != nil {
		return fmt.Errorf("failed to simulate light '%s': %w", tl.id, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	tl.running = true
	tl.cancel = cancel

	tl.wg.Add(1)
	go tl.cycleThroughPhases(ctx, seq)

	return nil
}

// Close stops the cycle, releases every waiter with ErrClosed and waits for
// the goroutines of the light to finish.
func (tl *TrafficLight) Close() error {
	tl.lifeMu.Lock()
	if tl.closed {
		tl.lifeMu.Unlock()
		return nil
	}
	tl.closed = true
	cancel := tl.cancel
	close(tl.done)
	tl.lifeMu.Unlock()

	if cancel != nil {
		cancel()
	}
	tl.queue.Close()
	tl.subs.CloseAll()
	if tl.recorder != nil {
		tl.recorder.close()
	}
	tl.wg.Wait()

	return nil
}

func (tl *TrafficLight) lastSeq(ctx context.Context) (int64, error) {
	if tl.journal == nil {
		return 0, nil
	}

	last, err := tl.journal.Last(ctx, tl.id)
	if errors.Is(err, ErrTransitionNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return last.Seq, nil
}

// dispatch hands every published phase to the subscriptions.
func (tl *TrafficLight) dispatch() {
	defer tl.wg.Done()

	for {
		p, err := tl.queue.Receive(context.Background())
		if err != nil {
			return
		}
		tl.subs.Broadcast(p)
	}
}

func (tl *TrafficLight) cycleThroughPhases(ctx context.Context, seq int64) {
	defer tl.wg.Done()

	tl.logger.Info("Cycling with %s", tl.trigger.Description())

	last := time.Now()
	for {
		next, err := tl.trigger.NextFireTime(last)
		if err != nil {
			tl.logger.Warn("Stopping the cycle: %v", err)
			return
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			tl.logger.Info("Exit the cycling loop.")
			return
		}

		now := time.Now()
		phase := tl.toggle()
		tl.queue.Send(phase)

		elapsed := now.Sub(last)
		last = now
		seq++
		tl.logger.Info("time between cycles: %dms, now %s", elapsed.Milliseconds(), phase)

		if tl.recorder != nil {
			tl.recorder.record(Transition{
				LightID: tl.id,
				Seq:     seq,
				Phase:   phase,
				At:      now.UTC(),
				Elapsed: elapsed,
			})
		}
	}
}

func (tl *TrafficLight) toggle() Phase {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	tl.currentPhase = tl.currentPhase.Toggle()
	return tl.currentPhase
}
