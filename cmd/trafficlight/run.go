package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/quintans/go-trafficlight/trafficlight"
)

const maxArrival = 8 * time.Second

func run(log *logrus.Logger, cfg Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.Run.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Run.Duration)
		defer cancel()
	}

	journal, release, err := openJournal(ctx, cfg.Journal)
	if err != nil {
		return err
	}
	defer release()

	if cfg.LightID == "" {
		cfg.LightID = uuid.NewString()
	}
	options, err := cfg.Options()
	if err != nil {
		return err
	}
	options = append(options,
		trafficlight.JournalOption(journal),
		trafficlight.LoggerOption(trafficlight.NewLogrusLogger(log).WithField("light", cfg.LightID)),
	)

	light := trafficlight.New(options...)
	if err := light.Simulate(ctx); err != nil {
		light.Close()
		return err
	}

	log.Infof("Simulating light '%s' with %d vehicles", light.ID(), opts.Run.Vehicles)

	var wg sync.WaitGroup
	for i := range opts.Run.Vehicles {
		wg.Add(1)
		go func() {
			defer wg.Done()
			drive(ctx, log.WithField("vehicle", fmt.Sprintf("car-%d", i+1)), light)
		}()
	}
	wg.Wait()

	// flushes the journal
	if err := light.Close(); err != nil {
		return err
	}

	return printHistory(context.Background(), journal, light.ID(), 0)
}

// drive keeps arriving at the crossing and waiting for green until ctx is done.
func drive(ctx context.Context, log *logrus.Entry, light *trafficlight.TrafficLight) {
	for crossings := 1; ; crossings++ {
		timer := time.NewTimer(time.Duration(rand.Int63n(int64(maxArrival))))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}

		log.Infof("arrived, light is %s", light.CurrentPhase())
		err := light.WaitForGreen(ctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, trafficlight.ErrClosed) {
			log.Debugf("gave up waiting: %v", err)
			return
		}
		if err != nil {
			log.Errorf("failed to wait for green: %v", err)
			return
		}
		log.Infof("crossing for the %s time", humanize.Ordinal(crossings))
	}
}
