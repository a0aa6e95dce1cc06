package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rodaine/table"
	"github.com/sirupsen/logrus"

	"github.com/quintans/go-trafficlight/trafficlight"
)

func history(log *logrus.Logger, cfg Config) error {
	if cfg.LightID == "" {
		return fmt.Errorf("%w: light_id is required to read the history", ErrInvalidConfig)
	}
	if cfg.Journal.Kind == "" || cfg.Journal.Kind == "memory" {
		log.Warn("The memory journal does not outlive the process, nothing to show.")
	}

	ctx := context.Background()
	journal, release, err := openJournal(ctx, cfg.Journal)
	if err != nil {
		return err
	}
	defer release()

	return printHistory(ctx, journal, cfg.LightID, opts.History.Limit)
}

func printHistory(ctx context.Context, journal trafficlight.Journal, lightID string, limit int) error {
	transitions, err := journal.List(ctx, lightID)
	if err != nil {
		return err
	}
	if limit > 0 && len(transitions) > limit {
		transitions = transitions[len(transitions)-limit:]
	}

	table.DefaultHeaderFormatter = func(format string, vals ...any) string {
		return strings.ToUpper(fmt.Sprintf(format, vals...))
	}

	tbl := table.New("Seq", "Phase", "At", "After")
	for _, t := range transitions {
		tbl.AddRow(humanize.Comma(t.Seq), t.Phase, humanize.Time(t.At), t.Elapsed.Round(time.Millisecond))
	}
	tbl.Print()

	fmt.Printf("%s phase changes of '%s'\n", humanize.Comma(int64(len(transitions))), lightID)
	return nil
}
