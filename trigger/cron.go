package trigger

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// CronTrigger fires on the instants described by a cron expression.
// The seconds field is optional.
type CronTrigger struct {
	expr     string
	schedule cron.Schedule
}

// NewCronTrigger returns a new CronTrigger.
func NewCronTrigger(expr string) (*CronTrigger, error) {
	parser := cron.NewParser(
		cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cron expression: %w", err)
	}

	return &CronTrigger{expr: expr, schedule: schedule}, nil
}

// NextFireTime returns the first activation strictly after prev.
func (ct *CronTrigger) NextFireTime(prev time.Time) (time.Time, error) {
	next := ct.schedule.Next(prev)
	if next.IsZero() {
		return time.Time{}, ErrExpired
	}
	return next, nil
}

// Description returns a CronTrigger description.
func (ct *CronTrigger) Description() string {
	return fmt.Sprintf("CronTrigger with the expression %q.", ct.expr)
}
