package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quintans/go-trafficlight/mailbox"
	"github.com/quintans/go-trafficlight/trafficlight"
	"github.com/quintans/go-trafficlight/trigger"
)

// Set of error variables.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config represents the configuration needed to run a traffic light.
type Config struct {
	LightID        string        `yaml:"light_id"`
	Cycle          CycleConfig   `yaml:"cycle"`
	LevelTriggered bool          `yaml:"level_triggered"`
	Order          string        `yaml:"order"`
	Journal        JournalConfig `yaml:"journal"`
	Log            LogConfig     `yaml:"log"`
}

type CycleConfig struct {
	Kind     string        `yaml:"kind"`
	Min      time.Duration `yaml:"min"`
	Max      time.Duration `yaml:"max"`
	Interval time.Duration `yaml:"interval"`
	Cron     string        `yaml:"cron"`
}

type JournalConfig struct {
	Kind       string `yaml:"kind"`
	DSN        string `yaml:"dsn"`
	Table      string `yaml:"table"`
	ProjectID  string `yaml:"project_id"`
	Collection string `yaml:"collection"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns a random 4s..6s cycle with an in-memory journal.
func DefaultConfig() Config {
	return Config{
		Cycle: CycleConfig{
			Kind: "random",
			Min:  trafficlight.DefaultMinCycle,
			Max:  trafficlight.DefaultMaxCycle,
		},
		Order: "fifo",
		Journal: JournalConfig{
			Kind: "memory",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadFile reads the specified configuration from disk on top of the defaults.
// An empty file name returns the defaults.
func LoadFile(file string) (Config, error) {
	cfg := DefaultConfig()
	if file == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return Config{}, fmt.Errorf("os.ReadFile: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("yaml.Unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the values that the library would otherwise silently accept.
func (c Config) Validate() error {
	if _, err := c.Trigger(); err != nil {
		return err
	}
	if _, err := c.MailboxOrder(); err != nil {
		return err
	}
	switch c.Journal.Kind {
	case "", "memory":
	case "postgres":
		if c.Journal.DSN == "" {
			return fmt.Errorf("%w: journal.dsn is required for postgres", ErrInvalidConfig)
		}
	case "firestore":
		if c.Journal.ProjectID == "" {
			return fmt.Errorf("%w: journal.project_id is required for firestore", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown journal kind %q", ErrInvalidConfig, c.Journal.Kind)
	}
	return nil
}

// Trigger builds the cycle policy.
func (c Config) Trigger() (trigger.Trigger, error) {
	switch strings.ToLower(c.Cycle.Kind) {
	case "", "random":
		if c.Cycle.Min <= 0 || c.Cycle.Max < c.Cycle.Min {
			return nil, fmt.Errorf("%w: cycle needs 0 < min <= max, got %s..%s", ErrInvalidConfig, c.Cycle.Min, c.Cycle.Max)
		}
		return trigger.NewRandomTrigger(c.Cycle.Min, c.Cycle.Max), nil
	case "fixed":
		if c.Cycle.Interval <= 0 {
			return nil, fmt.Errorf("%w: cycle.interval must be positive", ErrInvalidConfig)
		}
		return trigger.NewSimpleTrigger(c.Cycle.Interval), nil
	case "cron":
		t, err := trigger.NewCronTrigger(c.Cycle.Cron)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("%w: unknown cycle kind %q", ErrInvalidConfig, c.Cycle.Kind)
	}
}

func (c Config) MailboxOrder() (mailbox.Order, error) {
	switch strings.ToLower(c.Order) {
	case "", "fifo":
		return mailbox.FIFO, nil
	case "lifo":
		return mailbox.LIFO, nil
	default:
		return mailbox.FIFO, fmt.Errorf("%w: unknown order %q", ErrInvalidConfig, c.Order)
	}
}

// Options converts the configuration into traffic light options.
func (c Config) Options() ([]trafficlight.Option, error) {
	trg, err := c.Trigger()
	if err != nil {
		return nil, err
	}
	order, err := c.MailboxOrder()
	if err != nil {
		return nil, err
	}

	options := []trafficlight.Option{
		trafficlight.TriggerOption(trg),
		trafficlight.MailboxOrderOption(order),
		trafficlight.LevelTriggeredOption(c.LevelTriggered),
	}
	if c.LightID != "" {
		options = append(options, trafficlight.IDOption(c.LightID))
	}
	return options, nil
}
