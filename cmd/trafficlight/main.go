// Command trafficlight runs a simulated traffic light with vehicles waiting
// for green, and prints the recorded phase changes.
package main

import (
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/natefinch/lumberjack"
	"github.com/sirupsen/logrus"
)

var opts struct {
	Config string `short:"c" help:"YAML configuration file."`

	Run struct {
		Duration time.Duration `short:"d" default:"0s" help:"Stop after this long. Zero runs until interrupted."`
		Vehicles int           `short:"n" default:"3" help:"Number of vehicles driving through the crossing."`
	} `cmd:"" help:"Simulates the traffic light."`

	History struct {
		Limit int `short:"l" default:"0" help:"Show only the last N phase changes. Zero shows all."`
	} `cmd:"" help:"Prints the phase changes recorded in the journal."`
}

func main() {
	cliCtx := kong.Parse(&opts,
		kong.Name("trafficlight"),
		kong.Description("Traffic light simulation."),
	)

	cfg, err := LoadFile(opts.Config)
	if err != nil {
		logrus.Fatalf("failed to load configuration: %v", err)
	}

	log, err := newLogger(cfg.Log)
	if err != nil {
		logrus.Fatalf("failed to configure logging: %v", err)
	}

	switch cliCtx.Command() {
	case "run":
		err = run(log, cfg)
	case "history":
		err = history(log, cfg)
	}
	if err != nil {
		log.Errorf("%s: %v", cliCtx.Command(), err)
		os.Exit(1)
	}
}

func newLogger(cfg LogConfig) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if cfg.File != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    500, // megabytes
			MaxBackups: 3,
			MaxAge:     28, //days
		})
	}

	return log, nil
}
