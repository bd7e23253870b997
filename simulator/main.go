// Command simulator runs resource units against the MQTT broker: each unit
// acknowledges the dispatch notices it receives and reports its position.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/kilianp07/crisistriage/infra/logger"
)

func main() {
	cfg := parseFlags()
	log := logger.New("simulator")
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		log.Warnf("log level: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Errorf("invalid config: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	f, err := os.Open(cfg.FixtureFile)
	if err != nil {
		log.Errorf("fixture: %v", err)
		os.Exit(1)
	}
	strat := RandomAck{Delay: cfg.AckLatency, DropRate: cfg.DropRate}
	units, err := LoadUnits(f, cfg, strat)
	_ = f.Close()
	if err != nil {
		log.Errorf("fixture: %v", err)
		os.Exit(1)
	}
	log.Infof("simulating %d units on %s", len(units), cfg.Broker)
	runUnits(ctx, units)
}

func parseFlags() Config {
	var cfg Config
	var units string
	flag.StringVar(&cfg.Broker, "broker", "tcp://localhost:1883", "MQTT broker URL")
	flag.StringVar(&cfg.FixtureFile, "fixture", "fixtures/resources.yaml", "resource fixture describing the units")
	flag.StringVar(&units, "units", "", "comma separated resource ids to simulate (default all)")
	flag.StringVar(&cfg.NoticePrefix, "notice-prefix", "triage/resource", "dispatch notice topic prefix")
	flag.StringVar(&cfg.StatusPrefix, "status-prefix", "triage/status", "status report topic prefix")
	flag.DurationVar(&cfg.AckLatency, "ack-latency", 0, "ack latency")
	flag.Float64Var(&cfg.DropRate, "drop-rate", 0, "ack drop rate")
	flag.DurationVar(&cfg.Interval, "interval", 30*time.Second, "position report interval")
	flag.Float64Var(&cfg.DriftKM, "drift-km", 0.5, "maximum move per report")
	flag.Float64Var(&cfg.RadiusKM, "radius-km", 5, "maximum distance from the base")
	flag.StringVar(&cfg.LogLevel, "log-level", "info", "log level")
	flag.Parse()
	for _, id := range strings.Split(units, ",") {
		if id = strings.TrimSpace(id); id != "" {
			cfg.Units = append(cfg.Units, id)
		}
	}
	return cfg
}

func runUnits(ctx context.Context, units []SimulatedUnit) {
	var wg sync.WaitGroup
	for i := range units {
		u := &units[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := u.Run(ctx); err != nil {
				logger.New("simulator").Errorf("%s: %v", u.ID, err)
			}
		}()
	}
	wg.Wait()
}
