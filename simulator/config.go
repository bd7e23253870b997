package main

import (
	"fmt"
	"time"
)

// Config holds parameters for the simulator.
type Config struct {
	Broker       string
	FixtureFile  string
	Units        []string
	NoticePrefix string
	StatusPrefix string
	AckLatency   time.Duration
	DropRate     float64
	Interval     time.Duration
	DriftKM      float64
	RadiusKM     float64
	LogLevel     string
}

// Validate checks the simulator settings.
func (c Config) Validate() error {
	switch {
	case c.Broker == "":
		return fmt.Errorf("broker is required")
	case c.FixtureFile == "":
		return fmt.Errorf("fixture file is required")
	case c.DropRate < 0 || c.DropRate > 1:
		return fmt.Errorf("drop rate %.2f outside [0,1]", c.DropRate)
	case c.AckLatency < 0:
		return fmt.Errorf("ack latency must not be negative")
	case c.Interval <= 0:
		return fmt.Errorf("interval must be positive")
	case c.DriftKM < 0 || c.RadiusKM < 0:
		return fmt.Errorf("drift and radius must not be negative")
	}
	return nil
}
