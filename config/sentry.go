package config

import "fmt"

// SentryConfig enables error reporting when DSN is set. Events are scrubbed
// of message text and caller contact details before they are sent.
type SentryConfig struct {
	DSN              string  `json:"dsn"`
	Environment      string  `json:"environment"`
	TracesSampleRate float64 `json:"traces_sample_rate"`
	Release          string  `json:"release"`
}

func (c *SentryConfig) SetDefaults() {
	if c.DSN != "" && c.Environment == "" {
		c.Environment = "production"
	}
}

// Validate rejects sample rates outside [0, 1].
func (c SentryConfig) Validate() error {
	if c.TracesSampleRate < 0 || c.TracesSampleRate > 1 {
		return fmt.Errorf("traces_sample_rate %.2f out of range [0,1]", c.TracesSampleRate)
	}
	return nil
}
