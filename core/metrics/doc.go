package metrics

// Package metrics defines interfaces for collecting triage metrics. Sinks
// like PromSink and InfluxSink record events such as processed requests,
// capacity reservations or dispatcher overrides and can be combined with
// NewMultiSink. Optional recorder interfaces let a sink opt into the event
// families it understands.
