package triage

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	triageRequests    *prometheus.CounterVec
	processingSeconds prometheus.Histogram
	allocations       *prometheus.CounterVec
	overrides         prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, prometheus.Histogram, *prometheus.CounterVec, prometheus.Counter) {
	req := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_requests_total",
			Help: "Number of triaged requests by urgency level",
		},
		[]string{"urgency"},
	)
	proc := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "triage_processing_seconds",
			Help:    "Time from receipt to stored triage result",
			Buckets: prometheus.DefBuckets,
		},
	)
	alloc := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resource_allocation_total",
			Help: "Capacity reservations by result",
		},
		[]string{"result"},
	)
	ovr := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_overrides_total",
		Help: "Number of dispatches where the dispatcher chose another resource than the top match",
	})
	return req, proc, alloc, ovr
}

func init() {
	triageRequests, processingSeconds, allocations, overrides = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers triage metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(triageRequests, processingSeconds, allocations, overrides)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	triageRequests, processingSeconds, allocations, overrides = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
