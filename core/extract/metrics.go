package extract

import "github.com/prometheus/client_golang/prometheus"

var extractFallbacks prometheus.Counter

func newCollectors() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "extraction_fallback_total",
		Help: "Number of extractions answered by the keyword fallback",
	})
}

func init() {
	extractFallbacks = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers extraction metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(extractFallbacks)
}

// ResetMetrics reinitializes metrics collectors for testing purposes.
func ResetMetrics(reg prometheus.Registerer) {
	extractFallbacks = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
