package matching

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	matchRuns       *prometheus.CounterVec
	aiFallbacks     *prometheus.CounterVec
	matchCandidates prometheus.Histogram
	topMatchScore   *prometheus.HistogramVec
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.CounterVec, prometheus.Histogram, *prometheus.HistogramVec) {
	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_path_total",
			Help: "Number of matching runs by the path that produced the result",
		},
		[]string{"source"},
	)
	fb := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_ai_fallback_total",
			Help: "Number of AI matching attempts that fell back to rule-based matching",
		},
		[]string{"reason"},
	)
	cand := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matching_candidates",
			Help:    "Number of eligible resources considered per matching run",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)
	top := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "matching_top_score",
			Help:    "Score of the best match per run",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		},
		[]string{"source"},
	)
	return runs, fb, cand, top
}

func init() {
	matchRuns, aiFallbacks, matchCandidates, topMatchScore = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers matching metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(matchRuns, aiFallbacks, matchCandidates, topMatchScore)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	matchRuns, aiFallbacks, matchCandidates, topMatchScore = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
