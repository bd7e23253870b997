package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/crisistriage/core/metrics"
)

// PromSink records triage and dispatch events in Prometheus metrics.
type PromSink struct {
	triaged     *prometheus.CounterVec
	allocations *prometheus.CounterVec
	overrides   *prometheus.CounterVec
	transitions *prometheus.CounterVec
	strategy    *prometheus.CounterVec
	levels      *prometheus.GaugeVec
	notices     *prometheus.CounterVec
	latency     prometheus.Histogram
}

var _ interface {
	coremetrics.MetricsSink
	coremetrics.AllocationRecorder
	coremetrics.OverrideRecorder
	coremetrics.StatusRecorder
	coremetrics.MatchingPathRecorder
	coremetrics.ResourceLevelRecorder
	coremetrics.NoticeRecorder
} = (*PromSink)(nil)

// NewPromSink registers triage metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (*PromSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.triaged, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "triage_events_total",
		Help: "Processed emergency messages by urgency, source and confirmation need",
	}, []string{"urgency", "source", "requires_confirmation"})); err != nil {
		return nil, err
	}
	if s.allocations, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "allocation_events_total",
		Help: "Capacity reservation attempts by resource and result",
	}, []string{"resource_id", "result"})); err != nil {
		return nil, err
	}
	if s.overrides, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "override_events_total",
		Help: "Dispatcher overrides of the top recommendation by dispatcher",
	}, []string{"dispatcher_id"})); err != nil {
		return nil, err
	}
	if s.transitions, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "request_transitions_total",
		Help: "Request lifecycle transitions",
	}, []string{"from", "to"})); err != nil {
		return nil, err
	}
	if s.strategy, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "matching_strategy_events_total",
		Help: "Matching strategy decisions by action",
	}, []string{"action"})); err != nil {
		return nil, err
	}
	if s.levels, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "resource_availability",
		Help: "Remaining availability per resource",
	}, []string{"resource_id"})); err != nil {
		return nil, err
	}
	if s.notices, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_notices_total",
		Help: "Dispatch notices sent to resource units by acknowledgment",
	}, []string{"acknowledged"})); err != nil {
		return nil, err
	}
	if s.latency, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dispatch_notice_latency_seconds",
		Help:    "Time between sending a dispatch notice and its acknowledgment",
		Buckets: prometheus.DefBuckets,
	})); err != nil {
		return nil, err
	}
	return s, nil
}

// register returns the already registered collector when c was registered before.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordTriage increments the triage counter.
func (s *PromSink) RecordTriage(ev coremetrics.TriageEvent) error {
	s.triaged.WithLabelValues(string(ev.Urgency), ev.Source, strconv.FormatBool(ev.RequiresConfirm)).Inc()
	return nil
}

// RecordAllocation counts a capacity reservation attempt.
func (s *PromSink) RecordAllocation(ev coremetrics.AllocationEvent) error {
	s.allocations.WithLabelValues(ev.ResourceID, ev.Result).Inc()
	return nil
}

// RecordOverride counts a dispatcher override.
func (s *PromSink) RecordOverride(ev coremetrics.OverrideEvent) error {
	s.overrides.WithLabelValues(ev.DispatcherID).Inc()
	return nil
}

// RecordStatus counts a lifecycle transition.
func (s *PromSink) RecordStatus(ev coremetrics.StatusEvent) error {
	from := string(ev.From)
	if from == "" {
		from = "new"
	}
	s.transitions.WithLabelValues(from, string(ev.To)).Inc()
	return nil
}

// RecordMatchingPath counts a matching strategy decision.
func (s *PromSink) RecordMatchingPath(ev coremetrics.MatchingPathEvent) error {
	s.strategy.WithLabelValues(ev.Action).Inc()
	return nil
}

// RecordResourceLevel sets the availability gauge of the resource.
func (s *PromSink) RecordResourceLevel(ev coremetrics.ResourceLevelEvent) error {
	s.levels.WithLabelValues(ev.ResourceID).Set(float64(ev.Availability))
	return nil
}

// RecordNotice counts a dispatch notice and observes its latency when acknowledged.
func (s *PromSink) RecordNotice(ev coremetrics.NoticeEvent) error {
	s.notices.WithLabelValues(strconv.FormatBool(ev.Acknowledged)).Inc()
	if ev.Acknowledged {
		s.latency.Observe(ev.Latency.Seconds())
	}
	return nil
}
