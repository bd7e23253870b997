package metrics

// MultiSink fans out events to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordTriage forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordTriage(ev TriageEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordTriage(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordAllocation forwards allocation events.
func (m *MultiSink) RecordAllocation(ev AllocationEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(AllocationRecorder); ok {
			if err := rec.RecordAllocation(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordOverride forwards override events.
func (m *MultiSink) RecordOverride(ev OverrideEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(OverrideRecorder); ok {
			if err := rec.RecordOverride(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordStatus forwards lifecycle transitions.
func (m *MultiSink) RecordStatus(ev StatusEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(StatusRecorder); ok {
			if err := rec.RecordStatus(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordMatchingPath forwards matching path decisions.
func (m *MultiSink) RecordMatchingPath(ev MatchingPathEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(MatchingPathRecorder); ok {
			if err := rec.RecordMatchingPath(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordResourceLevel forwards availability snapshots.
func (m *MultiSink) RecordResourceLevel(ev ResourceLevelEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ResourceLevelRecorder); ok {
			if err := rec.RecordResourceLevel(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordNotice forwards dispatch notice deliveries.
func (m *MultiSink) RecordNotice(ev NoticeEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(NoticeRecorder); ok {
			if err := rec.RecordNotice(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
