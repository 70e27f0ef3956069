package metrics

import coremetrics "github.com/itzzomkar/navyatra-engine/core/metrics"

// MultiSink fanouts records to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordJobOutcome forwards the record to all sinks, returning the first error encountered.
func (m *MultiSink) RecordJobOutcome(rec coremetrics.JobRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordJobOutcome(rec); err != nil {
			return err
		}
	}
	return nil
}

// RecordSnapshot forwards snapshot records when supported by the sink.
func (m *MultiSink) RecordSnapshot(rec coremetrics.SnapshotRecord) error {
	for _, s := range m.Sinks {
		if sr, ok := s.(coremetrics.SnapshotRecorder); ok {
			if err := sr.RecordSnapshot(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordCycle forwards cycle records when supported by the sink.
func (m *MultiSink) RecordCycle(rec coremetrics.CycleRecord) error {
	for _, s := range m.Sinks {
		if cr, ok := s.(coremetrics.CycleRecorder); ok {
			if err := cr.RecordCycle(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordSelection forwards selection records when supported by the sink.
func (m *MultiSink) RecordSelection(rec coremetrics.SelectionRecord) error {
	for _, s := range m.Sinks {
		if sr, ok := s.(coremetrics.SelectionRecorder); ok {
			if err := sr.RecordSelection(rec); err != nil {
				return err
			}
		}
	}
	return nil
}
