package metrics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/itzzomkar/navyatra-engine/core/events"
	coremetrics "github.com/itzzomkar/navyatra-engine/core/metrics"
	"github.com/itzzomkar/navyatra-engine/internal/eventbus"
)

type selectionSink struct {
	mu   sync.Mutex
	recs []coremetrics.SelectionRecord
}

func (s *selectionSink) RecordJobOutcome(coremetrics.JobRecord) error { return nil }

func (s *selectionSink) RecordSelection(rec coremetrics.SelectionRecord) error {
	s.mu.Lock()
	s.recs = append(s.recs, rec)
	s.mu.Unlock()
	return nil
}

func TestEventCollectorRecordsSelections(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()
	sink := &selectionSink{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartEventCollector(ctx, bus, sink)

	bus.Publish(events.SelectionEvent{Strategy: "safety", Source: "rule", Confidence: 1, OccurredAt: time.Now()})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		sink.mu.Lock()
		n := len(sink.recs)
		sink.mu.Unlock()
		if n == 1 {
			if sink.recs[0].Strategy != "safety" {
				t.Fatalf("unexpected record: %+v", sink.recs[0])
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("selection never recorded")
}
