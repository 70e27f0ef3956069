package metrics

import (
	"context"

	"github.com/itzzomkar/navyatra-engine/core/events"
	coremetrics "github.com/itzzomkar/navyatra-engine/core/metrics"
	"github.com/itzzomkar/navyatra-engine/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for
// events that are not recorded at their source. It stops when the context is
// canceled.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) {
	if bus == nil || sink == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				switch e := ev.(type) {
				case events.SelectionEvent:
					if r, ok := sink.(coremetrics.SelectionRecorder); ok {
						_ = r.RecordSelection(coremetrics.SelectionRecord{
							Strategy:   e.Strategy,
							Source:     e.Source,
							Confidence: e.Confidence,
							Time:       e.OccurredAt,
						})
					}
				}
			}
		}
	}()
}
