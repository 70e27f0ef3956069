package apply

import (
	"context"

	"github.com/itzzomkar/navyatra-engine/core/events"
	"github.com/itzzomkar/navyatra-engine/core/logger"
	"github.com/itzzomkar/navyatra-engine/internal/eventbus"
)

// EventSink receives job lifecycle events for external consumers
// (dashboards, notification systems). Implementations must tolerate
// being called from the notifier goroutine.
type EventSink interface {
	Publish(ev events.JobEvent) error
}

// Notifier consumes job events from the bus, applies completed results
// and forwards every lifecycle event to the sinks. Sink failures are
// logged and isolated: they never reach job execution, which publishes
// to the bus without blocking.
type Notifier struct {
	bus     eventbus.EventBus
	applier *Applier
	sinks   []EventSink
	log     logger.Logger
}

// NewNotifier creates a notifier. applier may be nil when no downstream
// store is configured.
func NewNotifier(bus eventbus.EventBus, applier *Applier, log logger.Logger, sinks ...EventSink) *Notifier {
	return &Notifier{bus: bus, applier: applier, sinks: sinks, log: log}
}

// Run processes bus events until ctx is done.
func (n *Notifier) Run(ctx context.Context) {
	sub := n.bus.Subscribe()
	defer n.bus.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			je, isJob := ev.(events.JobEvent)
			if !isJob {
				continue
			}
			n.handle(ctx, je)
		}
	}
}

func (n *Notifier) handle(ctx context.Context, je events.JobEvent) {
	if je.Phase == events.JobCompleted && n.applier != nil && je.Result != nil {
		if err := n.applier.Apply(ctx, je.JobID, je.Result); err != nil {
			n.log.Errorf("apply result: %v", err)
		}
	}
	for _, sink := range n.sinks {
		func(s EventSink) {
			defer func() {
				if r := recover(); r != nil {
					n.log.Errorf("event sink panic: %v", r)
				}
			}()
			if err := s.Publish(je); err != nil {
				n.log.Warnf("event sink publish: %v", err)
			}
		}(sink)
	}
}
