package broadcast

import (
	"context"
	"log/slog"

	"cinematch/internal/broadcast/metrics"
	"cinematch/internal/channel"

	id "cinematch/pkg/domain"
)

// Dispatcher fans events out to a group's live subscribers. Delivery is
// best-effort: a closed or slow subscriber is skipped and logged, and never
// delays the others. Durable delivery belongs to the event stream, not here.
type Dispatcher struct {
	registry *channel.Registry
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewDispatcher(registry *channel.Registry, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{registry: registry, logger: logger, metrics: m}
}

// PublishMatch sends the match event to everyone subscribed to the group and
// returns how many subscribers accepted it. The subscriber set is snapshotted
// first so delivery happens without holding registry locks.
func (d *Dispatcher) PublishMatch(ctx context.Context, group id.GroupID, event MatchFound) int {
	return d.publish(ctx, group, event)
}

func (d *Dispatcher) publish(ctx context.Context, group id.GroupID, event any) int {
	subs := d.registry.Snapshot(group)
	delivered := 0
	for _, sub := range subs {
		if err := sub.Deliver(event); err != nil {
			d.metrics.DeliveryFailures.Inc()
			d.logger.WarnContext(ctx, "event delivery skipped",
				"group", group,
				"connection", sub.ID(),
				"member", sub.Member(),
				"error", err,
			)
			continue
		}
		d.metrics.EventsDelivered.Inc()
		delivered++
	}
	return delivered
}
