package match

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"cinematch/internal/platform/kafka"
)

// StreamPublisher emits a durable record for every newly created match so
// out-of-process consumers (push notifications, analytics) see matches even
// when nobody is connected. Publish failures are logged and swallowed: the
// vote that produced the match already succeeded.
type StreamPublisher struct {
	producer *kafka.Producer
	topic    string
	logger   *slog.Logger
}

func NewStreamPublisher(producer *kafka.Producer, topic string, logger *slog.Logger) *StreamPublisher {
	return &StreamPublisher{producer: producer, topic: topic, logger: logger}
}

type matchRecord struct {
	MatchID   string    `json:"matchId"`
	GroupID   string    `json:"groupId"`
	ItemID    int64     `json:"itemId"`
	ClaimedBy string    `json:"claimedBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// Publish produces one record keyed by group so a group's matches stay
// ordered within a partition.
func (p *StreamPublisher) Publish(ctx context.Context, m Match) {
	record := matchRecord{
		MatchID:   m.ID.String(),
		GroupID:   m.GroupID.String(),
		ItemID:    int64(m.ItemID),
		ClaimedBy: m.ClaimedBy.String(),
		CreatedAt: m.CreatedAt,
	}
	value, err := json.Marshal(record)
	if err != nil {
		p.logger.ErrorContext(ctx, "encode match record", "match_id", m.ID, "error", err)
		return
	}
	key := []byte(m.GroupID.String())
	if err := p.producer.Publish(ctx, p.topic, key, value); err != nil {
		p.logger.WarnContext(ctx, "match stream publish failed", "match_id", m.ID, "group", m.GroupID, "error", err)
	}
}
