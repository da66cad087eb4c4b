package match

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"cinematch/internal/broadcast"
	"cinematch/internal/match/metrics"
	"cinematch/internal/metadata"

	id "cinematch/pkg/domain"
)

// Broadcaster fans a match event out to the group's live subscribers and
// reports how many received it.
type Broadcaster interface {
	PublishMatch(ctx context.Context, group id.GroupID, event broadcast.MatchFound) int
}

// Service claims matches and announces them. Claiming is atomic in the
// registry; everything after a successful claim (enrichment, broadcast,
// stream publish) is best-effort and never fails the vote that triggered it.
type Service struct {
	registry  Registry
	describer metadata.Describer
	notifier  Broadcaster
	stream    *StreamPublisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	now       func() time.Time
}

func NewService(
	registry Registry,
	describer metadata.Describer,
	notifier Broadcaster,
	stream *StreamPublisher,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		registry:  registry,
		describer: describer,
		notifier:  notifier,
		stream:    stream,
		logger:    logger,
		metrics:   m,
		tracer:    otel.Tracer("cinematch/match"),
		now:       time.Now,
	}
}

// Detect claims the (group, item) match on behalf of the member whose vote
// completed consensus. Exactly one concurrent caller wins the claim and owns
// the side effects; losers get Outcome.Created=false and do nothing further.
func (s *Service) Detect(ctx context.Context, group id.GroupID, item id.ItemID, claimedBy id.MemberID, approvers []id.MemberID) (Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "match.claim",
		trace.WithAttributes(
			attribute.String("group.id", group.String()),
			attribute.Int64("item.id", int64(item)),
		),
	)
	defer span.End()

	candidate := Match{
		ID:        id.NewMatchID(),
		GroupID:   group,
		ItemID:    item,
		ClaimedBy: claimedBy,
		CreatedAt: s.now().UTC(),
	}

	created, result, err := s.registry.TryClaim(ctx, candidate)
	if err != nil {
		return Outcome{}, fmt.Errorf("try claim match: %w", err)
	}
	span.SetAttributes(attribute.Bool("match.created", created))

	if !created {
		s.metrics.ClaimConflicts.Inc()
		s.logger.DebugContext(ctx, "match already claimed",
			"group", group, "item", item, "match_id", result.ID)
		return Outcome{Created: false, Match: result}, nil
	}
	s.metrics.MatchesCreated.Inc()

	enrichment := s.enrich(ctx, item)
	event := broadcast.MatchFound{
		Type:       broadcast.EventMatchFound,
		Group:      group.String(),
		Item:       int64(item),
		Approvers:  memberStrings(approvers),
		Enrichment: enrichment,
		DetectedAt: result.CreatedAt,
	}
	recipients := s.notifier.PublishMatch(ctx, group, event)
	s.stream.Publish(ctx, result)

	s.logger.InfoContext(ctx, "match created",
		"group", group,
		"item", item,
		"match_id", result.ID,
		"claimed_by", claimedBy,
		"recipients", recipients,
	)
	return Outcome{Created: true, Match: result, Enrichment: enrichment, Recipients: recipients}, nil
}

// enrich fetches metadata for the matched item, falling back to a minimal
// degraded payload so a metadata outage never suppresses the announcement.
func (s *Service) enrich(ctx context.Context, item id.ItemID) metadata.Enrichment {
	if s.describer == nil {
		return metadata.Fallback(item)
	}
	enrichment, err := s.describer.Describe(ctx, item)
	if err != nil {
		s.logger.WarnContext(ctx, "metadata enrichment failed, broadcasting degraded payload",
			"item", item, "error", err)
		return metadata.Fallback(item)
	}
	return enrichment
}

func memberStrings(members []id.MemberID) []string {
	out := make([]string, 0, len(members))
	for _, m := range members {
		out = append(out, m.String())
	}
	return out
}

// History lists the group's recorded matches, newest first.
func (s *Service) History(ctx context.Context, group id.GroupID) ([]Match, error) {
	matches, err := s.registry.ListByGroup(ctx, group)
	if err != nil {
		return nil, fmt.Errorf("list matches for %s: %w", group, err)
	}
	return matches, nil
}
