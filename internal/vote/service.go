package vote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cinematch/internal/consensus"
	"cinematch/internal/match"
	"cinematch/internal/vote/metrics"

	id "cinematch/pkg/domain"
	dErrors "cinematch/pkg/domain-errors"
	"cinematch/pkg/platform/sentinel"
	"cinematch/pkg/requestcontext"
)

const (
	writeAttempts     = 3
	writeRetryBackoff = 50 * time.Millisecond
)

// MembershipChecker is the slice of membership the vote path needs.
type MembershipChecker interface {
	IsActiveMember(ctx context.Context, group id.GroupID, member id.MemberID) (bool, error)
}

// SubmitResult is the acknowledgement a voter gets back. Match is set only
// when this very submission created the match; a vote that arrives after the
// match exists is recorded as ordinary and Matched stays false.
type SubmitResult struct {
	Approvers []id.MemberID
	Matched   bool
	Match     *match.Outcome
}

// Service runs the vote pipeline: authorize, record, evaluate, and hand a
// completed consensus to the match detector.
type Service struct {
	store     Store
	members   MembershipChecker
	evaluator *consensus.Evaluator
	detector  *match.Service
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewService(
	store Store,
	members MembershipChecker,
	evaluator *consensus.Evaluator,
	detector *match.Service,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		store:     store,
		members:   members,
		evaluator: evaluator,
		detector:  detector,
		logger:    logger,
		metrics:   m,
	}
}

// Submit records the member's decision on the item and, when the decision is
// approve, evaluates consensus against the group's membership as of now.
// Re-submitting is idempotent: the ledger keeps one row per (group, item,
// member) and the newest decision wins.
func (s *Service) Submit(ctx context.Context, group id.GroupID, member id.MemberID, item id.ItemID, decision Decision) (SubmitResult, error) {
	isMember, err := s.members.IsActiveMember(ctx, group, member)
	if err != nil {
		return SubmitResult{}, dErrors.Wrap(dErrors.CodeInternal, "membership check", err)
	}
	if !isMember {
		return SubmitResult{}, dErrors.New(dErrors.CodeForbidden, "not an active member of this group")
	}

	v := Vote{
		GroupID:   group,
		ItemID:    item,
		MemberID:  member,
		Decision:  decision,
		DecidedAt: requestcontext.Now(ctx).UTC(),
	}
	approvers, err := s.recordWithRetry(ctx, v)
	if err != nil {
		if errors.Is(err, sentinel.ErrUnavailable) {
			return SubmitResult{}, dErrors.Wrap(dErrors.CodeUnavailable, "vote ledger unavailable", err)
		}
		return SubmitResult{}, dErrors.Wrap(dErrors.CodeInternal, "record vote", err)
	}
	s.metrics.VotesRecorded.WithLabelValues(string(decision)).Inc()

	result := SubmitResult{Approvers: approvers}
	if decision != DecisionApprove {
		return result, nil
	}

	reached, err := s.evaluator.IsConsensus(ctx, group, item, approvers)
	if err != nil {
		// The vote is already durable; surface the evaluation failure so the
		// client retries and the re-vote re-evaluates.
		return SubmitResult{}, dErrors.Wrap(dErrors.CodeUnavailable, "consensus evaluation failed", err)
	}
	if !reached {
		return result, nil
	}

	outcome, err := s.detector.Detect(ctx, group, item, member, approvers)
	if err != nil {
		return SubmitResult{}, dErrors.Wrap(dErrors.CodeUnavailable, "match claim failed", err)
	}
	if outcome.Created {
		result.Matched = true
		result.Match = &outcome
	}
	return result, nil
}

// recordWithRetry retries the ledger write a bounded number of times, and
// only on transient store failures. The write is an idempotent upsert, so a
// retry after an ambiguous failure is safe.
func (s *Service) recordWithRetry(ctx context.Context, v Vote) ([]id.MemberID, error) {
	backoff := writeRetryBackoff
	var lastErr error
	for attempt := 1; attempt <= writeAttempts; attempt++ {
		approvers, err := s.store.Record(ctx, v)
		if err == nil {
			return approvers, nil
		}
		lastErr = err
		if !errors.Is(err, sentinel.ErrUnavailable) {
			return nil, err
		}
		if attempt == writeAttempts {
			break
		}
		s.metrics.WriteRetries.Inc()
		s.logger.WarnContext(ctx, "vote write failed, retrying",
			"group", v.GroupID,
			"item", v.ItemID,
			"member", v.MemberID,
			"attempt", attempt,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("vote write aborted: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("vote write failed after %d attempts: %w", writeAttempts, lastErr)
}
