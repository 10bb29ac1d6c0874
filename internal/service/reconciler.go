package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/strivio/contesthub-backend/internal/config"
	"github.com/strivio/contesthub-backend/internal/model"
	"github.com/strivio/contesthub-backend/internal/scoring"
)

// SubmissionReconciler is the single entry point for finalizing a
// participant's exam. Manual submit, forced auto-submit and the scheduler
// sweep all funnel through Finalize; a conditional status update guarantees
// at-most-once scoring per (contest, participant).
type SubmissionReconciler struct {
	registrations RegistrationStore
	sessions      SessionStore
	keys          AnswerKeySource
	aggregator    *ResultAggregator
	engine        *scoring.Engine
	rdb           *redis.Client
	log           zerolog.Logger
	now           func() time.Time
}

// NewSubmissionReconciler creates a SubmissionReconciler. rdb may be nil in
// tests; it is only used for best-effort cache cleanup and monitor events.
func NewSubmissionReconciler(
	registrations RegistrationStore,
	sessions SessionStore,
	keys AnswerKeySource,
	aggregator *ResultAggregator,
	engine *scoring.Engine,
	rdb *redis.Client,
	log zerolog.Logger,
) *SubmissionReconciler {
	return &SubmissionReconciler{
		registrations: registrations,
		sessions:      sessions,
		keys:          keys,
		aggregator:    aggregator,
		engine:        engine,
		rdb:           rdb,
		log:           log.With().Str("component", "submission_reconciler").Logger(),
		now:           time.Now,
	}
}

// Finalize scores and records a participant's exam exactly once.
//
// The sole serialization point is a compare-and-swap of the registration
// status from STARTED to the trigger's terminal status. Whichever caller
// wins proceeds; every loser gets ErrAlreadySubmitted with no side effects.
// Losing the CAS is the expected outcome of a race, not a fault. Genuine
// store faults are returned wrapped and may be retried by the caller:
// re-running Finalize finds the status either still STARTED (and proceeds)
// or terminal (and returns ErrAlreadySubmitted).
func (r *SubmissionReconciler) Finalize(ctx context.Context, contestID uuid.UUID, participantID int, trigger model.FinalizeTrigger) (*model.ParticipantResult, error) {
	submittedAt := r.now()

	// Load the answer key before taking the claim. The key is contest-level
	// and immutable while the contest runs, and loading it first means a
	// cache or store fault here leaves the registration STARTED for a clean
	// retry instead of consuming the claim with nothing scored.
	key, err := r.keys.AnswerKey(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("load answer key: %w", err)
	}

	claimed, err := r.registrations.ClaimFinalize(ctx, contestID, participantID, trigger.TerminalStatus(), submittedAt)
	if err != nil {
		return nil, fmt.Errorf("claim finalize: %w", err)
	}
	if !claimed {
		// Distinguish "lost the race" from "never registered".
		if _, getErr := r.registrations.GetRegistration(ctx, contestID, participantID); getErr != nil {
			if errors.Is(getErr, model.ErrNotFound) {
				return nil, ErrNotRegistered
			}
			return nil, fmt.Errorf("get registration: %w", getErr)
		}
		return nil, ErrAlreadySubmitted
	}

	// The registration is terminal now, so the session is frozen: its owner
	// can no longer write and no other finalizer got past the CAS.
	session, err := r.sessions.GetSession(ctx, contestID, participantID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	breakdown := r.engine.Score(session, key)

	if err := r.sessions.MarkSubmitted(ctx, contestID, participantID,
		breakdown.MCQMarks, breakdown.CodingMarks, breakdown.Total, submittedAt); err != nil {
		return nil, fmt.Errorf("mark session submitted: %w", err)
	}

	result := &model.ParticipantResult{
		ContestID:         contestID,
		ParticipantID:     participantID,
		MCQMarks:          breakdown.MCQMarks,
		CodingMarks:       breakdown.CodingMarks,
		TotalMarks:        breakdown.Total,
		TimeTakenSeconds:  submittedAt.Sub(session.StartedAt).Seconds(),
		Correct:           breakdown.Correct,
		Wrong:             breakdown.Wrong,
		Unanswered:        breakdown.Unanswered,
		ProblemsAttempted: breakdown.ProblemsAttempted,
		FinalizedAt:       submittedAt,
	}

	// The upsert and the rerank share the aggregator's per-contest lock.
	// A concurrent finalize rewriting the ranked rows from its own scan
	// must not land between the two, or this result would be erased.
	set, err := r.aggregator.UpsertAndRecompute(ctx, result)
	if err != nil {
		return nil, fmt.Errorf("record result: %w", err)
	}
	if ranked := set.Entry(participantID); ranked != nil {
		result = ranked
	}

	r.cleanupCaches(ctx, contestID, participantID, trigger)

	r.log.Info().
		Str("contest_id", contestID.String()).
		Int("participant_id", participantID).
		Str("trigger", string(trigger)).
		Float64("total", result.TotalMarks).
		Int("rank", result.Rank).
		Msg("Submission finalized")

	return result, nil
}

// cleanupCaches drops the participant's hot-path Redis entries and emits a
// monitor event. Best effort only; a failure never fails the finalize.
func (r *SubmissionReconciler) cleanupCaches(ctx context.Context, contestID uuid.UUID, participantID int, trigger model.FinalizeTrigger) {
	if r.rdb == nil {
		return
	}

	pipe := r.rdb.Pipeline()
	pipe.Del(ctx, config.CacheKey.SessionAnswersKey(contestID.String(), participantID))
	pipe.Del(ctx, config.CacheKey.SessionStartKey(contestID.String(), participantID))

	event, _ := json.Marshal(map[string]interface{}{
		"type":           "finalized",
		"participant_id": participantID,
		"trigger":        trigger,
	})
	pipe.Publish(ctx, config.CacheKey.ContestMonitorChannel(contestID.String()), event)

	if _, err := pipe.Exec(ctx); err != nil {
		r.log.Warn().Err(err).
			Str("contest_id", contestID.String()).
			Int("participant_id", participantID).
			Msg("Post-finalize cache cleanup failed")
	}
}
