package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/strivio/contesthub-backend/internal/config"
	"github.com/strivio/contesthub-backend/internal/model"
	"github.com/strivio/contesthub-backend/internal/service"
)

// A verdict arriving before the participant's result row exists gets pushed
// back; after this many attempts it is dropped.
const maxVerdictAttempts = 20

// VerdictWorker consumes judge verdicts for coding problems and applies
// them to finalized results. MCQ marks settle at finalize time; coding
// marks trickle in whenever the external judge finishes, so every applied
// verdict triggers a rank recompute.
type VerdictWorker struct {
	aggregator *service.ResultAggregator
	rdb        *redis.Client
	log        zerolog.Logger
}

func NewVerdictWorker(aggregator *service.ResultAggregator, rdb *redis.Client, log zerolog.Logger) *VerdictWorker {
	return &VerdictWorker{
		aggregator: aggregator,
		rdb:        rdb,
		log:        log.With().Str("component", "verdict_worker").Logger(),
	}
}

type verdictPayload struct {
	ContestID     string  `json:"contest_id"`
	ParticipantID int     `json:"participant_id"`
	ProblemID     string  `json:"problem_id"`
	Marks         float64 `json:"marks"`
	Attempts      int     `json:"attempts,omitempty"`
}

func (w *VerdictWorker) Start(ctx context.Context) {
	w.log.Info().Msg("VerdictWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("VerdictWorker stopped")
			return
		default:
		}

		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.JudgeVerdictsQueue).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		if len(result) < 2 {
			continue
		}

		var payload verdictPayload
		if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed JSON")
			continue
		}

		w.apply(ctx, &payload)
	}
}

func (w *VerdictWorker) apply(ctx context.Context, p *verdictPayload) {
	contestID, err := uuid.Parse(p.ContestID)
	if err != nil {
		w.log.Error().Str("contest_id", p.ContestID).Msg("Dropping verdict with invalid UUID")
		return
	}

	if _, err := w.aggregator.ApplyCodingMarks(ctx, contestID, p.ParticipantID, p.Marks); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			// The session has not been finalized yet. Push the verdict back
			// and let a later pass retry it.
			w.requeue(ctx, p)
			return
		}
		w.log.Error().Err(err).
			Str("contest_id", p.ContestID).
			Int("participant_id", p.ParticipantID).
			Msg("Failed to apply verdict, requeueing")
		w.requeue(ctx, p)
		return
	}

	w.log.Debug().
		Str("contest_id", p.ContestID).
		Int("participant_id", p.ParticipantID).
		Float64("marks", p.Marks).
		Msg("Verdict applied")
}

func (w *VerdictWorker) requeue(ctx context.Context, p *verdictPayload) {
	p.Attempts++
	if p.Attempts > maxVerdictAttempts {
		w.log.Error().
			Str("contest_id", p.ContestID).
			Int("participant_id", p.ParticipantID).
			Msg("Dropping verdict after too many attempts")
		return
	}
	data, _ := json.Marshal(p)
	if err := w.rdb.RPush(ctx, config.WorkerKey.JudgeVerdictsQueue, data).Err(); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue verdict. Data loss occurred.")
	}
}
