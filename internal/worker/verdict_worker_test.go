package worker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/strivio/contesthub-backend/internal/config"
	"github.com/strivio/contesthub-backend/internal/memory"
	"github.com/strivio/contesthub-backend/internal/model"
	"github.com/strivio/contesthub-backend/internal/service"
)

func newVerdictTestWorker(t *testing.T) (*VerdictWorker, *memory.ResultStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	results := memory.NewResultStore()
	log := zerolog.Nop()
	aggregator := service.NewResultAggregator(results, log)
	return NewVerdictWorker(aggregator, rdb, log), results, mr
}

func TestVerdictApplyAddsCodingMarksAndReranks(t *testing.T) {
	w, results, _ := newVerdictTestWorker(t)
	ctx := context.Background()
	contestID := uuid.New()

	for pid, total := range map[int]float64{1: 5, 2: 8} {
		err := results.UpsertResult(ctx, &model.ParticipantResult{
			ContestID:     contestID,
			ParticipantID: pid,
			MCQMarks:      total,
			TotalMarks:    total,
			FinalizedAt:   time.Now(),
		})
		if err != nil {
			t.Fatalf("seed result: %v", err)
		}
	}
	if _, err := w.aggregator.Recompute(ctx, contestID); err != nil {
		t.Fatalf("seed recompute: %v", err)
	}

	// Participant 1's coding verdict overtakes participant 2's total.
	w.apply(ctx, &verdictPayload{
		ContestID:     contestID.String(),
		ParticipantID: 1,
		ProblemID:     uuid.New().String(),
		Marks:         10,
	})

	set, err := results.GetResultSet(ctx, contestID)
	if err != nil {
		t.Fatalf("get result set: %v", err)
	}
	row := set.Entry(1)
	if row.CodingMarks != 10 || row.TotalMarks != 15 {
		t.Fatalf("coding/total = %v/%v, want 10/15", row.CodingMarks, row.TotalMarks)
	}
	if row.Rank != 1 || set.Entry(2).Rank != 2 {
		t.Fatalf("ranks = %d/%d, want 1/2", row.Rank, set.Entry(2).Rank)
	}
}

func TestVerdictBeforeFinalizeIsRequeued(t *testing.T) {
	w, _, mr := newVerdictTestWorker(t)
	ctx := context.Background()

	w.apply(ctx, &verdictPayload{
		ContestID:     uuid.New().String(),
		ParticipantID: 1,
		ProblemID:     uuid.New().String(),
		Marks:         10,
	})

	queued, err := mr.List(config.WorkerKey.JudgeVerdictsQueue)
	if err != nil {
		t.Fatalf("read queue: %v", err)
	}
	if len(queued) != 1 {
		t.Fatalf("queue length = %d, want 1 requeued verdict", len(queued))
	}
}

func TestVerdictDroppedAfterMaxAttempts(t *testing.T) {
	w, _, mr := newVerdictTestWorker(t)
	ctx := context.Background()

	w.apply(ctx, &verdictPayload{
		ContestID:     uuid.New().String(),
		ParticipantID: 1,
		ProblemID:     uuid.New().String(),
		Marks:         10,
		Attempts:      maxVerdictAttempts,
	})

	queued, _ := mr.List(config.WorkerKey.JudgeVerdictsQueue)
	if len(queued) != 0 {
		t.Fatalf("queue length = %d, want dropped verdict", len(queued))
	}
}

func TestVerdictInvalidContestIDDropped(t *testing.T) {
	w, _, mr := newVerdictTestWorker(t)

	w.apply(context.Background(), &verdictPayload{
		ContestID:     "not-a-uuid",
		ParticipantID: 1,
		Marks:         10,
	})

	queued, _ := mr.List(config.WorkerKey.JudgeVerdictsQueue)
	if len(queued) != 0 {
		t.Fatalf("queue length = %d, want invalid verdict dropped", len(queued))
	}
}
