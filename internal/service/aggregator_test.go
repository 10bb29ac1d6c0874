package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/strivio/contesthub-backend/internal/memory"
	"github.com/strivio/contesthub-backend/internal/model"
)

func seedResult(t *testing.T, store *memory.ResultStore, contestID uuid.UUID, pid int, total, timeTaken float64) {
	t.Helper()
	err := store.UpsertResult(context.Background(), &model.ParticipantResult{
		ContestID:        contestID,
		ParticipantID:    pid,
		MCQMarks:         total,
		TotalMarks:       total,
		TimeTakenSeconds: timeTaken,
		FinalizedAt:      time.Now(),
	})
	if err != nil {
		t.Fatalf("seed result pid=%d: %v", pid, err)
	}
}

func TestRecomputeRanksAndPercentiles(t *testing.T) {
	store := memory.NewResultStore()
	aggregator := NewResultAggregator(store, zerolog.Nop())
	contestID := uuid.New()

	// Two participants tie on 10 marks; the faster one ranks higher.
	seedResult(t, store, contestID, 1, 10, 1800)
	seedResult(t, store, contestID, 2, 10, 1200)
	seedResult(t, store, contestID, 3, 7, 900)
	seedResult(t, store, contestID, 4, 3, 3000)

	set, err := aggregator.Recompute(context.Background(), contestID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if len(set.Results) != 4 {
		t.Fatalf("result rows = %d, want 4", len(set.Results))
	}

	wantOrder := []int{2, 1, 3, 4}
	wantPercentiles := []float64{75, 50, 25, 0}
	for i, row := range set.Results {
		if row.ParticipantID != wantOrder[i] {
			t.Fatalf("position %d: participant = %d, want %d", i, row.ParticipantID, wantOrder[i])
		}
		if row.Rank != i+1 {
			t.Fatalf("participant %d: rank = %d, want %d", row.ParticipantID, row.Rank, i+1)
		}
		if row.Percentile != wantPercentiles[i] {
			t.Fatalf("participant %d: percentile = %v, want %v", row.ParticipantID, row.Percentile, wantPercentiles[i])
		}
	}

	if set.Stats.Count != 4 {
		t.Fatalf("stats count = %d, want 4", set.Stats.Count)
	}
	if set.Stats.Mean != 7.5 {
		t.Fatalf("stats mean = %v, want 7.5", set.Stats.Mean)
	}
	if set.Stats.Max != 10 || set.Stats.Min != 3 {
		t.Fatalf("stats max/min = %v/%v, want 10/3", set.Stats.Max, set.Stats.Min)
	}

	// The stored set must match what Recompute returned.
	stored, err := store.GetResultSet(context.Background(), contestID)
	if err != nil {
		t.Fatalf("get result set: %v", err)
	}
	if stored.Results[0].ParticipantID != 2 || stored.Results[0].Rank != 1 {
		t.Fatalf("stored head = %+v, want participant 2 at rank 1", stored.Results[0])
	}
}

func TestRecomputeSingleParticipant(t *testing.T) {
	store := memory.NewResultStore()
	aggregator := NewResultAggregator(store, zerolog.Nop())
	contestID := uuid.New()

	seedResult(t, store, contestID, 7, 12, 600)

	set, err := aggregator.Recompute(context.Background(), contestID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	row := set.Entry(7)
	if row == nil {
		t.Fatal("participant 7 missing from set")
	}
	if row.Rank != 1 || row.Percentile != 0 {
		t.Fatalf("rank/percentile = %d/%v, want 1/0", row.Rank, row.Percentile)
	}
	if set.Stats.Mean != 12 || set.Stats.Max != 12 || set.Stats.Min != 12 {
		t.Fatalf("stats = %+v, want mean/max/min all 12", set.Stats)
	}
}

func TestRecomputeEmptyContest(t *testing.T) {
	store := memory.NewResultStore()
	aggregator := NewResultAggregator(store, zerolog.Nop())

	set, err := aggregator.Recompute(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if len(set.Results) != 0 || set.Stats.Count != 0 {
		t.Fatalf("empty contest produced %d rows, count %d", len(set.Results), set.Stats.Count)
	}
}

// Re-running Recompute after a late result arrives shifts every rank below
// the newcomer.
func TestRecomputeIsIdempotentAndRefreshes(t *testing.T) {
	store := memory.NewResultStore()
	aggregator := NewResultAggregator(store, zerolog.Nop())
	contestID := uuid.New()

	seedResult(t, store, contestID, 1, 5, 100)
	if _, err := aggregator.Recompute(context.Background(), contestID); err != nil {
		t.Fatalf("first recompute: %v", err)
	}

	seedResult(t, store, contestID, 2, 9, 100)
	set, err := aggregator.Recompute(context.Background(), contestID)
	if err != nil {
		t.Fatalf("second recompute: %v", err)
	}
	if set.Entry(2).Rank != 1 || set.Entry(1).Rank != 2 {
		t.Fatalf("ranks = %d/%d, want 1/2", set.Entry(2).Rank, set.Entry(1).Rank)
	}
	if set.Entry(1).Percentile != 0 {
		t.Fatalf("demoted percentile = %v, want 0", set.Entry(1).Percentile)
	}
}
