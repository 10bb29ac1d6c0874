package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/strivio/contesthub-backend/internal/model"
)

// ResultAggregator recomputes a contest's ranked ResultSet. Every recompute
// is a full rescan: rank is a total order over the whole population, so any
// single change can shift every rank and percentile.
type ResultAggregator struct {
	results ResultStore
	log     zerolog.Logger

	// One mutex per contest serializes recomputes so two concurrent
	// finalizes cannot interleave partial rescans.
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewResultAggregator creates a ResultAggregator.
func NewResultAggregator(results ResultStore, log zerolog.Logger) *ResultAggregator {
	return &ResultAggregator{
		results: results,
		log:     log.With().Str("component", "result_aggregator").Logger(),
		locks:   make(map[uuid.UUID]*sync.Mutex),
	}
}

func (a *ResultAggregator) contestLock(contestID uuid.UUID) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.locks[contestID]
	if !ok {
		l = &sync.Mutex{}
		a.locks[contestID] = l
	}
	return l
}

// Recompute rescans all results for the contest, re-ranks them and rewrites
// the stored rows and aggregate stats wholesale.
//
// Sort key: total marks descending; tie-break: time taken ascending (the
// faster participant ranks higher on equal score); final tie-break:
// participant ID ascending, purely for determinism. Rank is the 1-based
// position after the sort. Percentile = round(100 * (N - rank) / N).
func (a *ResultAggregator) Recompute(ctx context.Context, contestID uuid.UUID) (*model.ResultSet, error) {
	lock := a.contestLock(contestID)
	lock.Lock()
	defer lock.Unlock()

	return a.recomputeLocked(ctx, contestID)
}

// UpsertAndRecompute stores one freshly scored result and reranks the
// contest without releasing the per-contest lock in between. The rerank
// rewrites the ranked rows wholesale from a fresh scan, so a result written
// while another rerank is mid-flight would be erased by that rerank's
// rewrite. Holding the lock across both steps closes the window.
func (a *ResultAggregator) UpsertAndRecompute(ctx context.Context, result *model.ParticipantResult) (*model.ResultSet, error) {
	lock := a.contestLock(result.ContestID)
	lock.Lock()
	defer lock.Unlock()

	if err := a.results.UpsertResult(ctx, result); err != nil {
		return nil, fmt.Errorf("upsert result: %w", err)
	}
	return a.recomputeLocked(ctx, result.ContestID)
}

// ApplyCodingMarks folds a judge verdict into a finalized result and reranks
// under the same lock. The marks update error passes through unwrapped so
// callers can branch on model.ErrNotFound when no result row exists yet.
func (a *ResultAggregator) ApplyCodingMarks(ctx context.Context, contestID uuid.UUID, participantID int, marks float64) (*model.ResultSet, error) {
	lock := a.contestLock(contestID)
	lock.Lock()
	defer lock.Unlock()

	if err := a.results.AddCodingMarks(ctx, contestID, participantID, marks); err != nil {
		return nil, err
	}

	set, err := a.recomputeLocked(ctx, contestID)
	if err != nil {
		// The marks are already committed and a retry would apply them
		// twice. The stored ranks stay stale until the next recompute.
		a.log.Error().Err(err).
			Str("contest_id", contestID.String()).
			Msg("Rerank after verdict failed")
		return nil, nil
	}
	return set, nil
}

func (a *ResultAggregator) recomputeLocked(ctx context.Context, contestID uuid.UUID) (*model.ResultSet, error) {
	results, err := a.results.ListResults(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].TotalMarks != results[j].TotalMarks {
			return results[i].TotalMarks > results[j].TotalMarks
		}
		if results[i].TimeTakenSeconds != results[j].TimeTakenSeconds {
			return results[i].TimeTakenSeconds < results[j].TimeTakenSeconds
		}
		return results[i].ParticipantID < results[j].ParticipantID
	})

	n := len(results)
	var stats model.AggregateStats
	stats.Count = n

	var sum float64
	for i := range results {
		results[i].Rank = i + 1
		results[i].Percentile = math.Round(100 * float64(n-results[i].Rank) / float64(n))

		total := results[i].TotalMarks
		sum += total
		if i == 0 || total > stats.Max {
			stats.Max = total
		}
		if i == 0 || total < stats.Min {
			stats.Min = total
		}
	}
	if n > 0 {
		stats.Mean = sum / float64(n)
	}

	now := time.Now()
	if err := a.results.ReplaceResults(ctx, contestID, results, stats, now); err != nil {
		return nil, fmt.Errorf("replace results: %w", err)
	}

	a.log.Debug().
		Str("contest_id", contestID.String()).
		Int("population", n).
		Msg("ResultSet recomputed")

	return &model.ResultSet{
		ContestID:    contestID,
		Results:      results,
		Stats:        stats,
		RecomputedAt: now,
	}, nil
}
