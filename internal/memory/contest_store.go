// Package memory provides mutex-guarded in-memory implementations of the
// service store interfaces. They back the engine's unit tests and keep the
// compare-and-swap operations truly atomic, matching the guarantees the
// PostgreSQL repositories give through conditional updates.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/strivio/contesthub-backend/internal/model"
)

// ContestStore is an in-memory service.ContestStore.
type ContestStore struct {
	mu       sync.Mutex
	contests map[uuid.UUID]*model.Contest
}

// NewContestStore creates an empty ContestStore.
func NewContestStore() *ContestStore {
	return &ContestStore{contests: make(map[uuid.UUID]*model.Contest)}
}

// Put inserts or replaces a contest. Test seeding helper.
func (s *ContestStore) Put(contest *model.Contest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *contest
	s.contests[contest.ID] = &cp
}

func (s *ContestStore) GetContest(_ context.Context, id uuid.UUID) (*model.Contest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	contest, ok := s.contests[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *contest
	return &cp, nil
}

func (s *ContestStore) ActivateDue(_ context.Context, now time.Time) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var activated []uuid.UUID
	for _, contest := range s.contests {
		if contest.Phase == model.PhaseUpcoming && contest.Published && !contest.StartTime.After(now) {
			contest.Phase = model.PhaseRunning
			activated = append(activated, contest.ID)
		}
	}
	return activated, nil
}

func (s *ContestStore) ListExpiredRunning(_ context.Context, now time.Time) ([]model.Contest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []model.Contest
	for _, contest := range s.contests {
		if contest.Phase == model.PhaseRunning && !contest.EndTime().After(now) {
			expired = append(expired, *contest)
		}
	}
	return expired, nil
}

func (s *ContestStore) CompleteContest(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	contest, ok := s.contests[id]
	if !ok {
		return false, model.ErrNotFound
	}
	if contest.Phase != model.PhaseRunning {
		return false, nil
	}
	contest.Phase = model.PhaseCompleted
	return true, nil
}
