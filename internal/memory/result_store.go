package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/strivio/contesthub-backend/internal/model"
)

// ResultStore is an in-memory service.ResultStore.
type ResultStore struct {
	mu        sync.Mutex
	rows      map[enrollKey]*model.ParticipantResult
	published map[uuid.UUID]bool
	stats     map[uuid.UUID]model.AggregateStats
	ranked    map[uuid.UUID][]model.ParticipantResult
	computed  map[uuid.UUID]time.Time
}

// NewResultStore creates an empty ResultStore.
func NewResultStore() *ResultStore {
	return &ResultStore{
		rows:      make(map[enrollKey]*model.ParticipantResult),
		published: make(map[uuid.UUID]bool),
		stats:     make(map[uuid.UUID]model.AggregateStats),
		ranked:    make(map[uuid.UUID][]model.ParticipantResult),
		computed:  make(map[uuid.UUID]time.Time),
	}
}

func (s *ResultStore) UpsertResult(_ context.Context, result *model.ParticipantResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *result
	s.rows[enrollKey{result.ContestID, result.ParticipantID}] = &cp
	return nil
}

func (s *ResultStore) ListResults(_ context.Context, contestID uuid.UUID) ([]model.ParticipantResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ParticipantResult
	for key, row := range s.rows {
		if key.contest == contestID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (s *ResultStore) ReplaceResults(_ context.Context, contestID uuid.UUID, results []model.ParticipantResult, stats model.AggregateStats, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.rows {
		if key.contest == contestID {
			delete(s.rows, key)
		}
	}
	ranked := make([]model.ParticipantResult, len(results))
	copy(ranked, results)
	for i := range ranked {
		cp := ranked[i]
		s.rows[enrollKey{contestID, cp.ParticipantID}] = &cp
	}
	s.ranked[contestID] = ranked
	s.stats[contestID] = stats
	s.computed[contestID] = at
	return nil
}

func (s *ResultStore) GetResultSet(_ context.Context, contestID uuid.UUID) (*model.ResultSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ranked, ok := s.ranked[contestID]
	if !ok {
		return nil, model.ErrNotFound
	}
	out := make([]model.ParticipantResult, len(ranked))
	copy(out, ranked)
	return &model.ResultSet{
		ContestID:    contestID,
		Results:      out,
		Stats:        s.stats[contestID],
		Published:    s.published[contestID],
		RecomputedAt: s.computed[contestID],
	}, nil
}

func (s *ResultStore) SetResultSetPublished(_ context.Context, contestID uuid.UUID, published bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published[contestID] = published
	return nil
}

func (s *ResultStore) AddCodingMarks(_ context.Context, contestID uuid.UUID, participantID int, marks float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[enrollKey{contestID, participantID}]
	if !ok {
		return model.ErrNotFound
	}
	row.CodingMarks += marks
	row.TotalMarks += marks
	return nil
}
