package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/strivio/contesthub-backend/internal/model"
)

type enrollKey struct {
	contest     uuid.UUID
	participant int
}

// RegistrationStore is an in-memory service.RegistrationStore. ClaimFinalize
// performs its compare-and-swap under the store mutex, so concurrent callers
// observe the same winner-takes-all behavior as the SQL conditional update.
type RegistrationStore struct {
	mu   sync.Mutex
	rows map[enrollKey]*model.Registration
}

// NewRegistrationStore creates an empty RegistrationStore.
func NewRegistrationStore() *RegistrationStore {
	return &RegistrationStore{rows: make(map[enrollKey]*model.Registration)}
}

func (s *RegistrationStore) CreateRegistration(_ context.Context, reg *model.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := enrollKey{reg.ContestID, reg.ParticipantID}
	if _, ok := s.rows[key]; ok {
		return model.ErrConflict
	}
	cp := *reg
	s.rows[key] = &cp
	return nil
}

func (s *RegistrationStore) GetRegistration(_ context.Context, contestID uuid.UUID, participantID int) (*model.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.rows[enrollKey{contestID, participantID}]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *reg
	return &cp, nil
}

func (s *RegistrationStore) MarkStarted(_ context.Context, contestID uuid.UUID, participantID int, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.rows[enrollKey{contestID, participantID}]
	if !ok || reg.Status != model.RegistrationRegistered {
		// Conditional update: a missing row and a wrong status both read
		// as zero rows affected, never as an error.
		return false, nil
	}
	reg.Status = model.RegistrationStarted
	t := at
	reg.StartedAt = &t
	return true, nil
}

func (s *RegistrationStore) ClaimFinalize(_ context.Context, contestID uuid.UUID, participantID int, to model.RegistrationStatus, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.rows[enrollKey{contestID, participantID}]
	if !ok || reg.Status != model.RegistrationStarted {
		return false, nil
	}
	reg.Status = to
	t := at
	reg.SubmittedAt = &t
	return true, nil
}

func (s *RegistrationStore) ListStarted(_ context.Context, contestID uuid.UUID) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int
	for key, reg := range s.rows {
		if key.contest == contestID && reg.Status == model.RegistrationStarted {
			ids = append(ids, key.participant)
		}
	}
	sort.Ints(ids)
	return ids, nil
}
