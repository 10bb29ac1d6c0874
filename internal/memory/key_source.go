package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/strivio/contesthub-backend/internal/model"
)

// KeySource is an in-memory service.AnswerKeySource.
type KeySource struct {
	mu   sync.Mutex
	keys map[uuid.UUID]*model.AnswerKey
}

// NewKeySource creates an empty KeySource.
func NewKeySource() *KeySource {
	return &KeySource{keys: make(map[uuid.UUID]*model.AnswerKey)}
}

// Put registers a contest's answer key. Test seeding helper.
func (s *KeySource) Put(key *model.AnswerKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key.ContestID] = key
}

// Delete removes a contest's answer key. Test fault-injection helper.
func (s *KeySource) Delete(contestID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, contestID)
}

func (s *KeySource) AnswerKey(_ context.Context, contestID uuid.UUID) (*model.AnswerKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.keys[contestID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return key, nil
}
