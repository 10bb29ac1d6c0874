package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/strivio/contesthub-backend/internal/model"
)

// SessionStore is an in-memory service.SessionStore.
type SessionStore struct {
	mu   sync.Mutex
	rows map[enrollKey]*model.LiveSession
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{rows: make(map[enrollKey]*model.LiveSession)}
}

// writable mirrors the SQL store's "AND is_submitted = false" guard: once a
// session is frozen its row no longer matches any write.
func (s *SessionStore) writable(contestID uuid.UUID, participantID int) (*model.LiveSession, error) {
	session, ok := s.rows[enrollKey{contestID, participantID}]
	if !ok || session.IsSubmitted {
		return nil, model.ErrNotFound
	}
	return session, nil
}

func (s *SessionStore) CreateSession(_ context.Context, session *model.LiveSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := enrollKey{session.ContestID, session.ParticipantID}
	if _, ok := s.rows[key]; ok {
		return model.ErrConflict
	}
	s.rows[key] = session.Clone()
	return nil
}

func (s *SessionStore) GetSession(_ context.Context, contestID uuid.UUID, participantID int) (*model.LiveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.rows[enrollKey{contestID, participantID}]
	if !ok {
		return nil, model.ErrNotFound
	}
	return session.Clone(), nil
}

func (s *SessionStore) SaveAnswer(_ context.Context, contestID uuid.UUID, participantID int, questionID uuid.UUID, slot model.AnswerSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, err := s.writable(contestID, participantID)
	if err != nil {
		return err
	}
	session.Answers[questionID] = slot
	return nil
}

func (s *SessionStore) SaveCode(_ context.Context, contestID uuid.UUID, participantID int, problemID uuid.UUID, slot model.CodeSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, err := s.writable(contestID, participantID)
	if err != nil {
		return err
	}
	session.Code[problemID] = slot
	return nil
}

func (s *SessionStore) UpdateNavigation(_ context.Context, contestID uuid.UUID, participantID int, question, section int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, err := s.writable(contestID, participantID)
	if err != nil {
		return err
	}
	session.CurrentQuestion = question
	session.CurrentSection = section
	return nil
}

func (s *SessionStore) IncrementCounter(_ context.Context, contestID uuid.UUID, participantID int, kind model.ProctorEventKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, err := s.writable(contestID, participantID)
	if err != nil {
		return err
	}
	switch kind {
	case model.ProctorTabSwitch:
		session.TabSwitches++
	case model.ProctorFocusLost:
		session.FocusLost++
	}
	return nil
}

func (s *SessionStore) MarkSubmitted(_ context.Context, contestID uuid.UUID, participantID int, mcq, coding, total float64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, err := s.writable(contestID, participantID)
	if err != nil {
		return err
	}
	session.IsSubmitted = true
	t := at
	session.SubmittedAt = &t
	m, c, tot := mcq, coding, total
	session.MCQMarks = &m
	session.CodingMarks = &c
	session.TotalMarks = &tot
	return nil
}
