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
	"golang.org/x/crypto/bcrypt"
)

// SessionService handles the participant-facing session lifecycle: register,
// start, autosave writes and the live status view. All finalize paths go
// through the SubmissionReconciler.
type SessionService struct {
	contests      ContestStore
	registrations RegistrationStore
	sessions      SessionStore
	reconciler    *SubmissionReconciler
	rdb           *redis.Client
	log           zerolog.Logger
	now           func() time.Time
}

// NewSessionService creates a SessionService. rdb may be nil in tests.
func NewSessionService(
	contests ContestStore,
	registrations RegistrationStore,
	sessions SessionStore,
	reconciler *SubmissionReconciler,
	rdb *redis.Client,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		contests:      contests,
		registrations: registrations,
		sessions:      sessions,
		reconciler:    reconciler,
		rdb:           rdb,
		log:           log.With().Str("component", "session_service").Logger(),
		now:           time.Now,
	}
}

// Register enrolls a participant in a contest. Idempotent: a repeated
// register returns the existing registration so client retries are harmless.
func (s *SessionService) Register(ctx context.Context, contestID uuid.UUID, participantID int, accessCode string) (*model.Registration, error) {
	contest, err := s.contests.GetContest(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("get contest: %w", err)
	}

	if !contest.Published {
		return nil, ErrContestNotPublished
	}
	if contest.Phase == model.PhaseCompleted {
		return nil, ErrInvalidPhase
	}
	if contest.Private {
		if err := bcrypt.CompareHashAndPassword([]byte(contest.AccessCodeHash), []byte(accessCode)); err != nil {
			return nil, ErrInvalidAccessCode
		}
	}

	reg := &model.Registration{
		ID:            uuid.New(),
		ContestID:     contestID,
		ParticipantID: participantID,
		Status:        model.RegistrationRegistered,
		RegisteredAt:  s.now(),
	}

	if err := s.registrations.CreateRegistration(ctx, reg); err != nil {
		if errors.Is(err, model.ErrConflict) {
			return s.registrations.GetRegistration(ctx, contestID, participantID)
		}
		return nil, fmt.Errorf("create registration: %w", err)
	}

	return reg, nil
}

// Start creates the participant's LiveSession and moves the registration to
// STARTED. Allowed only while the contest phase is RUNNING. Idempotent: if a
// session already exists it is returned as-is, so a client retry after a
// dropped response does not error.
func (s *SessionService) Start(ctx context.Context, contestID uuid.UUID, participantID int) (*model.LiveSession, error) {
	contest, err := s.contests.GetContest(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("get contest: %w", err)
	}
	if contest.Phase != model.PhaseRunning {
		return nil, ErrInvalidPhase
	}

	reg, err := s.registrations.GetRegistration(ctx, contestID, participantID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, ErrNotRegistered
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	if reg.Status.Terminal() {
		return nil, ErrAlreadySubmitted
	}

	if existing, err := s.sessions.GetSession(ctx, contestID, participantID); err == nil {
		s.cacheStartTime(ctx, contestID, participantID, existing.StartedAt)
		return existing, nil
	} else if !errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("check existing session: %w", err)
	}

	session := &model.LiveSession{
		ID:            uuid.New(),
		ContestID:     contestID,
		ParticipantID: participantID,
		Answers:       make(map[uuid.UUID]model.AnswerSlot),
		Code:          make(map[uuid.UUID]model.CodeSlot),
		StartedAt:     s.now(),
	}

	if err := s.sessions.CreateSession(ctx, session); err != nil {
		if errors.Is(err, model.ErrConflict) {
			// Concurrent start from another device won the insert.
			return s.sessions.GetSession(ctx, contestID, participantID)
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	if _, err := s.registrations.MarkStarted(ctx, contestID, participantID, session.StartedAt); err != nil {
		return nil, fmt.Errorf("mark registration started: %w", err)
	}

	s.cacheStartTime(ctx, contestID, participantID, session.StartedAt)

	s.log.Info().
		Str("contest_id", contestID.String()).
		Int("participant_id", participantID).
		Msg("Session started")

	return session, nil
}

// SaveAnswer writes one MCQ answer slot. Only the owning participant can
// reach this path, so session writes need no cross-participant coordination.
func (s *SessionService) SaveAnswer(ctx context.Context, contestID uuid.UUID, participantID int, req *model.SaveAnswerRequest) error {
	if err := s.ensureWritable(ctx, contestID, participantID); err != nil {
		return err
	}

	slot := model.AnswerSlot{
		SelectedOptions: req.SelectedOptions,
		MarkedForReview: req.MarkedForReview,
		UpdatedAt:       s.now(),
	}
	if err := s.sessions.SaveAnswer(ctx, contestID, participantID, req.QuestionID, slot); err != nil {
		return fmt.Errorf("save answer: %w", err)
	}

	// Mirror into Redis so reconnecting clients restore state without a
	// store round trip. Best effort; the store row is the authority.
	if s.rdb != nil {
		raw, _ := json.Marshal(slot)
		key := config.CacheKey.SessionAnswersKey(contestID.String(), participantID)
		if err := s.rdb.HSet(ctx, key, req.QuestionID.String(), raw).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Answer mirror write failed")
		}
	}

	return nil
}

// SaveCode writes one coding problem buffer.
func (s *SessionService) SaveCode(ctx context.Context, contestID uuid.UUID, participantID int, req *model.SaveCodeRequest) error {
	if err := s.ensureWritable(ctx, contestID, participantID); err != nil {
		return err
	}

	slot := model.CodeSlot{
		Code:      req.Code,
		Language:  req.Language,
		UpdatedAt: s.now(),
	}
	if err := s.sessions.SaveCode(ctx, contestID, participantID, req.ProblemID, slot); err != nil {
		return fmt.Errorf("save code: %w", err)
	}
	return nil
}

// UpdateNavigation records the participant's current question/section.
func (s *SessionService) UpdateNavigation(ctx context.Context, contestID uuid.UUID, participantID int, req *model.NavigationRequest) error {
	if err := s.ensureWritable(ctx, contestID, participantID); err != nil {
		return err
	}
	return s.sessions.UpdateNavigation(ctx, contestID, participantID, req.CurrentQuestion, req.CurrentSection)
}

// RecordProctorEvent bumps the matching session counter and enqueues the raw
// event for the batch proctor worker.
func (s *SessionService) RecordProctorEvent(ctx context.Context, contestID uuid.UUID, participantID int, kind model.ProctorEventKind) error {
	if err := s.ensureWritable(ctx, contestID, participantID); err != nil {
		return err
	}

	if err := s.sessions.IncrementCounter(ctx, contestID, participantID, kind); err != nil {
		return fmt.Errorf("increment counter: %w", err)
	}

	if s.rdb != nil {
		payload, _ := json.Marshal(map[string]interface{}{
			"contest_id":     contestID.String(),
			"participant_id": participantID,
			"kind":           kind,
			"timestamp":      s.now().Unix(),
		})
		if err := s.rdb.RPush(ctx, config.WorkerKey.ProctorEventsQueue, payload).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Proctor event enqueue failed")
		}
		s.rdb.Publish(ctx, config.CacheKey.ContestMonitorChannel(contestID.String()), payload)
	}

	return nil
}

// Submit finalizes via the participant's own manual action.
func (s *SessionService) Submit(ctx context.Context, contestID uuid.UUID, participantID int) (*model.ParticipantResult, error) {
	return s.reconciler.Finalize(ctx, contestID, participantID, model.TriggerManual)
}

// ForceSubmit finalizes via the forced time-out path.
func (s *SessionService) ForceSubmit(ctx context.Context, contestID uuid.UUID, participantID int) (*model.ParticipantResult, error) {
	return s.reconciler.Finalize(ctx, contestID, participantID, model.TriggerAuto)
}

// Status returns the live view for one participant: contest phase, remaining
// wall-clock time and the registration/session state.
func (s *SessionService) Status(ctx context.Context, contestID uuid.UUID, participantID int) (*model.SessionStatus, error) {
	contest, err := s.contests.GetContest(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("get contest: %w", err)
	}

	status := &model.SessionStatus{
		ContestID:     contestID,
		ParticipantID: participantID,
		Phase:         contest.Phase,
	}

	if contest.Phase == model.PhaseRunning {
		remaining := contest.EndTime().Sub(s.now())
		if remaining < 0 {
			remaining = 0
		}
		status.RemainingSeconds = remaining.Seconds()
	}

	reg, err := s.registrations.GetRegistration(ctx, contestID, participantID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return status, nil
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	status.RegistrationStatus = &reg.Status

	session, err := s.sessions.GetSession(ctx, contestID, participantID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return status, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	status.SessionStarted = true
	status.IsSubmitted = session.IsSubmitted || reg.Status.Terminal()

	return status, nil
}

// GetSession returns the participant's own session.
func (s *SessionService) GetSession(ctx context.Context, contestID uuid.UUID, participantID int) (*model.LiveSession, error) {
	session, err := s.sessions.GetSession(ctx, contestID, participantID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, ErrSessionNotStarted
		}
		return nil, err
	}
	return session, nil
}

// ensureWritable rejects session writes once the registration is terminal
// (the session is frozen) or before it has been started.
func (s *SessionService) ensureWritable(ctx context.Context, contestID uuid.UUID, participantID int) error {
	reg, err := s.registrations.GetRegistration(ctx, contestID, participantID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return ErrNotRegistered
		}
		return fmt.Errorf("get registration: %w", err)
	}
	switch {
	case reg.Status.Terminal():
		return ErrAlreadySubmitted
	case reg.Status != model.RegistrationStarted:
		return ErrSessionNotStarted
	}
	return nil
}

func (s *SessionService) cacheStartTime(ctx context.Context, contestID uuid.UUID, participantID int, startedAt time.Time) {
	if s.rdb == nil {
		return
	}
	key := config.CacheKey.SessionStartKey(contestID.String(), participantID)
	if err := s.rdb.Set(ctx, key, startedAt.Unix(), 0).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Start time cache write failed")
	}
}
