package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/strivio/contesthub-backend/internal/model"
)

// SessionRepository handles live session data access. Answer and code slots
// live inside jsonb columns keyed by question/problem UUID; single-slot
// writes use jsonb_set so concurrent autosaves to different slots never
// clobber each other.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// CreateSession inserts a new live session.
func (r *SessionRepository) CreateSession(ctx context.Context, s *model.LiveSession) error {
	answers, err := json.Marshal(s.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	code, err := json.Marshal(s.Code)
	if err != nil {
		return fmt.Errorf("marshal code: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO live_sessions
			(id, contest_id, participant_id, answers, code, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.ContestID, s.ParticipantID, answers, code, s.StartedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.ErrConflict
		}
		return err
	}
	return nil
}

// GetSession retrieves one participant's live session.
func (r *SessionRepository) GetSession(ctx context.Context, contestID uuid.UUID, participantID int) (*model.LiveSession, error) {
	s := &model.LiveSession{}
	var answers, code []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, contest_id, participant_id, answers, code,
		        current_question, current_section, tab_switches, focus_lost,
		        is_submitted, started_at, submitted_at, mcq_marks, coding_marks, total_marks
		 FROM live_sessions
		 WHERE contest_id = $1 AND participant_id = $2`,
		contestID, participantID,
	).Scan(&s.ID, &s.ContestID, &s.ParticipantID, &answers, &code,
		&s.CurrentQuestion, &s.CurrentSection, &s.TabSwitches, &s.FocusLost,
		&s.IsSubmitted, &s.StartedAt, &s.SubmittedAt, &s.MCQMarks, &s.CodingMarks, &s.TotalMarks)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(answers, &s.Answers); err != nil {
		return nil, fmt.Errorf("unmarshal answers: %w", err)
	}
	if err := json.Unmarshal(code, &s.Code); err != nil {
		return nil, fmt.Errorf("unmarshal code: %w", err)
	}
	return s, nil
}

// SaveAnswer writes one answer slot.
func (r *SessionRepository) SaveAnswer(ctx context.Context, contestID uuid.UUID, participantID int, questionID uuid.UUID, slot model.AnswerSlot) error {
	raw, err := json.Marshal(slot)
	if err != nil {
		return fmt.Errorf("marshal slot: %w", err)
	}
	return r.setSlot(ctx, "answers", contestID, participantID, questionID.String(), raw)
}

// SaveCode writes one code slot.
func (r *SessionRepository) SaveCode(ctx context.Context, contestID uuid.UUID, participantID int, problemID uuid.UUID, slot model.CodeSlot) error {
	raw, err := json.Marshal(slot)
	if err != nil {
		return fmt.Errorf("marshal slot: %w", err)
	}
	return r.setSlot(ctx, "code", contestID, participantID, problemID.String(), raw)
}

func (r *SessionRepository) setSlot(ctx context.Context, column string, contestID uuid.UUID, participantID int, slotKey string, raw []byte) error {
	// column is a compile-time constant ("answers" or "code"), never user input.
	// is_submitted = false keeps an autosave that slipped past the service
	// check from mutating a session that finalization already froze.
	tag, err := r.pool.Exec(ctx,
		`UPDATE live_sessions
		 SET `+column+` = jsonb_set(`+column+`, ARRAY[$1], $2::jsonb)
		 WHERE contest_id = $3 AND participant_id = $4 AND is_submitted = false`,
		slotKey, raw, contestID, participantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// UpdateNavigation writes the position counters.
func (r *SessionRepository) UpdateNavigation(ctx context.Context, contestID uuid.UUID, participantID int, question, section int) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE live_sessions
		 SET current_question = $1, current_section = $2
		 WHERE contest_id = $3 AND participant_id = $4 AND is_submitted = false`,
		question, section, contestID, participantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// IncrementCounter bumps a proctoring counter in place.
func (r *SessionRepository) IncrementCounter(ctx context.Context, contestID uuid.UUID, participantID int, kind model.ProctorEventKind) error {
	column := "tab_switches"
	if kind == model.ProctorFocusLost {
		column = "focus_lost"
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE live_sessions
		 SET `+column+` = `+column+` + 1
		 WHERE contest_id = $1 AND participant_id = $2 AND is_submitted = false`,
		contestID, participantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// MarkSubmitted freezes the session with its denormalized marks.
func (r *SessionRepository) MarkSubmitted(ctx context.Context, contestID uuid.UUID, participantID int, mcq, coding, total float64, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE live_sessions
		 SET is_submitted = true, submitted_at = $1,
		     mcq_marks = $2, coding_marks = $3, total_marks = $4
		 WHERE contest_id = $5 AND participant_id = $6 AND is_submitted = false`,
		at, mcq, coding, total, contestID, participantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}
