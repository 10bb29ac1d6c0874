package model

import (
	"time"

	"github.com/google/uuid"
)

// AnswerSlot holds a participant's in-progress answer for one question.
type AnswerSlot struct {
	SelectedOptions []string  `json:"selected_options"`
	MarkedForReview bool      `json:"marked_for_review"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CodeSlot holds a participant's in-progress code buffer for one problem.
type CodeSlot struct {
	Code      string    `json:"code"`
	Language  string    `json:"language"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LiveSession is the mutable in-progress record of one participant's attempt.
// Created at start together with the STARTED registration, never deleted.
// Owned exclusively by its participant until finalized; read-only afterwards.
type LiveSession struct {
	ID            uuid.UUID                `json:"id"`
	ContestID     uuid.UUID                `json:"contest_id"`
	ParticipantID int                      `json:"participant_id"`
	Answers       map[uuid.UUID]AnswerSlot `json:"answers"`
	Code          map[uuid.UUID]CodeSlot   `json:"code"`

	// Navigation and proctoring counters. Simple counts only; no media analysis.
	CurrentQuestion int `json:"current_question"`
	CurrentSection  int `json:"current_section"`
	TabSwitches     int `json:"tab_switches"`
	FocusLost       int `json:"focus_lost"`

	IsSubmitted bool       `json:"is_submitted"`
	StartedAt   time.Time  `json:"started_at"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`

	// Denormalized marks written at finalize. Informational only; the
	// registration status is the authority for "is this finalized".
	MCQMarks    *float64 `json:"mcq_marks,omitempty"`
	CodingMarks *float64 `json:"coding_marks,omitempty"`
	TotalMarks  *float64 `json:"total_marks,omitempty"`
}

// Clone returns a deep copy of the session. Used to hand out snapshots
// without exposing internal maps to concurrent mutation.
func (s *LiveSession) Clone() *LiveSession {
	cp := *s
	cp.Answers = make(map[uuid.UUID]AnswerSlot, len(s.Answers))
	for k, v := range s.Answers {
		opts := make([]string, len(v.SelectedOptions))
		copy(opts, v.SelectedOptions)
		v.SelectedOptions = opts
		cp.Answers[k] = v
	}
	cp.Code = make(map[uuid.UUID]CodeSlot, len(s.Code))
	for k, v := range s.Code {
		cp.Code[k] = v
	}
	return &cp
}

// SaveAnswerRequest is the payload for autosaving one MCQ answer slot.
type SaveAnswerRequest struct {
	QuestionID      uuid.UUID `json:"question_id" binding:"required"`
	SelectedOptions []string  `json:"selected_options" binding:"omitempty,dive,max=10"`
	MarkedForReview bool      `json:"marked_for_review"`
}

// SaveCodeRequest is the payload for autosaving one coding problem buffer.
type SaveCodeRequest struct {
	ProblemID uuid.UUID `json:"problem_id" binding:"required"`
	Code      string    `json:"code" binding:"required,max=65536"`
	Language  string    `json:"language" binding:"required,min=1,max=32"`
}

// NavigationRequest updates the participant's position counters.
type NavigationRequest struct {
	CurrentQuestion int `json:"current_question" binding:"min=0"`
	CurrentSection  int `json:"current_section" binding:"min=0"`
}

// ProctorEventKind enumerates the counted proctoring signals.
type ProctorEventKind string

const (
	ProctorTabSwitch ProctorEventKind = "TAB_SWITCH"
	ProctorFocusLost ProctorEventKind = "FOCUS_LOST"
)

// ProctorEventRequest reports one proctoring event from the client.
type ProctorEventRequest struct {
	Kind ProctorEventKind `json:"kind" binding:"required,oneof=TAB_SWITCH FOCUS_LOST"`
}

// SessionStatus is the live view returned by the status endpoint.
type SessionStatus struct {
	ContestID          uuid.UUID           `json:"contest_id"`
	ParticipantID      int                 `json:"participant_id"`
	Phase              ContestPhase        `json:"phase"`
	RegistrationStatus *RegistrationStatus `json:"registration_status,omitempty"`
	SessionStarted     bool                `json:"session_started"`
	IsSubmitted        bool                `json:"is_submitted"`
	RemainingSeconds   float64             `json:"remaining_seconds"`
}
