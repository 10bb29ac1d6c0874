package model

import (
	"time"

	"github.com/google/uuid"
)

// RegistrationStatus enumerates a participant's enrollment lifecycle.
// Transitions are monotonic: REGISTERED → STARTED → one terminal status.
type RegistrationStatus string

const (
	RegistrationRegistered    RegistrationStatus = "REGISTERED"
	RegistrationStarted       RegistrationStatus = "STARTED"
	RegistrationSubmitted     RegistrationStatus = "SUBMITTED"
	RegistrationAutoSubmitted RegistrationStatus = "AUTO_SUBMITTED"
	RegistrationDisqualified  RegistrationStatus = "DISQUALIFIED"
)

// Terminal reports whether the status permits no further session mutation.
func (s RegistrationStatus) Terminal() bool {
	switch s {
	case RegistrationSubmitted, RegistrationAutoSubmitted, RegistrationDisqualified:
		return true
	}
	return false
}

// FinalizeTrigger identifies which path requested finalization.
type FinalizeTrigger string

const (
	TriggerManual    FinalizeTrigger = "manual"
	TriggerAuto      FinalizeTrigger = "auto"
	TriggerScheduler FinalizeTrigger = "scheduler"
)

// TerminalStatus maps a trigger to the registration status it produces.
// The scheduler sweep behaves as a forced auto-submit.
func (t FinalizeTrigger) TerminalStatus() RegistrationStatus {
	if t == TriggerManual {
		return RegistrationSubmitted
	}
	return RegistrationAutoSubmitted
}

// Registration is a participant's enrollment record for one contest.
// The (contest, participant) pair is unique; the row is never deleted.
type Registration struct {
	ID            uuid.UUID          `json:"id"`
	ContestID     uuid.UUID          `json:"contest_id"`
	ParticipantID int                `json:"participant_id"`
	Status        RegistrationStatus `json:"status"`
	RegisteredAt  time.Time          `json:"registered_at"`
	StartedAt     *time.Time         `json:"started_at,omitempty"`
	SubmittedAt   *time.Time         `json:"submitted_at,omitempty"`
}

// RegisterRequest is the payload for registering for a contest.
type RegisterRequest struct {
	AccessCode string `json:"access_code" binding:"omitempty,min=4,max=20"`
}
