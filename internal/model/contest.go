package model

import (
	"time"

	"github.com/google/uuid"
)

// ContestPhase enumerates the wall-clock-derived phases of a contest.
// Transitions are monotonic: UPCOMING → RUNNING → COMPLETED.
type ContestPhase string

const (
	PhaseUpcoming  ContestPhase = "UPCOMING"
	PhaseRunning   ContestPhase = "RUNNING"
	PhaseCompleted ContestPhase = "COMPLETED"
)

// OwnerKind tags the actor type that owns a contest.
type OwnerKind string

const (
	OwnerKindEducator    OwnerKind = "EDUCATOR"
	OwnerKindParticipant OwnerKind = "PARTICIPANT"
)

// Owner is a tagged reference to the actor owning a contest. The kind is
// explicit; owners are never resolved through a string-typed dynamic field.
type Owner struct {
	Kind OwnerKind `json:"kind"`
	ID   int       `json:"id"`
}

// Contest represents a timed exam instance with MCQ and/or coding content.
type Contest struct {
	ID              uuid.UUID    `json:"id"`
	Title           string       `json:"title"`
	Description     string       `json:"description,omitempty"`
	Owner           Owner        `json:"owner"`
	StartTime       time.Time    `json:"start_time"`
	DurationMinutes int          `json:"duration_minutes"`
	Phase           ContestPhase `json:"phase"`
	Published       bool         `json:"published"`
	Private         bool         `json:"private"`
	AccessCodeHash  string       `json:"-"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// EndTime returns the wall-clock instant at which the contest closes.
func (c *Contest) EndTime() time.Time {
	return c.StartTime.Add(time.Duration(c.DurationMinutes) * time.Minute)
}

// CreateContestRequest is the payload for creating a new contest.
type CreateContestRequest struct {
	Title           string    `json:"title" binding:"required,min=3,max=255"`
	Description     string    `json:"description" binding:"omitempty,max=5000"`
	StartTime       time.Time `json:"start_time" binding:"required"`
	DurationMinutes int       `json:"duration_minutes" binding:"required,min=1,max=480"`
	Private         bool      `json:"private"`
	AccessCode      string    `json:"access_code" binding:"omitempty,min=4,max=20"`
}

// UpdateContestRequest is the payload for updating an existing contest.
type UpdateContestRequest struct {
	Title           string     `json:"title" binding:"omitempty,min=3,max=255"`
	Description     *string    `json:"description" binding:"omitempty,max=5000"`
	StartTime       *time.Time `json:"start_time" binding:"omitempty"`
	DurationMinutes int        `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
	Private         *bool      `json:"private" binding:"omitempty"`
	AccessCode      string     `json:"access_code" binding:"omitempty,min=4,max=20"`
}

// ContestPayload is the Redis-cached payload sent to participants
// (no correct answers).
type ContestPayload struct {
	ContestID uuid.UUID                `json:"contest_id"`
	Title     string                   `json:"title"`
	Duration  int                      `json:"duration_minutes"`
	Questions []QuestionForParticipant `json:"questions"`
	Problems  []ProblemForParticipant  `json:"problems"`
}
