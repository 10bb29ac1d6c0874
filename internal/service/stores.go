package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/strivio/contesthub-backend/internal/model"
)

// Store interfaces consumed by the session engine. The pgx repositories
// implement them for production; internal/memory implements them for tests.

// ContestStore reads contests and applies phase flips. Phase updates are
// conditional on the current phase so transitions stay monotonic no matter
// how many sweeps race.
type ContestStore interface {
	GetContest(ctx context.Context, id uuid.UUID) (*model.Contest, error)

	// ActivateDue flips every published UPCOMING contest whose start time has
	// passed to RUNNING and returns the affected IDs. Idempotent.
	ActivateDue(ctx context.Context, now time.Time) ([]uuid.UUID, error)

	// ListExpiredRunning returns RUNNING contests whose end time has passed.
	ListExpiredRunning(ctx context.Context, now time.Time) ([]model.Contest, error)

	// CompleteContest flips RUNNING → COMPLETED. Returns false if the contest
	// was not RUNNING (already completed, or never activated).
	CompleteContest(ctx context.Context, id uuid.UUID) (bool, error)
}

// RegistrationStore owns the enrollment lifecycle rows.
type RegistrationStore interface {
	// CreateRegistration inserts a new REGISTERED row. Returns
	// model.ErrConflict if the (contest, participant) pair already exists.
	CreateRegistration(ctx context.Context, reg *model.Registration) error

	GetRegistration(ctx context.Context, contestID uuid.UUID, participantID int) (*model.Registration, error)

	// MarkStarted conditionally moves REGISTERED → STARTED. Returns false
	// without error when the row was not in REGISTERED.
	MarkStarted(ctx context.Context, contestID uuid.UUID, participantID int, at time.Time) (bool, error)

	// ClaimFinalize is the compare-and-swap at the heart of finalization:
	// a single conditional update keyed on status being exactly STARTED.
	// Exactly one concurrent caller observes true; everyone else gets false
	// with no side effects.
	ClaimFinalize(ctx context.Context, contestID uuid.UUID, participantID int, to model.RegistrationStatus, at time.Time) (bool, error)

	// ListStarted returns the participant IDs still in STARTED for a contest.
	ListStarted(ctx context.Context, contestID uuid.UUID) ([]int, error)
}

// SessionStore owns the per-participant LiveSession rows. No business rules
// beyond read/write and (contest, participant) uniqueness, except that a
// session MarkSubmitted has frozen no longer matches any write: late
// autosaves get model.ErrNotFound instead of mutating the scored snapshot.
type SessionStore interface {
	// CreateSession inserts a new session. Returns model.ErrConflict if one
	// already exists for the (contest, participant) pair.
	CreateSession(ctx context.Context, session *model.LiveSession) error

	GetSession(ctx context.Context, contestID uuid.UUID, participantID int) (*model.LiveSession, error)

	SaveAnswer(ctx context.Context, contestID uuid.UUID, participantID int, questionID uuid.UUID, slot model.AnswerSlot) error
	SaveCode(ctx context.Context, contestID uuid.UUID, participantID int, problemID uuid.UUID, slot model.CodeSlot) error
	UpdateNavigation(ctx context.Context, contestID uuid.UUID, participantID int, question, section int) error
	IncrementCounter(ctx context.Context, contestID uuid.UUID, participantID int, kind model.ProctorEventKind) error

	// MarkSubmitted writes the denormalized finalize outcome onto the session.
	MarkSubmitted(ctx context.Context, contestID uuid.UUID, participantID int, mcq, coding, total float64, at time.Time) error
}

// ResultStore owns ParticipantResult rows and the contest ResultSet.
type ResultStore interface {
	UpsertResult(ctx context.Context, result *model.ParticipantResult) error
	ListResults(ctx context.Context, contestID uuid.UUID) ([]model.ParticipantResult, error)

	// ReplaceResults rewrites the contest's ranked rows and stats wholesale.
	ReplaceResults(ctx context.Context, contestID uuid.UUID, results []model.ParticipantResult, stats model.AggregateStats, at time.Time) error

	GetResultSet(ctx context.Context, contestID uuid.UUID) (*model.ResultSet, error)
	SetResultSetPublished(ctx context.Context, contestID uuid.UUID, published bool) error

	// AddCodingMarks applies an asynchronous judge verdict to a finalized
	// result. Returns model.ErrNotFound if the participant has no result yet.
	AddCodingMarks(ctx context.Context, contestID uuid.UUID, participantID int, marks float64) error
}

// AnswerKeySource yields the immutable-at-finalize-time answer key snapshot.
type AnswerKeySource interface {
	AnswerKey(ctx context.Context, contestID uuid.UUID) (*model.AnswerKey, error)
}
