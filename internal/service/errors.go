package service

import "errors"

// Domain errors returned by the session engine. State errors are synchronous
// and not retryable; ErrAlreadySubmitted in particular is the expected
// outcome of losing the finalize race, not a fault.
var (
	ErrInvalidPhase        = errors.New("action not allowed in the contest's current phase")
	ErrAlreadySubmitted    = errors.New("exam already submitted")
	ErrNotRegistered       = errors.New("participant is not registered for this contest")
	ErrSessionNotStarted   = errors.New("participant has not started this contest")
	ErrInvalidAccessCode   = errors.New("invalid contest access code")
	ErrContestNotPublished = errors.New("contest is not published")
	ErrNotContestOwner     = errors.New("not the owner of this contest")
	ErrNoQuestions         = errors.New("contest has no questions, cannot publish")
)
