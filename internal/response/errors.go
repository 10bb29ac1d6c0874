package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// Authentication
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionActive      ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// Authorization
	ErrForbidden             ErrCode = "FORBIDDEN"
	ErrParticipantAccessOnly ErrCode = "PARTICIPANT_ACCESS_ONLY"
	ErrEducatorAccessOnly    ErrCode = "EDUCATOR_ACCESS_ONLY"

	// Validation
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// Resources
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// Contest-specific
	ErrInvalidPhase        ErrCode = "INVALID_PHASE"
	ErrAlreadySubmitted    ErrCode = "ALREADY_SUBMITTED"
	ErrInvalidAccessCode   ErrCode = "INVALID_ACCESS_CODE"
	ErrContestNotPublished ErrCode = "CONTEST_NOT_PUBLISHED"
	ErrNotContestOwner     ErrCode = "NOT_CONTEST_OWNER"
	ErrNoQuestions         ErrCode = "NO_QUESTIONS"
	ErrNotRegistered       ErrCode = "NOT_REGISTERED"
	ErrSessionNotStarted   ErrCode = "SESSION_NOT_STARTED"
	ErrResultsNotPublished ErrCode = "RESULTS_NOT_PUBLISHED"

	// Rate Limiting
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// Server
	ErrStoreUnavailable ErrCode = "STORE_UNAVAILABLE"
	ErrInternal         ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// Authentication
	case ErrInvalidCredentials:
		return "Invalid username or password."
	case ErrSessionActive:
		return "You are already logged in on another device."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."

	// Authorization
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrParticipantAccessOnly:
		return "This resource is restricted to participants."
	case ErrEducatorAccessOnly:
		return "This resource is restricted to educators."

	// Validation
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// Resources
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	// Contest-specific
	case ErrInvalidPhase:
		return "This action is not allowed in the contest's current phase."
	case ErrAlreadySubmitted:
		return "This exam has already been submitted."
	case ErrInvalidAccessCode:
		return "The contest access code is invalid."
	case ErrContestNotPublished:
		return "This contest has not been published."
	case ErrNotContestOwner:
		return "You are not the owner of this contest."
	case ErrNoQuestions:
		return "This contest has no questions."
	case ErrNotRegistered:
		return "You are not registered for this contest."
	case ErrSessionNotStarted:
		return "You have not started this contest."
	case ErrResultsNotPublished:
		return "Results for this contest have not been published yet."

	// Rate Limiting
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// Server
	case ErrStoreUnavailable:
		return "The data store is temporarily unavailable. Please retry."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
