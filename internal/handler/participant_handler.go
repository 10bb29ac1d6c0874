package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/strivio/contesthub-backend/internal/middleware"
	"github.com/strivio/contesthub-backend/internal/model"
	"github.com/strivio/contesthub-backend/internal/response"
	"github.com/strivio/contesthub-backend/internal/service"
	"github.com/strivio/contesthub-backend/internal/validator"
)

// ParticipantHandler handles the participant-facing contest endpoints:
// registration, session lifecycle, autosave and submission.
type ParticipantHandler struct {
	sessionService *service.SessionService
	contestService *service.ContestService
}

// NewParticipantHandler creates a new ParticipantHandler.
func NewParticipantHandler(sessionService *service.SessionService, contestService *service.ContestService) *ParticipantHandler {
	return &ParticipantHandler{
		sessionService: sessionService,
		contestService: contestService,
	}
}

// contestID parses the :contest_id path param.
func contestID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("contest_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// failSessionErr maps session engine errors onto response codes.
func failSessionErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrContestNotPublished):
		response.Fail(c, http.StatusNotFound, response.ErrContestNotPublished)
	case errors.Is(err, service.ErrInvalidPhase):
		response.Fail(c, http.StatusConflict, response.ErrInvalidPhase)
	case errors.Is(err, service.ErrInvalidAccessCode):
		response.Fail(c, http.StatusForbidden, response.ErrInvalidAccessCode)
	case errors.Is(err, service.ErrNotRegistered):
		response.Fail(c, http.StatusForbidden, response.ErrNotRegistered)
	case errors.Is(err, service.ErrSessionNotStarted):
		response.Fail(c, http.StatusConflict, response.ErrSessionNotStarted)
	case errors.Is(err, service.ErrAlreadySubmitted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
	case errors.Is(err, model.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// GetContest godoc
// GET /api/v1/contests/:contest_id
// Returns the cached participant payload (no correct answers).
func (h *ParticipantHandler) GetContest(c *gin.Context) {
	id, ok := contestID(c)
	if !ok {
		return
	}

	payload, err := h.contestService.GetContestPayload(c.Request.Context(), id)
	if err != nil {
		failSessionErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"contest": payload})
}

// Register godoc
// POST /api/v1/contests/:contest_id/register
func (h *ParticipantHandler) Register(c *gin.Context) {
	id, ok := contestID(c)
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)

	var req model.RegisterRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	reg, err := h.sessionService.Register(c.Request.Context(), id, claims.UserID, req.AccessCode)
	if err != nil {
		failSessionErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"registration": reg})
}

// Start godoc
// POST /api/v1/contests/:contest_id/start
func (h *ParticipantHandler) Start(c *gin.Context) {
	id, ok := contestID(c)
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)

	session, err := h.sessionService.Start(c.Request.Context(), id, claims.UserID)
	if err != nil {
		failSessionErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// SaveAnswer godoc
// PUT /api/v1/contests/:contest_id/answers
func (h *ParticipantHandler) SaveAnswer(c *gin.Context) {
	id, ok := contestID(c)
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)

	var req model.SaveAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.SaveAnswer(c.Request.Context(), id, claims.UserID, &req); err != nil {
		failSessionErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"saved": true})
}

// SaveCode godoc
// PUT /api/v1/contests/:contest_id/code
func (h *ParticipantHandler) SaveCode(c *gin.Context) {
	id, ok := contestID(c)
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)

	var req model.SaveCodeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.SaveCode(c.Request.Context(), id, claims.UserID, &req); err != nil {
		failSessionErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"saved": true})
}

// UpdateNavigation godoc
// PUT /api/v1/contests/:contest_id/navigation
func (h *ParticipantHandler) UpdateNavigation(c *gin.Context) {
	id, ok := contestID(c)
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)

	var req model.NavigationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.UpdateNavigation(c.Request.Context(), id, claims.UserID, &req); err != nil {
		failSessionErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"saved": true})
}

// ReportProctorEvent godoc
// POST /api/v1/contests/:contest_id/proctor-events
func (h *ParticipantHandler) ReportProctorEvent(c *gin.Context) {
	id, ok := contestID(c)
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)

	var req model.ProctorEventRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.RecordProctorEvent(c.Request.Context(), id, claims.UserID, req.Kind); err != nil {
		failSessionErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"recorded": true})
}

// Submit godoc
// POST /api/v1/contests/:contest_id/submit
// Finalizes the session. Safe to retry: a repeat submit returns 409.
func (h *ParticipantHandler) Submit(c *gin.Context) {
	id, ok := contestID(c)
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)

	result, err := h.sessionService.Submit(c.Request.Context(), id, claims.UserID)
	if err != nil {
		failSessionErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// ForceSubmit godoc
// POST /api/v1/contests/:contest_id/force-submit
// Client-detected expiry; finalizes as an auto-submit.
func (h *ParticipantHandler) ForceSubmit(c *gin.Context) {
	id, ok := contestID(c)
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)

	result, err := h.sessionService.ForceSubmit(c.Request.Context(), id, claims.UserID)
	if err != nil {
		failSessionErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// Status godoc
// GET /api/v1/contests/:contest_id/status
// Phase, registration state and remaining seconds. Polled by the client.
func (h *ParticipantHandler) Status(c *gin.Context) {
	id, ok := contestID(c)
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)

	status, err := h.sessionService.Status(c.Request.Context(), id, claims.UserID)
	if err != nil {
		failSessionErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": status})
}

// GetSession godoc
// GET /api/v1/contests/:contest_id/session
// Returns the participant's own live session for state restoration.
func (h *ParticipantHandler) GetSession(c *gin.Context) {
	id, ok := contestID(c)
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)

	session, err := h.sessionService.GetSession(c.Request.Context(), id, claims.UserID)
	if err != nil {
		failSessionErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// Leaderboard godoc
// GET /api/v1/contests/:contest_id/leaderboard
// Visible to participants only after the educator publishes results.
func (h *ParticipantHandler) Leaderboard(c *gin.Context) {
	id, ok := contestID(c)
	if !ok {
		return
	}

	set, err := h.contestService.Leaderboard(c.Request.Context(), id, true)
	if err != nil {
		if errors.Is(err, service.ErrResultsNotPublished) {
			response.Fail(c, http.StatusForbidden, response.ErrResultsNotPublished)
			return
		}
		failSessionErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"leaderboard": set})
}
