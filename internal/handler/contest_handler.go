package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/strivio/contesthub-backend/internal/middleware"
	"github.com/strivio/contesthub-backend/internal/model"
	"github.com/strivio/contesthub-backend/internal/response"
	"github.com/strivio/contesthub-backend/internal/service"
	"github.com/strivio/contesthub-backend/internal/validator"
)

// ContestHandler handles the educator-facing contest management endpoints.
type ContestHandler struct {
	contestService *service.ContestService
}

// NewContestHandler creates a new ContestHandler.
func NewContestHandler(contestService *service.ContestService) *ContestHandler {
	return &ContestHandler{contestService: contestService}
}

func failContestErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotContestOwner):
		response.Fail(c, http.StatusForbidden, response.ErrNotContestOwner)
	case errors.Is(err, service.ErrInvalidPhase):
		response.Fail(c, http.StatusConflict, response.ErrInvalidPhase)
	case errors.Is(err, service.ErrNoQuestions):
		response.Fail(c, http.StatusConflict, response.ErrNoQuestions)
	case errors.Is(err, model.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// List godoc
// GET /api/v1/educator/contests?page=1&per_page=10
func (h *ContestHandler) List(c *gin.Context) {
	claims := middleware.GetClaims(c)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	contests, pagination, err := h.contestService.ListByOwner(c.Request.Context(), claims.UserID, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"contests": contests}, pagination)
}

// Get godoc
// GET /api/v1/educator/contests/:contest_id
func (h *ContestHandler) Get(c *gin.Context) {
	id, ok := contestID(c)
	if !ok {
		return
	}

	contest, err := h.contestService.GetByID(c.Request.Context(), id)
	if err != nil {
		failContestErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"contest": contest})
}

// Create godoc
// POST /api/v1/educator/contests
func (h *ContestHandler) Create(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.CreateContestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	contest, err := h.contestService.Create(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"contest": contest})
}

// Update godoc
// PUT /api/v1/educator/contests/:contest_id
func (h *ContestHandler) Update(c *gin.Context) {
	id, ok := contestID(c)
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)

	var req model.UpdateContestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	contest, err := h.contestService.Update(c.Request.Context(), claims.UserID, id, &req)
	if err != nil {
		failContestErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"contest": contest})
}

// Delete godoc
// DELETE /api/v1/educator/contests/:contest_id
func (h *ContestHandler) Delete(c *gin.Context) {
	id, ok := contestID(c)
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)

	if err := h.contestService.Delete(c.Request.Context(), claims.UserID, id); err != nil {
		failContestErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// Publish godoc
// POST /api/v1/educator/contests/:contest_id/publish
// Warms the Redis caches before flipping published.
func (h *ContestHandler) Publish(c *gin.Context) {
	id, ok := contestID(c)
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)

	if err := h.contestService.Publish(c.Request.Context(), claims.UserID, id); err != nil {
		failContestErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"published": true})
}

// AddQuestion godoc
// POST /api/v1/educator/contests/:contest_id/questions
func (h *ContestHandler) AddQuestion(c *gin.Context) {
	id, ok := contestID(c)
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)

	var req model.AddQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.contestService.AddQuestion(c.Request.Context(), claims.UserID, id, &req)
	if err != nil {
		failContestErr(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"question": question})
}

// ListQuestions godoc
// GET /api/v1/educator/contests/:contest_id/questions
// Owner view: includes the correct options.
func (h *ContestHandler) ListQuestions(c *gin.Context) {
	id, ok := contestID(c)
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)

	questions, err := h.contestService.ListQuestions(c.Request.Context(), claims.UserID, id)
	if err != nil {
		failContestErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// AddProblem godoc
// POST /api/v1/educator/contests/:contest_id/problems
func (h *ContestHandler) AddProblem(c *gin.Context) {
	id, ok := contestID(c)
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)

	var req model.AddProblemRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	problem, err := h.contestService.AddProblem(c.Request.Context(), claims.UserID, id, &req)
	if err != nil {
		failContestErr(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"problem": problem})
}

// Results godoc
// GET /api/v1/educator/contests/:contest_id/results
// Owner view of the full ranked result set with aggregate stats.
func (h *ContestHandler) Results(c *gin.Context) {
	id, ok := contestID(c)
	if !ok {
		return
	}

	set, err := h.contestService.Leaderboard(c.Request.Context(), id, false)
	if err != nil {
		failContestErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"results": set})
}

// PublishResults godoc
// POST /api/v1/educator/contests/:contest_id/results/publish
func (h *ContestHandler) PublishResults(c *gin.Context) {
	id, ok := contestID(c)
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)

	var req struct {
		Published bool `json:"published"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	if err := h.contestService.PublishLeaderboard(c.Request.Context(), claims.UserID, id, req.Published); err != nil {
		failContestErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"published": req.Published})
}
