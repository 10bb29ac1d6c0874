package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/strivio/contesthub-backend/internal/config"
	"github.com/strivio/contesthub-backend/internal/model"
	"github.com/strivio/contesthub-backend/internal/repository"
	"github.com/strivio/contesthub-backend/internal/response"
	"golang.org/x/crypto/bcrypt"
)

// ErrResultsNotPublished guards the participant-facing leaderboard.
var ErrResultsNotPublished = errors.New("results are not published for participants")

// ContestService handles contest authoring, publication, Redis cache warming
// and the leaderboard surface. It also serves answer-key snapshots to the
// reconciler (Redis-first with PostgreSQL fallback).
type ContestService struct {
	contestRepo  *repository.ContestRepository
	questionRepo *repository.QuestionRepository
	results      ResultStore
	rdb          *redis.Client
	log          zerolog.Logger
	bcryptCost   int
	// defaultEducatorID owns platform-seeded contests; injected from config,
	// never looked up through shared mutable state.
	defaultEducatorID int
}

// NewContestService creates a ContestService.
func NewContestService(
	contestRepo *repository.ContestRepository,
	questionRepo *repository.QuestionRepository,
	results ResultStore,
	rdb *redis.Client,
	log zerolog.Logger,
	bcryptCost int,
	defaultEducatorID int,
) *ContestService {
	return &ContestService{
		contestRepo:       contestRepo,
		questionRepo:      questionRepo,
		results:           results,
		rdb:               rdb,
		log:               log.With().Str("component", "contest_service").Logger(),
		bcryptCost:        bcryptCost,
		defaultEducatorID: defaultEducatorID,
	}
}

// GetByID retrieves a contest by its UUID.
func (s *ContestService) GetByID(ctx context.Context, id uuid.UUID) (*model.Contest, error) {
	return s.contestRepo.GetByID(ctx, id)
}

// ListByOwner retrieves an educator's contests with pagination.
func (s *ContestService) ListByOwner(ctx context.Context, educatorID, page, perPage int) ([]model.Contest, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	contests, total, err := s.contestRepo.ListByOwnerPaginated(ctx, educatorID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if contests == nil {
		contests = []model.Contest{}
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	return contests, pagination, nil
}

// Create inserts a new contest in the UPCOMING phase, unpublished.
func (s *ContestService) Create(ctx context.Context, educatorID int, req *model.CreateContestRequest) (*model.Contest, error) {
	if educatorID == 0 {
		educatorID = s.defaultEducatorID
	}

	contest := &model.Contest{
		ID:              uuid.New(),
		Title:           req.Title,
		Description:     req.Description,
		Owner:           model.Owner{Kind: model.OwnerKindEducator, ID: educatorID},
		StartTime:       req.StartTime,
		DurationMinutes: req.DurationMinutes,
		Phase:           model.PhaseUpcoming,
		Private:         req.Private,
	}

	if req.Private {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.AccessCode), s.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash access code: %w", err)
		}
		contest.AccessCodeHash = string(hash)
	}

	if err := s.contestRepo.Create(ctx, contest); err != nil {
		return nil, fmt.Errorf("create contest: %w", err)
	}
	return contest, nil
}

// Update modifies a contest that has not left the UPCOMING phase.
func (s *ContestService) Update(ctx context.Context, educatorID int, contestID uuid.UUID, req *model.UpdateContestRequest) (*model.Contest, error) {
	contest, err := s.ownedContest(ctx, contestID, educatorID)
	if err != nil {
		return nil, err
	}
	if contest.Phase != model.PhaseUpcoming {
		return nil, ErrInvalidPhase
	}

	if req.Title != "" {
		contest.Title = req.Title
	}
	if req.Description != nil {
		contest.Description = *req.Description
	}
	if req.StartTime != nil {
		contest.StartTime = *req.StartTime
	}
	if req.DurationMinutes > 0 {
		contest.DurationMinutes = req.DurationMinutes
	}
	if req.Private != nil {
		contest.Private = *req.Private
	}
	if req.AccessCode != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.AccessCode), s.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash access code: %w", err)
		}
		contest.AccessCodeHash = string(hash)
	}

	if err := s.contestRepo.Update(ctx, contest); err != nil {
		return nil, fmt.Errorf("update contest: %w", err)
	}
	return contest, nil
}

// Delete removes an unpublished UPCOMING contest.
func (s *ContestService) Delete(ctx context.Context, educatorID int, contestID uuid.UUID) error {
	contest, err := s.ownedContest(ctx, contestID, educatorID)
	if err != nil {
		return err
	}
	if contest.Phase != model.PhaseUpcoming || contest.Published {
		return ErrInvalidPhase
	}
	return s.contestRepo.Delete(ctx, contestID)
}

// Publish makes a contest visible to participants and warms its Redis
// payload and answer-key caches before any traffic can hit them.
func (s *ContestService) Publish(ctx context.Context, educatorID int, contestID uuid.UUID) error {
	contest, err := s.ownedContest(ctx, contestID, educatorID)
	if err != nil {
		return err
	}
	if contest.Phase == model.PhaseCompleted {
		return ErrInvalidPhase
	}

	if err := s.WarmContestCache(ctx, contest); err != nil {
		return err
	}

	if err := s.contestRepo.SetPublished(ctx, contestID, true); err != nil {
		return fmt.Errorf("set published: %w", err)
	}

	s.log.Info().Str("contest_id", contestID.String()).Msg("Contest published")
	return nil
}

// WarmContestCache loads a contest's participant payload and answer-key
// snapshot from PostgreSQL into Redis.
func (s *ContestService) WarmContestCache(ctx context.Context, contest *model.Contest) error {
	questions, err := s.questionRepo.ListByContest(ctx, contest.ID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	problems, err := s.questionRepo.ListProblemsByContest(ctx, contest.ID)
	if err != nil {
		return fmt.Errorf("list problems: %w", err)
	}
	if len(questions) == 0 && len(problems) == 0 {
		return ErrNoQuestions
	}

	payload := model.ContestPayload{
		ContestID: contest.ID,
		Title:     contest.Title,
		Duration:  contest.DurationMinutes,
		Questions: make([]model.QuestionForParticipant, len(questions)),
		Problems:  make([]model.ProblemForParticipant, len(problems)),
	}
	for i, q := range questions {
		payload.Questions[i] = model.QuestionForParticipant{
			ID:           q.ID,
			QuestionText: q.QuestionText,
			Options:      q.Options,
			MultiSelect:  q.MultiSelect,
			Marks:        q.Marks,
			OrderNum:     q.OrderNum,
		}
	}
	for i, p := range problems {
		payload.Problems[i] = model.ProblemForParticipant{
			ID:        p.ID,
			Title:     p.Title,
			Statement: p.Statement,
			MaxMarks:  p.MaxMarks,
			OrderNum:  p.OrderNum,
		}
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	keyJSON, err := json.Marshal(buildAnswerKey(contest.ID, questions, problems))
	if err != nil {
		return fmt.Errorf("marshal answer key: %w", err)
	}

	cid := contest.ID.String()
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.ContestPayloadKey(cid), payloadJSON, 0)
	pipe.Set(ctx, config.CacheKey.ContestAnswerKeyKey(cid), keyJSON, 0)
	pipe.Set(ctx, config.CacheKey.ContestDurationKey(cid), contest.DurationMinutes, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("contest_id", cid).
		Int("questions", len(questions)).
		Int("problems", len(problems)).
		Msg("Cache warmed")
	return nil
}

// PrewarmAllCaches loads all published, not-yet-completed contests into
// Redis on startup so lazy loading never races a thundering herd.
func (s *ContestService) PrewarmAllCaches(ctx context.Context) error {
	contests, err := s.contestRepo.ListPublishedActive(ctx)
	if err != nil {
		return fmt.Errorf("list published contests: %w", err)
	}
	if len(contests) == 0 {
		s.log.Info().Msg("No published contests to prewarm")
		return nil
	}

	warmed := 0
	for i := range contests {
		if err := s.WarmContestCache(ctx, &contests[i]); err != nil {
			s.log.Warn().Err(err).
				Str("contest_id", contests[i].ID.String()).
				Msg("Failed to warm contest, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().Int("warmed", warmed).Int("total", len(contests)).Msg("Prewarming complete")
	return nil
}

// GetContestPayload retrieves the cached participant payload.
func (s *ContestService) GetContestPayload(ctx context.Context, contestID uuid.UUID) (*model.ContestPayload, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.ContestPayloadKey(contestID.String())).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrContestNotPublished
		}
		return nil, fmt.Errorf("get payload: %w", err)
	}

	var payload model.ContestPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &payload, nil
}

// AnswerKey returns the contest's scoring snapshot. Redis is the fast path;
// a miss falls back to PostgreSQL and self-heals the cache. Implements the
// reconciler's AnswerKeySource.
func (s *ContestService) AnswerKey(ctx context.Context, contestID uuid.UUID) (*model.AnswerKey, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.ContestAnswerKeyKey(contestID.String())).Bytes()
	if err == nil {
		var key model.AnswerKey
		if err := json.Unmarshal(data, &key); err == nil {
			return &key, nil
		}
		// Corrupt cache entry falls through to the store.
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis get answer key: %w", err)
	}

	questions, err := s.questionRepo.ListByContest(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	problems, err := s.questionRepo.ListProblemsByContest(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("list problems: %w", err)
	}

	key := buildAnswerKey(contestID, questions, problems)

	if raw, err := json.Marshal(key); err == nil {
		_ = s.rdb.Set(ctx, config.CacheKey.ContestAnswerKeyKey(contestID.String()), raw, 0).Err()
	}

	return key, nil
}

// Leaderboard returns the contest's ranked ResultSet. Participants only see
// it after the educator publishes it; the owner always does.
func (s *ContestService) Leaderboard(ctx context.Context, contestID uuid.UUID, participantView bool) (*model.ResultSet, error) {
	set, err := s.results.GetResultSet(ctx, contestID)
	if err != nil {
		return nil, err
	}
	if participantView && !set.Published {
		return nil, ErrResultsNotPublished
	}
	return set, nil
}

// PublishLeaderboard toggles participant visibility of the ResultSet.
func (s *ContestService) PublishLeaderboard(ctx context.Context, educatorID int, contestID uuid.UUID, published bool) error {
	if _, err := s.ownedContest(ctx, contestID, educatorID); err != nil {
		return err
	}
	return s.results.SetResultSetPublished(ctx, contestID, published)
}

// AddQuestion appends an MCQ to an UPCOMING contest.
func (s *ContestService) AddQuestion(ctx context.Context, educatorID int, contestID uuid.UUID, req *model.AddQuestionRequest) (*model.Question, error) {
	contest, err := s.ownedContest(ctx, contestID, educatorID)
	if err != nil {
		return nil, err
	}
	if contest.Phase != model.PhaseUpcoming {
		return nil, ErrInvalidPhase
	}

	q := &model.Question{
		ID:             uuid.New(),
		ContestID:      contestID,
		QuestionText:   req.QuestionText,
		Options:        req.Options,
		CorrectOptions: req.CorrectOptions,
		MultiSelect:    req.MultiSelect,
		Marks:          req.Marks,
		NegativeMarks:  req.NegativeMarks,
		OrderNum:       req.OrderNum,
	}
	if err := s.questionRepo.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	return q, nil
}

// AddProblem appends a coding problem to an UPCOMING contest.
func (s *ContestService) AddProblem(ctx context.Context, educatorID int, contestID uuid.UUID, req *model.AddProblemRequest) (*model.Problem, error) {
	contest, err := s.ownedContest(ctx, contestID, educatorID)
	if err != nil {
		return nil, err
	}
	if contest.Phase != model.PhaseUpcoming {
		return nil, ErrInvalidPhase
	}

	p := &model.Problem{
		ID:        uuid.New(),
		ContestID: contestID,
		Title:     req.Title,
		Statement: req.Statement,
		MaxMarks:  req.MaxMarks,
		OrderNum:  req.OrderNum,
	}
	if err := s.questionRepo.CreateProblem(ctx, p); err != nil {
		return nil, fmt.Errorf("create problem: %w", err)
	}
	return p, nil
}

// ListQuestions returns a contest's questions including keys (owner view).
func (s *ContestService) ListQuestions(ctx context.Context, educatorID int, contestID uuid.UUID) ([]model.Question, error) {
	if _, err := s.ownedContest(ctx, contestID, educatorID); err != nil {
		return nil, err
	}
	return s.questionRepo.ListByContest(ctx, contestID)
}

func (s *ContestService) ownedContest(ctx context.Context, contestID uuid.UUID, educatorID int) (*model.Contest, error) {
	contest, err := s.contestRepo.GetByID(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("get contest: %w", err)
	}
	if educatorID != 0 && (contest.Owner.Kind != model.OwnerKindEducator || contest.Owner.ID != educatorID) {
		return nil, ErrNotContestOwner
	}
	return contest, nil
}

func buildAnswerKey(contestID uuid.UUID, questions []model.Question, problems []model.Problem) *model.AnswerKey {
	key := &model.AnswerKey{
		ContestID:  contestID,
		Questions:  make([]model.QuestionKey, len(questions)),
		ProblemIDs: make([]uuid.UUID, len(problems)),
	}
	for i, q := range questions {
		key.Questions[i] = model.QuestionKey{
			QuestionID:     q.ID,
			CorrectOptions: q.CorrectOptions,
			MultiSelect:    q.MultiSelect,
			Marks:          q.Marks,
			NegativeMarks:  q.NegativeMarks,
		}
	}
	for i, p := range problems {
		key.ProblemIDs[i] = p.ID
	}
	return key
}
