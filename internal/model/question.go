package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Question represents a single MCQ belonging to a contest.
type Question struct {
	ID             uuid.UUID       `json:"id"`
	ContestID      uuid.UUID       `json:"contest_id"`
	QuestionText   string          `json:"question_text"`
	Options        json.RawMessage `json:"options"`
	CorrectOptions []string        `json:"correct_options"`
	MultiSelect    bool            `json:"multi_select"`
	Marks          float64         `json:"marks"`
	NegativeMarks  float64         `json:"negative_marks"`
	OrderNum       int             `json:"order_num"`
}

// Problem represents a coding problem belonging to a contest. Verdicts for
// problems come from an external judge; the engine only does bookkeeping.
type Problem struct {
	ID        uuid.UUID `json:"id"`
	ContestID uuid.UUID `json:"contest_id"`
	Title     string    `json:"title"`
	Statement string    `json:"statement"`
	MaxMarks  float64   `json:"max_marks"`
	OrderNum  int       `json:"order_num"`
}

// QuestionForParticipant is a question without the correct answer.
type QuestionForParticipant struct {
	ID           uuid.UUID       `json:"id"`
	QuestionText string          `json:"question_text"`
	Options      json.RawMessage `json:"options"`
	MultiSelect  bool            `json:"multi_select"`
	Marks        float64         `json:"marks"`
	OrderNum     int             `json:"order_num"`
}

// ProblemForParticipant is a problem statement without judge data.
type ProblemForParticipant struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Statement string    `json:"statement"`
	MaxMarks  float64   `json:"max_marks"`
	OrderNum  int       `json:"order_num"`
}

// QuestionKey is the immutable per-question scoring key.
type QuestionKey struct {
	QuestionID     uuid.UUID `json:"question_id"`
	CorrectOptions []string  `json:"correct_options"`
	MultiSelect    bool      `json:"multi_select"`
	Marks          float64   `json:"marks"`
	NegativeMarks  float64   `json:"negative_marks"`
}

// AnswerKey is the immutable snapshot used for scoring one contest.
// Sourced from the contest's question and problem definitions at finalize time.
type AnswerKey struct {
	ContestID  uuid.UUID     `json:"contest_id"`
	Questions  []QuestionKey `json:"questions"`
	ProblemIDs []uuid.UUID   `json:"problem_ids"`
}

// AddQuestionRequest is the payload for adding a question to a contest.
type AddQuestionRequest struct {
	QuestionText   string          `json:"question_text" binding:"required,min=1,max=2000"`
	Options        json.RawMessage `json:"options" binding:"required"`
	CorrectOptions []string        `json:"correct_options" binding:"required,min=1,dive,max=10"`
	MultiSelect    bool            `json:"multi_select"`
	Marks          float64         `json:"marks" binding:"required,gt=0"`
	NegativeMarks  float64         `json:"negative_marks" binding:"min=0"`
	OrderNum       int             `json:"order_num" binding:"min=0"`
}

// AddProblemRequest is the payload for adding a coding problem to a contest.
type AddProblemRequest struct {
	Title     string  `json:"title" binding:"required,min=1,max=255"`
	Statement string  `json:"statement" binding:"required,min=1"`
	MaxMarks  float64 `json:"max_marks" binding:"required,gt=0"`
	OrderNum  int     `json:"order_num" binding:"min=0"`
}
