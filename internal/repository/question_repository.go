package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/strivio/contesthub-backend/internal/model"
)

// QuestionRepository handles question and problem data access. Options are
// stored as jsonb; correct options as text[].
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// Create inserts a new MCQ.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO questions
			(id, contest_id, question_text, options, correct_options,
			 multi_select, marks, negative_marks, order_num)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		q.ID, q.ContestID, q.QuestionText, q.Options, q.CorrectOptions,
		q.MultiSelect, q.Marks, q.NegativeMarks, q.OrderNum)
	return err
}

// ListByContest retrieves a contest's questions in order.
func (r *QuestionRepository) ListByContest(ctx context.Context, contestID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, contest_id, question_text, options, correct_options,
		        multi_select, marks, negative_marks, order_num
		 FROM questions
		 WHERE contest_id = $1
		 ORDER BY order_num ASC`, contestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(
			&q.ID, &q.ContestID, &q.QuestionText, &q.Options, &q.CorrectOptions,
			&q.MultiSelect, &q.Marks, &q.NegativeMarks, &q.OrderNum,
		); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// CreateProblem inserts a new coding problem.
func (r *QuestionRepository) CreateProblem(ctx context.Context, p *model.Problem) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO problems (id, contest_id, title, statement, max_marks, order_num)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.ContestID, p.Title, p.Statement, p.MaxMarks, p.OrderNum)
	return err
}

// ListProblemsByContest retrieves a contest's coding problems in order.
func (r *QuestionRepository) ListProblemsByContest(ctx context.Context, contestID uuid.UUID) ([]model.Problem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, contest_id, title, statement, max_marks, order_num
		 FROM problems
		 WHERE contest_id = $1
		 ORDER BY order_num ASC`, contestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var problems []model.Problem
	for rows.Next() {
		var p model.Problem
		if err := rows.Scan(&p.ID, &p.ContestID, &p.Title, &p.Statement, &p.MaxMarks, &p.OrderNum); err != nil {
			return nil, err
		}
		problems = append(problems, p)
	}
	return problems, rows.Err()
}
