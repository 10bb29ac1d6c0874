package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/strivio/contesthub-backend/internal/model"
)

// ResultRepository handles finalized result data access. Ranked rows are
// rewritten wholesale per contest; ReplaceResults batches the rewrite with
// a single UNNEST insert inside one transaction.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// UpsertResult writes one participant's finalized row.
func (r *ResultRepository) UpsertResult(ctx context.Context, res *model.ParticipantResult) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO results
			(contest_id, participant_id, mcq_marks, coding_marks, total_marks,
			 rank, percentile, time_taken_seconds, correct, wrong, unanswered,
			 problems_attempted, finalized_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (contest_id, participant_id) DO UPDATE SET
			mcq_marks = EXCLUDED.mcq_marks,
			coding_marks = EXCLUDED.coding_marks,
			total_marks = EXCLUDED.total_marks,
			rank = EXCLUDED.rank,
			percentile = EXCLUDED.percentile,
			time_taken_seconds = EXCLUDED.time_taken_seconds,
			correct = EXCLUDED.correct,
			wrong = EXCLUDED.wrong,
			unanswered = EXCLUDED.unanswered,
			problems_attempted = EXCLUDED.problems_attempted,
			finalized_at = EXCLUDED.finalized_at`,
		res.ContestID, res.ParticipantID, res.MCQMarks, res.CodingMarks, res.TotalMarks,
		res.Rank, res.Percentile, res.TimeTakenSeconds, res.Correct, res.Wrong,
		res.Unanswered, res.ProblemsAttempted, res.FinalizedAt)
	return err
}

// ListResults retrieves every finalized row for a contest, unordered.
func (r *ResultRepository) ListResults(ctx context.Context, contestID uuid.UUID) ([]model.ParticipantResult, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT contest_id, participant_id, mcq_marks, coding_marks, total_marks,
		        rank, percentile, time_taken_seconds, correct, wrong, unanswered,
		        problems_attempted, finalized_at
		 FROM results WHERE contest_id = $1`, contestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectResults(rows)
}

// ReplaceResults rewrites the contest's ranked rows and stats in one
// transaction. The insert unnests parallel arrays rather than issuing one
// statement per row.
func (r *ResultRepository) ReplaceResults(ctx context.Context, contestID uuid.UUID, results []model.ParticipantResult, stats model.AggregateStats, at time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM results WHERE contest_id = $1`, contestID); err != nil {
		return fmt.Errorf("clear results: %w", err)
	}

	if len(results) > 0 {
		n := len(results)
		participantIDs := make([]int, n)
		mcq := make([]float64, n)
		coding := make([]float64, n)
		total := make([]float64, n)
		rank := make([]int, n)
		percentile := make([]float64, n)
		timeTaken := make([]float64, n)
		correct := make([]int, n)
		wrong := make([]int, n)
		unanswered := make([]int, n)
		attempted := make([]int, n)
		finalizedAt := make([]time.Time, n)
		for i, res := range results {
			participantIDs[i] = res.ParticipantID
			mcq[i] = res.MCQMarks
			coding[i] = res.CodingMarks
			total[i] = res.TotalMarks
			rank[i] = res.Rank
			percentile[i] = res.Percentile
			timeTaken[i] = res.TimeTakenSeconds
			correct[i] = res.Correct
			wrong[i] = res.Wrong
			unanswered[i] = res.Unanswered
			attempted[i] = res.ProblemsAttempted
			finalizedAt[i] = res.FinalizedAt
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO results
				(contest_id, participant_id, mcq_marks, coding_marks, total_marks,
				 rank, percentile, time_taken_seconds, correct, wrong, unanswered,
				 problems_attempted, finalized_at)
			 SELECT $1, * FROM unnest(
				$2::int[], $3::float8[], $4::float8[], $5::float8[], $6::int[],
				$7::float8[], $8::float8[], $9::int[], $10::int[], $11::int[],
				$12::int[], $13::timestamptz[])`,
			contestID, participantIDs, mcq, coding, total, rank, percentile,
			timeTaken, correct, wrong, unanswered, attempted, finalizedAt,
		); err != nil {
			return fmt.Errorf("insert results: %w", err)
		}
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO result_sets (contest_id, count, mean, max, min, recomputed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (contest_id) DO UPDATE SET
			count = EXCLUDED.count, mean = EXCLUDED.mean,
			max = EXCLUDED.max, min = EXCLUDED.min,
			recomputed_at = EXCLUDED.recomputed_at`,
		contestID, stats.Count, stats.Mean, stats.Max, stats.Min, at,
	); err != nil {
		return fmt.Errorf("upsert result set: %w", err)
	}

	return tx.Commit(ctx)
}

// GetResultSet retrieves the ranked result set with its stats.
func (r *ResultRepository) GetResultSet(ctx context.Context, contestID uuid.UUID) (*model.ResultSet, error) {
	set := &model.ResultSet{ContestID: contestID}
	err := r.pool.QueryRow(ctx,
		`SELECT count, mean, max, min, published, recomputed_at
		 FROM result_sets WHERE contest_id = $1`, contestID,
	).Scan(&set.Stats.Count, &set.Stats.Mean, &set.Stats.Max, &set.Stats.Min,
		&set.Published, &set.RecomputedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT contest_id, participant_id, mcq_marks, coding_marks, total_marks,
		        rank, percentile, time_taken_seconds, correct, wrong, unanswered,
		        problems_attempted, finalized_at
		 FROM results
		 WHERE contest_id = $1
		 ORDER BY rank ASC`, contestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set.Results, err = collectResults(rows)
	if err != nil {
		return nil, err
	}
	if set.Results == nil {
		set.Results = []model.ParticipantResult{}
	}
	return set, nil
}

// SetResultSetPublished toggles participant visibility of the result set.
func (r *ResultRepository) SetResultSetPublished(ctx context.Context, contestID uuid.UUID, published bool) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO result_sets (contest_id, published)
		 VALUES ($1, $2)
		 ON CONFLICT (contest_id) DO UPDATE SET published = EXCLUDED.published`,
		contestID, published)
	return err
}

// AddCodingMarks applies an asynchronous judge verdict to a finalized row.
func (r *ResultRepository) AddCodingMarks(ctx context.Context, contestID uuid.UUID, participantID int, marks float64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE results
		 SET coding_marks = coding_marks + $1, total_marks = total_marks + $1
		 WHERE contest_id = $2 AND participant_id = $3`,
		marks, contestID, participantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func collectResults(rows pgx.Rows) ([]model.ParticipantResult, error) {
	var results []model.ParticipantResult
	for rows.Next() {
		var res model.ParticipantResult
		if err := rows.Scan(
			&res.ContestID, &res.ParticipantID, &res.MCQMarks, &res.CodingMarks,
			&res.TotalMarks, &res.Rank, &res.Percentile, &res.TimeTakenSeconds,
			&res.Correct, &res.Wrong, &res.Unanswered, &res.ProblemsAttempted,
			&res.FinalizedAt,
		); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
