package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/strivio/contesthub-backend/internal/model"
)

// ContestRepository handles contest data access. It implements both the
// authoring CRUD surface and the engine's ContestStore phase flips.
type ContestRepository struct {
	pool *pgxpool.Pool
}

// NewContestRepository creates a new ContestRepository.
func NewContestRepository(pool *pgxpool.Pool) *ContestRepository {
	return &ContestRepository{pool: pool}
}

const contestColumns = `id, title, description, owner_kind, owner_id, start_time,
	duration_minutes, phase, published, private, access_code_hash, created_at, updated_at`

func scanContest(row pgx.Row) (*model.Contest, error) {
	c := &model.Contest{}
	err := row.Scan(
		&c.ID, &c.Title, &c.Description, &c.Owner.Kind, &c.Owner.ID, &c.StartTime,
		&c.DurationMinutes, &c.Phase, &c.Published, &c.Private, &c.AccessCodeHash,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// GetByID retrieves a contest.
func (r *ContestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Contest, error) {
	return scanContest(r.pool.QueryRow(ctx,
		`SELECT `+contestColumns+` FROM contests WHERE id = $1`, id))
}

// GetContest implements the engine's ContestStore read.
func (r *ContestRepository) GetContest(ctx context.Context, id uuid.UUID) (*model.Contest, error) {
	return r.GetByID(ctx, id)
}

// Create inserts a new contest.
func (r *ContestRepository) Create(ctx context.Context, c *model.Contest) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO contests
			(id, title, description, owner_kind, owner_id, start_time, duration_minutes,
			 phase, published, private, access_code_hash)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING created_at, updated_at`,
		c.ID, c.Title, c.Description, c.Owner.Kind, c.Owner.ID, c.StartTime,
		c.DurationMinutes, c.Phase, c.Published, c.Private, c.AccessCodeHash,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

// Update rewrites a contest's editable fields.
func (r *ContestRepository) Update(ctx context.Context, c *model.Contest) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE contests
		 SET title = $1, description = $2, start_time = $3, duration_minutes = $4,
		     private = $5, access_code_hash = $6, updated_at = now()
		 WHERE id = $7`,
		c.Title, c.Description, c.StartTime, c.DurationMinutes,
		c.Private, c.AccessCodeHash, c.ID)
	return err
}

// Delete removes a contest and its dependent rows (cascaded by schema).
func (r *ContestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM contests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// SetPublished toggles participant visibility.
func (r *ContestRepository) SetPublished(ctx context.Context, id uuid.UUID, published bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE contests SET published = $1, updated_at = now() WHERE id = $2`,
		published, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// ListByOwnerPaginated retrieves an educator's contests, newest first.
func (r *ContestRepository) ListByOwnerPaginated(ctx context.Context, educatorID, limit, offset int) ([]model.Contest, int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM contests WHERE owner_kind = $1 AND owner_id = $2`,
		model.OwnerKindEducator, educatorID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+contestColumns+`
		 FROM contests
		 WHERE owner_kind = $1 AND owner_id = $2
		 ORDER BY start_time DESC
		 LIMIT $3 OFFSET $4`,
		model.OwnerKindEducator, educatorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	contests, err := collectContests(rows)
	return contests, total, err
}

// ListPublishedActive retrieves published contests that are not yet completed.
func (r *ContestRepository) ListPublishedActive(ctx context.Context) ([]model.Contest, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+contestColumns+`
		 FROM contests
		 WHERE published = true AND phase != $1
		 ORDER BY start_time ASC`, model.PhaseCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectContests(rows)
}

// ActivateDue flips every published UPCOMING contest whose start time has
// passed to RUNNING. The phase predicate makes the flip idempotent across
// concurrent sweeps.
func (r *ContestRepository) ActivateDue(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`UPDATE contests
		 SET phase = $1, updated_at = now()
		 WHERE phase = $2 AND published = true AND start_time <= $3
		 RETURNING id`,
		model.PhaseRunning, model.PhaseUpcoming, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListExpiredRunning retrieves RUNNING contests whose window has closed.
func (r *ContestRepository) ListExpiredRunning(ctx context.Context, now time.Time) ([]model.Contest, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+contestColumns+`
		 FROM contests
		 WHERE phase = $1
		   AND start_time + duration_minutes * interval '1 minute' <= $2`,
		model.PhaseRunning, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectContests(rows)
}

// CompleteContest conditionally flips RUNNING → COMPLETED.
func (r *ContestRepository) CompleteContest(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE contests SET phase = $1, updated_at = now()
		 WHERE id = $2 AND phase = $3`,
		model.PhaseCompleted, id, model.PhaseRunning)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func collectContests(rows pgx.Rows) ([]model.Contest, error) {
	var contests []model.Contest
	for rows.Next() {
		var c model.Contest
		if err := rows.Scan(
			&c.ID, &c.Title, &c.Description, &c.Owner.Kind, &c.Owner.ID, &c.StartTime,
			&c.DurationMinutes, &c.Phase, &c.Published, &c.Private, &c.AccessCodeHash,
			&c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		contests = append(contests, c)
	}
	return contests, rows.Err()
}
