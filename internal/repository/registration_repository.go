package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/strivio/contesthub-backend/internal/model"
)

// RegistrationRepository handles registration data access. The status
// transitions are conditional updates so they stay atomic under races.
type RegistrationRepository struct {
	pool *pgxpool.Pool
}

// NewRegistrationRepository creates a new RegistrationRepository.
func NewRegistrationRepository(pool *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{pool: pool}
}

// CreateRegistration inserts a new REGISTERED row. The unique
// (contest_id, participant_id) index turns duplicates into model.ErrConflict.
func (r *RegistrationRepository) CreateRegistration(ctx context.Context, reg *model.Registration) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO registrations (id, contest_id, participant_id, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING registered_at`,
		reg.ID, reg.ContestID, reg.ParticipantID, reg.Status,
	).Scan(&reg.RegisteredAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.ErrConflict
		}
		return err
	}
	return nil
}

// GetRegistration retrieves one participant's enrollment row.
func (r *RegistrationRepository) GetRegistration(ctx context.Context, contestID uuid.UUID, participantID int) (*model.Registration, error) {
	reg := &model.Registration{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, contest_id, participant_id, status, registered_at, started_at, submitted_at
		 FROM registrations
		 WHERE contest_id = $1 AND participant_id = $2`,
		contestID, participantID,
	).Scan(&reg.ID, &reg.ContestID, &reg.ParticipantID, &reg.Status,
		&reg.RegisteredAt, &reg.StartedAt, &reg.SubmittedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return reg, nil
}

// MarkStarted conditionally moves REGISTERED → STARTED.
func (r *RegistrationRepository) MarkStarted(ctx context.Context, contestID uuid.UUID, participantID int, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE registrations
		 SET status = $1, started_at = $2
		 WHERE contest_id = $3 AND participant_id = $4 AND status = $5`,
		model.RegistrationStarted, at, contestID, participantID, model.RegistrationRegistered)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ClaimFinalize is the finalization compare-and-swap. The WHERE clause pins
// the current status to STARTED, so of any number of concurrent callers the
// database lets exactly one through.
func (r *RegistrationRepository) ClaimFinalize(ctx context.Context, contestID uuid.UUID, participantID int, to model.RegistrationStatus, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE registrations
		 SET status = $1, submitted_at = $2
		 WHERE contest_id = $3 AND participant_id = $4 AND status = $5`,
		to, at, contestID, participantID, model.RegistrationStarted)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListStarted returns participants still in STARTED for a contest.
func (r *RegistrationRepository) ListStarted(ctx context.Context, contestID uuid.UUID) ([]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT participant_id FROM registrations
		 WHERE contest_id = $1 AND status = $2
		 ORDER BY participant_id`,
		contestID, model.RegistrationStarted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
