package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/strivio/contesthub-backend/internal/model"
)

// EducatorRepository handles educator account data access.
type EducatorRepository struct {
	pool *pgxpool.Pool
}

// NewEducatorRepository creates a new EducatorRepository.
func NewEducatorRepository(pool *pgxpool.Pool) *EducatorRepository {
	return &EducatorRepository{pool: pool}
}

// GetByEmail retrieves an educator for login.
func (r *EducatorRepository) GetByEmail(ctx context.Context, email string) (*model.Educator, error) {
	e := &model.Educator{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, created_at
		 FROM educators WHERE email = $1`, email,
	).Scan(&e.ID, &e.Email, &e.Name, &e.PasswordHash, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// GetByID retrieves an educator by primary key.
func (r *EducatorRepository) GetByID(ctx context.Context, id int) (*model.Educator, error) {
	e := &model.Educator{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, created_at
		 FROM educators WHERE id = $1`, id,
	).Scan(&e.ID, &e.Email, &e.Name, &e.PasswordHash, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// Create inserts a new educator account.
func (r *EducatorRepository) Create(ctx context.Context, e *model.Educator) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO educators (email, name, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		e.Email, e.Name, e.PasswordHash,
	).Scan(&e.ID, &e.CreatedAt)
}
