package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prepdesk/prepdesk-backend/internal/model"
)

// PendingStudentRepository handles the signup approval queue.
type PendingStudentRepository struct {
	pool *pgxpool.Pool
}

// NewPendingStudentRepository creates a new PendingStudentRepository.
func NewPendingStudentRepository(pool *pgxpool.Pool) *PendingStudentRepository {
	return &PendingStudentRepository{pool: pool}
}

// Create inserts a new pending signup.
func (r *PendingStudentRepository) Create(ctx context.Context, p *model.PendingStudent) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO pending_students (full_name, phone_number, email, exam_preparation, verified)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		p.FullName, p.PhoneNumber, p.Email, p.ExamPreparation, p.Verified,
	).Scan(&p.ID, &p.CreatedAt)
}

// GetByID retrieves a pending signup.
func (r *PendingStudentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.PendingStudent, error) {
	p := &model.PendingStudent{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, full_name, phone_number, email, exam_preparation, verified, created_at
		 FROM pending_students WHERE id = $1`, id,
	).Scan(&p.ID, &p.FullName, &p.PhoneNumber, &p.Email, &p.ExamPreparation, &p.Verified, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// List retrieves all pending signups, oldest first so the queue is worked
// in arrival order.
func (r *PendingStudentRepository) List(ctx context.Context) ([]model.PendingStudent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, full_name, phone_number, email, exam_preparation, verified, created_at
		 FROM pending_students ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []model.PendingStudent
	for rows.Next() {
		var p model.PendingStudent
		if err := rows.Scan(&p.ID, &p.FullName, &p.PhoneNumber, &p.Email, &p.ExamPreparation, &p.Verified, &p.CreatedAt); err != nil {
			return nil, err
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// Delete removes a pending signup. Used by rejection; approval deletes
// inside its own transaction instead.
func (r *PendingStudentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM pending_students WHERE id = $1`, id)
	return err
}
