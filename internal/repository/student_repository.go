package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prepdesk/prepdesk-backend/internal/model"
)

// StudentRepository handles active student account data access.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// GetByEmail retrieves a student by email.
func (r *StudentRepository) GetByEmail(ctx context.Context, email string) (*model.Student, error) {
	s := &model.Student{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, full_name, phone_number, exam_preparation,
		        profile_image, address, blocked, password_hash, created_at, updated_at
		 FROM students WHERE email = $1`, email,
	).Scan(&s.ID, &s.Email, &s.FullName, &s.PhoneNumber, &s.ExamPreparation,
		&s.ProfileImage, &s.Address, &s.Blocked, &s.PasswordHash, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByID retrieves a student by ID.
func (r *StudentRepository) GetByID(ctx context.Context, id int) (*model.Student, error) {
	s := &model.Student{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, full_name, phone_number, exam_preparation,
		        profile_image, address, blocked, password_hash, created_at, updated_at
		 FROM students WHERE id = $1`, id,
	).Scan(&s.ID, &s.Email, &s.FullName, &s.PhoneNumber, &s.ExamPreparation,
		&s.ProfileImage, &s.Address, &s.Blocked, &s.PasswordHash, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListPaginated retrieves students with pagination.
func (r *StudentRepository) ListPaginated(ctx context.Context, limit, offset int) ([]model.Student, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM students`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, email, full_name, phone_number, exam_preparation,
		        profile_image, address, blocked, password_hash, created_at, updated_at
		 FROM students
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var students []model.Student
	for rows.Next() {
		var s model.Student
		if err := rows.Scan(&s.ID, &s.Email, &s.FullName, &s.PhoneNumber, &s.ExamPreparation,
			&s.ProfileImage, &s.Address, &s.Blocked, &s.PasswordHash, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		students = append(students, s)
	}
	return students, total, rows.Err()
}

// UpdateProfile modifies the student-editable profile fields.
// Nil pointers leave the current value untouched.
func (r *StudentRepository) UpdateProfile(ctx context.Context, id int, address, profileImage *string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE students
		 SET address = COALESCE($1, address),
		     profile_image = COALESCE($2, profile_image),
		     updated_at = NOW()
		 WHERE id = $3`,
		address, profileImage, id)
	return err
}

// SetBlocked flips the block flag on a student account.
func (r *StudentRepository) SetBlocked(ctx context.Context, id int, blocked bool) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE students SET blocked = $1, updated_at = NOW() WHERE id = $2`,
		blocked, id)
	return err
}

// Delete removes a student account.
func (r *StudentRepository) Delete(ctx context.Context, id int) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM students WHERE id = $1`, id)
	return err
}
