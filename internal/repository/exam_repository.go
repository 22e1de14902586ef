package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prepdesk/prepdesk-backend/internal/model"
)

// ExamRepository handles exam data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// GetByID retrieves an exam by its UUID.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	err := r.pool.QueryRow(ctx,
		`SELECT e.id, e.teacher_id, e.name, e.duration_minutes, e.access_code,
		        e.status, e.created_at, e.updated_at,
		        (SELECT COUNT(*) FROM questions q WHERE q.exam_id = e.id)
		 FROM exams e WHERE e.id = $1`, id,
	).Scan(&e.ID, &e.TeacherID, &e.Name, &e.DurationMinutes, &e.AccessCode,
		&e.Status, &e.CreatedAt, &e.UpdatedAt, &e.QuestionCount)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetByAccessCode retrieves an exam by access code, case-insensitively.
// Codes are stored uppercase and matched through a functional index, so
// this replaces the scan-over-all-teachers lookup of the document-store
// design with a single indexed query.
func (r *ExamRepository) GetByAccessCode(ctx context.Context, code string) (*model.Exam, error) {
	e := &model.Exam{}
	err := r.pool.QueryRow(ctx,
		`SELECT e.id, e.teacher_id, e.name, e.duration_minutes, e.access_code,
		        e.status, e.created_at, e.updated_at,
		        (SELECT COUNT(*) FROM questions q WHERE q.exam_id = e.id)
		 FROM exams e WHERE UPPER(e.access_code) = UPPER($1)`, code,
	).Scan(&e.ID, &e.TeacherID, &e.Name, &e.DurationMinutes, &e.AccessCode,
		&e.Status, &e.CreatedAt, &e.UpdatedAt, &e.QuestionCount)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListByTeacherPaginated retrieves exams owned by a teacher with pagination.
func (r *ExamRepository) ListByTeacherPaginated(ctx context.Context, teacherID, limit, offset int) ([]model.Exam, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exams WHERE teacher_id = $1`, teacherID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT e.id, e.teacher_id, e.name, e.duration_minutes, e.access_code,
		        e.status, e.created_at, e.updated_at,
		        (SELECT COUNT(*) FROM questions q WHERE q.exam_id = e.id)
		 FROM exams e
		 WHERE e.teacher_id = $1
		 ORDER BY e.created_at DESC
		 LIMIT $2 OFFSET $3`, teacherID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := rows.Scan(&e.ID, &e.TeacherID, &e.Name, &e.DurationMinutes, &e.AccessCode,
			&e.Status, &e.CreatedAt, &e.UpdatedAt, &e.QuestionCount); err != nil {
			return nil, 0, err
		}
		exams = append(exams, e)
	}
	return exams, total, rows.Err()
}

// ListPublished returns all exams with PUBLISHED status.
// Used for cache prewarming on application startup.
func (r *ExamRepository) ListPublished(ctx context.Context) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, teacher_id, name, duration_minutes, access_code,
		        status, created_at, updated_at
		 FROM exams WHERE status = $1
		 ORDER BY created_at DESC`, model.ExamStatusPublished)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := rows.Scan(&e.ID, &e.TeacherID, &e.Name, &e.DurationMinutes, &e.AccessCode,
			&e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// Create inserts a new exam.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exams (teacher_id, name, duration_minutes, access_code, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		e.TeacherID, e.Name, e.DurationMinutes, e.AccessCode, e.Status,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// Update modifies an exam's name and duration.
func (r *ExamRepository) Update(ctx context.Context, e *model.Exam) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exams SET name = $1, duration_minutes = $2, updated_at = NOW()
		 WHERE id = $3`,
		e.Name, e.DurationMinutes, e.ID)
	return err
}

// UpdateStatus updates an exam's status.
func (r *ExamRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ExamStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exams SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("exam %s not found", id)
	}
	return nil
}

// Delete removes an exam. Questions and results cascade at the DB layer.
func (r *ExamRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
	return err
}
