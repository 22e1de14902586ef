package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prepdesk/prepdesk-backend/internal/model"
)

// ResultRepository handles persisted attempt results.
// Results are immutable; the insert is keyed by the attempt engine's result
// ID so a retried submission after a half-failed write cannot double-count.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// SaveResult inserts a result. Replays of the same result ID are no-ops.
func (r *ResultRepository) SaveResult(ctx context.Context, res *model.Result) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO results
		   (id, exam_id, student_id, student_name, roll_number,
		    score, total, percentage, answers, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO NOTHING`,
		res.ID, res.ExamID, res.StudentID, res.StudentName, res.RollNumber,
		res.Score, res.Total, res.Percentage, res.Answers, res.SubmittedAt)
	return err
}

// GetByID retrieves a single result.
func (r *ResultRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Result, error) {
	res := &model.Result{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, student_id, student_name, roll_number,
		        score, total, percentage, answers, submitted_at
		 FROM results WHERE id = $1`, id,
	).Scan(&res.ID, &res.ExamID, &res.StudentID, &res.StudentName, &res.RollNumber,
		&res.Score, &res.Total, &res.Percentage, &res.Answers, &res.SubmittedAt)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ListByExam retrieves all results for an exam, score descending with
// earlier submissions first among ties. The ordering matches scoring.Rank
// so leaderboard reads can use either path interchangeably.
func (r *ResultRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Result, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, student_id, student_name, roll_number,
		        score, total, percentage, answers, submitted_at
		 FROM results WHERE exam_id = $1
		 ORDER BY score DESC, submitted_at ASC`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.Result
	for rows.Next() {
		var res model.Result
		if err := rows.Scan(&res.ID, &res.ExamID, &res.StudentID, &res.StudentName, &res.RollNumber,
			&res.Score, &res.Total, &res.Percentage, &res.Answers, &res.SubmittedAt); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// ListByStudent retrieves a student's exam history, newest first.
func (r *ResultRepository) ListByStudent(ctx context.Context, studentID int) ([]model.ExamHistoryEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT r.id, r.exam_id, e.name, r.score, r.total, r.percentage, r.submitted_at
		 FROM results r
		 JOIN exams e ON r.exam_id = e.id
		 WHERE r.student_id = $1
		 ORDER BY r.submitted_at DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.ExamHistoryEntry
	for rows.Next() {
		var h model.ExamHistoryEntry
		if err := rows.Scan(&h.ResultID, &h.ExamID, &h.ExamName, &h.Score, &h.Total, &h.Percentage, &h.SubmittedAt); err != nil {
			return nil, err
		}
		entries = append(entries, h)
	}
	return entries, rows.Err()
}

// Delete removes a result. Administrative use only.
func (r *ResultRepository) Delete(ctx context.Context, examID, resultID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM results WHERE id = $1 AND exam_id = $2`, resultID, examID)
	return err
}
