package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prepdesk/prepdesk-backend/internal/model"
)

// QuestionRepository handles question data access.
// All mutations are keyed by the question's own UUID; positions are a
// derived ordering and get renumbered after every delete, so concurrent
// edits never see a question change identity under them.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByExam retrieves all questions for a given exam, ordered by position.
func (r *QuestionRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, question_text, options, correct_option, position
		 FROM questions WHERE exam_id = $1
		 ORDER BY position`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.ExamID, &q.QuestionText, &q.Options, &q.CorrectOption, &q.Position); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// Create inserts a new question at the end of the exam's order.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (exam_id, question_text, options, correct_option, position)
		 VALUES ($1, $2, $3, $4,
		         (SELECT COALESCE(MAX(position) + 1, 0) FROM questions WHERE exam_id = $1))
		 RETURNING id, position`,
		q.ExamID, q.QuestionText, q.Options, q.CorrectOption,
	).Scan(&q.ID, &q.Position)
}

// Update replaces a question's text, options, and correct option in place.
// The question must belong to the given exam.
func (r *QuestionRepository) Update(ctx context.Context, q *model.Question) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE questions
		 SET question_text = $1, options = $2, correct_option = $3
		 WHERE id = $4 AND exam_id = $5`,
		q.QuestionText, q.Options, q.CorrectOption, q.ID, q.ExamID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete removes a question and closes the position gap it leaves, inside
// one transaction so readers never observe a hole in the ordering.
func (r *QuestionRepository) Delete(ctx context.Context, examID, questionID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var position int
	err = tx.QueryRow(ctx,
		`DELETE FROM questions WHERE id = $1 AND exam_id = $2 RETURNING position`,
		questionID, examID,
	).Scan(&position)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pgx.ErrNoRows
		}
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE questions SET position = position - 1
		 WHERE exam_id = $1 AND position > $2`,
		examID, position); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// CountByExam returns the number of questions in an exam.
func (r *QuestionRepository) CountByExam(ctx context.Context, examID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM questions WHERE exam_id = $1`, examID,
	).Scan(&count)
	return count, err
}
