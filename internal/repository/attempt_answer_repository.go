package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AttemptAnswerRepository stores autosaved answers for in-flight attempts.
// Rows exist only while an attempt is live; finishing the attempt purges
// them, since the submitted result carries the final answer map.
type AttemptAnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptAnswerRepository creates a new AttemptAnswerRepository.
func NewAttemptAnswerRepository(pool *pgxpool.Pool) *AttemptAnswerRepository {
	return &AttemptAnswerRepository{pool: pool}
}

// Upsert records the latest answer for a question within an attempt.
func (r *AttemptAnswerRepository) Upsert(ctx context.Context, attemptID, questionID uuid.UUID, answer string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO attempt_answers (attempt_id, question_id, answer, saved_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (attempt_id, question_id)
		 DO UPDATE SET answer = EXCLUDED.answer, saved_at = NOW()`,
		attemptID, questionID, answer)
	return err
}

// ListByAttempt returns the autosaved answers for one attempt.
func (r *AttemptAnswerRepository) ListByAttempt(ctx context.Context, attemptID uuid.UUID) (map[string]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT question_id, answer FROM attempt_answers WHERE attempt_id = $1`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	answers := make(map[string]string)
	for rows.Next() {
		var questionID uuid.UUID
		var answer string
		if err := rows.Scan(&questionID, &answer); err != nil {
			return nil, err
		}
		answers[questionID.String()] = answer
	}
	return answers, rows.Err()
}

// DeleteByAttempt purges all autosaved answers for a finished attempt.
func (r *AttemptAnswerRepository) DeleteByAttempt(ctx context.Context, attemptID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM attempt_answers WHERE attempt_id = $1`, attemptID)
	return err
}
