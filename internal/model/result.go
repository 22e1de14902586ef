package model

import (
	"time"

	"github.com/google/uuid"
)

// Result is the persisted outcome of a submitted attempt.
// Immutable once created; the only mutation path is administrative deletion.
type Result struct {
	ID          uuid.UUID         `json:"id"`
	ExamID      uuid.UUID         `json:"exam_id"`
	StudentID   *int              `json:"student_id,omitempty"`
	StudentName string            `json:"student_name"`
	RollNumber  string            `json:"roll_number"`
	Score       int               `json:"score"`
	Total       int               `json:"total"`
	Percentage  float64           `json:"percentage"`
	Answers     map[string]string `json:"answers"`
	SubmittedAt time.Time         `json:"submitted_at"`
}

// RankedResult is a Result annotated with its leaderboard position.
// Ties on score share the ordering rule score-desc, submitted-at-asc, so the
// earlier of two equal scores receives the better rank.
type RankedResult struct {
	Rank int `json:"rank"`
	Result
}

// ExamHistoryEntry is a student's own view of one of their results.
type ExamHistoryEntry struct {
	ResultID    uuid.UUID `json:"result_id"`
	ExamID      uuid.UUID `json:"exam_id"`
	ExamName    string    `json:"exam_name"`
	Score       int       `json:"score"`
	Total       int       `json:"total"`
	Percentage  float64   `json:"percentage"`
	SubmittedAt time.Time `json:"submitted_at"`
}
