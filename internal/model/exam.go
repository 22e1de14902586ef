package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the possible states of an exam.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "DRAFT"
	ExamStatusPublished ExamStatus = "PUBLISHED"
	ExamStatusArchived  ExamStatus = "ARCHIVED"
)

// Exam represents an exam entity owned by a teacher.
type Exam struct {
	ID              uuid.UUID  `json:"id"`
	TeacherID       int        `json:"teacher_id"`
	Name            string     `json:"name"`
	DurationMinutes int        `json:"duration_minutes"`
	AccessCode      string     `json:"access_code"`
	Status          ExamStatus `json:"status"`
	QuestionCount   int        `json:"question_count,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CreateExamRequest is the payload for creating a new exam.
// The access code is generated server-side, never supplied by the caller.
type CreateExamRequest struct {
	Name            string `json:"name" binding:"required,min=3,max=255"`
	DurationMinutes int    `json:"duration_minutes" binding:"required,min=1,max=480"`
}

// UpdateExamRequest is the payload for updating a draft exam.
type UpdateExamRequest struct {
	Name            string `json:"name" binding:"omitempty,min=3,max=255"`
	DurationMinutes int    `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
}

// ExamPayload is the Redis-cached payload sent to students (no correct answers).
type ExamPayload struct {
	ExamID    uuid.UUID            `json:"exam_id"`
	TeacherID int                  `json:"teacher_id"`
	Name      string               `json:"name"`
	Duration  int                  `json:"duration_minutes"`
	Questions []QuestionForStudent `json:"questions"`
}

// QuestionForStudent is a question without the correct option, sent to students.
type QuestionForStudent struct {
	ID           uuid.UUID `json:"id"`
	QuestionText string    `json:"question_text"`
	Options      []string  `json:"options"`
	Position     int       `json:"position"`
}
