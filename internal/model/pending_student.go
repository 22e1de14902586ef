package model

import (
	"time"

	"github.com/google/uuid"
)

// PendingStudent is a self-registered signup awaiting teacher approval.
// Approval creates a Student account and deletes this record; rejection
// deletes it with no further trace.
type PendingStudent struct {
	ID              uuid.UUID `json:"id"`
	FullName        string    `json:"full_name"`
	PhoneNumber     string    `json:"phone_number"`
	Email           string    `json:"email"`
	ExamPreparation []string  `json:"exam_preparation"`
	Verified        bool      `json:"verified"`
	CreatedAt       time.Time `json:"created_at"`
}

// StudentSignupRequest is the payload for self-service student signup.
type StudentSignupRequest struct {
	FullName        string   `json:"full_name" binding:"required,min=2,max=100"`
	PhoneNumber     string   `json:"phone_number" binding:"required,min=6,max=20"`
	Email           string   `json:"email" binding:"required,email"`
	ExamPreparation []string `json:"exam_preparation" binding:"required,min=1,dive,required,max=50"`
}

// ApproveStudentRequest carries the out-of-band password that becomes the
// approved student's login credential.
type ApproveStudentRequest struct {
	Password string `json:"password" binding:"required,min=6,max=128"`
}
