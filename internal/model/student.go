package model

import "time"

// Student represents an active, approved student account.
type Student struct {
	ID              int       `json:"id"`
	Email           string    `json:"email"`
	FullName        string    `json:"full_name"`
	PhoneNumber     string    `json:"phone_number"`
	ExamPreparation []string  `json:"exam_preparation"`
	ProfileImage    *string   `json:"profile_image,omitempty"`
	Address         string    `json:"address"`
	Blocked         bool      `json:"blocked"`
	PasswordHash    string    `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// StudentLoginRequest is the payload for student authentication.
type StudentLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// StudentLoginResponse is returned after successful student login.
type StudentLoginResponse struct {
	Token   string  `json:"token"`
	Student Student `json:"student"`
}

// UpdateProfileRequest is the payload for a student editing their own profile.
type UpdateProfileRequest struct {
	Address      *string `json:"address" binding:"omitempty,max=500"`
	ProfileImage *string `json:"profile_image" binding:"omitempty,max=500"`
}
