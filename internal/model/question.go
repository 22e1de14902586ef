package model

import (
	"github.com/google/uuid"
)

// OptionLetters are the addressable answer slots of every question.
var OptionLetters = []string{"A", "B", "C", "D"}

// IsOptionLetter reports whether s names one of the four answer slots.
func IsOptionLetter(s string) bool {
	for _, l := range OptionLetters {
		if s == l {
			return true
		}
	}
	return false
}

// Question represents a single multiple-choice exam question.
// Every question carries exactly four options addressed as letters A-D.
type Question struct {
	ID            uuid.UUID `json:"id"`
	ExamID        uuid.UUID `json:"exam_id"`
	QuestionText  string    `json:"question_text"`
	Options       []string  `json:"options"`
	CorrectOption string    `json:"correct_option"`
	Position      int       `json:"position"`
}

// AddQuestionRequest is the payload for adding a question to an exam.
type AddQuestionRequest struct {
	QuestionText  string   `json:"question_text" binding:"required,min=1,max=2000"`
	Options       []string `json:"options" binding:"required,len=4,dive,required,max=500"`
	CorrectOption string   `json:"correct_option" binding:"required,oneof=A B C D"`
}

// UpdateQuestionRequest is the payload for replacing a question in place.
type UpdateQuestionRequest struct {
	QuestionText  string   `json:"question_text" binding:"required,min=1,max=2000"`
	Options       []string `json:"options" binding:"required,len=4,dive,required,max=500"`
	CorrectOption string   `json:"correct_option" binding:"required,oneof=A B C D"`
}
