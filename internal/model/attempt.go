package model

// JoinExamRequest is the public join: an access code plus the identity the
// student types in. No account required.
type JoinExamRequest struct {
	AccessCode  string `json:"access_code" binding:"required,len=6,alphanum"`
	StudentName string `json:"student_name" binding:"required,min=2,max=100"`
	RollNumber  string `json:"roll_number" binding:"required,min=1,max=50"`
}

// JoinExamAuthRequest is the authenticated join: identity comes from the
// student's account.
type JoinExamAuthRequest struct {
	AccessCode string `json:"access_code" binding:"required,len=6,alphanum"`
	RollNumber string `json:"roll_number" binding:"omitempty,max=50"`
}

// SelectAnswerRequest records one answer on an in-flight attempt.
type SelectAnswerRequest struct {
	QuestionID string `json:"question_id" binding:"required,uuid"`
	Answer     string `json:"answer" binding:"required,oneof=A B C D"`
}

// NavigateRequest moves the current-question pointer.
type NavigateRequest struct {
	Index *int `json:"index" binding:"required,min=0"`
}
