package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/prepdesk/prepdesk-backend/internal/middleware"
	"github.com/prepdesk/prepdesk-backend/internal/model"
	"github.com/prepdesk/prepdesk-backend/internal/response"
	"github.com/prepdesk/prepdesk-backend/internal/service"
	"github.com/prepdesk/prepdesk-backend/internal/validator"
)

// QuestionHandler handles question authoring within an exam.
type QuestionHandler struct {
	examService *service.ExamService
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(examService *service.ExamService) *QuestionHandler {
	return &QuestionHandler{examService: examService}
}

// List godoc
// GET /api/v1/teacher/exams/:examId/questions
func (h *QuestionHandler) List(c *gin.Context) {
	claims := middleware.GetClaims(c)

	examID, err := uuid.Parse(c.Param("examId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	questions, err := h.examService.ListQuestions(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		failOwned(c, err)
		return
	}
	if questions == nil {
		questions = []model.Question{}
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// Add godoc
// POST /api/v1/teacher/exams/:examId/questions
func (h *QuestionHandler) Add(c *gin.Context) {
	claims := middleware.GetClaims(c)

	examID, err := uuid.Parse(c.Param("examId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.AddQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question := &model.Question{
		ExamID:        examID,
		QuestionText:  req.QuestionText,
		Options:       req.Options,
		CorrectOption: req.CorrectOption,
	}

	if err := h.examService.AddQuestion(c.Request.Context(), claims.UserID, question); err != nil {
		failOwned(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"question": question})
}

// Update godoc
// PUT /api/v1/teacher/exams/:examId/questions/:questionId
func (h *QuestionHandler) Update(c *gin.Context) {
	claims := middleware.GetClaims(c)

	examID, err := uuid.Parse(c.Param("examId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	questionID, err := uuid.Parse(c.Param("questionId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question := &model.Question{
		ID:            questionID,
		ExamID:        examID,
		QuestionText:  req.QuestionText,
		Options:       req.Options,
		CorrectOption: req.CorrectOption,
	}

	if err := h.examService.UpdateQuestion(c.Request.Context(), claims.UserID, question); err != nil {
		failOwned(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question": question})
}

// Delete godoc
// DELETE /api/v1/teacher/exams/:examId/questions/:questionId
// Later questions shift down to keep positions contiguous.
func (h *QuestionHandler) Delete(c *gin.Context) {
	claims := middleware.GetClaims(c)

	examID, err := uuid.Parse(c.Param("examId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	questionID, err := uuid.Parse(c.Param("questionId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.examService.DeleteQuestion(c.Request.Context(), claims.UserID, examID, questionID); err != nil {
		failOwned(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}
