package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/prepdesk/prepdesk-backend/internal/attempt"
	"github.com/prepdesk/prepdesk-backend/internal/middleware"
	"github.com/prepdesk/prepdesk-backend/internal/model"
	"github.com/prepdesk/prepdesk-backend/internal/response"
	"github.com/prepdesk/prepdesk-backend/internal/service"
	"github.com/prepdesk/prepdesk-backend/internal/validator"
)

// AttemptHandler drives the student-side attempt lifecycle over HTTP.
// The WebSocket stream in WSHandler covers the same operations for clients
// that keep a live connection.
type AttemptHandler struct {
	attemptService *service.AttemptService
	studentService *service.StudentService
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attemptService *service.AttemptService, studentService *service.StudentService) *AttemptHandler {
	return &AttemptHandler{
		attemptService: attemptService,
		studentService: studentService,
	}
}

// Join godoc
// POST /api/v1/attempts/join
// Public entry: access code plus typed-in identity starts the countdown.
func (h *AttemptHandler) Join(c *gin.Context) {
	var req model.JoinExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student := attempt.Student{
		Name:       req.StudentName,
		RollNumber: req.RollNumber,
	}

	h.startAttempt(c, req.AccessCode, student)
}

// JoinAuthenticated godoc
// POST /api/v1/student/attempts/join
// Identity comes from the logged-in account; results link back to it.
func (h *AttemptHandler) JoinAuthenticated(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.JoinExamAuthRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	account, err := h.studentService.GetProfile(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	student := attempt.Student{
		ID:         &account.ID,
		Name:       account.FullName,
		RollNumber: req.RollNumber,
	}

	h.startAttempt(c, req.AccessCode, student)
}

func (h *AttemptHandler) startAttempt(c *gin.Context, code string, student attempt.Student) {
	a, payload, err := h.attemptService.Join(c.Request.Context(), code, student)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAccessCode):
			response.Fail(c, http.StatusNotFound, response.ErrInvalidAccessCode)
		case errors.Is(err, service.ErrExamNotPublished):
			response.Fail(c, http.StatusConflict, response.ErrExamNotPublished)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"attempt": a.Snapshot(),
		"exam":    payload,
	})
}

// State godoc
// GET /api/v1/attempts/:attemptId
func (h *AttemptHandler) State(c *gin.Context) {
	a, ok := h.lookup(c)
	if !ok {
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": a.Snapshot()})
}

// Answer godoc
// POST /api/v1/attempts/:attemptId/answers
func (h *AttemptHandler) Answer(c *gin.Context) {
	a, ok := h.lookup(c)
	if !ok {
		return
	}

	var req model.SelectAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := a.SelectAnswer(questionID, req.Answer); err != nil {
		failAttempt(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": a.Snapshot()})
}

// Navigate godoc
// POST /api/v1/attempts/:attemptId/navigate
func (h *AttemptHandler) Navigate(c *gin.Context) {
	a, ok := h.lookup(c)
	if !ok {
		return
	}

	var req model.NavigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := a.Navigate(*req.Index); err != nil {
		failAttempt(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": a.Snapshot()})
}

// Submit godoc
// POST /api/v1/attempts/:attemptId/submit
// Idempotent: resubmitting a finished attempt returns the stored result.
func (h *AttemptHandler) Submit(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("attemptId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.attemptService.Submit(c.Request.Context(), attemptID)
	if err != nil {
		failAttempt(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// Abandon godoc
// DELETE /api/v1/attempts/:attemptId
// Discards the attempt; no result is recorded.
func (h *AttemptHandler) Abandon(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("attemptId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.attemptService.Abandon(c.Request.Context(), attemptID); err != nil {
		failAttempt(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

func (h *AttemptHandler) lookup(c *gin.Context) (*attempt.Attempt, bool) {
	attemptID, err := uuid.Parse(c.Param("attemptId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, false
	}

	a, err := h.attemptService.Get(c.Request.Context(), attemptID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
		return nil, false
	}
	return a, true
}

// failAttempt maps engine errors onto API responses.
func failAttempt(c *gin.Context, err error) {
	switch {
	case errors.Is(err, attempt.ErrNoSuchAttempt):
		response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
	case errors.Is(err, attempt.ErrAttemptFinished):
		response.Fail(c, http.StatusConflict, response.ErrAttemptFinished)
	case errors.Is(err, attempt.ErrInvalidAnswer):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidAnswer)
	case errors.Is(err, attempt.ErrUnknownQuestion):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidQuestionRef)
	case errors.Is(err, attempt.ErrIndexOutOfRange):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrPersistence)
	}
}
