package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/prepdesk/prepdesk-backend/internal/model"
	"github.com/prepdesk/prepdesk-backend/internal/response"
	"github.com/prepdesk/prepdesk-backend/internal/service"
	"github.com/prepdesk/prepdesk-backend/internal/validator"
)

// ApprovalHandler handles student signup and the teacher approval queue.
type ApprovalHandler struct {
	approvalService *service.ApprovalService
}

// NewApprovalHandler creates a new ApprovalHandler.
func NewApprovalHandler(approvalService *service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{approvalService: approvalService}
}

// Signup godoc
// POST /api/v1/auth/student/signup
// Public. Files a pending registration for teacher review.
func (h *ApprovalHandler) Signup(c *gin.Context) {
	var req model.StudentSignupRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	pending, err := h.approvalService.Signup(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrEmailInUse) {
			response.Fail(c, http.StatusConflict, response.ErrEmailInUse)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"pending": pending})
}

// ListPending godoc
// GET /api/v1/teacher/pending-students
func (h *ApprovalHandler) ListPending(c *gin.Context) {
	pending, err := h.approvalService.ListPending(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"pending_students": pending})
}

// Approve godoc
// POST /api/v1/teacher/pending-students/:pendingId/approve
// Promotes a pending signup into a student account.
func (h *ApprovalHandler) Approve(c *gin.Context) {
	pendingID, err := uuid.Parse(c.Param("pendingId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.ApproveStudentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student, err := h.approvalService.Approve(c.Request.Context(), pendingID, req.Password)
	if err != nil {
		failApproval(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"student": student})
}

// Reject godoc
// DELETE /api/v1/teacher/pending-students/:pendingId
func (h *ApprovalHandler) Reject(c *gin.Context) {
	pendingID, err := uuid.Parse(c.Param("pendingId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.approvalService.Reject(c.Request.Context(), pendingID); err != nil {
		failApproval(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

func failApproval(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPendingNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrEmailInUse):
		response.Fail(c, http.StatusConflict, response.ErrEmailInUse)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
