package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/prepdesk/prepdesk-backend/internal/model"
	"github.com/prepdesk/prepdesk-backend/internal/repository"
	"github.com/prepdesk/prepdesk-backend/internal/response"
)

// ErrAccountBlocked is returned when a blocked student tries to log in.
var ErrAccountBlocked = errors.New("account is blocked")

// StudentService handles active student accounts and profiles.
type StudentService struct {
	studentRepo *repository.StudentRepository
	resultRepo  *repository.ResultRepository
	auth        *AuthService
	log         zerolog.Logger
}

// NewStudentService creates a new StudentService.
func NewStudentService(
	studentRepo *repository.StudentRepository,
	resultRepo *repository.ResultRepository,
	auth *AuthService,
	log zerolog.Logger,
) *StudentService {
	return &StudentService{
		studentRepo: studentRepo,
		resultRepo:  resultRepo,
		auth:        auth,
		log:         log.With().Str("component", "student_service").Logger(),
	}
}

// Login checks credentials and issues a student token. A blocked account
// or an already-active session on another device is rejected.
func (s *StudentService) Login(ctx context.Context, email, password string) (string, *model.Student, error) {
	student, err := s.studentRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("lookup student: %w", err)
	}

	if err := s.auth.CheckPassword(student.PasswordHash, password); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if student.Blocked {
		return "", nil, ErrAccountBlocked
	}

	token, err := s.auth.GenerateStudentToken(ctx, student.ID)
	if err != nil {
		return "", nil, err
	}
	return token, student, nil
}

// Logout releases the student's device session.
func (s *StudentService) Logout(ctx context.Context, studentID int) error {
	return s.auth.ResetStudentSession(ctx, studentID)
}

// GetProfile retrieves a student's own profile.
func (s *StudentService) GetProfile(ctx context.Context, studentID int) (*model.Student, error) {
	return s.studentRepo.GetByID(ctx, studentID)
}

// UpdateProfile applies the student-editable fields. Nil fields in the
// request keep their current values.
func (s *StudentService) UpdateProfile(ctx context.Context, studentID int, req *model.UpdateProfileRequest) (*model.Student, error) {
	if err := s.studentRepo.UpdateProfile(ctx, studentID, req.Address, req.ProfileImage); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.studentRepo.GetByID(ctx, studentID)
}

// History returns the student's past exam results, most recent first.
func (s *StudentService) History(ctx context.Context, studentID int) ([]model.ExamHistoryEntry, error) {
	history, err := s.resultRepo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []model.ExamHistoryEntry{}
	}
	return history, nil
}

// List retrieves students with pagination, for the teacher console.
func (s *StudentService) List(ctx context.Context, page, perPage int) ([]model.Student, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	students, total, err := s.studentRepo.ListPaginated(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if students == nil {
		students = []model.Student{}
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	return students, pagination, nil
}

// SetBlocked blocks or unblocks a student. Blocking also tears down any
// live session so the device cannot keep using its token's session slot.
func (s *StudentService) SetBlocked(ctx context.Context, studentID int, blocked bool) error {
	if err := s.studentRepo.SetBlocked(ctx, studentID, blocked); err != nil {
		return fmt.Errorf("set blocked: %w", err)
	}
	if blocked {
		if err := s.auth.ResetStudentSession(ctx, studentID); err != nil {
			s.log.Warn().Err(err).Int("student_id", studentID).Msg("Failed to reset session on block")
		}
	}
	s.log.Info().Int("student_id", studentID).Bool("blocked", blocked).Msg("Block flag changed")
	return nil
}

// ResetSession clears a student's device session so they can log in from a
// new device. Teacher-only operation.
func (s *StudentService) ResetSession(ctx context.Context, studentID int) error {
	if _, err := s.studentRepo.GetByID(ctx, studentID); err != nil {
		return err
	}
	return s.auth.ResetStudentSession(ctx, studentID)
}

// Delete removes a student account and their session.
func (s *StudentService) Delete(ctx context.Context, studentID int) error {
	if err := s.auth.ResetStudentSession(ctx, studentID); err != nil {
		s.log.Warn().Err(err).Int("student_id", studentID).Msg("Failed to reset session on delete")
	}
	return s.studentRepo.Delete(ctx, studentID)
}
