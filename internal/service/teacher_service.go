package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/prepdesk/prepdesk-backend/internal/model"
	"github.com/prepdesk/prepdesk-backend/internal/repository"
)

// TeacherService handles teacher accounts.
type TeacherService struct {
	teacherRepo *repository.TeacherRepository
	auth        *AuthService
	log         zerolog.Logger
}

// NewTeacherService creates a new TeacherService.
func NewTeacherService(teacherRepo *repository.TeacherRepository, auth *AuthService, log zerolog.Logger) *TeacherService {
	return &TeacherService{
		teacherRepo: teacherRepo,
		auth:        auth,
		log:         log.With().Str("component", "teacher_service").Logger(),
	}
}

// Register creates a teacher account with a bcrypt-hashed password.
func (s *TeacherService) Register(ctx context.Context, req *model.RegisterTeacherRequest) (*model.Teacher, error) {
	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	teacher := &model.Teacher{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
	}

	if err := s.teacherRepo.Create(ctx, teacher); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailInUse
		}
		return nil, fmt.Errorf("create teacher: %w", err)
	}

	s.log.Info().Int("teacher_id", teacher.ID).Msg("Teacher registered")
	return teacher, nil
}

// Login checks credentials and issues a teacher token.
func (s *TeacherService) Login(ctx context.Context, email, password string) (string, *model.Teacher, error) {
	teacher, err := s.teacherRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("lookup teacher: %w", err)
	}

	if err := s.auth.CheckPassword(teacher.PasswordHash, password); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.auth.GenerateTeacherToken(teacher.ID)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return token, teacher, nil
}

// GetProfile retrieves a teacher's own profile.
func (s *TeacherService) GetProfile(ctx context.Context, teacherID int) (*model.Teacher, error) {
	return s.teacherRepo.GetByID(ctx, teacherID)
}

// List returns all teacher accounts, newest first. Any teacher can see the
// roster; there is no separate admin principal.
func (s *TeacherService) List(ctx context.Context) ([]model.Teacher, error) {
	teachers, err := s.teacherRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	if teachers == nil {
		teachers = []model.Teacher{}
	}
	return teachers, nil
}

// Delete removes a teacher account. Exams owned by the account cascade at
// the DB layer, taking their questions and results with them.
func (s *TeacherService) Delete(ctx context.Context, teacherID int) error {
	if _, err := s.teacherRepo.GetByID(ctx, teacherID); err != nil {
		return err
	}

	if err := s.teacherRepo.Delete(ctx, teacherID); err != nil {
		return fmt.Errorf("delete teacher: %w", err)
	}

	s.log.Info().Int("teacher_id", teacherID).Msg("Teacher deleted")
	return nil
}
