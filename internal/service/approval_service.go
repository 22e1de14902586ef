package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/prepdesk/prepdesk-backend/internal/model"
	"github.com/prepdesk/prepdesk-backend/internal/repository"
)

// Approval errors.
var (
	ErrEmailInUse      = errors.New("email already registered or awaiting approval")
	ErrPendingNotFound = errors.New("pending signup not found")
)

// ApprovalService runs the signup queue: prospective students register and
// a teacher approves or rejects them; approval promotes the record into a
// real student account. Promotion is a single transaction so a pending row
// and its student account never coexist.
type ApprovalService struct {
	pool        *pgxpool.Pool
	pendingRepo *repository.PendingStudentRepository
	studentRepo *repository.StudentRepository
	auth        *AuthService
	log         zerolog.Logger
}

// NewApprovalService creates a new ApprovalService.
func NewApprovalService(
	pool *pgxpool.Pool,
	pendingRepo *repository.PendingStudentRepository,
	studentRepo *repository.StudentRepository,
	auth *AuthService,
	log zerolog.Logger,
) *ApprovalService {
	return &ApprovalService{
		pool:        pool,
		pendingRepo: pendingRepo,
		studentRepo: studentRepo,
		auth:        auth,
		log:         log.With().Str("component", "approval_service").Logger(),
	}
}

// Signup files a new pending registration. The email must be unused by both
// active students and the pending queue.
func (s *ApprovalService) Signup(ctx context.Context, req *model.StudentSignupRequest) (*model.PendingStudent, error) {
	if _, err := s.studentRepo.GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailInUse
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check student email: %w", err)
	}

	// Signups arrive ready for approval; there is no separate verification
	// step between filing and the teacher's decision.
	pending := &model.PendingStudent{
		FullName:        req.FullName,
		PhoneNumber:     req.PhoneNumber,
		Email:           req.Email,
		ExamPreparation: req.ExamPreparation,
		Verified:        true,
	}

	if err := s.pendingRepo.Create(ctx, pending); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailInUse
		}
		return nil, fmt.Errorf("create pending signup: %w", err)
	}

	s.log.Info().
		Str("pending_id", pending.ID.String()).
		Str("email", pending.Email).
		Msg("Signup filed")
	return pending, nil
}

// ListPending returns the approval queue in arrival order.
func (s *ApprovalService) ListPending(ctx context.Context) ([]model.PendingStudent, error) {
	pending, err := s.pendingRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		pending = []model.PendingStudent{}
	}
	return pending, nil
}

// Approve promotes a pending signup into a student account with the given
// initial password. The student insert and the pending delete commit
// together or not at all.
func (s *ApprovalService) Approve(ctx context.Context, pendingID uuid.UUID, password string) (*model.Student, error) {
	pending, err := s.pendingRepo.GetByID(ctx, pendingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPendingNotFound
		}
		return nil, fmt.Errorf("load pending: %w", err)
	}

	hash, err := s.auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	student := &model.Student{
		Email:           pending.Email,
		FullName:        pending.FullName,
		PhoneNumber:     pending.PhoneNumber,
		ExamPreparation: pending.ExamPreparation,
		PasswordHash:    hash,
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO students (email, full_name, phone_number, exam_preparation, password_hash)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		student.Email, student.FullName, student.PhoneNumber,
		student.ExamPreparation, student.PasswordHash,
	).Scan(&student.ID, &student.CreatedAt, &student.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailInUse
		}
		return nil, fmt.Errorf("insert student: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM pending_students WHERE id = $1`, pendingID); err != nil {
		return nil, fmt.Errorf("delete pending: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit approval: %w", err)
	}

	s.log.Info().
		Str("pending_id", pendingID.String()).
		Int("student_id", student.ID).
		Msg("Signup approved")
	return student, nil
}

// Reject discards a pending signup. The record is hard-deleted; the
// applicant may register again later.
func (s *ApprovalService) Reject(ctx context.Context, pendingID uuid.UUID) error {
	if _, err := s.pendingRepo.GetByID(ctx, pendingID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPendingNotFound
		}
		return fmt.Errorf("load pending: %w", err)
	}

	if err := s.pendingRepo.Delete(ctx, pendingID); err != nil {
		return fmt.Errorf("delete pending: %w", err)
	}

	s.log.Info().Str("pending_id", pendingID.String()).Msg("Signup rejected")
	return nil
}
