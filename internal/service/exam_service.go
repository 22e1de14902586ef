package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/prepdesk/prepdesk-backend/internal/config"
	"github.com/prepdesk/prepdesk-backend/internal/model"
	"github.com/prepdesk/prepdesk-backend/internal/repository"
	"github.com/prepdesk/prepdesk-backend/internal/response"
)

// Domain errors.
var (
	ErrNotExamOwner      = errors.New("not the owner of this exam")
	ErrNoQuestions       = errors.New("exam has no questions, cannot publish")
	ErrExamNotDraft      = errors.New("exam status is not DRAFT")
	ErrExamNotPublished  = errors.New("exam status is not PUBLISHED")
	ErrInvalidAccessCode = errors.New("no published exam matches this access code")
)

// ExamService handles exam definition logic and the Redis fast lane for
// published exams: the student payload, the answer key, and the access-code
// index all live in Redis once an exam is published.
type ExamService struct {
	examRepo     *repository.ExamRepository
	questionRepo *repository.QuestionRepository
	rdb          *redis.Client
	codeLength   int
	log          zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(
	examRepo *repository.ExamRepository,
	questionRepo *repository.QuestionRepository,
	rdb *redis.Client,
	codeLength int,
	log zerolog.Logger,
) *ExamService {
	return &ExamService{
		examRepo:     examRepo,
		questionRepo: questionRepo,
		rdb:          rdb,
		codeLength:   codeLength,
		log:          log.With().Str("component", "exam_service").Logger(),
	}
}

// Create inserts a new DRAFT exam with a freshly generated access code.
func (s *ExamService) Create(ctx context.Context, exam *model.Exam) error {
	code, err := GenerateAccessCode(s.codeLength)
	if err != nil {
		return fmt.Errorf("generate access code: %w", err)
	}

	exam.AccessCode = code
	exam.Status = model.ExamStatusDraft
	return s.examRepo.Create(ctx, exam)
}

// GetOwned retrieves an exam and verifies ownership.
func (s *ExamService) GetOwned(ctx context.Context, examID uuid.UUID, teacherID int) (*model.Exam, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam.TeacherID != teacherID {
		return nil, ErrNotExamOwner
	}
	return exam, nil
}

// ListByTeacher retrieves a teacher's exams with pagination.
func (s *ExamService) ListByTeacher(ctx context.Context, teacherID, page, perPage int) ([]model.Exam, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	limit := perPage
	offset := (page - 1) * perPage

	exams, total, err := s.examRepo.ListByTeacherPaginated(ctx, teacherID, limit, offset)
	if err != nil {
		return nil, nil, err
	}

	if exams == nil {
		exams = []model.Exam{}
	}

	totalPages := (total + perPage - 1) / perPage

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	}

	return exams, pagination, nil
}

// Update modifies a draft exam's name and duration.
func (s *ExamService) Update(ctx context.Context, teacherID int, exam *model.Exam) error {
	existing, err := s.GetOwned(ctx, exam.ID, teacherID)
	if err != nil {
		return err
	}
	if existing.Status != model.ExamStatusDraft {
		return ErrExamNotDraft
	}

	if exam.Name == "" {
		exam.Name = existing.Name
	}
	if exam.DurationMinutes == 0 {
		exam.DurationMinutes = existing.DurationMinutes
	}

	// Immutable fields come back from the loaded row so the caller gets a
	// complete exam.
	exam.TeacherID = existing.TeacherID
	exam.AccessCode = existing.AccessCode
	exam.Status = existing.Status
	exam.CreatedAt = existing.CreatedAt

	return s.examRepo.Update(ctx, exam)
}

// Delete removes an exam in any status and drops its cache entries.
func (s *ExamService) Delete(ctx context.Context, examID uuid.UUID, teacherID int) error {
	exam, err := s.GetOwned(ctx, examID, teacherID)
	if err != nil {
		return err
	}

	if err := s.examRepo.Delete(ctx, examID); err != nil {
		return err
	}

	s.dropCache(ctx, exam)
	return nil
}

// ─── Question operations (keyed by question ID) ────────────────────────

// ListQuestions returns an exam's questions in paper order.
func (s *ExamService) ListQuestions(ctx context.Context, examID uuid.UUID, teacherID int) ([]model.Question, error) {
	if _, err := s.GetOwned(ctx, examID, teacherID); err != nil {
		return nil, err
	}
	return s.questionRepo.ListByExam(ctx, examID)
}

// AddQuestion appends a question to the end of the exam's order.
func (s *ExamService) AddQuestion(ctx context.Context, teacherID int, q *model.Question) error {
	exam, err := s.GetOwned(ctx, q.ExamID, teacherID)
	if err != nil {
		return err
	}

	if err := s.questionRepo.Create(ctx, q); err != nil {
		return err
	}
	return s.rewarmIfPublished(ctx, exam)
}

// UpdateQuestion replaces a question in place.
func (s *ExamService) UpdateQuestion(ctx context.Context, teacherID int, q *model.Question) error {
	exam, err := s.GetOwned(ctx, q.ExamID, teacherID)
	if err != nil {
		return err
	}

	if err := s.questionRepo.Update(ctx, q); err != nil {
		return err
	}
	return s.rewarmIfPublished(ctx, exam)
}

// DeleteQuestion removes a question; later questions shift down one slot.
func (s *ExamService) DeleteQuestion(ctx context.Context, teacherID int, examID, questionID uuid.UUID) error {
	exam, err := s.GetOwned(ctx, examID, teacherID)
	if err != nil {
		return err
	}

	if err := s.questionRepo.Delete(ctx, examID, questionID); err != nil {
		return err
	}
	return s.rewarmIfPublished(ctx, exam)
}

// rewarmIfPublished refreshes the Redis payload after a question mutation
// so students joining a published exam always see the current paper.
func (s *ExamService) rewarmIfPublished(ctx context.Context, exam *model.Exam) error {
	if exam.Status != model.ExamStatusPublished {
		return nil
	}
	return s.WarmExamCache(ctx, exam)
}

// ─── Publishing and the Redis fast lane ────────────────────────────────

// Publish changes exam status to PUBLISHED and caches the payload, answer
// key, and access-code index in Redis.
func (s *ExamService) Publish(ctx context.Context, examID uuid.UUID, teacherID int) error {
	exam, err := s.GetOwned(ctx, examID, teacherID)
	if err != nil {
		return err
	}
	if exam.Status != model.ExamStatusDraft {
		return ErrExamNotDraft
	}

	if err := s.WarmExamCache(ctx, exam); err != nil {
		return err
	}

	if err := s.examRepo.UpdateStatus(ctx, examID, model.ExamStatusPublished); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	s.log.Info().Str("exam_id", examID.String()).Str("access_code", exam.AccessCode).Msg("Exam published")
	return nil
}

// Archive takes a published exam out of circulation: students can no longer
// resolve its access code, existing results stay queryable.
func (s *ExamService) Archive(ctx context.Context, examID uuid.UUID, teacherID int) error {
	exam, err := s.GetOwned(ctx, examID, teacherID)
	if err != nil {
		return err
	}
	if exam.Status != model.ExamStatusPublished {
		return ErrExamNotPublished
	}

	if err := s.examRepo.UpdateStatus(ctx, examID, model.ExamStatusArchived); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	s.dropCache(ctx, exam)
	s.log.Info().Str("exam_id", examID.String()).Msg("Exam archived")
	return nil
}

// WarmExamCache loads an exam's payload, answer key, and code index from
// PostgreSQL into Redis.
func (s *ExamService) WarmExamCache(ctx context.Context, exam *model.Exam) error {
	questions, err := s.questionRepo.ListByExam(ctx, exam.ID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	// Build student-facing payload (without correct options).
	studentQuestions := make([]model.QuestionForStudent, len(questions))
	for i, q := range questions {
		studentQuestions[i] = model.QuestionForStudent{
			ID:           q.ID,
			QuestionText: q.QuestionText,
			Options:      q.Options,
			Position:     q.Position,
		}
	}

	payload := model.ExamPayload{
		ExamID:    exam.ID,
		TeacherID: exam.TeacherID,
		Name:      exam.Name,
		Duration:  exam.DurationMinutes,
		Questions: studentQuestions,
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	answerKey := make(map[string]interface{}, len(questions))
	for _, q := range questions {
		answerKey[q.ID.String()] = q.CorrectOption
	}

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.ExamPayloadKey(exam.ID.String()), payloadJSON, 0)
	pipe.Del(ctx, config.CacheKey.ExamAnswerKey(exam.ID.String()))
	pipe.HSet(ctx, config.CacheKey.ExamAnswerKey(exam.ID.String()), answerKey)
	pipe.Set(ctx, config.CacheKey.ExamCodeKey(exam.AccessCode), exam.ID.String(), 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("exam_id", exam.ID.String()).
		Int("questions", len(questions)).
		Msg("Cache warmed")
	return nil
}

// dropCache removes all Redis entries for an exam. Best effort.
func (s *ExamService) dropCache(ctx context.Context, exam *model.Exam) {
	s.rdb.Del(ctx,
		config.CacheKey.ExamPayloadKey(exam.ID.String()),
		config.CacheKey.ExamAnswerKey(exam.ID.String()),
		config.CacheKey.ExamCodeKey(exam.AccessCode),
		config.CacheKey.ExamLeaderboardKey(exam.ID.String()),
	)
}

// PrewarmAllCaches loads all published exams into Redis on application
// startup so the first student join never races a lazy load.
func (s *ExamService) PrewarmAllCaches(ctx context.Context) error {
	exams, err := s.examRepo.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published exams: %w", err)
	}

	if len(exams) == 0 {
		s.log.Info().Msg("No published exams to prewarm")
		return nil
	}

	warmed := 0
	for i := range exams {
		if err := s.WarmExamCache(ctx, &exams[i]); err != nil {
			s.log.Warn().
				Err(err).
				Str("exam_id", exams[i].ID.String()).
				Msg("Failed to warm exam, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(exams)).
		Msg("Prewarming complete")
	return nil
}

// ResolveAccessCode maps an access code to the published exam payload.
// Fast path is the Redis code index; a cache miss falls back to PostgreSQL
// and self-heals the index.
func (s *ExamService) ResolveAccessCode(ctx context.Context, code string) (*model.ExamPayload, error) {
	examIDStr, err := s.rdb.Get(ctx, config.CacheKey.ExamCodeKey(normalizeCode(code))).Result()
	if err == nil {
		examID, parseErr := uuid.Parse(examIDStr)
		if parseErr == nil {
			if payload, payloadErr := s.GetExamPayload(ctx, examID); payloadErr == nil {
				return payload, nil
			}
		}
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("code index lookup: %w", err)
	}

	// Cache miss: source of truth is PostgreSQL.
	exam, err := s.examRepo.GetByAccessCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidAccessCode
		}
		return nil, fmt.Errorf("lookup access code: %w", err)
	}
	if exam.Status != model.ExamStatusPublished {
		return nil, ErrInvalidAccessCode
	}

	// Self-heal: rewarm so the next resolve hits the fast path.
	if err := s.WarmExamCache(ctx, exam); err != nil {
		return nil, err
	}
	return s.GetExamPayload(ctx, exam.ID)
}

// GetExamPayload retrieves the cached student payload from Redis.
func (s *ExamService) GetExamPayload(ctx context.Context, examID uuid.UUID) (*model.ExamPayload, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.ExamPayloadKey(examID.String())).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrExamNotPublished
		}
		return nil, fmt.Errorf("get payload: %w", err)
	}

	var payload model.ExamPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &payload, nil
}

// GetAnswerKey retrieves the answer key from Redis for in-RAM grading.
func (s *ExamService) GetAnswerKey(ctx context.Context, examID uuid.UUID) (map[string]string, error) {
	result, err := s.rdb.HGetAll(ctx, config.CacheKey.ExamAnswerKey(examID.String())).Result()
	if err != nil {
		return nil, fmt.Errorf("get answer key: %w", err)
	}
	if len(result) == 0 {
		return nil, errors.New("answer key not found in cache")
	}
	return result, nil
}

// normalizeCode upper-cases a human-entered access code.
func normalizeCode(code string) string {
	normalized := make([]byte, len(code))
	for i := 0; i < len(code); i++ {
		c := code[i]
		if 'a' <= c && c <= 'z' {
			c -= 'a' - 'A'
		}
		normalized[i] = c
	}
	return string(normalized)
}
