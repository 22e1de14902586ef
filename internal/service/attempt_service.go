package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/prepdesk/prepdesk-backend/internal/attempt"
	"github.com/prepdesk/prepdesk-backend/internal/config"
	"github.com/prepdesk/prepdesk-backend/internal/model"
	"github.com/prepdesk/prepdesk-backend/internal/repository"
)

// AnswerJob is the unit of work on the answer persistence queue.
type AnswerJob struct {
	AttemptID  string `json:"attempt_id"`
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

// LeaderboardJob asks the leaderboard worker to recompute one exam's board.
type LeaderboardJob struct {
	ExamID string `json:"exam_id"`
}

// ResultStore persists submitted results and kicks the leaderboard worker.
// It is the engine's ResultSink.
type ResultStore struct {
	resultRepo *repository.ResultRepository
	rdb        *redis.Client
	log        zerolog.Logger
}

// NewResultStore creates a new ResultStore.
func NewResultStore(resultRepo *repository.ResultRepository, rdb *redis.Client, log zerolog.Logger) *ResultStore {
	return &ResultStore{
		resultRepo: resultRepo,
		rdb:        rdb,
		log:        log.With().Str("component", "result_store").Logger(),
	}
}

// SaveResult inserts the result and enqueues a leaderboard recompute.
// The insert is idempotent on the result ID, so engine retries after a
// half-applied write cannot double-count a submission.
func (s *ResultStore) SaveResult(ctx context.Context, result *model.Result) error {
	if err := s.resultRepo.SaveResult(ctx, result); err != nil {
		return err
	}

	job, err := json.Marshal(LeaderboardJob{ExamID: result.ExamID.String()})
	if err != nil {
		return nil
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.LeaderboardQueue, job).Err(); err != nil {
		// The board self-heals on the next cache miss; the result is safe.
		s.log.Warn().Err(err).Str("exam_id", result.ExamID.String()).Msg("Failed to enqueue leaderboard job")
	}
	return nil
}

// AttemptService is the application-facing face of the attempt engine:
// joining an exam by access code, answering, navigating, and finishing.
type AttemptService struct {
	engine       *attempt.Engine
	exams        *ExamService
	autosaveRepo *repository.AttemptAnswerRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	engine *attempt.Engine,
	exams *ExamService,
	autosaveRepo *repository.AttemptAnswerRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		engine:       engine,
		exams:        exams,
		autosaveRepo: autosaveRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "attempt_service").Logger(),
	}
}

// MirrorAnswer enqueues an accepted answer for the autosave worker.
// Wired into the engine as its AnswerObserver.
func MirrorAnswer(rdb *redis.Client, log zerolog.Logger) attempt.AnswerObserver {
	return func(attemptID uuid.UUID, questionID, answer string) {
		job, err := json.Marshal(AnswerJob{
			AttemptID:  attemptID.String(),
			QuestionID: questionID,
			Answer:     answer,
		})
		if err != nil {
			return
		}
		if err := rdb.RPush(context.Background(), config.WorkerKey.PersistAnswersQueue, job).Err(); err != nil {
			log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Failed to enqueue answer autosave")
		}
	}
}

// Join resolves an access code and starts a countdown-backed attempt for
// the given student identity. Guests pass a nil account ID.
func (s *AttemptService) Join(ctx context.Context, code string, student attempt.Student) (*attempt.Attempt, *model.ExamPayload, error) {
	payload, err := s.exams.ResolveAccessCode(ctx, code)
	if err != nil {
		return nil, nil, err
	}

	key, err := s.exams.GetAnswerKey(ctx, payload.ExamID)
	if err != nil {
		return nil, nil, err
	}

	a := s.engine.Start(payload, key, student)
	s.writeRecoveryMeta(ctx, a, payload)
	return a, payload, nil
}

// writeRecoveryMeta records who is attempting which exam and until when, so
// the attempt can be rebuilt from its autosave trail after a restart.
func (s *AttemptService) writeRecoveryMeta(ctx context.Context, a *attempt.Attempt, payload *model.ExamPayload) {
	meta := map[string]interface{}{
		"exam_id":      a.ExamID.String(),
		"deadline":     time.Now().Add(time.Duration(payload.Duration) * time.Minute).Unix(),
		"student_name": a.Student.Name,
		"roll_number":  a.Student.RollNumber,
	}
	if a.Student.ID != nil {
		meta["student_id"] = *a.Student.ID
	}

	metaKey := config.CacheKey.AttemptMetaKey(a.ID.String())
	pipe := s.rdb.Pipeline()
	pipe.HSet(ctx, metaKey, meta)
	pipe.Expire(ctx, metaKey, time.Duration(payload.Duration)*time.Minute+time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", a.ID.String()).Msg("Failed to record recovery metadata")
	}
}

// Get looks up an in-flight attempt. An ID missing from the registry but
// present in the recovery metadata is rebuilt from the autosave trail, so
// a restarted server picks up attempts the previous process was running.
func (s *AttemptService) Get(ctx context.Context, id uuid.UUID) (*attempt.Attempt, error) {
	a, err := s.engine.Get(id)
	if errors.Is(err, attempt.ErrNoSuchAttempt) {
		return s.restore(ctx, id)
	}
	return a, err
}

// restore rebuilds an attempt from Redis: recovery metadata plus the
// autosaved answers, falling back to the durable rows when the answer hash
// is gone. The countdown resumes against the original deadline; an attempt
// past it auto-submits on the first tick.
func (s *AttemptService) restore(ctx context.Context, id uuid.UUID) (*attempt.Attempt, error) {
	meta, err := s.rdb.HGetAll(ctx, config.CacheKey.AttemptMetaKey(id.String())).Result()
	if err != nil || len(meta) == 0 {
		return nil, attempt.ErrNoSuchAttempt
	}

	examID, err := uuid.Parse(meta["exam_id"])
	if err != nil {
		return nil, attempt.ErrNoSuchAttempt
	}
	deadline, err := strconv.ParseInt(meta["deadline"], 10, 64)
	if err != nil {
		return nil, attempt.ErrNoSuchAttempt
	}

	payload, err := s.exams.GetExamPayload(ctx, examID)
	if err != nil {
		return nil, attempt.ErrNoSuchAttempt
	}
	key, err := s.exams.GetAnswerKey(ctx, examID)
	if err != nil {
		return nil, attempt.ErrNoSuchAttempt
	}

	student := attempt.Student{
		Name:       meta["student_name"],
		RollNumber: meta["roll_number"],
	}
	if raw, ok := meta["student_id"]; ok {
		if sid, convErr := strconv.Atoi(raw); convErr == nil {
			student.ID = &sid
		}
	}

	answers, err := s.rdb.HGetAll(ctx, config.CacheKey.AttemptAnswersKey(id.String())).Result()
	if err != nil || len(answers) == 0 {
		if persisted, dbErr := s.autosaveRepo.ListByAttempt(ctx, id); dbErr == nil {
			answers = persisted
		}
	}

	remaining := int(deadline - time.Now().Unix())
	a := s.engine.Resume(payload, key, student, id, remaining, answers)

	s.log.Info().
		Str("attempt_id", id.String()).
		Str("exam_id", examID.String()).
		Int("remaining_seconds", a.Remaining()).
		Int("answers", len(answers)).
		Msg("Attempt restored from autosave trail")
	return a, nil
}

// Submit finishes an attempt and returns the graded result. The attempt is
// released from the registry once the result is out.
func (s *AttemptService) Submit(ctx context.Context, id uuid.UUID) (*model.Result, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	result, err := a.Submit(ctx)
	if err != nil {
		return nil, err
	}

	s.engine.Release(id)
	s.cleanupAutosave(ctx, id)
	return result, nil
}

// Release drops a terminal attempt from the registry once its result has
// been delivered, cleaning up any autosave leftovers. In-progress attempts
// are left alone.
func (s *AttemptService) Release(ctx context.Context, id uuid.UUID) {
	a, err := s.engine.Get(id)
	if err != nil {
		return
	}
	if state := a.State(); state != attempt.StateSubmitted && state != attempt.StateAbandoned {
		return
	}
	s.engine.Release(id)
	s.cleanupAutosave(ctx, id)
}

// Abandon discards an attempt without recording a result.
func (s *AttemptService) Abandon(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.engine.Abandon(id); err != nil {
		return err
	}
	s.cleanupAutosave(ctx, id)
	return nil
}

// cleanupAutosave drops the recovery trail for a finished attempt: the
// Redis answer hash and metadata plus the durable rows. The final answer
// map lives on the result itself.
func (s *AttemptService) cleanupAutosave(ctx context.Context, id uuid.UUID) {
	err := s.rdb.Del(ctx,
		config.CacheKey.AttemptAnswersKey(id.String()),
		config.CacheKey.AttemptMetaKey(id.String()),
	).Err()
	if err != nil {
		s.log.Warn().Err(err).Str("attempt_id", id.String()).Msg("Failed to drop autosave keys")
	}
	if err := s.autosaveRepo.DeleteByAttempt(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", id.String()).Msg("Failed to purge autosaved answers")
	}
}
