package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/prepdesk/prepdesk-backend/internal/config"
	"github.com/prepdesk/prepdesk-backend/internal/repository"
	"github.com/prepdesk/prepdesk-backend/internal/service"
)

// AutosaveWorker consumes the answer queue and mirrors each accepted answer
// into durable storage: an UPSERT row in PostgreSQL plus a Redis hash for
// cheap whole-attempt reads. The attempt engine stays in RAM; this trail is
// what survives a process crash.
type AutosaveWorker struct {
	autosaveRepo *repository.AttemptAnswerRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewAutosaveWorker creates a new AutosaveWorker.
func NewAutosaveWorker(autosaveRepo *repository.AttemptAnswerRepository, rdb *redis.Client, log zerolog.Logger) *AutosaveWorker {
	return &AutosaveWorker{
		autosaveRepo: autosaveRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "autosave_worker").Logger(),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *AutosaveWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *AutosaveWorker) processNext(ctx context.Context) {
	// BLPop blocks until an item is available or timeout (1 second).
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.PersistAnswersQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	var job service.AnswerJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return
	}

	if err := w.persistAnswer(ctx, &job); err != nil {
		w.log.Error().Err(err).
			Str("attempt_id", job.AttemptID).
			Msg("Persist error, retrying in 5s")
		// Push back to queue for retry.
		w.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, result[1])
		time.Sleep(5 * time.Second)
	}
}

func (w *AutosaveWorker) persistAnswer(ctx context.Context, job *service.AnswerJob) error {
	attemptID, err := uuid.Parse(job.AttemptID)
	if err != nil {
		return err
	}
	questionID, err := uuid.Parse(job.QuestionID)
	if err != nil {
		return err
	}

	if err := w.autosaveRepo.Upsert(ctx, attemptID, questionID, job.Answer); err != nil {
		return err
	}

	// Best-effort hash mirror; the DB row is the durable copy.
	if err := w.rdb.HSet(ctx, config.CacheKey.AttemptAnswersKey(job.AttemptID), job.QuestionID, job.Answer).Err(); err != nil {
		w.log.Warn().Err(err).Str("attempt_id", job.AttemptID).Msg("Hash mirror failed")
	}
	return nil
}

// drain processes all remaining items in the queue before shutdown.
func (w *AutosaveWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.PersistAnswersQueue).Result()
		if err != nil {
			break
		}

		var job service.AnswerJob
		if err := json.Unmarshal([]byte(result), &job); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}

		if err := w.persistAnswer(ctx, &job); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, result)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained queued answers")
	}
}
