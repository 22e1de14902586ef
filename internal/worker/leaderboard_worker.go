package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/prepdesk/prepdesk-backend/internal/config"
	"github.com/prepdesk/prepdesk-backend/internal/service"
)

// LeaderboardWorker consumes the leaderboard queue and recomputes one
// exam's ranked board per job, refreshing the Redis cache. Submissions only
// enqueue; the recompute never runs on the request path.
type LeaderboardWorker struct {
	leaderboard *service.LeaderboardService
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewLeaderboardWorker creates a new LeaderboardWorker.
func NewLeaderboardWorker(leaderboard *service.LeaderboardService, rdb *redis.Client, log zerolog.Logger) *LeaderboardWorker {
	return &LeaderboardWorker{
		leaderboard: leaderboard,
		rdb:         rdb,
		log:         log.With().Str("component", "leaderboard_worker").Logger(),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *LeaderboardWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *LeaderboardWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.LeaderboardQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	w.recompute(ctx, result[1])
}

func (w *LeaderboardWorker) recompute(ctx context.Context, raw string) {
	var job service.LeaderboardJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return
	}

	examID, err := uuid.Parse(job.ExamID)
	if err != nil {
		w.log.Error().Err(err).Str("exam_id", job.ExamID).Msg("Bad exam ID in job")
		return
	}

	if _, err := w.leaderboard.Recompute(ctx, examID); err != nil {
		w.log.Error().Err(err).Str("exam_id", job.ExamID).Msg("Recompute failed")
		return
	}

	w.log.Debug().Str("exam_id", job.ExamID).Msg("Leaderboard refreshed")
}

// drain processes remaining jobs before shutdown. Stale boards self-heal on
// the next cache miss, so drain errors are logged and dropped.
func (w *LeaderboardWorker) drain(ctx context.Context) {
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.LeaderboardQueue).Result()
		if err != nil {
			break
		}
		w.recompute(ctx, result)
	}
}
