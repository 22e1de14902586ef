package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/prepdesk/prepdesk-backend/internal/config"
	"github.com/prepdesk/prepdesk-backend/internal/model"
	"github.com/prepdesk/prepdesk-backend/internal/repository"
	"github.com/prepdesk/prepdesk-backend/internal/scoring"
)

// LeaderboardService serves ranked results. The ranking itself lives in
// the scoring package; this service owns the Redis cache that shields the
// database from every teacher refreshing the board mid-exam.
type LeaderboardService struct {
	resultRepo *repository.ResultRepository
	rdb        *redis.Client
	log        zerolog.Logger
}

// NewLeaderboardService creates a new LeaderboardService.
func NewLeaderboardService(resultRepo *repository.ResultRepository, rdb *redis.Client, log zerolog.Logger) *LeaderboardService {
	return &LeaderboardService{
		resultRepo: resultRepo,
		rdb:        rdb,
		log:        log.With().Str("component", "leaderboard_service").Logger(),
	}
}

// Get returns the ranked leaderboard for an exam, preferring the cache.
// A cache miss recomputes from the database and repopulates the cache.
func (s *LeaderboardService) Get(ctx context.Context, examID uuid.UUID) ([]model.RankedResult, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.ExamLeaderboardKey(examID.String())).Bytes()
	if err == nil {
		var ranked []model.RankedResult
		if err := json.Unmarshal(data, &ranked); err == nil {
			return ranked, nil
		}
		// Corrupt cache entry falls through to a recompute.
		s.log.Warn().Str("exam_id", examID.String()).Msg("Discarding unreadable leaderboard cache")
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get leaderboard cache: %w", err)
	}

	return s.Recompute(ctx, examID)
}

// Recompute rebuilds the leaderboard from the database and caches it.
// Also called by the leaderboard worker after each submission lands.
func (s *LeaderboardService) Recompute(ctx context.Context, examID uuid.UUID) ([]model.RankedResult, error) {
	results, err := s.resultRepo.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}

	ranked := scoring.Rank(results)

	data, err := json.Marshal(ranked)
	if err != nil {
		return nil, fmt.Errorf("marshal leaderboard: %w", err)
	}
	if err := s.rdb.Set(ctx, config.CacheKey.ExamLeaderboardKey(examID.String()), data, 0).Err(); err != nil {
		// Serving a fresh board matters more than caching it.
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Failed to cache leaderboard")
	}

	return ranked, nil
}
