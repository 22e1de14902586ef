package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// StudentSessionKey returns the cache key for a student's login session
func (r *CacheKeyStruct) StudentSessionKey(studentID int) string {
	return fmt.Sprintf("login:student:%d", studentID)
}

// ExamPayloadKey returns the cache key for a published exam's student payload
func (r *CacheKeyStruct) ExamPayloadKey(examID string) string {
	return fmt.Sprintf("exam:%s:payload", examID)
}

// ExamAnswerKey returns the cache key for a published exam's answer key
func (r *CacheKeyStruct) ExamAnswerKey(examID string) string {
	return fmt.Sprintf("exam:%s:key", examID)
}

// ExamCodeKey returns the cache key mapping an access code to its exam
func (r *CacheKeyStruct) ExamCodeKey(code string) string {
	return fmt.Sprintf("code:%s", code)
}

// ExamLeaderboardKey returns the cache key for an exam's ranked leaderboard
func (r *CacheKeyStruct) ExamLeaderboardKey(examID string) string {
	return fmt.Sprintf("exam:%s:leaderboard", examID)
}

// AttemptAnswersKey returns the cache key for an attempt's autosaved answers
func (r *CacheKeyStruct) AttemptAnswersKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:answers", attemptID)
}

// AttemptMetaKey returns the cache key for an attempt's recovery metadata
func (r *CacheKeyStruct) AttemptMetaKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:meta", attemptID)
}

var CacheKey = NewCacheKeyStruct()
