// Package scoring implements score computation and leaderboard ranking.
// Both entry points are pure functions so they can be exercised without a
// database or a running attempt.
package scoring

import (
	"sort"

	"github.com/prepdesk/prepdesk-backend/internal/model"
)

// Summary is the outcome of grading one answer mapping against an answer key.
type Summary struct {
	Score      int     `json:"score"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// Compute grades answers against key. A question counts as correct only when
// the stored letter is exactly equal to the key's letter; absent answers are
// wrong. An empty key yields score 0 and percentage 0 rather than NaN.
func Compute(answers map[string]string, key map[string]string) Summary {
	total := len(key)
	if total == 0 {
		return Summary{}
	}

	score := 0
	for questionID, correct := range key {
		if given, ok := answers[questionID]; ok && given == correct {
			score++
		}
	}

	return Summary{
		Score:      score,
		Total:      total,
		Percentage: float64(score) / float64(total) * 100,
	}
}

// Rank orders results by score descending. Ties are broken by submission
// time ascending, so of two equal scores the earlier submission ranks
// higher. Results sharing both score and submission time keep their input
// order. The returned slice is a sorted copy annotated with 1-based ranks.
func Rank(results []model.Result) []model.RankedResult {
	sorted := make([]model.Result, len(results))
	copy(sorted, results)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].SubmittedAt.Before(sorted[j].SubmittedAt)
	})

	ranked := make([]model.RankedResult, len(sorted))
	for i, r := range sorted {
		ranked[i] = model.RankedResult{Rank: i + 1, Result: r}
	}
	return ranked
}
