package scoring

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/prepdesk/prepdesk-backend/internal/model"
)

func TestComputeCountsOnlyExactMatches(t *testing.T) {
	q1 := uuid.New().String()
	q2 := uuid.New().String()
	q3 := uuid.New().String()

	key := map[string]string{q1: "A", q2: "B", q3: "C"}
	answers := map[string]string{q1: "A", q2: "D"} // q3 unanswered

	s := Compute(answers, key)

	if s.Score != 1 {
		t.Errorf("Score = %d, want 1", s.Score)
	}
	if s.Total != 3 {
		t.Errorf("Total = %d, want 3", s.Total)
	}
	want := 100.0 / 3.0
	if s.Percentage < want-0.001 || s.Percentage > want+0.001 {
		t.Errorf("Percentage = %f, want %f", s.Percentage, want)
	}
}

func TestComputeZeroQuestions(t *testing.T) {
	s := Compute(map[string]string{}, map[string]string{})

	if s.Score != 0 || s.Total != 0 || s.Percentage != 0 {
		t.Errorf("empty key should grade to zero, got %+v", s)
	}
}

func TestComputeIgnoresStrayAnswers(t *testing.T) {
	q1 := uuid.New().String()
	key := map[string]string{q1: "A"}
	answers := map[string]string{q1: "A", uuid.New().String(): "B"}

	s := Compute(answers, key)

	if s.Score != 1 || s.Total != 1 {
		t.Errorf("stray answers must not count, got score=%d total=%d", s.Score, s.Total)
	}
	if s.Percentage != 100 {
		t.Errorf("Percentage = %f, want 100", s.Percentage)
	}
}

func TestRankOrdersByScoreThenSubmission(t *testing.T) {
	base := time.Now()
	results := []model.Result{
		{ID: uuid.New(), StudentName: "late-high", Score: 9, SubmittedAt: base.Add(3 * time.Minute)},
		{ID: uuid.New(), StudentName: "early-low", Score: 4, SubmittedAt: base},
		{ID: uuid.New(), StudentName: "early-high", Score: 9, SubmittedAt: base.Add(time.Minute)},
	}

	ranked := Rank(results)

	wantOrder := []string{"early-high", "late-high", "early-low"}
	for i, want := range wantOrder {
		if ranked[i].StudentName != want {
			t.Errorf("position %d = %s, want %s", i, ranked[i].StudentName, want)
		}
	}
	for i, r := range ranked {
		if r.Rank != i+1 {
			t.Errorf("Rank = %d, want %d", r.Rank, i+1)
		}
	}
}

func TestRankDoesNotMutateInput(t *testing.T) {
	base := time.Now()
	results := []model.Result{
		{ID: uuid.New(), Score: 1, SubmittedAt: base},
		{ID: uuid.New(), Score: 5, SubmittedAt: base},
	}

	Rank(results)

	if results[0].Score != 1 {
		t.Error("Rank reordered the caller's slice")
	}
}

func TestRankEmpty(t *testing.T) {
	if got := Rank(nil); len(got) != 0 {
		t.Errorf("Rank(nil) = %v, want empty", got)
	}
}
