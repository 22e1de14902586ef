package attempt

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prepdesk/prepdesk-backend/internal/model"
)

// fakeSink records saved results and can be told to fail.
type fakeSink struct {
	mu      sync.Mutex
	saved   []*model.Result
	failing bool
}

func (s *fakeSink) SaveResult(_ context.Context, r *model.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errors.New("store unavailable")
	}
	s.saved = append(s.saved, r)
	return nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

func testPayload(questions int, durationMinutes int) (*model.ExamPayload, map[string]string) {
	payload := &model.ExamPayload{
		ExamID:    uuid.New(),
		TeacherID: 1,
		Name:      "Midterm",
		Duration:  durationMinutes,
	}
	key := make(map[string]string, questions)
	for i := 0; i < questions; i++ {
		q := model.QuestionForStudent{ID: uuid.New(), Position: i}
		payload.Questions = append(payload.Questions, q)
		key[q.ID.String()] = "A"
	}
	return payload, key
}

func testAttempt(t *testing.T, questions, durationMinutes int, sink ResultSink) *Attempt {
	t.Helper()
	payload, key := testPayload(questions, durationMinutes)
	if sink == nil {
		sink = &fakeSink{}
	}
	return newAttempt(payload, key, Student{Name: "Asha", RollNumber: "17"}, sink, nil, zerolog.Nop())
}

func TestSelectAnswerValidation(t *testing.T) {
	payload, key := testPayload(2, 10)
	sink := &fakeSink{}
	a := newAttempt(payload, key, Student{Name: "Asha"}, sink, nil, zerolog.Nop())

	qID := payload.Questions[0].ID

	if err := a.SelectAnswer(qID, "E"); !errors.Is(err, ErrInvalidAnswer) {
		t.Errorf("letter E: err = %v, want ErrInvalidAnswer", err)
	}
	if err := a.SelectAnswer(uuid.New(), "A"); !errors.Is(err, ErrUnknownQuestion) {
		t.Errorf("foreign question: err = %v, want ErrUnknownQuestion", err)
	}
	if err := a.SelectAnswer(qID, "B"); err != nil {
		t.Fatalf("valid answer: %v", err)
	}
	// Overwrite is allowed.
	if err := a.SelectAnswer(qID, "C"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if got := a.Snapshot().Answers[qID.String()]; got != "C" {
		t.Errorf("answer = %q, want C", got)
	}
}

func TestNavigateBounds(t *testing.T) {
	a := testAttempt(t, 3, 10, nil)

	if err := a.Navigate(2); err != nil {
		t.Fatalf("Navigate(2): %v", err)
	}
	if err := a.Navigate(0); err != nil {
		t.Fatalf("Navigate back: %v", err)
	}
	if err := a.Navigate(3); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Navigate(3): err = %v, want ErrIndexOutOfRange", err)
	}
	if err := a.Navigate(-1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Navigate(-1): err = %v, want ErrIndexOutOfRange", err)
	}
}

func TestTickCountsDownMonotonically(t *testing.T) {
	a := testAttempt(t, 1, 1, nil) // 60 seconds

	prev := a.Remaining()
	if prev != 60 {
		t.Fatalf("initial remaining = %d, want 60", prev)
	}

	for i := 0; i < 10; i++ {
		got := a.Tick(context.Background())
		if got != prev-1 {
			t.Fatalf("tick %d: remaining = %d, want %d", i, got, prev-1)
		}
		prev = got
	}
}

func TestTickAutoSubmitsExactlyOnce(t *testing.T) {
	sink := &fakeSink{}
	a := testAttempt(t, 2, 1, sink)

	for i := 0; i < 60; i++ {
		a.Tick(context.Background())
	}

	if state := a.State(); state != StateSubmitted {
		t.Fatalf("state = %s, want SUBMITTED", state)
	}
	if sink.count() != 1 {
		t.Fatalf("sink saved %d results, want 1", sink.count())
	}

	// Ticks after expiry change nothing.
	for i := 0; i < 5; i++ {
		if got := a.Tick(context.Background()); got != 0 {
			t.Errorf("post-expiry remaining = %d, want 0", got)
		}
	}
	if sink.count() != 1 {
		t.Errorf("sink saved %d results after extra ticks, want 1", sink.count())
	}

	select {
	case <-a.Done():
	default:
		t.Error("Done not closed after auto-submit")
	}
}

func TestSubmitIsIdempotent(t *testing.T) {
	sink := &fakeSink{}
	a := testAttempt(t, 2, 10, sink)

	first, err := a.Submit(context.Background())
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}

	second, err := a.Submit(context.Background())
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("resubmit returned a different result: %s vs %s", first.ID, second.ID)
	}
	if sink.count() != 1 {
		t.Errorf("sink saved %d results, want 1", sink.count())
	}
}

func TestSubmitRetriesWithSamePendingResult(t *testing.T) {
	sink := &fakeSink{failing: true}
	a := testAttempt(t, 1, 10, sink)

	if err := a.SelectAnswer(a.order[0], "A"); err != nil {
		t.Fatalf("answer: %v", err)
	}

	if _, err := a.Submit(context.Background()); err == nil {
		t.Fatal("submit should fail while sink is down")
	}
	if state := a.State(); state != StateSubmitting {
		t.Fatalf("state after failed persist = %s, want SUBMITTING", state)
	}

	// Answers are frozen once submission starts.
	if err := a.SelectAnswer(a.order[0], "B"); !errors.Is(err, ErrAttemptFinished) {
		t.Errorf("answer during SUBMITTING: err = %v, want ErrAttemptFinished", err)
	}

	sink.mu.Lock()
	sink.failing = false
	sink.mu.Unlock()

	result, err := a.Submit(context.Background())
	if err != nil {
		t.Fatalf("retry submit: %v", err)
	}
	if sink.count() != 1 {
		t.Fatalf("sink saved %d results, want 1", sink.count())
	}
	if result.Score != 1 || result.Total != 1 {
		t.Errorf("score = %d/%d, want 1/1", result.Score, result.Total)
	}
	if result.Answers[a.order[0].String()] != "A" {
		t.Errorf("persisted answer = %q, want the pre-submit answer A", result.Answers[a.order[0].String()])
	}
}

func TestAbandonLeavesNoResult(t *testing.T) {
	sink := &fakeSink{}
	a := testAttempt(t, 2, 10, sink)

	a.Abandon()

	if state := a.State(); state != StateAbandoned {
		t.Fatalf("state = %s, want ABANDONED", state)
	}
	if sink.count() != 0 {
		t.Errorf("sink saved %d results, want 0", sink.count())
	}
	if _, err := a.Submit(context.Background()); !errors.Is(err, ErrAttemptFinished) {
		t.Errorf("submit after abandon: err = %v, want ErrAttemptFinished", err)
	}

	select {
	case <-a.Done():
	default:
		t.Error("Done not closed after abandon")
	}
}

func TestObserverSeesAcceptedAnswers(t *testing.T) {
	payload, key := testPayload(1, 10)

	var mu sync.Mutex
	seen := make(map[string]string)
	observe := func(_ uuid.UUID, questionID, answer string) {
		mu.Lock()
		seen[questionID] = answer
		mu.Unlock()
	}

	a := newAttempt(payload, key, Student{Name: "Asha"}, &fakeSink{}, observe, zerolog.Nop())

	qID := payload.Questions[0].ID
	if err := a.SelectAnswer(qID, "D"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if err := a.SelectAnswer(qID, "E"); err == nil {
		t.Fatal("invalid answer accepted")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 || seen[qID.String()] != "D" {
		t.Errorf("observer saw %v, want only the accepted answer D", seen)
	}
}
