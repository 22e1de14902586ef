// Package attempt implements the in-memory engine for in-flight exam
// attempts: answer capture, free navigation, the per-attempt countdown, and
// the single-shot submission path that turns an attempt into a Result.
//
// Attempts are ephemeral. Nothing is written to the database until Submit
// succeeds; an abandoned attempt leaves no trace.
package attempt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prepdesk/prepdesk-backend/internal/model"
	"github.com/prepdesk/prepdesk-backend/internal/scoring"
)

// State enumerates attempt lifecycle states.
type State string

const (
	StateInProgress State = "IN_PROGRESS"
	StateSubmitting State = "SUBMITTING"
	StateSubmitted  State = "SUBMITTED"
	StateAbandoned  State = "ABANDONED"
)

// Domain errors.
var (
	ErrAttemptFinished = errors.New("attempt already finished")
	ErrInvalidAnswer   = errors.New("answer must be one of A, B, C, D")
	ErrUnknownQuestion = errors.New("question does not belong to this attempt's exam")
	ErrIndexOutOfRange = errors.New("question index out of range")
)

// ResultSink persists a submitted result. A failed persist must leave no
// partial state; the engine retries with the same result (same ID) so the
// sink can treat replays as idempotent inserts.
type ResultSink interface {
	SaveResult(ctx context.Context, result *model.Result) error
}

// AnswerObserver is notified after every accepted answer selection.
// Used to mirror answers into the autosave cache; must not block for long.
type AnswerObserver func(attemptID uuid.UUID, questionID, answer string)

// Student identifies who is taking the attempt: either an authenticated
// account (ID set) or a guest who joined with name and roll number.
type Student struct {
	ID         *int
	Name       string
	RollNumber string
}

// Attempt is one student's in-flight pass through an exam.
// All mutating methods are safe for concurrent use.
type Attempt struct {
	ID        uuid.UUID
	ExamID    uuid.UUID
	ExamName  string
	TeacherID int
	Student   Student

	order []uuid.UUID       // question IDs in paper order
	key   map[string]string // question ID -> correct option letter

	mu        sync.Mutex
	state     State
	answers   map[string]string
	current   int
	remaining int // seconds
	autoFired bool
	pending   *model.Result // built once, reused across submit retries
	result    *model.Result

	done      chan struct{} // closed on any terminal exit; stops the timer
	submitted chan struct{} // closed once a result has been persisted
	closeOnce sync.Once

	sink    ResultSink
	observe AnswerObserver
	log     zerolog.Logger
}

func newAttempt(payload *model.ExamPayload, key map[string]string, student Student, sink ResultSink, observe AnswerObserver, log zerolog.Logger) *Attempt {
	order := make([]uuid.UUID, len(payload.Questions))
	for i, q := range payload.Questions {
		order[i] = q.ID
	}

	id := uuid.New()
	return &Attempt{
		ID:        id,
		ExamID:    payload.ExamID,
		ExamName:  payload.Name,
		TeacherID: payload.TeacherID,
		Student:   student,
		order:     order,
		key:       key,
		state:     StateInProgress,
		answers:   make(map[string]string),
		remaining: payload.Duration * 60,
		done:      make(chan struct{}),
		submitted: make(chan struct{}),
		sink:      sink,
		observe:   observe,
		log:       log.With().Str("attempt_id", id.String()).Logger(),
	}
}

// Snapshot is a consistent read of an attempt's mutable state.
type Snapshot struct {
	AttemptID    uuid.UUID         `json:"attempt_id"`
	ExamID       uuid.UUID         `json:"exam_id"`
	State        State             `json:"state"`
	CurrentIndex int               `json:"current_index"`
	Remaining    int               `json:"remaining_seconds"`
	Answers      map[string]string `json:"answers"`
}

// Snapshot returns a copy of the attempt's current state.
func (a *Attempt) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	answers := make(map[string]string, len(a.answers))
	for k, v := range a.answers {
		answers[k] = v
	}

	return Snapshot{
		AttemptID:    a.ID,
		ExamID:       a.ExamID,
		State:        a.state,
		CurrentIndex: a.current,
		Remaining:    a.remaining,
		Answers:      answers,
	}
}

// State returns the current lifecycle state.
func (a *Attempt) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Remaining returns the remaining time in seconds.
func (a *Attempt) Remaining() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.remaining
}

// Result returns the persisted result, or nil before successful submission.
func (a *Attempt) Result() *model.Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.result
}

// Done is closed when the attempt reaches a terminal state (submitted or
// abandoned). The countdown goroutine exits on it.
func (a *Attempt) Done() <-chan struct{} {
	return a.done
}

// Submitted is closed once a result has been persisted. The WebSocket
// stream uses it to push the graded event.
func (a *Attempt) Submitted() <-chan struct{} {
	return a.submitted
}

// SelectAnswer records or overwrites the answer for the given question.
// Only the four fixed letters A-D are accepted; the question must belong to
// the attempt's exam. Selection is rejected once the attempt leaves
// InProgress.
func (a *Attempt) SelectAnswer(questionID uuid.UUID, letter string) error {
	if !model.IsOptionLetter(letter) {
		return ErrInvalidAnswer
	}

	a.mu.Lock()
	if a.state != StateInProgress {
		a.mu.Unlock()
		return ErrAttemptFinished
	}
	if _, ok := a.key[questionID.String()]; !ok {
		a.mu.Unlock()
		return ErrUnknownQuestion
	}
	a.answers[questionID.String()] = letter
	observe := a.observe
	a.mu.Unlock()

	if observe != nil {
		observe(a.ID, questionID.String(), letter)
	}
	return nil
}

// Navigate moves the current-question pointer. Free movement in both
// directions; answering is never a precondition.
func (a *Attempt) Navigate(index int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateInProgress {
		return ErrAttemptFinished
	}
	if index < 0 || index >= len(a.order) {
		return ErrIndexOutOfRange
	}
	a.current = index
	return nil
}

// Tick decrements the remaining time by one second and returns the new
// value. At zero it triggers submission exactly once; later ticks are
// no-ops. Driven by the engine's countdown goroutine, but callable
// directly.
func (a *Attempt) Tick(ctx context.Context) int {
	a.mu.Lock()

	if a.state != StateInProgress {
		remaining := a.remaining
		a.mu.Unlock()
		return remaining
	}

	if a.remaining > 0 {
		a.remaining--
	}

	if a.remaining == 0 && !a.autoFired {
		a.autoFired = true
		a.log.Info().Msg("Time expired, auto-submitting")
		_, err := a.submitLocked(ctx)
		a.mu.Unlock()
		if err != nil {
			// The attempt stays in Submitting; the student's manual submit
			// (or the stream handler) retries against the same pending result.
			a.log.Error().Err(err).Msg("Auto-submit persist failed")
		}
		return 0
	}

	remaining := a.remaining
	a.mu.Unlock()
	return remaining
}

// Submit grades the attempt and persists a Result. Idempotent: a second
// call on a submitted attempt returns the stored result without writing
// again. On persist failure the attempt stays in Submitting and the error
// is retryable — the same pending result (same ID) is reused so a store
// that half-applied the first write can deduplicate.
func (a *Attempt) Submit(ctx context.Context) (*model.Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.submitLocked(ctx)
}

// submitLocked implements submission. Caller must hold a.mu.
func (a *Attempt) submitLocked(ctx context.Context) (*model.Result, error) {
	switch a.state {
	case StateSubmitted:
		return a.result, nil
	case StateAbandoned:
		return nil, ErrAttemptFinished
	}

	a.state = StateSubmitting

	if a.pending == nil {
		summary := scoring.Compute(a.answers, a.key)

		answers := make(map[string]string, len(a.answers))
		for k, v := range a.answers {
			answers[k] = v
		}

		// The result ID derives from the attempt ID, so an attempt resumed
		// after a restart collides with a row the previous process already
		// wrote instead of double-counting it.
		a.pending = &model.Result{
			ID:          uuid.NewSHA1(uuid.NameSpaceOID, a.ID[:]),
			ExamID:      a.ExamID,
			StudentID:   a.Student.ID,
			StudentName: a.Student.Name,
			RollNumber:  a.Student.RollNumber,
			Score:       summary.Score,
			Total:       summary.Total,
			Percentage:  summary.Percentage,
			Answers:     answers,
			SubmittedAt: time.Now(),
		}
	}

	if err := a.sink.SaveResult(ctx, a.pending); err != nil {
		return nil, fmt.Errorf("persist result: %w", err)
	}

	a.result = a.pending
	a.state = StateSubmitted
	close(a.submitted)
	a.closeOnce.Do(func() { close(a.done) })

	a.log.Info().
		Int("score", a.result.Score).
		Int("total", a.result.Total).
		Float64("percentage", a.result.Percentage).
		Msg("Attempt submitted")

	return a.result, nil
}

// Abandon discards an in-flight attempt: the timer is torn down and no
// result is ever recorded. Abandoning a submitted attempt is a no-op.
func (a *Attempt) Abandon() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == StateSubmitted || a.state == StateAbandoned {
		return
	}

	a.state = StateAbandoned
	a.closeOnce.Do(func() { close(a.done) })
	a.log.Info().Msg("Attempt abandoned")
}
