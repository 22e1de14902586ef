package attempt

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prepdesk/prepdesk-backend/internal/model"
)

// ErrNoSuchAttempt is returned for IDs not present in the registry.
var ErrNoSuchAttempt = errors.New("no attempt with this ID")

// Engine owns all in-flight attempts and their countdown timers.
// One countdown goroutine runs per attempt; it is cancelled deterministically
// when the attempt reaches a terminal state.
type Engine struct {
	mu       sync.RWMutex
	attempts map[uuid.UUID]*Attempt

	sink     ResultSink
	observe  AnswerObserver
	interval time.Duration
	log      zerolog.Logger
}

// NewEngine creates an Engine persisting results through sink.
// observe may be nil.
func NewEngine(sink ResultSink, observe AnswerObserver, log zerolog.Logger) *Engine {
	return &Engine{
		attempts: make(map[uuid.UUID]*Attempt),
		sink:     sink,
		observe:  observe,
		interval: time.Second,
		log:      log.With().Str("component", "attempt_engine").Logger(),
	}
}

// Start creates an attempt for the given published exam payload and answer
// key, registers it, and starts its countdown.
func (e *Engine) Start(payload *model.ExamPayload, key map[string]string, student Student) *Attempt {
	a := newAttempt(payload, key, student, e.sink, e.observe, e.log)

	e.mu.Lock()
	e.attempts[a.ID] = a
	e.mu.Unlock()

	go e.runCountdown(a)

	e.log.Info().
		Str("attempt_id", a.ID.String()).
		Str("exam_id", a.ExamID.String()).
		Str("student", student.Name).
		Int("duration_seconds", a.Remaining()).
		Msg("Attempt started")

	return a
}

// Resume re-registers an attempt rebuilt from its autosave trail after a
// process restart: the caller supplies the original attempt ID, the wall
// clock remaining, and the recovered answers. Recovered answers outside the
// answer key are dropped. If the ID is already registered the live attempt
// wins and the rebuilt one is discarded.
func (e *Engine) Resume(payload *model.ExamPayload, key map[string]string, student Student, id uuid.UUID, remaining int, answers map[string]string) *Attempt {
	a := newAttempt(payload, key, student, e.sink, e.observe, e.log)
	a.ID = id
	a.log = e.log.With().Str("attempt_id", id.String()).Logger()
	if remaining < 0 {
		remaining = 0
	}
	a.remaining = remaining
	for questionID, letter := range answers {
		if _, ok := key[questionID]; ok && model.IsOptionLetter(letter) {
			a.answers[questionID] = letter
		}
	}

	e.mu.Lock()
	if existing, ok := e.attempts[id]; ok {
		e.mu.Unlock()
		return existing
	}
	e.attempts[id] = a
	e.mu.Unlock()

	go e.runCountdown(a)

	e.log.Info().
		Str("attempt_id", id.String()).
		Str("exam_id", a.ExamID.String()).
		Int("remaining_seconds", remaining).
		Int("restored_answers", len(answers)).
		Msg("Attempt resumed")

	return a
}

// Get returns the attempt with the given ID.
func (e *Engine) Get(id uuid.UUID) (*Attempt, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	a, ok := e.attempts[id]
	if !ok {
		return nil, ErrNoSuchAttempt
	}
	return a, nil
}

// Abandon tears down an attempt and removes it from the registry.
// No result is recorded.
func (e *Engine) Abandon(id uuid.UUID) error {
	a, err := e.Get(id)
	if err != nil {
		return err
	}

	a.Abandon()
	e.remove(id)
	return nil
}

// Release drops a terminal attempt from the registry once its result has
// been delivered. In-progress attempts are left alone.
func (e *Engine) Release(id uuid.UUID) {
	a, err := e.Get(id)
	if err != nil {
		return
	}
	if s := a.State(); s != StateSubmitted && s != StateAbandoned {
		return
	}
	e.remove(id)
}

// Shutdown abandons every in-flight attempt. Called on server stop so no
// countdown goroutines outlive the process teardown.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	attempts := make([]*Attempt, 0, len(e.attempts))
	for _, a := range e.attempts {
		attempts = append(attempts, a)
	}
	e.attempts = make(map[uuid.UUID]*Attempt)
	e.mu.Unlock()

	for _, a := range attempts {
		a.Abandon()
	}

	if len(attempts) > 0 {
		e.log.Info().Int("count", len(attempts)).Msg("Abandoned in-flight attempts on shutdown")
	}
}

func (e *Engine) remove(id uuid.UUID) {
	e.mu.Lock()
	delete(e.attempts, id)
	e.mu.Unlock()
}

// runCountdown drives the attempt's one-second ticks until it exits.
func (e *Engine) runCountdown(a *Attempt) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.Done():
			return
		case <-ticker.C:
			a.Tick(context.Background())
		}
	}
}
