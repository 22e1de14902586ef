package attempt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func TestEngineStartAndGet(t *testing.T) {
	e := NewEngine(&fakeSink{}, nil, zerolog.Nop())
	defer e.Shutdown()

	payload, key := testPayload(2, 30)
	a := e.Start(payload, key, Student{Name: "Asha", RollNumber: "17"})

	got, err := e.Get(a.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != a {
		t.Error("Get returned a different attempt")
	}

	if _, err := e.Get(uuid.New()); !errors.Is(err, ErrNoSuchAttempt) {
		t.Errorf("unknown ID: err = %v, want ErrNoSuchAttempt", err)
	}
}

func TestEngineCountdownTicks(t *testing.T) {
	e := NewEngine(&fakeSink{}, nil, zerolog.Nop())
	e.interval = 10 * time.Millisecond
	defer e.Shutdown()

	payload, key := testPayload(1, 30)
	a := e.Start(payload, key, Student{Name: "Asha"})

	start := a.Remaining()
	deadline := time.After(2 * time.Second)
	for a.Remaining() >= start {
		select {
		case <-deadline:
			t.Fatal("countdown never ticked")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestEngineResumeRestoresAnswersAndClock(t *testing.T) {
	sink := &fakeSink{}
	e := NewEngine(sink, nil, zerolog.Nop())
	defer e.Shutdown()

	payload, key := testPayload(2, 30)
	id := uuid.New()
	answers := map[string]string{
		payload.Questions[0].ID.String(): "A",
		uuid.New().String():              "A", // not part of this paper
	}

	a := e.Resume(payload, key, Student{Name: "Asha", RollNumber: "17"}, id, 45, answers)
	if a.ID != id {
		t.Fatalf("resumed ID = %s, want %s", a.ID, id)
	}
	got, err := e.Get(id)
	if err != nil || got != a {
		t.Fatalf("Get after resume: %v", err)
	}
	if a.Remaining() != 45 {
		t.Errorf("remaining = %d, want 45", a.Remaining())
	}

	if snap := a.Snapshot(); len(snap.Answers) != 1 {
		t.Fatalf("restored answers = %d, want only the paper's own question", len(snap.Answers))
	}

	result, err := a.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 1 || result.Total != 2 {
		t.Errorf("score = %d/%d, want 1/2", result.Score, result.Total)
	}
}

func TestEngineResumeKeepsLiveAttempt(t *testing.T) {
	e := NewEngine(&fakeSink{}, nil, zerolog.Nop())
	defer e.Shutdown()

	payload, key := testPayload(1, 30)
	live := e.Start(payload, key, Student{Name: "Asha"})

	if got := e.Resume(payload, key, Student{Name: "Asha"}, live.ID, 10, nil); got != live {
		t.Error("resume replaced a live attempt")
	}
}

func TestEngineResumeExpiredAutoSubmits(t *testing.T) {
	sink := &fakeSink{}
	e := NewEngine(sink, nil, zerolog.Nop())
	e.interval = 10 * time.Millisecond
	defer e.Shutdown()

	payload, key := testPayload(1, 30)
	a := e.Resume(payload, key, Student{Name: "Asha"}, uuid.New(), 0, map[string]string{
		payload.Questions[0].ID.String(): "A",
	})

	select {
	case <-a.Submitted():
	case <-time.After(2 * time.Second):
		t.Fatal("attempt resumed past its deadline never auto-submitted")
	}
	if sink.count() != 1 {
		t.Errorf("sink saved %d results, want 1", sink.count())
	}
	if r := a.Result(); r == nil || r.Score != 1 {
		t.Errorf("result = %+v, want the restored answer counted", r)
	}
}

func TestResumedSubmitReusesResultID(t *testing.T) {
	payload, key := testPayload(1, 30)
	id := uuid.New()

	first := NewEngine(&fakeSink{}, nil, zerolog.Nop())
	defer first.Shutdown()
	r1, err := first.Resume(payload, key, Student{Name: "Asha"}, id, 60, nil).Submit(context.Background())
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}

	second := NewEngine(&fakeSink{}, nil, zerolog.Nop())
	defer second.Shutdown()
	r2, err := second.Resume(payload, key, Student{Name: "Asha"}, id, 60, nil).Submit(context.Background())
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}

	if r1.ID != r2.ID {
		t.Errorf("result IDs differ across instances: %s vs %s", r1.ID, r2.ID)
	}
}

func TestEngineAbandonStopsCountdown(t *testing.T) {
	sink := &fakeSink{}
	e := NewEngine(sink, nil, zerolog.Nop())
	e.interval = 10 * time.Millisecond

	payload, key := testPayload(1, 30)
	a := e.Start(payload, key, Student{Name: "Asha"})

	if err := e.Abandon(a.ID); err != nil {
		t.Fatalf("Abandon: %v", err)
	}

	if _, err := e.Get(a.ID); !errors.Is(err, ErrNoSuchAttempt) {
		t.Errorf("abandoned attempt still registered: %v", err)
	}

	select {
	case <-a.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed after engine abandon")
	}

	frozen := a.Remaining()
	time.Sleep(50 * time.Millisecond)
	if a.Remaining() != frozen {
		t.Error("countdown kept running after abandon")
	}
	if sink.count() != 0 {
		t.Errorf("abandon persisted %d results, want 0", sink.count())
	}
}

func TestEngineReleaseKeepsInProgressAttempts(t *testing.T) {
	e := NewEngine(&fakeSink{}, nil, zerolog.Nop())
	defer e.Shutdown()

	payload, key := testPayload(1, 30)
	a := e.Start(payload, key, Student{Name: "Asha"})

	e.Release(a.ID)
	if _, err := e.Get(a.ID); err != nil {
		t.Fatal("Release dropped an in-progress attempt")
	}

	if _, err := a.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	e.Release(a.ID)
	if _, err := e.Get(a.ID); !errors.Is(err, ErrNoSuchAttempt) {
		t.Error("Release kept a submitted attempt")
	}
}

func TestEngineShutdownAbandonsEverything(t *testing.T) {
	e := NewEngine(&fakeSink{}, nil, zerolog.Nop())

	payload, key := testPayload(1, 30)
	a1 := e.Start(payload, key, Student{Name: "Asha"})
	payload2, key2 := testPayload(1, 30)
	a2 := e.Start(payload2, key2, Student{Name: "Noor"})

	e.Shutdown()

	for _, a := range []*Attempt{a1, a2} {
		if state := a.State(); state != StateAbandoned {
			t.Errorf("state after shutdown = %s, want ABANDONED", state)
		}
	}
	if _, err := e.Get(a1.ID); !errors.Is(err, ErrNoSuchAttempt) {
		t.Error("registry not emptied on shutdown")
	}
}
