package app_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/gmpapad/phronesis-engine/internal/app"
	"github.com/gmpapad/phronesis-engine/internal/domain"
	"github.com/gmpapad/phronesis-engine/internal/infra/memory"
)

type failingEventStore struct{}

func (failingEventStore) Append(context.Context, *domain.Event) error {
	return fmt.Errorf("disk on fire")
}

func (failingEventStore) Recent(context.Context, int) ([]domain.Event, error) {
	return nil, fmt.Errorf("disk on fire")
}

func TestRecordSwallowsStoreFailure(t *testing.T) {
	recorder := app.NewRecorder(failingEventStore{}, zap.NewNop().Sugar())

	// Must not panic or surface the failure.
	recorder.Record(context.Background(), "u1", domain.EventLessonStarted, "p", "l1", nil)
}

func TestRecordBroadcastsDespiteStoreFailure(t *testing.T) {
	recorder := app.NewRecorder(failingEventStore{}, zap.NewNop().Sugar())

	ch, cancel := recorder.Subscribe()
	defer cancel()

	recorder.Record(context.Background(), "u1", domain.EventQuizAttempted, "p", "l1", nil)

	select {
	case ev := <-ch:
		if ev.Type != domain.EventQuizAttempted {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected broadcast even when the append failed")
	}
}

func TestSubscribeAndCancel(t *testing.T) {
	recorder := app.NewRecorder(memory.NewEventStore(), zap.NewNop().Sugar())

	ch, cancel := recorder.Subscribe()
	recorder.Record(context.Background(), "u1", domain.EventLessonStarted, "p", "l1", nil)

	select {
	case ev := <-ch:
		if ev.UserID != "u1" {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected event on subscriber channel")
	}

	cancel()
	cancel() // safe to call twice

	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel after cancel")
	}
}

func TestSlowSubscriberDoesNotBlockRecord(t *testing.T) {
	recorder := app.NewRecorder(memory.NewEventStore(), zap.NewNop().Sugar())

	_, cancel := recorder.Subscribe()
	defer cancel()

	// Never read from the channel; well past its buffer.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			recorder.Record(context.Background(), "u1", domain.EventQuizAttempted, "p", "l1", nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("record blocked on a slow subscriber")
	}
}

func TestRecentDelegatesToStore(t *testing.T) {
	store := memory.NewEventStore()
	recorder := app.NewRecorder(store, zap.NewNop().Sugar())

	for i := 0; i < 3; i++ {
		recorder.Record(context.Background(), "u1", domain.EventLessonStarted, "p", fmt.Sprintf("l%d", i), nil)
	}

	recent, err := recorder.Recent(context.Background(), 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 events, got %d", len(recent))
	}
	if recent[0].LessonID != "l2" {
		t.Fatalf("expected newest first, got %+v", recent[0])
	}
}
