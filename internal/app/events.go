package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gmpapad/phronesis-engine/internal/domain"
)

// Recorder appends domain events and fans them out to live
// subscribers. Recording is strictly best-effort: a failed write is
// logged and swallowed so event logging can never roll back or fail the
// state transition that triggered it.
type Recorder struct {
	store EventStore
	log   *zap.SugaredLogger
	now   func() time.Time

	mu          sync.Mutex
	subscribers map[chan domain.Event]struct{}
}

func NewRecorder(store EventStore, log *zap.SugaredLogger) *Recorder {
	return NewRecorderWithClock(store, log, time.Now)
}

// NewRecorderWithClock allows deterministic timestamps in tests.
func NewRecorderWithClock(store EventStore, log *zap.SugaredLogger, now func() time.Time) *Recorder {
	return &Recorder{
		store:       store,
		log:         log,
		now:         now,
		subscribers: make(map[chan domain.Event]struct{}),
	}
}

// Record appends one audit event. It returns nothing: failures are the
// recorder's problem, not the caller's.
func (r *Recorder) Record(ctx context.Context, userID, eventType, slug, lessonID string, meta map[string]any) {
	event := domain.Event{
		UserID:          userID,
		Type:            eventType,
		PerspectiveSlug: slug,
		LessonID:        lessonID,
		Meta:            meta,
		CreatedAt:       r.now(),
	}
	if err := r.store.Append(ctx, &event); err != nil {
		r.log.Warnw("event append failed", "type", eventType, "user", userID, "err", err)
	}
	r.broadcast(event)
}

// Recent returns up to limit events ordered by recency, for the
// analytics consumer.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]domain.Event, error) {
	return r.store.Recent(ctx, limit)
}

// Subscribe returns a channel receiving every event recorded after the
// call. The caller must invoke cancel to avoid leaks.
func (r *Recorder) Subscribe() (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, 8)

	r.mu.Lock()
	r.subscribers[ch] = struct{}{}
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		if _, ok := r.subscribers[ch]; ok {
			delete(r.subscribers, ch)
			close(ch)
		}
		r.mu.Unlock()
	}
	return ch, cancel
}

func (r *Recorder) broadcast(event domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ch := range r.subscribers {
		select {
		case ch <- event:
		default:
			// Drop the oldest buffered event so a slow consumer never
			// blocks the request path.
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}
