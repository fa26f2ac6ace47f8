package app

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/gmpapad/phronesis-engine/internal/domain"
)

// Tracker owns the per-user, per-lesson progress state machine:
// not_started → started → completed, with a monotonically ratcheting
// score.
type Tracker struct {
	store  ProgressStore
	events *Recorder
	now    func() time.Time
}

func NewTracker(store ProgressStore, events *Recorder) *Tracker {
	return NewTrackerWithClock(store, events, time.Now)
}

// NewTrackerWithClock allows deterministic timestamps in tests.
func NewTrackerWithClock(store ProgressStore, events *Recorder, now func() time.Time) *Tracker {
	return &Tracker{store: store, events: events, now: now}
}

// GetOrCreate returns the progress row for a lesson visit, creating it
// with status=started, score=0 on the first visit. The lesson_started
// event fires exactly once per (user, lesson): only the caller whose
// insert actually lands emits it; a lost race falls back to reading the
// winner's row.
func (t *Tracker) GetOrCreate(ctx context.Context, userID, slug, lessonID string) (*domain.Progress, error) {
	row, ok, err := t.store.Get(ctx, userID, slug, lessonID)
	if err != nil {
		return nil, err
	}
	if ok {
		return row, nil
	}

	fresh := &domain.Progress{
		UserID:          userID,
		PerspectiveSlug: slug,
		LessonID:        lessonID,
		Status:          domain.StatusStarted,
		Score:           0,
		UpdatedAt:       t.now(),
	}
	err = t.store.Insert(ctx, fresh)
	if errors.Is(err, domain.ErrAlreadyExists) {
		row, _, err = t.store.Get(ctx, userID, slug, lessonID)
		return row, err
	}
	if err != nil {
		return nil, err
	}

	t.events.Record(ctx, userID, domain.EventLessonStarted, slug, lessonID, nil)
	return fresh, nil
}

// PercentComplete reports round(100*completed/total) for a perspective,
// 0 when it has no lessons. The completed count is capped at the lesson
// count so stale rows for removed lessons cannot push past 100.
func (t *Tracker) PercentComplete(ctx context.Context, userID string, perspective domain.Perspective) (int, error) {
	total := len(perspective.Lessons)
	if total == 0 {
		return 0, nil
	}
	completed, err := t.store.CountCompleted(ctx, userID, perspective.Slug)
	if err != nil {
		return 0, err
	}
	if completed > total {
		completed = total
	}
	return int(math.Round(100 * float64(completed) / float64(total))), nil
}

// Snapshot returns the user's progress rows for a perspective keyed by
// lesson id, for detail views. Lessons without a row are not_started.
func (t *Tracker) Snapshot(ctx context.Context, userID, slug string) (map[string]domain.Progress, error) {
	rows, err := t.store.ListForPerspective(ctx, userID, slug)
	if err != nil {
		return nil, err
	}
	byLesson := make(map[string]domain.Progress, len(rows))
	for _, row := range rows {
		byLesson[row.LessonID] = row
	}
	return byLesson, nil
}

// MarkCompleted flips a lesson to completed. Idempotent: an already
// completed lesson stays completed and does not re-emit the event.
func (t *Tracker) MarkCompleted(ctx context.Context, row *domain.Progress) error {
	if row.Status == domain.StatusCompleted {
		return nil
	}
	row.Status = domain.StatusCompleted
	row.UpdatedAt = t.now()
	if err := t.store.Update(ctx, row); err != nil {
		return err
	}
	t.events.Record(ctx, row.UserID, domain.EventLessonCompleted, row.PerspectiveSlug, row.LessonID, nil)
	return nil
}

// RatchetScore raises the stored score to candidate if higher. Scores
// never decrease, regardless of attempt order.
func (t *Tracker) RatchetScore(ctx context.Context, row *domain.Progress, candidate int) error {
	if candidate <= row.Score {
		return nil
	}
	row.Score = candidate
	row.UpdatedAt = t.now()
	return t.store.Update(ctx, row)
}
