// Package memory provides in-process implementations of the engine's
// storage interfaces. They enforce the same uniqueness invariants as
// the Postgres stores so the unit suite exercises identical semantics,
// and they back the server when no database is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/gmpapad/phronesis-engine/internal/domain"
)

type progressKey struct {
	userID   string
	slug     string
	lessonID string
}

// ProgressStore keeps progress rows keyed by the same triple the
// database constrains on.
type ProgressStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[progressKey]*domain.Progress
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{rows: make(map[progressKey]*domain.Progress)}
}

func (s *ProgressStore) Get(_ context.Context, userID, slug, lessonID string) (*domain.Progress, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[progressKey{userID, slug, lessonID}]
	if !ok {
		return nil, false, nil
	}
	cp := *row
	return &cp, true, nil
}

func (s *ProgressStore) Insert(_ context.Context, row *domain.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := progressKey{row.UserID, row.PerspectiveSlug, row.LessonID}
	if _, ok := s.rows[key]; ok {
		return domain.ErrAlreadyExists
	}
	s.nextID++
	row.ID = s.nextID
	cp := *row
	s.rows[key] = &cp
	return nil
}

func (s *ProgressStore) Update(_ context.Context, row *domain.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := progressKey{row.UserID, row.PerspectiveSlug, row.LessonID}
	stored, ok := s.rows[key]
	if !ok {
		return fmt.Errorf("update progress: row %d not found", row.ID)
	}
	*stored = *row
	return nil
}

func (s *ProgressStore) ListForPerspective(_ context.Context, userID, slug string) ([]domain.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Progress
	for key, row := range s.rows {
		if key.userID == userID && key.slug == slug {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (s *ProgressStore) CountCompleted(_ context.Context, userID, slug string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for key, row := range s.rows {
		if key.userID == userID && key.slug == slug && row.Status == domain.StatusCompleted {
			count++
		}
	}
	return count, nil
}

// ArtifactStore keeps artifacts in creation order.
type ArtifactStore struct {
	mu     sync.Mutex
	nextID int64
	rows   []domain.Artifact
}

func NewArtifactStore() *ArtifactStore {
	return &ArtifactStore{}
}

func (s *ArtifactStore) Insert(_ context.Context, row *domain.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	row.ID = s.nextID
	s.rows = append(s.rows, *row)
	return nil
}

func (s *ArtifactStore) Get(_ context.Context, id int64) (*domain.Artifact, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].ID == id {
			cp := s.rows[i]
			return &cp, true, nil
		}
	}
	return nil, false, nil
}

func (s *ArtifactStore) ListInCreationOrder(_ context.Context) ([]domain.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Artifact, len(s.rows))
	copy(out, s.rows)
	return out, nil
}

type reviewKey struct {
	artifactID int64
	reviewerID string
}

// ReviewStore enforces the one-review-per-(artifact, reviewer)
// invariant under its mutex, mirroring the database constraint.
type ReviewStore struct {
	artifacts *ArtifactStore
	mu        sync.Mutex
	nextID    int64
	rows      map[reviewKey]*domain.PeerReview
}

func NewReviewStore(artifacts *ArtifactStore) *ReviewStore {
	return &ReviewStore{artifacts: artifacts, rows: make(map[reviewKey]*domain.PeerReview)}
}

func (s *ReviewStore) Insert(_ context.Context, row *domain.PeerReview) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := reviewKey{row.ArtifactID, row.ReviewerID}
	if _, ok := s.rows[key]; ok {
		return domain.ErrAlreadyExists
	}
	s.nextID++
	row.ID = s.nextID
	cp := *row
	s.rows[key] = &cp
	return nil
}

func (s *ReviewStore) ReviewedArtifactIDs(_ context.Context, reviewerID string) (map[int64]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]bool)
	for key := range s.rows {
		if key.reviewerID == reviewerID {
			out[key.artifactID] = true
		}
	}
	return out, nil
}

func (s *ReviewStore) ListForAuthor(ctx context.Context, authorID string) ([]domain.PeerReview, error) {
	byAuthor := make(map[int64]bool)
	artifacts, err := s.artifacts.ListInCreationOrder(ctx)
	if err != nil {
		return nil, err
	}
	for _, artifact := range artifacts {
		if artifact.AuthorID == authorID {
			byAuthor[artifact.ID] = true
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.PeerReview
	for _, row := range s.rows {
		if byAuthor[row.ArtifactID] {
			out = append(out, *row)
		}
	}
	return out, nil
}

// EventStore is an append-only slice; Recent walks it backwards.
type EventStore struct {
	mu     sync.Mutex
	nextID int64
	rows   []domain.Event
}

func NewEventStore() *EventStore {
	return &EventStore{}
}

func (s *EventStore) Append(_ context.Context, row *domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	row.ID = s.nextID
	s.rows = append(s.rows, *row)
	return nil
}

func (s *EventStore) Recent(_ context.Context, limit int) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.rows) {
		limit = len(s.rows)
	}
	out := make([]domain.Event, 0, limit)
	for i := len(s.rows) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.rows[i])
	}
	return out, nil
}

// All returns every stored event in append order, for tests.
func (s *EventStore) All() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Event, len(s.rows))
	copy(out, s.rows)
	return out
}
