package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/gmpapad/phronesis-engine/internal/domain"
)

const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a Postgres
// uniqueness-constraint failure, the storage-level signal for
// duplicate progress and peer-review inserts.
func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == uniqueViolation
}

// ProgressStore persists progress rows; the progress_user_lesson
// constraint makes concurrent duplicate inserts collapse to one row.
type ProgressStore struct {
	db *bun.DB
}

func NewProgressStore(db *bun.DB) *ProgressStore {
	return &ProgressStore{db: db}
}

func (s *ProgressStore) Get(ctx context.Context, userID, slug, lessonID string) (*domain.Progress, bool, error) {
	row := new(domain.Progress)
	err := s.db.NewSelect().Model(row).
		Where("user_id = ?", userID).
		Where("perspective_slug = ?", slug).
		Where("lesson_id = ?", lessonID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get progress: %w", err)
	}
	return row, true, nil
}

func (s *ProgressStore) Insert(ctx context.Context, row *domain.Progress) error {
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("insert progress: %w", err)
	}
	return nil
}

func (s *ProgressStore) Update(ctx context.Context, row *domain.Progress) error {
	if _, err := s.db.NewUpdate().Model(row).WherePK().Exec(ctx); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

func (s *ProgressStore) ListForPerspective(ctx context.Context, userID, slug string) ([]domain.Progress, error) {
	var rows []domain.Progress
	err := s.db.NewSelect().Model(&rows).
		Where("user_id = ?", userID).
		Where("perspective_slug = ?", slug).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	return rows, nil
}

func (s *ProgressStore) CountCompleted(ctx context.Context, userID, slug string) (int, error) {
	count, err := s.db.NewSelect().Model((*domain.Progress)(nil)).
		Where("user_id = ?", userID).
		Where("perspective_slug = ?", slug).
		Where("status = ?", domain.StatusCompleted).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count completed: %w", err)
	}
	return count, nil
}

// ArtifactStore persists creator-challenge submissions.
type ArtifactStore struct {
	db *bun.DB
}

func NewArtifactStore(db *bun.DB) *ArtifactStore {
	return &ArtifactStore{db: db}
}

func (s *ArtifactStore) Insert(ctx context.Context, row *domain.Artifact) error {
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert artifact: %w", err)
	}
	return nil
}

func (s *ArtifactStore) Get(ctx context.Context, id int64) (*domain.Artifact, bool, error) {
	row := new(domain.Artifact)
	err := s.db.NewSelect().Model(row).Where("af.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get artifact: %w", err)
	}
	return row, true, nil
}

func (s *ArtifactStore) ListInCreationOrder(ctx context.Context) ([]domain.Artifact, error) {
	var rows []domain.Artifact
	if err := s.db.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	return rows, nil
}

// ReviewStore persists peer reviews; the review_artifact_reviewer
// constraint is the authority on duplicates.
type ReviewStore struct {
	db *bun.DB
}

func NewReviewStore(db *bun.DB) *ReviewStore {
	return &ReviewStore{db: db}
}

func (s *ReviewStore) Insert(ctx context.Context, row *domain.PeerReview) error {
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (s *ReviewStore) ReviewedArtifactIDs(ctx context.Context, reviewerID string) (map[int64]bool, error) {
	var ids []int64
	err := s.db.NewSelect().Model((*domain.PeerReview)(nil)).
		Column("artifact_id").
		Where("reviewer_id = ?", reviewerID).
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("reviewed artifact ids: %w", err)
	}
	out := make(map[int64]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (s *ReviewStore) ListForAuthor(ctx context.Context, authorID string) ([]domain.PeerReview, error) {
	var rows []domain.PeerReview
	err := s.db.NewSelect().Model(&rows).
		Join("JOIN artifacts AS af ON af.id = rv.artifact_id").
		Where("af.author_id = ?", authorID).
		Order("rv.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("reviews for author: %w", err)
	}
	return rows, nil
}

// EventStore is the append-only audit table.
type EventStore struct {
	db *bun.DB
}

func NewEventStore(db *bun.DB) *EventStore {
	return &EventStore{db: db}
}

func (s *EventStore) Append(ctx context.Context, row *domain.Event) error {
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

func (s *EventStore) Recent(ctx context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []domain.Event
	err := s.db.NewSelect().Model(&rows).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	return rows, nil
}

// DocumentStore is the admin ingestion target for validated
// perspective documents.
type DocumentStore struct {
	db *bun.DB
}

func NewDocumentStore(db *bun.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

func (s *DocumentStore) UpsertDocument(ctx context.Context, slug string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO perspective_documents (slug, data, updated_at) VALUES (?, ?::jsonb, now())
		 ON CONFLICT (slug) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		slug, string(data))
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}
