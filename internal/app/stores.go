package app

import (
	"context"

	"github.com/gmpapad/phronesis-engine/internal/domain"
)

// ContentRepository is the cached read surface over the content source.
// The engine treats content as immutable; invalidation is the cache's
// concern.
type ContentRepository interface {
	ListPerspectives(ctx context.Context) ([]domain.Perspective, error)
	GetPerspective(ctx context.Context, slug string) (domain.Perspective, error)
}

// ProgressStore persists per-lesson progress rows. Insert must fail
// with domain.ErrAlreadyExists when the (user, perspective, lesson)
// uniqueness constraint is violated, so concurrent duplicate requests
// collapse into one row.
type ProgressStore interface {
	Get(ctx context.Context, userID, slug, lessonID string) (*domain.Progress, bool, error)
	Insert(ctx context.Context, row *domain.Progress) error
	Update(ctx context.Context, row *domain.Progress) error
	ListForPerspective(ctx context.Context, userID, slug string) ([]domain.Progress, error)
	CountCompleted(ctx context.Context, userID, slug string) (int, error)
}

// ArtifactStore persists creator-challenge submissions. Rows are
// immutable after insert; ListInCreationOrder drives deterministic
// review assignment.
type ArtifactStore interface {
	Insert(ctx context.Context, row *domain.Artifact) error
	Get(ctx context.Context, id int64) (*domain.Artifact, bool, error)
	ListInCreationOrder(ctx context.Context) ([]domain.Artifact, error)
}

// ReviewStore persists peer reviews. Insert must fail with
// domain.ErrAlreadyExists when the (artifact, reviewer) constraint is
// violated.
type ReviewStore interface {
	Insert(ctx context.Context, row *domain.PeerReview) error
	ReviewedArtifactIDs(ctx context.Context, reviewerID string) (map[int64]bool, error)
	ListForAuthor(ctx context.Context, authorID string) ([]domain.PeerReview, error)
}

// DocumentWriter persists a strictly validated content document on the
// admin ingestion path. Runtime loads never write.
type DocumentWriter interface {
	UpsertDocument(ctx context.Context, slug string, data []byte) error
}

// EventStore is the append-only audit sink. Recent exists only for the
// external analytics consumer; the engine never reads events back.
type EventStore interface {
	Append(ctx context.Context, row *domain.Event) error
	Recent(ctx context.Context, limit int) ([]domain.Event, error)
}
