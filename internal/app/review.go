package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gmpapad/phronesis-engine/internal/domain"
)

// Assigner hands out peer-review work and records reviews. Selection is
// deterministic: artifacts are scanned in creation order, skipping the
// reviewer's own work and anything they already reviewed.
type Assigner struct {
	artifacts ArtifactStore
	reviews   ReviewStore
	events    *Recorder
	now       func() time.Time
}

func NewAssigner(artifacts ArtifactStore, reviews ReviewStore, events *Recorder) *Assigner {
	return NewAssignerWithClock(artifacts, reviews, events, time.Now)
}

// NewAssignerWithClock allows deterministic timestamps in tests.
func NewAssignerWithClock(artifacts ArtifactStore, reviews ReviewStore, events *Recorder, now func() time.Time) *Assigner {
	return &Assigner{artifacts: artifacts, reviews: reviews, events: events, now: now}
}

// SubmitArtifact records a creator-challenge submission. Artifacts are
// immutable once created; there is no edit path.
func (a *Assigner) SubmitArtifact(ctx context.Context, authorID, slug, title, bodyText string) (*domain.Artifact, error) {
	if strings.TrimSpace(title) == "" {
		return nil, &domain.ValidationError{Field: "title"}
	}
	if strings.TrimSpace(bodyText) == "" {
		return nil, &domain.ValidationError{Field: "body_text"}
	}

	artifact := &domain.Artifact{
		AuthorID:        authorID,
		PerspectiveSlug: slug,
		Title:           title,
		BodyText:        bodyText,
		CreatedAt:       a.now(),
	}
	if err := a.artifacts.Insert(ctx, artifact); err != nil {
		return nil, err
	}
	a.events.Record(ctx, authorID, domain.EventArtifactSubmitted, slug, "", nil)
	return artifact, nil
}

// NextArtifactFor returns the oldest artifact the reviewer may review:
// not their own, not already reviewed by them. A nil artifact with nil
// error means the queue is exhausted — a normal outcome, not a fault.
func (a *Assigner) NextArtifactFor(ctx context.Context, reviewerID string) (*domain.Artifact, error) {
	reviewed, err := a.reviews.ReviewedArtifactIDs(ctx, reviewerID)
	if err != nil {
		return nil, err
	}
	candidates, err := a.artifacts.ListInCreationOrder(ctx)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		candidate := &candidates[i]
		if candidate.AuthorID == reviewerID || reviewed[candidate.ID] {
			continue
		}
		return candidate, nil
	}
	return nil, nil
}

// SubmitReview records a structured review. Ratings outside [1,5] are
// refused, never clamped. Duplicate submissions are caught by the
// storage constraint, so a concurrent double-submit leaves exactly one
// row and the loser sees ErrAlreadyReviewed.
func (a *Assigner) SubmitReview(ctx context.Context, artifactID int64, reviewerID string, clarity, logic, fairness int, comments string) (*domain.PeerReview, error) {
	for _, rating := range []struct {
		name  string
		value int
	}{
		{"clarity", clarity},
		{"logic", logic},
		{"fairness", fairness},
	} {
		if rating.value < 1 || rating.value > 5 {
			return nil, &domain.InvalidRatingError{Name: rating.name, Value: rating.value}
		}
	}

	if _, ok, err := a.artifacts.Get(ctx, artifactID); err != nil {
		return nil, err
	} else if !ok {
		return nil, domain.ErrArtifactNotFound
	}

	review := &domain.PeerReview{
		ArtifactID: artifactID,
		ReviewerID: reviewerID,
		Clarity:    clarity,
		Logic:      logic,
		Fairness:   fairness,
		Comments:   comments,
		CreatedAt:  a.now(),
	}
	if err := a.reviews.Insert(ctx, review); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.ErrAlreadyReviewed
		}
		return nil, err
	}
	a.events.Record(ctx, reviewerID, domain.EventReviewCompleted, "", "", map[string]any{
		"artifactId": artifactID,
	})
	return review, nil
}

// ReviewsReceived lists the reviews written against a user's artifacts,
// for profile views.
func (a *Assigner) ReviewsReceived(ctx context.Context, authorID string) ([]domain.PeerReview, error) {
	return a.reviews.ListForAuthor(ctx, authorID)
}

// ReportArtifact is a pure audit action: it emits artifact_reported and
// mutates nothing. There is no moderation workflow in the engine.
func (a *Assigner) ReportArtifact(ctx context.Context, artifactID int64, reporterID string) {
	a.events.Record(ctx, reporterID, domain.EventArtifactReported, "", "", map[string]any{
		"artifactId": artifactID,
	})
}
