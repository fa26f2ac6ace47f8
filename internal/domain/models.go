package domain

import (
	"time"

	"github.com/uptrace/bun"
)

// Progress statuses. Transitions are monotonic: not_started → started →
// completed; a completed lesson never regresses.
const (
	StatusNotStarted = "not_started"
	StatusStarted    = "started"
	StatusCompleted  = "completed"
)

// Progress is the per-user, per-lesson state row. Uniqueness over
// (user_id, perspective_slug, lesson_id) is enforced by the storage
// layer, not just checked in application code.
type Progress struct {
	bun.BaseModel `bun:"table:progress,alias:pr"`

	ID              int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID          string    `bun:"user_id,notnull,unique:progress_user_lesson" json:"userId"`
	PerspectiveSlug string    `bun:"perspective_slug,notnull,unique:progress_user_lesson" json:"perspectiveSlug"`
	LessonID        string    `bun:"lesson_id,notnull,unique:progress_user_lesson" json:"lessonId"`
	Status          string    `bun:"status,notnull,default:'started'" json:"status"`
	Score           int       `bun:"score,notnull,default:0" json:"score"`
	UpdatedAt       time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}

// Artifact is a learner's free-text creator-challenge submission.
// Immutable once created; the autoincrement id doubles as creation
// order for review assignment.
type Artifact struct {
	bun.BaseModel `bun:"table:artifacts,alias:af"`

	ID              int64     `bun:"id,pk,autoincrement" json:"id"`
	AuthorID        string    `bun:"author_id,notnull" json:"authorId"`
	PerspectiveSlug string    `bun:"perspective_slug,notnull" json:"perspectiveSlug"`
	Title           string    `bun:"title,notnull" json:"title"`
	BodyText        string    `bun:"body_text,notnull" json:"bodyText"`
	CreatedAt       time.Time `bun:"created_at,notnull" json:"createdAt"`
}

// PeerReview is one reviewer's structured critique of an artifact.
// Uniqueness over (artifact_id, reviewer_id) is a storage-layer
// invariant: a reviewer reviews a given artifact at most once.
type PeerReview struct {
	bun.BaseModel `bun:"table:peer_reviews,alias:rv"`

	ID         int64     `bun:"id,pk,autoincrement" json:"id"`
	ArtifactID int64     `bun:"artifact_id,notnull,unique:review_artifact_reviewer" json:"artifactId"`
	ReviewerID string    `bun:"reviewer_id,notnull,unique:review_artifact_reviewer" json:"reviewerId"`
	Clarity    int       `bun:"clarity,notnull" json:"clarity"`
	Logic      int       `bun:"logic,notnull" json:"logic"`
	Fairness   int       `bun:"fairness,notnull" json:"fairness"`
	Comments   string    `bun:"comments" json:"comments"`
	CreatedAt  time.Time `bun:"created_at,notnull" json:"createdAt"`
}

// Event is an append-only audit record. Nothing in the engine updates
// or deletes events; analytics consumers read them via the recent
// window and the live feed.
type Event struct {
	bun.BaseModel `bun:"table:events,alias:ev"`

	ID              int64          `bun:"id,pk,autoincrement" json:"id"`
	UserID          string         `bun:"user_id,notnull" json:"userId"`
	Type            string         `bun:"type,notnull" json:"type"`
	PerspectiveSlug string         `bun:"perspective_slug" json:"perspectiveSlug,omitempty"`
	LessonID        string         `bun:"lesson_id" json:"lessonId,omitempty"`
	Meta            map[string]any `bun:"meta,type:jsonb" json:"meta,omitempty"`
	CreatedAt       time.Time      `bun:"created_at,notnull" json:"createdAt"`
}

// Event types emitted by the engine.
const (
	EventLessonStarted     = "lesson_started"
	EventLessonCompleted   = "lesson_completed"
	EventQuizAttempted     = "quiz_attempted"
	EventMinigamePlayed    = "minigame_played"
	EventArtifactSubmitted = "artifact_submitted"
	EventArtifactReported  = "artifact_reported"
	EventReviewCompleted   = "peer_review_completed"
)
