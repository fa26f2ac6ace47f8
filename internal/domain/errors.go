package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrPerspectiveNotFound is returned when no content document matches a slug.
	ErrPerspectiveNotFound = errors.New("perspective not found")
	// ErrLessonNotFound indicates a lesson id is unknown within its perspective.
	ErrLessonNotFound = errors.New("lesson not found")
	// ErrMinigameNotFound indicates the lesson carries no mini-game.
	ErrMinigameNotFound = errors.New("lesson has no minigame")
	// ErrArtifactNotFound indicates a submitted artifact id is unknown.
	ErrArtifactNotFound = errors.New("artifact not found")
	// ErrOutOfRange indicates a quiz index outside the content-declared
	// bounds. This is an authoring or client bug and is surfaced as a
	// grading failure, never silently treated as incorrect.
	ErrOutOfRange = errors.New("index out of range")
	// ErrAlreadyReviewed indicates a reviewer already reviewed this artifact.
	ErrAlreadyReviewed = errors.New("artifact already reviewed by this reviewer")
	// ErrAlreadyExists is the storage layer's translation of a
	// uniqueness-constraint violation. Callers treat it as a benign race.
	ErrAlreadyExists = errors.New("row already exists")
)

// ValidationError rejects a content document at ingestion time. The
// runtime loader defaults the same fields instead; only the authoring
// path fails loudly.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// InvalidRatingError rejects a peer-review rating outside the 1-5
// scale. Out-of-range values are refused, never clamped.
type InvalidRatingError struct {
	Name  string
	Value int
}

func (e *InvalidRatingError) Error() string {
	return fmt.Sprintf("rating %s must be between 1 and 5, got %d", e.Name, e.Value)
}
