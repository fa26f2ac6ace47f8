package app

import (
	"context"
	"fmt"

	"github.com/gmpapad/phronesis-engine/internal/domain"
)

// QuizResult is the verdict for a quick-check submission. Feedback
// comes from the slot of the submitted choice, not only the correct
// one.
type QuizResult struct {
	Correct  bool   `json:"correct"`
	Feedback string `json:"feedback"`
}

// MinigameResult is the verdict for a mini-game submission. Correct is
// nil for slider games, which are recorded but never judged.
type MinigameResult struct {
	Correct     *bool  `json:"correct"`
	Explanation string `json:"explanation"`
}

// Grader evaluates submissions against the content-declared answer
// keys and advances progress as a side effect. Quiz correctness alone
// never completes a lesson; completion is only the explicit
// mark-complete action.
type Grader struct {
	content ContentRepository
	tracker *Tracker
	events  *Recorder
}

func NewGrader(content ContentRepository, tracker *Tracker, events *Recorder) *Grader {
	return &Grader{content: content, tracker: tracker, events: events}
}

// GradeQuiz grades one quick-check answer. Indexes outside the
// content-declared bounds fail with domain.ErrOutOfRange rather than
// being treated as incorrect. A correct answer ratchets the lesson
// score to 100.
func (g *Grader) GradeQuiz(ctx context.Context, userID, slug, lessonID string, quickCheckIdx, choiceIdx int) (QuizResult, error) {
	lesson, err := g.lookupLesson(ctx, slug, lessonID)
	if err != nil {
		return QuizResult{}, err
	}
	if quickCheckIdx < 0 || quickCheckIdx >= len(lesson.QuickChecks) {
		return QuizResult{}, fmt.Errorf("quick check %d: %w", quickCheckIdx, domain.ErrOutOfRange)
	}
	qc := lesson.QuickChecks[quickCheckIdx]
	if choiceIdx < 0 || choiceIdx >= len(qc.Choices) {
		return QuizResult{}, fmt.Errorf("choice %d: %w", choiceIdx, domain.ErrOutOfRange)
	}

	correct := choiceIdx == qc.AnswerIndex

	progress, err := g.tracker.GetOrCreate(ctx, userID, slug, lessonID)
	if err != nil {
		return QuizResult{}, err
	}
	if correct {
		if err := g.tracker.RatchetScore(ctx, progress, 100); err != nil {
			return QuizResult{}, err
		}
	}

	g.events.Record(ctx, userID, domain.EventQuizAttempted, slug, lessonID, map[string]any{
		"questionIndex": quickCheckIdx,
		"correct":       correct,
	})

	return QuizResult{Correct: correct, Feedback: qc.Feedback[choiceIdx]}, nil
}

// GradeMinigame evaluates a mini-game submission. Choice games compare
// the submitted option string exactly against the answer key; slider
// games only record the raw value.
func (g *Grader) GradeMinigame(ctx context.Context, userID, slug, lessonID, submitted string) (MinigameResult, error) {
	lesson, err := g.lookupLesson(ctx, slug, lessonID)
	if err != nil {
		return MinigameResult{}, err
	}
	mg := lesson.Minigame
	if mg == nil {
		return MinigameResult{}, domain.ErrMinigameNotFound
	}

	if _, err := g.tracker.GetOrCreate(ctx, userID, slug, lessonID); err != nil {
		return MinigameResult{}, err
	}

	result := MinigameResult{Explanation: mg.Explanation}
	meta := map[string]any{
		"type":           mg.Type,
		"submittedValue": submitted,
		"correct":        nil,
	}
	if mg.Type == domain.MinigameChoice {
		correct := submitted == mg.CorrectOption
		result.Correct = &correct
		meta["correct"] = correct
	}
	g.events.Record(ctx, userID, domain.EventMinigamePlayed, slug, lessonID, meta)
	return result, nil
}

func (g *Grader) lookupLesson(ctx context.Context, slug, lessonID string) (domain.Lesson, error) {
	perspective, err := g.content.GetPerspective(ctx, slug)
	if err != nil {
		return domain.Lesson{}, err
	}
	lesson, ok := perspective.FindLesson(lessonID)
	if !ok {
		return domain.Lesson{}, domain.ErrLessonNotFound
	}
	return lesson, nil
}
