package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/gmpapad/phronesis-engine/internal/app"
	"github.com/gmpapad/phronesis-engine/internal/domain"
	"github.com/gmpapad/phronesis-engine/internal/infra/memory"
)

func newTestGrader() (*app.Grader, *app.Tracker, *memory.EventStore) {
	events := memory.NewEventStore()
	recorder := app.NewRecorder(events, zap.NewNop().Sugar())
	tracker := app.NewTracker(memory.NewProgressStore(), recorder)
	content := memory.NewContentRepository(memory.NewStaticLoader(map[string]domain.Perspective{
		"understanding-arguments": samplePerspective(),
	}), 5*time.Minute)
	return app.NewGrader(content, tracker, recorder), tracker, events
}

func samplePerspective() domain.Perspective {
	return domain.Perspective{
		Slug:  "understanding-arguments",
		Title: "Understanding Arguments",
		Order: 1,
		Lessons: []domain.Lesson{
			{
				ID:    "what-is-an-argument",
				Title: "What is an Argument?",
				QuickChecks: []domain.QuickCheck{
					{
						Question:    "Which of these is an argument?",
						Choices:     []string{"A", "B", "C"},
						AnswerIndex: 1,
						Feedback:    []string{"Not quite.", "Correct!", "No."},
					},
				},
				Minigame: &domain.Minigame{
					Type:          domain.MinigameChoice,
					Title:         "Spot the Argument",
					Options:       []string{"Yes", "No"},
					CorrectOption: "Yes",
					Explanation:   "It gives a reason for a conclusion.",
				},
			},
			{
				ID:    "slider-lesson",
				Title: "Calibrate",
				Minigame: &domain.Minigame{
					Type:        domain.MinigameSlider,
					Title:       "Confidence Meter",
					Explanation: "There is no single right answer here.",
				},
			},
			{
				ID:    "plain-lesson",
				Title: "No Games",
			},
		},
	}
}

func TestGradeQuizCorrectAnswer(t *testing.T) {
	ctx := context.Background()
	grader, tracker, events := newTestGrader()

	result, err := grader.GradeQuiz(ctx, "u1", "understanding-arguments", "what-is-an-argument", 0, 1)
	if err != nil {
		t.Fatalf("grade quiz: %v", err)
	}
	if !result.Correct {
		t.Fatalf("expected correct verdict")
	}
	if result.Feedback != "Correct!" {
		t.Fatalf("expected feedback for submitted choice, got %q", result.Feedback)
	}

	row, _ := tracker.GetOrCreate(ctx, "u1", "understanding-arguments", "what-is-an-argument")
	if row.Score != 100 {
		t.Fatalf("expected score ratcheted to 100, got %d", row.Score)
	}
	if row.Status != domain.StatusStarted {
		t.Fatalf("correct answer must not complete the lesson, got %q", row.Status)
	}

	var attempt *domain.Event
	all := events.All()
	for i := range all {
		if all[i].Type == domain.EventQuizAttempted {
			attempt = &all[i]
		}
	}
	if attempt == nil {
		t.Fatalf("expected quiz_attempted event")
	}
	if attempt.Meta["correct"] != true {
		t.Fatalf("expected correct=true in event meta, got %+v", attempt.Meta)
	}
}

func TestGradeQuizWrongAnswerKeepsScore(t *testing.T) {
	ctx := context.Background()
	grader, tracker, _ := newTestGrader()

	if _, err := grader.GradeQuiz(ctx, "u1", "understanding-arguments", "what-is-an-argument", 0, 1); err != nil {
		t.Fatalf("first attempt: %v", err)
	}
	result, err := grader.GradeQuiz(ctx, "u1", "understanding-arguments", "what-is-an-argument", 0, 2)
	if err != nil {
		t.Fatalf("second attempt: %v", err)
	}
	if result.Correct {
		t.Fatalf("expected incorrect verdict")
	}
	if result.Feedback != "No." {
		t.Fatalf("expected feedback for the wrong choice, got %q", result.Feedback)
	}

	row, _ := tracker.GetOrCreate(ctx, "u1", "understanding-arguments", "what-is-an-argument")
	if row.Score != 100 {
		t.Fatalf("wrong follow-up must not lower the score, got %d", row.Score)
	}
}

func TestGradeQuizOutOfRange(t *testing.T) {
	ctx := context.Background()
	grader, _, _ := newTestGrader()

	if _, err := grader.GradeQuiz(ctx, "u1", "understanding-arguments", "what-is-an-argument", 5, 0); !errors.Is(err, domain.ErrOutOfRange) {
		t.Fatalf("expected out-of-range for bad question index, got %v", err)
	}
	if _, err := grader.GradeQuiz(ctx, "u1", "understanding-arguments", "what-is-an-argument", 0, 9); !errors.Is(err, domain.ErrOutOfRange) {
		t.Fatalf("expected out-of-range for bad choice index, got %v", err)
	}
	if _, err := grader.GradeQuiz(ctx, "u1", "understanding-arguments", "what-is-an-argument", 0, -1); !errors.Is(err, domain.ErrOutOfRange) {
		t.Fatalf("expected out-of-range for negative choice index, got %v", err)
	}
}

func TestGradeQuizUnknownLesson(t *testing.T) {
	grader, _, _ := newTestGrader()
	if _, err := grader.GradeQuiz(context.Background(), "u1", "understanding-arguments", "nope", 0, 0); !errors.Is(err, domain.ErrLessonNotFound) {
		t.Fatalf("expected lesson not found, got %v", err)
	}
}

func TestGradeMinigameChoice(t *testing.T) {
	ctx := context.Background()
	grader, _, _ := newTestGrader()

	result, err := grader.GradeMinigame(ctx, "u1", "understanding-arguments", "what-is-an-argument", "Yes")
	if err != nil {
		t.Fatalf("grade minigame: %v", err)
	}
	if result.Correct == nil || !*result.Correct {
		t.Fatalf("expected correct=true, got %+v", result.Correct)
	}
	if result.Explanation != "It gives a reason for a conclusion." {
		t.Fatalf("expected explanation pass-through, got %q", result.Explanation)
	}

	result, err = grader.GradeMinigame(ctx, "u1", "understanding-arguments", "what-is-an-argument", "No")
	if err != nil {
		t.Fatalf("grade minigame: %v", err)
	}
	if result.Correct == nil || *result.Correct {
		t.Fatalf("expected correct=false for wrong option")
	}
}

func TestGradeMinigameSliderIsNotJudged(t *testing.T) {
	ctx := context.Background()
	grader, _, events := newTestGrader()

	result, err := grader.GradeMinigame(ctx, "u1", "understanding-arguments", "slider-lesson", "72")
	if err != nil {
		t.Fatalf("grade minigame: %v", err)
	}
	if result.Correct != nil {
		t.Fatalf("slider games are recorded, not judged; got %+v", *result.Correct)
	}

	var played *domain.Event
	all := events.All()
	for i := range all {
		if all[i].Type == domain.EventMinigamePlayed {
			played = &all[i]
		}
	}
	if played == nil {
		t.Fatalf("expected minigame_played event")
	}
	if played.Meta["submittedValue"] != "72" {
		t.Fatalf("expected raw value in meta, got %+v", played.Meta)
	}
}

func TestGradeMinigameMissing(t *testing.T) {
	grader, _, _ := newTestGrader()
	if _, err := grader.GradeMinigame(context.Background(), "u1", "understanding-arguments", "plain-lesson", "x"); !errors.Is(err, domain.ErrMinigameNotFound) {
		t.Fatalf("expected minigame not found, got %v", err)
	}
}
