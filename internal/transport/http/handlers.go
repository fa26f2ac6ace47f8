// Package http is the JSON shell over the engine. It owns request
// decoding and the error-taxonomy-to-status mapping; all state flows
// through the engine operations, never around them.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/gmpapad/phronesis-engine/internal/app"
	"github.com/gmpapad/phronesis-engine/internal/content"
	"github.com/gmpapad/phronesis-engine/internal/domain"
)

type Handler struct {
	content  app.ContentRepository
	tracker  *app.Tracker
	grader   *app.Grader
	assigner *app.Assigner
	events   *app.Recorder
	docs     app.DocumentWriter
	log      *zap.SugaredLogger
}

func NewHandler(contentRepo app.ContentRepository, tracker *app.Tracker, grader *app.Grader, assigner *app.Assigner, events *app.Recorder, docs app.DocumentWriter, log *zap.SugaredLogger) *Handler {
	return &Handler{
		content:  contentRepo,
		tracker:  tracker,
		grader:   grader,
		assigner: assigner,
		events:   events,
		docs:     docs,
		log:      log,
	}
}

// Register wires every engine operation onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/perspectives", h.listPerspectives)
	mux.HandleFunc("GET /api/perspectives/{slug}", h.getPerspective)
	mux.HandleFunc("POST /api/lessons/visit", h.visitLesson)
	mux.HandleFunc("POST /api/lessons/complete", h.completeLesson)
	mux.HandleFunc("POST /api/quiz/grade", h.gradeQuiz)
	mux.HandleFunc("POST /api/minigame/grade", h.gradeMinigame)
	mux.HandleFunc("POST /api/artifacts", h.submitArtifact)
	mux.HandleFunc("GET /api/reviews/next", h.nextReview)
	mux.HandleFunc("POST /api/reviews", h.submitReview)
	mux.HandleFunc("POST /api/reviews/report", h.reportArtifact)
	mux.HandleFunc("GET /api/reviews/received", h.reviewsReceived)
	mux.HandleFunc("GET /api/events", h.recentEvents)
	mux.HandleFunc("POST /api/admin/perspectives", h.uploadPerspective)
}

type perspectiveSummary struct {
	Slug     string `json:"slug"`
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	Progress int    `json:"progress"`
}

func (h *Handler) listPerspectives(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	perspectives, err := h.content.ListPerspectives(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := make([]perspectiveSummary, 0, len(perspectives))
	for _, p := range perspectives {
		summary := perspectiveSummary{Slug: p.Slug, Title: p.Title, Summary: p.Summary}
		if userID != "" {
			pct, err := h.tracker.PercentComplete(r.Context(), userID, p)
			if err != nil {
				h.writeError(w, err)
				return
			}
			summary.Progress = pct
		}
		out = append(out, summary)
	}
	writeJSON(w, http.StatusOK, out)
}

type lessonView struct {
	domain.Lesson
	Status string `json:"status"`
	Score  int    `json:"score"`
}

type perspectiveDetail struct {
	domain.Perspective
	Lessons  []lessonView `json:"lessons"`
	Progress int          `json:"progress"`
}

func (h *Handler) getPerspective(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	userID := r.URL.Query().Get("userId")

	p, err := h.content.GetPerspective(r.Context(), slug)
	if err != nil {
		h.writeError(w, err)
		return
	}

	detail := perspectiveDetail{Perspective: p, Lessons: make([]lessonView, 0, len(p.Lessons))}
	var snapshot map[string]domain.Progress
	if userID != "" {
		if snapshot, err = h.tracker.Snapshot(r.Context(), userID, p.Slug); err != nil {
			h.writeError(w, err)
			return
		}
		if detail.Progress, err = h.tracker.PercentComplete(r.Context(), userID, p); err != nil {
			h.writeError(w, err)
			return
		}
	}
	for _, lesson := range p.Lessons {
		view := lessonView{Lesson: lesson, Status: domain.StatusNotStarted}
		if row, ok := snapshot[lesson.ID]; ok {
			view.Status = row.Status
			view.Score = row.Score
		}
		detail.Lessons = append(detail.Lessons, view)
	}
	writeJSON(w, http.StatusOK, detail)
}

type lessonRequest struct {
	UserID   string `json:"userId"`
	Slug     string `json:"slug"`
	LessonID string `json:"lessonId"`
}

func (h *Handler) visitLesson(w http.ResponseWriter, r *http.Request) {
	var req lessonRequest
	if !h.decode(w, r, &req) {
		return
	}
	if _, err := h.lookupLesson(r, req.Slug, req.LessonID); err != nil {
		h.writeError(w, err)
		return
	}
	progress, err := h.tracker.GetOrCreate(r.Context(), req.UserID, req.Slug, req.LessonID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (h *Handler) completeLesson(w http.ResponseWriter, r *http.Request) {
	var req lessonRequest
	if !h.decode(w, r, &req) {
		return
	}
	if _, err := h.lookupLesson(r, req.Slug, req.LessonID); err != nil {
		h.writeError(w, err)
		return
	}
	progress, err := h.tracker.GetOrCreate(r.Context(), req.UserID, req.Slug, req.LessonID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.tracker.MarkCompleted(r.Context(), progress); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (h *Handler) gradeQuiz(w http.ResponseWriter, r *http.Request) {
	var req struct {
		lessonRequest
		QuickCheckIndex int `json:"quickCheckIndex"`
		ChoiceIndex     int `json:"choiceIndex"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.grader.GradeQuiz(r.Context(), req.UserID, req.Slug, req.LessonID, req.QuickCheckIndex, req.ChoiceIndex)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) gradeMinigame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		lessonRequest
		Value string `json:"value"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.grader.GradeMinigame(r.Context(), req.UserID, req.Slug, req.LessonID, req.Value)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) submitArtifact(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AuthorID string `json:"authorId"`
		Slug     string `json:"slug"`
		Title    string `json:"title"`
		BodyText string `json:"bodyText"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	artifact, err := h.assigner.SubmitArtifact(r.Context(), req.AuthorID, req.Slug, req.Title, req.BodyText)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, artifact)
}

func (h *Handler) nextReview(w http.ResponseWriter, r *http.Request) {
	reviewerID := r.URL.Query().Get("reviewerId")
	artifact, err := h.assigner.NextArtifactFor(r.Context(), reviewerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if artifact == nil {
		// Queue exhausted: a normal outcome, not an error.
		writeJSON(w, http.StatusOK, map[string]any{"artifact": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"artifact": artifact})
}

func (h *Handler) submitReview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ArtifactID int64  `json:"artifactId"`
		ReviewerID string `json:"reviewerId"`
		Clarity    int    `json:"clarity"`
		Logic      int    `json:"logic"`
		Fairness   int    `json:"fairness"`
		Comments   string `json:"comments"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	review, err := h.assigner.SubmitReview(r.Context(), req.ArtifactID, req.ReviewerID, req.Clarity, req.Logic, req.Fairness, req.Comments)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

func (h *Handler) reportArtifact(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ArtifactID int64  `json:"artifactId"`
		ReporterID string `json:"reporterId"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	h.assigner.ReportArtifact(r.Context(), req.ArtifactID, req.ReporterID)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "reported"})
}

func (h *Handler) reviewsReceived(w http.ResponseWriter, r *http.Request) {
	authorID := r.URL.Query().Get("authorId")
	reviews, err := h.assigner.ReviewsReceived(r.Context(), authorID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

func (h *Handler) recentEvents(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	events, err := h.events.Recent(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// uploadPerspective is the strict authoring-time ingestion path: the
// document must carry every field the runtime loader would otherwise
// default.
func (h *Handler) uploadPerspective(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}
	if err := content.ValidateForIngestion(raw); err != nil {
		h.writeError(w, err)
		return
	}
	var doc struct {
		Slug string `json:"slug"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil || doc.Slug == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid document"})
		return
	}
	if err := h.docs.UpsertDocument(r.Context(), doc.Slug, raw); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"slug": doc.Slug})
}

func (h *Handler) lookupLesson(r *http.Request, slug, lessonID string) (domain.Lesson, error) {
	p, err := h.content.GetPerspective(r.Context(), slug)
	if err != nil {
		return domain.Lesson{}, err
	}
	lesson, ok := p.FindLesson(lessonID)
	if !ok {
		return domain.Lesson{}, domain.ErrLessonNotFound
	}
	return lesson, nil
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

// writeError maps the engine's error taxonomy onto HTTP statuses.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var validation *domain.ValidationError
	var rating *domain.InvalidRatingError
	switch {
	case errors.Is(err, domain.ErrPerspectiveNotFound),
		errors.Is(err, domain.ErrLessonNotFound),
		errors.Is(err, domain.ErrMinigameNotFound),
		errors.Is(err, domain.ErrArtifactNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.As(err, &validation), errors.As(err, &rating):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrOutOfRange):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrAlreadyReviewed):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		h.log.Errorw("request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
