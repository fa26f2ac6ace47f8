// Package content parses and validates externally authored perspective
// documents. Two tiers apply: the runtime loaders normalize leniently
// (missing fields are defaulted, broken sub-objects dropped) so one bad
// file never takes the catalog down, while the ingestion path validates
// strictly so authoring mistakes fail loudly.
package content

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/gmpapad/phronesis-engine/internal/domain"
)

// DefaultOrder sorts perspectives without a usable order field last.
const DefaultOrder = 9999

// Document is a raw content document as handed over by a source:
// Name is the storage identifier (file stem or row key), Raw the
// document bytes.
type Document struct {
	Name string
	Raw  []byte
}

type rawPerspective struct {
	Slug             string                   `json:"slug"`
	Title            string                   `json:"title"`
	Summary          string                   `json:"summary"`
	Order            json.RawMessage          `json:"order"`
	Lessons          []domain.Lesson          `json:"lessons"`
	CreatorChallenge *domain.CreatorChallenge `json:"creator_challenge"`
	Resources        []domain.Resource        `json:"resources"`
}

// Normalize parses a document into a Perspective, defaulting whatever
// the author left out. It fails only on undecodable JSON; callers skip
// such documents with a warning rather than aborting the load.
func Normalize(doc Document) (domain.Perspective, error) {
	var raw rawPerspective
	if err := json.Unmarshal(doc.Raw, &raw); err != nil {
		return domain.Perspective{}, err
	}

	p := domain.Perspective{
		Slug:             raw.Slug,
		Title:            raw.Title,
		Summary:          raw.Summary,
		Order:            parseOrder(raw.Order),
		CreatorChallenge: raw.CreatorChallenge,
		Resources:        raw.Resources,
	}
	if p.Slug == "" {
		p.Slug = doc.Name
	}
	if p.Title == "" {
		p.Title = titleFromName(doc.Name)
	}

	p.Lessons = make([]domain.Lesson, 0, len(raw.Lessons))
	for _, lesson := range raw.Lessons {
		if lesson.ID == "" {
			continue
		}
		if lesson.Title == "" {
			lesson.Title = titleFromName(lesson.ID)
		}
		lesson.QuickChecks = sanitizeQuickChecks(lesson.QuickChecks)
		if lesson.Minigame != nil && !knownMinigameType(lesson.Minigame.Type) {
			lesson.Minigame = nil
		}
		p.Lessons = append(p.Lessons, lesson)
	}
	return p, nil
}

// ValidateForIngestion is the strict authoring-time gate: the admin
// upload path requires every field the runtime loader would otherwise
// default. Returns the first missing field.
func ValidateForIngestion(raw []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	for _, field := range []string{"slug", "title", "summary", "order", "lessons"} {
		if _, ok := doc[field]; !ok {
			return &domain.ValidationError{Field: field}
		}
	}
	return nil
}

// Sort orders the catalog by (order asc, title asc), stable, for
// deterministic display.
func Sort(perspectives []domain.Perspective) {
	sort.SliceStable(perspectives, func(i, j int) bool {
		if perspectives[i].Order != perspectives[j].Order {
			return perspectives[i].Order < perspectives[j].Order
		}
		return perspectives[i].Title < perspectives[j].Title
	})
}

// sanitizeQuickChecks drops questions violating the answer-index
// invariant and pads short feedback arrays so feedback stays aligned
// one-per-choice downstream.
func sanitizeQuickChecks(checks []domain.QuickCheck) []domain.QuickCheck {
	kept := make([]domain.QuickCheck, 0, len(checks))
	for _, qc := range checks {
		if qc.AnswerIndex < 0 || qc.AnswerIndex >= len(qc.Choices) {
			continue
		}
		for len(qc.Feedback) < len(qc.Choices) {
			qc.Feedback = append(qc.Feedback, "")
		}
		kept = append(kept, qc)
	}
	return kept
}

func knownMinigameType(t string) bool {
	return t == domain.MinigameChoice || t == domain.MinigameSlider
}

// parseOrder accepts an integer, a numeric string, or garbage, in that
// order of preference.
func parseOrder(raw json.RawMessage) int {
	if len(raw) == 0 {
		return DefaultOrder
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n
		}
	}
	return DefaultOrder
}

// titleFromName turns a storage identifier like "understanding-arguments"
// into "Understanding Arguments".
func titleFromName(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return r == '-' || r == '_'
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
