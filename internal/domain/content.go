package domain

// Minigame types. Choice games are graded against a correct option;
// slider games record the submitted value without judging it.
const (
	MinigameChoice = "choice"
	MinigameSlider = "slider"
)

// QuickCheck is a single multiple-choice question embedded in a lesson.
// Feedback is aligned one-per-choice: every choice, right or wrong,
// carries its own feedback string.
type QuickCheck struct {
	Question    string   `json:"question"`
	Choices     []string `json:"choices"`
	AnswerIndex int      `json:"answer_index"`
	Feedback    []string `json:"feedback"`
}

// Minigame is the tagged mini-game variant attached to a lesson.
type Minigame struct {
	Type          string   `json:"type"`
	Title         string   `json:"title,omitempty"`
	Prompt        string   `json:"prompt,omitempty"`
	Options       []string `json:"options,omitempty"`
	CorrectOption string   `json:"correct_option,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
}

// Lesson is a unit of content within a perspective.
type Lesson struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	KeyIdeas    []string     `json:"key_ideas,omitempty"`
	Examples    []string     `json:"examples,omitempty"`
	QuickChecks []QuickCheck `json:"quick_checks,omitempty"`
	Minigame    *Minigame    `json:"minigame,omitempty"`
}

// CreatorChallenge prompts learners to produce an artifact for peer review.
type CreatorChallenge struct {
	Title        string `json:"title"`
	Instructions string `json:"instructions"`
}

// Resource is an external reading link attached to a perspective.
type Resource struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Perspective is a topic module containing an ordered set of lessons.
// Identity is the slug; content is externally authored and read-only at
// runtime.
type Perspective struct {
	Slug             string            `json:"slug"`
	Title            string            `json:"title"`
	Summary          string            `json:"summary"`
	Order            int               `json:"order"`
	Lessons          []Lesson          `json:"lessons"`
	CreatorChallenge *CreatorChallenge `json:"creator_challenge,omitempty"`
	Resources        []Resource        `json:"resources,omitempty"`
}

// FindLesson scans the perspective for a lesson by id. Lesson counts
// are small; a linear scan is fine.
func (p Perspective) FindLesson(lessonID string) (Lesson, bool) {
	for _, lesson := range p.Lessons {
		if lesson.ID == lessonID {
			return lesson, true
		}
	}
	return Lesson{}, false
}
