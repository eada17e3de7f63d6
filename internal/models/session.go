package models

// Mode selects between the timed fixed-size exam and open-ended practice.
type Mode string

const (
	ModeExam     Mode = "exam"
	ModePractice Mode = "practice"
)

// PracticeVariant controls question ordering in practice mode.
type PracticeVariant string

const (
	PracticeOrdered PracticeVariant = "ordered"
	PracticeRandom  PracticeVariant = "random"
)

// SourceType records where a session's questions came from.
type SourceType string

const (
	SourceNormal    SourceType = "normal"
	SourceWrongBook SourceType = "wrong_book"
	SourceFavorites SourceType = "favorites"
)

// ProgressSummary is the read-only view the presentation layer polls
// while a session is active.
type ProgressSummary struct {
	CurrentIndex    int  `json:"current_index"`
	TotalQuestions  int  `json:"total_questions"`
	AnsweredCount   int  `json:"answered_count"`
	SkippedCount    int  `json:"skipped_count"`
	MarkedCount     int  `json:"marked_count"`
	CollectedCount  int  `json:"collected_count"`
	TimeRemaining   *int `json:"time_remaining,omitempty"`
	ThinkingSeconds int  `json:"thinking_seconds"`
}
