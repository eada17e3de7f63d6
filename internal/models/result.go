package models

import "time"

// PassScore is the fixed pass threshold on the 0-100 scale.
const PassScore = 60

// AnsweredQuestion pairs a question with the user's final answer.
// A nil answer means the question was skipped or never reached.
type AnsweredQuestion struct {
	Question     Question `json:"question"`
	DisplayIndex int      `json:"display_index"`
	UserAnswer   *string  `json:"user_answer"`
}

// Result is the immutable record of a finished session, appended to the
// per-user history most-recent-first.
type Result struct {
	ID                 string             `json:"id"`
	Date               time.Time          `json:"date"`
	TotalQuestions     int                `json:"total_questions"`
	CorrectCount       int                `json:"correct_count"`
	WrongCount         int                `json:"wrong_count"`
	Score              int                `json:"score"`
	Passed             bool               `json:"passed"`
	TimeUsedSeconds    int                `json:"time_used_seconds"`
	AvgTimePerQuestion int                `json:"avg_time_per_question"`
	Mode               Mode               `json:"mode"`
	ModeLabel          string             `json:"mode_label"`
	CategoryName       string             `json:"category_name"`
	SourceType         SourceType         `json:"source_type"`
	IsTrial            bool               `json:"is_trial"`
	Questions          []AnsweredQuestion `json:"questions"`
}

// ReviewItem is one entry of the post-submission transcript.
type ReviewItem struct {
	Question      Question `json:"question"`
	DisplayIndex  int      `json:"display_index"`
	Options       []Option `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	UserAnswer    *string  `json:"user_answer"`
	Correct       bool     `json:"correct"`
	Skipped       bool     `json:"skipped"`
}
