package models

import "time"

// ProgressRecord is a durable snapshot of an in-progress session. It is
// created by explicit save or auto-save and consumed exactly once on
// restore.
type ProgressRecord struct {
	ID              string            `json:"id"`
	Phone           string            `json:"phone"`
	Questions       []SessionQuestion `json:"questions"`
	Answers         map[int64]*string `json:"answers"`
	MarkedIDs       []int64           `json:"marked_ids"`
	CollectedIDs    []int64           `json:"collected_ids"`
	CompletedIDs    []int64           `json:"completed_ids"`
	CurrentIndex    int               `json:"current_index"`
	TimeRemaining   *int              `json:"time_remaining,omitempty"`
	StartedAt       time.Time         `json:"started_at"`
	Mode            Mode              `json:"mode"`
	PracticeVariant PracticeVariant   `json:"practice_variant,omitempty"`
	SourceType      SourceType        `json:"source_type"`
	Category        string            `json:"category"`

	// Summary fields shown on the resume list.
	TypeLabel       string    `json:"type_label"`
	ModeLabel       string    `json:"mode_label"`
	CategoryName    string    `json:"category_name"`
	AnsweredCount   int       `json:"answered_count"`
	TotalCount      int       `json:"total_count"`
	ProgressPercent int       `json:"progress_percent"`
	SavedAt         time.Time `json:"saved_at"`
}
