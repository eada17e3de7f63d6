package models

import (
	"strings"
	"time"
)

// TrialPhonePrefix marks ephemeral trial identities in every per-user
// namespace.
const TrialPhonePrefix = "trial_"

// User is a registered account keyed by phone number. Credentials are
// stored as-is; hardening is out of scope for this system.
type User struct {
	Phone          string       `json:"phone"`
	Name           string       `json:"name"`
	Password       string       `json:"password"`
	RegisterTime   time.Time    `json:"register_time"`
	ActivationCode string       `json:"activation_code,omitempty"`
	ActivatedUntil *time.Time   `json:"activated_until,omitempty"`
	WrongQuestions []WrongEntry `json:"wrong_questions,omitempty"`
}

// IsTrialIdentity reports whether the identity belongs to a trial login.
func IsTrialIdentity(phone string) bool {
	return strings.HasPrefix(phone, TrialPhonePrefix)
}

// WrongEntry tracks a question the user has answered incorrectly. It
// carries a denormalized copy of the question so the wrong book stays
// readable even after bank edits.
type WrongEntry struct {
	Question      Question   `json:"question"`
	WrongCount    int        `json:"wrong_count"`
	CorrectCount  int        `json:"correct_count"`
	LastWrong     time.Time  `json:"last_wrong"`
	LastPracticed *time.Time `json:"last_practiced,omitempty"`
}

// FavoriteSet is the current favorites shape: ordered ids plus a
// denormalized content cache. Legacy bare id arrays are migrated to this
// shape on first read.
type FavoriteSet struct {
	IDs       []int64            `json:"ids"`
	Questions map[int64]Question `json:"questions"`
}

// UserStats aggregates a user's lifetime answering activity.
type UserStats struct {
	TotalQuestions int `json:"total_questions"`
	CorrectCount   int `json:"correct_count"`
	WrongCount     int `json:"wrong_count"`
	Accuracy       int `json:"accuracy"`
	HistoryCount   int `json:"history_count"`
	WrongBookCount int `json:"wrong_book_count"`
	FavoriteCount  int `json:"favorite_count"`
}

// CodeUse records one consumption of an activation code.
type CodeUse struct {
	Phone  string    `json:"phone"`
	UsedAt time.Time `json:"used_at"`
}

// ActivationCode gates full (non-trial) accounts.
type ActivationCode struct {
	Code         string     `json:"code"`
	ValidityDays int        `json:"validity_days"`
	MaxUses      int        `json:"max_uses"` // 0 = unlimited
	Status       string     `json:"status"`   // "unused" or "used"
	IsSpecial    bool       `json:"is_special"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
	UsedCount    int        `json:"used_count"`
	LastUsedAt   *time.Time `json:"last_used_at,omitempty"`
	UsedBy       []CodeUse  `json:"used_by"`
}

// Settings holds the admin-editable site configuration.
type Settings struct {
	SiteName       string            `json:"site_name"`
	SiteTitle      string            `json:"site_title"`
	ExamInfo       map[string]string `json:"exam_info"`
	AdminPassword  string            `json:"admin_password"`
	WrongThreshold int               `json:"wrong_threshold"`
	LogoURL        string            `json:"logo_url"`
}
