package testutil

import (
	"io"
	"testing"

	"github.com/shuizhiqing/examtrainer/internal/logger"
	"github.com/shuizhiqing/examtrainer/internal/models"
	"github.com/shuizhiqing/examtrainer/internal/storage"
)

// NewTestStore opens a throwaway in-memory store for one test.
func NewTestStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	return store
}

// MustClose closes a store and fails the test on error.
func MustClose(t *testing.T, c io.Closer) {
	t.Helper()
	if err := c.Close(); err != nil {
		t.Fatalf("failed to close: %v", err)
	}
}

// QuietLogs silences the default logger for the duration of a test.
func QuietLogs(t *testing.T) {
	t.Helper()
	prev := logger.Default()
	logger.SetDefault(logger.New(logger.WithOutput(io.Discard)))
	t.Cleanup(func() { logger.SetDefault(prev) })
}

// Questions builds a small mixed bank for session and scoring tests.
// Ids start at 1; odd ids are judgment items, even ids single choice with
// answer A.
func Questions(n int) []models.Question {
	out := make([]models.Question, 0, n)
	for i := 1; i <= n; i++ {
		q := models.Question{
			ID:       int64(i),
			Number:   i,
			Category: "初级",
			Text:     "测试题目",
			Answer:   "A",
		}
		if i%2 == 1 {
			q.Type = models.Judgment
		} else {
			q.Type = models.SingleChoice
			q.OptionA = "甲"
			q.OptionB = "乙"
			q.OptionC = "丙"
			q.OptionD = "丁"
		}
		out = append(out, q)
	}
	return out
}
