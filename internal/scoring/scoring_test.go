package scoring_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shuizhiqing/examtrainer/internal/models"
	"github.com/shuizhiqing/examtrainer/internal/scoring"
	"github.com/shuizhiqing/examtrainer/internal/testutil"
)

func ptr(s string) *string { return &s }

func tenQuestionInput() scoring.Input {
	questions := make([]models.SessionQuestion, 0, 10)
	for i, q := range testutil.Questions(10) {
		questions = append(questions, models.SessionQuestion{Question: q, DisplayIndex: i + 1})
	}
	started := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
	return scoring.Input{
		Questions:   questions,
		Mode:        models.ModeExam,
		SourceType:  models.SourceNormal,
		Category:    "初级",
		StartedAt:   started,
		SubmittedAt: started.Add(20 * time.Minute),
	}
}

func TestScorePassBoundary(t *testing.T) {
	// 6 correct, 2 wrong, 1 explicit skip, 1 never answered: exactly 60.
	in := tenQuestionInput()
	in.Answers = map[int64]*string{
		1: ptr("A"), 2: ptr("A"), 3: ptr("A"),
		4: ptr("A"), 5: ptr("A"), 6: ptr("A"),
		7: ptr("B"), 8: ptr("B"),
		9: nil,
	}

	result := scoring.Score(in)
	assert.Equal(t, 10, result.TotalQuestions)
	assert.Equal(t, 6, result.CorrectCount)
	assert.Equal(t, 2, result.WrongCount)
	assert.Equal(t, 60, result.Score)
	assert.True(t, result.Passed)
}

func TestScoreBelowThresholdFails(t *testing.T) {
	in := tenQuestionInput()
	in.Answers = map[int64]*string{
		1: ptr("A"), 2: ptr("A"), 3: ptr("A"), 4: ptr("A"), 5: ptr("A"),
	}

	result := scoring.Score(in)
	assert.Equal(t, 50, result.Score)
	assert.False(t, result.Passed)
}

func TestScoreTimingFields(t *testing.T) {
	in := tenQuestionInput()
	in.Answers = map[int64]*string{}

	result := scoring.Score(in)
	assert.Equal(t, 1200, result.TimeUsedSeconds)
	assert.Equal(t, 120, result.AvgTimePerQuestion)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, in.SubmittedAt, result.Date)
}

func TestScoreLabels(t *testing.T) {
	in := tenQuestionInput()
	in.Answers = map[int64]*string{}

	result := scoring.Score(in)
	assert.Equal(t, "模拟考试", result.ModeLabel)
	assert.Equal(t, "初级", result.CategoryName)

	in.Mode = models.ModePractice
	in.SourceType = models.SourceWrongBook
	result = scoring.Score(in)
	assert.Equal(t, "错题练习", result.ModeLabel)
	assert.Equal(t, "错题集", result.CategoryName)

	in.SourceType = models.SourceFavorites
	result = scoring.Score(in)
	assert.Equal(t, "收藏练习", result.ModeLabel)
	assert.Equal(t, "收藏夹", result.CategoryName)
}

func TestBuildReviewIdempotent(t *testing.T) {
	in := tenQuestionInput()
	in.Answers = map[int64]*string{
		1: ptr("A"),
		2: ptr("B"),
		3: nil,
	}

	first := scoring.BuildReview(in)
	second := scoring.BuildReview(in)
	assert.Equal(t, first, second)

	require.Len(t, first, 10)
	assert.True(t, first[0].Correct)
	assert.False(t, first[1].Correct)
	assert.True(t, first[2].Skipped)
	assert.False(t, first[3].Skipped) // never answered, not skipped
	assert.Nil(t, first[3].UserAnswer)
	assert.Equal(t, 1, first[0].DisplayIndex)
	assert.Equal(t, 10, first[9].DisplayIndex)
}

func TestReviewOptionsForJudgment(t *testing.T) {
	in := tenQuestionInput()
	in.Answers = map[int64]*string{}

	review := scoring.BuildReview(in)
	// Question 1 is a judgment item: fixed true/false pair.
	require.Len(t, review[0].Options, 2)
	assert.Equal(t, "正确", review[0].Options[0].Text)
	assert.Equal(t, "错误", review[0].Options[1].Text)
}
