package bank_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shuizhiqing/examtrainer/internal/bank"
	appErrors "github.com/shuizhiqing/examtrainer/internal/errors"
	"github.com/shuizhiqing/examtrainer/internal/models"
	"github.com/shuizhiqing/examtrainer/internal/testutil"
)

func row(number, qType, category, sub, text, a, b, c, d, answer, explanation string) []string {
	return []string{number, qType, category, sub, text, a, b, c, d, answer, explanation}
}

func TestLoadSkipsShortAndEmptyRows(t *testing.T) {
	testutil.QuietLogs(t)
	b := bank.New()

	summary := b.Load([][]string{
		{"1", "判断题", "初级"}, // too few fields
		row("2", "判断题", "初级", "", "", "", "", "", "", "正确", ""), // empty text
		row("3", "判断题", "初级", "", "游泳救生员需持证上岗", "", "", "", "", "正确", ""),
	}, "")

	assert.Equal(t, 1, summary.Added)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 1, b.Count())
}

func TestLoadDeduplicatesByTextAndAnswer(t *testing.T) {
	testutil.QuietLogs(t)
	b := bank.New()

	summary := b.Load([][]string{
		row("1", "判断题", "初级", "", "重复题干", "", "", "", "", "正确", ""),
		row("2", "判断题", "初级", "", "重复题干", "", "", "", "", "A", ""), // same text, same canonical answer
		row("3", "判断题", "初级", "", "重复题干", "", "", "", "", "错误", ""), // same text, different answer
	}, "")

	assert.Equal(t, 2, summary.Added)
	assert.Equal(t, 1, summary.Duplicates)
}

func TestLoadNormalizesJudgmentAnswers(t *testing.T) {
	testutil.QuietLogs(t)
	b := bank.New()

	b.Load([][]string{
		row("1", "判断题", "", "", "题一", "", "", "", "", "正确", ""),
		row("2", "判断题", "", "", "题二", "", "", "", "", "错误", ""),
		row("3", "判断题", "", "", "题三", "", "", "", "", "a", ""),
		row("4", "单选题", "", "", "题四", "甲", "乙", "丙", "丁", "c", ""),
	}, "")

	answers := map[string]string{}
	for _, q := range b.All() {
		answers[q.Text] = q.Answer
	}
	assert.Equal(t, "A", answers["题一"])
	assert.Equal(t, "B", answers["题二"])
	assert.Equal(t, "A", answers["题三"])
	assert.Equal(t, "C", answers["题四"])
}

func TestLoadAppliesDefaults(t *testing.T) {
	testutil.QuietLogs(t)
	b := bank.New()

	b.Load([][]string{
		row("1", "", "", "", "默认题", "", "", "", "", "正确", ""),
	}, "中级")

	q := b.All()[0]
	assert.Equal(t, models.Judgment, q.Type)
	assert.Equal(t, "中级", q.Category)
	assert.Equal(t, bank.DefaultSubCategory, q.SubCategory)
}

func TestLoadIdsMonotonicAcrossImports(t *testing.T) {
	testutil.QuietLogs(t)
	b := bank.New()

	b.Load([][]string{row("1", "判断题", "", "", "第一批", "", "", "", "", "正确", "")}, "")
	b.Load([][]string{row("1", "判断题", "", "", "第二批", "", "", "", "", "正确", "")}, "")

	all := b.All()
	require.Len(t, all, 2)
	assert.Greater(t, all[1].ID, all[0].ID)
}

func TestQueryPreservesCatalogOrder(t *testing.T) {
	testutil.QuietLogs(t)
	b := bank.New()
	b.ReplaceAll(testutil.Questions(6))

	got := b.Query(bank.Filter{Types: []models.QuestionType{models.Judgment}})
	require.Len(t, got, 3)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)
	assert.Equal(t, int64(5), got[2].ID)
}

func TestQueryByCategory(t *testing.T) {
	testutil.QuietLogs(t)
	b := bank.New()
	qs := testutil.Questions(4)
	qs[0].Category = "中级"
	b.ReplaceAll(qs)

	got := b.Query(bank.Filter{Categories: []string{"中级"}})
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
}

func TestSampleBoundsAndDisplayIndexes(t *testing.T) {
	testutil.QuietLogs(t)
	b := bank.New()
	b.ReplaceAll(testutil.Questions(10))

	for _, n := range []int{0, 3, 10, 25} {
		got := b.Sample(n, bank.Filter{})
		want := n
		if want > 10 {
			want = 10
		}
		require.Len(t, got, want, "n=%d", n)

		seen := map[int64]bool{}
		for i, sq := range got {
			assert.Equal(t, i+1, sq.DisplayIndex)
			assert.False(t, seen[sq.ID], "duplicate question id %d", sq.ID)
			seen[sq.ID] = true
		}
	}
}

func TestAddRejectsDuplicates(t *testing.T) {
	testutil.QuietLogs(t)
	b := bank.New()

	_, err := b.Add(models.Question{Type: models.Judgment, Text: "新题", Answer: "正确"})
	require.NoError(t, err)

	_, err = b.Add(models.Question{Type: models.Judgment, Text: "新题", Answer: "A"})
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrCodeDuplicateQuestion))
}

func TestUpdateAndRemove(t *testing.T) {
	testutil.QuietLogs(t)
	b := bank.New()
	added, err := b.Add(models.Question{Type: models.SingleChoice, Text: "旧题干", OptionA: "甲", OptionB: "乙", Answer: "a"})
	require.NoError(t, err)
	assert.Equal(t, "A", added.Answer)

	updated, err := b.Update(added.ID, models.Question{Text: "新题干", OptionA: "甲", OptionB: "乙", Answer: "b"})
	require.NoError(t, err)
	assert.Equal(t, "新题干", updated.Text)
	assert.Equal(t, "B", updated.Answer)

	require.NoError(t, b.Remove(added.ID))
	assert.Error(t, b.Remove(added.ID))
}

func TestAddRejectsAnswerWithoutMatchingOption(t *testing.T) {
	testutil.QuietLogs(t)
	b := bank.New()

	_, err := b.Add(models.Question{Type: models.SingleChoice, Text: "选项外答案", OptionA: "甲", OptionB: "乙", Answer: "E"})
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrCodeValidation))

	// Pointing at an empty option slot is just as invalid.
	_, err = b.Add(models.Question{Type: models.SingleChoice, Text: "空选项答案", OptionA: "甲", OptionB: "乙", Answer: "C"})
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrCodeValidation))

	_, err = b.Add(models.Question{Type: models.Judgment, Text: "判断题答案", Answer: "C"})
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrCodeValidation))
}

func TestUpdateRejectsOrphanedAnswer(t *testing.T) {
	testutil.QuietLogs(t)
	b := bank.New()

	added, err := b.Add(models.Question{Type: models.SingleChoice, Text: "原题", OptionA: "甲", OptionB: "乙", Answer: "B"})
	require.NoError(t, err)

	// Dropping option B while the answer still points at it must fail
	// and leave the stored question untouched.
	_, err = b.Update(added.ID, models.Question{OptionA: "甲"})
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrCodeValidation))

	kept, ok := b.ByID(added.ID)
	require.True(t, ok)
	assert.Equal(t, "乙", kept.OptionB)
	assert.Equal(t, "B", kept.Answer)
}

func TestStats(t *testing.T) {
	testutil.QuietLogs(t)
	b := bank.New()
	qs := testutil.Questions(5)
	qs[0].SubCategory = "急救知识"
	qs[1].SubCategory = "场馆制度"
	b.ReplaceAll(qs)

	counts := b.TypeCounts()
	assert.Equal(t, 3, counts[models.Judgment])
	assert.Equal(t, 2, counts[models.SingleChoice])

	stats := b.CategoryStats()
	require.Contains(t, stats, "初级")
	assert.Equal(t, 5, stats["初级"].Total)
	assert.Equal(t, 1, stats["初级"].SubCategories["急救知识"])

	subs := b.SubCategories()
	assert.Equal(t, []string{"基础常识", "技能知识", "急救知识", "管理规范", "场馆制度"}, subs)
}

func TestProgressCounters(t *testing.T) {
	testutil.QuietLogs(t)
	b := bank.New()
	b.ReplaceAll(testutil.Questions(2))

	b.IncrementWrong(1)
	b.IncrementWrong(1)
	b.IncrementCorrect(1)

	wrong := b.WrongQuestions()
	require.Len(t, wrong, 1)
	assert.Equal(t, 2, wrong[0].WrongCount)
	assert.Equal(t, 1, wrong[0].CorrectCount)
	assert.NotNil(t, wrong[0].LastPracticed)

	b.ResetProgress(1)
	assert.Empty(t, b.WrongQuestions())
}
