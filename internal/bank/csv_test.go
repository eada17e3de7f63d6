package bank_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	"github.com/shuizhiqing/examtrainer/internal/bank"
	"github.com/shuizhiqing/examtrainer/internal/models"
	"github.com/shuizhiqing/examtrainer/internal/testutil"
)

const sampleCSV = "序号,题型,题型分类,子分类,题干,选项A,选项B,选项C,选项D,答案,解析\n" +
	"1,判断题,初级,基础常识,\"游泳救生员须持证上岗\",,,,,正确,\n" +
	"2,单选题,初级,急救知识,\"心肺复苏按压频率是多少, 每分钟?\",\"100-120次\",\"60-80次\",\"140次以上\",\"不限\",A,\n"

func TestParseCSVSkipsHeaderAndBlankLines(t *testing.T) {
	rows, err := bank.ParseCSV([]byte(sampleCSV + "\n\n"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "游泳救生员须持证上岗", rows[0][4])
}

func TestParseCSVQuotedCommas(t *testing.T) {
	rows, err := bank.ParseCSV([]byte(sampleCSV))
	require.NoError(t, err)
	assert.Equal(t, "心肺复苏按压频率是多少, 每分钟?", rows[1][4])
	assert.Equal(t, "100-120次", rows[1][5])
}

func TestParseCSVAcceptsBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte(sampleCSV)...)
	rows, err := bank.ParseCSV(data)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestParseCSVAcceptsGB18030(t *testing.T) {
	encoded, _, err := transform.Bytes(simplifiedchinese.GB18030.NewEncoder(), []byte(sampleCSV))
	require.NoError(t, err)

	rows, err := bank.ParseCSV(encoded)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "游泳救生员须持证上岗", rows[0][4])
}

func TestExportStartsWithBOMAndQuotesEverything(t *testing.T) {
	out := bank.ExportCSV([]models.Question{
		{Number: 1, Type: models.Judgment, Category: "初级", SubCategory: "基础常识", Text: "题干", Answer: "A"},
	})
	assert.True(t, bytes.HasPrefix(out, []byte{0xEF, 0xBB, 0xBF}))
	assert.Contains(t, string(out), `"题干"`)
	assert.Contains(t, string(out), `"判断题"`)
}

func TestExportRoundTripsThroughImport(t *testing.T) {
	testutil.QuietLogs(t)
	b := bank.New()
	b.Load([][]string{
		{"1", "判断题", "初级", "基础常识", "往返题, 含逗号", "", "", "", "", "正确", "解析文字"},
	}, "")

	rows, err := bank.ParseCSV(bank.ExportCSV(b.All()))
	require.NoError(t, err)

	b2 := bank.New()
	summary := b2.Load(rows, "")
	assert.Equal(t, 1, summary.Added)
	assert.Equal(t, "往返题, 含逗号", b2.All()[0].Text)
	assert.Equal(t, "A", b2.All()[0].Answer)
}
