package bank

import (
	"bytes"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	"github.com/shuizhiqing/examtrainer/internal/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// csvHeader is the import template's column layout. Export reproduces it
// so an exported file re-imports cleanly.
var csvHeader = []string{
	"序号", "题型", "题型分类", "子分类", "题干",
	"选项A", "选项B", "选项C", "选项D", "答案", "解析",
}

// ParseCSV decodes an import file into data rows, header excluded.
// Input may be UTF-8 with or without a BOM, or GB18030 as produced by
// older spreadsheet exports.
func ParseCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	if !utf8.Valid(data) {
		decoded, _, err := transform.Bytes(simplifiedchinese.GB18030.NewDecoder(), data)
		if err != nil {
			return nil, err
		}
		data = decoded
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	var rows [][]string
	for i, line := range lines {
		if i == 0 {
			continue // header
		}
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line == "" {
			continue
		}
		rows = append(rows, parseLine(line))
	}
	return rows, nil
}

// parseLine splits one CSV line. Quotes toggle field mode and are never
// emitted; there is no escape sequence, matching the import template.
func parseLine(line string) []string {
	var fields []string
	var current strings.Builder
	inQuotes := false

	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	fields = append(fields, current.String())
	return fields
}

// ExportCSV renders the catalog as UTF-8 with a BOM, every value quoted.
func ExportCSV(questions []models.Question) []byte {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	writeRow := func(fields []string) {
		for i, f := range fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteByte('"')
			buf.WriteString(f)
			buf.WriteByte('"')
		}
		buf.WriteByte('\n')
	}

	writeRow(csvHeader)
	for _, q := range questions {
		writeRow([]string{
			strconv.Itoa(q.Number),
			q.Type.Label(),
			q.Category,
			q.SubCategory,
			q.Text,
			q.OptionA,
			q.OptionB,
			q.OptionC,
			q.OptionD,
			q.Answer,
			q.Explanation,
		})
	}
	return buf.Bytes()
}
