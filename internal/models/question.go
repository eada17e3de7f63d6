package models

import "time"

// QuestionType distinguishes the two item formats in the bank.
type QuestionType string

const (
	Judgment     QuestionType = "judgment"
	SingleChoice QuestionType = "single_choice"
)

// Judgment questions always render the same two options.
const (
	JudgmentTrueText  = "正确"
	JudgmentFalseText = "错误"
)

// Question type labels as they appear in import files and admin screens.
const (
	JudgmentLabel     = "判断题"
	SingleChoiceLabel = "单选题"
)

// ParseQuestionType maps an import label to a QuestionType. Empty input
// defaults to judgment, matching the import template.
func ParseQuestionType(label string) QuestionType {
	if label == SingleChoiceLabel {
		return SingleChoice
	}
	return Judgment
}

// Label returns the Chinese display label for the type.
func (t QuestionType) Label() string {
	if t == SingleChoice {
		return SingleChoiceLabel
	}
	return JudgmentLabel
}

// Question is one catalog entry. Immutable once loaded except via the
// bank's explicit edit operations.
type Question struct {
	ID            int64        `json:"id"`
	Number        int          `json:"number"`
	Type          QuestionType `json:"type"`
	Category      string       `json:"category"`
	SubCategory   string       `json:"sub_category"`
	Text          string       `json:"text"`
	OptionA       string       `json:"option_a"`
	OptionB       string       `json:"option_b"`
	OptionC       string       `json:"option_c"`
	OptionD       string       `json:"option_d"`
	Answer        string       `json:"answer"`
	Explanation   string       `json:"explanation"`
	WrongCount    int          `json:"wrong_count"`
	CorrectCount  int          `json:"correct_count"`
	LastPracticed *time.Time   `json:"last_practiced,omitempty"`
}

// Option is one lettered choice as presented to the user.
type Option struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

// Options returns the ordered choices for the question. Judgment questions
// use the fixed true/false pair regardless of stored option text.
func (q Question) Options() []Option {
	if q.Type == Judgment {
		return []Option{
			{Letter: "A", Text: JudgmentTrueText},
			{Letter: "B", Text: JudgmentFalseText},
		}
	}
	var opts []Option
	for _, o := range []struct {
		letter string
		text   string
	}{
		{"A", q.OptionA},
		{"B", q.OptionB},
		{"C", q.OptionC},
		{"D", q.OptionD},
	} {
		if o.text != "" {
			opts = append(opts, Option{Letter: o.letter, Text: o.text})
		}
	}
	return opts
}

// HasOption reports whether the letter addresses a presented option.
func (q Question) HasOption(letter string) bool {
	for _, opt := range q.Options() {
		if opt.Letter == letter {
			return true
		}
	}
	return false
}

// SessionQuestion annotates a catalog question with its 1-based position
// in a drawn working set.
type SessionQuestion struct {
	Question
	DisplayIndex int `json:"display_index"`
}
