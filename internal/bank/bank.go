package bank

import (
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shuizhiqing/examtrainer/internal/errors"
	"github.com/shuizhiqing/examtrainer/internal/logger"
	"github.com/shuizhiqing/examtrainer/internal/models"
)

// DefaultCategory is used for imported rows with an empty category field.
const DefaultCategory = "国职游泳救生员初级"

// DefaultSubCategory is used for imported rows with an empty sub-category.
const DefaultSubCategory = "基础常识"

// defaultSubCategoryOrder fixes the display order of the built-in
// sub-categories; anything else sorts after them.
var defaultSubCategoryOrder = []string{"基础常识", "技能知识", "急救知识", "管理规范"}

// Filter narrows a catalog query. Empty slices mean "no restriction".
type Filter struct {
	Types      []models.QuestionType
	Categories []string
}

func (f Filter) matches(q models.Question) bool {
	if len(f.Types) > 0 {
		ok := false
		for _, t := range f.Types {
			if q.Type == t {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(f.Categories) > 0 {
		ok := false
		for _, c := range f.Categories {
			if q.Category == c {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// ImportSummary reports the outcome of one bulk load.
type ImportSummary struct {
	Added      int `json:"added"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"`
}

// CategoryStat aggregates one category for the admin screens.
type CategoryStat struct {
	Total         int            `json:"total"`
	Judgment      int            `json:"judgment"`
	SingleChoice  int            `json:"single_choice"`
	SubCategories map[string]int `json:"sub_categories"`
}

// Bank is the in-memory question catalog. It is safe for concurrent use;
// sessions copy the questions they draw, so later bank edits never touch
// a running session.
type Bank struct {
	mu     sync.RWMutex
	items  []models.Question
	nextID int64
	rng    *rand.Rand
	log    *logger.Logger
}

func New() *Bank {
	return &Bank{
		nextID: time.Now().UnixMicro(),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		log:    logger.Default().WithPrefix("bank"),
	}
}

// freshID hands out ids that stay monotonic across imports within one
// process. Callers hold b.mu.
func (b *Bank) freshID() int64 {
	id := b.nextID
	b.nextID++
	return id
}

// normalizeAnswer maps the accepted answer spellings onto canonical
// letters. Judgment answers accept the Chinese words and raw letters;
// choice answers are upper-cased.
func normalizeAnswer(t models.QuestionType, raw string) string {
	answer := strings.TrimSpace(raw)
	if t == models.Judgment {
		switch answer {
		case models.JudgmentTrueText, "A", "a":
			return "A"
		case models.JudgmentFalseText, "B", "b":
			return "B"
		}
	}
	return strings.ToUpper(answer)
}

// ReplaceAll swaps in a previously persisted catalog, keeping id
// generation ahead of every loaded id.
func (b *Bank) ReplaceAll(questions []models.Question) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append([]models.Question(nil), questions...)
	for _, q := range b.items {
		if q.ID >= b.nextID {
			b.nextID = q.ID + 1
		}
	}
	b.log.Info("catalog loaded: %d questions", len(b.items))
}

// All returns a copy of the whole catalog in order.
func (b *Bank) All() []models.Question {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]models.Question(nil), b.items...)
}

func (b *Bank) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items)
}

func (b *Bank) ByID(id int64) (models.Question, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, q := range b.items {
		if q.ID == id {
			return q, true
		}
	}
	return models.Question{}, false
}

// Load appends parsed import rows to the catalog. Rows with fewer than
// 10 fields or an empty question text are skipped; a row whose text and
// answer both match an existing question is a duplicate. The layout is
// the import template's: number, type, category, sub-category, text,
// options A-D, answer, explanation.
func (b *Bank) Load(rows [][]string, defaultCategory string) ImportSummary {
	if defaultCategory == "" {
		defaultCategory = DefaultCategory
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var summary ImportSummary
	for i, row := range rows {
		if len(row) < 10 {
			summary.Skipped++
			continue
		}

		field := func(idx int) string {
			if idx < len(row) {
				return strings.TrimSpace(row[idx])
			}
			return ""
		}

		qType := models.ParseQuestionType(field(1))
		q := models.Question{
			ID:          b.freshID(),
			Number:      atoiOr(field(0), i+1),
			Type:        qType,
			Category:    orDefault(field(2), defaultCategory),
			SubCategory: orDefault(field(3), DefaultSubCategory),
			Text:        field(4),
			OptionA:     field(5),
			OptionB:     field(6),
			OptionC:     field(7),
			OptionD:     field(8),
			Answer:      normalizeAnswer(qType, field(9)),
			Explanation: field(10),
		}
		if q.Text == "" {
			summary.Skipped++
			continue
		}
		if b.findDuplicate(q.Text, q.Answer) >= 0 {
			summary.Duplicates++
			continue
		}
		b.items = append(b.items, q)
		summary.Added++
	}

	b.log.Info("import done: added=%d duplicates=%d skipped=%d", summary.Added, summary.Duplicates, summary.Skipped)
	return summary
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func atoiOr(s string, def int) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return def
		}
		n = n*10 + int(r-'0')
	}
	if s == "" {
		return def
	}
	return n
}

// findDuplicate returns the index of a question with identical text and
// answer, or -1. Callers hold b.mu.
func (b *Bank) findDuplicate(text, answer string) int {
	for i, q := range b.items {
		if q.Text == text && q.Answer == answer {
			return i
		}
	}
	return -1
}

// Query returns the matching questions in catalog order.
func (b *Bank) Query(f Filter) []models.Question {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []models.Question
	for _, q := range b.items {
		if f.matches(q) {
			out = append(out, q)
		}
	}
	return out
}

// Sample draws n distinct questions uniformly from the filtered pool and
// numbers them 1..len in draw order. Asking for more than the pool holds
// returns the whole pool shuffled.
func (b *Bank) Sample(n int, f Filter) []models.SessionQuestion {
	pool := b.Query(f)

	b.mu.Lock()
	b.rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	b.mu.Unlock()

	if n > len(pool) {
		n = len(pool)
	}
	out := make([]models.SessionQuestion, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.SessionQuestion{Question: pool[i], DisplayIndex: i + 1})
	}
	return out
}

// Add inserts a hand-entered question, rejecting duplicates.
func (b *Bank) Add(q models.Question) (models.Question, error) {
	if strings.TrimSpace(q.Text) == "" {
		return models.Question{}, errors.NewValidationError("text", "must not be empty")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	q.Text = strings.TrimSpace(q.Text)
	q.Answer = normalizeAnswer(q.Type, q.Answer)
	if q.Category == "" {
		q.Category = DefaultCategory
	}
	if q.SubCategory == "" {
		q.SubCategory = DefaultSubCategory
	}
	if !q.HasOption(q.Answer) {
		return models.Question{}, errors.NewValidationError("answer", "must match one of the question's options")
	}
	if b.findDuplicate(q.Text, q.Answer) >= 0 {
		return models.Question{}, errors.NewDuplicateQuestionError(q.Text)
	}

	q.ID = b.freshID()
	q.WrongCount = 0
	q.CorrectCount = 0
	q.LastPracticed = nil
	if q.Number == 0 {
		q.Number = len(b.items) + 1
	}
	b.items = append(b.items, q)
	return q, nil
}

// Update replaces the editable fields of an existing question.
func (b *Bank) Update(id int64, updates models.Question) (models.Question, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.items {
		if b.items[i].ID != id {
			continue
		}
		q := b.items[i]
		if updates.Text != "" {
			q.Text = strings.TrimSpace(updates.Text)
		}
		if updates.Type != "" {
			q.Type = updates.Type
		}
		if updates.Category != "" {
			q.Category = updates.Category
		}
		if updates.SubCategory != "" {
			q.SubCategory = updates.SubCategory
		}
		q.OptionA = updates.OptionA
		q.OptionB = updates.OptionB
		q.OptionC = updates.OptionC
		q.OptionD = updates.OptionD
		if updates.Answer != "" {
			q.Answer = normalizeAnswer(q.Type, updates.Answer)
		}
		q.Explanation = updates.Explanation
		// Option edits can orphan the stored answer, so recheck it
		// against the resulting options before committing.
		if !q.HasOption(q.Answer) {
			return models.Question{}, errors.NewValidationError("answer", "must match one of the question's options")
		}
		b.items[i] = q
		return q, nil
	}
	return models.Question{}, errors.NewNotFoundError("question", id)
}

func (b *Bank) Remove(id int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.items {
		if b.items[i].ID == id {
			b.items = append(b.items[:i], b.items[i+1:]...)
			return nil
		}
	}
	return errors.NewNotFoundError("question", id)
}

// TypeCounts tallies the catalog by question type.
func (b *Bank) TypeCounts() map[models.QuestionType]int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	counts := map[models.QuestionType]int{
		models.Judgment:     0,
		models.SingleChoice: 0,
	}
	for _, q := range b.items {
		counts[q.Type]++
	}
	return counts
}

// CategoryStats aggregates per-category totals for the admin screens.
func (b *Bank) CategoryStats() map[string]CategoryStat {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stats := map[string]CategoryStat{}
	for _, q := range b.items {
		s, ok := stats[q.Category]
		if !ok {
			s = CategoryStat{SubCategories: map[string]int{}}
		}
		s.Total++
		switch q.Type {
		case models.Judgment:
			s.Judgment++
		case models.SingleChoice:
			s.SingleChoice++
		}
		sub := orDefault(q.SubCategory, DefaultSubCategory)
		s.SubCategories[sub]++
		stats[q.Category] = s
	}
	return stats
}

// SubCategories returns every sub-category in use, the built-in four
// first in their fixed order, the rest sorted.
func (b *Bank) SubCategories() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	seen := map[string]bool{}
	for _, s := range defaultSubCategoryOrder {
		seen[s] = true
	}
	var extra []string
	for _, q := range b.items {
		if q.SubCategory != "" && !seen[q.SubCategory] {
			seen[q.SubCategory] = true
			extra = append(extra, q.SubCategory)
		}
	}
	sort.Strings(extra)
	return append(append([]string(nil), defaultSubCategoryOrder...), extra...)
}

// WrongQuestions returns catalog entries missed at least once.
func (b *Bank) WrongQuestions() []models.Question {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []models.Question
	for _, q := range b.items {
		if q.WrongCount > 0 {
			out = append(out, q)
		}
	}
	return out
}

// IncrementWrong bumps the miss counter and practice timestamp.
func (b *Bank) IncrementWrong(id int64) {
	b.touch(id, func(q *models.Question) { q.WrongCount++ })
}

// IncrementCorrect bumps the hit counter and practice timestamp.
func (b *Bank) IncrementCorrect(id int64) {
	b.touch(id, func(q *models.Question) { q.CorrectCount++ })
}

// ResetProgress clears both counters for one question.
func (b *Bank) ResetProgress(id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.items {
		if b.items[i].ID == id {
			b.items[i].WrongCount = 0
			b.items[i].CorrectCount = 0
			return
		}
	}
}

func (b *Bank) touch(id int64, fn func(*models.Question)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.items {
		if b.items[i].ID == id {
			fn(&b.items[i])
			now := time.Now()
			b.items[i].LastPracticed = &now
			return
		}
	}
}
