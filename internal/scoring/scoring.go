package scoring

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/shuizhiqing/examtrainer/internal/models"
)

// Input is the final state of a session handed over at submission. The
// engine never reaches back into a live session.
type Input struct {
	Questions   []models.SessionQuestion
	Answers     map[int64]*string
	Mode        models.Mode
	Variant     models.PracticeVariant
	SourceType  models.SourceType
	Category    string
	IsTrial     bool
	StartedAt   time.Time
	SubmittedAt time.Time
}

// Score computes the immutable Result for a finished session. Explicit
// skips and never-answered questions count as neither correct nor
// wrong; they only dilute the score through the total.
func Score(in Input) models.Result {
	correct, wrong := 0, 0
	answered := make([]models.AnsweredQuestion, 0, len(in.Questions))
	for _, q := range in.Questions {
		answer, ok := in.Answers[q.ID]
		answered = append(answered, models.AnsweredQuestion{
			Question:     q.Question,
			DisplayIndex: q.DisplayIndex,
			UserAnswer:   answer,
		})
		if !ok || answer == nil {
			continue
		}
		if *answer == q.Answer {
			correct++
		} else {
			wrong++
		}
	}

	total := len(in.Questions)
	score := 0
	if total > 0 {
		score = int(math.Round(float64(correct) / float64(total) * 100))
	}
	timeUsed := int(in.SubmittedAt.Sub(in.StartedAt).Seconds())
	if timeUsed < 0 {
		timeUsed = 0
	}
	avg := 0
	if total > 0 {
		avg = int(math.Round(float64(timeUsed) / float64(total)))
	}

	return models.Result{
		ID:                 uuid.NewString(),
		Date:               in.SubmittedAt,
		TotalQuestions:     total,
		CorrectCount:       correct,
		WrongCount:         wrong,
		Score:              score,
		Passed:             score >= models.PassScore,
		TimeUsedSeconds:    timeUsed,
		AvgTimePerQuestion: avg,
		Mode:               in.Mode,
		ModeLabel:          modeLabel(in),
		CategoryName:       categoryName(in),
		SourceType:         in.SourceType,
		IsTrial:            in.IsTrial,
		Questions:          answered,
	}
}

// BuildReview renders the transcript in display order. Pure; calling it
// twice on the same input yields identical output.
func BuildReview(in Input) []models.ReviewItem {
	items := make([]models.ReviewItem, 0, len(in.Questions))
	for _, q := range in.Questions {
		answer, ok := in.Answers[q.ID]
		item := models.ReviewItem{
			Question:      q.Question,
			DisplayIndex:  q.DisplayIndex,
			Options:       q.Options(),
			CorrectAnswer: q.Answer,
			UserAnswer:    answer,
			Skipped:       ok && answer == nil,
		}
		if answer != nil {
			item.Correct = *answer == q.Answer
		}
		items = append(items, item)
	}
	return items
}

func modeLabel(in Input) string {
	switch in.SourceType {
	case models.SourceWrongBook:
		return "错题练习"
	case models.SourceFavorites:
		return "收藏练习"
	}
	if in.Mode == models.ModeExam {
		return "模拟考试"
	}
	return "刷题练习"
}

func categoryName(in Input) string {
	switch in.SourceType {
	case models.SourceWrongBook:
		return "错题集"
	case models.SourceFavorites:
		return "收藏夹"
	}
	if in.Category != "" {
		return in.Category
	}
	if len(in.Questions) > 0 && in.Questions[0].Category != "" {
		return in.Questions[0].Category
	}
	return "国职游泳救生员初级"
}
