package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/shuizhiqing/examtrainer/internal/bank"
	appErrors "github.com/shuizhiqing/examtrainer/internal/errors"
	"github.com/shuizhiqing/examtrainer/internal/models"
	"github.com/shuizhiqing/examtrainer/internal/session"
	"github.com/shuizhiqing/examtrainer/internal/storage"
	"github.com/shuizhiqing/examtrainer/internal/testutil"
)

const testPhone = "13800000000"

type SessionSuite struct {
	suite.Suite
	store   *storage.SQLiteStore
	gateway *storage.Gateway
	bank    *bank.Bank
}

func (s *SessionSuite) SetupTest() {
	testutil.QuietLogs(s.T())
	s.store = testutil.NewTestStore(s.T())
	s.gateway = storage.NewGateway(s.store, nil, nil)
	s.bank = bank.New()
	s.bank.ReplaceAll(testutil.Questions(10))
	s.Require().NoError(s.gateway.SaveUser(context.Background(), models.User{Phone: testPhone, Name: "张三"}))
}

func (s *SessionSuite) TearDownTest() {
	testutil.MustClose(s.T(), s.store)
}

func (s *SessionSuite) newSession(opts ...session.Option) *session.Session {
	return session.New(s.bank, s.gateway, opts...)
}

func practiceConfig() session.Config {
	return session.Config{
		Phone:           testPhone,
		Mode:            models.ModePractice,
		PracticeVariant: models.PracticeOrdered,
		Category:        "初级",
		Types:           []models.QuestionType{models.Judgment, models.SingleChoice},
	}
}

func examConfig() session.Config {
	cfg := practiceConfig()
	cfg.Mode = models.ModeExam
	return cfg
}

func (s *SessionSuite) TestStartRequiresTypeSelection() {
	sess := s.newSession()
	cfg := practiceConfig()
	cfg.Types = nil

	err := sess.Start(context.Background(), cfg)
	s.Require().Error(err)
	s.True(appErrors.IsCode(err, appErrors.ErrCodeNoTypeSelected))
	s.Equal(session.StateConfiguring, sess.State())
}

func (s *SessionSuite) TestStartEmptyPool() {
	sess := s.newSession()
	cfg := practiceConfig()
	cfg.Category = "不存在的类别"

	err := sess.Start(context.Background(), cfg)
	s.Require().Error(err)
	s.True(appErrors.IsCode(err, appErrors.ErrCodeEmptyPool))
	s.Equal(session.StateConfiguring, sess.State())
}

func (s *SessionSuite) TestExamStartTimedAndCapped() {
	sess := s.newSession()
	s.Require().NoError(sess.Start(context.Background(), examConfig()))
	defer sess.Suspend()

	s.Equal(session.StateActive, sess.State())
	s.Len(sess.Questions(), 10) // min(100, pool)
	s.Require().NotNil(sess.TimeRemaining())
	s.Equal(session.ExamTimeSeconds, *sess.TimeRemaining())
}

func (s *SessionSuite) TestPracticeOrderedUntimedCatalogOrder() {
	sess := s.newSession()
	s.Require().NoError(sess.Start(context.Background(), practiceConfig()))
	defer sess.Suspend()

	questions := sess.Questions()
	s.Require().Len(questions, 10)
	s.Nil(sess.TimeRemaining())
	for i, q := range questions {
		s.Equal(int64(i+1), q.ID)
		s.Equal(i+1, q.DisplayIndex)
	}
}

func (s *SessionSuite) TestTrialCapsCountAndTime() {
	s.bank.ReplaceAll(testutil.Questions(50))
	sess := s.newSession()
	cfg := practiceConfig()
	cfg.IsTrial = true
	cfg.Phone = "trial_abc"
	s.Require().NoError(sess.Start(context.Background(), cfg))
	defer sess.Suspend()

	s.Len(sess.Questions(), 20)
	s.Require().NotNil(sess.TimeRemaining())
	s.Equal(1800, *sess.TimeRemaining())
}

func (s *SessionSuite) TestTrialLimitsConfigurable() {
	s.bank.ReplaceAll(testutil.Questions(50))
	sess := session.New(s.bank, s.gateway, session.WithTrialLimits(5, 600))
	cfg := practiceConfig()
	cfg.IsTrial = true
	cfg.Phone = "trial_abc"
	s.Require().NoError(sess.Start(context.Background(), cfg))
	defer sess.Suspend()

	s.Len(sess.Questions(), 5)
	s.Require().NotNil(sess.TimeRemaining())
	s.Equal(600, *sess.TimeRemaining())

	// Non-positive overrides keep the defaults.
	fallback := session.New(s.bank, s.gateway, session.WithTrialLimits(0, -1))
	s.Require().NoError(fallback.Start(context.Background(), cfg))
	defer fallback.Suspend()
	s.Len(fallback.Questions(), 20)
	s.Equal(1800, *fallback.TimeRemaining())
}

func (s *SessionSuite) TestExamAnswerRecordsWithoutFeedbackOrCounters() {
	sess := s.newSession()
	s.Require().NoError(sess.Start(context.Background(), examConfig()))
	defer sess.Suspend()

	q, ok := sess.CurrentQuestion()
	s.Require().True(ok)

	feedback, err := sess.Answer(context.Background(), "a")
	s.Require().NoError(err)
	s.False(feedback.Graded)

	// No durable counter moves before submission.
	banked, _ := s.bank.ByID(q.ID)
	s.Zero(banked.WrongCount)
	s.Zero(banked.CorrectCount)

	answers := sess.Answers()
	s.Require().NotNil(answers[q.ID])
	s.Equal("A", *answers[q.ID])
}

func (s *SessionSuite) TestPracticeAnswerGradesImmediately() {
	sess := s.newSession()
	s.Require().NoError(sess.Start(context.Background(), practiceConfig()))
	defer sess.Suspend()

	q, _ := sess.CurrentQuestion()

	feedback, err := sess.Answer(context.Background(), "B")
	s.Require().NoError(err)
	s.True(feedback.Graded)
	s.False(feedback.Correct)
	s.Equal("A", feedback.CorrectAnswer)
	s.True(feedback.FirstAttempt)

	banked, _ := s.bank.ByID(q.ID)
	s.Equal(1, banked.WrongCount)

	book, err := s.gateway.WrongBook(context.Background(), testPhone)
	s.Require().NoError(err)
	s.Require().Len(book, 1)
	s.Equal(q.ID, book[0].Question.ID)

	// Re-answering overwrites and is no longer a first attempt.
	feedback, err = sess.Answer(context.Background(), "A")
	s.Require().NoError(err)
	s.True(feedback.Correct)
	s.False(feedback.FirstAttempt)
}

func (s *SessionSuite) TestAnswerRejectsUnknownOption() {
	sess := s.newSession()
	s.Require().NoError(sess.Start(context.Background(), practiceConfig()))
	defer sess.Suspend()

	// Current question is a judgment item: only A and B exist.
	_, err := sess.Answer(context.Background(), "C")
	s.Require().Error(err)
	s.True(appErrors.IsCode(err, appErrors.ErrCodeValidation))
}

func (s *SessionSuite) TestSkipIsExplicitAndDistinct() {
	sess := s.newSession()
	s.Require().NoError(sess.Start(context.Background(), practiceConfig()))
	defer sess.Suspend()

	first, _ := sess.CurrentQuestion()
	s.Require().NoError(sess.Skip())

	second, _ := sess.CurrentQuestion()
	s.NotEqual(first.ID, second.ID)

	answers := sess.Answers()
	skipped, present := answers[first.ID]
	s.True(present)
	s.Nil(skipped)

	summary := sess.ProgressSummary()
	s.Equal(0, summary.AnsweredCount)
	s.Equal(1, summary.SkippedCount)
}

func (s *SessionSuite) TestNavigationBoundsChecked() {
	sess := s.newSession()
	s.Require().NoError(sess.Start(context.Background(), practiceConfig()))
	defer sess.Suspend()

	sess.Previous() // no-op at the start
	s.Equal(0, sess.CurrentIndex())

	for i := 0; i < 20; i++ {
		sess.Next()
	}
	s.Equal(9, sess.CurrentIndex())
}

func (s *SessionSuite) TestToggleFavoritePersists() {
	sess := s.newSession()
	s.Require().NoError(sess.Start(context.Background(), practiceConfig()))
	defer sess.Suspend()

	q, _ := sess.CurrentQuestion()

	collected, err := sess.ToggleFavorite(context.Background())
	s.Require().NoError(err)
	s.True(collected)

	favs, err := s.gateway.Favorites(context.Background(), testPhone)
	s.Require().NoError(err)
	s.Equal([]int64{q.ID}, favs.IDs)

	collected, err = sess.ToggleFavorite(context.Background())
	s.Require().NoError(err)
	s.False(collected)

	favs, err = s.gateway.Favorites(context.Background(), testPhone)
	s.Require().NoError(err)
	s.Empty(favs.IDs)
}

func (s *SessionSuite) TestSubmitExamPushesWrongEntriesAndHistory() {
	sess := s.newSession()
	s.Require().NoError(sess.Start(context.Background(), examConfig()))

	// Answer the first two: one right, one wrong. Rest unanswered.
	_, err := sess.Answer(context.Background(), "A")
	s.Require().NoError(err)
	sess.Next()
	_, err = sess.Answer(context.Background(), "B")
	s.Require().NoError(err)
	wrongQ, _ := sess.CurrentQuestion()

	result, err := sess.Submit(context.Background())
	s.Require().NoError(err)
	s.Equal(session.StateCompleted, sess.State())
	s.Equal(10, result.TotalQuestions)
	s.Equal(1, result.CorrectCount)
	s.Equal(1, result.WrongCount)

	book, err := s.gateway.WrongBook(context.Background(), testPhone)
	s.Require().NoError(err)
	s.Require().Len(book, 1)
	s.Equal(wrongQ.ID, book[0].Question.ID)

	history, err := s.gateway.History(context.Background(), testPhone)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(result.ID, history[0].ID)

	// Double submit is rejected.
	_, err = sess.Submit(context.Background())
	s.Error(err)
}

func (s *SessionSuite) TestTrialSubmitLeavesNoDurableTraces() {
	sess := s.newSession()
	cfg := examConfig()
	cfg.IsTrial = true
	cfg.Phone = "trial_abc"
	s.Require().NoError(sess.Start(context.Background(), cfg))

	_, err := sess.Answer(context.Background(), "B")
	s.Require().NoError(err)

	result, err := sess.Submit(context.Background())
	s.Require().NoError(err)
	s.True(result.IsTrial)

	history, err := s.gateway.History(context.Background(), "trial_abc")
	s.Require().NoError(err)
	s.Empty(history)
}

func (s *SessionSuite) TestStartFromWrongBook() {
	ctx := context.Background()
	q1, _ := s.bank.ByID(1)
	q2, _ := s.bank.ByID(2)
	s.Require().NoError(s.gateway.AddWrongQuestion(ctx, testPhone, q1))
	s.Require().NoError(s.gateway.AddWrongQuestion(ctx, testPhone, q2))

	sess := s.newSession()
	s.Require().NoError(sess.StartFromWrongBook(ctx, testPhone))
	defer sess.Suspend()

	s.Len(sess.Questions(), 2)
	s.Equal(models.SourceWrongBook, sess.SourceType())
	s.Require().NotNil(sess.TimeRemaining())
	s.Equal(2*session.ReviewSecondsPerQuestion, *sess.TimeRemaining())
}

func (s *SessionSuite) TestStartFromWrongBookEmpty() {
	sess := s.newSession()
	err := sess.StartFromWrongBook(context.Background(), testPhone)
	s.Require().Error(err)
	s.True(appErrors.IsCode(err, appErrors.ErrCodeEmptyPool))
}

func (s *SessionSuite) TestStartFromFavorites() {
	ctx := context.Background()
	q1, _ := s.bank.ByID(3)
	s.Require().NoError(s.gateway.AddFavorite(ctx, testPhone, q1))

	sess := s.newSession()
	s.Require().NoError(sess.StartFromFavorites(ctx, testPhone))
	defer sess.Suspend()

	s.Len(sess.Questions(), 1)
	s.Equal(models.SourceFavorites, sess.SourceType())
	s.Equal([]int64{3}, sess.CollectedIDs())
}

func (s *SessionSuite) TestTimerExpiryAutoSubmits() {
	record := models.ProgressRecord{
		ID:        "timer-test",
		Phone:     testPhone,
		Mode:      models.ModeExam,
		StartedAt: time.Now(),
	}
	for i, q := range testutil.Questions(10) {
		record.Questions = append(record.Questions, models.SessionQuestion{Question: q, DisplayIndex: i + 1})
	}
	a := "A"
	b := "B"
	record.Answers = map[int64]*string{1: &a, 3: &a, 2: &b}
	remaining := 2
	record.TimeRemaining = &remaining

	sess := session.Resume(s.bank, s.gateway, record, session.WithTickInterval(5*time.Millisecond))

	s.Require().Eventually(func() bool {
		return sess.State() == session.StateCompleted
	}, 2*time.Second, 10*time.Millisecond)

	result, ok := sess.Result()
	s.Require().True(ok)
	s.Equal(10, result.TotalQuestions)
	s.LessOrEqual(result.CorrectCount, 3)
	s.Equal(2, result.CorrectCount)
}

func (s *SessionSuite) TestTrialExpiryInvokesCallbackNotSubmit() {
	timeUp := make(chan struct{})
	record := models.ProgressRecord{
		ID:        "trial-timer",
		Phone:     "trial_abc",
		Mode:      models.ModePractice,
		StartedAt: time.Now(),
	}
	for i, q := range testutil.Questions(3) {
		record.Questions = append(record.Questions, models.SessionQuestion{Question: q, DisplayIndex: i + 1})
	}
	remaining := 1
	record.TimeRemaining = &remaining

	sess := session.Resume(s.bank, s.gateway, record,
		session.WithTickInterval(5*time.Millisecond),
		session.WithTrialTimeUp(func() { close(timeUp) }))

	select {
	case <-timeUp:
	case <-time.After(2 * time.Second):
		s.Fail("trial time-up callback never fired")
	}
	s.NotEqual(session.StateCompleted, sess.State())
	_, hasResult := sess.Result()
	s.False(hasResult)
}

func (s *SessionSuite) TestSuspendStopsSession() {
	sess := s.newSession()
	s.Require().NoError(sess.Start(context.Background(), practiceConfig()))
	sess.Suspend()
	s.Equal(session.StateConfiguring, sess.State())

	_, err := sess.Answer(context.Background(), "A")
	s.Error(err)
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}
