package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shuizhiqing/examtrainer/internal/bank"
	"github.com/shuizhiqing/examtrainer/internal/errors"
	"github.com/shuizhiqing/examtrainer/internal/logger"
	"github.com/shuizhiqing/examtrainer/internal/models"
	"github.com/shuizhiqing/examtrainer/internal/scoring"
	"github.com/shuizhiqing/examtrainer/internal/storage"
)

// State is the session lifecycle phase.
type State string

const (
	StateConfiguring State = "configuring"
	StateActive      State = "active"
	StateSubmitting  State = "submitting"
	StateCompleted   State = "completed"
)

// Product policy constants.
const (
	ExamQuestionCount = 100
	ExamTimeSeconds   = 90 * 60

	TrialQuestionCount = 20
	TrialTimeSeconds   = 30 * 60

	// Wrong-book and favorites practice run against a per-question budget.
	ReviewSecondsPerQuestion = 60
)

// Config is what the user picks on the configuration screen.
type Config struct {
	Phone           string
	IsTrial         bool
	Mode            models.Mode
	PracticeVariant models.PracticeVariant
	Category        string
	Types           []models.QuestionType
}

// Option configures a Session at construction.
type Option func(*Session)

// WithTrialTimeUp installs the callback invoked when a trial session's
// clock expires. Trial expiry never auto-submits; the shell uses this to
// force a logout prompt.
func WithTrialTimeUp(fn func()) Option {
	return func(s *Session) { s.onTrialTimeUp = fn }
}

// WithTickInterval shortens the timer resolution. Tests only.
func WithTickInterval(d time.Duration) Option {
	return func(s *Session) { s.tickInterval = d }
}

// WithTrialLimits overrides the deployment's trial question cap and
// trial clock. Non-positive values keep the defaults.
func WithTrialLimits(questions, seconds int) Option {
	return func(s *Session) {
		if questions > 0 {
			s.trialQuestionCount = questions
		}
		if seconds > 0 {
			s.trialTimeSeconds = seconds
		}
	}
}

// Session owns one exam or practice attempt. All mutations are
// serialized with a mutex: the caller model is a single actor, but the
// countdown fires on its own goroutine and needs the same ordering
// guarantee.
type Session struct {
	mu sync.Mutex

	state           State
	cfg             Config
	sourceType      models.SourceType
	questions       []models.SessionQuestion
	answers         map[int64]*string
	completed       map[int64]bool // practice feedback already shown, sticky
	markedIDs       map[int64]bool
	collectedIDs    map[int64]bool
	currentIndex    int
	timeRemaining   *int
	thinkingSeconds int
	startedAt       time.Time
	result          *models.Result

	bank    *bank.Bank
	gateway *storage.Gateway
	log     *logger.Logger

	timers        *timerSet
	tickInterval  time.Duration
	onTrialTimeUp func()

	trialQuestionCount int
	trialTimeSeconds   int
}

// AnswerFeedback is returned from Answer in practice mode; exam mode
// reveals nothing until submission.
type AnswerFeedback struct {
	Graded        bool    `json:"graded"`
	Correct       bool    `json:"correct"`
	CorrectAnswer string  `json:"correct_answer,omitempty"`
	Explanation   string  `json:"explanation,omitempty"`
	FirstAttempt  bool    `json:"first_attempt"`
}

func New(b *bank.Bank, gw *storage.Gateway, opts ...Option) *Session {
	s := &Session{
		state:        StateConfiguring,
		answers:      map[int64]*string{},
		completed:    map[int64]bool{},
		markedIDs:    map[int64]bool{},
		collectedIDs: map[int64]bool{},
		bank:         b,
		gateway:      gw,
		log:          logger.Default().WithPrefix("session"),
		tickInterval: time.Second,

		trialQuestionCount: TrialQuestionCount,
		trialTimeSeconds:   TrialTimeSeconds,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start draws the working set and activates the session. Failures leave
// the session in Configuring with nothing partially started.
func (s *Session) Start(ctx context.Context, cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConfiguring {
		return errors.NewBadRequestError("session already started")
	}
	if len(cfg.Types) == 0 {
		return errors.NewNoTypeSelectedError()
	}

	filter := bank.Filter{Types: cfg.Types}
	if cfg.Category != "" {
		filter.Categories = []string{cfg.Category}
	}

	var questions []models.SessionQuestion
	if cfg.Mode == models.ModeExam || cfg.PracticeVariant == models.PracticeRandom {
		n := s.bank.Count()
		if cfg.Mode == models.ModeExam {
			n = ExamQuestionCount
		}
		questions = s.bank.Sample(n, filter)
	} else {
		for i, q := range s.bank.Query(filter) {
			questions = append(questions, models.SessionQuestion{Question: q, DisplayIndex: i + 1})
		}
	}
	if len(questions) == 0 {
		return errors.NewEmptyPoolError(cfg.Category)
	}

	var remaining *int
	if cfg.IsTrial {
		if len(questions) > s.trialQuestionCount {
			questions = questions[:s.trialQuestionCount]
			for i := range questions {
				questions[i].DisplayIndex = i + 1
			}
		}
		t := s.trialTimeSeconds
		remaining = &t
	} else if cfg.Mode == models.ModeExam {
		t := ExamTimeSeconds
		remaining = &t
	}

	s.activate(ctx, cfg, models.SourceNormal, questions, remaining)
	return nil
}

// StartFromWrongBook builds a timed practice session over the user's
// wrong book.
func (s *Session) StartFromWrongBook(ctx context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConfiguring {
		return errors.NewBadRequestError("session already started")
	}

	entries, err := s.gateway.WrongBook(ctx, phone)
	if err != nil {
		return errors.NewInternalError(err)
	}
	if len(entries) == 0 {
		return errors.NewEmptyPoolError("错题集")
	}

	questions := make([]models.SessionQuestion, 0, len(entries))
	for i, e := range entries {
		questions = append(questions, models.SessionQuestion{Question: e.Question, DisplayIndex: i + 1})
	}
	t := len(questions) * ReviewSecondsPerQuestion
	cfg := Config{Phone: phone, Mode: models.ModePractice, PracticeVariant: models.PracticeOrdered}
	s.activate(ctx, cfg, models.SourceWrongBook, questions, &t)
	return nil
}

// StartFromFavorites builds a timed practice session over the user's
// favorites.
func (s *Session) StartFromFavorites(ctx context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConfiguring {
		return errors.NewBadRequestError("session already started")
	}

	favs, err := s.gateway.Favorites(ctx, phone)
	if err != nil {
		return errors.NewInternalError(err)
	}
	if len(favs.IDs) == 0 {
		return errors.NewEmptyPoolError("收藏夹")
	}

	var questions []models.SessionQuestion
	for _, id := range favs.IDs {
		q, ok := favs.Questions[id]
		if !ok {
			continue
		}
		questions = append(questions, models.SessionQuestion{Question: q, DisplayIndex: len(questions) + 1})
	}
	if len(questions) == 0 {
		return errors.NewEmptyPoolError("收藏夹")
	}

	t := len(questions) * ReviewSecondsPerQuestion
	cfg := Config{Phone: phone, Mode: models.ModePractice, PracticeVariant: models.PracticeOrdered}
	s.activate(ctx, cfg, models.SourceFavorites, questions, &t)

	// Favorites carry over as already-collected so the toggle reflects
	// reality.
	for _, q := range questions {
		s.collectedIDs[q.ID] = true
	}
	return nil
}

// Resume reconstructs an Active session from a restored progress
// record. Consuming the record is the progress manager's job.
func Resume(b *bank.Bank, gw *storage.Gateway, record models.ProgressRecord, opts ...Option) *Session {
	s := New(b, gw, opts...)
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := Config{
		Phone:           record.Phone,
		IsTrial:         models.IsTrialIdentity(record.Phone),
		Mode:            record.Mode,
		PracticeVariant: record.PracticeVariant,
		Category:        record.Category,
	}
	s.cfg = cfg
	s.sourceType = record.SourceType
	s.questions = append([]models.SessionQuestion(nil), record.Questions...)
	for id, a := range record.Answers {
		s.answers[id] = a
	}
	for _, id := range record.MarkedIDs {
		s.markedIDs[id] = true
	}
	for _, id := range record.CollectedIDs {
		s.collectedIDs[id] = true
	}
	for _, id := range record.CompletedIDs {
		s.completed[id] = true
	}
	s.currentIndex = record.CurrentIndex
	if s.currentIndex < 0 || s.currentIndex >= len(s.questions) {
		s.currentIndex = 0
	}
	if record.TimeRemaining != nil {
		t := *record.TimeRemaining
		s.timeRemaining = &t
	}
	s.startedAt = record.StartedAt
	s.state = StateActive
	s.startTimers()
	return s
}

// activate flips Configuring to Active. Callers hold s.mu.
func (s *Session) activate(ctx context.Context, cfg Config, source models.SourceType, questions []models.SessionQuestion, remaining *int) {
	s.cfg = cfg
	s.sourceType = source
	s.questions = questions
	s.currentIndex = 0
	s.timeRemaining = remaining
	s.startedAt = time.Now()
	s.state = StateActive
	s.startTimers()
	logger.FromContext(ctx).Info("session started: mode=%s source=%s questions=%d trial=%v",
		cfg.Mode, source, len(questions), cfg.IsTrial)
}

// Answer records the choice for the current question. Practice mode
// grades immediately and pushes a wrong entry on a miss; exam mode only
// records.
func (s *Session) Answer(ctx context.Context, letter string) (AnswerFeedback, error) {
	s.mu.Lock()

	if s.state != StateActive {
		s.mu.Unlock()
		return AnswerFeedback{}, errors.NewBadRequestError("session is not active")
	}
	q := s.questions[s.currentIndex]
	letter = strings.ToUpper(strings.TrimSpace(letter))
	if !q.HasOption(letter) {
		s.mu.Unlock()
		return AnswerFeedback{}, errors.NewValidationError("answer", "no such option: "+letter)
	}

	choice := letter
	s.answers[q.ID] = &choice

	if s.cfg.Mode == models.ModeExam {
		s.mu.Unlock()
		return AnswerFeedback{}, nil
	}

	firstAttempt := !s.completed[q.ID]
	s.completed[q.ID] = true
	correct := letter == q.Answer
	phone := s.cfg.Phone
	trial := s.cfg.IsTrial
	source := s.sourceType
	s.mu.Unlock()

	// Durable counters move immediately in practice mode. Failures are
	// logged; the recorded answer stands either way.
	if correct {
		s.bank.IncrementCorrect(q.ID)
	} else {
		s.bank.IncrementWrong(q.ID)
	}
	if !trial {
		if source == models.SourceWrongBook {
			if err := s.gateway.UpdateWrongProgress(ctx, phone, q.ID, correct); err != nil {
				s.log.Warn("wrong-book progress update failed: %v", err)
			}
		} else if !correct {
			if err := s.gateway.AddWrongQuestion(ctx, phone, q.Question); err != nil {
				s.log.Warn("wrong entry write failed: %v", err)
			}
		}
	}

	return AnswerFeedback{
		Graded:        true,
		Correct:       correct,
		CorrectAnswer: q.Answer,
		Explanation:   q.Explanation,
		FirstAttempt:  firstAttempt,
	}, nil
}

// Skip records an explicit nil answer, distinct from never answered,
// and advances.
func (s *Session) Skip() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return errors.NewBadRequestError("session is not active")
	}
	q := s.questions[s.currentIndex]
	s.answers[q.ID] = nil
	s.advanceLocked()
	return nil
}

// Next moves forward one question; no-op at the end.
func (s *Session) Next() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return
	}
	s.advanceLocked()
}

// Previous moves back one question; no-op at the start.
func (s *Session) Previous() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return
	}
	if s.currentIndex > 0 {
		s.currentIndex--
		s.thinkingSeconds = 0
	}
}

func (s *Session) advanceLocked() {
	if s.currentIndex < len(s.questions)-1 {
		s.currentIndex++
		s.thinkingSeconds = 0
	}
}

// ToggleMark flips the session-local mark on the current question.
// Marks are never persisted on their own.
func (s *Session) ToggleMark() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return false
	}
	id := s.questions[s.currentIndex].ID
	s.markedIDs[id] = !s.markedIDs[id]
	if !s.markedIDs[id] {
		delete(s.markedIDs, id)
	}
	return s.markedIDs[id]
}

// ToggleFavorite flips the collected flag and mirrors it to the durable
// favorites store for registered users.
func (s *Session) ToggleFavorite(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return false, errors.NewBadRequestError("session is not active")
	}
	q := s.questions[s.currentIndex]
	collected := !s.collectedIDs[q.ID]
	if collected {
		s.collectedIDs[q.ID] = true
	} else {
		delete(s.collectedIDs, q.ID)
	}
	phone := s.cfg.Phone
	trial := s.cfg.IsTrial
	s.mu.Unlock()

	if !trial {
		var err error
		if collected {
			err = s.gateway.AddFavorite(ctx, phone, q.Question)
		} else {
			err = s.gateway.RemoveFavorite(ctx, phone, q.ID)
		}
		if err != nil {
			s.log.Warn("favorite write failed: %v", err)
		}
	}
	return collected, nil
}

// Submit finalizes the session: scores it, persists the result and any
// exam-mode wrong entries, clears the auto-save slot, and completes.
func (s *Session) Submit(ctx context.Context) (models.Result, error) {
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return models.Result{}, errors.NewBadRequestError("session is not active")
	}
	s.state = StateSubmitting
	s.stopTimersLocked()

	input := s.scoringInputLocked(time.Now())
	phone := s.cfg.Phone
	trial := s.cfg.IsTrial
	mode := s.cfg.Mode
	s.mu.Unlock()

	result := scoring.Score(input)

	if mode == models.ModeExam {
		for _, aq := range result.Questions {
			if aq.UserAnswer == nil {
				continue
			}
			if *aq.UserAnswer == aq.Question.Answer {
				s.bank.IncrementCorrect(aq.Question.ID)
			} else {
				s.bank.IncrementWrong(aq.Question.ID)
				if !trial {
					if err := s.gateway.AddWrongQuestion(ctx, phone, aq.Question); err != nil {
						s.log.Warn("wrong entry write failed: %v", err)
					}
				}
			}
		}
	}

	if !trial {
		if err := s.gateway.AppendHistory(ctx, phone, result); err != nil {
			s.log.Warn("history write failed: %v", err)
		}
		if err := s.gateway.ClearTempProgress(ctx, phone); err != nil {
			s.log.Warn("temp progress clear failed: %v", err)
		}
	}

	s.mu.Lock()
	s.result = &result
	s.state = StateCompleted
	s.mu.Unlock()

	s.log.Info("session submitted: score=%d passed=%v questions=%d", result.Score, result.Passed, result.TotalQuestions)
	return result, nil
}

// Suspend stops the timers and detaches the session after its state has
// been captured into a progress record. The in-memory value is dead
// afterwards.
func (s *Session) Suspend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return
	}
	s.stopTimersLocked()
	s.state = StateConfiguring
}

func (s *Session) scoringInputLocked(now time.Time) scoring.Input {
	answers := make(map[int64]*string, len(s.answers))
	for id, a := range s.answers {
		answers[id] = a
	}
	return scoring.Input{
		Questions:   append([]models.SessionQuestion(nil), s.questions...),
		Answers:     answers,
		Mode:        s.cfg.Mode,
		Variant:     s.cfg.PracticeVariant,
		SourceType:  s.sourceType,
		Category:    s.cfg.Category,
		IsTrial:     s.cfg.IsTrial,
		StartedAt:   s.startedAt,
		SubmittedAt: now,
	}
}

// ---- read-only state ----

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentQuestion returns the displayed question, false when the
// session never activated.
func (s *Session) CurrentQuestion() (models.SessionQuestion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.questions) == 0 {
		return models.SessionQuestion{}, false
	}
	return s.questions[s.currentIndex], true
}

// ProgressSummary is the polling view for the navigation panel.
func (s *Session) ProgressSummary() models.ProgressSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	answered, skipped := 0, 0
	for _, a := range s.answers {
		if a == nil {
			skipped++
		} else {
			answered++
		}
	}
	summary := models.ProgressSummary{
		CurrentIndex:    s.currentIndex,
		TotalQuestions:  len(s.questions),
		AnsweredCount:   answered,
		SkippedCount:    skipped,
		MarkedCount:     len(s.markedIDs),
		CollectedCount:  len(s.collectedIDs),
		ThinkingSeconds: s.thinkingSeconds,
	}
	if s.timeRemaining != nil {
		t := *s.timeRemaining
		summary.TimeRemaining = &t
	}
	return summary
}

// TimeRemaining returns nil for untimed sessions.
func (s *Session) TimeRemaining() *int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timeRemaining == nil {
		return nil
	}
	t := *s.timeRemaining
	return &t
}

func (s *Session) Result() (models.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return models.Result{}, false
	}
	return *s.result, true
}

// Review builds the post-submission transcript. Pure and repeatable.
func (s *Session) Review() []models.ReviewItem {
	s.mu.Lock()
	input := s.scoringInputLocked(time.Now())
	s.mu.Unlock()
	return scoring.BuildReview(input)
}

// ---- snapshot support for the progress manager ----

func (s *Session) Phone() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Phone
}

func (s *Session) IsTrial() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.IsTrial
}

func (s *Session) Mode() models.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Mode
}

func (s *Session) PracticeVariant() models.PracticeVariant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.PracticeVariant
}

func (s *Session) SourceType() models.SourceType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sourceType
}

func (s *Session) Category() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Category
}

func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentIndex
}

func (s *Session) Questions() []models.SessionQuestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.SessionQuestion(nil), s.questions...)
}

func (s *Session) Answers() map[int64]*string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]*string, len(s.answers))
	for id, a := range s.answers {
		out[id] = a
	}
	return out
}

func (s *Session) MarkedIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return keys(s.markedIDs)
}

func (s *Session) CollectedIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return keys(s.collectedIDs)
}

func (s *Session) CompletedIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return keys(s.completed)
}

func keys(set map[int64]bool) []int64 {
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
