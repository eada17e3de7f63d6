package progress

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/shuizhiqing/examtrainer/internal/bank"
	"github.com/shuizhiqing/examtrainer/internal/errors"
	"github.com/shuizhiqing/examtrainer/internal/logger"
	"github.com/shuizhiqing/examtrainer/internal/models"
	"github.com/shuizhiqing/examtrainer/internal/session"
	"github.com/shuizhiqing/examtrainer/internal/storage"
)

// Manager moves session state in and out of durable progress records.
// Records are consumed exactly once: a successful restore deletes its
// source, and a second restore of the same id fails with RecordNotFound.
type Manager struct {
	gateway *storage.Gateway
	bank    *bank.Bank
	log     *logger.Logger
}

func NewManager(gw *storage.Gateway, b *bank.Bank) *Manager {
	return &Manager{
		gateway: gw,
		bank:    b,
		log:     logger.Default().WithPrefix("progress"),
	}
}

// Snapshot captures the full session shape plus the summary fields the
// resume list shows. Pure: nothing is persisted and the session is not
// touched.
func (m *Manager) Snapshot(s *session.Session) models.ProgressRecord {
	answers := s.Answers()
	answered := 0
	for _, a := range answers {
		if a != nil {
			answered++
		}
	}
	questions := s.Questions()
	percent := 0
	if len(questions) > 0 {
		percent = int(math.Round(float64(answered) / float64(len(questions)) * 100))
	}

	record := models.ProgressRecord{
		ID:              uuid.NewString(),
		Phone:           s.Phone(),
		Questions:       questions,
		Answers:         answers,
		MarkedIDs:       s.MarkedIDs(),
		CollectedIDs:    s.CollectedIDs(),
		CompletedIDs:    s.CompletedIDs(),
		CurrentIndex:    s.CurrentIndex(),
		TimeRemaining:   s.TimeRemaining(),
		StartedAt:       s.StartedAt(),
		Mode:            s.Mode(),
		PracticeVariant: s.PracticeVariant(),
		SourceType:      s.SourceType(),
		Category:        s.Category(),
		AnsweredCount:   answered,
		TotalCount:      len(questions),
		ProgressPercent: percent,
		SavedAt:         time.Now(),
	}
	record.TypeLabel, record.ModeLabel, record.CategoryName = labels(record)
	return record
}

// labels derives the human-readable resume-list strings from the source
// and mode.
func labels(r models.ProgressRecord) (typeLabel, modeLabel, categoryName string) {
	switch r.SourceType {
	case models.SourceWrongBook:
		return "错题练习", "错题巩固", "错题集"
	case models.SourceFavorites:
		return "收藏练习", "收藏练习", "收藏夹"
	}
	if r.Mode == models.ModeExam {
		return "模拟考试", "模拟考试", r.Category
	}
	modeLabel = "顺序练习"
	if r.PracticeVariant == models.PracticeRandom {
		modeLabel = "随机练习"
	}
	return "刷题练习", modeLabel, r.Category
}

// SaveProgress is the explicit user-initiated save. An empty session is
// allowed; the record is persisted and the session suspended.
func (m *Manager) SaveProgress(ctx context.Context, s *session.Session) (models.ProgressRecord, error) {
	if s.State() != session.StateActive {
		return models.ProgressRecord{}, errors.NewBadRequestError("no active session to save")
	}

	record := m.Snapshot(s)
	if err := m.gateway.SaveProgressRecord(ctx, record); err != nil {
		return models.ProgressRecord{}, errors.NewInternalError(err)
	}
	s.Suspend()
	m.log.Info("progress saved: id=%s answered=%d/%d", record.ID, record.AnsweredCount, record.TotalCount)
	return record, nil
}

// AutoSave runs on navigation-away or logout. It only fires when at
// least one answer exists, writing the single temp slot rather than a
// named record. Returns false when there was nothing worth saving.
func (m *Manager) AutoSave(ctx context.Context, s *session.Session) (bool, error) {
	if s.State() != session.StateActive {
		return false, nil
	}

	record := m.Snapshot(s)
	if record.AnsweredCount == 0 {
		s.Suspend()
		return false, nil
	}
	if err := m.gateway.SaveTempProgress(ctx, record); err != nil {
		return false, errors.NewInternalError(err)
	}
	s.Suspend()
	m.log.Info("auto-saved progress: phone=%s answered=%d/%d", record.Phone, record.AnsweredCount, record.TotalCount)
	return true, nil
}

// PeriodicSave refreshes the temp slot for a still-running session. It
// never suspends; the session keeps going and the slot always holds the
// latest answered state in case the process dies. Sessions with no
// answers yet are skipped, same as AutoSave.
func (m *Manager) PeriodicSave(ctx context.Context, s *session.Session) (bool, error) {
	if s.State() != session.StateActive {
		return false, nil
	}
	record := m.Snapshot(s)
	if record.AnsweredCount == 0 {
		return false, nil
	}
	if err := m.gateway.SaveTempProgress(ctx, record); err != nil {
		return false, errors.NewInternalError(err)
	}
	m.log.Debug("periodic save: phone=%s answered=%d/%d", record.Phone, record.AnsweredCount, record.TotalCount)
	return true, nil
}

// Restore consumes a named record and rebuilds an Active session from
// it. The conditional delete is the consume step: whichever caller's
// delete removes the row wins, and every other racing restore fails
// with RecordNotFound before any session is created.
func (m *Manager) Restore(ctx context.Context, phone, recordID string, opts ...session.Option) (*session.Session, error) {
	record, err := m.gateway.ProgressRecord(ctx, phone, recordID)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	if record == nil {
		return nil, errors.NewRecordNotFoundError(recordID)
	}
	removed, err := m.gateway.DeleteProgressRecord(ctx, recordID)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	if !removed {
		return nil, errors.NewRecordNotFoundError(recordID)
	}

	s := session.Resume(m.bank, m.gateway, *record, opts...)
	m.log.Info("progress restored: id=%s answered=%d/%d", record.ID, record.AnsweredCount, record.TotalCount)
	return s, nil
}

// RestoreTemp resumes the auto-saved slot, consuming it. Returns nil
// without error when the slot is empty.
func (m *Manager) RestoreTemp(ctx context.Context, phone string, opts ...session.Option) (*session.Session, error) {
	record, err := m.gateway.TempProgress(ctx, phone)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	if record == nil {
		return nil, nil
	}
	if err := m.gateway.ClearTempProgress(ctx, phone); err != nil {
		return nil, errors.NewInternalError(err)
	}
	return session.Resume(m.bank, m.gateway, *record, opts...), nil
}

// List returns the user's saved records, most recent first.
func (m *Manager) List(ctx context.Context, phone string) ([]models.ProgressRecord, error) {
	return m.gateway.ProgressRecords(ctx, phone)
}

// Delete removes one record; other records are untouched.
func (m *Manager) Delete(ctx context.Context, phone, recordID string) error {
	record, err := m.gateway.ProgressRecord(ctx, phone, recordID)
	if err != nil {
		return errors.NewInternalError(err)
	}
	if record == nil {
		return errors.NewRecordNotFoundError(recordID)
	}
	removed, err := m.gateway.DeleteProgressRecord(ctx, recordID)
	if err != nil {
		return errors.NewInternalError(err)
	}
	if !removed {
		return errors.NewRecordNotFoundError(recordID)
	}
	return nil
}

// ClearAll drops every record the user owns.
func (m *Manager) ClearAll(ctx context.Context, phone string) error {
	return m.gateway.ClearProgress(ctx, phone)
}

// ClearTrialProgress purges records left behind by trial identities.
func (m *Manager) ClearTrialProgress(ctx context.Context) error {
	return m.gateway.ClearTrialProgress(ctx)
}
