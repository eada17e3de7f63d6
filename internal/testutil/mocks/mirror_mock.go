package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/shuizhiqing/examtrainer/internal/models"
)

// MockRemoteMirror is a mock implementation of storage.RemoteMirror
type MockRemoteMirror struct {
	mock.Mock
}

func (m *MockRemoteMirror) Enabled() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockRemoteMirror) FetchUser(ctx context.Context, phone string) (*models.User, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockRemoteMirror) SaveUser(ctx context.Context, user models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockRemoteMirror) FetchHistory(ctx context.Context, phone string) ([]models.Result, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Result), args.Error(1)
}

func (m *MockRemoteMirror) SaveResult(ctx context.Context, phone string, result models.Result) error {
	return m.Called(ctx, phone, result).Error(0)
}

func (m *MockRemoteMirror) DeleteResult(ctx context.Context, phone, resultID string) error {
	return m.Called(ctx, phone, resultID).Error(0)
}

func (m *MockRemoteMirror) FetchFavorites(ctx context.Context, phone string) (*models.FavoriteSet, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FavoriteSet), args.Error(1)
}

func (m *MockRemoteMirror) SaveFavorites(ctx context.Context, phone string, favs models.FavoriteSet) error {
	return m.Called(ctx, phone, favs).Error(0)
}

func (m *MockRemoteMirror) FetchWrongBook(ctx context.Context, phone string) ([]models.WrongEntry, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.WrongEntry), args.Error(1)
}

func (m *MockRemoteMirror) SaveWrongBook(ctx context.Context, phone string, entries []models.WrongEntry) error {
	return m.Called(ctx, phone, entries).Error(0)
}

func (m *MockRemoteMirror) FetchQuestions(ctx context.Context) ([]models.Question, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Question), args.Error(1)
}

func (m *MockRemoteMirror) SaveQuestions(ctx context.Context, questions []models.Question) error {
	return m.Called(ctx, questions).Error(0)
}

func (m *MockRemoteMirror) FetchCodes(ctx context.Context) ([]models.ActivationCode, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ActivationCode), args.Error(1)
}

func (m *MockRemoteMirror) SaveCodes(ctx context.Context, codes []models.ActivationCode) error {
	return m.Called(ctx, codes).Error(0)
}

func (m *MockRemoteMirror) FetchSettings(ctx context.Context) (*models.Settings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Settings), args.Error(1)
}

func (m *MockRemoteMirror) SaveSettings(ctx context.Context, settings models.Settings) error {
	return m.Called(ctx, settings).Error(0)
}

func (m *MockRemoteMirror) FetchProgressRecords(ctx context.Context, phone string) ([]models.ProgressRecord, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ProgressRecord), args.Error(1)
}

func (m *MockRemoteMirror) SaveProgressRecord(ctx context.Context, record models.ProgressRecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *MockRemoteMirror) DeleteProgressRecord(ctx context.Context, recordID string) error {
	return m.Called(ctx, recordID).Error(0)
}
