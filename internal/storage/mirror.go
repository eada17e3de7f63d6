package storage

import (
	"context"

	"github.com/shuizhiqing/examtrainer/internal/models"
)

// RemoteMirror is the optional best-effort remote copy of every per-user
// namespace. Fetch methods return (nil, nil) when the remote has no data;
// any error makes the gateway fall back to the local store.
type RemoteMirror interface {
	Enabled() bool

	FetchUser(ctx context.Context, phone string) (*models.User, error)
	SaveUser(ctx context.Context, user models.User) error

	FetchHistory(ctx context.Context, phone string) ([]models.Result, error)
	SaveResult(ctx context.Context, phone string, result models.Result) error
	DeleteResult(ctx context.Context, phone, resultID string) error

	FetchFavorites(ctx context.Context, phone string) (*models.FavoriteSet, error)
	SaveFavorites(ctx context.Context, phone string, favs models.FavoriteSet) error

	FetchWrongBook(ctx context.Context, phone string) ([]models.WrongEntry, error)
	SaveWrongBook(ctx context.Context, phone string, entries []models.WrongEntry) error

	FetchQuestions(ctx context.Context) ([]models.Question, error)
	SaveQuestions(ctx context.Context, questions []models.Question) error

	FetchCodes(ctx context.Context) ([]models.ActivationCode, error)
	SaveCodes(ctx context.Context, codes []models.ActivationCode) error

	FetchSettings(ctx context.Context) (*models.Settings, error)
	SaveSettings(ctx context.Context, settings models.Settings) error

	FetchProgressRecords(ctx context.Context, phone string) ([]models.ProgressRecord, error)
	SaveProgressRecord(ctx context.Context, record models.ProgressRecord) error
	DeleteProgressRecord(ctx context.Context, recordID string) error
}

// NullMirror is the no-op implementation used when no remote backend is
// configured. The gateway then serves everything from the local store.
type NullMirror struct{}

var _ RemoteMirror = NullMirror{}

func (NullMirror) Enabled() bool { return false }

func (NullMirror) FetchUser(context.Context, string) (*models.User, error) { return nil, nil }
func (NullMirror) SaveUser(context.Context, models.User) error             { return nil }

func (NullMirror) FetchHistory(context.Context, string) ([]models.Result, error) { return nil, nil }
func (NullMirror) SaveResult(context.Context, string, models.Result) error       { return nil }
func (NullMirror) DeleteResult(context.Context, string, string) error            { return nil }

func (NullMirror) FetchFavorites(context.Context, string) (*models.FavoriteSet, error) {
	return nil, nil
}
func (NullMirror) SaveFavorites(context.Context, string, models.FavoriteSet) error { return nil }

func (NullMirror) FetchWrongBook(context.Context, string) ([]models.WrongEntry, error) {
	return nil, nil
}
func (NullMirror) SaveWrongBook(context.Context, string, []models.WrongEntry) error { return nil }

func (NullMirror) FetchQuestions(context.Context) ([]models.Question, error) { return nil, nil }
func (NullMirror) SaveQuestions(context.Context, []models.Question) error    { return nil }

func (NullMirror) FetchCodes(context.Context) ([]models.ActivationCode, error) { return nil, nil }
func (NullMirror) SaveCodes(context.Context, []models.ActivationCode) error    { return nil }

func (NullMirror) FetchSettings(context.Context) (*models.Settings, error) { return nil, nil }
func (NullMirror) SaveSettings(context.Context, models.Settings) error     { return nil }

func (NullMirror) FetchProgressRecords(context.Context, string) ([]models.ProgressRecord, error) {
	return nil, nil
}
func (NullMirror) SaveProgressRecord(context.Context, models.ProgressRecord) error { return nil }
func (NullMirror) DeleteProgressRecord(context.Context, string) error              { return nil }
