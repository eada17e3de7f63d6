package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shuizhiqing/examtrainer/internal/logger"
	"github.com/shuizhiqing/examtrainer/internal/models"
)

// HTTPMirror talks to a remote mirror service over plain JSON/REST. It is
// strictly best-effort: callers treat every error as "remote unavailable".
type HTTPMirror struct {
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

var _ RemoteMirror = (*HTTPMirror)(nil)

func NewHTTPMirror(baseURL string) *HTTPMirror {
	return &HTTPMirror{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        logger.Default().WithPrefix("mirror"),
	}
}

func (m *HTTPMirror) Enabled() bool { return m.baseURL != "" }

// get fetches a resource into out. A 404 leaves out untouched and
// returns found=false without an error.
func (m *HTTPMirror) get(ctx context.Context, path string, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+path, nil)
	if err != nil {
		return false, err
	}

	start := time.Now()
	resp, err := m.httpClient.Do(req)
	if err != nil {
		m.log.Warn("GET %s failed: %v", path, err)
		return false, err
	}
	defer resp.Body.Close()
	m.log.Debug("GET %s: status=%d in %v", path, resp.StatusCode, time.Since(start))

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return false, fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, err
	}
	return true, nil
}

func (m *HTTPMirror) send(ctx context.Context, method, path string, body any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, m.baseURL+path, payload)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		m.log.Warn("%s %s failed: %v", method, path, err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, string(data))
	}
	return nil
}

func (m *HTTPMirror) FetchUser(ctx context.Context, phone string) (*models.User, error) {
	var user models.User
	found, err := m.get(ctx, "/users/"+url.PathEscape(phone), &user)
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

func (m *HTTPMirror) SaveUser(ctx context.Context, user models.User) error {
	return m.send(ctx, http.MethodPut, "/users/"+url.PathEscape(user.Phone), user)
}

func (m *HTTPMirror) FetchHistory(ctx context.Context, phone string) ([]models.Result, error) {
	var history []models.Result
	found, err := m.get(ctx, "/history/"+url.PathEscape(phone), &history)
	if err != nil || !found {
		return nil, err
	}
	return history, nil
}

func (m *HTTPMirror) SaveResult(ctx context.Context, phone string, result models.Result) error {
	return m.send(ctx, http.MethodPost, "/history/"+url.PathEscape(phone), result)
}

func (m *HTTPMirror) DeleteResult(ctx context.Context, phone, resultID string) error {
	return m.send(ctx, http.MethodDelete, "/history/"+url.PathEscape(phone)+"/"+url.PathEscape(resultID), nil)
}

func (m *HTTPMirror) FetchFavorites(ctx context.Context, phone string) (*models.FavoriteSet, error) {
	var favs models.FavoriteSet
	found, err := m.get(ctx, "/favorites/"+url.PathEscape(phone), &favs)
	if err != nil || !found {
		return nil, err
	}
	return &favs, nil
}

func (m *HTTPMirror) SaveFavorites(ctx context.Context, phone string, favs models.FavoriteSet) error {
	return m.send(ctx, http.MethodPut, "/favorites/"+url.PathEscape(phone), favs)
}

func (m *HTTPMirror) FetchWrongBook(ctx context.Context, phone string) ([]models.WrongEntry, error) {
	var entries []models.WrongEntry
	found, err := m.get(ctx, "/wrongbook/"+url.PathEscape(phone), &entries)
	if err != nil || !found {
		return nil, err
	}
	return entries, nil
}

func (m *HTTPMirror) SaveWrongBook(ctx context.Context, phone string, entries []models.WrongEntry) error {
	return m.send(ctx, http.MethodPut, "/wrongbook/"+url.PathEscape(phone), entries)
}

func (m *HTTPMirror) FetchQuestions(ctx context.Context) ([]models.Question, error) {
	var questions []models.Question
	found, err := m.get(ctx, "/questions", &questions)
	if err != nil || !found {
		return nil, err
	}
	return questions, nil
}

func (m *HTTPMirror) SaveQuestions(ctx context.Context, questions []models.Question) error {
	return m.send(ctx, http.MethodPut, "/questions", questions)
}

func (m *HTTPMirror) FetchCodes(ctx context.Context) ([]models.ActivationCode, error) {
	var codes []models.ActivationCode
	found, err := m.get(ctx, "/codes", &codes)
	if err != nil || !found {
		return nil, err
	}
	return codes, nil
}

func (m *HTTPMirror) SaveCodes(ctx context.Context, codes []models.ActivationCode) error {
	return m.send(ctx, http.MethodPut, "/codes", codes)
}

func (m *HTTPMirror) FetchSettings(ctx context.Context) (*models.Settings, error) {
	var settings models.Settings
	found, err := m.get(ctx, "/settings", &settings)
	if err != nil || !found {
		return nil, err
	}
	return &settings, nil
}

func (m *HTTPMirror) SaveSettings(ctx context.Context, settings models.Settings) error {
	return m.send(ctx, http.MethodPut, "/settings", settings)
}

func (m *HTTPMirror) FetchProgressRecords(ctx context.Context, phone string) ([]models.ProgressRecord, error) {
	var records []models.ProgressRecord
	found, err := m.get(ctx, "/progress/"+url.PathEscape(phone), &records)
	if err != nil || !found {
		return nil, err
	}
	return records, nil
}

func (m *HTTPMirror) SaveProgressRecord(ctx context.Context, record models.ProgressRecord) error {
	return m.send(ctx, http.MethodPost, "/progress/"+url.PathEscape(record.Phone), record)
}

func (m *HTTPMirror) DeleteProgressRecord(ctx context.Context, recordID string) error {
	return m.send(ctx, http.MethodDelete, "/progress/records/"+url.PathEscape(recordID), nil)
}
