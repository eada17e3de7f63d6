package storage

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/shuizhiqing/examtrainer/internal/logger"
	"github.com/shuizhiqing/examtrainer/internal/models"
	"github.com/shuizhiqing/examtrainer/internal/worker"
)

const currentUserKey = "current"
const codesKey = "all"
const settingsKey = "site"
const questionsKey = "bank"

// Gateway is the persistence layer every component goes through. It
// follows a local-first, remote-best-effort consistency pattern:
//
//   - Writes persist to the local store synchronously, then enqueue an
//     asynchronous mirror write whose failure is logged, never propagated.
//   - Reads try the remote mirror first when one is configured; on success
//     the local cache is overwritten with the remote result. On any remote
//     error, or with no mirror, the local store answers.
//
// Remote failures are therefore invisible to callers and the local store
// is the durable source of truth whenever the remote is unreachable. This
// trades consistency for availability on purpose.
type Gateway struct {
	store  Store
	mirror RemoteMirror
	pool   *worker.Pool
	log    *logger.Logger
}

func NewGateway(store Store, mirror RemoteMirror, pool *worker.Pool) *Gateway {
	if mirror == nil {
		mirror = NullMirror{}
	}
	return &Gateway{
		store:  store,
		mirror: mirror,
		pool:   pool,
		log:    logger.Default().WithPrefix("gateway"),
	}
}

func (g *Gateway) readLocal(ctx context.Context, ns, key string, out any) (bool, error) {
	data, found, err := g.store.Get(ctx, ns, key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		g.log.Warn("corrupt value: ns=%s key=%s: %v", ns, key, err)
		return false, nil
	}
	return true, nil
}

func (g *Gateway) writeLocal(ctx context.Context, ns, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return g.store.Set(ctx, ns, key, data)
}

// mirrorAsync spawns a fire-and-forget remote write. The originating
// local operation has already succeeded; a mirror failure only logs.
func (g *Gateway) mirrorAsync(name string, fn func(context.Context) error) {
	if !g.mirror.Enabled() || g.pool == nil {
		return
	}
	g.pool.TrySubmit(worker.FuncJob{JobName: name, Fn: fn})
}

// ---- users ----

func (g *Gateway) UserByPhone(ctx context.Context, phone string) (*models.User, error) {
	if g.mirror.Enabled() {
		if user, err := g.mirror.FetchUser(ctx, phone); err != nil {
			g.log.Warn("remote user read failed, falling back to local: %v", err)
		} else if user != nil {
			_ = g.writeLocal(ctx, nsUsers, phone, user)
			return user, nil
		}
	}

	var user models.User
	found, err := g.readLocal(ctx, nsUsers, phone, &user)
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

// SaveUser upserts a user record by phone.
func (g *Gateway) SaveUser(ctx context.Context, user models.User) error {
	if err := g.writeLocal(ctx, nsUsers, user.Phone, user); err != nil {
		return err
	}
	g.mirrorAsync("mirror-user", func(ctx context.Context) error {
		return g.mirror.SaveUser(ctx, user)
	})
	return nil
}

func (g *Gateway) Users(ctx context.Context) ([]models.User, error) {
	raw, err := g.store.List(ctx, nsUsers)
	if err != nil {
		return nil, err
	}
	users := make([]models.User, 0, len(raw))
	for key, data := range raw {
		var u models.User
		if err := json.Unmarshal(data, &u); err != nil {
			g.log.Warn("corrupt user record: key=%s: %v", key, err)
			continue
		}
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Phone < users[j].Phone })
	return users, nil
}

func (g *Gateway) CurrentUser(ctx context.Context) (*models.User, error) {
	var user models.User
	found, err := g.readLocal(ctx, nsCurrentUser, currentUserKey, &user)
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

func (g *Gateway) SetCurrentUser(ctx context.Context, user models.User) error {
	return g.writeLocal(ctx, nsCurrentUser, currentUserKey, user)
}

func (g *Gateway) ClearCurrentUser(ctx context.Context) error {
	_, err := g.store.Delete(ctx, nsCurrentUser, currentUserKey)
	return err
}

// ---- history ----

// History returns the user's result history, most recent first.
func (g *Gateway) History(ctx context.Context, phone string) ([]models.Result, error) {
	if g.mirror.Enabled() {
		if remote, err := g.mirror.FetchHistory(ctx, phone); err != nil {
			g.log.Warn("remote history read failed, falling back to local: %v", err)
		} else if remote != nil {
			_ = g.writeLocal(ctx, nsHistory, phone, remote)
			return remote, nil
		}
	}

	var history []models.Result
	if _, err := g.readLocal(ctx, nsHistory, phone, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// AppendHistory prepends a finished result to the user's history.
func (g *Gateway) AppendHistory(ctx context.Context, phone string, result models.Result) error {
	var history []models.Result
	if _, err := g.readLocal(ctx, nsHistory, phone, &history); err != nil {
		return err
	}
	history = append([]models.Result{result}, history...)
	if err := g.writeLocal(ctx, nsHistory, phone, history); err != nil {
		return err
	}
	g.mirrorAsync("mirror-result", func(ctx context.Context) error {
		return g.mirror.SaveResult(ctx, phone, result)
	})
	return nil
}

func (g *Gateway) DeleteHistory(ctx context.Context, phone, resultID string) error {
	var history []models.Result
	if _, err := g.readLocal(ctx, nsHistory, phone, &history); err != nil {
		return err
	}
	kept := history[:0]
	for _, r := range history {
		if r.ID != resultID {
			kept = append(kept, r)
		}
	}
	if err := g.writeLocal(ctx, nsHistory, phone, kept); err != nil {
		return err
	}
	g.mirrorAsync("mirror-result-delete", func(ctx context.Context) error {
		return g.mirror.DeleteResult(ctx, phone, resultID)
	})
	return nil
}

func (g *Gateway) ClearHistory(ctx context.Context, phone string) error {
	_, err := g.store.Delete(ctx, nsHistory, phone)
	return err
}

// ---- favorites ----

// Favorites returns the user's favorite set, upgrading the legacy bare
// id-array shape in place on first read.
func (g *Gateway) Favorites(ctx context.Context, phone string) (models.FavoriteSet, error) {
	if g.mirror.Enabled() {
		if remote, err := g.mirror.FetchFavorites(ctx, phone); err != nil {
			g.log.Warn("remote favorites read failed, falling back to local: %v", err)
		} else if remote != nil {
			_ = g.writeLocal(ctx, nsFavorites, phone, remote)
			return *remote, nil
		}
	}

	data, found, err := g.store.Get(ctx, nsFavorites, phone)
	if err != nil {
		return models.FavoriteSet{}, err
	}
	if !found {
		return models.FavoriteSet{Questions: map[int64]models.Question{}}, nil
	}

	var favs models.FavoriteSet
	if err := json.Unmarshal(data, &favs); err == nil && favs.IDs != nil {
		if favs.Questions == nil {
			favs.Questions = map[int64]models.Question{}
		}
		return favs, nil
	}

	// Legacy shape: a bare array of question ids. Merge in the old
	// content cache, persist the upgraded shape, then retire the cache.
	var legacyIDs []int64
	if err := json.Unmarshal(data, &legacyIDs); err != nil {
		g.log.Warn("unreadable favorites for %s, resetting: %v", phone, err)
		return models.FavoriteSet{Questions: map[int64]models.Question{}}, nil
	}

	favs = models.FavoriteSet{IDs: legacyIDs, Questions: map[int64]models.Question{}}
	var cache map[int64]models.Question
	if _, err := g.readLocal(ctx, nsFavoriteData, phone, &cache); err == nil && cache != nil {
		for id, q := range cache {
			favs.Questions[id] = q
		}
	}
	if err := g.writeLocal(ctx, nsFavorites, phone, favs); err != nil {
		return models.FavoriteSet{}, err
	}
	_, _ = g.store.Delete(ctx, nsFavoriteData, phone)
	g.log.Info("migrated favorites format for %s: %d entries", phone, len(legacyIDs))
	return favs, nil
}

func (g *Gateway) saveFavorites(ctx context.Context, phone string, favs models.FavoriteSet) error {
	if err := g.writeLocal(ctx, nsFavorites, phone, favs); err != nil {
		return err
	}
	g.mirrorAsync("mirror-favorites", func(ctx context.Context) error {
		return g.mirror.SaveFavorites(ctx, phone, favs)
	})
	return nil
}

func (g *Gateway) AddFavorite(ctx context.Context, phone string, question models.Question) error {
	favs, err := g.Favorites(ctx, phone)
	if err != nil {
		return err
	}
	for _, id := range favs.IDs {
		if id == question.ID {
			favs.Questions[question.ID] = question
			return g.saveFavorites(ctx, phone, favs)
		}
	}
	favs.IDs = append(favs.IDs, question.ID)
	favs.Questions[question.ID] = question
	return g.saveFavorites(ctx, phone, favs)
}

func (g *Gateway) RemoveFavorite(ctx context.Context, phone string, questionID int64) error {
	favs, err := g.Favorites(ctx, phone)
	if err != nil {
		return err
	}
	kept := favs.IDs[:0]
	for _, id := range favs.IDs {
		if id != questionID {
			kept = append(kept, id)
		}
	}
	favs.IDs = kept
	delete(favs.Questions, questionID)
	return g.saveFavorites(ctx, phone, favs)
}

func (g *Gateway) IsFavorite(ctx context.Context, phone string, questionID int64) (bool, error) {
	favs, err := g.Favorites(ctx, phone)
	if err != nil {
		return false, err
	}
	for _, id := range favs.IDs {
		if id == questionID {
			return true, nil
		}
	}
	return false, nil
}

func (g *Gateway) ClearFavorites(ctx context.Context, phone string) error {
	if _, err := g.store.Delete(ctx, nsFavorites, phone); err != nil {
		return err
	}
	_, _ = g.store.Delete(ctx, nsFavoriteData, phone)
	g.mirrorAsync("mirror-favorites", func(ctx context.Context) error {
		return g.mirror.SaveFavorites(ctx, phone, models.FavoriteSet{Questions: map[int64]models.Question{}})
	})
	return nil
}

// ---- wrong book ----

// WrongBook returns the user's wrong entries. They live on the user
// record so the wrong book survives question-bank edits.
func (g *Gateway) WrongBook(ctx context.Context, phone string) ([]models.WrongEntry, error) {
	if g.mirror.Enabled() {
		if remote, err := g.mirror.FetchWrongBook(ctx, phone); err != nil {
			g.log.Warn("remote wrong book read failed, falling back to local: %v", err)
		} else if remote != nil {
			var user models.User
			if found, err := g.readLocal(ctx, nsUsers, phone, &user); err == nil && found {
				user.WrongQuestions = remote
				_ = g.writeLocal(ctx, nsUsers, phone, user)
			}
			return remote, nil
		}
	}

	user, err := g.UserByPhone(ctx, phone)
	if err != nil || user == nil {
		return nil, err
	}
	return user.WrongQuestions, nil
}

// AddWrongQuestion increments the wrong count for a question, creating
// the entry with a denormalized question copy when absent.
func (g *Gateway) AddWrongQuestion(ctx context.Context, phone string, question models.Question) error {
	user, err := g.UserByPhone(ctx, phone)
	if err != nil {
		return err
	}
	if user == nil {
		return nil // trial or unknown identity, nothing durable to update
	}

	now := time.Now()
	found := false
	for i := range user.WrongQuestions {
		if user.WrongQuestions[i].Question.ID == question.ID {
			user.WrongQuestions[i].WrongCount++
			user.WrongQuestions[i].LastWrong = now
			found = true
			break
		}
	}
	if !found {
		user.WrongQuestions = append(user.WrongQuestions, models.WrongEntry{
			Question:   question,
			WrongCount: 1,
			LastWrong:  now,
		})
	}

	if err := g.SaveUser(ctx, *user); err != nil {
		return err
	}
	entries := user.WrongQuestions
	g.mirrorAsync("mirror-wrongbook", func(ctx context.Context) error {
		return g.mirror.SaveWrongBook(ctx, phone, entries)
	})
	return nil
}

// UpdateWrongProgress bumps the correct/wrong counters of an existing
// wrong entry after it is practiced again.
func (g *Gateway) UpdateWrongProgress(ctx context.Context, phone string, questionID int64, correct bool) error {
	user, err := g.UserByPhone(ctx, phone)
	if err != nil || user == nil {
		return err
	}
	now := time.Now()
	for i := range user.WrongQuestions {
		if user.WrongQuestions[i].Question.ID != questionID {
			continue
		}
		if correct {
			user.WrongQuestions[i].CorrectCount++
		} else {
			user.WrongQuestions[i].WrongCount++
		}
		user.WrongQuestions[i].LastPracticed = &now
		return g.SaveUser(ctx, *user)
	}
	return nil
}

func (g *Gateway) RemoveWrongQuestion(ctx context.Context, phone string, questionID int64) error {
	user, err := g.UserByPhone(ctx, phone)
	if err != nil || user == nil {
		return err
	}
	kept := user.WrongQuestions[:0]
	for _, e := range user.WrongQuestions {
		if e.Question.ID != questionID {
			kept = append(kept, e)
		}
	}
	user.WrongQuestions = kept
	return g.SaveUser(ctx, *user)
}

func (g *Gateway) ClearWrongBook(ctx context.Context, phone string) error {
	user, err := g.UserByPhone(ctx, phone)
	if err != nil || user == nil {
		return err
	}
	user.WrongQuestions = nil
	if err := g.SaveUser(ctx, *user); err != nil {
		return err
	}
	g.mirrorAsync("mirror-wrongbook", func(ctx context.Context) error {
		return g.mirror.SaveWrongBook(ctx, phone, nil)
	})
	return nil
}

// ---- question bank ----

func (g *Gateway) Questions(ctx context.Context) ([]models.Question, error) {
	if g.mirror.Enabled() {
		if remote, err := g.mirror.FetchQuestions(ctx); err != nil {
			g.log.Warn("remote questions read failed, falling back to local: %v", err)
		} else if len(remote) > 0 {
			_ = g.writeLocal(ctx, nsQuestions, questionsKey, remote)
			return remote, nil
		}
	}

	var questions []models.Question
	if _, err := g.readLocal(ctx, nsQuestions, questionsKey, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (g *Gateway) SaveQuestions(ctx context.Context, questions []models.Question) error {
	if err := g.writeLocal(ctx, nsQuestions, questionsKey, questions); err != nil {
		return err
	}
	g.mirrorAsync("mirror-questions", func(ctx context.Context) error {
		return g.mirror.SaveQuestions(ctx, questions)
	})
	return nil
}

// ---- activation codes ----

func (g *Gateway) ActivationCodes(ctx context.Context) ([]models.ActivationCode, error) {
	if g.mirror.Enabled() {
		if remote, err := g.mirror.FetchCodes(ctx); err != nil {
			g.log.Warn("remote codes read failed, falling back to local: %v", err)
		} else if remote != nil {
			_ = g.writeLocal(ctx, nsActivationCodes, codesKey, remote)
			return remote, nil
		}
	}

	var codes []models.ActivationCode
	if _, err := g.readLocal(ctx, nsActivationCodes, codesKey, &codes); err != nil {
		return nil, err
	}
	return codes, nil
}

func (g *Gateway) SaveActivationCodes(ctx context.Context, codes []models.ActivationCode) error {
	if err := g.writeLocal(ctx, nsActivationCodes, codesKey, codes); err != nil {
		return err
	}
	g.mirrorAsync("mirror-codes", func(ctx context.Context) error {
		return g.mirror.SaveCodes(ctx, codes)
	})
	return nil
}

// ---- settings ----

// DefaultSettings are served until an admin saves anything.
func DefaultSettings() models.Settings {
	return models.Settings{
		SiteName:  "水知晴体育国职模拟考试系统",
		SiteTitle: "水知晴体育国职模拟考试系统",
		ExamInfo: map[string]string{
			"考试类型": "国职游泳救生员（初级/中级/高级）",
			"考试时间": "每月第二周周六",
			"考试地点": "各省市体育职业鉴定站",
			"招聘岗位": "救生员、游泳教练员",
		},
		AdminPassword:  "89757",
		WrongThreshold: 3,
		LogoURL:        "image/logo.png",
	}
}

func (g *Gateway) Settings(ctx context.Context) (models.Settings, error) {
	if g.mirror.Enabled() {
		if remote, err := g.mirror.FetchSettings(ctx); err != nil {
			g.log.Warn("remote settings read failed, falling back to local: %v", err)
		} else if remote != nil {
			merged := mergeSettings(*remote)
			_ = g.writeLocal(ctx, nsSettings, settingsKey, merged)
			return merged, nil
		}
	}

	var settings models.Settings
	found, err := g.readLocal(ctx, nsSettings, settingsKey, &settings)
	if err != nil {
		return models.Settings{}, err
	}
	if !found {
		return DefaultSettings(), nil
	}
	return mergeSettings(settings), nil
}

func mergeSettings(s models.Settings) models.Settings {
	defaults := DefaultSettings()
	if s.SiteName == "" {
		s.SiteName = defaults.SiteName
	}
	if s.SiteTitle == "" {
		s.SiteTitle = defaults.SiteTitle
	}
	if len(s.ExamInfo) == 0 {
		s.ExamInfo = defaults.ExamInfo
	}
	if s.AdminPassword == "" {
		s.AdminPassword = defaults.AdminPassword
	}
	if s.WrongThreshold == 0 {
		s.WrongThreshold = defaults.WrongThreshold
	}
	if s.LogoURL == "" {
		s.LogoURL = defaults.LogoURL
	}
	return s
}

func (g *Gateway) SaveSettings(ctx context.Context, settings models.Settings) error {
	merged := mergeSettings(settings)
	if err := g.writeLocal(ctx, nsSettings, settingsKey, merged); err != nil {
		return err
	}
	g.mirrorAsync("mirror-settings", func(ctx context.Context) error {
		return g.mirror.SaveSettings(ctx, merged)
	})
	return nil
}

// ---- progress records ----

// ProgressRecords lists a user's saved progress, most recent first.
func (g *Gateway) ProgressRecords(ctx context.Context, phone string) ([]models.ProgressRecord, error) {
	if g.mirror.Enabled() {
		if remote, err := g.mirror.FetchProgressRecords(ctx, phone); err != nil {
			g.log.Warn("remote progress read failed, falling back to local: %v", err)
		} else if remote != nil {
			for _, r := range remote {
				_ = g.writeLocal(ctx, nsProgressRecords, r.ID, r)
			}
			sortRecords(remote)
			return remote, nil
		}
	}

	raw, err := g.store.List(ctx, nsProgressRecords)
	if err != nil {
		return nil, err
	}
	var records []models.ProgressRecord
	for key, data := range raw {
		var r models.ProgressRecord
		if err := json.Unmarshal(data, &r); err != nil {
			g.log.Warn("corrupt progress record: key=%s: %v", key, err)
			continue
		}
		if r.Phone == phone {
			records = append(records, r)
		}
	}
	sortRecords(records)
	return records, nil
}

func sortRecords(records []models.ProgressRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].SavedAt.After(records[j].SavedAt)
	})
}

func (g *Gateway) SaveProgressRecord(ctx context.Context, record models.ProgressRecord) error {
	if err := g.writeLocal(ctx, nsProgressRecords, record.ID, record); err != nil {
		return err
	}
	g.mirrorAsync("mirror-progress", func(ctx context.Context) error {
		return g.mirror.SaveProgressRecord(ctx, record)
	})
	return nil
}

// ProgressRecord fetches a single record by id for the given owner.
func (g *Gateway) ProgressRecord(ctx context.Context, phone, recordID string) (*models.ProgressRecord, error) {
	var record models.ProgressRecord
	found, err := g.readLocal(ctx, nsProgressRecords, recordID, &record)
	if err != nil || !found {
		return nil, err
	}
	if record.Phone != phone {
		return nil, nil
	}
	return &record, nil
}

// DeleteProgressRecord removes one record and reports whether this call
// actually removed it. The local store is the arbiter: of two racing
// deletes of the same id, exactly one observes true.
func (g *Gateway) DeleteProgressRecord(ctx context.Context, recordID string) (bool, error) {
	removed, err := g.store.Delete(ctx, nsProgressRecords, recordID)
	if err != nil {
		return false, err
	}
	if removed {
		g.mirrorAsync("mirror-progress-delete", func(ctx context.Context) error {
			return g.mirror.DeleteProgressRecord(ctx, recordID)
		})
	}
	return removed, nil
}

func (g *Gateway) ClearProgress(ctx context.Context, phone string) error {
	records, err := g.ProgressRecords(ctx, phone)
	if err != nil {
		return err
	}
	for _, r := range records {
		if _, err := g.DeleteProgressRecord(ctx, r.ID); err != nil {
			return err
		}
	}
	return nil
}

// ClearTrialProgress drops every record belonging to a trial identity.
func (g *Gateway) ClearTrialProgress(ctx context.Context) error {
	raw, err := g.store.List(ctx, nsProgressRecords)
	if err != nil {
		return err
	}
	for key, data := range raw {
		var r models.ProgressRecord
		if err := json.Unmarshal(data, &r); err != nil {
			continue
		}
		if models.IsTrialIdentity(r.Phone) {
			_, _ = g.store.Delete(ctx, nsProgressRecords, key)
		}
	}
	return nil
}

// ---- temp progress ----

// TempProgress is the single auto-saved slot written on navigation-away.
func (g *Gateway) TempProgress(ctx context.Context, phone string) (*models.ProgressRecord, error) {
	var record models.ProgressRecord
	found, err := g.readLocal(ctx, nsTempProgress, phone, &record)
	if err != nil || !found {
		return nil, err
	}
	return &record, nil
}

func (g *Gateway) SaveTempProgress(ctx context.Context, record models.ProgressRecord) error {
	return g.writeLocal(ctx, nsTempProgress, record.Phone, record)
}

func (g *Gateway) ClearTempProgress(ctx context.Context, phone string) error {
	_, err := g.store.Delete(ctx, nsTempProgress, phone)
	return err
}
