package account

import (
	"context"
	"math/rand"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/shuizhiqing/examtrainer/internal/errors"
	"github.com/shuizhiqing/examtrainer/internal/logger"
	"github.com/shuizhiqing/examtrainer/internal/models"
	"github.com/shuizhiqing/examtrainer/internal/storage"
)

// SpecialCode is the permanent activation code. It always validates,
// activates for a year, and is never consumed.
const SpecialCode = "89757"

const (
	specialCodeValidityDays = 365
	defaultValidityDays     = 30
	codeLength              = 5
)

var phonePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)

// Service handles identities and activation codes.
type Service struct {
	gateway *storage.Gateway
	rng     *rand.Rand
	log     *logger.Logger
}

func NewService(gw *storage.Gateway) *Service {
	return &Service{
		gateway: gw,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		log:     logger.Default().WithPrefix("account"),
	}
}

// Login registers or signs in a user. First login with a valid
// activation code creates the account; later logins refresh the name
// and re-consume the code. Returns the user and whether this was a
// first login.
func (s *Service) Login(ctx context.Context, name, phone, code string) (models.User, bool, error) {
	if name == "" || phone == "" || code == "" {
		return models.User{}, false, errors.NewValidationError("login", "name, phone and activation code are required")
	}
	if !phonePattern.MatchString(phone) {
		return models.User{}, false, errors.NewValidationError("phone", "not a valid mobile number")
	}

	validated, err := s.ValidateCode(ctx, code)
	if err != nil {
		return models.User{}, false, err
	}

	user, err := s.gateway.UserByPhone(ctx, phone)
	if err != nil {
		return models.User{}, false, errors.NewInternalError(err)
	}

	firstLogin := user == nil
	if firstLogin {
		until := time.Now().AddDate(0, 0, validated.ValidityDays)
		user = &models.User{
			Phone:          phone,
			Name:           name,
			RegisterTime:   time.Now(),
			ActivationCode: code,
			ActivatedUntil: &until,
		}
		if err := s.gateway.SaveUser(ctx, *user); err != nil {
			return models.User{}, false, errors.NewInternalError(err)
		}
	} else if user.Name != name {
		user.Name = name
		if err := s.gateway.SaveUser(ctx, *user); err != nil {
			return models.User{}, false, errors.NewInternalError(err)
		}
	}

	if err := s.UseCode(ctx, code, phone); err != nil {
		return models.User{}, false, err
	}
	if err := s.gateway.SetCurrentUser(ctx, *user); err != nil {
		s.log.Warn("current-user write failed: %v", err)
	}

	s.log.Info("login: phone=%s first=%v", phone, firstLogin)
	return *user, firstLogin, nil
}

// TrialLogin mints an ephemeral identity with no durable account.
func (s *Service) TrialLogin(ctx context.Context) models.User {
	user := models.User{
		Phone:        models.TrialPhonePrefix + uuid.NewString(),
		Name:         "试用用户",
		RegisterTime: time.Now(),
	}
	if err := s.gateway.SetCurrentUser(ctx, user); err != nil {
		s.log.Warn("current-user write failed: %v", err)
	}
	return user
}

// AdminLogin checks the password against the site settings.
func (s *Service) AdminLogin(ctx context.Context, password string) error {
	settings, err := s.gateway.Settings(ctx)
	if err != nil {
		return errors.NewInternalError(err)
	}
	if password != settings.AdminPassword {
		return errors.NewUnauthorizedError("密码错误")
	}
	return nil
}

func (s *Service) CurrentUser(ctx context.Context) (*models.User, error) {
	return s.gateway.CurrentUser(ctx)
}

// Logout clears the current-user slot.
func (s *Service) Logout(ctx context.Context) error {
	return s.gateway.ClearCurrentUser(ctx)
}

// ---- activation codes ----

// GenerateCodes mints count fresh codes of 5 uppercase letters,
// re-rolling on collision with existing codes.
func (s *Service) GenerateCodes(ctx context.Context, count, validityDays, maxUses int) ([]models.ActivationCode, error) {
	if count <= 0 {
		return nil, errors.NewValidationError("count", "must be positive")
	}
	if validityDays <= 0 {
		validityDays = defaultValidityDays
	}
	if maxUses < 0 {
		maxUses = 0
	}

	existing, err := s.gateway.ActivationCodes(ctx)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	taken := map[string]bool{}
	for _, c := range existing {
		taken[c.Code] = true
	}

	now := time.Now()
	fresh := make([]models.ActivationCode, 0, count)
	for len(fresh) < count {
		value := s.randomCode()
		if taken[value] {
			continue
		}
		taken[value] = true
		fresh = append(fresh, models.ActivationCode{
			Code:         value,
			ValidityDays: validityDays,
			MaxUses:      maxUses,
			Status:       "unused",
			CreatedAt:    now,
			ExpiresAt:    now.AddDate(0, 0, validityDays),
			UsedBy:       []models.CodeUse{},
		})
	}

	if err := s.gateway.SaveActivationCodes(ctx, append(existing, fresh...)); err != nil {
		return nil, errors.NewInternalError(err)
	}
	s.log.Info("generated %d activation codes: validity=%dd maxUses=%d", count, validityDays, maxUses)
	return fresh, nil
}

func (s *Service) randomCode() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	buf := make([]byte, codeLength)
	for i := range buf {
		buf[i] = letters[s.rng.Intn(len(letters))]
	}
	return string(buf)
}

// ValidateCode checks a code without consuming it.
func (s *Service) ValidateCode(ctx context.Context, value string) (models.ActivationCode, error) {
	if value == SpecialCode {
		now := time.Now()
		return models.ActivationCode{
			Code:         SpecialCode,
			ValidityDays: specialCodeValidityDays,
			MaxUses:      0,
			Status:       "unused",
			IsSpecial:    true,
			ExpiresAt:    now.AddDate(0, 0, specialCodeValidityDays),
		}, nil
	}

	codes, err := s.gateway.ActivationCodes(ctx)
	if err != nil {
		return models.ActivationCode{}, errors.NewInternalError(err)
	}
	for _, c := range codes {
		if c.Code != value {
			continue
		}
		if c.MaxUses > 0 && c.UsedCount >= c.MaxUses {
			return models.ActivationCode{}, errors.NewUnauthorizedError("激活码已超过使用次数限制")
		}
		if c.ExpiresAt.Before(time.Now()) {
			return models.ActivationCode{}, errors.NewUnauthorizedError("激活码已过期")
		}
		return c, nil
	}
	return models.ActivationCode{}, errors.NewUnauthorizedError("激活码不存在")
}

// UseCode consumes one use of a code. The special code is never
// consumed.
func (s *Service) UseCode(ctx context.Context, value, phone string) error {
	if value == SpecialCode {
		return nil
	}

	codes, err := s.gateway.ActivationCodes(ctx)
	if err != nil {
		return errors.NewInternalError(err)
	}
	for i := range codes {
		if codes[i].Code != value {
			continue
		}
		c := &codes[i]
		if c.ExpiresAt.Before(time.Now()) {
			return errors.NewUnauthorizedError("激活码已过期")
		}
		if c.MaxUses > 0 && c.UsedCount >= c.MaxUses {
			return errors.NewUnauthorizedError("激活码已超过使用次数限制")
		}
		now := time.Now()
		c.UsedCount++
		c.LastUsedAt = &now
		c.UsedBy = append(c.UsedBy, models.CodeUse{Phone: phone, UsedAt: now})
		if c.MaxUses > 0 && c.UsedCount >= c.MaxUses {
			c.Status = "used"
		}
		return s.gateway.SaveActivationCodes(ctx, codes)
	}
	return errors.NewUnauthorizedError("激活码不存在")
}

func (s *Service) Codes(ctx context.Context) ([]models.ActivationCode, error) {
	return s.gateway.ActivationCodes(ctx)
}

func (s *Service) DeleteCode(ctx context.Context, value string) error {
	codes, err := s.gateway.ActivationCodes(ctx)
	if err != nil {
		return errors.NewInternalError(err)
	}
	kept := codes[:0]
	for _, c := range codes {
		if c.Code != value {
			kept = append(kept, c)
		}
	}
	return s.gateway.SaveActivationCodes(ctx, kept)
}

func (s *Service) ClearCodes(ctx context.Context) error {
	return s.gateway.SaveActivationCodes(ctx, []models.ActivationCode{})
}

// ---- user administration ----

// UserStats aggregates lifetime answering activity from history, wrong
// book and favorites.
func (s *Service) UserStats(ctx context.Context, phone string) (*models.UserStats, error) {
	user, err := s.gateway.UserByPhone(ctx, phone)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	if user == nil {
		return nil, errors.NewNotFoundError("user", phone)
	}

	history, err := s.gateway.History(ctx, phone)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	favs, err := s.gateway.Favorites(ctx, phone)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}

	totalAnswered, totalCorrect := 0, 0
	for _, h := range history {
		totalAnswered += h.TotalQuestions
		totalCorrect += h.CorrectCount
	}
	accuracy := 0
	if totalAnswered > 0 {
		accuracy = totalCorrect * 100 / totalAnswered
	}

	return &models.UserStats{
		TotalQuestions: totalAnswered,
		CorrectCount:   totalCorrect,
		WrongCount:     totalAnswered - totalCorrect,
		Accuracy:       accuracy,
		HistoryCount:   len(history),
		WrongBookCount: len(user.WrongQuestions),
		FavoriteCount:  len(favs.IDs),
	}, nil
}

func (s *Service) Users(ctx context.Context) ([]models.User, error) {
	return s.gateway.Users(ctx)
}

// ResetUserData wipes a user's wrong book, favorites, history and
// saved progress but keeps the account.
func (s *Service) ResetUserData(ctx context.Context, phone string) error {
	user, err := s.gateway.UserByPhone(ctx, phone)
	if err != nil {
		return errors.NewInternalError(err)
	}
	if user == nil {
		return errors.NewNotFoundError("user", phone)
	}

	if err := s.gateway.ClearWrongBook(ctx, phone); err != nil {
		return errors.NewInternalError(err)
	}
	if err := s.gateway.ClearFavorites(ctx, phone); err != nil {
		return errors.NewInternalError(err)
	}
	if err := s.gateway.ClearHistory(ctx, phone); err != nil {
		return errors.NewInternalError(err)
	}
	if err := s.gateway.ClearProgress(ctx, phone); err != nil {
		return errors.NewInternalError(err)
	}
	return nil
}

// ---- settings ----

func (s *Service) Settings(ctx context.Context) (models.Settings, error) {
	return s.gateway.Settings(ctx)
}

func (s *Service) SaveSettings(ctx context.Context, settings models.Settings) error {
	return s.gateway.SaveSettings(ctx, settings)
}
