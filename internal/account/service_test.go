package account_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/shuizhiqing/examtrainer/internal/account"
	appErrors "github.com/shuizhiqing/examtrainer/internal/errors"
	"github.com/shuizhiqing/examtrainer/internal/models"
	"github.com/shuizhiqing/examtrainer/internal/storage"
	"github.com/shuizhiqing/examtrainer/internal/testutil"
)

const testPhone = "13812345678"

type AccountSuite struct {
	suite.Suite
	store   *storage.SQLiteStore
	gateway *storage.Gateway
	service *account.Service
}

func (s *AccountSuite) SetupTest() {
	testutil.QuietLogs(s.T())
	s.store = testutil.NewTestStore(s.T())
	s.gateway = storage.NewGateway(s.store, nil, nil)
	s.service = account.NewService(s.gateway)
}

func (s *AccountSuite) TearDownTest() {
	testutil.MustClose(s.T(), s.store)
}

func (s *AccountSuite) TestLoginWithSpecialCode() {
	ctx := context.Background()

	user, first, err := s.service.Login(ctx, "张三", testPhone, account.SpecialCode)
	s.Require().NoError(err)
	s.True(first)
	s.Equal("张三", user.Name)
	s.Require().NotNil(user.ActivatedUntil)

	current, err := s.service.CurrentUser(ctx)
	s.Require().NoError(err)
	s.Require().NotNil(current)
	s.Equal(testPhone, current.Phone)

	// Second login with a new name updates the record.
	user, first, err = s.service.Login(ctx, "李四", testPhone, account.SpecialCode)
	s.Require().NoError(err)
	s.False(first)
	s.Equal("李四", user.Name)
}

func (s *AccountSuite) TestLoginRejectsBadPhone() {
	_, _, err := s.service.Login(context.Background(), "张三", "12345", account.SpecialCode)
	s.Require().Error(err)
	s.True(appErrors.IsCode(err, appErrors.ErrCodeValidation))
}

func (s *AccountSuite) TestLoginRejectsUnknownCode() {
	_, _, err := s.service.Login(context.Background(), "张三", testPhone, "XXXXX")
	s.Require().Error(err)
	s.True(appErrors.IsCode(err, appErrors.ErrCodeUnauthorized))
}

func (s *AccountSuite) TestTrialLoginIsEphemeral() {
	user := s.service.TrialLogin(context.Background())
	s.True(models.IsTrialIdentity(user.Phone))
	s.Equal("试用用户", user.Name)

	// No durable account is created.
	stored, err := s.gateway.UserByPhone(context.Background(), user.Phone)
	s.Require().NoError(err)
	s.Nil(stored)
}

func (s *AccountSuite) TestGenerateCodesShapeAndUniqueness() {
	ctx := context.Background()
	codes, err := s.service.GenerateCodes(ctx, 20, 30, 1)
	s.Require().NoError(err)
	s.Require().Len(codes, 20)

	seen := map[string]bool{}
	for _, c := range codes {
		s.Regexp(`^[A-Z]{5}$`, c.Code)
		s.False(seen[c.Code], "duplicate code %s", c.Code)
		seen[c.Code] = true
		s.Equal("unused", c.Status)
		s.Equal(30, c.ValidityDays)
	}

	stored, err := s.service.Codes(ctx)
	s.Require().NoError(err)
	s.Len(stored, 20)
}

func (s *AccountSuite) TestCodeMaxUsesEnforced() {
	ctx := context.Background()
	codes, err := s.service.GenerateCodes(ctx, 1, 30, 2)
	s.Require().NoError(err)
	code := codes[0].Code

	s.Require().NoError(s.service.UseCode(ctx, code, "13800000001"))
	s.Require().NoError(s.service.UseCode(ctx, code, "13800000002"))

	err = s.service.UseCode(ctx, code, "13800000003")
	s.Require().Error(err)
	s.True(appErrors.IsCode(err, appErrors.ErrCodeUnauthorized))

	stored, err := s.service.Codes(ctx)
	s.Require().NoError(err)
	s.Equal("used", stored[0].Status)
	s.Equal(2, stored[0].UsedCount)
	s.Len(stored[0].UsedBy, 2)
}

func (s *AccountSuite) TestUnlimitedCodeNeverExhausts() {
	ctx := context.Background()
	codes, err := s.service.GenerateCodes(ctx, 1, 30, 0)
	s.Require().NoError(err)

	for i := 0; i < 5; i++ {
		s.Require().NoError(s.service.UseCode(ctx, codes[0].Code, testPhone))
	}
	stored, err := s.service.Codes(ctx)
	s.Require().NoError(err)
	s.Equal("unused", stored[0].Status)
	s.Equal(5, stored[0].UsedCount)
}

func (s *AccountSuite) TestExpiredCodeRejected() {
	ctx := context.Background()
	expired := models.ActivationCode{
		Code:         "AAAAA",
		ValidityDays: 1,
		MaxUses:      1,
		Status:       "unused",
		CreatedAt:    time.Now().AddDate(0, 0, -10),
		ExpiresAt:    time.Now().AddDate(0, 0, -9),
	}
	s.Require().NoError(s.gateway.SaveActivationCodes(ctx, []models.ActivationCode{expired}))

	_, err := s.service.ValidateCode(ctx, "AAAAA")
	s.Require().Error(err)
	s.True(appErrors.IsCode(err, appErrors.ErrCodeUnauthorized))
}

func (s *AccountSuite) TestSpecialCodeAlwaysValidNeverConsumed() {
	ctx := context.Background()

	code, err := s.service.ValidateCode(ctx, account.SpecialCode)
	s.Require().NoError(err)
	s.True(code.IsSpecial)
	s.Zero(code.MaxUses)

	s.Require().NoError(s.service.UseCode(ctx, account.SpecialCode, testPhone))
	stored, err := s.service.Codes(ctx)
	s.Require().NoError(err)
	s.Empty(stored)
}

func (s *AccountSuite) TestAdminLogin() {
	ctx := context.Background()
	s.Require().NoError(s.service.AdminLogin(ctx, storage.DefaultSettings().AdminPassword))

	err := s.service.AdminLogin(ctx, "wrong")
	s.Require().Error(err)
	s.True(appErrors.IsCode(err, appErrors.ErrCodeUnauthorized))
}

func (s *AccountSuite) TestUserStats() {
	ctx := context.Background()
	_, _, err := s.service.Login(ctx, "张三", testPhone, account.SpecialCode)
	s.Require().NoError(err)

	s.Require().NoError(s.gateway.AppendHistory(ctx, testPhone, models.Result{
		ID: "r1", TotalQuestions: 10, CorrectCount: 7,
	}))
	s.Require().NoError(s.gateway.AppendHistory(ctx, testPhone, models.Result{
		ID: "r2", TotalQuestions: 20, CorrectCount: 11,
	}))
	s.Require().NoError(s.gateway.AddFavorite(ctx, testPhone, models.Question{ID: 1, Text: "题"}))
	s.Require().NoError(s.gateway.AddWrongQuestion(ctx, testPhone, models.Question{ID: 2, Text: "题"}))

	stats, err := s.service.UserStats(ctx, testPhone)
	s.Require().NoError(err)
	s.Equal(30, stats.TotalQuestions)
	s.Equal(18, stats.CorrectCount)
	s.Equal(12, stats.WrongCount)
	s.Equal(60, stats.Accuracy)
	s.Equal(2, stats.HistoryCount)
	s.Equal(1, stats.WrongBookCount)
	s.Equal(1, stats.FavoriteCount)
}

func (s *AccountSuite) TestResetUserData() {
	ctx := context.Background()
	_, _, err := s.service.Login(ctx, "张三", testPhone, account.SpecialCode)
	s.Require().NoError(err)
	s.Require().NoError(s.gateway.AppendHistory(ctx, testPhone, models.Result{ID: "r1", TotalQuestions: 10}))
	s.Require().NoError(s.gateway.AddFavorite(ctx, testPhone, models.Question{ID: 1, Text: "题"}))

	s.Require().NoError(s.service.ResetUserData(ctx, testPhone))

	stats, err := s.service.UserStats(ctx, testPhone)
	s.Require().NoError(err)
	s.Zero(stats.HistoryCount)
	s.Zero(stats.FavoriteCount)

	// The account itself survives.
	user, err := s.gateway.UserByPhone(ctx, testPhone)
	s.Require().NoError(err)
	s.NotNil(user)
}

func TestAccountSuite(t *testing.T) {
	suite.Run(t, new(AccountSuite))
}
