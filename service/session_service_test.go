// file: service/session_service_test.go

package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"vh-recruit-api/config"
	"vh-recruit-api/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

type mockStepUp struct{ mock.Mock }

func (m *mockStepUp) Issue(ctx context.Context, account *model.Account) error {
	args := m.Called(account)
	return args.Error(0)
}
func (m *mockStepUp) Verify(ctx context.Context, account *model.Account, submittedCode string) error {
	args := m.Called(account, submittedCode)
	return args.Error(0)
}

type mockLedger struct{ mock.Mock }

func (m *mockLedger) Issue(account *model.Account, meta model.ClientMeta) (string, *model.RefreshToken, error) {
	args := m.Called(account, meta)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*model.RefreshToken), args.Error(2)
}
func (m *mockLedger) ValidateAndRotate(presentedSecret string, meta model.ClientMeta) (string, *model.Account, error) {
	args := m.Called(presentedSecret, meta)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*model.Account), args.Error(2)
}
func (m *mockLedger) Revoke(presentedSecret string) error {
	args := m.Called(presentedSecret)
	return args.Error(0)
}

type mockGate struct{ mock.Mock }

func (m *mockGate) Allow(ctx context.Context, email string) (bool, error) {
	args := m.Called(email)
	return args.Bool(0), args.Error(1)
}
func (m *mockGate) RecordFailure(ctx context.Context, email string) error {
	args := m.Called(email)
	return args.Error(0)
}
func (m *mockGate) Reset(ctx context.Context, email string) error {
	args := m.Called(email)
	return args.Error(0)
}

type sessionFixture struct {
	accounts *mockAccountRepo
	otp      *mockStepUp
	ledger   *mockLedger
	gate     *mockGate
	svc      *SessionService
}

func newSessionFixture() *sessionFixture {
	config.AppConfig.JWT.SecretKey = "unit-test-secret"

	f := &sessionFixture{
		accounts: new(mockAccountRepo),
		otp:      new(mockStepUp),
		ledger:   new(mockLedger),
		gate:     new(mockGate),
	}
	auth := NewAuthService()
	f.svc = NewSessionService(f.accounts, auth, auth, f.otp, f.ledger, f.gate)
	return f
}

func accountWithPassword(role model.Role, password string) *model.Account {
	account := testAccount(role)
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	account.PasswordHash = string(hash)
	return account
}

func TestSessionService_Login_Standard(t *testing.T) {
	f := newSessionFixture()
	account := accountWithPassword(model.RoleStandard, "correct")

	f.gate.On("Allow", account.Email).Return(true, nil).Once()
	f.accounts.On("GetByEmail", account.Email).Return(account, nil).Once()
	f.gate.On("Reset", account.Email).Return(nil).Once()
	f.ledger.On("Issue", account, testMeta).Return("opaque-secret", &model.RefreshToken{}, nil).Once()

	result, err := f.svc.Login(context.Background(), account.Email, "correct", testMeta)
	assert.NoError(t, err)
	assert.False(t, result.RequiresOTP)
	assert.NotEmpty(t, result.AccessToken)
	assert.Equal(t, "opaque-secret", result.RefreshSecret)
	assert.Equal(t, account, result.Account)

	f.ledger.AssertNumberOfCalls(t, "Issue", 1)
	f.otp.AssertNotCalled(t, "Issue", mock.Anything)
	f.gate.AssertExpectations(t)
}

func TestSessionService_Login_BadCredentials(t *testing.T) {
	f := newSessionFixture()
	account := accountWithPassword(model.RoleStandard, "correct")

	t.Run("wrong password", func(t *testing.T) {
		f.gate.On("Allow", account.Email).Return(true, nil).Once()
		f.accounts.On("GetByEmail", account.Email).Return(account, nil).Once()
		f.gate.On("RecordFailure", account.Email).Return(nil).Once()

		_, err := f.svc.Login(context.Background(), account.Email, "wrong", testMeta)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email yields the identical error", func(t *testing.T) {
		f.gate.On("Allow", "ghost@example.com").Return(true, nil).Once()
		f.accounts.On("GetByEmail", "ghost@example.com").Return(nil, sql.ErrNoRows).Once()
		f.gate.On("RecordFailure", "ghost@example.com").Return(nil).Once()

		_, err := f.svc.Login(context.Background(), "ghost@example.com", "whatever", testMeta)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	f.ledger.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything)
}

func TestSessionService_Login_Throttled(t *testing.T) {
	f := newSessionFixture()

	f.gate.On("Allow", "target@example.com").Return(false, nil).Once()

	_, err := f.svc.Login(context.Background(), "target@example.com", "pw", testMeta)
	assert.ErrorIs(t, err, ErrTooManyAttempts)
	f.accounts.AssertNotCalled(t, "GetByEmail", mock.Anything)
}

func TestSessionService_Login_PrivilegedRequiresOTP(t *testing.T) {
	f := newSessionFixture()
	account := accountWithPassword(model.RolePrivileged, "correct")

	f.gate.On("Allow", account.Email).Return(true, nil).Once()
	f.accounts.On("GetByEmail", account.Email).Return(account, nil).Once()
	f.gate.On("Reset", account.Email).Return(nil).Once()
	f.otp.On("Issue", account).Return(nil).Once()

	result, err := f.svc.Login(context.Background(), account.Email, "correct", testMeta)
	assert.NoError(t, err)
	assert.True(t, result.RequiresOTP)

	// No token of any kind before the step-up is verified.
	assert.Empty(t, result.AccessToken)
	assert.Empty(t, result.RefreshSecret)
	f.ledger.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything)
}

func TestSessionService_Login_OTPDeliveryFailure(t *testing.T) {
	f := newSessionFixture()
	account := accountWithPassword(model.RolePrivileged, "correct")

	f.gate.On("Allow", account.Email).Return(true, nil).Once()
	f.accounts.On("GetByEmail", account.Email).Return(account, nil).Once()
	f.gate.On("Reset", account.Email).Return(nil).Once()
	f.otp.On("Issue", account).Return(ErrOTPDelivery).Once()

	_, err := f.svc.Login(context.Background(), account.Email, "correct", testMeta)
	assert.ErrorIs(t, err, ErrOTPDelivery)
	f.ledger.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything)
}

func TestSessionService_VerifyOTP(t *testing.T) {
	f := newSessionFixture()
	account := accountWithPassword(model.RolePrivileged, "correct")

	t.Run("correct code starts the session", func(t *testing.T) {
		f.accounts.On("GetByEmail", account.Email).Return(account, nil).Once()
		f.otp.On("Verify", account, "123456").Return(nil).Once()
		f.ledger.On("Issue", account, testMeta).Return("opaque-secret", &model.RefreshToken{}, nil).Once()

		result, err := f.svc.VerifyOTP(context.Background(), account.Email, "123456", testMeta)
		assert.NoError(t, err)
		assert.NotEmpty(t, result.AccessToken)
		assert.Equal(t, "opaque-secret", result.RefreshSecret)
	})

	t.Run("wrong code is generic", func(t *testing.T) {
		f.accounts.On("GetByEmail", account.Email).Return(account, nil).Once()
		f.otp.On("Verify", account, "999999").Return(ErrInvalidOTP).Once()

		_, err := f.svc.VerifyOTP(context.Background(), account.Email, "999999", testMeta)
		assert.ErrorIs(t, err, ErrInvalidOTP)
	})

	t.Run("unknown email is indistinguishable from a bad code", func(t *testing.T) {
		f.accounts.On("GetByEmail", "ghost@example.com").Return(nil, sql.ErrNoRows).Once()

		_, err := f.svc.VerifyOTP(context.Background(), "ghost@example.com", "123456", testMeta)
		assert.ErrorIs(t, err, ErrInvalidOTP)
	})
}

func TestSessionService_Refresh(t *testing.T) {
	f := newSessionFixture()
	account := testAccount(model.RoleStandard)

	t.Run("valid secret rotates and mints a token", func(t *testing.T) {
		f.ledger.On("ValidateAndRotate", "old-secret", testMeta).Return("new-secret", account, nil).Once()

		result, err := f.svc.Refresh(context.Background(), "old-secret", testMeta)
		assert.NoError(t, err)
		assert.NotEmpty(t, result.AccessToken)
		assert.Equal(t, "new-secret", result.RefreshSecret)
		assert.Equal(t, account, result.Account)
	})

	t.Run("invalid secret propagates the generic error", func(t *testing.T) {
		f.ledger.On("ValidateAndRotate", "stale-secret", testMeta).Return("", nil, ErrInvalidRefreshToken).Once()

		_, err := f.svc.Refresh(context.Background(), "stale-secret", testMeta)
		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	})
}

func TestSessionService_Logout(t *testing.T) {
	t.Run("revokes the presented secret", func(t *testing.T) {
		f := newSessionFixture()
		f.ledger.On("Revoke", "some-secret").Return(nil).Once()

		f.svc.Logout(context.Background(), "some-secret")
		f.ledger.AssertExpectations(t)
	})

	t.Run("swallows internal errors", func(t *testing.T) {
		f := newSessionFixture()
		f.ledger.On("Revoke", "some-secret").Return(errors.New("db down")).Once()

		assert.NotPanics(t, func() { f.svc.Logout(context.Background(), "some-secret") })
	})

	t.Run("empty secret never touches the ledger", func(t *testing.T) {
		f := newSessionFixture()

		f.svc.Logout(context.Background(), "")
		f.ledger.AssertNotCalled(t, "Revoke", mock.Anything)
	})
}

func TestSessionService_ProvisionAccount(t *testing.T) {
	req := model.ProvisionAccountRequest{
		Email:    "new@example.com",
		Name:     "New Recruiter",
		Password: "longenoughpw",
		Role:     model.RolePrivileged,
	}

	t.Run("creates the account with a hashed password", func(t *testing.T) {
		f := newSessionFixture()
		f.accounts.On("GetByEmail", req.Email).Return(nil, sql.ErrNoRows).Once()
		f.accounts.On("Create", mock.MatchedBy(func(a *model.Account) bool {
			return a.Email == req.Email && a.Role == model.RolePrivileged && a.PasswordHash != req.Password
		})).Return(nil).Once()

		account, err := f.svc.ProvisionAccount(req)
		assert.NoError(t, err)
		assert.NotEqual(t, req.Password, account.PasswordHash)
		f.accounts.AssertExpectations(t)
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		f := newSessionFixture()
		f.accounts.On("GetByEmail", req.Email).Return(testAccount(model.RoleStandard), nil).Once()

		_, err := f.svc.ProvisionAccount(req)
		assert.ErrorIs(t, err, ErrEmailTaken)
		f.accounts.AssertNotCalled(t, "Create", mock.Anything)
	})
}
