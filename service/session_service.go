// file: service/session_service.go

package service

import (
	"context"
	"database/sql"
	"vh-recruit-api/logger"
	"vh-recruit-api/model"
	"vh-recruit-api/repository"

	"github.com/google/uuid"
)

// StepUpIssuer is the OTP collaborator as seen by the orchestrator.
type StepUpIssuer interface {
	Issue(ctx context.Context, account *model.Account) error
	Verify(ctx context.Context, account *model.Account, submittedCode string) error
}

// RefreshLedger is the refresh-token ledger as seen by the orchestrator.
type RefreshLedger interface {
	Issue(account *model.Account, meta model.ClientMeta) (string, *model.RefreshToken, error)
	ValidateAndRotate(presentedSecret string, meta model.ClientMeta) (string, *model.Account, error)
	Revoke(presentedSecret string) error
}

// AccessTokenSigner mints the short-lived bearer credential.
type AccessTokenSigner interface {
	GenerateAccessToken(account *model.Account) (string, error)
}

// LoginGate rate-limits credential guessing per email.
type LoginGate interface {
	Allow(ctx context.Context, email string) (bool, error)
	RecordFailure(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}

// PasswordHasher covers the credential hashing the orchestrator needs for
// verification and provisioning.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	CheckPasswordHash(password, hash string) bool
}

// LoginResult is the outcome of a successful login step. Either
// RequiresOTP is set and nothing else, or the session started and the
// token fields are populated.
type LoginResult struct {
	RequiresOTP   bool
	AccessToken   string
	RefreshSecret string
	Account       *model.Account
}

// SessionService sequences the authentication state machine:
// credentials → optional OTP step-up → token issuance → refresh → logout.
// It holds no state of its own; everything lives in the stores.
type SessionService struct {
	accounts repository.IAccountRepository
	hasher   PasswordHasher
	signer   AccessTokenSigner
	otp      StepUpIssuer
	ledger   RefreshLedger
	gate     LoginGate
}

func NewSessionService(
	accounts repository.IAccountRepository,
	hasher PasswordHasher,
	signer AccessTokenSigner,
	otp StepUpIssuer,
	ledger RefreshLedger,
	gate LoginGate,
) *SessionService {
	return &SessionService{
		accounts: accounts,
		hasher:   hasher,
		signer:   signer,
		otp:      otp,
		ledger:   ledger,
		gate:     gate,
	}
}

// Login verifies credentials and either starts a session (standard
// accounts) or suspends token issuance behind an OTP challenge (privileged
// accounts). Unknown email and wrong password are indistinguishable to the
// caller.
func (s *SessionService) Login(ctx context.Context, email, password string, meta model.ClientMeta) (*LoginResult, error) {
	allowed, err := s.gate.Allow(ctx, email)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrTooManyAttempts
	}

	account, err := s.accounts.GetByEmail(email)
	if err != nil {
		if err == sql.ErrNoRows {
			s.gate.RecordFailure(ctx, email)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.hasher.CheckPasswordHash(password, account.PasswordHash) {
		s.gate.RecordFailure(ctx, email)
		return nil, ErrInvalidCredentials
	}

	s.gate.Reset(ctx, email)

	if account.RequiresStepUp() {
		if err := s.otp.Issue(ctx, account); err != nil {
			return nil, err
		}
		return &LoginResult{RequiresOTP: true}, nil
	}

	return s.startSession(account, meta)
}

// VerifyOTP completes a privileged login. Every failure shape maps to the
// same generic error.
func (s *SessionService) VerifyOTP(ctx context.Context, email, code string, meta model.ClientMeta) (*LoginResult, error) {
	account, err := s.accounts.GetByEmail(email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrInvalidOTP
		}
		return nil, err
	}

	if err := s.otp.Verify(ctx, account, code); err != nil {
		return nil, err
	}

	return s.startSession(account, meta)
}

// Refresh rotates the presented secret and mints a fresh access token.
func (s *SessionService) Refresh(ctx context.Context, presentedSecret string, meta model.ClientMeta) (*LoginResult, error) {
	newSecret, account, err := s.ledger.ValidateAndRotate(presentedSecret, meta)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.signer.GenerateAccessToken(account)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:   accessToken,
		RefreshSecret: newSecret,
		Account:       account,
	}, nil
}

// Logout revokes the presented secret best-effort. It never fails from the
// client's perspective.
func (s *SessionService) Logout(ctx context.Context, presentedSecret string) {
	if presentedSecret == "" {
		return
	}
	if err := s.ledger.Revoke(presentedSecret); err != nil {
		logger.Log.WithError(err).Warn("Best-effort refresh token revocation failed during logout")
	}
}

// ProvisionAccount creates a new account with a hashed password. Used by
// the administrative provisioning endpoint only.
func (s *SessionService) ProvisionAccount(req model.ProvisionAccountRequest) (*model.Account, error) {
	if _, err := s.accounts.GetByEmail(req.Email); err == nil {
		return nil, ErrEmailTaken
	} else if err != sql.ErrNoRows {
		return nil, err
	}

	hash, err := s.hasher.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	account := &model.Account{
		ID:           uuid.New(),
		Email:        req.Email,
		Name:         req.Name,
		Role:         req.Role,
		PasswordHash: hash,
	}
	if err := s.accounts.Create(account); err != nil {
		return nil, err
	}
	return account, nil
}

// GetAccount fetches a fresh account record by id, for callers that hold
// only token claims.
func (s *SessionService) GetAccount(id uuid.UUID) (*model.Account, error) {
	return s.accounts.GetByID(id)
}

func (s *SessionService) startSession(account *model.Account, meta model.ClientMeta) (*LoginResult, error) {
	accessToken, err := s.signer.GenerateAccessToken(account)
	if err != nil {
		return nil, err
	}

	refreshSecret, _, err := s.ledger.Issue(account, meta)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:   accessToken,
		RefreshSecret: refreshSecret,
		Account:       account,
	}, nil
}
