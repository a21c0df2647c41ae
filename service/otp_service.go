// file: service/otp_service.go

package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"time"
	"vh-recruit-api/logger"
	"vh-recruit-api/model"
	"vh-recruit-api/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Notifier delivers a one-time code to the account's own contact channel.
// Email/SMS mechanics live behind this interface and outside this service.
type Notifier interface {
	SendOTP(ctx context.Context, account *model.Account, code string) error
}

// sendTimeout bounds how long a login request waits on the notification
// channel before reporting the issuance as failed.
const sendTimeout = 5 * time.Second

// OTPService issues and verifies step-up challenges for privileged logins.
// Codes are stored bcrypt-hashed, never in plaintext.
type OTPService struct {
	repo     repository.IOTPRepository
	notifier Notifier
	window   time.Duration
	now      func() time.Time
}

func NewOTPService(repo repository.IOTPRepository, notifier Notifier, window time.Duration) *OTPService {
	return &OTPService{
		repo:     repo,
		notifier: notifier,
		window:   window,
		now:      time.Now,
	}
}

// Issue generates a fresh 6-digit code, consumes every prior unconsumed
// challenge for the account, records the new challenge durably and only
// then attempts delivery. A delivery failure (or a stalled notifier) is
// surfaced as ErrOTPDelivery so the caller can tell the user to retry from
// the top; re-issuing is always safe because the newest challenge wins.
func (s *OTPService) Issue(ctx context.Context, account *model.Account) error {
	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("failed to generate OTP code: %w", err)
	}

	if err := s.repo.ConsumeAllForAccount(account.ID); err != nil {
		return err
	}

	codeHash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash OTP code: %w", err)
	}

	challenge := &model.OTPChallenge{
		ID:        uuid.New(),
		AccountID: account.ID,
		CodeHash:  string(codeHash),
		ExpiresAt: s.now().Add(s.window),
	}
	if err := s.repo.Create(challenge); err != nil {
		return err
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	sendErr := make(chan error, 1)
	go func() {
		sendErr <- s.notifier.SendOTP(sendCtx, account, code)
	}()

	select {
	case err := <-sendErr:
		if err != nil {
			logger.Log.WithError(err).WithField("account_id", account.ID).Error("OTP delivery failed")
			return fmt.Errorf("%w: %v", ErrOTPDelivery, err)
		}
	case <-sendCtx.Done():
		logger.Log.WithField("account_id", account.ID).Error("OTP delivery timed out")
		return fmt.Errorf("%w: %v", ErrOTPDelivery, sendCtx.Err())
	}

	return nil
}

// Verify checks the submitted code against the newest live challenge and
// consumes it on success. Missing, expired, mismatched and replayed codes
// all collapse into ErrInvalidOTP.
func (s *OTPService) Verify(ctx context.Context, account *model.Account, submittedCode string) error {
	challenge, err := s.repo.GetLatestActive(account.ID, s.now())
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Log.WithError(err).WithField("account_id", account.ID).Error("Failed to look up OTP challenge")
		}
		return ErrInvalidOTP
	}

	if bcrypt.CompareHashAndPassword([]byte(challenge.CodeHash), []byte(submittedCode)) != nil {
		return ErrInvalidOTP
	}

	consumed, err := s.repo.Consume(challenge.ID)
	if err != nil {
		return err
	}
	if !consumed {
		// Lost the race against another verification of the same code.
		return ErrInvalidOTP
	}

	return nil
}

// generateCode draws a uniformly random 6-digit code from crypto/rand.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
