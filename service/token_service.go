// file: service/token_service.go

package service

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
	"vh-recruit-api/logger"
	"vh-recruit-api/model"
	"vh-recruit-api/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TokenService is the refresh-token ledger. It owns the opaque secrets'
// lifecycle: issue at login, rotate on every refresh, revoke at logout.
type TokenService struct {
	repo     repository.ITokenRepository
	accounts repository.IAccountRepository
	ttl      time.Duration
	now      func() time.Time
}

func NewTokenService(repo repository.ITokenRepository, accounts repository.IAccountRepository, ttl time.Duration) *TokenService {
	return &TokenService{
		repo:     repo,
		accounts: accounts,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Issue creates a new rotation-chain head for the account and returns the
// plaintext secret exactly once; only its bcrypt hash is persisted.
func (s *TokenService) Issue(account *model.Account, meta model.ClientMeta) (string, *model.RefreshToken, error) {
	secret, hash, err := newSecret()
	if err != nil {
		return "", nil, err
	}

	entry := &model.RefreshToken{
		ID:         uuid.New(),
		AccountID:  account.ID,
		SecretHash: hash,
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
		ExpiresAt:  s.now().Add(s.ttl),
	}
	if err := s.repo.Create(entry); err != nil {
		return "", nil, err
	}

	return secret, entry, nil
}

// ValidateAndRotate exchanges a presented secret for a new one. The matched
// entry is revoked and replaced in a single transaction, so a presented
// secret wins at most once; reuse of an already-rotated secret fails
// exactly like an unknown one.
func (s *TokenService) ValidateAndRotate(presentedSecret string, meta model.ClientMeta) (string, *model.Account, error) {
	entry, err := s.findMatch(presentedSecret)
	if err != nil {
		return "", nil, err
	}
	if entry == nil {
		return "", nil, ErrInvalidRefreshToken
	}

	account, err := s.accounts.GetByID(entry.AccountID)
	if err != nil {
		// The owning account is gone; fail closed.
		logger.Log.WithError(err).WithField("account_id", entry.AccountID).
			Warn("Refresh token matched but account lookup failed")
		return "", nil, ErrInvalidRefreshToken
	}

	newPlain, newHash, err := newSecret()
	if err != nil {
		return "", nil, err
	}

	oldID := entry.ID
	replacement := &model.RefreshToken{
		ID:          uuid.New(),
		AccountID:   account.ID,
		SecretHash:  newHash,
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
		RotatedFrom: &oldID,
		ExpiresAt:   s.now().Add(s.ttl),
	}

	if err := s.repo.Rotate(entry.ID, replacement); err != nil {
		if errors.Is(err, repository.ErrEntryRevoked) {
			// A concurrent rotation of the same secret won the
			// compare-and-set. Worth flagging: this is also the
			// signature of a stolen-then-rotated token being
			// replayed.
			logger.Log.WithField("token_id", entry.ID).Warn("Concurrent or replayed refresh token rotation rejected")
			return "", nil, ErrInvalidRefreshToken
		}
		return "", nil, err
	}

	return newPlain, account, nil
}

// Revoke marks the matching entry revoked. A secret matching nothing is a
// no-op; logout must always succeed from the client's point of view.
func (s *TokenService) Revoke(presentedSecret string) error {
	entry, err := s.findMatch(presentedSecret)
	if err != nil {
		return err
	}
	if entry == nil {
		return nil
	}

	if _, err := s.repo.Revoke(entry.ID); err != nil {
		return err
	}
	return nil
}

// PurgeExpired removes ledger entries past their absolute expiry.
func (s *TokenService) PurgeExpired() (int64, error) {
	return s.repo.DeleteExpired(s.now())
}

// findMatch scans the non-revoked, unexpired entries and compares the
// presented secret against each stored hash. Secrets are stored only as
// adaptive hashes, so there is nothing to index on; the scan is bounded by
// the number of live sessions and is the accepted cost at current scale.
func (s *TokenService) findMatch(presentedSecret string) (*model.RefreshToken, error) {
	if presentedSecret == "" {
		return nil, nil
	}

	now := s.now()
	candidates, err := s.repo.ListActive(now)
	if err != nil {
		return nil, err
	}

	for _, entry := range candidates {
		if entry.Expired(now) {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(entry.SecretHash), []byte(presentedSecret)) == nil {
			return entry, nil
		}
	}
	return nil, nil
}

// newSecret draws 32 random bytes and returns the hex plaintext together
// with its bcrypt hash.
func newSecret() (string, string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("failed to generate refresh secret: %w", err)
	}
	plain := hex.EncodeToString(raw)

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("failed to hash refresh secret: %w", err)
	}
	return plain, string(hash), nil
}
