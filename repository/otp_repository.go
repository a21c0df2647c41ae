// file: repository/otp_repository.go

package repository

import (
	"database/sql"
	"time"
	"vh-recruit-api/logger"
	"vh-recruit-api/model"

	"github.com/google/uuid"
)

// IOTPRepository defines the contract for step-up challenge storage.
type IOTPRepository interface {
	Create(challenge *model.OTPChallenge) error
	ConsumeAllForAccount(accountID uuid.UUID) error
	GetLatestActive(accountID uuid.UUID, now time.Time) (*model.OTPChallenge, error)
	Consume(id uuid.UUID) (bool, error)
}

type OTPRepository struct {
	DB *sql.DB
}

func NewOTPRepository(db *sql.DB) *OTPRepository {
	return &OTPRepository{DB: db}
}

func (r *OTPRepository) Create(challenge *model.OTPChallenge) error {
	query := `INSERT INTO otp_challenges (id, account_id, code_hash, expires_at) VALUES ($1, $2, $3, $4) RETURNING created_at`
	err := r.DB.QueryRow(query, challenge.ID, challenge.AccountID, challenge.CodeHash, challenge.ExpiresAt).
		Scan(&challenge.CreatedAt)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to execute create OTP challenge query")
		return err
	}
	return nil
}

// ConsumeAllForAccount marks every unconsumed challenge for the account as
// consumed, keeping the one-live-challenge invariant when a new code is
// issued.
func (r *OTPRepository) ConsumeAllForAccount(accountID uuid.UUID) error {
	query := `UPDATE otp_challenges SET consumed = true WHERE account_id = $1 AND consumed = false`
	_, err := r.DB.Exec(query, accountID)
	if err != nil {
		logger.Log.WithError(err).WithField("account_id", accountID).
			Error("Failed to consume prior OTP challenges")
	}
	return err
}

// GetLatestActive returns the newest unconsumed, unexpired challenge for
// the account, or sql.ErrNoRows.
func (r *OTPRepository) GetLatestActive(accountID uuid.UUID, now time.Time) (*model.OTPChallenge, error) {
	challenge := &model.OTPChallenge{}
	query := `
		SELECT id, account_id, code_hash, consumed, expires_at, created_at
		FROM otp_challenges
		WHERE account_id = $1 AND consumed = false AND expires_at > $2
		ORDER BY created_at DESC
		LIMIT 1`
	err := r.DB.QueryRow(query, accountID, now).
		Scan(&challenge.ID, &challenge.AccountID, &challenge.CodeHash, &challenge.Consumed, &challenge.ExpiresAt, &challenge.CreatedAt)
	if err != nil {
		return nil, err
	}
	return challenge, nil
}

// Consume flips the consumed flag with a compare-and-set so a replayed code
// races to exactly one winner. Returns false when the challenge was already
// consumed.
func (r *OTPRepository) Consume(id uuid.UUID) (bool, error) {
	query := `UPDATE otp_challenges SET consumed = true WHERE id = $1 AND consumed = false`
	result, err := r.DB.Exec(query, id)
	if err != nil {
		logger.Log.WithError(err).WithField("challenge_id", id).Error("Failed to consume OTP challenge")
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}
