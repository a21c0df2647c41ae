// file: repository/token_repository.go

package repository

import (
	"database/sql"
	"errors"
	"time"
	"vh-recruit-api/logger"
	"vh-recruit-api/model"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrEntryRevoked is returned by Rotate when the entry to replace was
// already revoked or rotated by a concurrent request. The first writer
// wins; everyone else sees this.
var ErrEntryRevoked = errors.New("refresh token entry already revoked")

// ITokenRepository defines the contract for refresh-token ledger storage.
type ITokenRepository interface {
	Create(token *model.RefreshToken) error
	ListActive(now time.Time) ([]*model.RefreshToken, error)
	Revoke(id uuid.UUID) (bool, error)
	Rotate(oldID uuid.UUID, replacement *model.RefreshToken) error
	DeleteExpired(now time.Time) (int64, error)
}

type TokenRepository struct {
	DB *sql.DB
}

func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{DB: db}
}

const insertTokenQuery = `INSERT INTO refresh_tokens (id, account_id, secret_hash, ip_address, user_agent, rotated_from, expires_at) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`

// Create inserts a new ledger entry.
func (r *TokenRepository) Create(token *model.RefreshToken) error {
	log := logger.Log.WithFields(logrus.Fields{
		"account_id": token.AccountID,
		"expires_at": token.ExpiresAt,
	})

	err := r.DB.QueryRow(insertTokenQuery,
		token.ID, token.AccountID, token.SecretHash, token.IPAddress, token.UserAgent, token.RotatedFrom, token.ExpiresAt).
		Scan(&token.CreatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to execute create refresh token query")
		return err
	}
	return nil
}

// ListActive returns every non-revoked, unexpired entry. Secrets are stored
// only as bcrypt hashes, so the caller has to compare the presented secret
// against each candidate; this scan is the ledger's known scaling ceiling.
func (r *TokenRepository) ListActive(now time.Time) ([]*model.RefreshToken, error) {
	query := `
		SELECT id, account_id, secret_hash, ip_address, user_agent, revoked, rotated_from, expires_at, created_at
		FROM refresh_tokens
		WHERE revoked = false AND expires_at > $1`

	rows, err := r.DB.Query(query, now)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to execute list active refresh tokens query")
		return nil, err
	}
	defer rows.Close()

	var tokens []*model.RefreshToken
	for rows.Next() {
		var t model.RefreshToken
		var rotatedFrom uuid.NullUUID
		if err := rows.Scan(&t.ID, &t.AccountID, &t.SecretHash, &t.IPAddress, &t.UserAgent, &t.Revoked, &rotatedFrom, &t.ExpiresAt, &t.CreatedAt); err != nil {
			logger.Log.WithError(err).Error("Failed to scan refresh token row")
			return nil, err
		}
		if rotatedFrom.Valid {
			t.RotatedFrom = &rotatedFrom.UUID
		}
		tokens = append(tokens, &t)
	}

	return tokens, rows.Err()
}

// Revoke sets the revoked flag with a compare-and-set. A revoked entry can
// never be un-revoked, so revoked=false in the predicate is enough to make
// the first writer win. Returns false when nothing was updated.
func (r *TokenRepository) Revoke(id uuid.UUID) (bool, error) {
	query := `UPDATE refresh_tokens SET revoked = true WHERE id = $1 AND revoked = false`
	result, err := r.DB.Exec(query, id)
	if err != nil {
		logger.Log.WithError(err).WithField("token_id", id).Error("Failed to revoke refresh token")
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// Rotate revokes the old entry and inserts its replacement as one
// transaction. The revoke runs first and is a compare-and-set, so two
// concurrent rotations of the same secret produce exactly one new entry,
// and a crash mid-transaction can only lose the session, never duplicate
// it.
func (r *TokenRepository) Rotate(oldID uuid.UUID, replacement *model.RefreshToken) error {
	log := logger.Log.WithFields(logrus.Fields{
		"old_token_id": oldID,
		"account_id":   replacement.AccountID,
	})

	tx, err := r.DB.Begin()
	if err != nil {
		log.WithError(err).Error("Failed to begin rotation transaction")
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(`UPDATE refresh_tokens SET revoked = true WHERE id = $1 AND revoked = false`, oldID)
	if err != nil {
		log.WithError(err).Error("Failed to revoke old refresh token during rotation")
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected != 1 {
		return ErrEntryRevoked
	}

	err = tx.QueryRow(insertTokenQuery,
		replacement.ID, replacement.AccountID, replacement.SecretHash, replacement.IPAddress,
		replacement.UserAgent, replacement.RotatedFrom, replacement.ExpiresAt).
		Scan(&replacement.CreatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to insert replacement refresh token during rotation")
		return err
	}

	return tx.Commit()
}

// DeleteExpired removes entries past their absolute expiry. They are
// already invalid; this is storage cleanup only.
func (r *TokenRepository) DeleteExpired(now time.Time) (int64, error) {
	result, err := r.DB.Exec(`DELETE FROM refresh_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to delete expired refresh tokens")
		return 0, err
	}
	return result.RowsAffected()
}
