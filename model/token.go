// file: model/token.go

package model

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is one ledger entry. Only the bcrypt hash of the opaque
// secret is stored; the plaintext exists transiently in the Set-Cookie
// header of the response that issued it.
//
// RotatedFrom links each entry to the one it replaced, so a rotation chain
// is a singly-linked list ending at the entry created at login.
type RefreshToken struct {
	ID          uuid.UUID  `json:"id"`
	AccountID   uuid.UUID  `json:"account_id"`
	SecretHash  string     `json:"-"`
	IPAddress   string     `json:"ip_address"`
	UserAgent   string     `json:"user_agent"`
	Revoked     bool       `json:"revoked"`
	RotatedFrom *uuid.UUID `json:"rotated_from,omitempty"`
	ExpiresAt   time.Time  `json:"expires_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Expired reports whether the entry is past its absolute expiry. An expired
// entry is invalid even when Revoked is still false.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// ClientMeta is the issuing client's audit metadata recorded on every
// ledger entry.
type ClientMeta struct {
	IPAddress string
	UserAgent string
}
