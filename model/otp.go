// file: model/otp.go

package model

import (
	"time"

	"github.com/google/uuid"
)

// OTPChallenge is a single-use step-up code for a privileged login. The
// code is stored hashed, like refresh secrets. At most one unconsumed,
// unexpired challenge exists per account: issuing a new one consumes all
// earlier ones first.
type OTPChallenge struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	CodeHash  string    `json:"-"`
	Consumed  bool      `json:"consumed"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *OTPChallenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
