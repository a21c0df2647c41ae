package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is the privilege tag carried by every account. Privileged accounts
// (recruiters with admin access) must pass an OTP step-up before a session
// is started; standard accounts log in with password only.
type Role string

const (
	RoleStandard   Role = "standard"
	RolePrivileged Role = "privileged"
)

type Account struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// RequiresStepUp reports whether login must be suspended until an OTP is
// verified.
func (a *Account) RequiresStepUp() bool {
	return a.Role == RolePrivileged
}
