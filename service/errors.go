// file: service/errors.go

package service

import "errors"

// Authentication failures are deliberately coarse. Wrong password and
// unknown email share one error, as do every shape of bad OTP and every
// shape of bad refresh secret, so responses leak nothing about which part
// failed.
var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidOTP          = errors.New("invalid or expired verification code")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrOTPDelivery         = errors.New("could not deliver verification code")
	ErrTooManyAttempts     = errors.New("too many failed login attempts")
	ErrEmailTaken          = errors.New("email is already registered")
)
