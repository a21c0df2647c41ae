package service

import (
	"errors"
	"fmt"
	"time"
	"vh-recruit-api/config"
	"vh-recruit-api/logger"
	"vh-recruit-api/model"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthService is the token signer and password hasher. Access tokens are
// verified by signature and expiry alone; there is no storage lookup, so a
// revoked refresh session keeps its already-issued access token until that
// token's short lifetime runs out.
type AuthService struct{}

func NewAuthService() *AuthService {
	return &AuthService{}
}

func getJwtKey() []byte {
	return []byte(config.AppConfig.JWT.SecretKey)
}

func (s *AuthService) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to hash password")
		return "", err
	}
	return string(bytes), nil
}

func (s *AuthService) CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// GenerateAccessToken mints a short-lived HS256 token carrying the account
// id, privilege tag and email.
func (s *AuthService) GenerateAccessToken(account *model.Account) (string, error) {
	now := time.Now()

	claims := &model.AppClaims{
		AccountID: account.ID.String(),
		Role:      string(account.Role),
		Email:     account.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(config.AppConfig.AccessTokenTTL())),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(getJwtKey())
	if err != nil {
		logger.Log.WithError(err).WithField("email", account.Email).Error("Failed to sign access token")
		return "", fmt.Errorf("failed to sign token string: %w", err)
	}

	return tokenString, nil
}

// VerifyAccessToken checks signature and expiry and returns the embedded
// claims.
func (s *AuthService) VerifyAccessToken(tokenString string) (*model.AppClaims, error) {
	claims := &model.AppClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return getJwtKey(), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}
