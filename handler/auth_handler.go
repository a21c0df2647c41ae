package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"vh-recruit-api/common"
	"vh-recruit-api/config"
	"vh-recruit-api/model"
	"vh-recruit-api/service"

	"github.com/google/uuid"
)

// RefreshCookieName is the HTTP-only cookie carrying the refresh secret.
const RefreshCookieName = "vh_rt"

// ISessionService is the orchestrator contract the handlers depend on.
type ISessionService interface {
	Login(ctx context.Context, email, password string, meta model.ClientMeta) (*service.LoginResult, error)
	VerifyOTP(ctx context.Context, email, code string, meta model.ClientMeta) (*service.LoginResult, error)
	Refresh(ctx context.Context, presentedSecret string, meta model.ClientMeta) (*service.LoginResult, error)
	Logout(ctx context.Context, presentedSecret string)
	ProvisionAccount(req model.ProvisionAccountRequest) (*model.Account, error)
	GetAccount(id uuid.UUID) (*model.Account, error)
}

type AuthHandler struct {
	service ISessionService
}

func NewAuthHandler(s ISessionService) *AuthHandler {
	return &AuthHandler{service: s}
}

// AuthResponse is the successful session payload.
type AuthResponse struct {
	AccessToken string         `json:"accessToken"`
	User        *model.Account `json:"user"`
}

// OTPRequiredResponse tells the client to complete the step-up first.
type OTPRequiredResponse struct {
	RequiresOTP bool `json:"requiresOTP"`
}

// Login godoc
// @Summary      Authenticate with email and password
// @Description  Starts a session for standard accounts; privileged accounts get {requiresOTP:true} and must call /auth/verify-otp.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        credentials body model.LoginRequest true "Login credentials"
// @Success      200  {object}  AuthResponse
// @Failure      401  {object}  common.AppError "Invalid credentials"
// @Failure      429  {object}  common.AppError "Too many failed attempts"
// @Router       /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.LoginRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password, clientMeta(r))
	if err != nil {
		return mapAuthError(err)
	}

	if result.RequiresOTP {
		writeJSON(w, http.StatusOK, OTPRequiredResponse{RequiresOTP: true})
		return nil
	}

	setRefreshCookie(w, result.RefreshSecret)
	writeJSON(w, http.StatusOK, AuthResponse{AccessToken: result.AccessToken, User: result.Account})
	return nil
}

// VerifyOTP godoc
// @Summary      Complete a privileged login with a one-time code
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload body model.VerifyOTPRequest true "Email and 6-digit code"
// @Success      200  {object}  AuthResponse
// @Failure      401  {object}  common.AppError "Invalid or expired code"
// @Router       /auth/verify-otp [post]
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.VerifyOTPRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	result, err := h.service.VerifyOTP(r.Context(), req.Email, req.OTP, clientMeta(r))
	if err != nil {
		return mapAuthError(err)
	}

	setRefreshCookie(w, result.RefreshSecret)
	writeJSON(w, http.StatusOK, AuthResponse{AccessToken: result.AccessToken, User: result.Account})
	return nil
}

// Refresh godoc
// @Summary      Rotate the refresh token and mint a new access token
// @Description  Reads the vh_rt cookie; on success the cookie is replaced with the rotated secret.
// @Tags         auth
// @Produce      json
// @Success      200  {object}  AuthResponse
// @Failure      401  {object}  common.AppError "Invalid or expired refresh token"
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) *common.AppError {
	secret := refreshSecretFromCookie(r)
	if secret == "" {
		return common.NewAppError(http.StatusUnauthorized, service.ErrInvalidRefreshToken.Error(), nil)
	}

	result, err := h.service.Refresh(r.Context(), secret, clientMeta(r))
	if err != nil {
		if errors.Is(err, service.ErrInvalidRefreshToken) {
			clearRefreshCookie(w)
		}
		return mapAuthError(err)
	}

	setRefreshCookie(w, result.RefreshSecret)
	writeJSON(w, http.StatusOK, AuthResponse{AccessToken: result.AccessToken, User: result.Account})
	return nil
}

// Logout godoc
// @Summary      Revoke the current refresh token
// @Description  Always succeeds; the cookie is cleared unconditionally.
// @Tags         auth
// @Produce      json
// @Success      200  {object}  map[string]bool
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) *common.AppError {
	h.service.Logout(r.Context(), refreshSecretFromCookie(r))

	clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	return nil
}

// Me godoc
// @Summary      Return the authenticated account
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  model.Account
// @Failure      401  {object}  common.AppError
// @Router       /api/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) *common.AppError {
	accountID, ok := r.Context().Value(AccountIDKey).(string)
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Invalid account ID in token", nil)
	}

	id, err := uuid.Parse(accountID)
	if err != nil {
		return common.NewAppError(http.StatusUnauthorized, "Invalid account ID in token", err)
	}

	account, err := h.service.GetAccount(id)
	if err != nil {
		return common.NewAppError(http.StatusUnauthorized, "Account no longer exists", err)
	}

	writeJSON(w, http.StatusOK, account)
	return nil
}

// ProvisionAccount godoc
// @Summary      Create an account (administrative)
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        account body model.ProvisionAccountRequest true "New account"
// @Success      201  {object}  model.Account
// @Failure      403  {object}  common.AppError "Privileged account required"
// @Failure      409  {object}  common.AppError "Email already registered"
// @Router       /api/admin/accounts [post]
func (h *AuthHandler) ProvisionAccount(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.ProvisionAccountRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	account, err := h.service.ProvisionAccount(req)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			return common.NewAppError(http.StatusConflict, err.Error(), err)
		}
		return common.NewAppError(http.StatusInternalServerError, "Could not create account", err)
	}

	writeJSON(w, http.StatusCreated, account)
	return nil
}

// mapAuthError translates orchestrator sentinels into flat {message}
// responses. Anything unrecognized is an internal error with a generic
// body; the wrapped cause is only logged.
func mapAuthError(err error) *common.AppError {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return common.NewAppError(http.StatusUnauthorized, service.ErrInvalidCredentials.Error(), nil)
	case errors.Is(err, service.ErrInvalidOTP):
		return common.NewAppError(http.StatusUnauthorized, service.ErrInvalidOTP.Error(), nil)
	case errors.Is(err, service.ErrInvalidRefreshToken):
		return common.NewAppError(http.StatusUnauthorized, service.ErrInvalidRefreshToken.Error(), nil)
	case errors.Is(err, service.ErrTooManyAttempts):
		return common.NewAppError(http.StatusTooManyRequests, service.ErrTooManyAttempts.Error(), nil)
	case errors.Is(err, service.ErrOTPDelivery):
		return common.NewAppError(http.StatusServiceUnavailable, service.ErrOTPDelivery.Error(), err)
	default:
		return common.NewAppError(http.StatusInternalServerError, "Something went wrong", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func refreshSecretFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(RefreshCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func setRefreshCookie(w http.ResponseWriter, secret string) {
	http.SetCookie(w, refreshCookie(secret, int(config.AppConfig.RefreshTokenTTL().Seconds())))
}

func clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, refreshCookie("", -1))
}

func refreshCookie(value string, maxAge int) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	secure := false
	if config.AppConfig.IsProduction() {
		// Cross-site deployments need SameSite=None, which browsers
		// only accept together with Secure.
		sameSite = http.SameSiteNoneMode
		secure = true
	}

	return &http.Cookie{
		Name:     RefreshCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	}
}

// clientMeta extracts the audit metadata recorded on every ledger entry.
func clientMeta(r *http.Request) model.ClientMeta {
	ip := r.Header.Get("X-Forwarded-For")
	if ip != "" {
		ip = strings.TrimSpace(strings.Split(ip, ",")[0])
	} else {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		ip = host
	}

	return model.ClientMeta{
		IPAddress: ip,
		UserAgent: r.UserAgent(),
	}
}
