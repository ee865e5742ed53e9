package handlers

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sme-finance/identity/config"
	"github.com/sme-finance/identity/middleware/activity"
	"github.com/sme-finance/identity/services/auth"
	"github.com/sme-finance/identity/services/business"
	jwtsvc "github.com/sme-finance/identity/services/jwt"
	"github.com/sme-finance/identity/services/logging"
	"github.com/sme-finance/identity/services/session"
	"github.com/sme-finance/identity/services/token"
	"github.com/sme-finance/identity/services/user"
)

const (
	signupMessage        = "Account created. Please check your email to verify your account."
	resetRequestMessage  = "If an account with that email exists, a password reset link has been sent."
	invalidTokenMessage  = "Token is invalid or expired"
	invalidRefreshNotice = "Invalid or expired refresh token"
)

type AuthHandler struct {
	cfg        *config.Config
	auth       *auth.Service
	accounts   *auth.AccountService
	sessions   *session.Service
	users      *user.Store
	businesses *business.Service
	jwt        *jwtsvc.Service
	logger     *logging.Service
}

func NewAuthHandler(
	cfg *config.Config,
	authSvc *auth.Service,
	accounts *auth.AccountService,
	sessions *session.Service,
	users *user.Store,
	businesses *business.Service,
	jwtSvc *jwtsvc.Service,
	logger *logging.Service,
) *AuthHandler {
	return &AuthHandler{
		cfg:        cfg,
		auth:       authSvc,
		accounts:   accounts,
		sessions:   sessions,
		users:      users,
		businesses: businesses,
		jwt:        jwtSvc,
		logger:     logger,
	}
}

type signupRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid request body")
	}

	details := map[string]string{}
	if msg := validateEmailField(req.Email); msg != "" {
		details["email"] = msg
	}
	if err := h.auth.ValidatePassword(req.Password); err != nil {
		details["password"] = err.Error()
	}
	if req.Password != req.ConfirmPassword {
		details["confirm_password"] = "passwords do not match"
	}
	if len(details) > 0 {
		return respondValidation(c, details)
	}

	_, err := h.accounts.Signup(req.Email, req.Password)
	if err != nil {
		// A duplicate email gets the same answer as a fresh signup so
		// the endpoint cannot be used to probe for accounts.
		if errors.Is(err, user.ErrDuplicateEmail) {
			return respondMessage(c, http.StatusCreated, signupMessage)
		}
		h.logger.Error("signup failed", zap.Error(err))
		return respondError(c, http.StatusInternalServerError, "Failed to create account. Please try again later.")
	}

	return respondMessage(c, http.StatusCreated, signupMessage)
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

type loginResponse struct {
	AccessToken string             `json:"access_token"`
	ExpiresIn   int                `json:"expires_in"`
	User        *user.User         `json:"user"`
	Business    *business.Business `json:"business,omitempty"`
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid request body")
	}

	u, err := h.auth.Authenticate(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrAccountDisabled) {
			return respondError(c, http.StatusForbidden, "Your account has been disabled.")
		}
		return respondError(c, http.StatusUnauthorized, "Invalid email or password")
	}

	deviceInfo := session.DeviceInfoFromUserAgent(c.Request().UserAgent())
	sess, err := h.sessions.IssueSession(u, req.RememberMe, deviceInfo)
	if err != nil {
		h.logger.Error("failed to issue session", zap.Error(err), zap.Uint("user_id", u.ID))
		return respondError(c, http.StatusInternalServerError, "Failed to login. Please try again later.")
	}

	h.sessions.Touch(u.ID)
	h.setRefreshCookie(c, sess.RefreshToken, sess.RefreshExpiresAt)

	resp := loginResponse{
		AccessToken: sess.AccessToken,
		ExpiresIn:   h.jwt.GetAccessExpirySeconds(),
		User:        u,
	}
	if b, err := h.businesses.FindByUserID(u.ID); err == nil {
		resp.Business = b
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) Refresh(c echo.Context) error {
	cookie, err := c.Cookie(h.cfg.RefreshToken.CookieName)
	if err != nil || cookie.Value == "" {
		return respondError(c, http.StatusUnauthorized, invalidRefreshNotice)
	}

	accessToken, _, err := h.sessions.Refresh(cookie.Value)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, invalidRefreshNotice)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"access_token": accessToken,
		"expires_in":   h.jwt.GetAccessExpirySeconds(),
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	if cookie, err := c.Cookie(h.cfg.RefreshToken.CookieName); err == nil && cookie.Value != "" {
		if err := h.sessions.Logout(cookie.Value); err != nil {
			h.logger.Warn("logout could not invalidate refresh token", zap.Error(err))
		}
	}

	h.clearRefreshCookie(c)

	return respondMessage(c, http.StatusOK, "Logged out successfully.")
}

type verifyEmailRequest struct {
	Token string `json:"token"`
}

func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req verifyEmailRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid request body")
	}

	if req.Token == "" {
		return respondValidation(c, map[string]string{"token": "token is required"})
	}

	if err := h.accounts.VerifyEmail(req.Token); err != nil {
		if errors.Is(err, token.ErrTokenNotFound) || errors.Is(err, token.ErrTokenInvalid) {
			return respondError(c, http.StatusBadRequest, invalidTokenMessage)
		}
		h.logger.Error("email verification failed", zap.Error(err))
		return respondError(c, http.StatusInternalServerError, "Failed to verify email. Please try again later.")
	}

	return respondMessage(c, http.StatusOK, "Email verified successfully.")
}

func (h *AuthHandler) ResendVerification(c echo.Context) error {
	u := activity.GetUser(c)
	if u == nil {
		return respondError(c, http.StatusUnauthorized, "Authentication required")
	}

	if err := h.accounts.ResendVerification(u); err != nil {
		if errors.Is(err, auth.ErrEmailAlreadyVerified) {
			return respondError(c, http.StatusBadRequest, "Email is already verified")
		}
		h.logger.Error("failed to resend verification email", zap.Error(err), zap.Uint("user_id", u.ID))
		return respondError(c, http.StatusInternalServerError, "Failed to send verification email. Please try again later.")
	}

	return respondMessage(c, http.StatusOK, "Verification email sent.")
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

func (h *AuthHandler) PasswordResetRequest(c echo.Context) error {
	var req passwordResetRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid request body")
	}

	if msg := validateEmailField(req.Email); msg != "" {
		return respondValidation(c, map[string]string{"email": msg})
	}

	if err := h.accounts.RequestPasswordReset(req.Email); err != nil {
		h.logger.Error("password reset request failed", zap.Error(err))
		return respondError(c, http.StatusInternalServerError, "Failed to process request. Please try again later.")
	}

	return respondMessage(c, http.StatusOK, resetRequestMessage)
}

type passwordResetConfirm struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (h *AuthHandler) PasswordReset(c echo.Context) error {
	var req passwordResetConfirm
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid request body")
	}

	details := map[string]string{}
	if req.Token == "" {
		details["token"] = "token is required"
	}
	if err := h.auth.ValidatePassword(req.Password); err != nil {
		details["password"] = err.Error()
	}
	if req.Password != req.ConfirmPassword {
		details["confirm_password"] = "passwords do not match"
	}
	if len(details) > 0 {
		return respondValidation(c, details)
	}

	if err := h.accounts.ResetPassword(req.Token, req.Password); err != nil {
		if errors.Is(err, token.ErrTokenNotFound) || errors.Is(err, token.ErrTokenInvalid) {
			return respondError(c, http.StatusBadRequest, invalidTokenMessage)
		}
		h.logger.Error("password reset failed", zap.Error(err))
		return respondError(c, http.StatusInternalServerError, "Failed to reset password. Please try again later.")
	}

	return respondMessage(c, http.StatusOK, "Password has been reset successfully. Please login with your new password.")
}

type meResponse struct {
	User     *user.User         `json:"user"`
	Business *business.Business `json:"business,omitempty"`
}

func (h *AuthHandler) Me(c echo.Context) error {
	u := activity.GetUser(c)
	if u == nil {
		return respondError(c, http.StatusUnauthorized, "Authentication required")
	}

	resp := meResponse{User: u}
	if b, err := h.businesses.FindByUserID(u.ID); err == nil {
		resp.Business = b
	}

	return c.JSON(http.StatusOK, resp)
}

type updateProfileRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	u := activity.GetUser(c)
	if u == nil {
		return respondError(c, http.StatusUnauthorized, "Authentication required")
	}

	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid request body")
	}

	if req.Email != "" {
		if msg := validateEmailField(req.Email); msg != "" {
			return respondValidation(c, map[string]string{"email": msg})
		}
	}

	if err := h.accounts.UpdateProfile(u, req.Username, req.Email); err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return respondValidation(c, map[string]string{"email": "a user with this email already exists"})
		}
		h.logger.Error("profile update failed", zap.Error(err), zap.Uint("user_id", u.ID))
		return respondError(c, http.StatusInternalServerError, "Failed to update profile. Please try again later.")
	}

	return c.JSON(http.StatusOK, meResponse{User: u})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (h *AuthHandler) ChangePassword(c echo.Context) error {
	u := activity.GetUser(c)
	if u == nil {
		return respondError(c, http.StatusUnauthorized, "Authentication required")
	}

	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid request body")
	}

	details := map[string]string{}
	if err := h.auth.ValidatePassword(req.NewPassword); err != nil {
		details["new_password"] = err.Error()
	}
	if req.NewPassword != req.ConfirmPassword {
		details["confirm_password"] = "passwords do not match"
	}
	if len(details) > 0 {
		return respondValidation(c, details)
	}

	if err := h.accounts.ChangePassword(u, req.CurrentPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, auth.ErrCurrentPasswordIncorrect):
			return respondValidation(c, map[string]string{"current_password": err.Error()})
		case errors.Is(err, auth.ErrPasswordUnchanged):
			return respondValidation(c, map[string]string{"new_password": err.Error()})
		default:
			h.logger.Error("password change failed", zap.Error(err), zap.Uint("user_id", u.ID))
			return respondError(c, http.StatusInternalServerError, "Failed to change password. Please try again later.")
		}
	}

	h.clearRefreshCookie(c)

	return respondMessage(c, http.StatusOK, "Password changed successfully. Please login again.")
}

func (h *AuthHandler) setRefreshCookie(c echo.Context, value string, expiresAt time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     h.cfg.RefreshToken.CookieName,
		Value:    value,
		Path:     "/api/auth",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.RefreshToken.CookieSecure,
		SameSite: cookieSameSite(h.cfg.RefreshToken.CookieSameSite),
	})
}

func (h *AuthHandler) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     h.cfg.RefreshToken.CookieName,
		Value:    "",
		Path:     "/api/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.RefreshToken.CookieSecure,
		SameSite: cookieSameSite(h.cfg.RefreshToken.CookieSameSite),
	})
}

func cookieSameSite(mode string) http.SameSite {
	switch strings.ToLower(mode) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func validateEmailField(email string) string {
	trimmed := strings.TrimSpace(email)
	if trimmed == "" {
		return "email is required"
	}
	if _, err := mail.ParseAddress(trimmed); err != nil {
		return "enter a valid email address"
	}
	return ""
}
