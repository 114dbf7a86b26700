package v1

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Logendranm/wifi-hotspot-system-pro/internal/api/middleware"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/api/response"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/service"
)

const (
	accessTokenCookieName  = "access_token"
	refreshTokenCookieName = "refresh_token"
	accessTokenTTL         = 2 * time.Hour
	refreshTokenTTL        = 7 * 24 * time.Hour
)

type AuthHandler struct {
	authService *service.AuthService
	userService *service.UserService
}

type registerRequest struct {
	Username string  `json:"username" binding:"required"`
	Email    string  `json:"email" binding:"required"`
	Password string  `json:"password" binding:"required"`
	Phone    *string `json:"phone"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type voucherLoginRequest struct {
	Code string `json:"code" binding:"required"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

func NewAuthHandler(authService *service.AuthService, userService *service.UserService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
	}
}

func RegisterAuthRoutes(group *gin.RouterGroup, authService *service.AuthService, userService *service.UserService) {
	if authService == nil || userService == nil {
		return
	}

	handler := NewAuthHandler(authService, userService)
	auth := group.Group("/auth")
	auth.POST("/register", handler.Register)
	auth.POST("/login", handler.Login)
	auth.POST("/voucher-login", handler.VoucherLogin)
	auth.POST("/refresh", handler.Refresh)
	auth.POST("/logout", handler.Logout)
	auth.POST("/password", middleware.JWTAuth(), handler.ChangePassword)
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidInput, "invalid request")
		return
	}

	// Identities are validated, not escaped: the username pattern and the
	// address parser reject anything unsafe, and escaping here would mangle
	// legal addresses before they reach validation.
	user, err := h.userService.Register(
		c.Request.Context(),
		strings.TrimSpace(req.Username),
		strings.TrimSpace(req.Email),
		req.Password,
		req.Phone,
	)
	if err != nil {
		handleAuthError(c, err)
		return
	}

	response.Success(c, user)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidInput, "invalid request")
		return
	}

	user, tokens, err := h.authService.Login(
		c.Request.Context(),
		strings.TrimSpace(req.Username),
		req.Password,
	)
	if err != nil {
		handleAuthError(c, err)
		return
	}

	setSecureCookie(c, accessTokenCookieName, tokens.AccessToken, int(accessTokenTTL.Seconds()))
	setSecureCookie(c, refreshTokenCookieName, tokens.RefreshToken, int(refreshTokenTTL.Seconds()))

	response.Success(c, gin.H{
		"user":          user,
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
	})
}

// VoucherLogin is the walk-up path: redeem a printed code and sign in as
// the account it credits, in one request.
func (h *AuthHandler) VoucherLogin(c *gin.Context) {
	var req voucherLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidInput, "invalid request")
		return
	}

	result, tokens, err := h.authService.VoucherLogin(c.Request.Context(), req.Code)
	if err != nil {
		handleVoucherError(c, err)
		return
	}

	setSecureCookie(c, accessTokenCookieName, tokens.AccessToken, int(accessTokenTTL.Seconds()))
	setSecureCookie(c, refreshTokenCookieName, tokens.RefreshToken, int(refreshTokenTTL.Seconds()))

	response.Success(c, gin.H{
		"user":          result.User,
		"plan":          result.Plan,
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
	})
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, err := c.Cookie(refreshTokenCookieName)
	if err != nil || refreshToken == "" {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}

	tokens, err := h.authService.RefreshToken(c.Request.Context(), refreshToken)
	if err != nil {
		handleAuthError(c, err)
		return
	}

	setSecureCookie(c, accessTokenCookieName, tokens.AccessToken, int(accessTokenTTL.Seconds()))
	setSecureCookie(c, refreshTokenCookieName, tokens.RefreshToken, int(refreshTokenTTL.Seconds()))

	response.Success(c, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if refreshToken, err := c.Cookie(refreshTokenCookieName); err == nil && refreshToken != "" {
		if err := h.authService.Logout(c.Request.Context(), refreshToken); err != nil {
			handleAuthError(c, err)
			return
		}
	}

	clearCookie(c, accessTokenCookieName)
	clearCookie(c, refreshTokenCookieName)

	response.Success(c, nil)
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidInput, "invalid request")
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), claims.UserID, req.OldPassword, req.NewPassword); err != nil {
		handleAuthError(c, err)
		return
	}

	clearCookie(c, accessTokenCookieName)
	clearCookie(c, refreshTokenCookieName)

	response.Success(c, nil)
}

func handleAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Fail(c, http.StatusUnauthorized, response.ErrPasswordWrong, "username or password incorrect")
	case errors.Is(err, service.ErrUserInactive):
		response.Fail(c, http.StatusForbidden, response.ErrUserInactive, "account deactivated")
	case errors.Is(err, service.ErrUserNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrUserNotFound, "user not found")
	case errors.Is(err, service.ErrDuplicateIdentity):
		response.Fail(c, http.StatusConflict, response.ErrDuplicateIdentity, "username or email already taken")
	case errors.Is(err, service.ErrRefreshTokenExpired):
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenExpired, "refresh token expired")
	case errors.Is(err, service.ErrRefreshTokenInvalid):
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "invalid refresh token")
	case errors.Is(err, service.ErrInvalidUserID),
		errors.Is(err, service.ErrInvalidUserInput):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidInput, "invalid request")
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
	}
}

func setSecureCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, value, maxAge, "/", "", true, true)
}

func clearCookie(c *gin.Context, name string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, "", -1, "/", "", true, true)
}
