package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Logendranm/wifi-hotspot-system-pro/internal/api/middleware"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/api/response"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/model"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/service"
)

type SessionHandler struct {
	sessionService *service.SessionService
}

type startSessionRequest struct {
	DeviceMAC string `json:"device_mac"`
	IPAddress string `json:"ip_address"`
}

func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

func RegisterSessionRoutes(group *gin.RouterGroup, sessionService *service.SessionService) {
	if sessionService == nil {
		return
	}

	handler := NewSessionHandler(sessionService)
	sessions := group.Group("/sessions")
	sessions.Use(middleware.JWTAuth())

	sessions.POST("/", middleware.AuditLog("session_start"), handler.Start)
	sessions.POST("/:id/terminate", middleware.AuditLog("session_terminate"), handler.Terminate)
	sessions.GET("/active", middleware.RequireRole(string(model.UserRoleAdmin)), handler.ListActive)
}

func (h *SessionHandler) Start(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}

	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidInput, "invalid request")
		return
	}

	ipAddress := req.IPAddress
	if ipAddress == "" {
		ipAddress = c.ClientIP()
	}

	session, err := h.sessionService.Start(c.Request.Context(), claims.UserID, req.DeviceMAC, ipAddress)
	if err != nil {
		handleSessionError(c, err)
		return
	}

	response.Success(c, session)
}

func (h *SessionHandler) Terminate(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}

	session, err := h.sessionService.Terminate(
		c.Request.Context(),
		claims.UserID,
		isAdmin(claims.Role),
		c.Param("id"),
	)
	if err != nil {
		handleSessionError(c, err)
		return
	}

	response.Success(c, session)
}

func (h *SessionHandler) ListActive(c *gin.Context) {
	sessions, err := h.sessionService.ListActive(c.Request.Context())
	if err != nil {
		handleSessionError(c, err)
		return
	}

	response.Success(c, sessions)
}

func handleSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound, "session not found")
	case errors.Is(err, service.ErrSessionForbidden):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, "forbidden")
	case errors.Is(err, service.ErrInsufficientBalance):
		response.Fail(c, http.StatusPaymentRequired, response.ErrInsufficientBalance, "insufficient balance")
	case errors.Is(err, service.ErrUserNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrUserNotFound, "user not found")
	case errors.Is(err, service.ErrUserInactive):
		response.Fail(c, http.StatusForbidden, response.ErrUserInactive, "account deactivated")
	case errors.Is(err, service.ErrInvalidSessionInput),
		errors.Is(err, service.ErrInvalidUserID):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidInput, "invalid request")
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
	}
}

func isAdmin(role string) bool {
	return role == string(model.UserRoleAdmin)
}
