package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Logendranm/wifi-hotspot-system-pro/internal/api/middleware"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/api/response"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/model"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/service"
)

type SystemHandler struct {
	systemService *service.SystemService
}

func NewSystemHandler(systemService *service.SystemService) *SystemHandler {
	return &SystemHandler{systemService: systemService}
}

func RegisterSystemRoutes(group *gin.RouterGroup, systemService *service.SystemService) {
	if systemService == nil {
		return
	}

	handler := NewSystemHandler(systemService)
	system := group.Group("/system")
	system.Use(middleware.JWTAuth(), middleware.RequireRole(string(model.UserRoleAdmin)))

	system.GET("/dashboard", handler.Dashboard)
	system.GET("/server", handler.Server)
	system.GET("/logs", handler.RecentLogs)
}

func (h *SystemHandler) Dashboard(c *gin.Context) {
	stats, err := h.systemService.Dashboard(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
		return
	}

	response.Success(c, stats)
}

func (h *SystemHandler) Server(c *gin.Context) {
	response.Success(c, h.systemService.Server(c.Request.Context()))
}

func (h *SystemHandler) RecentLogs(c *gin.Context) {
	limit := parseIntOrDefault(c.Query("limit"), 100)
	response.Success(c, h.systemService.RecentLogs(limit))
}
