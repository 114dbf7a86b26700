package v1

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Logendranm/wifi-hotspot-system-pro/internal/api/middleware"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/api/response"
	inputsanitize "github.com/Logendranm/wifi-hotspot-system-pro/internal/api/sanitize"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/model"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/repository"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/service"
)

type AuditHandler struct {
	auditService *service.AuditService
}

func NewAuditHandler(auditService *service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func RegisterAuditRoutes(group *gin.RouterGroup, auditService *service.AuditService) {
	if auditService == nil {
		return
	}

	handler := NewAuditHandler(auditService)
	logs := group.Group("/logs")
	logs.Use(middleware.JWTAuth(), middleware.RequireRole(string(model.UserRoleAdmin)))

	logs.GET("/", handler.List)
}

func (h *AuditHandler) List(c *gin.Context) {
	page := parseIntOrDefault(c.Query("page"), 1)
	pageSize := parseIntOrDefault(c.Query("page_size"), 50)

	filter := repository.AuditListFilter{
		Pagination: paginationFor(page, pageSize),
	}
	if raw := strings.TrimSpace(c.Query("user_id")); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidInput, "invalid user_id")
			return
		}
		filter.UserID = &userID
	}
	if action := strings.TrimSpace(c.Query("action")); action != "" {
		cleaned := inputsanitize.Text(action)
		filter.Action = &cleaned
	}
	if raw := strings.TrimSpace(c.Query("start_time")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidInput, "invalid start_time")
			return
		}
		filter.StartTime = &parsed
	}
	if raw := strings.TrimSpace(c.Query("end_time")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidInput, "invalid end_time")
			return
		}
		filter.EndTime = &parsed
	}

	items, err := h.auditService.List(c.Request.Context(), filter)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
		return
	}

	response.Success(c, items)
}
