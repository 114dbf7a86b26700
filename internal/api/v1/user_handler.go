package v1

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Logendranm/wifi-hotspot-system-pro/internal/api/middleware"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/api/response"
	inputsanitize "github.com/Logendranm/wifi-hotspot-system-pro/internal/api/sanitize"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/model"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/repository"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/service"
)

type UserHandler struct {
	userService *service.UserService
}

type setUserStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func RegisterUserRoutes(group *gin.RouterGroup, userService *service.UserService) {
	if userService == nil {
		return
	}

	handler := NewUserHandler(userService)

	me := group.Group("/me")
	me.Use(middleware.JWTAuth())
	me.GET("", handler.Profile)
	me.GET("/balance", handler.Balance)

	users := group.Group("/users")
	users.Use(middleware.JWTAuth(), middleware.RequireRole(string(model.UserRoleAdmin)))
	users.GET("/", handler.List)
	users.PATCH("/:id/status", middleware.AuditLog("user_status_change"), handler.SetStatus)
}

func (h *UserHandler) Profile(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}

	user, err := h.userService.GetProfile(c.Request.Context(), claims.UserID)
	if err != nil {
		handleAuthError(c, err)
		return
	}

	response.Success(c, user)
}

func (h *UserHandler) Balance(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}

	summary, err := h.userService.CheckBalance(c.Request.Context(), claims.UserID)
	if err != nil {
		handleAuthError(c, err)
		return
	}

	response.Success(c, summary)
}

func (h *UserHandler) List(c *gin.Context) {
	page := parseIntOrDefault(c.Query("page"), 1)
	pageSize := parseIntOrDefault(c.Query("page_size"), 20)

	filter := repository.UserListFilter{
		Pagination: paginationFor(page, pageSize),
	}
	if raw := strings.TrimSpace(c.Query("role")); raw != "" {
		role := model.UserRole(raw)
		if role != model.UserRoleUser && role != model.UserRoleAdmin {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidInput, "invalid role")
			return
		}
		filter.Role = &role
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := model.UserStatus(raw)
		if status != model.UserStatusActive && status != model.UserStatusInactive {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidInput, "invalid status")
			return
		}
		filter.Status = &status
	}
	if keyword := strings.TrimSpace(c.Query("keyword")); keyword != "" {
		cleaned := inputsanitize.Text(keyword)
		filter.Keyword = &cleaned
	}

	items, total, err := h.userService.List(c.Request.Context(), filter)
	if err != nil {
		handleAuthError(c, err)
		return
	}

	response.Paginated(c, items, page, pageSize, total)
}

func (h *UserHandler) SetStatus(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}

	var req setUserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidInput, "invalid request")
		return
	}

	user, err := h.userService.SetStatus(
		c.Request.Context(),
		claims.UserID,
		c.Param("id"),
		model.UserStatus(strings.TrimSpace(req.Status)),
	)
	if err != nil {
		handleAuthError(c, err)
		return
	}

	response.Success(c, user)
}

func parseIntOrDefault(raw string, def int) int {
	if strings.TrimSpace(raw) == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return def
	}
	return value
}

func paginationFor(page, pageSize int) repository.Pagination {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return repository.Pagination{
		Limit:  int32(pageSize),
		Offset: int32((page - 1) * pageSize),
	}
}
