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

type PlanHandler struct {
	planService *service.PlanService
}

type createPlanRequest struct {
	Name         string  `json:"name" binding:"required"`
	Description  string  `json:"description"`
	DataLimit    int64   `json:"data_limit"`
	TimeLimit    int64   `json:"time_limit"`
	Price        float64 `json:"price"`
	ValidityDays int     `json:"validity_days"`
}

func NewPlanHandler(planService *service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

func RegisterPlanRoutes(group *gin.RouterGroup, planService *service.PlanService) {
	if planService == nil {
		return
	}

	handler := NewPlanHandler(planService)

	// Storefront endpoints are public: the captive page shows plans
	// before the guest has an account.
	plans := group.Group("/plans")
	plans.GET("/", handler.ListActive)
	plans.GET("/:id", handler.Get)

	admin := plans.Group("")
	admin.Use(middleware.JWTAuth(), middleware.RequireRole(string(model.UserRoleAdmin)))
	admin.GET("/all/list", handler.ListAll)
	admin.POST("/", middleware.AuditLog("plan_create"), handler.Create)
	admin.POST("/:id/archive", middleware.AuditLog("plan_archive"), handler.Archive)
}

func (h *PlanHandler) ListActive(c *gin.Context) {
	plans, err := h.planService.ListActive(c.Request.Context())
	if err != nil {
		handlePlanError(c, err)
		return
	}

	response.Success(c, plans)
}

func (h *PlanHandler) Get(c *gin.Context) {
	plan, err := h.planService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handlePlanError(c, err)
		return
	}

	response.Success(c, plan)
}

func (h *PlanHandler) ListAll(c *gin.Context) {
	plans, err := h.planService.ListAll(c.Request.Context())
	if err != nil {
		handlePlanError(c, err)
		return
	}

	response.Success(c, plans)
}

func (h *PlanHandler) Create(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}

	var req createPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidInput, "invalid request")
		return
	}

	plan, err := h.planService.Create(c.Request.Context(), claims.UserID, service.CreatePlanInput{
		Name:         req.Name,
		Description:  req.Description,
		DataLimit:    req.DataLimit,
		TimeLimit:    req.TimeLimit,
		Price:        req.Price,
		ValidityDays: req.ValidityDays,
	})
	if err != nil {
		handlePlanError(c, err)
		return
	}

	response.Success(c, plan)
}

func (h *PlanHandler) Archive(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}

	plan, err := h.planService.Archive(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		handlePlanError(c, err)
		return
	}

	response.Success(c, plan)
}

func handlePlanError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPlanNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrPlanNotFound, "plan not found")
	case errors.Is(err, service.ErrPlanArchived):
		response.Fail(c, http.StatusConflict, response.ErrPlanArchived, "plan archived")
	case errors.Is(err, service.ErrInvalidPlanInput),
		errors.Is(err, service.ErrInvalidUserID):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidInput, "invalid request")
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
	}
}
