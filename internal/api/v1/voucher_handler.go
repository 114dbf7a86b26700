package v1

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Logendranm/wifi-hotspot-system-pro/internal/api/middleware"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/api/response"
	inputsanitize "github.com/Logendranm/wifi-hotspot-system-pro/internal/api/sanitize"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/model"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/repository"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/service"
)

type VoucherHandler struct {
	voucherService *service.VoucherService
}

type batchGenerateVoucherRequest struct {
	PlanID   string `json:"plan_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required"`
}

func NewVoucherHandler(voucherService *service.VoucherService) *VoucherHandler {
	return &VoucherHandler{voucherService: voucherService}
}

func RegisterVoucherRoutes(group *gin.RouterGroup, voucherService *service.VoucherService) {
	if voucherService == nil {
		return
	}

	handler := NewVoucherHandler(voucherService)
	vouchers := group.Group("/vouchers")
	vouchers.Use(middleware.JWTAuth(), middleware.RequireRole(string(model.UserRoleAdmin)))

	vouchers.GET("/", handler.List)
	vouchers.POST("/batch-generate", middleware.AuditLog("vouchers_generate"), handler.BatchGenerate)
}

func (h *VoucherHandler) List(c *gin.Context) {
	page := parseIntOrDefault(c.Query("page"), 1)
	pageSize := parseIntOrDefault(c.Query("page_size"), 20)

	filter := repository.VoucherListFilter{
		Pagination: paginationFor(page, pageSize),
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := model.VoucherStatus(raw)
		if status != model.VoucherStatusUnused && status != model.VoucherStatusUsed {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidInput, "invalid status")
			return
		}
		filter.Status = &status
	}
	if raw := strings.TrimSpace(c.Query("plan_id")); raw != "" {
		planID, err := uuid.Parse(raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidInput, "invalid plan_id")
			return
		}
		filter.PlanID = &planID
	}
	if keyword := strings.TrimSpace(c.Query("keyword")); keyword != "" {
		cleaned := inputsanitize.Text(keyword)
		filter.Keyword = &cleaned
	}

	items, total, err := h.voucherService.List(c.Request.Context(), filter)
	if err != nil {
		handleVoucherError(c, err)
		return
	}

	response.Paginated(c, items, page, pageSize, total)
}

func (h *VoucherHandler) BatchGenerate(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}

	var req batchGenerateVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidInput, "invalid request")
		return
	}

	vouchers, err := h.voucherService.BatchGenerate(c.Request.Context(), claims.UserID, req.PlanID, req.Quantity)
	if err != nil {
		handleVoucherError(c, err)
		return
	}

	response.Success(c, vouchers)
}

func handleVoucherError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrVoucherNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrVoucherNotFound, "voucher not found")
	case errors.Is(err, service.ErrVoucherUsed):
		response.Fail(c, http.StatusConflict, response.ErrVoucherUsed, "voucher already used")
	case errors.Is(err, service.ErrVoucherPlanMissing):
		response.Fail(c, http.StatusConflict, response.ErrPlanNotFound, "voucher plan missing")
	case errors.Is(err, service.ErrPlanNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrPlanNotFound, "plan not found")
	case errors.Is(err, service.ErrInvalidVoucherInput),
		errors.Is(err, service.ErrInvalidUserID):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidInput, "invalid request")
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
	}
}
