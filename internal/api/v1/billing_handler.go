package v1

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Logendranm/wifi-hotspot-system-pro/internal/api/middleware"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/api/response"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/model"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/repository"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/service"
)

type BillingHandler struct {
	billingService *service.BillingService
}

type rechargeRequest struct {
	PlanID string `json:"plan_id" binding:"required"`
}

type creditRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	DataDelta int64  `json:"data_delta"`
	TimeDelta int64  `json:"time_delta"`
}

func NewBillingHandler(billingService *service.BillingService) *BillingHandler {
	return &BillingHandler{billingService: billingService}
}

func RegisterBillingRoutes(group *gin.RouterGroup, billingService *service.BillingService) {
	if billingService == nil {
		return
	}

	handler := NewBillingHandler(billingService)

	group.POST("/recharge", middleware.JWTAuth(), middleware.AuditLog("recharge"), handler.Recharge)

	admin := group.Group("")
	admin.Use(middleware.JWTAuth(), middleware.RequireRole(string(model.UserRoleAdmin)))
	admin.POST("/balance/credit", middleware.AuditLog("balance_credit"), handler.Credit)
	admin.GET("/payments", handler.ListPayments)
	admin.GET("/revenue/stats", handler.RevenueStats)
}

// Recharge buys a plan for the signed-in user. There is no payment
// gateway; the payment is recorded as completed immediately.
func (h *BillingHandler) Recharge(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}

	var req rechargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidInput, "invalid request")
		return
	}

	payment, user, err := h.billingService.Recharge(c.Request.Context(), claims.UserID, req.PlanID)
	if err != nil {
		handleBillingError(c, err)
		return
	}

	response.Success(c, gin.H{
		"payment": payment,
		"user":    user,
	})
}

func (h *BillingHandler) Credit(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}

	var req creditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidInput, "invalid request")
		return
	}

	user, err := h.billingService.Credit(c.Request.Context(), claims.UserID, req.UserID, req.DataDelta, req.TimeDelta)
	if err != nil {
		handleBillingError(c, err)
		return
	}

	response.Success(c, user)
}

func (h *BillingHandler) ListPayments(c *gin.Context) {
	page := parseIntOrDefault(c.Query("page"), 1)
	pageSize := parseIntOrDefault(c.Query("page_size"), 20)

	filter := repository.PaymentListFilter{
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
	if raw := strings.TrimSpace(c.Query("method")); raw != "" {
		if raw != model.PaymentMethodOnline && raw != model.PaymentMethodVoucher {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidInput, "invalid method")
			return
		}
		filter.Method = &raw
	}

	items, total, err := h.billingService.ListPayments(c.Request.Context(), filter)
	if err != nil {
		handleBillingError(c, err)
		return
	}

	response.Paginated(c, items, page, pageSize, total)
}

func (h *BillingHandler) RevenueStats(c *gin.Context) {
	stats, err := h.billingService.RevenueStats(c.Request.Context())
	if err != nil {
		handleBillingError(c, err)
		return
	}

	response.Success(c, stats)
}

func handleBillingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrUserNotFound, "user not found")
	case errors.Is(err, service.ErrUserInactive):
		response.Fail(c, http.StatusForbidden, response.ErrUserInactive, "account deactivated")
	case errors.Is(err, service.ErrPlanNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrPlanNotFound, "plan not found")
	case errors.Is(err, service.ErrPlanArchived):
		response.Fail(c, http.StatusConflict, response.ErrPlanArchived, "plan archived")
	case errors.Is(err, service.ErrInvalidCreditDelta),
		errors.Is(err, service.ErrInvalidUserID):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidInput, "invalid request")
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
	}
}
