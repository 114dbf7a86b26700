package api

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/Logendranm/wifi-hotspot-system-pro/internal/api/v1"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/service"
)

// Services bundles everything the HTTP surface needs.
type Services struct {
	Auth    *service.AuthService
	User    *service.UserService
	Plan    *service.PlanService
	Voucher *service.VoucherService
	Session *service.SessionService
	Billing *service.BillingService
	Report  *service.ReportService
	Audit   *service.AuditService
	System  *service.SystemService
}

func RegisterRoutes(router *gin.Engine, svcs Services) {
	group := router.Group("/api/v1")

	v1.RegisterAuthRoutes(group, svcs.Auth, svcs.User)
	v1.RegisterUserRoutes(group, svcs.User)
	v1.RegisterPlanRoutes(group, svcs.Plan)
	v1.RegisterVoucherRoutes(group, svcs.Voucher)
	v1.RegisterSessionRoutes(group, svcs.Session)
	v1.RegisterBillingRoutes(group, svcs.Billing)
	v1.RegisterReportRoutes(group, svcs.Report)
	v1.RegisterAuditRoutes(group, svcs.Audit)
	v1.RegisterSystemRoutes(group, svcs.System)
}
