package v1

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Logendranm/wifi-hotspot-system-pro/internal/api/middleware"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/api/response"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/model"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/service"
)

type ReportHandler struct {
	reportService *service.ReportService
}

func NewReportHandler(reportService *service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func RegisterReportRoutes(group *gin.RouterGroup, reportService *service.ReportService) {
	if reportService == nil {
		return
	}

	handler := NewReportHandler(reportService)
	reports := group.Group("/reports")
	reports.Use(middleware.JWTAuth(), middleware.RequireRole(string(model.UserRoleAdmin)))

	reports.GET("/:type/export", middleware.AuditLog("report_export"), handler.Export)
}

func (h *ReportHandler) Export(c *gin.Context) {
	report, err := h.reportService.Export(c.Request.Context(), c.Param("type"))
	if err != nil {
		if errors.Is(err, service.ErrUnknownReportType) {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidInput, "unknown report type")
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename))
	c.Data(http.StatusOK, report.ContentType, report.Data)
}
