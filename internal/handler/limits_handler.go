package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"limitguard/internal/domain"
	"limitguard/internal/export"
	"limitguard/internal/service"
)

// LimitsHandler handles the compliance dashboard endpoints.
type LimitsHandler struct {
	limitsService service.LimitsService
	exportService service.ExportService
}

// NewLimitsHandler creates a new LimitsHandler.
func NewLimitsHandler(limitsService service.LimitsService, exportService service.ExportService) *LimitsHandler {
	return &LimitsHandler{limitsService: limitsService, exportService: exportService}
}

// Recalculate handles POST /api/v1/limits/recalculate
// @Summary Recalculate limits
// @Description Recompute the 12 monthly snapshots of the tenant's year and return the dashboard
// @Tags limits
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant"
// @Param request body RecalculateRequest true "Year and optional document scope"
// @Success 200 {object} Response{data=domain.Dashboard}
// @Failure 400 {object} ErrorResponseBody "Invalid year"
// @Failure 500 {object} ErrorResponseBody "Limit configuration missing"
// @Failure 503 {object} ErrorResponseBody "Persistence failure"
// @Router /limits/recalculate [post]
func (h *LimitsHandler) Recalculate(c *gin.Context) {
	tenantID, ok := extractTenant(c)
	if !ok {
		return
	}

	var req RecalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "year is required")
		return
	}
	year, err := domain.ParseYear(fmt.Sprint(req.Year))
	if err != nil {
		HandleError(c, err)
		return
	}

	dash, err := h.limitsService.RecalcLimits(c.Request.Context(), tenantID, year, req.DocIDs)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, dash)
}

// Dashboard handles GET /api/v1/limits/dashboard
// @Summary Get the compliance dashboard
// @Tags limits
// @Produce json
// @Param X-Tenant-ID header string true "Tenant"
// @Param year query int true "Fiscal year"
// @Success 200 {object} Response{data=domain.Dashboard}
// @Failure 400 {object} ErrorResponseBody "Invalid year"
// @Failure 404 {object} ErrorResponseBody "No snapshots for the year"
// @Router /limits/dashboard [get]
func (h *LimitsHandler) Dashboard(c *gin.Context) {
	tenantID, ok := extractTenant(c)
	if !ok {
		return
	}
	year, ok := parseYear(c)
	if !ok {
		return
	}

	dash, err := h.limitsService.Dashboard(c.Request.Context(), tenantID, year)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, dash)
}

// Export handles GET /api/v1/limits/export
// @Summary Download the dashboard
// @Description Stream the monthly snapshots as an XLSX workbook or CSV file
// @Tags limits
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce text/csv
// @Param X-Tenant-ID header string true "Tenant"
// @Param year query int true "Fiscal year"
// @Param format query string false "xlsx or csv" default(xlsx)
// @Success 200 {file} file
// @Failure 404 {object} ErrorResponseBody "No snapshots for the year"
// @Router /limits/export [get]
func (h *LimitsHandler) Export(c *gin.Context) {
	tenantID, ok := extractTenant(c)
	if !ok {
		return
	}
	year, ok := parseYear(c)
	if !ok {
		return
	}
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_FORMAT", "format must be xlsx or csv")
		return
	}

	var buf bytes.Buffer
	dash, err := h.exportService.WriteDashboard(c.Request.Context(), &buf, tenantID, year, format)
	if err != nil {
		HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(dash, format)))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// PublishExport handles POST /api/v1/limits/export
// @Summary Publish the dashboard to object storage
// @Description Upload the export and return a presigned download link
// @Tags limits
// @Produce json
// @Param X-Tenant-ID header string true "Tenant"
// @Param year query int true "Fiscal year"
// @Param format query string false "xlsx or csv" default(xlsx)
// @Success 201 {object} Response{data=service.ExportResult}
// @Failure 404 {object} ErrorResponseBody "No snapshots for the year"
// @Failure 501 {object} ErrorResponseBody "Object storage not configured"
// @Router /limits/export [post]
func (h *LimitsHandler) PublishExport(c *gin.Context) {
	tenantID, ok := extractTenant(c)
	if !ok {
		return
	}
	year, ok := parseYear(c)
	if !ok {
		return
	}
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_FORMAT", "format must be xlsx or csv")
		return
	}

	res, err := h.exportService.PublishDashboard(c.Request.Context(), tenantID, year, format)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, res)
}
