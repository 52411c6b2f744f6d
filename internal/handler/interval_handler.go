package handler

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/models"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/service"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/pkg/response"
)

// IntervalHandler handles HTTP requests for classified intervals
type IntervalHandler struct {
	intervalService *service.IntervalService
}

// NewIntervalHandler creates a new interval handler
func NewIntervalHandler(intervalService *service.IntervalService) *IntervalHandler {
	return &IntervalHandler{
		intervalService: intervalService,
	}
}

// GetIntervals handles GET /api/v1/intervals
func (h *IntervalHandler) GetIntervals(c *gin.Context) {
	var filter models.IntervalFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	result, err := h.intervalService.List(filter)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, result)
}

// Export handles GET /api/v1/intervals/export
// Every matching row is written as CSV, or as a workbook with ?format=xlsx.
// Pagination is ignored.
func (h *IntervalHandler) Export(c *gin.Context) {
	var filter models.IntervalFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	format := c.DefaultQuery("format", service.ExportCSV)
	contentType := "text/csv; charset=utf-8"
	if format == service.ExportXLSX {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	name := fmt.Sprintf("loss_time_%s.%s", time.Now().Format("20060102_150405"), format)
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))

	if _, err := h.intervalService.Export(c.Request.Context(), filter, format, c.Writer); err != nil {
		if c.Writer.Written() {
			_ = c.Error(err)
			return
		}
		c.Header("Content-Type", "")
		c.Header("Content-Disposition", "")
		respondError(c, err)
	}
}
