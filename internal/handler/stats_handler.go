package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/models"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/service"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/pkg/response"
)

// StatsHandler handles HTTP requests for loss-time statistics
type StatsHandler struct {
	statsService *service.StatsService
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(statsService *service.StatsService) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
	}
}

func bindStatsFilter(c *gin.Context) (models.StatsFilter, bool) {
	var filter models.StatsFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return filter, false
	}
	return filter, true
}

// GetSummary handles GET /api/v1/stats/summary
func (h *StatsHandler) GetSummary(c *gin.Context) {
	filter, ok := bindStatsFilter(c)
	if !ok {
		return
	}

	summary, err := h.statsService.GetSummary(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, summary)
}

// GetTopPersons handles GET /api/v1/stats/top-persons
func (h *StatsHandler) GetTopPersons(c *gin.Context) {
	filter, ok := bindStatsFilter(c)
	if !ok {
		return
	}

	persons, err := h.statsService.GetTopPersons(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, persons)
}

// GetCategoryLoss handles GET /api/v1/stats/categories
func (h *StatsHandler) GetCategoryLoss(c *gin.Context) {
	filter, ok := bindStatsFilter(c)
	if !ok {
		return
	}

	categories, err := h.statsService.GetCategoryLoss(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, categories)
}

// GetHourlyDistribution handles GET /api/v1/stats/hourly
func (h *StatsHandler) GetHourlyDistribution(c *gin.Context) {
	filter, ok := bindStatsFilter(c)
	if !ok {
		return
	}

	buckets, err := h.statsService.GetHourlyDistribution(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, buckets)
}
