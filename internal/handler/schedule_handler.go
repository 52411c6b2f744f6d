package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/schedule"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/pkg/response"
)

// ScheduleHandler exposes the shift/break table the server classifies with
type ScheduleHandler struct {
	file schedule.File
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(s *schedule.Schedule) *ScheduleHandler {
	return &ScheduleHandler{file: s.ToFile()}
}

// GetSchedule handles GET /api/v1/schedule
func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	response.Success(c, h.file)
}
