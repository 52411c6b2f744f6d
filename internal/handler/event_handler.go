package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/models"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/service"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/pkg/response"
)

// EventHandler handles HTTP requests for badge events
type EventHandler struct {
	eventService *service.EventService
}

// NewEventHandler creates a new event handler
func NewEventHandler(eventService *service.EventService) *EventHandler {
	return &EventHandler{
		eventService: eventService,
	}
}

// Import handles POST /api/v1/events/import
// The CSV or xlsx export is sent as the multipart field "file".
func (h *EventHandler) Import(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "Missing file field")
		return
	}

	file, err := header.Open()
	if err != nil {
		response.BadRequest(c, "Unreadable upload")
		return
	}
	defer file.Close()

	report, err := h.eventService.Import(c.Request.Context(), header.Filename, file)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, report)
}

// GetEvents handles GET /api/v1/events
func (h *EventHandler) GetEvents(c *gin.Context) {
	var filter models.EventFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	result, err := h.eventService.List(filter)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, result)
}
