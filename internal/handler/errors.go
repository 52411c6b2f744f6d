package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/service"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/pkg/response"
)

// respondError maps service errors onto the response envelope
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrConflict):
		response.Conflict(c, err.Error())
	default:
		_ = c.Error(err)
		response.InternalError(c, "internal server error")
	}
}
