package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetQuota reports today's API-call usage against the daily cap.
func (h *Handler) GetQuota(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-quota")
	defer span.End()

	state, err := h.bars.QuotaStatus(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	remaining := h.maxCallsPerDay - state.CallsMade
	if remaining < 0 {
		remaining = 0
	}

	c.JSON(http.StatusOK, gin.H{
		"day":        state.Day.Format("2006-01-02"),
		"calls_made": state.CallsMade,
		"cap":        h.maxCallsPerDay,
		"remaining":  remaining,
	})
}
