package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health reports the service's health status.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
