package handler

import (
	"net/http"
	"strconv"
	"strings"

	"daily-bars/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetBars returns the most recent stored bars for a symbol, newest first.
func (h *Handler) GetBars(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-bars")
	defer span.End()

	symbol := strings.ToUpper(c.Param("symbol"))
	span.SetAttributes(attribute.String("symbol", symbol))

	if !domain.KnownSymbol(h.symbols, symbol) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "unsupported symbol: " + symbol,
			"supported_symbols": h.symbols,
		})
		return
	}

	limit := 100
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	bars, err := h.bars.GetBars(ctx, symbol, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol": symbol,
		"bars":   bars,
	})
}

// GetIndicator returns recent defined values of one indicator column for a
// symbol. Rows inside the warm-up period are absent, not null.
func (h *Handler) GetIndicator(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-indicator")
	defer span.End()

	symbol := strings.ToUpper(c.Param("symbol"))
	span.SetAttributes(attribute.String("symbol", symbol))

	if !domain.KnownSymbol(h.symbols, symbol) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "unsupported symbol: " + symbol,
			"supported_symbols": h.symbols,
		})
		return
	}

	column := domain.IndicatorColumn(c.DefaultQuery("name", string(domain.ColumnRSI)))
	if !column.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "unsupported indicator: " + string(column),
			"supported_columns": domain.IndicatorColumns,
		})
		return
	}

	limit := 100
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	points, err := h.bars.GetIndicator(ctx, symbol, column, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":    symbol,
		"indicator": column,
		"points":    points,
	})
}
