package handler

import (
	"context"

	"daily-bars/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

// BarReader is the slice of the ingest service the API needs.
type BarReader interface {
	GetBars(ctx context.Context, symbol string, limit int) ([]domain.Bar, error)
	GetIndicator(ctx context.Context, symbol string, column domain.IndicatorColumn, limit int) ([]domain.IndicatorPoint, error)
	LatestClose(ctx context.Context, symbol string) (domain.ClosePoint, error)
	QuotaStatus(ctx context.Context) (domain.QuotaState, error)
}

type Handler struct {
	tracer         trace.Tracer
	bars           BarReader
	symbols        []string
	maxCallsPerDay int
}

func New(tracer trace.Tracer, bars BarReader, symbols []string, maxCallsPerDay int) *Handler {
	return &Handler{
		tracer:         tracer,
		bars:           bars,
		symbols:        symbols,
		maxCallsPerDay: maxCallsPerDay,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/api/bars/:symbol", h.GetBars)
	r.GET("/api/indicators/:symbol", h.GetIndicator)
	r.GET("/api/quota", h.GetQuota)
}
