package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"daily-bars/internal/domain"
	"daily-bars/internal/ta"

	"go.opentelemetry.io/otel/trace"
)

// ErrNoData means a symbol has no stored bars to compute indicators from.
var ErrNoData = errors.New("no stored bars for symbol")

type CloseReader interface {
	GetCloses(ctx context.Context, symbol string) ([]domain.ClosePoint, error)
	SyncColumn(ctx context.Context, column domain.IndicatorColumn, points []domain.IndicatorPoint) (int, error)
}

// BackfillService recomputes indicator columns from the full stored close
// history and writes them through the column synchronizer.
type BackfillService struct {
	tracer trace.Tracer
	repo   CloseReader
	window int
}

func NewBackfillService(tracer trace.Tracer, repo CloseReader, window int) *BackfillService {
	return &BackfillService{tracer: tracer, repo: repo, window: window}
}

// Backfill computes one indicator column for one symbol and syncs the defined
// values. Warm-up positions (NaN) are dropped, never written as sentinels.
// Returns the number of points written.
func (s *BackfillService) Backfill(ctx context.Context, symbol string, column domain.IndicatorColumn) (int, error) {
	ctx, span := s.tracer.Start(ctx, "backfill-service.backfill")
	defer span.End()

	closes, err := s.repo.GetCloses(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("read closes for %s: %w", symbol, err)
	}
	if len(closes) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoData, symbol)
	}

	values := make([]float64, len(closes))
	for i, c := range closes {
		values[i] = c.Close
	}

	series, err := s.computeSeries(column, values)
	if err != nil {
		return 0, err
	}

	points := make([]domain.IndicatorPoint, 0, len(series))
	for i, v := range series {
		if math.IsNaN(v) {
			continue
		}
		points = append(points, domain.IndicatorPoint{
			Date:   closes[i].Date,
			Symbol: symbol,
			Value:  v,
		})
	}
	if len(points) == 0 {
		log.Printf("%s for %s: %d bars is inside the warm-up period, nothing to write", column, symbol, len(closes))
		return 0, nil
	}

	written, err := s.repo.SyncColumn(ctx, column, points)
	if err != nil {
		return 0, fmt.Errorf("sync %s for %s: %w", column, symbol, err)
	}
	return written, nil
}

// BackfillAll runs every configured symbol through every indicator column.
// Per-unit failures are logged and skipped; the rest of the pass continues.
func (s *BackfillService) BackfillAll(ctx context.Context, symbols []string) {
	ctx, span := s.tracer.Start(ctx, "backfill-service.backfill-all")
	defer span.End()

	for _, symbol := range symbols {
		for _, column := range domain.IndicatorColumns {
			written, err := s.Backfill(ctx, symbol, column)
			if err != nil {
				log.Printf("backfill %s for %s: %v", column, symbol, err)
				continue
			}
			log.Printf("backfilled %d %s points for %s", written, column, symbol)
		}
	}
}

func (s *BackfillService) computeSeries(column domain.IndicatorColumn, closes []float64) ([]float64, error) {
	switch column {
	case domain.ColumnRSI:
		return ta.RSISeries(closes, s.window), nil
	case domain.ColumnMovingAverage:
		return ta.SMASeries(closes, s.window), nil
	default:
		return nil, fmt.Errorf("no indicator mapped to column %q", column)
	}
}
