package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"daily-bars/internal/domain"
	"daily-bars/internal/provider"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

// Daily bars cannot change until the next session, so the cached latest
// close keeps for a day.
const closeCacheTTL = 24 * time.Hour

type SeriesFetcher interface {
	FetchDailySeries(ctx context.Context, symbol string) ([]byte, error)
}

type BarWriter interface {
	UpsertBars(ctx context.Context, bars []domain.Bar) error
	GetBars(ctx context.Context, symbol string, limit int) ([]domain.Bar, error)
	GetIndicator(ctx context.Context, symbol string, column domain.IndicatorColumn, limit int) ([]domain.IndicatorPoint, error)
}

type QuotaReader interface {
	Load() (domain.QuotaState, error)
}

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// IngestService runs one symbol through fetch, normalize, and store, and
// serves the read paths behind the API and bot.
type IngestService struct {
	tracer  trace.Tracer
	fetcher SeriesFetcher
	repo    BarWriter
	quota   QuotaReader
	redis   RedisClient
}

func NewIngestService(
	tracer trace.Tracer,
	fetcher SeriesFetcher,
	repo BarWriter,
	quota QuotaReader,
	redisClient RedisClient,
) *IngestService {
	return &IngestService{
		tracer:  tracer,
		fetcher: fetcher,
		repo:    repo,
		quota:   quota,
		redis:   redisClient,
	}
}

// IngestDaily fetches, normalizes, and upserts the daily series for one
// symbol, returning how many bars were stored. Fetch and payload failures
// come back as errors for the scheduler to log; the symbol simply contributes
// no bars this cycle.
func (s *IngestService) IngestDaily(ctx context.Context, symbol string) (int, error) {
	ctx, span := s.tracer.Start(ctx, "ingest-service.ingest-daily")
	defer span.End()

	payload, err := s.fetcher.FetchDailySeries(ctx, symbol)
	if err != nil {
		return 0, err
	}

	bars, err := provider.NormalizeDailySeries(symbol, payload)
	if err != nil {
		return 0, err
	}

	if err := s.repo.UpsertBars(ctx, bars); err != nil {
		return 0, fmt.Errorf("upsert bars for %s: %w", symbol, err)
	}

	if s.redis != nil && len(bars) > 0 {
		latest := bars[len(bars)-1]
		if err := s.setCloseCache(ctx, latest); err != nil {
			log.Printf("redis cache write error for %s: %v", symbol, err)
		}
	}

	log.Printf("ingested %d bars for %s", len(bars), symbol)
	return len(bars), nil
}

// LatestClose returns the most recent close for a symbol, preferring the
// Redis cache and falling back to the store.
func (s *IngestService) LatestClose(ctx context.Context, symbol string) (domain.ClosePoint, error) {
	ctx, span := s.tracer.Start(ctx, "ingest-service.latest-close")
	defer span.End()

	if s.redis != nil {
		cached, err := s.getCloseCache(ctx, symbol)
		if err != nil {
			log.Printf("redis cache read error for %s: %v", symbol, err)
		}
		if cached != nil {
			return *cached, nil
		}
	}

	bars, err := s.repo.GetBars(ctx, symbol, 1)
	if err != nil {
		return domain.ClosePoint{}, err
	}
	if len(bars) == 0 {
		return domain.ClosePoint{}, fmt.Errorf("no bars stored for %s", symbol)
	}
	return domain.ClosePoint{Date: bars[0].Date, Close: bars[0].Close}, nil
}

// GetBars returns recent bars for the API surface.
func (s *IngestService) GetBars(ctx context.Context, symbol string, limit int) ([]domain.Bar, error) {
	return s.repo.GetBars(ctx, symbol, limit)
}

// GetIndicator returns recent defined values of one indicator column.
func (s *IngestService) GetIndicator(ctx context.Context, symbol string, column domain.IndicatorColumn, limit int) ([]domain.IndicatorPoint, error) {
	return s.repo.GetIndicator(ctx, symbol, column, limit)
}

// QuotaStatus reads the persisted quota state for the API and bot.
func (s *IngestService) QuotaStatus(ctx context.Context) (domain.QuotaState, error) {
	_, span := s.tracer.Start(ctx, "ingest-service.quota-status")
	defer span.End()
	return s.quota.Load()
}

func (s *IngestService) setCloseCache(ctx context.Context, bar domain.Bar) error {
	point := domain.ClosePoint{Date: bar.Date, Close: bar.Close}
	data, err := json.Marshal(point)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, "close:"+bar.Symbol, data, closeCacheTTL).Err()
}

func (s *IngestService) getCloseCache(ctx context.Context, symbol string) (*domain.ClosePoint, error) {
	data, err := s.redis.Get(ctx, "close:"+symbol).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var point domain.ClosePoint
	if err := json.Unmarshal(data, &point); err != nil {
		return nil, err
	}
	return &point, nil
}
