package repository

import (
	"context"
	"errors"
	"fmt"
	"log"

	"daily-bars/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

// ErrUnknownColumn means a column sync was requested for a name outside the
// closed indicator-column set. A typo must fail loudly instead of silently
// creating or clobbering a column.
var ErrUnknownColumn = errors.New("unknown indicator column")

// Price and volume columns stay nullable: a column sync may create the row
// before its OHLCV has ever been ingested.
const createBarsTable = `
CREATE TABLE IF NOT EXISTS bars (
    date    DATE NOT NULL,
    symbol  TEXT NOT NULL,
    open    DOUBLE PRECISION,
    high    DOUBLE PRECISION,
    low     DOUBLE PRECISION,
    close   DOUBLE PRECISION,
    volume  BIGINT,
    PRIMARY KEY (date, symbol)
);

CREATE INDEX IF NOT EXISTS idx_bars_symbol_date
    ON bars (symbol, date);
`

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type BarRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewBarRepository(pool PgxPool, tracer trace.Tracer) *BarRepository {
	return &BarRepository{pool: pool, tracer: tracer}
}

func (r *BarRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "bar-repo.run-migrations")
	defer span.End()

	if _, err := r.pool.Exec(ctx, createBarsTable); err != nil {
		return err
	}
	// Indicator columns are added on first use, so bars created by an older
	// schema pick them up here.
	for _, column := range domain.IndicatorColumns {
		stmt := fmt.Sprintf(`ALTER TABLE bars ADD COLUMN IF NOT EXISTS %s DOUBLE PRECISION`, column)
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("add column %s: %w", column, err)
		}
	}
	return nil
}

// UpsertBars writes full OHLCV rows keyed by (date, symbol). Conflicting rows
// get their price and volume fields replaced; indicator columns are left
// untouched. Re-running with the same bars is a no-op.
func (r *BarRepository) UpsertBars(ctx context.Context, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	_, span := r.tracer.Start(ctx, "bar-repo.upsert-bars")
	defer span.End()

	batch := &pgx.Batch{}
	for _, b := range bars {
		batch.Queue(
			`INSERT INTO bars (date, symbol, open, high, low, close, volume)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (date, symbol) DO UPDATE SET
			     open = EXCLUDED.open,
			     high = EXCLUDED.high,
			     low = EXCLUDED.low,
			     close = EXCLUDED.close,
			     volume = EXCLUDED.volume`,
			b.Date, b.Symbol, b.Open, b.High, b.Low, b.Close, b.Volume,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range bars {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// SyncColumn upserts a single indicator column for each point without
// touching any other column on the row. A point that fails is logged and
// skipped so one bad row never sinks the batch. Returns the number of points
// written.
func (r *BarRepository) SyncColumn(ctx context.Context, column domain.IndicatorColumn, points []domain.IndicatorPoint) (int, error) {
	if !column.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}
	if len(points) == 0 {
		return 0, nil
	}

	_, span := r.tracer.Start(ctx, "bar-repo.sync-column")
	defer span.End()

	// column comes from the closed set above, never from caller input.
	stmt := fmt.Sprintf(
		`INSERT INTO bars (date, symbol, %[1]s)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (date, symbol) DO UPDATE SET %[1]s = EXCLUDED.%[1]s`,
		column,
	)

	written := 0
	for _, p := range points {
		if _, err := r.pool.Exec(ctx, stmt, p.Date, p.Symbol, p.Value); err != nil {
			log.Printf("sync %s for %s %s failed, skipping row: %v",
				column, p.Symbol, p.Date.Format("2006-01-02"), err)
			continue
		}
		written++
	}
	return written, nil
}

// GetCloses returns the full (date, close) history for a symbol, ascending.
func (r *BarRepository) GetCloses(ctx context.Context, symbol string) ([]domain.ClosePoint, error) {
	_, span := r.tracer.Start(ctx, "bar-repo.get-closes")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT date, close
		 FROM bars
		 WHERE symbol = $1 AND close IS NOT NULL
		 ORDER BY date ASC`,
		symbol,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var closes []domain.ClosePoint
	for rows.Next() {
		var p domain.ClosePoint
		if err := rows.Scan(&p.Date, &p.Close); err != nil {
			return nil, err
		}
		closes = append(closes, p)
	}
	return closes, rows.Err()
}

// GetBars returns the most recent bars for a symbol, newest first.
func (r *BarRepository) GetBars(ctx context.Context, symbol string, limit int) ([]domain.Bar, error) {
	_, span := r.tracer.Start(ctx, "bar-repo.get-bars")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT date, symbol, open, high, low, close, volume
		 FROM bars
		 WHERE symbol = $1 AND close IS NOT NULL
		 ORDER BY date DESC
		 LIMIT $2`,
		symbol, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []domain.Bar
	for rows.Next() {
		var b domain.Bar
		if err := rows.Scan(&b.Date, &b.Symbol, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// GetIndicator returns the most recent defined values of one indicator
// column, newest first. Warm-up rows are absent, not NULL-filled.
func (r *BarRepository) GetIndicator(ctx context.Context, symbol string, column domain.IndicatorColumn, limit int) ([]domain.IndicatorPoint, error) {
	if !column.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}

	_, span := r.tracer.Start(ctx, "bar-repo.get-indicator")
	defer span.End()

	stmt := fmt.Sprintf(
		`SELECT date, symbol, %[1]s
		 FROM bars
		 WHERE symbol = $1 AND %[1]s IS NOT NULL
		 ORDER BY date DESC
		 LIMIT $2`,
		column,
	)

	rows, err := r.pool.Query(ctx, stmt, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []domain.IndicatorPoint
	for rows.Next() {
		var p domain.IndicatorPoint
		if err := rows.Scan(&p.Date, &p.Symbol, &p.Value); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}
