package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"daily-bars/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

func TestSyncColumnRejectsUnknownColumn(t *testing.T) {
	pool := &fakePool{}
	repo := NewBarRepository(pool, testTracer)

	_, err := repo.SyncColumn(context.Background(), "volume; --", []domain.IndicatorPoint{
		{Date: time.Now(), Symbol: "NVDA", Value: 1},
	})
	if !errors.Is(err, ErrUnknownColumn) {
		t.Fatalf("expected ErrUnknownColumn, got %v", err)
	}
	if len(pool.execSQL) != 0 {
		t.Fatal("no SQL should run for an unknown column")
	}
}

func TestSyncColumnTargetsOnlyThatColumn(t *testing.T) {
	pool := &fakePool{}
	repo := NewBarRepository(pool, testTracer)

	points := []domain.IndicatorPoint{
		{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Symbol: "NVDA", Value: 55.2},
	}
	written, err := repo.SyncColumn(context.Background(), domain.ColumnRSI, points)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if written != 1 {
		t.Fatalf("expected 1 written, got %d", written)
	}
	if len(pool.execSQL) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(pool.execSQL))
	}

	stmt := pool.execSQL[0]
	if !strings.Contains(stmt, "SET rsi = EXCLUDED.rsi") {
		t.Fatalf("statement should update only rsi: %s", stmt)
	}
	for _, other := range []string{"moving_average", "open =", "close =", "volume ="} {
		if strings.Contains(stmt, other) {
			t.Fatalf("rsi sync must not touch %q: %s", other, stmt)
		}
	}
	if got := pool.execArgs[0]; got[1] != "NVDA" || got[2] != 55.2 {
		t.Fatalf("unexpected args: %v", got)
	}
}

func TestSyncColumnIdempotentStatements(t *testing.T) {
	pool := &fakePool{}
	repo := NewBarRepository(pool, testTracer)
	points := []domain.IndicatorPoint{
		{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Symbol: "AMD", Value: 40},
		{Date: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), Symbol: "AMD", Value: 42},
	}

	if _, err := repo.SyncColumn(context.Background(), domain.ColumnMovingAverage, points); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first := append([]string(nil), pool.execSQL...)

	if _, err := repo.SyncColumn(context.Background(), domain.ColumnMovingAverage, points); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second := pool.execSQL[len(first):]

	if len(first) != len(second) {
		t.Fatalf("reruns should issue the same statements: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("statement %d differs between runs", i)
		}
		if !strings.Contains(first[i], "ON CONFLICT (date, symbol) DO UPDATE") {
			t.Fatalf("statement %d is not an upsert: %s", i, first[i])
		}
	}
}

func TestSyncColumnSkipsFailedRows(t *testing.T) {
	pool := &fakePool{execErrs: map[int]error{1: errors.New("constraint violation")}}
	repo := NewBarRepository(pool, testTracer)
	points := []domain.IndicatorPoint{
		{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Symbol: "NVDA", Value: 1},
		{Date: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), Symbol: "NVDA", Value: 2},
		{Date: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), Symbol: "NVDA", Value: 3},
	}

	written, err := repo.SyncColumn(context.Background(), domain.ColumnRSI, points)
	if err != nil {
		t.Fatalf("a failed row must not fail the batch: %v", err)
	}
	if written != 2 {
		t.Fatalf("expected 2 written after one skip, got %d", written)
	}
	if len(pool.execSQL) != 3 {
		t.Fatalf("all rows should be attempted, got %d", len(pool.execSQL))
	}
}

func TestSyncColumnEmptyBatch(t *testing.T) {
	pool := &fakePool{}
	repo := NewBarRepository(pool, testTracer)

	written, err := repo.SyncColumn(context.Background(), domain.ColumnRSI, nil)
	if err != nil || written != 0 {
		t.Fatalf("empty batch should be a no-op, got %d, %v", written, err)
	}
}

func TestUpsertBarsBatchesAllRows(t *testing.T) {
	pool := &fakePool{}
	repo := NewBarRepository(pool, testTracer)
	bars := []domain.Bar{
		{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Symbol: "NVDA", Open: 80, High: 82.5, Low: 79.1, Close: 82.2, Volume: 47000000},
		{Date: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), Symbol: "NVDA", Open: 84.1, High: 85, Low: 83.2, Close: 84.9, Volume: 51000000},
	}

	if err := repo.UpsertBars(context.Background(), bars); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pool.lastBatch == nil || pool.lastBatch.Len() != 2 {
		t.Fatalf("expected 2 queued statements, got %+v", pool.lastBatch)
	}
}

func TestUpsertBarsEmpty(t *testing.T) {
	pool := &fakePool{}
	repo := NewBarRepository(pool, testTracer)

	if err := repo.UpsertBars(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pool.lastBatch != nil {
		t.Fatal("no batch should be sent for zero bars")
	}
}

func TestGetClosesAscending(t *testing.T) {
	pool := &fakePool{
		queryRows: &fakeRows{rows: [][]any{
			{time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 82.2},
			{time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), 84.9},
		}},
	}
	repo := NewBarRepository(pool, testTracer)

	closes, err := repo.GetCloses(context.Background(), "NVDA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(closes) != 2 || closes[0].Close != 82.2 || closes[1].Close != 84.9 {
		t.Fatalf("unexpected closes: %+v", closes)
	}
	if !strings.Contains(pool.lastQuerySQL, "ORDER BY date ASC") {
		t.Fatalf("closes must be read ascending: %s", pool.lastQuerySQL)
	}
}

func TestGetIndicatorRejectsUnknownColumn(t *testing.T) {
	repo := NewBarRepository(&fakePool{}, testTracer)

	_, err := repo.GetIndicator(context.Background(), "NVDA", "sharpe", 10)
	if !errors.Is(err, ErrUnknownColumn) {
		t.Fatalf("expected ErrUnknownColumn, got %v", err)
	}
}

func TestGetIndicatorFiltersNulls(t *testing.T) {
	pool := &fakePool{queryRows: &fakeRows{}}
	repo := NewBarRepository(pool, testTracer)

	if _, err := repo.GetIndicator(context.Background(), "NVDA", domain.ColumnRSI, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(pool.lastQuerySQL, "rsi IS NOT NULL") {
		t.Fatalf("indicator read should skip warm-up rows: %s", pool.lastQuerySQL)
	}
}

// fakePool records SQL issued through the repository.
type fakePool struct {
	execSQL  []string
	execArgs [][]any
	execErrs map[int]error

	lastBatch *pgx.Batch
	batchErr  error

	queryRows    *fakeRows
	queryErr     error
	lastQuerySQL string
}

func (p *fakePool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	idx := len(p.execSQL)
	p.execSQL = append(p.execSQL, sql)
	p.execArgs = append(p.execArgs, args)
	if err, ok := p.execErrs[idx]; ok {
		return pgconn.CommandTag{}, err
	}
	return pgconn.CommandTag{}, nil
}

func (p *fakePool) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	p.lastBatch = b
	return &fakeBatchResults{n: b.Len(), err: p.batchErr}
}

func (p *fakePool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	p.lastQuerySQL = sql
	if p.queryErr != nil {
		return nil, p.queryErr
	}
	if p.queryRows == nil {
		return &fakeRows{}, nil
	}
	return p.queryRows, nil
}

type fakeBatchResults struct {
	n    int
	used int
	err  error
}

func (b *fakeBatchResults) Exec() (pgconn.CommandTag, error) {
	b.used++
	if b.err != nil {
		return pgconn.CommandTag{}, b.err
	}
	return pgconn.CommandTag{}, nil
}

func (b *fakeBatchResults) Query() (pgx.Rows, error) { return &fakeRows{}, b.err }
func (b *fakeBatchResults) QueryRow() pgx.Row        { return &fakeRows{} }
func (b *fakeBatchResults) Close() error             { return nil }

type fakeRows struct {
	rows [][]any
	idx  int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.idx-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan arity mismatch: %d vs %d", len(dest), len(row))
	}
	for i, d := range dest {
		switch v := row[i].(type) {
		case time.Time:
			*d.(*time.Time) = v
		case float64:
			*d.(*float64) = v
		case int64:
			*d.(*int64) = v
		case string:
			*d.(*string) = v
		default:
			return fmt.Errorf("unsupported fake scan type %T", v)
		}
	}
	return nil
}

func (r *fakeRows) Values() ([]any, error)  { return nil, nil }
func (r *fakeRows) RawValues() [][]byte     { return nil }
func (r *fakeRows) Conn() *pgx.Conn         { return nil }
