package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"daily-bars/internal/domain"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func closesOf(values ...float64) []domain.ClosePoint {
	points := make([]domain.ClosePoint, len(values))
	for i, v := range values {
		points[i] = domain.ClosePoint{Date: day(i + 1), Close: v}
	}
	return points
}

func TestBackfillDropsWarmup(t *testing.T) {
	t.Parallel()

	repo := &mockCloseRepo{closes: closesOf(1, 2, 3, 4, 5, 6)}
	svc := NewBackfillService(testTracer, repo, 3)

	written, err := svc.Backfill(context.Background(), "NVDA", domain.ColumnMovingAverage)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if written != 4 {
		t.Fatalf("expected 4 defined points for window 3 over 6 closes, got %d", written)
	}
	if repo.syncColumn != domain.ColumnMovingAverage {
		t.Fatalf("unexpected column: %s", repo.syncColumn)
	}
	if len(repo.syncArg) != 4 {
		t.Fatalf("expected 4 synced points, got %d", len(repo.syncArg))
	}
	// First defined SMA(3) over 1..6 is at the third close.
	first := repo.syncArg[0]
	if !first.Date.Equal(day(3)) || first.Value != 2 {
		t.Fatalf("unexpected first point: %+v", first)
	}
	for _, p := range repo.syncArg {
		if p.Symbol != "NVDA" {
			t.Fatalf("point missing symbol: %+v", p)
		}
	}
}

func TestBackfillNoData(t *testing.T) {
	t.Parallel()

	repo := &mockCloseRepo{}
	svc := NewBackfillService(testTracer, repo, 14)

	_, err := svc.Backfill(context.Background(), "NVDA", domain.ColumnRSI)
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if repo.syncCalls != 0 {
		t.Fatal("nothing should be synced without data")
	}
}

func TestBackfillShortHistoryWritesNothing(t *testing.T) {
	t.Parallel()

	// 10 bars cannot seed a 14-period RSI: the whole series is warm-up.
	repo := &mockCloseRepo{closes: closesOf(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)}
	svc := NewBackfillService(testTracer, repo, 14)

	written, err := svc.Backfill(context.Background(), "NVDA", domain.ColumnRSI)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if written != 0 || repo.syncCalls != 0 {
		t.Fatalf("expected zero points written, got %d after %d sync calls", written, repo.syncCalls)
	}
}

func TestBackfillPropagatesUnknownColumn(t *testing.T) {
	t.Parallel()

	repo := &mockCloseRepo{closes: closesOf(1, 2, 3)}
	svc := NewBackfillService(testTracer, repo, 2)

	if _, err := svc.Backfill(context.Background(), "NVDA", "volatility"); err == nil {
		t.Fatal("expected error for unmapped column")
	}
	if repo.syncCalls != 0 {
		t.Fatal("unmapped column must not reach the synchronizer")
	}
}

func TestBackfillReadError(t *testing.T) {
	t.Parallel()

	repo := &mockCloseRepo{closesErr: errors.New("store unavailable")}
	svc := NewBackfillService(testTracer, repo, 14)

	if _, err := svc.Backfill(context.Background(), "NVDA", domain.ColumnRSI); err == nil {
		t.Fatal("expected error when the store is unreachable")
	}
}

func TestBackfillAllContinuesPastFailures(t *testing.T) {
	t.Parallel()

	repo := &mockCloseRepo{
		closesBySymbol: map[string][]domain.ClosePoint{
			"AMD": closesOf(1, 2, 3, 4, 5),
		},
	}
	svc := NewBackfillService(testTracer, repo, 3)

	// NVDA has no data and fails; AMD must still be processed for both columns.
	svc.BackfillAll(context.Background(), []string{"NVDA", "AMD"})

	if repo.syncCalls != 2 {
		t.Fatalf("expected 2 sync calls for AMD's columns, got %d", repo.syncCalls)
	}
}

type mockCloseRepo struct {
	closes         []domain.ClosePoint
	closesBySymbol map[string][]domain.ClosePoint
	closesErr      error

	syncColumn domain.IndicatorColumn
	syncArg    []domain.IndicatorPoint
	syncErr    error
	syncCalls  int
}

func (m *mockCloseRepo) GetCloses(ctx context.Context, symbol string) ([]domain.ClosePoint, error) {
	if m.closesErr != nil {
		return nil, m.closesErr
	}
	if m.closesBySymbol != nil {
		return m.closesBySymbol[symbol], nil
	}
	return m.closes, nil
}

func (m *mockCloseRepo) SyncColumn(ctx context.Context, column domain.IndicatorColumn, points []domain.IndicatorPoint) (int, error) {
	m.syncCalls++
	m.syncColumn = column
	m.syncArg = points
	if m.syncErr != nil {
		return 0, m.syncErr
	}
	return len(points), nil
}
