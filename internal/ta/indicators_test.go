package ta

import (
	"math"
	"testing"
)

func TestSMASeriesWarmup(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}
	series := SMASeries(closes, 3)
	if len(series) != len(closes) {
		t.Fatalf("series length %d, want %d", len(series), len(closes))
	}
	for i := 0; i < 2; i++ {
		if !math.IsNaN(series[i]) {
			t.Fatalf("position %d should be NaN during warm-up, got %f", i, series[i])
		}
	}
	if series[2] != 2 || series[3] != 3 || series[4] != 4 {
		t.Fatalf("unexpected SMA values: %v", series)
	}
}

func TestSMASeriesWindowOne(t *testing.T) {
	closes := []float64{5, 7, 9}
	series := SMASeries(closes, 1)
	for i, v := range series {
		if v != closes[i] {
			t.Fatalf("window 1 should echo input at %d: got %f", i, v)
		}
	}
}

func TestSMASeriesEmpty(t *testing.T) {
	if SMASeries(nil, 3) != nil {
		t.Fatal("empty input should yield nil")
	}
	if SMASeries([]float64{1, 2}, 0) != nil {
		t.Fatal("non-positive window should yield nil")
	}
}

func TestRSISeriesWarmup(t *testing.T) {
	closes := []float64{44, 44.5, 44.2, 44.8, 45.1, 45.0, 45.6, 46.2, 45.9, 46.5,
		46.3, 46.8, 47.1, 46.9, 47.5}
	series := RSISeries(closes, 14)
	if len(series) != len(closes) {
		t.Fatalf("series length %d, want %d", len(series), len(closes))
	}
	for i := 0; i < 14; i++ {
		if !math.IsNaN(series[i]) {
			t.Fatalf("position %d should be NaN during warm-up, got %f", i, series[i])
		}
	}
	if math.IsNaN(series[14]) {
		t.Fatal("first defined value missing")
	}
	if series[14] <= 0 || series[14] >= 100 {
		t.Fatalf("RSI out of range: %f", series[14])
	}
}

func TestRSISeriesTooShort(t *testing.T) {
	// 10 closes cannot seed a 14-period RSI.
	closes := make([]float64, 10)
	for i := range closes {
		closes[i] = float64(100 + i)
	}
	if RSISeries(closes, 14) != nil {
		t.Fatal("expected nil series for insufficient history")
	}
}

func TestRSISeriesAllGains(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5, 6}
	series := RSISeries(closes, 3)
	if series[3] != 100 {
		t.Fatalf("monotonic gains should pin RSI at 100, got %f", series[3])
	}
}

func TestRSISeriesAllLosses(t *testing.T) {
	closes := []float64{6, 5, 4, 3, 2, 1}
	series := RSISeries(closes, 3)
	if series[3] != 0 {
		t.Fatalf("monotonic losses should pin RSI at 0, got %f", series[3])
	}
}
