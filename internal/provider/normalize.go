package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"daily-bars/internal/domain"
)

const dailySeriesKey = "Time Series (Daily)"

var (
	// ErrMissingSeries means the payload decoded fine but carries no time
	// series. Alpha Vantage returns 200 with an informational body for
	// unknown symbols and throttled keys, so this is distinct from ErrTransport.
	ErrMissingSeries = errors.New("time series missing from payload")

	// ErrMalformedRecord means a per-date entry could not be coerced to the
	// expected date and numeric types.
	ErrMalformedRecord = errors.New("malformed time series record")
)

// dailyEntry mirrors one dated record of the TIME_SERIES_DAILY payload.
// Alpha Vantage sends every numeric field as a string.
type dailyEntry struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

// NormalizeDailySeries maps a raw TIME_SERIES_DAILY payload to bars sorted
// ascending by date. The payload keys its records by date with no ordering
// guarantee, so the sort here is what the rest of the pipeline relies on.
func NormalizeDailySeries(symbol string, payload []byte) ([]domain.Bar, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingSeries, err)
	}

	raw, ok := envelope[dailySeriesKey]
	if !ok {
		return nil, fmt.Errorf("%w: no %q key for %s", ErrMissingSeries, dailySeriesKey, symbol)
	}

	var series map[string]dailyEntry
	if err := json.Unmarshal(raw, &series); err != nil {
		return nil, fmt.Errorf("%w: decode series for %s: %v", ErrMalformedRecord, symbol, err)
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: empty series for %s", ErrMissingSeries, symbol)
	}

	bars := make([]domain.Bar, 0, len(series))
	for date, entry := range series {
		bar, err := normalizeEntry(symbol, date, entry)
		if err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

func normalizeEntry(symbol, date string, entry dailyEntry) (domain.Bar, error) {
	day, err := time.ParseInLocation("2006-01-02", date, time.UTC)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("%w: bad date %q for %s", ErrMalformedRecord, date, symbol)
	}

	bar := domain.Bar{Date: day, Symbol: symbol}
	fields := []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"open", entry.Open, &bar.Open},
		{"high", entry.High, &bar.High},
		{"low", entry.Low, &bar.Low},
		{"close", entry.Close, &bar.Close},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(f.raw, 64)
		if err != nil {
			return domain.Bar{}, fmt.Errorf("%w: %s %s=%q for %s", ErrMalformedRecord, date, f.name, f.raw, symbol)
		}
		*f.dst = v
	}

	volume, err := strconv.ParseInt(entry.Volume, 10, 64)
	if err != nil || volume < 0 {
		return domain.Bar{}, fmt.Errorf("%w: %s volume=%q for %s", ErrMalformedRecord, date, entry.Volume, symbol)
	}
	bar.Volume = volume

	return bar, nil
}
