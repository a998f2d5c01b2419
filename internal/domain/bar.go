package domain

import "time"

// Bar is one day's OHLCV record for a symbol. (Date, Symbol) is the natural
// key; re-ingesting the same key overwrites prices and volume, never
// duplicates rows.
type Bar struct {
	Date   time.Time `json:"date"`
	Symbol string    `json:"symbol"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// ClosePoint is one element of a symbol's ascending close-price history.
type ClosePoint struct {
	Date  time.Time
	Close float64
}

// IndicatorPoint is a single derived value destined for one indicator column
// on the (Date, Symbol) row. Writing it must never disturb other columns.
type IndicatorPoint struct {
	Date   time.Time `json:"date"`
	Symbol string    `json:"symbol"`
	Value  float64   `json:"value"`
}

// IndicatorColumn names a derived column on the bars table. The set is
// closed: column names are never built from caller input.
type IndicatorColumn string

const (
	ColumnRSI           IndicatorColumn = "rsi"
	ColumnMovingAverage IndicatorColumn = "moving_average"
)

// IndicatorColumns lists every known derived column, in backfill order.
var IndicatorColumns = []IndicatorColumn{ColumnRSI, ColumnMovingAverage}

func (c IndicatorColumn) Valid() bool {
	for _, known := range IndicatorColumns {
		if c == known {
			return true
		}
	}
	return false
}

// DefaultSymbols is the symbol set ingested when SYMBOLS is not configured.
var DefaultSymbols = []string{"NVDA", "AMD"}

// KnownSymbol reports whether symbol is part of the configured set.
func KnownSymbol(symbols []string, symbol string) bool {
	for _, s := range symbols {
		if s == symbol {
			return true
		}
	}
	return false
}

// DateOnly truncates t to its UTC calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
