package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/trace"
)

const alphaVantageBaseURL = "https://www.alphavantage.co/query"

// ErrTransport marks network or HTTP-level fetch failures, as opposed to a
// well-formed response with a missing or malformed series.
var ErrTransport = errors.New("provider transport error")

// AlphaVantageClient fetches daily time series from the Alpha Vantage API.
// Every request goes through the built-in rate limiter so the per-minute cap
// holds no matter who calls.
type AlphaVantageClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
	tracer  trace.Tracer
	limiter *RateLimiter
}

// NewAlphaVantageClient creates a client paced at one call per minDelay
// (12 seconds for the free tier's 5 calls/minute).
func NewAlphaVantageClient(tracer trace.Tracer, apiKey string, minDelay time.Duration) *AlphaVantageClient {
	return &AlphaVantageClient{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: alphaVantageBaseURL,
		apiKey:  apiKey,
		tracer:  tracer,
		limiter: NewRateLimiter(minDelay),
	}
}

// FetchDailySeries fetches the raw TIME_SERIES_DAILY payload for a symbol.
// Any non-2xx response or network failure wraps ErrTransport; the payload is
// returned undecoded for the normalizer.
func (c *AlphaVantageClient) FetchDailySeries(ctx context.Context, symbol string) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "alphavantage.fetch-daily-series")
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("function", "TIME_SERIES_DAILY")
	params.Set("symbol", symbol)
	params.Set("apikey", c.apiKey)
	params.Set("datatype", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", ErrTransport, symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: alphavantage status %d for %s: %s",
			ErrTransport, resp.StatusCode, symbol, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body for %s: %v", ErrTransport, symbol, err)
	}
	return body, nil
}
