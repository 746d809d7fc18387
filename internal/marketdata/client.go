package marketdata

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/stockpulse/stockpulse/config"
)

// Sentinel errors for API-level failures. Anything else returned by Fetch
// (DNS, timeout, non-2xx status) is a transport failure.
var (
	// ErrRateLimited is returned when the API signals quota exhaustion.
	// Alpha Vantage reports this with HTTP 200 and an "Information" or
	// "Note" field in the body instead of an error status.
	ErrRateLimited = errors.New("api rate limit reached")

	// ErrMalformedResponse is returned when the expected time-series key
	// is absent from the body, or the API reports an error message.
	ErrMalformedResponse = errors.New("malformed time series response")
)

// symbolPattern matches the configured ticker format: uppercase letters,
// optionally followed by digits, dots or hyphens (e.g. "AAPL", "BRK.B").
var symbolPattern = regexp.MustCompile(`^[A-Z][A-Z0-9.\-]{0,9}$`)

// DailyQuote is one date entry of the raw payload. All numeric fields are
// string-encoded by the API; the transformer parses them into typed values.
type DailyQuote struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

// TimeSeriesResponse is the raw payload of the TIME_SERIES_DAILY endpoint
// for one symbol. It is transient: consumed entirely by the transformer.
type TimeSeriesResponse struct {
	MetaData     map[string]string     `json:"Meta Data"`
	Series       map[string]DailyQuote `json:"Time Series (Daily)"`
	Note         string                `json:"Note"`
	Information  string                `json:"Information"`
	ErrorMessage string                `json:"Error Message"`
}

// Fetcher fetches the raw daily time series for one symbol.
type Fetcher interface {
	Fetch(ctx context.Context, symbol string) (*TimeSeriesResponse, error)
}

// Client is the Alpha Vantage implementation of Fetcher. It is stateless
// between calls: one GET per Fetch, no retry, no local caching.
type Client struct {
	http       *resty.Client
	apiKey     string
	outputSize string
}

var _ Fetcher = (*Client)(nil)

// NewClient builds a Client from configuration. The API key is injected
// here rather than read from the environment so tests can use fixture
// credentials against a local server.
func NewClient(cfg config.AlphaVantageConfig) *Client {
	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second)

	return &Client{
		http:       rc,
		apiKey:     cfg.APIKey,
		outputSize: cfg.OutputSize,
	}
}

// Fetch issues one GET to the TIME_SERIES_DAILY endpoint for the given
// symbol and returns the decoded raw payload.
//
// Error conditions:
//   - transport failure (network/DNS/timeout, or a non-2xx status)
//   - ErrRateLimited when the 200 body carries an Information/Note field
//   - ErrMalformedResponse when the series key is absent or the API
//     reports an "Error Message"
func (c *Client) Fetch(ctx context.Context, symbol string) (*TimeSeriesResponse, error) {
	if !symbolPattern.MatchString(symbol) {
		return nil, fmt.Errorf("invalid symbol %q", symbol)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function":   "TIME_SERIES_DAILY",
			"symbol":     symbol,
			"outputsize": c.outputSize,
			"apikey":     c.apiKey,
		}).
		SetResult(&TimeSeriesResponse{}).
		Get("/query")
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", symbol, resp.StatusCode())
	}

	body, ok := resp.Result().(*TimeSeriesResponse)
	if !ok || body == nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, ErrMalformedResponse)
	}

	// The API returns 200 even when throttled; the body tells the truth.
	if body.Information != "" {
		return nil, fmt.Errorf("fetch %s: %w: %s", symbol, ErrRateLimited, body.Information)
	}
	if body.Note != "" {
		return nil, fmt.Errorf("fetch %s: %w: %s", symbol, ErrRateLimited, body.Note)
	}
	if body.ErrorMessage != "" {
		return nil, fmt.Errorf("fetch %s: %w: %s", symbol, ErrMalformedResponse, body.ErrorMessage)
	}
	if len(body.Series) == 0 {
		return nil, fmt.Errorf("fetch %s: %w: missing %q key", symbol, ErrMalformedResponse, "Time Series (Daily)")
	}

	return body, nil
}
