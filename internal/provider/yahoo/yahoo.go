// Package yahoo fetches historical OHLCV bars from the Yahoo Finance chart
// API. It is the default HistoryProvider: retries with exponential backoff,
// rate limits requests, and returns bars ordered by timestamp.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/replaykit/replay/internal/core"
)

const defaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// validSymbol matches symbols like AAPL, MSFT, QQQ, 0700.HK.
var validSymbol = regexp.MustCompile(`^[A-Za-z0-9^.\-]{1,12}$`)

// Client is a rate-limited, retrying chart API client.
type Client struct {
	http        *http.Client
	limiter     *rate.Limiter
	logger      *zap.Logger
	baseURL     string
	maxAttempts int
	backoff     time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithRateLimit caps outgoing requests per minute.
func WithRateLimit(perMinute int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 1)
	}
}

// WithRetry sets the attempt count and base backoff delay.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(c *Client) {
		c.maxAttempts = attempts
		c.backoff = backoff
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a Client with a 10s request timeout, 3 attempts and a 2s base
// backoff.
func New(opts ...Option) *Client {
	c := &Client{
		http:        &http.Client{Timeout: 10 * time.Second},
		limiter:     rate.NewLimiter(rate.Limit(2), 1),
		logger:      zap.NewNop(),
		baseURL:     defaultBaseURL,
		maxAttempts: 3,
		backoff:     2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchHistory fetches daily bars for the symbol over [start, end]. Failed
// attempts are retried with doubling backoff; the last error wins.
func (c *Client) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.Bar, error) {
	if err := validateSymbol(symbol); err != nil {
		return nil, core.WrapError(core.ErrFetchFailed, err)
	}

	var bars []core.Bar
	var err error
	delay := c.backoff

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err = c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		bars, err = c.fetch(ctx, symbol, start, end, interval)
		if err == nil {
			return bars, nil
		}

		c.logger.Warn("fetch attempt failed",
			zap.String("symbol", symbol),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.maxAttempts),
			zap.Error(err),
		)

		if attempt < c.maxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return nil, core.WrapError(core.ErrFetchFailed, err)
}

func (c *Client) fetch(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.Bar, error) {
	url := fmt.Sprintf("%s/%s?interval=%s&period1=%d&period2=%d",
		c.baseURL, symbol, chartInterval(interval), start.Unix(), end.Unix())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if result.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo error: %s", result.Chart.Error.Description)
	}
	if len(result.Chart.Result) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("symbol %s", symbol))
	}

	r := result.Chart.Result[0]
	if len(r.Indicators.Quote) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("symbol %s: no quote block", symbol))
	}
	quotes := r.Indicators.Quote[0]

	bars := make([]core.Bar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		// Holes happen on halted sessions; skip rather than invent a bar.
		if i >= len(quotes.Open) || quotes.Open[i] == nil || quotes.Close[i] == nil {
			continue
		}
		var volume int64
		if quotes.Volume[i] != nil {
			volume = int64(*quotes.Volume[i])
		}
		bars = append(bars, core.Bar{
			Symbol: symbol,
			Time:   time.Unix(int64(ts), 0).UTC(),
			Open:   *quotes.Open[i],
			High:   deref(quotes.High[i]),
			Low:    deref(quotes.Low[i]),
			Close:  *quotes.Close[i],
			Volume: volume,
		})
	}

	return bars, nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func validateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if !validSymbol.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format: %s", symbol)
	}
	return nil
}

func chartInterval(interval string) string {
	switch interval {
	case "1m", "5m", "1h", "1d", "1wk":
		return interval
	default:
		return "1d"
	}
}

// Yahoo chart API response shapes.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Timestamp  []int `json:"timestamp"`
	Indicators struct {
		Quote []quoteBlock `json:"quote"`
	} `json:"indicators"`
}

type quoteBlock struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int     `json:"volume"`
}
