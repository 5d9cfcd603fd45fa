package market

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"finstat/pkg/core/statements"
	"finstat/pkg/core/utils"

	"github.com/go-resty/resty/v2"
	"github.com/phuslu/log"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL serves the chart, quote-summary and time-series APIs.
	DefaultBaseURL = "https://query2.finance.yahoo.com"

	// DefaultPageURL serves the HTML quote pages used as a fallback.
	DefaultPageURL = "https://finance.yahoo.com"

	// DefaultTimeout bounds every provider call.
	DefaultTimeout = 20 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 2

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// YahooClient implements Provider against the Yahoo Finance endpoints.
type YahooClient struct {
	baseURL string
	pageURL string
	http    *resty.Client
	limiter *rate.Limiter
	now     func() time.Time
}

// ClientOption configures the YahooClient.
type ClientOption func(*YahooClient)

// WithBaseURL sets a custom API base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *YahooClient) {
		c.baseURL = baseURL
	}
}

// WithPageURL sets a custom base URL for HTML pages.
func WithPageURL(pageURL string) ClientOption {
	return func(c *YahooClient) {
		c.pageURL = pageURL
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *YahooClient) {
		c.http.SetTimeout(d)
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *YahooClient) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// NewYahooClient creates a client with default endpoints and limits.
func NewYahooClient(opts ...ClientOption) *YahooClient {
	c := &YahooClient{
		baseURL: DefaultBaseURL,
		pageURL: DefaultPageURL,
		http: resty.New().
			SetTimeout(DefaultTimeout).
			SetHeader("User-Agent", userAgent).
			SetRetryCount(1),
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get performs a rate-limited GET and returns the raw body.
func (c *YahooClient) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	log.Debug().Str("endpoint", endpoint).Msg("[MARKET] request")

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(params).
		Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", endpoint, err)
	}
	if resp.StatusCode() >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode(), Endpoint: endpoint, Body: truncate(resp.String(), 256)}
	}
	return resp.Body(), nil
}

// getJSON is get plus lenient decoding into a gjson document.
func (c *YahooClient) getJSON(ctx context.Context, endpoint string, params url.Values) (gjson.Result, error) {
	body, err := c.get(ctx, endpoint, params)
	if err != nil {
		return gjson.Result{}, err
	}
	clean, err := utils.LenientJSON(body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return gjson.ParseBytes(clean), nil
}

// =============================================================================
// PRICE HISTORY
// =============================================================================

// History returns OHLCV bars, oldest first.
func (c *YahooClient) History(ctx context.Context, ticker string, r HistoryRange) ([]PriceBar, error) {
	interval := r.Interval
	if interval == "" {
		interval = DefaultInterval
	}
	params := url.Values{"interval": {interval}, "events": {"div,splits"}}
	if r.Start.IsZero() {
		params.Set("range", "1y")
	} else {
		end := r.End
		if end.IsZero() {
			end = c.now()
		}
		params.Set("period1", strconv.FormatInt(r.Start.Unix(), 10))
		params.Set("period2", strconv.FormatInt(end.Unix(), 10))
	}

	doc, err := c.getJSON(ctx, c.baseURL+"/v8/finance/chart/"+url.PathEscape(ticker), params)
	if err != nil {
		return nil, err
	}
	if msg := doc.Get("chart.error.description"); msg.Exists() && msg.String() != "" {
		return nil, fmt.Errorf("%w: %s", ErrNoData, msg.String())
	}

	result := doc.Get("chart.result.0")
	stamps := result.Get("timestamp").Array()
	if len(stamps) == 0 {
		return nil, fmt.Errorf("%w: no price history for %s", ErrNoData, ticker)
	}

	quote := result.Get("indicators.quote.0")
	open := quote.Get("open").Array()
	high := quote.Get("high").Array()
	low := quote.Get("low").Array()
	closes := quote.Get("close").Array()
	volume := quote.Get("volume").Array()
	adj := result.Get("indicators.adjclose.0.adjclose").Array()

	bars := make([]PriceBar, len(stamps))
	for i, ts := range stamps {
		bars[i] = PriceBar{
			Date:     time.Unix(ts.Int(), 0).UTC(),
			Open:     at(open, i),
			High:     at(high, i),
			Low:      at(low, i),
			Close:    at(closes, i),
			AdjClose: at(adj, i),
			Volume:   at(volume, i),
		}
	}
	return bars, nil
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot returns current quote metadata. When the quote-summary API fails the
// key-statistics page is scraped instead.
func (c *YahooClient) Snapshot(ctx context.Context, ticker string) (*Snapshot, error) {
	snap, err := c.quoteSummary(ctx, ticker)
	if err == nil {
		return snap, nil
	}
	log.Warn().Str("ticker", ticker).Err(err).Msg("[MARKET] quote summary failed, trying key statistics page")

	snap, ferr := c.keyStatistics(ctx, ticker)
	if ferr != nil {
		return nil, fmt.Errorf("snapshot %s: %w (fallback: %v)", ticker, err, ferr)
	}
	return snap, nil
}

func (c *YahooClient) quoteSummary(ctx context.Context, ticker string) (*Snapshot, error) {
	params := url.Values{"modules": {"price,summaryDetail,defaultKeyStatistics"}}
	doc, err := c.getJSON(ctx, c.baseURL+"/v10/finance/quoteSummary/"+url.PathEscape(ticker), params)
	if err != nil {
		return nil, err
	}
	result := doc.Get("quoteSummary.result.0")
	if !result.Exists() {
		return nil, fmt.Errorf("%w: empty quote summary for %s", ErrNoData, ticker)
	}

	return &Snapshot{
		Ticker:            ticker,
		Price:             first(result, "price.regularMarketPrice.raw", "summaryDetail.previousClose.raw"),
		TrailingPE:        first(result, "summaryDetail.trailingPE.raw"),
		ForwardPE:         first(result, "summaryDetail.forwardPE.raw", "defaultKeyStatistics.forwardPE.raw"),
		EVToEBITDA:        first(result, "defaultKeyStatistics.enterpriseToEbitda.raw"),
		MarketCap:         first(result, "summaryDetail.marketCap.raw", "price.marketCap.raw"),
		Beta:              first(result, "summaryDetail.beta.raw", "defaultKeyStatistics.beta.raw"),
		SharesOutstanding: first(result, "defaultKeyStatistics.sharesOutstanding.raw"),
	}, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// first returns the first numeric value found among paths.
func first(doc gjson.Result, paths ...string) statements.Value {
	for _, p := range paths {
		if v := doc.Get(p); v.Type == gjson.Number {
			return statements.Num(v.Float())
		}
	}
	return statements.Missing
}

func at(arr []gjson.Result, i int) statements.Value {
	if i >= len(arr) || arr[i].Type != gjson.Number {
		return statements.Missing
	}
	return statements.Num(arr[i].Float())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
