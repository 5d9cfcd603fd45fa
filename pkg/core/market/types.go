// Package market talks to the external market-data provider: price history,
// raw financial statements and per-ticker snapshot metadata.
package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"finstat/pkg/core/statements"
)

// ErrNoData is returned when the provider answers but has nothing for the ticker.
var ErrNoData = errors.New("market: no data returned")

// APIError is a non-2xx provider response.
type APIError struct {
	StatusCode int
	Endpoint   string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("market: %s returned status %d", e.Endpoint, e.StatusCode)
}

//go:generate mockgen -destination=mocks/provider.go -package=mocks finstat/pkg/core/market Provider

// Provider is the market-data collaborator used by ingest and valuation.
type Provider interface {
	History(ctx context.Context, ticker string, r HistoryRange) ([]PriceBar, error)
	Statements(ctx context.Context, ticker string) (*statements.RawSet, error)
	Snapshot(ctx context.Context, ticker string) (*Snapshot, error)
}

// HistoryRange selects a price window. Zero Start/End mean the provider defaults.
type HistoryRange struct {
	Start    time.Time
	End      time.Time
	Interval string
}

// Intervals accepted by the provider.
var Intervals = []string{"1d", "5d", "1wk", "1mo", "3mo"}

// DefaultInterval is used when a request leaves the interval empty.
const DefaultInterval = "1d"

// ValidInterval reports whether iv is a supported bar interval.
func ValidInterval(iv string) bool {
	for _, s := range Intervals {
		if s == iv {
			return true
		}
	}
	return false
}

// PriceBar is one OHLCV row.
type PriceBar struct {
	Date     time.Time        `json:"date"`
	Open     statements.Value `json:"open"`
	High     statements.Value `json:"high"`
	Low      statements.Value `json:"low"`
	Close    statements.Value `json:"close"`
	AdjClose statements.Value `json:"adj_close"`
	Volume   statements.Value `json:"volume"`
}

// Snapshot is the current market metadata of one ticker. Fields the provider did
// not report are Missing.
type Snapshot struct {
	Ticker            string           `json:"ticker"`
	Price             statements.Value `json:"price"`
	TrailingPE        statements.Value `json:"pe"`
	ForwardPE         statements.Value `json:"forwardPE"`
	EVToEBITDA        statements.Value `json:"evToEbitda"`
	MarketCap         statements.Value `json:"marketCap"`
	Beta              statements.Value `json:"beta"`
	SharesOutstanding statements.Value `json:"sharesOutstanding"`
}

// NormalizeTicker upper-cases and trims a symbol. It returns an error for
// symbols containing anything but letters, digits, '.', '-', '^' or '='.
func NormalizeTicker(ticker string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if t == "" {
		return "", errors.New("ticker is required")
	}
	for _, r := range t {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '-', r == '^', r == '=':
		default:
			return "", fmt.Errorf("invalid ticker %q", ticker)
		}
	}
	return t, nil
}
