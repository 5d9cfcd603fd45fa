// Package calc provides deterministic financial calculations over standardized statements.
// This file defines the derived-table types shared by every metric.
package calc

import (
	"encoding/json"

	"finstat/pkg/core/statements"
)

// Presentation precision. Ratios keep 4 decimals, cash amounts 2.
const (
	RatioPlaces  int32 = 4
	AmountPlaces int32 = 2
)

// Metric names, stable for JSON keys and spreadsheet rows.
const (
	GrossMargin     = "Gross Margin"
	OperatingMargin = "Operating Margin"
	NetMargin       = "Net Margin"
	EBITDAMargin    = "EBITDA Margin"
	DebtToEquity    = "Debt to Equity"
	ROA             = "ROA"
	ROE             = "ROE"
	FCF             = "FCF"

	ProfitMargin     = "Profit Margin"
	AssetTurnover    = "Asset Turnover"
	EquityMultiplier = "Equity Multiplier"
	ROEDuPont        = "ROE (DuPont)"

	RevenueYoY   = "Revenue YoY"
	NetIncomeYoY = "Net Income YoY"
	AssetsYoY    = "Assets YoY"
)

// DerivedRow is one metric across all periods.
type DerivedRow struct {
	Metric string
	Values statements.Series
}

// DerivedTable maps metric names to per-period values, keeping insertion order
// for exports.
type DerivedTable struct {
	Periods []string
	Rows    []DerivedRow
}

func newTable(periods []string) *DerivedTable {
	return &DerivedTable{Periods: periods}
}

func (t *DerivedTable) add(metric string, values statements.Series) {
	t.Rows = append(t.Rows, DerivedRow{Metric: metric, Values: values})
}

// Get returns the metric's series, or nil if absent.
func (t *DerivedTable) Get(metric string) statements.Series {
	for _, r := range t.Rows {
		if r.Metric == metric {
			return r.Values
		}
	}
	return nil
}

// Metrics lists metric names in table order.
func (t *DerivedTable) Metrics() []string {
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Metric
	}
	return out
}

// AsMap renders metric -> period -> value.
func (t *DerivedTable) AsMap() map[string]map[string]statements.Value {
	out := make(map[string]map[string]statements.Value, len(t.Rows))
	for _, r := range t.Rows {
		out[r.Metric] = r.Values.ToMap(t.Periods)
	}
	return out
}

func (t *DerivedTable) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.AsMap())
}

// CommonSize holds the vertical analysis of both statements.
type CommonSize struct {
	IncomeStatement *DerivedTable `json:"income_statement"`
	BalanceSheet    *DerivedTable `json:"balance_sheet"`
}

// Analysis bundles every derived table for one data set.
type Analysis struct {
	Periods    []string      `json:"periods"`
	Ratios     *DerivedTable `json:"ratios"`
	CommonSize *CommonSize   `json:"common_size"`
	DuPont     *DerivedTable `json:"dupont"`
	Growth     *DerivedTable `json:"growth"`
	Quality    *Quality      `json:"quality"`
}
