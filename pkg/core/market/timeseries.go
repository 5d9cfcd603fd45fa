package market

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"finstat/pkg/core/statements"

	"github.com/tidwall/gjson"
)

// Fundamentals series requested per statement. Keys are the vendor's
// camel-case names without the "annual" prefix.
var statementSeries = map[statements.StatementKind][]string{
	statements.KindIncome: {
		"TotalRevenue", "CostOfRevenue", "GrossProfit", "OperatingExpense", "OperatingIncome",
		"EBITDA", "NetIncome", "NetIncomeCommonStockholders", "DilutedEPS",
	},
	statements.KindBalance: {
		"TotalAssets", "TotalLiabilitiesNetMinorityInterest", "StockholdersEquity",
		"TotalEquityGrossMinorityInterest", "CashAndCashEquivalents",
		"CashCashEquivalentsAndShortTermInvestments", "CurrentDebt", "LongTermDebt",
	},
	statements.KindCashFlow: {
		"OperatingCashFlow", "InvestingCashFlow", "FinancingCashFlow", "CapitalExpenditure",
		"FreeCashFlow", "ReconciledDepreciation",
	},
}

// Statements returns the annual income statement, balance sheet and cash flow.
func (c *YahooClient) Statements(ctx context.Context, ticker string) (*statements.RawSet, error) {
	set := &statements.RawSet{}
	for _, kind := range []statements.StatementKind{statements.KindIncome, statements.KindBalance, statements.KindCashFlow} {
		table, err := c.timeseries(ctx, ticker, statementSeries[kind])
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", ticker, kind, err)
		}
		switch kind {
		case statements.KindIncome:
			set.Income = table
		case statements.KindBalance:
			set.Balance = table
		case statements.KindCashFlow:
			set.CashFlow = table
		}
	}
	return set, nil
}

func (c *YahooClient) timeseries(ctx context.Context, ticker string, series []string) (*statements.RawTable, error) {
	types := make([]string, len(series))
	for i, s := range series {
		types[i] = "annual" + s
	}
	params := url.Values{
		"type":    {strings.Join(types, ",")},
		"period1": {"493590046"},
		"period2": {strconv.FormatInt(c.now().Unix(), 10)},
	}
	endpoint := c.baseURL + "/ws/fundamentals-timeseries/v1/finance/timeseries/" + url.PathEscape(ticker)
	doc, err := c.getJSON(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}

	table := tableFromTimeseries(doc.Get("timeseries.result"))
	if table.Empty() {
		return nil, fmt.Errorf("%w: no statements for %s", ErrNoData, ticker)
	}
	return table, nil
}

// tableFromTimeseries pivots per-series observations into one row per series and
// one column per as-of date, most recent first.
func tableFromTimeseries(results gjson.Result) *statements.RawTable {
	type observation struct {
		date  string
		value statements.Value
	}
	var (
		order []string
		rows  = map[string][]observation{}
		dates = map[string]bool{}
	)

	results.ForEach(func(_, r gjson.Result) bool {
		typ := r.Get("meta.type.0").String()
		if typ == "" {
			return true
		}
		obs := r.Get(gjson.Escape(typ))
		if !obs.IsArray() {
			return true
		}
		name := strings.TrimPrefix(typ, "annual")
		var list []observation
		obs.ForEach(func(_, o gjson.Result) bool {
			date := o.Get("asOfDate").String()
			if date == "" {
				return true
			}
			v := statements.Missing
			if raw := o.Get("reportedValue.raw"); raw.Type == gjson.Number {
				v = statements.Num(raw.Float())
			}
			list = append(list, observation{date, v})
			dates[date] = true
			return true
		})
		if len(list) > 0 {
			order = append(order, name)
			rows[name] = list
		}
		return true
	})

	periods := make([]string, 0, len(dates))
	for d := range dates {
		periods = append(periods, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(periods)))
	index := make(map[string]int, len(periods))
	for i, p := range periods {
		index[p] = i
	}

	table := &statements.RawTable{Periods: periods}
	for _, name := range order {
		values := statements.MissingSeries(len(periods))
		for _, o := range rows[name] {
			values[index[o.date]] = o.value
		}
		table.Rows = append(table.Rows, statements.RawRow{Label: SpaceCamel(name), Values: values})
	}
	return table
}

// SpaceCamel turns a vendor key into a display label: "TotalRevenue" becomes
// "Total Revenue", "EBITDA" stays "EBITDA".
func SpaceCamel(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte(' ')
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

// PeriodLabel formats a provider as-of date the way persisted CSV headers use it.
func PeriodLabel(t time.Time) string {
	return t.Format("2006-01-02")
}
