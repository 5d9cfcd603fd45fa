package market

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"finstat/pkg/core/statements"

	"github.com/PuerkitoBio/goquery"
)

// keyStatistics scrapes the HTML key-statistics page.
func (c *YahooClient) keyStatistics(ctx context.Context, ticker string) (*Snapshot, error) {
	body, err := c.get(ctx, c.pageURL+"/quote/"+url.PathEscape(ticker)+"/key-statistics/", nil)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse key statistics: %w", err)
	}

	snap := &Snapshot{Ticker: ticker}
	found := false

	// Yahoo lays key statistics out as two-column tables: label, value.
	doc.Find("table").Each(func(i int, table *goquery.Selection) {
		table.Find("tr").Each(func(j int, row *goquery.Selection) {
			label := strings.ToLower(strings.TrimSpace(row.Find("td").First().Text()))
			value := parseStat(row.Find("td").Last().Text())
			if label == "" || value.IsMissing() {
				return
			}
			switch {
			case strings.HasPrefix(label, "market cap"):
				snap.MarketCap = value
			case strings.HasPrefix(label, "trailing p/e"):
				snap.TrailingPE = value
			case strings.HasPrefix(label, "forward p/e"):
				snap.ForwardPE = value
			case strings.HasPrefix(label, "enterprise value/ebitda"):
				snap.EVToEBITDA = value
			case strings.HasPrefix(label, "beta"):
				snap.Beta = value
			case strings.HasPrefix(label, "shares outstanding"):
				snap.SharesOutstanding = value
			default:
				return
			}
			found = true
		})
	})

	if price, ok := doc.Find(`fin-streamer[data-field="regularMarketPrice"]`).First().Attr("data-value"); ok {
		if v := parseStat(price); !v.IsMissing() {
			snap.Price = v
			found = true
		}
	}

	if !found {
		return nil, fmt.Errorf("%w: no key statistics for %s", ErrNoData, ticker)
	}
	return snap, nil
}

// parseStat reads a display value such as "2.95T", "1,234.5", "28.41" or "N/A".
func parseStat(s string) statements.Value {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.TrimSuffix(cleaned, "%")
	if cleaned == "" {
		return statements.Missing
	}

	multiplier := 1.0
	switch cleaned[len(cleaned)-1] {
	case 'K', 'k':
		multiplier = 1e3
	case 'M':
		multiplier = 1e6
	case 'B':
		multiplier = 1e9
	case 'T':
		multiplier = 1e12
	}
	if multiplier != 1 {
		cleaned = cleaned[:len(cleaned)-1]
	}

	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return statements.Missing
	}
	return statements.Num(f * multiplier)
}
