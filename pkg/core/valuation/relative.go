package valuation

import (
	"context"
	"sort"
	"strings"

	"finstat/pkg/core/market"
	"finstat/pkg/core/statements"

	"github.com/phuslu/log"
)

// SnapshotSource supplies per-ticker market metadata.
type SnapshotSource interface {
	Snapshot(ctx context.Context, ticker string) (*market.Snapshot, error)
}

// CompRow is one peer in the comparables table. Fields are copied from the
// provider snapshot; a failed lookup leaves them Missing and sets Error.
type CompRow struct {
	Ticker     string           `json:"ticker"`
	Price      statements.Value `json:"price"`
	PE         statements.Value `json:"pe"`
	ForwardPE  statements.Value `json:"forwardPE"`
	EVToEBITDA statements.Value `json:"evToEbitda"`
	MarketCap  statements.Value `json:"marketCap"`
	Beta       statements.Value `json:"beta"`
	Error      string           `json:"error,omitempty"`
}

// CompColumns is the stable column order used by exports.
var CompColumns = []string{"ticker", "price", "pe", "forwardPE", "evToEbitda", "marketCap", "beta"}

// Cells returns the numeric fields in CompColumns order, after the ticker.
func (r CompRow) Cells() []statements.Value {
	return []statements.Value{r.Price, r.PE, r.ForwardPE, r.EVToEBITDA, r.MarketCap, r.Beta}
}

// ComparablesTable fetches one snapshot per ticker, in input order. A failing
// ticker produces a row of Missing fields and never aborts the batch.
func ComparablesTable(ctx context.Context, src SnapshotSource, tickers []string) []CompRow {
	rows := make([]CompRow, 0, len(tickers))
	for _, tk := range tickers {
		row := CompRow{Ticker: strings.ToUpper(strings.TrimSpace(tk))}
		snap, err := src.Snapshot(ctx, row.Ticker)
		if err != nil {
			log.Warn().Str("ticker", row.Ticker).Err(err).Msg("[VALUATION] snapshot failed")
			row.Error = err.Error()
			rows = append(rows, row)
			continue
		}
		row.Price = snap.Price
		row.PE = snap.TrailingPE
		row.ForwardPE = snap.ForwardPE
		row.EVToEBITDA = snap.EVToEBITDA
		row.MarketCap = snap.MarketCap
		row.Beta = snap.Beta
		rows = append(rows, row)
	}
	return rows
}

// MultipleRange is the interquartile band of one peer multiple.
type MultipleRange struct {
	Low   statements.Value `json:"low"`
	High  statements.Value `json:"high"`
	Count int              `json:"count"`
}

// CompsSummary holds the peer ranges for each multiple.
type CompsSummary struct {
	PE         MultipleRange `json:"pe"`
	ForwardPE  MultipleRange `json:"forwardPE"`
	EVToEBITDA MultipleRange `json:"evToEbitda"`
}

// SummarizeComps derives 25th-75th percentile ranges from the positive, present
// multiples of the table.
func SummarizeComps(rows []CompRow) CompsSummary {
	var pe, fpe, ev []float64
	for _, r := range rows {
		pe = appendPositive(pe, r.PE)
		fpe = appendPositive(fpe, r.ForwardPE)
		ev = appendPositive(ev, r.EVToEBITDA)
	}
	return CompsSummary{
		PE:         getRange(pe),
		ForwardPE:  getRange(fpe),
		EVToEBITDA: getRange(ev),
	}
}

func appendPositive(dst []float64, v statements.Value) []float64 {
	if f, ok := v.Float(); ok && f > 0 {
		dst = append(dst, f)
	}
	return dst
}

func getRange(mults []float64) MultipleRange {
	if len(mults) == 0 {
		return MultipleRange{Low: statements.Missing, High: statements.Missing}
	}
	sort.Float64s(mults)
	lowIdx := int(float64(len(mults)) * 0.25)
	highIdx := int(float64(len(mults)) * 0.75)
	if highIdx >= len(mults) {
		highIdx = len(mults) - 1
	}
	return MultipleRange{
		Low:   statements.Num(mults[lowIdx]),
		High:  statements.Num(mults[highIdx]),
		Count: len(mults),
	}
}
