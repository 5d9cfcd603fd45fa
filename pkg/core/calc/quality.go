package calc

import (
	"fmt"
	"math"
	"strconv"

	"finstat/pkg/core/statements"
)

// =============================================================================
// DATA QUALITY
// Screens run alongside the analysis: the balance sheet identity per period and
// a first-digit (Benford) test over every reported figure. They only warn.
// =============================================================================

// BalanceGapMetric is Total Assets - (Total Liabilities + Total Equity).
const BalanceGapMetric = "Balance Gap"

// BalanceTolerance is the gap, as a fraction of total assets, still considered balanced.
const BalanceTolerance = 0.005

// BenfordDistribution is the expected frequency for leading digits 1-9
var BenfordDistribution = map[int]float64{
	1: 0.30103,
	2: 0.17609,
	3: 0.12494,
	4: 0.09691,
	5: 0.07918,
	6: 0.06695,
	7: 0.05799,
	8: 0.05115,
	9: 0.04576,
}

// MAD thresholds for the Benford screen. Audit heuristics put close conformity
// below 0.006 and nonconformity above 0.012; statement sets are small, so the
// bands here are looser.
const (
	BenfordMediumMAD = 0.010
	BenfordHighMAD   = 0.015
)

// BenfordResult holds the analysis of leading digit distribution
type BenfordResult struct {
	DigitCounts      map[int]int     `json:"digit_counts"`
	DigitFrequencies map[int]float64 `json:"digit_frequencies"`
	TotalCount       int             `json:"total_count"`
	MAD              float64         `json:"mad"` // Mean Absolute Deviation
	Flagged          bool            `json:"flagged"`
	Level            string          `json:"level"`
}

// Quality is the outcome of the data quality screens.
type Quality struct {
	BalanceGap *DerivedTable `json:"balance_gap"`
	Benford    BenfordResult `json:"benford"`
	Warnings   []string      `json:"warnings"`
}

// CheckQuality runs the balance identity and Benford screens. Periods where a
// term of the identity is missing are skipped, not flagged.
func CheckQuality(std *statements.Standardized) (*Quality, error) {
	if err := std.Ensure(); err != nil {
		return nil, err
	}
	bs := std.Balance
	assets := bs.Get(statements.TotalAssets)
	gap := assets.Sub(bs.Get(statements.TotalLiabilities).Add(bs.Get(statements.TotalEquity)))

	q := &Quality{BalanceGap: newTable(std.Periods), Warnings: []string{}}
	q.BalanceGap.add(BalanceGapMetric, gap.Round(AmountPlaces))

	for i, g := range gap {
		gv, ok := g.Float()
		if !ok {
			continue
		}
		av, _ := assets[i].Float()
		if math.Abs(gv) > BalanceTolerance*math.Abs(av) {
			q.Warnings = append(q.Warnings, fmt.Sprintf("Balance sheet out of balance by %.2f in %s", gv, std.Periods[i]))
		}
	}

	var values []float64
	for _, t := range []*statements.CanonicalTable{std.Income, std.Balance, std.CashFlow} {
		for _, r := range t.Rows {
			for _, v := range r.Values {
				if f, ok := v.Float(); ok {
					values = append(values, f)
				}
			}
		}
	}
	q.Benford = AnalyzeBenfordsLaw(values)
	if q.Benford.Flagged {
		q.Warnings = append(q.Warnings, fmt.Sprintf("Leading digits deviate from Benford's law (MAD %.4f)", q.Benford.MAD))
	}
	return q, nil
}

// AnalyzeBenfordsLaw performs first-digit analysis on a set of financial values.
// It ignores values below 1 in magnitude.
// Thresholds for MAD (Mean Absolute Deviation):
// - <= BenfordMediumMAD: Low Risk
// - <= BenfordHighMAD: Medium Risk
// - above: High Risk, flagged
func AnalyzeBenfordsLaw(values []float64) BenfordResult {
	counts := make(map[int]int)
	processed := 0

	for _, v := range values {
		vAbs := math.Abs(v)
		if vAbs < 1.0 || math.IsInf(vAbs, 0) || math.IsNaN(vAbs) {
			continue
		}
		if d := leadingDigit(vAbs); d > 0 {
			counts[d]++
			processed++
		}
	}

	if processed == 0 {
		return BenfordResult{Level: "Insufficient Data"}
	}

	freqs := make(map[int]float64)
	sumDiff := 0.0
	for d := 1; d <= 9; d++ {
		actual := float64(counts[d]) / float64(processed)
		freqs[d] = actual
		sumDiff += math.Abs(actual - BenfordDistribution[d])
	}
	mad := sumDiff / 9.0

	level := "Low Risk"
	flagged := false
	if mad > BenfordHighMAD {
		level = "High Risk"
		flagged = true
	} else if mad > BenfordMediumMAD {
		level = "Medium Risk"
	}

	return BenfordResult{
		DigitCounts:      counts,
		DigitFrequencies: freqs,
		TotalCount:       processed,
		MAD:              mad,
		Flagged:          flagged,
		Level:            level,
	}
}

func leadingDigit(v float64) int {
	for _, c := range strconv.FormatFloat(v, 'f', -1, 64) {
		if c >= '1' && c <= '9' {
			return int(c - '0')
		}
	}
	return 0
}
