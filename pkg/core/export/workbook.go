// Package export writes standardized statements, derived tables and valuation
// results to xlsx workbooks. Sheet names and column order are stable.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"finstat/pkg/core/calc"
	"finstat/pkg/core/statements"
	"finstat/pkg/core/valuation"

	"github.com/xuri/excelize/v2"
)

// Sheet names.
const (
	SheetIncome            = "IncomeStatement"
	SheetBalance           = "BalanceSheet"
	SheetCashFlow          = "CashFlow"
	SheetRatios            = "Ratios"
	SheetCommonSizeIncome  = "CommonSizeIncome"
	SheetCommonSizeBalance = "CommonSizeBalance"
	SheetDuPont            = "DuPont"
	SheetGrowth            = "Growth"
	SheetDCF               = "DCF"
	SheetComps             = "Comps"
)

// DCFColumns is the column order of the DCF sheet.
var DCFColumns = []string{
	"base_fcf", "assumed_growth", "growth_fallback", "wacc", "terminal_growth", "forecast_years",
	"fcfs", "pv_fcfs", "terminal_value", "pv_terminal_value", "enterprise_value", "net_debt",
	"equity_value", "shares_outstanding", "price_target",
}

// CompsColumns is the column order of the Comps sheet.
var CompsColumns = append(append([]string{}, valuation.CompColumns...), "error")

// StatementsWorkbook renders the three canonical statements, one sheet each,
// columns Item followed by the periods.
func StatementsWorkbook(std *statements.Standardized) (*excelize.File, error) {
	if err := std.Ensure(); err != nil {
		return nil, err
	}
	b := newBook()
	for _, s := range []struct {
		name  string
		table *statements.CanonicalTable
	}{
		{SheetIncome, std.Income},
		{SheetBalance, std.Balance},
		{SheetCashFlow, std.CashFlow},
	} {
		rows := make([][]interface{}, 0, len(s.table.Rows))
		for _, r := range s.table.Rows {
			rows = append(rows, seriesRow(string(r.Item), r.Values))
		}
		b.sheet(s.name, header("Item", s.table.Periods), rows)
	}
	return b.finish()
}

// AnalysisWorkbook renders every derived table, columns Metric followed by the periods.
func AnalysisWorkbook(a *calc.Analysis) (*excelize.File, error) {
	if a == nil {
		return nil, &statements.UnavailableError{Message: "no analysis"}
	}
	b := newBook()
	for _, s := range []struct {
		name  string
		table *calc.DerivedTable
	}{
		{SheetRatios, a.Ratios},
		{SheetCommonSizeIncome, a.CommonSize.IncomeStatement},
		{SheetCommonSizeBalance, a.CommonSize.BalanceSheet},
		{SheetDuPont, a.DuPont},
		{SheetGrowth, a.Growth},
	} {
		rows := make([][]interface{}, 0, len(s.table.Rows))
		for _, r := range s.table.Rows {
			rows = append(rows, seriesRow(r.Metric, r.Values))
		}
		b.sheet(s.name, header("Metric", s.table.Periods), rows)
	}
	return b.finish()
}

// ValuationWorkbook renders a DCF result as one row and, when present, the
// comparables table.
func ValuationWorkbook(dcf *valuation.DCFResult, comps []valuation.CompRow) (*excelize.File, error) {
	if dcf == nil {
		return nil, fmt.Errorf("no dcf result to export")
	}
	b := newBook()
	b.sheet(SheetDCF, strs(DCFColumns), [][]interface{}{{
		dcf.BaseFCF, dcf.AssumedGrowth, dcf.GrowthFallback, dcf.WACC, dcf.TerminalGrowth, dcf.ForecastYears,
		joinFloats(dcf.FCFs), joinFloats(dcf.PVFCFs), cellValue(dcf.TerminalValue), dcf.PVTerminalValue,
		dcf.EnterpriseValue, dcf.NetDebt, dcf.EquityValue, cellValue(dcf.Shares), cellValue(dcf.PriceTarget),
	}})

	if len(comps) > 0 {
		rows := make([][]interface{}, 0, len(comps))
		for _, c := range comps {
			row := []interface{}{c.Ticker}
			for _, v := range c.Cells() {
				row = append(row, cellValue(v))
			}
			row = append(row, c.Error)
			rows = append(rows, row)
		}
		b.sheet(SheetComps, strs(CompsColumns), rows)
	}
	return b.finish()
}

// FileName builds the export file name for ticker, e.g. AAPL_statements.xlsx.
func FileName(ticker, kind string) string {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if t == "" {
		t = "COMPANY"
	}
	return fmt.Sprintf("%s_%s.xlsx", t, kind)
}

// Save writes the workbook to dir/name and closes it.
func Save(f *excelize.File, dir, name string) (string, error) {
	defer f.Close()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	return path, nil
}

// =============================================================================
// HELPERS
// =============================================================================

type book struct {
	f     *excelize.File
	first bool
	err   error
}

func newBook() *book {
	return &book{f: excelize.NewFile(), first: true}
}

// sheet adds a sheet. The default "Sheet1" is renamed for the first sheet.
func (b *book) sheet(name string, head []interface{}, rows [][]interface{}) {
	if b.err != nil {
		return
	}
	if b.first {
		b.err = b.f.SetSheetName(b.f.GetSheetName(0), name)
		b.first = false
	} else {
		_, b.err = b.f.NewSheet(name)
	}
	if b.err != nil {
		return
	}
	if b.err = b.f.SetSheetRow(name, "A1", &head); b.err != nil {
		return
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			b.err = err
			return
		}
		row := r
		if b.err = b.f.SetSheetRow(name, cell, &row); b.err != nil {
			return
		}
	}
}

func (b *book) finish() (*excelize.File, error) {
	if b.err != nil {
		b.f.Close()
		return nil, fmt.Errorf("build workbook: %w", b.err)
	}
	b.f.SetActiveSheet(0)
	return b.f, nil
}

func header(first string, periods []string) []interface{} {
	return strs(append([]string{first}, periods...))
}

func strs(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func seriesRow(label string, s statements.Series) []interface{} {
	row := make([]interface{}, 0, len(s)+1)
	row = append(row, label)
	for _, v := range s {
		row = append(row, cellValue(v))
	}
	return row
}

// cellValue leaves Missing cells empty.
func cellValue(v statements.Value) interface{} {
	if f, ok := v.Float(); ok {
		return f
	}
	return nil
}

func joinFloats(fs []float64) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = statements.Num(f).String()
	}
	return strings.Join(parts, ", ")
}
