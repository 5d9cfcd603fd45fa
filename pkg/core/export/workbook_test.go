package export

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"finstat/pkg/core/calc"
	"finstat/pkg/core/statements"
	"finstat/pkg/core/valuation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func standardized() *statements.Standardized {
	periods := []string{"2023", "2022"}
	row := func(label string, a, b statements.Value) statements.RawRow {
		return statements.RawRow{Label: label, Values: statements.Series{a, b}}
	}
	n := statements.Num
	income := &statements.RawTable{Periods: periods, Rows: []statements.RawRow{
		row("Total Revenue", n(1000), n(800)),
		row("Net Income", n(100), statements.Missing),
	}}
	balance := &statements.RawTable{Periods: periods, Rows: []statements.RawRow{
		row("Total Assets", n(2000), n(1600)),
		row("Total Equity", n(800), n(700)),
	}}
	cash := &statements.RawTable{Periods: periods, Rows: []statements.RawRow{
		row("Operating Cash Flow", n(150), n(120)),
	}}
	return statements.Normalize(statements.DefaultAliases, income, balance, cash)
}

func reopen(t *testing.T, f *excelize.File) *excelize.File {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	out, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	t.Cleanup(func() { out.Close() })
	return out
}

func TestStatementsWorkbook(t *testing.T) {
	f, err := StatementsWorkbook(standardized())
	require.NoError(t, err)
	book := reopen(t, f)

	assert.Equal(t, []string{SheetIncome, SheetBalance, SheetCashFlow}, book.GetSheetList())

	rows, err := book.GetRows(SheetIncome)
	require.NoError(t, err)
	require.Len(t, rows, 1+len(statements.Schema[statements.KindIncome]))
	assert.Equal(t, []string{"Item", "2023", "2022"}, rows[0])
	assert.Equal(t, []string{"Total Revenue", "1000", "800"}, rows[1])

	// Net Income is the last income row; its missing 2022 cell stays empty
	last := rows[len(rows)-1]
	assert.Equal(t, "Net Income", last[0])
	assert.Equal(t, "100", last[1])
	if len(last) > 2 {
		assert.Equal(t, "", last[2])
	}
}

func TestStatementsWorkbook_Unavailable(t *testing.T) {
	_, err := StatementsWorkbook(statements.FromError(statements.NotFoundMessage))
	assert.True(t, errors.Is(err, statements.ErrDataUnavailable))
}

func TestAnalysisWorkbook(t *testing.T) {
	a, err := calc.Analyze(standardized())
	require.NoError(t, err)
	f, err := AnalysisWorkbook(a)
	require.NoError(t, err)
	book := reopen(t, f)

	assert.Equal(t, []string{SheetRatios, SheetCommonSizeIncome, SheetCommonSizeBalance, SheetDuPont, SheetGrowth}, book.GetSheetList())

	rows, err := book.GetRows(SheetRatios)
	require.NoError(t, err)
	assert.Equal(t, []string{"Metric", "2023", "2022"}, rows[0])
	assert.Equal(t, calc.GrossMargin, rows[1][0])

	growth, err := book.GetRows(SheetGrowth)
	require.NoError(t, err)
	assert.Equal(t, []string{calc.RevenueYoY, "0.25"}, growth[1])
}

func TestValuationWorkbook(t *testing.T) {
	p := valuation.DCFParams{WACC: 0.1, TerminalGrowth: 0.03, ForecastYears: 2, SharesOutstanding: statements.Missing}
	dcf, err := valuation.ProjectDCF(100, 0.05, p, 10)
	require.NoError(t, err)
	comps := []valuation.CompRow{
		{Ticker: "AAPL", Price: statements.Num(190), PE: statements.Num(30)},
		{Ticker: "BAD", Error: "no data"},
	}

	f, err := ValuationWorkbook(dcf, comps)
	require.NoError(t, err)
	book := reopen(t, f)
	assert.Equal(t, []string{SheetDCF, SheetComps}, book.GetSheetList())

	rows, err := book.GetRows(SheetDCF)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, DCFColumns, rows[0])
	assert.Equal(t, "100", rows[1][0])
	assert.Equal(t, "105, 110.25", rows[1][6])

	comp, err := book.GetRows(SheetComps)
	require.NoError(t, err)
	assert.Equal(t, CompsColumns, comp[0])
	assert.Equal(t, "AAPL", comp[1][0])
	assert.Equal(t, "no data", comp[2][len(CompsColumns)-1])
}

func TestValuationWorkbook_NoComps(t *testing.T) {
	p := valuation.DCFParams{WACC: 0.1, TerminalGrowth: 0.03, ForecastYears: 1}
	dcf, err := valuation.ProjectDCF(100, 0.05, p, 0)
	require.NoError(t, err)
	f, err := ValuationWorkbook(dcf, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{SheetDCF}, reopen(t, f).GetSheetList())
}

func TestSave(t *testing.T) {
	f, err := StatementsWorkbook(standardized())
	require.NoError(t, err)

	dir := t.TempDir()
	path, err := Save(f, dir, FileName("aapl", "statements"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "AAPL_statements.xlsx"), path)
	assert.FileExists(t, path)

	assert.Equal(t, "COMPANY_analysis.xlsx", FileName("", "analysis"))
}
