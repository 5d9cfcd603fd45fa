package statements

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const incomeCSV = `Account,2023-09-30,2022-09-30
Total Revenue,383285000000.0,394328000000.0
Net Income,96995000000.0,99803000000.0
`

const balanceCSV = `Account,2023-09-30,2022-09-30
Total Assets,352583000000.0,352755000000.0
Stockholders Equity,62146000000.0,50672000000.0
Total Equity Gross Minority Interest,62146000000.0,50672000000.0
`

const cashCSV = `Account,2023-09-30,2022-09-30
Operating Cash Flow,110543000000.0,122151000000.0
Capital Expenditure,-10959000000.0,
`

func writeSet(t *testing.T, dir string, files ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	content := map[string]string{IncomeFile: incomeCSV, BalanceFile: balanceCSV, CashFlowFile: cashCSV}
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte(content[f]), 0644))
	}
}

func TestLocate_NewestCompleteSnapshot(t *testing.T) {
	root := t.TempDir()
	writeSet(t, filepath.Join(root, "AAPL", "20240101_090000"), IncomeFile, BalanceFile, CashFlowFile)
	writeSet(t, filepath.Join(root, "AAPL", "20240301_090000"), IncomeFile, BalanceFile, CashFlowFile)
	writeSet(t, filepath.Join(root, "AAPL", "20240401_090000"), IncomeFile, BalanceFile)

	p, err := NewLocator(root).Locate("aapl", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "AAPL", "20240301_090000"), p.Folder)
}

func TestLocate_SkipsHiddenFolders(t *testing.T) {
	root := t.TempDir()
	writeSet(t, filepath.Join(root, "AAPL", ".staging-123"), IncomeFile, BalanceFile, CashFlowFile)

	_, err := NewLocator(root).Locate("AAPL", "")
	assert.True(t, errors.Is(err, ErrDataUnavailable))

	writeSet(t, filepath.Join(root, "AAPL", "20240101_090000"), IncomeFile, BalanceFile, CashFlowFile)
	p, err := NewLocator(root).Locate("AAPL", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "AAPL", "20240101_090000"), p.Folder)
}

func TestLocate_SkipsIncompleteNewerFolders(t *testing.T) {
	root := t.TempDir()
	writeSet(t, filepath.Join(root, "MSFT", "20230101_000000"), IncomeFile)
	writeSet(t, filepath.Join(root, "MSFT", "20230601_000000"), BalanceFile, CashFlowFile)
	writeSet(t, filepath.Join(root, "MSFT", "20240101_000000"), IncomeFile, BalanceFile, CashFlowFile)
	writeSet(t, filepath.Join(root, "MSFT", "20240101_000000_partial"), CashFlowFile)

	p, err := NewLocator(root).Locate("MSFT", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "MSFT", "20240101_000000"), p.Folder)
}

func TestLocate_NotFoundCases(t *testing.T) {
	root := t.TempDir()
	writeSet(t, filepath.Join(root, "IBM", "20240101_000000"), IncomeFile, BalanceFile)
	writeSet(t, filepath.Join(root, "explicit"), IncomeFile)

	l := NewLocator(root)
	cases := map[string][2]string{
		"missing ticker dir":  {"NOPE", ""},
		"no complete folder":  {"IBM", ""},
		"explicit incomplete": {"", filepath.Join(root, "explicit")},
		"no input":            {"", ""},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := l.Locate(in[0], in[1])
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDataUnavailable))
			assert.Equal(t, NotFoundMessage, err.Error())
		})
	}
}

func TestLocate_ExplicitFolderWins(t *testing.T) {
	root := t.TempDir()
	folder := filepath.Join(root, "upload")
	writeSet(t, folder, IncomeFile, BalanceFile, CashFlowFile)

	p, err := NewLocator(root).Locate("UNKNOWN", folder)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(folder, IncomeFile), p.Income)
}

func TestStandardize_FromDisk(t *testing.T) {
	root := t.TempDir()
	writeSet(t, filepath.Join(root, "AAPL", "20240101_090000"), IncomeFile, BalanceFile, CashFlowFile)

	std := Standardize(NewLocator(root), DefaultAliases, "AAPL", "")
	require.True(t, std.OK(), std.Error)
	assert.Equal(t, []string{"2023-09-30", "2022-09-30"}, std.Periods)

	equity, _ := std.Balance.Get(TotalEquity)[0].Float()
	assert.Equal(t, 62146000000.0, equity)
	assert.True(t, std.CashFlow.Get(Capex)[1].IsMissing())

	missing := Standardize(NewLocator(root), DefaultAliases, "MISSING", "")
	assert.False(t, missing.OK())
	assert.ErrorIs(t, missing.Ensure(), ErrDataUnavailable)
}

func TestRawCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), IncomeFile)
	in := &RawTable{Periods: []string{"2023", "2022"}, Rows: []RawRow{
		{Label: "Total Revenue", Values: Series{Num(10), Missing}},
	}}
	require.NoError(t, WriteRawCSVFile(path, in))

	out, err := ReadRawCSVFile(path)
	require.NoError(t, err)
	assert.Equal(t, in.Periods, out.Periods)
	assert.Equal(t, "Total Revenue", out.Rows[0].Label)
	assert.True(t, out.Rows[0].Values[1].IsMissing())
}
