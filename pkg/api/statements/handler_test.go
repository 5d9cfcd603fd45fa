package statements

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"finstat/pkg/api/respond"
	"finstat/pkg/core/export"
	"finstat/pkg/core/pipeline"
	core "finstat/pkg/core/statements"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func fixture(t *testing.T) *Handler {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "AAPL", "20240101_000000")
	require.NoError(t, os.MkdirAll(dir, 0755))
	periods := []string{"2023-12-31", "2022-12-31"}
	row := func(label string, a, b float64) []core.RawRow {
		return []core.RawRow{{Label: label, Values: core.Series{core.Num(a), core.Num(b)}}}
	}
	require.NoError(t, core.WriteRawCSVFile(filepath.Join(dir, core.IncomeFile), &core.RawTable{Periods: periods, Rows: row("Total Revenue", 1000, 800)}))
	require.NoError(t, core.WriteRawCSVFile(filepath.Join(dir, core.BalanceFile), &core.RawTable{Periods: periods, Rows: row("Total Assets", 2000, 1500)}))
	require.NoError(t, core.WriteRawCSVFile(filepath.Join(dir, core.CashFlowFile), &core.RawTable{Periods: periods, Rows: row("Operating Cash Flow", 150, 100)}))
	return NewHandler(pipeline.NewService(root, nil, nil, nil))
}

func get(handler http.HandlerFunc, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHandleJSON(t *testing.T) {
	h := fixture(t)
	rec := get(h.HandleJSON, "/api/statements?ticker=aapl")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		OK              bool                           `json:"ok"`
		Periods         []string                       `json:"periods"`
		IncomeStatement map[string]map[string]*float64 `json:"income_statement"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.OK)
	assert.Equal(t, []string{"2023-12-31", "2022-12-31"}, body.Periods)
	require.NotNil(t, body.IncomeStatement["Total Revenue"]["2023-12-31"])
	assert.Equal(t, 1000.0, *body.IncomeStatement["Total Revenue"]["2023-12-31"])
	assert.Nil(t, body.IncomeStatement["Net Income"]["2023-12-31"])
}

func TestHandleJSON_Errors(t *testing.T) {
	h := fixture(t)

	rec := get(h.HandleJSON, "/api/statements")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(h.HandleJSON, "/api/statements?ticker=MSFT")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]interface{}{"ok": false, "error": core.NotFoundMessage}, body)
}

func TestHandleExport(t *testing.T) {
	h := fixture(t)
	rec := get(h.HandleExport, "/api/statements/export?ticker=AAPL")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, respond.XLSX, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "AAPL_statements.xlsx")

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{export.SheetIncome, export.SheetBalance, export.SheetCashFlow}, f.GetSheetList())

	assert.Equal(t, http.StatusNotFound, get(h.HandleExport, "/api/statements/export?ticker=ZZZ").Code)
}

func TestHandleView(t *testing.T) {
	h := fixture(t)

	rec := get(h.HandleView, "/statements?ticker=AAPL")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<table>")
	assert.Contains(t, rec.Body.String(), "Total Revenue")

	rec = get(h.HandleView, "/statements")
	assert.Contains(t, rec.Body.String(), respond.MissingSource)
}
