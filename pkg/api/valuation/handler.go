package valuation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"finstat/pkg/api/respond"
	"finstat/pkg/core/export"
	"finstat/pkg/core/pipeline"
	"finstat/pkg/core/statements"
	"finstat/pkg/core/store"
	"finstat/pkg/core/valuation"
)

// DCFRequest is the body of POST /api/valuation/dcf. Pointer fields distinguish
// omitted from zero.
type DCFRequest struct {
	Ticker            string           `json:"ticker"`
	Path              string           `json:"path"`
	WACC              *float64         `json:"wacc"`
	TerminalGrowth    *float64         `json:"terminal_growth"`
	ForecastYears     *int             `json:"forecast_years"`
	SharesOutstanding statements.Value `json:"shares_outstanding"`
}

// Params checks required fields and fills the forecast horizon default.
func (req DCFRequest) Params() (pipeline.Source, valuation.DCFParams, error) {
	src := pipeline.Source{Ticker: strings.TrimSpace(req.Ticker), Folder: strings.TrimSpace(req.Path)}
	switch {
	case src.Ticker == "" && src.Folder == "":
		return src, valuation.DCFParams{}, fmt.Errorf("%w: missing ticker", valuation.ErrInvalidParams)
	case req.WACC == nil:
		return src, valuation.DCFParams{}, fmt.Errorf("%w: missing wacc", valuation.ErrInvalidParams)
	case req.TerminalGrowth == nil:
		return src, valuation.DCFParams{}, fmt.Errorf("%w: missing terminal_growth", valuation.ErrInvalidParams)
	}
	params := valuation.DCFParams{
		WACC:              *req.WACC,
		TerminalGrowth:    *req.TerminalGrowth,
		ForecastYears:     valuation.DefaultForecastYears,
		SharesOutstanding: req.SharesOutstanding,
	}
	if req.ForecastYears != nil {
		params.ForecastYears = *req.ForecastYears
	}
	return src, params, nil
}

// CompsRequest is the body of POST /api/valuation/comps.
type CompsRequest struct {
	Tickers []string `json:"tickers"`
}

// ExportRequest is the body of POST /api/valuation/export.
type ExportRequest struct {
	Ticker string               `json:"ticker"`
	DCF    *valuation.DCFResult `json:"dcf"`
	Comps  []valuation.CompRow  `json:"comps"`
}

// Handler serves DCF, comparables, WACC and run history.
type Handler struct {
	Service *pipeline.Service
}

// NewHandler creates a new valuation handler
func NewHandler(svc *pipeline.Service) *Handler {
	return &Handler{Service: svc}
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func post(w http.ResponseWriter, r *http.Request) bool {
	if respond.CORS(w, r, "POST") {
		return false
	}
	if r.Method != http.MethodPost {
		respond.Error(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

// HandleDCF runs the discounted cash flow valuation.
func (h *Handler) HandleDCF(w http.ResponseWriter, r *http.Request) {
	if !post(w, r) {
		return
	}
	var req DCFRequest
	if !decode(w, r, &req) {
		return
	}
	src, params, err := req.Params()
	if err != nil {
		respond.Fail(w, r, err)
		return
	}
	res, err := h.Service.DCF(r.Context(), src, params)
	if err != nil {
		respond.Fail(w, r, err)
		return
	}
	respond.OK(w, map[string]interface{}{"dcf": res})
}

// HandleComps builds the comparables table. Failed peers appear with an error
// and empty multiples.
func (h *Handler) HandleComps(w http.ResponseWriter, r *http.Request) {
	if !post(w, r) {
		return
	}
	var req CompsRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Tickers) == 0 {
		respond.Error(w, http.StatusBadRequest, "tickers required")
		return
	}
	rows, summary, err := h.Service.Comps(r.Context(), req.Tickers)
	if err != nil {
		respond.Fail(w, r, err)
		return
	}
	respond.OK(w, map[string]interface{}{"table": rows, "summary": summary})
}

// HandleExport renders a DCF result and optional comps as a workbook.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	if !post(w, r) {
		return
	}
	var req ExportRequest
	if !decode(w, r, &req) {
		return
	}
	if req.DCF == nil {
		respond.Error(w, http.StatusBadRequest, "dcf result required")
		return
	}
	f, err := export.ValuationWorkbook(req.DCF, req.Comps)
	if err != nil {
		respond.Fail(w, r, err)
		return
	}
	respond.Workbook(w, r, f, export.FileName(req.Ticker, "valuation"))
}

// HandleWACC estimates a discount rate from CAPM inputs.
func (h *Handler) HandleWACC(w http.ResponseWriter, r *http.Request) {
	if !post(w, r) {
		return
	}
	var in valuation.WACCInput
	if !decode(w, r, &in) {
		return
	}
	res, err := valuation.CalculateWACC(in)
	if err != nil {
		respond.Fail(w, r, err)
		return
	}
	respond.OK(w, map[string]interface{}{"wacc": res})
}

// HandleRuns lists recorded DCF runs, newest first.
func (h *Handler) HandleRuns(w http.ResponseWriter, r *http.Request) {
	if respond.CORS(w, r, "GET") {
		return
	}
	q := r.URL.Query()
	limit := 0
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			respond.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	runs, err := h.Service.Runs(r.Context(), strings.ToUpper(strings.TrimSpace(q.Get("ticker"))), limit)
	if err != nil {
		respond.Fail(w, r, err)
		return
	}
	if runs == nil {
		runs = []store.ValuationRun{}
	}
	respond.OK(w, map[string]interface{}{"runs": runs})
}
