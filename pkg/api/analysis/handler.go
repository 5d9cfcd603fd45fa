package analysis

import (
	"net/http"

	"finstat/pkg/api/respond"
	"finstat/pkg/core/export"
	"finstat/pkg/core/pipeline"
	"finstat/pkg/core/report"
)

// Handler serves ratios, common-size, DuPont and growth tables.
type Handler struct {
	Service *pipeline.Service
}

// NewHandler creates a new analysis handler
func NewHandler(svc *pipeline.Service) *Handler {
	return &Handler{Service: svc}
}

// HandleJSON returns every derived table.
func (h *Handler) HandleJSON(w http.ResponseWriter, r *http.Request) {
	if respond.CORS(w, r, "GET") {
		return
	}
	src, ok := respond.Source(r)
	if !ok {
		respond.Error(w, http.StatusBadRequest, respond.MissingSource)
		return
	}
	_, a, err := h.Service.Analyze(src)
	if err != nil {
		respond.Fail(w, r, err)
		return
	}
	respond.OK(w, map[string]interface{}{
		"periods":     a.Periods,
		"ratios":      a.Ratios,
		"common_size": a.CommonSize,
		"dupont":      a.DuPont,
		"growth":      a.Growth,
		"quality":     a.Quality,
	})
}

// HandleExport downloads the analysis workbook.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	if respond.CORS(w, r, "GET") {
		return
	}
	src, _ := respond.Source(r)
	_, a, err := h.Service.Analyze(src)
	if err != nil {
		respond.Fail(w, r, err)
		return
	}
	f, err := export.AnalysisWorkbook(a)
	if err != nil {
		respond.Fail(w, r, err)
		return
	}
	respond.Workbook(w, r, f, export.FileName(src.Ticker, "analysis"))
}

// HandleView renders the analysis page.
func (h *Handler) HandleView(w http.ResponseWriter, r *http.Request) {
	src, ok := respond.Source(r)
	var md string
	switch {
	case !ok:
		md = report.ErrorMarkdown("Analysis", respond.MissingSource)
	default:
		if _, a, err := h.Service.Analyze(src); err != nil {
			md = report.ErrorMarkdown("Analysis: "+src.Label(), err.Error())
		} else {
			md = report.AnalysisMarkdown("Analysis: "+src.Label(), a)
		}
	}
	page, err := report.Page("Analysis", md)
	if err != nil {
		respond.Fail(w, r, err)
		return
	}
	respond.HTML(w, http.StatusOK, page)
}
