package statements

import (
	"net/http"

	"finstat/pkg/api/respond"
	"finstat/pkg/core/export"
	"finstat/pkg/core/pipeline"
	"finstat/pkg/core/report"
)

// Handler serves standardized statements as JSON, xlsx and HTML.
type Handler struct {
	Service *pipeline.Service
}

// NewHandler creates a new statements handler
func NewHandler(svc *pipeline.Service) *Handler {
	return &Handler{Service: svc}
}

// HandleJSON returns the three canonical statements keyed by item and period.
func (h *Handler) HandleJSON(w http.ResponseWriter, r *http.Request) {
	if respond.CORS(w, r, "GET") {
		return
	}
	src, ok := respond.Source(r)
	if !ok {
		respond.Error(w, http.StatusBadRequest, respond.MissingSource)
		return
	}
	std := h.Service.Standardize(src)
	if err := std.Ensure(); err != nil {
		respond.Fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, std)
}

// HandleExport downloads the statements workbook.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	if respond.CORS(w, r, "GET") {
		return
	}
	src, _ := respond.Source(r)
	f, err := export.StatementsWorkbook(h.Service.Standardize(src))
	if err != nil {
		respond.Fail(w, r, err)
		return
	}
	respond.Workbook(w, r, f, export.FileName(src.Ticker, "statements"))
}

// HandleView renders the statements page.
func (h *Handler) HandleView(w http.ResponseWriter, r *http.Request) {
	src, ok := respond.Source(r)
	var md string
	if !ok {
		md = report.ErrorMarkdown("Statements", respond.MissingSource)
	} else {
		md = report.StatementsMarkdown("Statements: "+src.Label(), h.Service.Standardize(src))
	}
	page, err := report.Page("Statements", md)
	if err != nil {
		respond.Fail(w, r, err)
		return
	}
	respond.HTML(w, http.StatusOK, page)
}
