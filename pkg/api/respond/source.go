package respond

import (
	"net/http"
	"strings"

	"finstat/pkg/core/pipeline"

	"github.com/phuslu/log"
	"github.com/xuri/excelize/v2"
)

// MissingSource is returned when neither ticker nor path is given.
const MissingSource = "Provide ticker or path from fetch step."

// Source reads ?ticker= and ?path= and reports whether either was given.
func Source(r *http.Request) (pipeline.Source, bool) {
	q := r.URL.Query()
	src := pipeline.Source{
		Ticker: strings.ToUpper(strings.TrimSpace(q.Get("ticker"))),
		Folder: strings.TrimSpace(q.Get("path")),
	}
	return src, src.Ticker != "" || src.Folder != ""
}

// Workbook streams f as an xlsx attachment and closes it.
func Workbook(w http.ResponseWriter, r *http.Request, f *excelize.File, name string) {
	defer f.Close()
	Attachment(w, name, XLSX)
	if _, err := f.WriteTo(w); err != nil {
		log.Error().Str("request_id", RequestID(r.Context())).Str("file", name).Err(err).Msg("[API] failed to stream workbook")
	}
}

// HTML writes a rendered page.
func HTML(w http.ResponseWriter, status int, page []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(page)
}
