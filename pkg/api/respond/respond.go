// Package respond holds the JSON envelope, error-to-status mapping and request
// id middleware shared by the API handlers.
package respond

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"finstat/pkg/core/ingest"
	"finstat/pkg/core/market"
	"finstat/pkg/core/pipeline"
	"finstat/pkg/core/statements"
	"finstat/pkg/core/valuation"

	"github.com/google/uuid"
	"github.com/phuslu/log"
)

// RequestIDHeader carries the per-request id.
const RequestIDHeader = "X-Request-ID"

type ctxKey struct{}

// CORS adds the headers for local dev and answers preflight requests.
// It reports true when the request was fully handled.
func CORS(w http.ResponseWriter, r *http.Request, methods string) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods+", OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return true
	}
	return false
}

// JSON writes v with status. v is encoded before the header goes out so an
// unencodable body becomes a 500 instead of an empty success.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("[API] failed to encode response")
		status = http.StatusInternalServerError
		body, _ = json.Marshal(map[string]interface{}{"ok": false, "error": "failed to encode response"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

// OK writes {"ok":true} merged with the fields of body.
func OK(w http.ResponseWriter, body map[string]interface{}) {
	out := map[string]interface{}{"ok": true}
	for k, v := range body {
		out[k] = v
	}
	JSON(w, http.StatusOK, out)
}

// Error writes {"ok":false,"error":msg}.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]interface{}{"ok": false, "error": msg})
}

// Fail maps err onto a status and writes it.
func Fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	ev := log.Warn()
	if status >= 500 {
		ev = log.Error()
	}
	ev.Str("request_id", RequestID(r.Context())).Str("path", r.URL.Path).Int("status", status).Err(err).Msg("[API] request failed")
	Error(w, status, err.Error())
}

// StatusFor classifies an error from the core packages.
func StatusFor(err error) int {
	var apiErr *market.APIError
	switch {
	case errors.Is(err, statements.ErrDataUnavailable):
		return http.StatusNotFound
	case errors.Is(err, valuation.ErrInvalidParams), errors.Is(err, ingest.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrNoProvider):
		return http.StatusServiceUnavailable
	case errors.Is(err, market.ErrNoData), errors.As(err, &apiErr),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Attachment sets the download headers for name.
func Attachment(w http.ResponseWriter, name, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q; filename*=UTF-8''%s", name, url.PathEscape(name)))
}

// XLSX is the workbook content type.
const XLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// RequestID returns the id assigned by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// WithRequestID tags every request with a uuid, echoes it in the response header
// and logs the request on completion.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))

		log.Info().Str("request_id", id).Str("method", r.Method).Str("path", r.URL.Path).
			Int("status", rec.status).Dur("elapsed", time.Since(start)).Msg("[API] request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
