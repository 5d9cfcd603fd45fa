package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"finstat/pkg/core/ingest"
	"finstat/pkg/core/market"
	"finstat/pkg/core/pipeline"
	"finstat/pkg/core/statements"
	"finstat/pkg/core/valuation"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&statements.UnavailableError{Message: statements.NotFoundMessage}, http.StatusNotFound},
		{fmt.Errorf("%w: wacc", valuation.ErrInvalidParams), http.StatusBadRequest},
		{fmt.Errorf("%w: ticker", ingest.ErrInvalidRequest), http.StatusBadRequest},
		{pipeline.ErrNoProvider, http.StatusServiceUnavailable},
		{fmt.Errorf("statements: %w", market.ErrNoData), http.StatusBadGateway},
		{&market.APIError{StatusCode: 429, Endpoint: "/v8/finance/chart"}, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, StatusFor(c.err), c.err.Error())
	}
}

func TestFail_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/statements", nil)
	Fail(rec, req, &statements.UnavailableError{Message: statements.NotFoundMessage})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, statements.NotFoundMessage, body["error"])
}

func TestJSON_UnencodableBody(t *testing.T) {
	rec := httptest.NewRecorder()
	OK(rec, map[string]interface{}{"value": math.Inf(1)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["ok"])
}

func TestWithRequestID(t *testing.T) {
	var seen string
	h := WithRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	id := rec.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.Equal(t, id, seen)
	assert.Equal(t, http.StatusTeapot, rec.Code)

	// A valid incoming id is kept.
	given := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, given)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, given, rec.Header().Get(RequestIDHeader))
}

func TestCORS_Preflight(t *testing.T) {
	rec := httptest.NewRecorder()
	handled := CORS(rec, httptest.NewRequest(http.MethodOptions, "/", nil), "POST")
	assert.True(t, handled)
	assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
}
