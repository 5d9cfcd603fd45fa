package data

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"finstat/pkg/core/market"
	"finstat/pkg/core/market/mocks"
	"finstat/pkg/core/pipeline"
	"finstat/pkg/core/statements"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandler(t *testing.T, provider market.Provider) *Handler {
	t.Helper()
	base := t.TempDir()
	dataDir := filepath.Join(base, "data")
	uploadDir := filepath.Join(base, "uploads")
	require.NoError(t, os.MkdirAll(dataDir, 0755))
	return NewHandler(pipeline.NewService(dataDir, nil, provider, nil), dataDir, uploadDir)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func download(h *Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.HandleDownload(rec, httptest.NewRequest(http.MethodGet, "/api/data/download?path="+url.QueryEscape(path), nil))
	return rec
}

func TestHandleDownload_AllowsDataDir(t *testing.T) {
	h := newHandler(t, nil)
	path := filepath.Join(h.DataDir, "sample.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0644))

	rec := download(h, path)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello world", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
}

func TestHandleDownload_RejectsTraversal(t *testing.T) {
	h := newHandler(t, nil)
	secret := filepath.Join(filepath.Dir(h.DataDir), "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("nope"), 0644))

	for _, p := range []string{filepath.Join("..", "secret.txt"), secret} {
		rec := download(h, p)
		assert.Equal(t, http.StatusForbidden, rec.Code, p)
		body := decode(t, rec)
		assert.Equal(t, map[string]interface{}{"ok": false, "error": "access denied"}, body)
	}
}

func TestHandleDownload_NotFound(t *testing.T) {
	h := newHandler(t, nil)
	assert.Equal(t, http.StatusNotFound, download(h, "").Code)
	assert.Equal(t, http.StatusNotFound, download(h, filepath.Join(h.DataDir, "missing.csv")).Code)
}

func TestHandleUpload(t *testing.T) {
	h := newHandler(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "../my statements.csv")
	require.NoError(t, err)
	fw.Write([]byte("Account,2023\n"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/data/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.HandleUpload(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, filepath.Join(h.UploadDir, "my_statements.csv"), body["path"])
	got, err := os.ReadFile(filepath.Join(h.UploadDir, "my_statements.csv"))
	require.NoError(t, err)
	assert.Equal(t, "Account,2023\n", string(got))

	// Uploaded files are downloadable.
	assert.Equal(t, http.StatusOK, download(h, body["path"].(string)).Code)
}

func TestHandleUpload_NoFile(t *testing.T) {
	h := newHandler(t, nil)
	rec := httptest.NewRecorder()
	h.HandleUpload(rec, httptest.NewRequest(http.MethodPost, "/api/data/upload", strings.NewReader("")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "no file part", decode(t, rec)["error"])
}

func TestHandleFetch(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().History(gomock.Any(), "AAPL", gomock.Any()).Return([]market.PriceBar{}, nil)
	provider.EXPECT().Statements(gomock.Any(), "AAPL").Return(&statements.RawSet{}, nil)
	h := newHandler(t, provider)

	rec := httptest.NewRecorder()
	h.HandleFetch(rec, httptest.NewRequest(http.MethodPost, "/api/data/fetch", strings.NewReader(`{"ticker":"aapl","start":"2023-01-01"}`)))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "AAPL", body["ticker"])
	files := body["files"].(map[string]interface{})
	assert.FileExists(t, files["income_statement"].(string))
}

func TestHandleFetch_BadRequests(t *testing.T) {
	h := newHandler(t, mocks.NewMockProvider(gomock.NewController(t)))

	cases := map[string]string{
		`{}`:                                 "ticker required",
		`{"ticker":"AAPL","start":"01/02"}`:  "invalid start",
		`{"ticker":"AAPL","interval":"7h"}`: "unsupported interval",
	}
	for body, want := range cases {
		rec := httptest.NewRecorder()
		h.HandleFetch(rec, httptest.NewRequest(http.MethodPost, "/api/data/fetch", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Contains(t, decode(t, rec)["error"], want, body)
	}
}

func TestHandleFetch_ProviderFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().History(gomock.Any(), "AAPL", gomock.Any()).Return(nil, market.ErrNoData)
	h := newHandler(t, provider)

	rec := httptest.NewRecorder()
	h.HandleFetch(rec, httptest.NewRequest(http.MethodPost, "/api/data/fetch", strings.NewReader(`{"ticker":"AAPL"}`)))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestSafeFilename(t *testing.T) {
	cases := map[string]string{
		"report.csv":          "report.csv",
		"../../etc/passwd":    "passwd",
		`C:\Users\me\a b.csv`: "a_b.csv",
		"..":                  "",
		"":                    "",
	}
	for in, want := range cases {
		assert.Equal(t, want, SafeFilename(in), in)
	}
}
