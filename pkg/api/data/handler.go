package data

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"finstat/pkg/api/respond"
	"finstat/pkg/core/ingest"
	"finstat/pkg/core/pipeline"

	"github.com/phuslu/log"
)

// MaxUploadBytes bounds multipart uploads.
const MaxUploadBytes = 32 << 20

// FetchRequest is the body of POST /api/data/fetch. Dates are YYYY-MM-DD.
type FetchRequest struct {
	Ticker   string `json:"ticker"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Interval string `json:"interval"`
}

// Handler serves the data endpoints: fetch, upload and download.
type Handler struct {
	Service   *pipeline.Service
	DataDir   string
	UploadDir string
}

// NewHandler creates a new data handler
func NewHandler(svc *pipeline.Service, dataDir, uploadDir string) *Handler {
	return &Handler{Service: svc, DataDir: dataDir, UploadDir: uploadDir}
}

// HandleFetch downloads a fresh snapshot for a ticker.
func (h *Handler) HandleFetch(w http.ResponseWriter, r *http.Request) {
	if respond.CORS(w, r, "POST") {
		return
	}
	if r.Method != http.MethodPost {
		respond.Error(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req FetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Ticker) == "" {
		respond.Error(w, http.StatusBadRequest, "ticker required")
		return
	}
	start, err := parseDate(req.Start)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, fmt.Sprintf("invalid start: %v", err))
		return
	}
	end, err := parseDate(req.End)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, fmt.Sprintf("invalid end: %v", err))
		return
	}

	res, err := h.Service.Fetch(r.Context(), ingest.FetchRequest{
		Ticker:   req.Ticker,
		Start:    start,
		End:      end,
		Interval: req.Interval,
	})
	if err != nil {
		respond.Fail(w, r, err)
		return
	}
	respond.OK(w, map[string]interface{}{
		"ticker": res.Ticker,
		"folder": res.Folder,
		"files":  res.Files,
	})
}

func parseDate(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", strings.TrimSpace(s))
}

// HandleUpload stores a multipart "file" in the upload directory.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if respond.CORS(w, r, "POST") {
		return
	}
	if r.Method != http.MethodPost {
		respond.Error(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			respond.Error(w, http.StatusBadRequest, "no file part")
			return
		}
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	defer file.Close()

	name := SafeFilename(header.Filename)
	if name == "" {
		respond.Error(w, http.StatusBadRequest, "no selected file")
		return
	}
	if err := os.MkdirAll(h.UploadDir, 0755); err != nil {
		respond.Fail(w, r, fmt.Errorf("create upload dir: %w", err))
		return
	}
	path := filepath.Join(h.UploadDir, name)
	out, err := os.Create(path)
	if err != nil {
		respond.Fail(w, r, err)
		return
	}
	n, err := io.Copy(out, file)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		respond.Fail(w, r, fmt.Errorf("save upload: %w", err))
		return
	}

	log.Info().Str("request_id", respond.RequestID(r.Context())).Str("path", path).Int64("bytes", n).Msg("[DATA] upload saved")
	respond.OK(w, map[string]interface{}{"path": path})
}

// HandleDownload serves a file from the data or upload directory as an attachment.
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	if respond.CORS(w, r, "GET") {
		return
	}

	raw := r.URL.Query().Get("path")
	if raw == "" {
		respond.Error(w, http.StatusNotFound, "file not found")
		return
	}
	path, ok := h.resolve(raw)
	if !ok {
		log.Warn().Str("request_id", respond.RequestID(r.Context())).Str("path", raw).Msg("[DATA] download outside allowed roots")
		respond.Error(w, http.StatusForbidden, "access denied")
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		respond.Error(w, http.StatusNotFound, "file not found")
		return
	}

	f, err := os.Open(path)
	if err != nil {
		respond.Fail(w, r, err)
		return
	}
	defer f.Close()

	respond.Attachment(w, filepath.Base(path), "application/octet-stream")
	http.ServeContent(w, r, filepath.Base(path), info.ModTime(), f)
}

// resolve makes raw absolute, relative paths being taken from the data directory,
// and reports whether it lies inside the data or upload directory.
func (h *Handler) resolve(raw string) (string, bool) {
	path := raw
	if !filepath.IsAbs(path) {
		path = filepath.Join(h.DataDir, path)
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	if real, err := filepath.EvalSymlinks(path); err == nil {
		path = real
	}
	for _, root := range []string{h.DataDir, h.UploadDir} {
		if root == "" {
			continue
		}
		if within(root, path) {
			return path, true
		}
	}
	return "", false
}

func within(root, path string) bool {
	abs, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		abs = real
	}
	rel, err := filepath.Rel(abs, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// SafeFilename reduces an uploaded name to a plain base name of letters, digits,
// '.', '-' and '_'. It returns "" when nothing usable remains.
func SafeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "._")
}
