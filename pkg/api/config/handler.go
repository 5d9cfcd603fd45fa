package config

import (
	"net/http"

	"finstat/pkg/api/respond"
	coreConfig "finstat/pkg/core/config"
)

// Handler exposes the effective configuration.
type Handler struct {
	Config  *coreConfig.Config
	Backend string
}

// NewHandler creates a new config handler. backend names where valuation runs
// are stored ("postgres" or "file").
func NewHandler(cfg *coreConfig.Config, backend string) *Handler {
	return &Handler{Config: cfg, Backend: backend}
}

// HandleConfig returns the configuration with credentials masked.
func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	if respond.CORS(w, r, "GET") {
		return
	}
	respond.OK(w, map[string]interface{}{
		"config":      h.Config.Redacted(),
		"run_backend": h.Backend,
	})
}
