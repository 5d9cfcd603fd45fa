package main

import (
	"net/http"

	"finstat/pkg/api/analysis"
	apiConfig "finstat/pkg/api/config"
	"finstat/pkg/api/data"
	apiStatements "finstat/pkg/api/statements"
	"finstat/pkg/api/valuation"
	"finstat/pkg/core/config"
	"finstat/pkg/core/pipeline"
)

type route struct {
	method string
	path   string
}

// routes is filled by registerRoutes for the startup listing.
var routes []route

func registerRoutes(mux *http.ServeMux, cfg *config.Config, svc *pipeline.Service, backend string) {
	handle := func(method, path string, h http.HandlerFunc) {
		routes = append(routes, route{method, path})
		mux.HandleFunc(path, h)
	}

	// Config endpoints
	configHandler := apiConfig.NewHandler(cfg, backend)
	handle("GET", "/api/config", configHandler.HandleConfig)

	// Data endpoints
	dataHandler := data.NewHandler(svc, cfg.DataDir, cfg.UploadDir)
	handle("POST", "/api/data/fetch", dataHandler.HandleFetch)
	handle("POST", "/api/data/upload", dataHandler.HandleUpload)
	handle("GET", "/api/data/download", dataHandler.HandleDownload)

	// Statements
	stmtHandler := apiStatements.NewHandler(svc)
	handle("GET", "/api/statements", stmtHandler.HandleJSON)
	handle("GET", "/api/statements/export", stmtHandler.HandleExport)
	handle("GET", "/statements", stmtHandler.HandleView)

	// Analysis
	analysisHandler := analysis.NewHandler(svc)
	handle("GET", "/api/analysis", analysisHandler.HandleJSON)
	handle("GET", "/api/analysis/export", analysisHandler.HandleExport)
	handle("GET", "/analysis", analysisHandler.HandleView)

	// Valuation
	valuationHandler := valuation.NewHandler(svc)
	handle("POST", "/api/valuation/dcf", valuationHandler.HandleDCF)
	handle("POST", "/api/valuation/comps", valuationHandler.HandleComps)
	handle("POST", "/api/valuation/export", valuationHandler.HandleExport)
	handle("POST", "/api/valuation/wacc", valuationHandler.HandleWACC)
	handle("GET", "/api/valuation/runs", valuationHandler.HandleRuns)
}
