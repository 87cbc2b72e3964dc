package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Extraction pipeline
	mux.HandleFunc("/extract-media", s.app.ExtractHandler.ExtractMediaHandler)

	// Session lifecycle
	mux.HandleFunc("/refresh-session", s.app.SessionHandler.RefreshSessionHandler)
	mux.HandleFunc("/session-status", s.app.SessionHandler.SessionStatusHandler)

	// Job registry inspection
	mux.HandleFunc("/jobs", s.app.JobHandler.ListJobsHandler)
	mux.HandleFunc("/jobs/", s.app.JobHandler.GetJobHandler)

	// System
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)

	// Everything else is a JSON 404
	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	return mux
}
