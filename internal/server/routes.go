package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Generation jobs
	mux.HandleFunc("/api/jobs", s.app.JobHandler.CreateJobHandler) // POST - create job
	mux.HandleFunc("/api/jobs/", s.handleJobRoutes)                // GET /{id}, POST /{id}/step, /{id}/finalize, /{id}/complete-image, /{id}/run

	// API routes - Topic queue
	mux.HandleFunc("/api/queue", s.handleQueueRoute) // GET (list), POST (enqueue)
	mux.HandleFunc("/api/queue/counts", s.app.QueueHandler.QueueCountsHandler)
	mux.HandleFunc("/api/queue/seed", s.app.QueueHandler.SeedTrendingHandler)
	mux.HandleFunc("/api/queue/", s.handleQueueTopicRoutes) // DELETE /{id}, POST /{id}/requeue

	// API routes - Scheduler
	mux.HandleFunc("/api/scheduler/status", s.app.SchedulerHandler.StatusHandler)
	mux.HandleFunc("/api/scheduler/trigger", s.app.SchedulerHandler.TriggerHandler)

	// API routes - Settings
	mux.HandleFunc("/api/settings", s.app.SettingsHandler.ListSettingsHandler)
	mux.HandleFunc("/api/settings/", s.handleSettingRoutes) // GET/PUT /{key}

	// API routes - Documents
	mux.HandleFunc("/api/documents", s.app.DocumentHandler.ListHandler)
	mux.HandleFunc("/api/documents/", s.app.DocumentHandler.GetHandler) // GET /{id}

	// API routes - Cost ledger
	mux.HandleFunc("/api/ledger", s.app.LedgerHandler.ListEntriesHandler)
	mux.HandleFunc("/api/ledger/stats", s.app.LedgerHandler.StatsHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleJobRoutes routes job-related requests to the appropriate handler
func (s *Server) handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	handled := RouteByPathSuffix(w, r, "/api/jobs/", []PathSuffixRouter{
		{Suffix: "/step", Handler: s.app.JobHandler.ProcessStepHandler},
		{Suffix: "/finalize", Handler: s.app.JobHandler.FinalizeHandler},
		{Suffix: "/complete-image", Handler: s.app.JobHandler.CompleteImageHandler},
		{Suffix: "/run", Handler: s.app.JobHandler.RunJobHandler},
	})
	if handled {
		return
	}

	// GET /api/jobs/{id}
	if !strings.Contains(strings.TrimPrefix(path, "/api/jobs/"), "/") {
		s.app.JobHandler.GetJobHandler(w, r)
		return
	}

	http.Error(w, "Not found", http.StatusNotFound)
}

// handleQueueTopicRoutes routes /api/queue/{id} and its subpaths
func (s *Server) handleQueueTopicRoutes(w http.ResponseWriter, r *http.Request) {
	handled := RouteByPathSuffix(w, r, "/api/queue/", []PathSuffixRouter{
		{Suffix: "/requeue", Handler: s.app.QueueHandler.RequeueTopicHandler},
	})
	if handled {
		return
	}

	s.app.QueueHandler.DeleteTopicHandler(w, r)
}

// handleQueueRoute routes /api/queue by HTTP method
func (s *Server) handleQueueRoute(w http.ResponseWriter, r *http.Request) {
	RouteByMethod(w, r, MethodRouter{
		"GET":  s.app.QueueHandler.ListQueueHandler,
		"POST": s.app.QueueHandler.EnqueueHandler,
	})
}

// handleSettingRoutes routes /api/settings/{key} by HTTP method
func (s *Server) handleSettingRoutes(w http.ResponseWriter, r *http.Request) {
	RouteByMethod(w, r, MethodRouter{
		"GET": s.app.SettingsHandler.GetSettingHandler,
		"PUT": s.app.SettingsHandler.SetSettingHandler,
	})
}
