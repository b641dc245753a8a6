package server

import "net/http"

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Job lifecycle API
	mux.HandleFunc("/start_job", s.app.JobHandler.StartJobHandler)         // POST - submit a generation job
	mux.HandleFunc("/interrupt_job", s.app.JobHandler.InterruptJobHandler) // POST - cancel a job
	mux.HandleFunc("/retrieve_job", s.app.JobHandler.RetrieveJobHandler)   // GET - poll job state
	mux.HandleFunc("/get_image", s.app.ImageHandler.GetImageHandler)       // GET - fetch generated image bytes

	// System API
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// Everything else
	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	return mux
}
