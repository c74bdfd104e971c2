package web

import (
	"net/http"
	"time"
)

type bannerResponse struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Status    string            `json:"status"`
	Endpoints map[string]string `json:"endpoints"`
}

type healthResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	Timestamp     string `json:"timestamp"`
	ActiveUploads int    `json:"activeUploads"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, bannerResponse{
		Message: "HR Data Middleware API",
		Version: APIVersion,
		Status:  "operational",
		Endpoints: map[string]string{
			"upload": "POST /api/upload",
			"stats":  "GET /api/stats",
			"audit":  "GET /api/audit/{batchId}",
			"export": "GET /api/audit/{batchId}/export",
			"health": "GET /api/health",
		},
	})
}

// handleHealth is a liveness probe; it does not touch the stores.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, healthResponse{
		Success:       true,
		Message:       "API is healthy",
		Timestamp:     time.Now().UTC().Format(time.RFC3339Nano),
		ActiveUploads: s.service.ActiveUploads(),
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	respondClientError(w, http.StatusNotFound, "Route not found", "")
}
