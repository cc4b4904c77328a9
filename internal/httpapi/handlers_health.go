package httpapi

import "net/http"

// handleHealth is GET /health. It reports the backend connection's own
// health when one is configured, and degrades gracefully to "ok" when
// running in SQL-only mode without a backend.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.backend == nil {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
		return
	}

	if err := s.backend.HealthCheck(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, healthResponse{Status: "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}
