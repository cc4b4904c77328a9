package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/clickgraph/clickgraph/internal/logging"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError logs 5xx failures (client-caused 4xx are not worth a log
// line per request) and writes the status/body toErrorBody computed.
func writeError(w http.ResponseWriter, logger *logging.Logger, body errorBody, status int) {
	if status >= 500 {
		logger.Error("request failed", "kind", body.Kind, "message", body.Message, "status", status)
	}
	writeJSON(w, status, map[string]any{"error": body})
}
