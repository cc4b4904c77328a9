package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/clickgraph/clickgraph/internal/backend"
	"github.com/clickgraph/clickgraph/internal/query"
)

// handleQuery is POST /query (spec §4.8). Schema selection inside
// query.Compile already implements the USE-clause > schema_name >
// default priority; this handler only adds the sql_only short-circuit and
// the backend round-trip.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, queryResponse{Error: &errorBody{Kind: "SyntaxError", Message: "malformed JSON request body"}})
		return
	}

	viewParams := stringifyParams(req.ViewParameters)

	renderStart := time.Now()
	compiled, err := query.Compile(s.catalog, req.Query, req.SchemaName, req.Parameters, viewParams)
	if s.metrics != nil {
		s.metrics.RenderLatency.Observe(time.Since(renderStart).Seconds())
	}
	if err != nil {
		body, status := toErrorBody(err)
		s.countOutcome(body.Kind)
		writeJSON(w, status, queryResponse{Error: &body})
		return
	}
	s.countOutcome("ok")
	if s.metrics != nil {
		s.metrics.CTECountPerQuery.Observe(float64(compiled.CTECount))
	}

	if req.SQLOnly {
		writeJSON(w, http.StatusOK, queryResponse{SQL: compiled.SQL})
		return
	}

	if s.backend == nil {
		writeJSON(w, http.StatusOK, queryResponse{SQL: compiled.SQL})
		return
	}

	opts := backend.QueryOptions{Role: req.Role, ViewParameters: viewParams}
	backendStart := time.Now()
	result, err := s.backend.Execute(r.Context(), compiled.SQL, opts)
	if s.metrics != nil {
		s.metrics.BackendLatency.Observe(time.Since(backendStart).Seconds())
	}
	if err != nil {
		body, status := toErrorBody(err)
		s.countOutcome(body.Kind)
		writeJSON(w, status, queryResponse{Error: &body})
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Results: rowsToMaps(result),
		Columns: result.Columns,
	})
}

// countOutcome increments the queries_total counter for outcome ("ok" or a
// cgerrors.Kind string), a no-op when metrics weren't wired.
func (s *Server) countOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.QueriesTotal.WithLabelValues(outcome).Inc()
	}
}

func stringifyParams(params map[string]any) map[string]string {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]string, len(params))
	for k, v := range params {
		out[k] = fmt.Sprintf("%v", v)
	}
	return out
}

func rowsToMaps(result *backend.Result) []map[string]any {
	rows := make([]map[string]any, len(result.Rows))
	for i, row := range result.Rows {
		m := make(map[string]any, len(result.Columns))
		for j, col := range result.Columns {
			if j < len(row) {
				m[col] = row[j]
			}
		}
		rows[i] = m
	}
	return rows
}
