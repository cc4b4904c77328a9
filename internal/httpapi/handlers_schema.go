package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/clickgraph/clickgraph/internal/cgerrors"
)

// handleSchemaLoad is POST /schemas/load (spec §4.8): parses and
// registers a schema config, additive-only per C1's catalog semantics.
func (s *Server) handleSchemaLoad(w http.ResponseWriter, r *http.Request) {
	var req schemaLoadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, schemaLoadResponse{Error: &errorBody{Kind: "SyntaxError", Message: "malformed JSON request body"}})
		return
	}

	schema, err := s.catalog.LoadContentAndRegister([]byte(req.ConfigContent))
	if err != nil {
		body, status := toErrorBody(err)
		writeJSON(w, status, schemaLoadResponse{Error: &body})
		return
	}

	writeJSON(w, http.StatusOK, schemaLoadResponse{Name: schema.Name, Version: schema.Version})
}

// handleSchemasList is GET /schemas.
func (s *Server) handleSchemasList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, schemasListResponse{Schemas: s.catalog.Names()})
}

// handleSchemaIntrospect is POST /schemas/introspect (spec §6.8).
func (s *Server) handleSchemaIntrospect(w http.ResponseWriter, r *http.Request) {
	var req introspectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, introspectResponse{Error: &errorBody{Kind: "SyntaxError", Message: "malformed JSON request body"}})
		return
	}

	if s.discovery == nil {
		body, status := toErrorBody(cgerrors.New(cgerrors.Unavailable, "no backend configured for schema discovery"))
		writeJSON(w, status, introspectResponse{Error: &body})
		return
	}

	tables, err := s.discovery.Introspect(r.Context(), req.Tables)
	if err != nil {
		body, status := toErrorBody(err)
		writeJSON(w, status, introspectResponse{Error: &body})
		return
	}

	resp := introspectResponse{Tables: make([]introspectedTableJSON, len(tables))}
	for i, t := range tables {
		cols := make([]introspectColumn, len(t.Columns))
		for j, c := range t.Columns {
			cols[j] = introspectColumn{Name: c.Name, Type: c.Type}
		}
		resp.Tables[i] = introspectedTableJSON{Table: t.Table, Columns: cols}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSchemaDraft is POST /schemas/draft (spec §6.8). The draft is
// returned for human review only and is never registered.
func (s *Server) handleSchemaDraft(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, draftResponse{Error: &errorBody{Kind: "SyntaxError", Message: "malformed JSON request body"}})
		return
	}

	if s.discovery == nil {
		body, status := toErrorBody(cgerrors.New(cgerrors.Unavailable, "no backend configured for schema discovery"))
		writeJSON(w, status, draftResponse{Error: &body})
		return
	}

	draft, err := s.discovery.Draft(r.Context(), req.Tables)
	if err != nil {
		body, status := toErrorBody(err)
		writeJSON(w, status, draftResponse{Error: &body})
		return
	}
	writeJSON(w, http.StatusOK, draftResponse{YAML: draft.YAML})
}

// handleDiscoverPrompt is POST /schemas/discover-prompt (spec §6.8): no
// LLM call is ever made here, only a canned template filled in with the
// requested tables' live columns.
func (s *Server) handleDiscoverPrompt(w http.ResponseWriter, r *http.Request) {
	var req introspectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, discoverPromptResponse{Error: &errorBody{Kind: "SyntaxError", Message: "malformed JSON request body"}})
		return
	}

	if s.discovery == nil {
		body, status := toErrorBody(cgerrors.New(cgerrors.Unavailable, "no backend configured for schema discovery"))
		writeJSON(w, status, discoverPromptResponse{Error: &body})
		return
	}

	prompt, err := s.discovery.DiscoverPrompt(r.Context(), req.Tables)
	if err != nil {
		body, status := toErrorBody(err)
		writeJSON(w, status, discoverPromptResponse{Error: &body})
		return
	}
	writeJSON(w, http.StatusOK, discoverPromptResponse{Prompt: prompt})
}
