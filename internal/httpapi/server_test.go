package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clickgraph/clickgraph/internal/catalog"
)

const socialSchemaYAML = `
name: social
version: "1"
default_schema: true
graph_schema:
  nodes:
    - label: User
      database: social
      table: users
      node_id: user_id
      property_mappings:
        user_id: user_id
        name: name
  relationships:
    - type: FOLLOWS
      database: social
      table: follows
      from_id: follower_id
      to_id: followee_id
      from_node: User
      to_node: User
`

func newTestServer(t *testing.T) (*Server, *catalog.Catalog) {
	t.Helper()
	cat := catalog.New()
	_, err := cat.LoadContentAndRegister([]byte(socialSchemaYAML))
	require.NoError(t, err)
	return NewServer(cat, nil, nil, nil), cat
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth_NoBackendReturnsOK(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s.NewRouter(), http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
}

func TestHandleQuery_SQLOnlyReturnsCompiledSQL(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s.NewRouter(), http.MethodPost, "/query", queryRequest{
		Query:   "MATCH (u:User) RETURN u.name AS name",
		SQLOnly: true,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp queryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Nil(t, resp.Error)
	require.Contains(t, resp.SQL, "FROM social.users")
}

func TestHandleQuery_NoBackendFallsBackToSQLOnly(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s.NewRouter(), http.MethodPost, "/query", queryRequest{
		Query: "MATCH (u:User) RETURN u.name AS name",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp queryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Nil(t, resp.Error)
	require.Contains(t, resp.SQL, "FROM social.users")
}

func TestHandleQuery_ParseErrorReturns400(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s.NewRouter(), http.MethodPost, "/query", queryRequest{
		Query: "NOT CYPHER AT ALL (((",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp queryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
}

func TestHandleQuery_UnknownSchemaReturns404(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s.NewRouter(), http.MethodPost, "/query", queryRequest{
		Query:      "MATCH (u:User) RETURN u.name AS name",
		SchemaName: "nonexistent",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleQuery_MalformedJSONReturns400(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	s.NewRouter().ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSchemasList_ReturnsRegisteredSchemas(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s.NewRouter(), http.MethodGet, "/schemas", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp schemasListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp.Schemas, "social")
}

func TestHandleSchemaLoad_RegistersNewSchema(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s.NewRouter(), http.MethodPost, "/schemas/load", schemaLoadRequest{
		ConfigContent: `
name: other
version: "1"
graph_schema:
  nodes:
    - label: Widget
      database: other
      table: widgets
      node_id: widget_id
`,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp schemaLoadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "other", resp.Name)
}

func TestHandleSchemaIntrospect_WithoutDiscoveryReturns500(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s.NewRouter(), http.MethodPost, "/schemas/introspect", introspectRequest{Tables: []string{"users"}})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleSchemaDraft_WithoutDiscoveryReturns500(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s.NewRouter(), http.MethodPost, "/schemas/draft", draftRequest{Tables: []string{"users"}})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleDiscoverPrompt_WithoutDiscoveryReturns500(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s.NewRouter(), http.MethodPost, "/schemas/discover-prompt", introspectRequest{Tables: []string{"users"}})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
