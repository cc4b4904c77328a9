// Package discovery implements the read-side schema-discovery helpers
// behind the HTTP service's /schemas/introspect, /schemas/draft and
// /schemas/discover-prompt endpoints (spec §6.8, an expansion the
// distilled spec's endpoint list implies but does not spell out). None of
// it touches the SchemaCatalog directly — every result is a suggestion a
// human reviews before a separate /schemas/load call registers anything,
// preserving C1's additive-registration invariant.
package discovery

// IntrospectedTable is one backing table's live column list, read directly
// from the configured ClickHouse instance's system.columns table.
type IntrospectedTable struct {
	Table          string
	Columns        []ColumnInfo
	PrimaryKeyCols []string
	SampleRowCount int64
}

// ColumnInfo is one column's name and ClickHouse type string.
type ColumnInfo struct {
	Name string
	Type string
}

// SchemaDraft is a best-effort GraphSchema YAML assembled from one or more
// IntrospectedTable values plus naming heuristics — never auto-registered.
type SchemaDraft struct {
	YAML string
}
