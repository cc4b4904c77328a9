package discovery

import (
	"context"
	"fmt"
	"sort"

	"github.com/clickgraph/clickgraph/internal/backend"
	"github.com/clickgraph/clickgraph/internal/cgerrors"
)

// Introspect reads the live column list for each requested table out of
// system.columns (spec §6.8), one query per table; the first table that
// fails (for example an unknown table name) fails the whole call. It also
// samples row counts from system.tables, which ClickHouse maintains as an
// approximate, non-blocking count.
func (e *Engine) Introspect(ctx context.Context, tables []string) ([]IntrospectedTable, error) {
	if len(tables) == 0 {
		return nil, cgerrors.New(cgerrors.SyntaxError, "introspect requires at least one table name")
	}

	out := make([]IntrospectedTable, 0, len(tables))
	for _, table := range tables {
		t, err := e.introspectOne(ctx, table)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (e *Engine) introspectOne(ctx context.Context, table string) (IntrospectedTable, error) {
	database := e.backend.Database()

	colsSQL := `SELECT name, type, is_in_primary_key FROM system.columns WHERE database = {db:String} AND table = {table:String} ORDER BY position`
	colsResult, err := e.backend.Execute(ctx, colsSQL, backend.QueryOptions{
		Parameters: map[string]any{"db": database, "table": table},
	})
	if err != nil {
		return IntrospectedTable{}, cgerrors.Wrapf(err, cgerrors.SchemaNotFound, "failed to introspect table %q", table)
	}
	if len(colsResult.Rows) == 0 {
		return IntrospectedTable{}, cgerrors.Newf(cgerrors.SchemaNotFound, "table %q has no columns or does not exist in database %q", table, database)
	}

	t := IntrospectedTable{Table: table}
	for _, row := range colsResult.Rows {
		name := fmt.Sprintf("%v", row[0])
		typ := fmt.Sprintf("%v", row[1])
		t.Columns = append(t.Columns, ColumnInfo{Name: name, Type: typ})
		if isPrimaryKeyFlag(row[2]) {
			t.PrimaryKeyCols = append(t.PrimaryKeyCols, name)
		}
	}
	sort.Strings(t.PrimaryKeyCols)

	rowsSQL := `SELECT total_rows FROM system.tables WHERE database = {db:String} AND name = {table:String}`
	rowsResult, err := e.backend.Execute(ctx, rowsSQL, backend.QueryOptions{
		Parameters: map[string]any{"db": database, "table": table},
	})
	if err == nil && len(rowsResult.Rows) == 1 && len(rowsResult.Rows[0]) == 1 {
		if n, ok := toInt64(rowsResult.Rows[0][0]); ok {
			t.SampleRowCount = n
		}
	}

	return t, nil
}

func isPrimaryKeyFlag(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case uint8:
		return x != 0
	case int:
		return x != 0
	default:
		return false
	}
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case uint64:
		return int64(x), true
	case int:
		return int64(x), true
	default:
		return 0, false
	}
}
