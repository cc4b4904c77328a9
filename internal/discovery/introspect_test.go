package discovery

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/clickgraph/clickgraph/internal/backend"
)

func newTestEngine(t *testing.T) (*Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	client := backend.NewWithDB(db, "social")
	return NewEngine(client), mock
}

func TestIntrospect_SingleTable(t *testing.T) {
	e, mock := newTestEngine(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT name, type, is_in_primary_key FROM system.columns`)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "type", "is_in_primary_key"}).
			AddRow("id", "UInt64", true).
			AddRow("name", "String", false))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT total_rows FROM system.tables`)).
		WillReturnRows(sqlmock.NewRows([]string{"total_rows"}).AddRow(int64(42)))

	tables, err := e.Introspect(context.Background(), []string{"users"})
	require.NoError(t, err)
	require.Len(t, tables, 1)
	require.Equal(t, "users", tables[0].Table)
	require.Equal(t, []string{"id"}, tables[0].PrimaryKeyCols)
	require.Equal(t, int64(42), tables[0].SampleRowCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIntrospect_UnknownTableReturnsSchemaNotFound(t *testing.T) {
	e, mock := newTestEngine(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT name, type, is_in_primary_key FROM system.columns`)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "type", "is_in_primary_key"}))

	_, err := e.Introspect(context.Background(), []string{"ghosts"})
	require.Error(t, err)
}

func TestIntrospect_RequiresAtLeastOneTable(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.Introspect(context.Background(), nil)
	require.Error(t, err)
}
