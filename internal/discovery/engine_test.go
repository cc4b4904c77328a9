package discovery

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestDraft_RelationshipTableDetectedFromTwoForeignKeys(t *testing.T) {
	e, mock := newTestEngine(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT name, type, is_in_primary_key FROM system.columns`)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "type", "is_in_primary_key"}).
			AddRow("follower_id", "UInt64", false).
			AddRow("followee_id", "UInt64", false))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT total_rows FROM system.tables`)).
		WillReturnRows(sqlmock.NewRows([]string{"total_rows"}).AddRow(int64(0)))

	draft, err := e.Draft(context.Background(), []string{"follows"})
	require.NoError(t, err)
	require.Contains(t, draft.YAML, "relationships:")
	require.Contains(t, draft.YAML, "from_id: follower_id")
	require.Contains(t, draft.YAML, "to_id: followee_id")
}

func TestDraft_NodeTableWithoutForeignKeyPair(t *testing.T) {
	e, mock := newTestEngine(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT name, type, is_in_primary_key FROM system.columns`)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "type", "is_in_primary_key"}).
			AddRow("id", "UInt64", true).
			AddRow("name", "String", false))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT total_rows FROM system.tables`)).
		WillReturnRows(sqlmock.NewRows([]string{"total_rows"}).AddRow(int64(10)))

	draft, err := e.Draft(context.Background(), []string{"users"})
	require.NoError(t, err)
	require.Contains(t, draft.YAML, "nodes:")
	require.Contains(t, draft.YAML, "label: User")
	require.Contains(t, draft.YAML, "node_id: id")
}

func TestDiscoverPrompt_NeverCallsAnLLMAndReturnsTemplate(t *testing.T) {
	e, mock := newTestEngine(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT name, type, is_in_primary_key FROM system.columns`)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "type", "is_in_primary_key"}).
			AddRow("id", "UInt64", true))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT total_rows FROM system.tables`)).
		WillReturnRows(sqlmock.NewRows([]string{"total_rows"}).AddRow(int64(0)))

	prompt, err := e.DiscoverPrompt(context.Background(), []string{"users"})
	require.NoError(t, err)
	require.Contains(t, prompt, "table users:")
	require.Contains(t, prompt, "graph_schema:")
}
