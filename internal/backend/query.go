package backend

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/clickgraph/clickgraph/internal/cgerrors"
)

// QueryOptions carries the per-request context that rides alongside
// already-rendered SQL: the role to assume for this query (spec §4.7's
// "role from request carries through as backend SET ROLE or equivalent
// header") and the session's view-parameter bag, attached as ClickHouse
// query settings so a parameterized view can resolve its `{name:Type}`
// placeholders without the backend ever parsing the SQL itself.
type QueryOptions struct {
	Role           string
	ViewParameters map[string]string
	Parameters     map[string]any
}

// Result is the row-oriented vector spec §4.7 describes the HTTP path
// producing: a column list and a slice of rows, each row a slice of
// driver-native Go values in column order.
type Result struct {
	Columns []string
	Rows    [][]any
}

// Execute forwards sql verbatim to the backend and collects the full
// result set into memory. Used by the HTTP service, which spec §4.8
// describes as returning `{results: [...]}` in one response.
func (c *Client) Execute(ctx context.Context, sql string, opts QueryOptions) (*Result, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, cgerrors.Wrap(err, cgerrors.Timeout, "rate limit wait cancelled")
		}
	}
	return withRetry(ctx, c.logger, func() (*Result, error) {
		return c.executeOnce(ctx, sql, opts)
	})
}

func (c *Client) executeOnce(ctx context.Context, sql string, opts QueryOptions) (*Result, error) {
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return nil, cgerrors.Wrap(err, classify(err), "failed to acquire clickhouse connection")
	}
	defer conn.Close()

	if opts.Role != "" {
		if _, err := conn.ExecContext(ctx, fmt.Sprintf("SET ROLE %s", quoteRole(opts.Role))); err != nil {
			return nil, cgerrors.Wrapf(err, classify(err), "failed to set role %q", opts.Role)
		}
	}

	queryCtx := ctx
	if len(opts.ViewParameters) > 0 {
		settings := make(clickhouse.Settings, len(opts.ViewParameters))
		for k, v := range opts.ViewParameters {
			settings["param_"+k] = v
		}
		queryCtx = clickhouse.Context(ctx, clickhouse.WithSettings(settings))
	}

	args := namedArgs(opts.Parameters)
	rows, err := conn.QueryContext(queryCtx, sql, args...)
	if err != nil {
		return nil, cgerrors.Wrap(err, classify(err), "query execution failed")
	}
	defer rows.Close()

	result, err := scanRows(rows)
	if err != nil {
		return nil, cgerrors.Wrap(err, classify(err), "failed to scan result rows")
	}
	c.logger.Debug("query executed", "row_count", len(result.Rows), "column_count", len(result.Columns))
	return result, nil
}

func namedArgs(params map[string]any) []any {
	if len(params) == 0 {
		return nil
	}
	args := make([]any, 0, len(params))
	for k, v := range params {
		args = append(args, sql.Named(k, v))
	}
	return args
}

func scanRows(rows *sql.Rows) (*Result, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	result := &Result{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		scanDest := make([]any, len(cols))
		for i := range values {
			scanDest[i] = &values[i]
		}
		if err := rows.Scan(scanDest...); err != nil {
			return nil, err
		}
		result.Rows = append(result.Rows, values)
	}
	return result, rows.Err()
}

// quoteRole guards against a role name that isn't a plain identifier from
// being spliced into the SET ROLE statement: the name is sent as a
// backquoted identifier with any backslash or backquote inside it escaped.
// Role names are not checked against any list before this point.
func quoteRole(role string) string {
	return "`" + strings.NewReplacer(`\`, `\\`, "`", "\\`").Replace(role) + "`"
}
