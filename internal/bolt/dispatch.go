package bolt

import (
	"context"
	"time"

	"github.com/clickgraph/clickgraph/internal/backend"
	"github.com/clickgraph/clickgraph/internal/bolt/packstream"
	"github.com/clickgraph/clickgraph/internal/cgerrors"
	"github.com/clickgraph/clickgraph/internal/query"
)

// dispatch routes one decoded message to its handler by structure tag,
// mirroring the teacher's internal/mcp.Handler.Handle method-dispatch-
// by-name table, generalized from a JSON-RPC method string to a
// PackStream struct tag.
func (c *conn) dispatch(ctx context.Context, msg *packstream.Structure) error {
	switch msg.Tag {
	case tagHello:
		return c.handleHello(msg)
	case tagLogon:
		return c.handleLogon(msg)
	case tagLogoff:
		return c.writeSuccess(map[string]any{})
	case tagGoodbye:
		c.sess.state = StateClosed
		return nil
	case tagReset:
		return c.handleReset()
	case tagRun:
		return c.handleRun(ctx, msg)
	case tagPull:
		return c.handlePullOrDiscard(msg, true)
	case tagDiscard:
		return c.handlePullOrDiscard(msg, false)
	case tagBegin, tagCommit, tagRollback:
		// No-op transactions, satisfying drivers that always wrap work in
		// an explicit transaction (spec §6: "BEGIN/COMMIT/ROLLBACK (no-op,
		// returning SUCCESS to satisfy drivers)").
		return c.writeSuccess(map[string]any{})
	case tagRoute:
		return c.handleRoute()
	default:
		return c.writeFailure(cgerrors.New(cgerrors.UnsupportedFeature, "unrecognized Bolt message"))
	}
}

func (c *conn) handleHello(msg *packstream.Structure) error {
	auth := mapArg(msg.Fields, 0)
	if role := extractRole(auth); role != "" {
		c.sess.role = role
	}
	meta := map[string]any{
		"server":        "ClickGraph/" + c.sess.version.String(),
		"connection_id": "bolt-1",
	}
	// Bolt 5.1+ splits auth into a separate LOGON message; pre-5.1 clients
	// never send one, so HELLO alone must reach Ready.
	if c.sess.version.Major >= 5 && c.sess.version.Minor >= 1 {
		c.sess.state = StateAuthenticated
	} else {
		c.sess.state = StateReady
	}
	return c.writeSuccess(meta)
}

func (c *conn) handleLogon(msg *packstream.Structure) error {
	auth := mapArg(msg.Fields, 0)
	if role := extractRole(auth); role != "" {
		c.sess.role = role
	}
	c.sess.state = StateReady
	return c.writeSuccess(map[string]any{})
}

func (c *conn) handleReset() error {
	c.sess.pending = nil
	c.sess.state = StateReady
	return c.writeSuccess(map[string]any{})
}

func (c *conn) handleRoute() error {
	// A single-host routing table: ClickGraph has no cluster topology of
	// its own to report (spec §6: "ROUTE (returns a single-host table)").
	rt := map[string]any{
		"ttl": int64(300),
		"db":  c.sess.schemaName,
		"servers": []any{
			map[string]any{"addresses": []any{"localhost:7687"}, "role": "WRITE"},
			map[string]any{"addresses": []any{"localhost:7687"}, "role": "READ"},
			map[string]any{"addresses": []any{"localhost:7687"}, "role": "ROUTE"},
		},
	}
	return c.writeSuccess(map[string]any{"rt": rt})
}

func (c *conn) handleRun(ctx context.Context, msg *packstream.Structure) error {
	queryText := stringArg(msg.Fields, 0)
	params := mapArg(msg.Fields, 1)

	if call, ok := recognizeProcedure(queryText); ok {
		schema, err := c.sess.resolveSchema(c.catalog, "")
		if err != nil {
			c.sess.state = StateFailed
			return c.writeFailure(err)
		}
		fields, rows, err := c.sess.runProcedure(call, schema)
		if err != nil {
			c.sess.state = StateFailed
			return c.writeFailure(err)
		}
		c.sess.pending = &pendingResult{fields: fields, rows: rows}
		c.sess.state = StateStreaming
		return c.writeSuccess(map[string]any{"fields": toAnyList(fields)})
	}

	// Session-bag values act as view-parameter defaults beneath explicit
	// per-request parameters (spec §4.9: "bind session parameters ...
	// as view-parameter defaults").
	viewParams := make(map[string]string, len(c.sess.bag))
	for k, v := range c.sess.bag {
		viewParams[k] = v
	}

	anyParams := make(map[string]any, len(params))
	for k, v := range params {
		anyParams[k] = v
	}

	renderStart := time.Now()
	compiled, err := query.Compile(c.catalog, queryText, c.sess.schemaName, anyParams, viewParams)
	if c.metrics != nil {
		c.metrics.RenderLatency.Observe(time.Since(renderStart).Seconds())
	}
	if err != nil {
		c.sess.state = StateFailed
		c.countOutcome(err)
		return c.writeFailure(err)
	}
	c.sess.schemaName = compiled.Schema.Name
	if c.metrics != nil {
		c.metrics.CTECountPerQuery.Observe(float64(compiled.CTECount))
	}

	if c.be == nil {
		c.countOutcome(nil)
		c.sess.pending = &pendingResult{fields: nil}
		c.sess.state = StateStreaming
		return c.writeSuccess(map[string]any{"fields": []any{}})
	}

	backendStart := time.Now()
	result, err := c.be.Execute(ctx, compiled.SQL, backend.QueryOptions{
		Role:           c.sess.role,
		ViewParameters: viewParams,
		Parameters:     anyParams,
	})
	if c.metrics != nil {
		c.metrics.BackendLatency.Observe(time.Since(backendStart).Seconds())
	}
	if err != nil {
		c.sess.state = StateFailed
		c.countOutcome(err)
		return c.writeFailure(err)
	}
	c.countOutcome(nil)

	colIndex := make(map[string]int, len(result.Columns))
	for i, col := range result.Columns {
		colIndex[col] = i
	}
	fieldNames := make([]string, len(compiled.Fields))
	for i, f := range compiled.Fields {
		fieldNames[i] = f.Name
	}
	c.sess.pending = &pendingResult{
		fields:       fieldNames,
		entityFields: compiled.Fields,
		colIndex:     colIndex,
		rows:         result.Rows,
	}
	c.sess.state = StateStreaming
	return c.writeSuccess(map[string]any{"fields": toAnyList(fieldNames)})
}

// countOutcome increments queries_total with "ok" or the error's
// cgerrors.Kind string, a no-op when metrics weren't wired.
func (c *conn) countOutcome(err error) {
	if c.metrics == nil {
		return
	}
	if err == nil {
		c.metrics.QueriesTotal.WithLabelValues("ok").Inc()
		return
	}
	if cgErr, ok := cgerrors.As(err); ok {
		c.metrics.QueriesTotal.WithLabelValues(cgErr.Kind.String()).Inc()
		return
	}
	c.metrics.QueriesTotal.WithLabelValues(cgerrors.Internal.String()).Inc()
}

func (c *conn) handlePullOrDiscard(msg *packstream.Structure, emitRecords bool) error {
	extra := mapArg(msg.Fields, 0)
	n := int64(-1)
	if raw, ok := extra["n"]; ok {
		if v, ok := raw.(int64); ok {
			n = v
		}
	}

	p := c.sess.pending
	remaining := p.remaining()
	toEmit := remaining
	if n >= 0 && int(n) < remaining {
		toEmit = int(n)
	}

	if emitRecords && p != nil {
		for i := 0; i < toEmit; i++ {
			row := p.rows[p.cursor+i]
			encoded, err := encodeRow(p, row)
			if err != nil {
				c.sess.state = StateFailed
				return c.writeFailure(err)
			}
			if err := c.writeRecord(encoded); err != nil {
				return err
			}
		}
	}
	if p != nil {
		p.cursor += toEmit
	}

	hasMore := p.remaining() > 0
	c.sess.state = StateReady
	meta := map[string]any{}
	if hasMore {
		meta["has_more"] = true
		c.sess.state = StateStreaming
	}
	return c.writeSuccess(meta)
}

func toAnyList(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
