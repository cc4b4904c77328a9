package bolt

import (
	"fmt"

	"github.com/clickgraph/clickgraph/internal/catalog"
	"github.com/clickgraph/clickgraph/internal/render"
)

// State is the Bolt connection's session state machine (spec §4.9).
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateReady
	StateStreaming
	StateFailed
	StateInterrupted
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "UNAUTHENTICATED"
	case StateAuthenticated:
		return "AUTHENTICATED"
	case StateReady:
		return "READY"
	case StateStreaming:
		return "STREAMING"
	case StateFailed:
		return "FAILED"
	case StateInterrupted:
		return "INTERRUPTED"
	case StateClosed:
		return "CLOSED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// pendingResult holds the field names and not-yet-streamed rows of the
// last RUN, consumed incrementally by PULL/DISCARD. fields is the Bolt-
// visible field list (spec §4.9's SUCCESS "fields" metadata) — the logical
// RETURN item names, which is a strict subset of entityFields' backing raw
// SQL columns once a node/relationship RETURN item has been expanded into
// several columns by C6. entityFields/colIndex are nil for a procedure call
// or a RUN with no backend attached, where the row already matches fields
// column-for-column and no regrouping is needed.
type pendingResult struct {
	fields       []string
	entityFields []render.Field
	colIndex     map[string]int
	rows         [][]any
	cursor       int
}

func (p *pendingResult) remaining() int {
	if p == nil {
		return 0
	}
	return len(p.rows) - p.cursor
}

// session holds everything owned by one accepted Bolt connection: its
// protocol version, state, session-parameter bag and current schema
// binding. None of this is shared across connections (spec §5: "Bolt
// session state ... is owned by the connection task and not shared").
type session struct {
	version ProtocolVersion
	state   State

	schemaName string
	role       string
	bag        map[string]string

	pending *pendingResult
}

func newSession(version ProtocolVersion) *session {
	return &session{
		version: version,
		state:   StateUnauthenticated,
		bag:     make(map[string]string),
	}
}

// resolveSchema applies the USE-clause > session-bound > default priority
// (spec §4.9: "a single connection is bound to one schema ... USE mid-
// session is permitted and replaces the binding").
func (s *session) resolveSchema(cat *catalog.Catalog, useClauseName string) (*catalog.GraphSchema, error) {
	schema, err := cat.Resolve(useClauseName, s.schemaName)
	if err != nil {
		return nil, err
	}
	if useClauseName != "" {
		s.schemaName = useClauseName
	} else if s.schemaName == "" {
		s.schemaName = schema.Name
	}
	return schema, nil
}
