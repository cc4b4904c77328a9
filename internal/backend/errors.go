package backend

import (
	"context"
	"errors"
	"net"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/clickgraph/clickgraph/internal/cgerrors"
)

// ClickHouse server exception codes this adapter recognizes by name; the
// full set is much larger, but only the codes that map to a distinct
// cgerrors.Kind matter here.
const (
	excCodeSyntaxError      = 62
	excCodeUnknownIdentifier = 47
	excCodeUnknownTable     = 60
	excCodeUnknownDatabase  = 81
	excCodeAccessDenied     = 497
	excCodeAuthFailed       = 516
)

// classify maps a driver-level error into the cgerrors taxonomy spec §4.7
// requires: syntax/planner rejections, permission failures, timeouts, and
// connection failures each resolve to a distinct, named Kind.
func classify(err error) cgerrors.Kind {
	if err == nil {
		return cgerrors.Internal
	}

	var exc *clickhouse.Exception
	if errors.As(err, &exc) {
		switch exc.Code {
		case excCodeAccessDenied, excCodeAuthFailed:
			return cgerrors.AccessDenied
		case excCodeSyntaxError, excCodeUnknownIdentifier, excCodeUnknownTable, excCodeUnknownDatabase:
			return cgerrors.BackendRejected
		default:
			// Any other server-side exception is a rejection of the
			// submitted SQL, not a transport failure.
			return cgerrors.BackendRejected
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return cgerrors.Timeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return cgerrors.Timeout
	}

	// Connection refused, EOF mid-stream, DNS failure, driver.ErrBadConn:
	// all transport-level and retriable.
	return cgerrors.Unavailable
}
