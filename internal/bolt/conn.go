package bolt

import (
	"bytes"

	"github.com/clickgraph/clickgraph/internal/backend"
	"github.com/clickgraph/clickgraph/internal/bolt/packstream"
	"github.com/clickgraph/clickgraph/internal/catalog"
	"github.com/clickgraph/clickgraph/internal/cgerrors"
	"github.com/clickgraph/clickgraph/internal/telemetry"
)

// ioConn is the subset of net.Conn dispatch needs; kept narrow so tests
// can drive a connection over net.Pipe() or any other io.ReadWriter pair.
type ioConn interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}

// conn binds one session to its I/O and the process-wide dependencies
// every handler needs.
type conn struct {
	rw      ioConn
	sess    *session
	catalog *catalog.Catalog
	be      *backend.Client
	metrics *telemetry.Metrics
}

func (c *conn) writeStructure(s *packstream.Structure) error {
	var buf bytes.Buffer
	if err := packstream.NewEncoder(&buf).WriteValue(s); err != nil {
		return err
	}
	return writeMessage(c.rw, buf.Bytes())
}

func (c *conn) writeSuccess(meta map[string]any) error {
	return c.writeStructure(&packstream.Structure{Tag: tagSuccess, Fields: []any{meta}})
}

func (c *conn) writeRecord(values []any) error {
	return c.writeStructure(&packstream.Structure{Tag: tagRecord, Fields: []any{values}})
}

func (c *conn) writeFailure(err error) error {
	code := "Neo.DatabaseError.General.UnknownError"
	message := err.Error()
	if cgErr, ok := cgerrors.As(err); ok {
		code = neoCodeFor(cgErr.Kind)
		message = cgErr.Message
	}
	return c.writeStructure(&packstream.Structure{Tag: tagFailure, Fields: []any{
		map[string]any{"code": code, "message": message},
	}})
}

// neoCodeFor maps ClickGraph's internal error taxonomy to Neo4j-shaped
// status codes (spec §7: "Bolt drivers get Neo4j-shaped error codes mapped
// from kinds"), since Bolt drivers pattern-match on the `code` field's
// dotted Neo4j status classification rather than on arbitrary strings.
func neoCodeFor(kind cgerrors.Kind) string {
	switch kind {
	case cgerrors.SyntaxError, cgerrors.BackendRejected:
		return "Neo.ClientError.Statement.SyntaxError"
	case cgerrors.WriteNotSupported:
		return "Neo.ClientError.Statement.NotSupported"
	case cgerrors.SchemaNotFound:
		return "Neo.ClientError.Database.DatabaseNotFound"
	case cgerrors.UnknownLabel, cgerrors.UnknownRelType, cgerrors.UnknownProperty:
		return "Neo.ClientError.Statement.EntityNotFound"
	case cgerrors.AmbiguousPattern:
		return "Neo.ClientError.Statement.ArgumentError"
	case cgerrors.MissingViewParameter:
		return "Neo.ClientError.Statement.ParameterMissing"
	case cgerrors.UnsupportedFeature:
		return "Neo.ClientError.Statement.NotSupported"
	case cgerrors.RecursionLimit:
		return "Neo.ClientError.Statement.ArgumentError"
	case cgerrors.AccessDenied:
		return "Neo.ClientError.Security.Forbidden"
	case cgerrors.Timeout:
		return "Neo.ClientError.Transaction.TransactionTimedOut"
	case cgerrors.Unavailable:
		return "Neo.TransientError.General.DatabaseUnavailable"
	default:
		return "Neo.DatabaseError.General.UnknownError"
	}
}
