package httpapi

import "github.com/clickgraph/clickgraph/internal/cgerrors"

// statusFor maps a cgerrors.Kind to the HTTP status spec §6 assigns it.
// The taxonomy is deliberately closed and shared between compile-time
// (C2-C6) and backend-forwarded (C7) errors, so one mapping covers both —
// a BackendRejected error is "propagated as SyntaxError" per spec §4.7 and
// lands on the same 400 a parse failure would.
func statusFor(kind cgerrors.Kind) int {
	switch kind {
	case cgerrors.AccessDenied:
		return 403
	case cgerrors.SchemaNotFound:
		return 404
	case cgerrors.Unavailable, cgerrors.Timeout, cgerrors.Internal:
		return 500
	default:
		return 400
	}
}

// errorBody is the wire shape of a reported error: a kind name plus a
// human-readable message. Clients branch on Kind, not on Message text.
type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func toErrorBody(err error) (errorBody, int) {
	var cgErr *cgerrors.Error
	if e, ok := err.(*cgerrors.Error); ok {
		cgErr = e
	} else {
		cgErr = cgerrors.Wrap(err, cgerrors.Internal, "unexpected error")
	}
	return errorBody{Kind: cgErr.Kind.String(), Message: cgErr.Message}, statusFor(cgErr.Kind)
}
