package backend

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/clickgraph/clickgraph/internal/cgerrors"
)

func TestClassify_ServerExceptionCodes(t *testing.T) {
	cases := []struct {
		code int32
		want cgerrors.Kind
	}{
		{excCodeSyntaxError, cgerrors.BackendRejected},
		{excCodeUnknownIdentifier, cgerrors.BackendRejected},
		{excCodeUnknownTable, cgerrors.BackendRejected},
		{excCodeAccessDenied, cgerrors.AccessDenied},
		{excCodeAuthFailed, cgerrors.AccessDenied},
		{9999, cgerrors.BackendRejected},
	}
	for _, tc := range cases {
		exc := &clickhouse.Exception{Code: tc.code, Message: "boom"}
		assert.Equal(t, tc.want, classify(exc))
	}
}

func TestClassify_DeadlineExceeded(t *testing.T) {
	assert.Equal(t, cgerrors.Timeout, classify(context.DeadlineExceeded))
}

type fakeTimeoutErr struct{}

func (fakeTimeoutErr) Error() string   { return "timeout" }
func (fakeTimeoutErr) Timeout() bool   { return true }
func (fakeTimeoutErr) Temporary() bool { return true }

func TestClassify_NetTimeout(t *testing.T) {
	var netErr net.Error = fakeTimeoutErr{}
	assert.Equal(t, cgerrors.Timeout, classify(netErr))
}

func TestClassify_ConnectionFailureIsUnavailable(t *testing.T) {
	assert.Equal(t, cgerrors.Unavailable, classify(errors.New("connection refused")))
}
