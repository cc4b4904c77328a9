package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clickgraph/clickgraph/internal/cgerrors"
	"github.com/clickgraph/clickgraph/internal/logging"
)

var testLogger = logging.Component("backend_test")

func TestWithRetry_SucceedsWithoutRetry(t *testing.T) {
	calls := 0
	result, err := withRetry(context.Background(), testLogger, func() (*Result, error) {
		calls++
		return &Result{Columns: []string{"n"}}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"n"}, result.Columns)
}

func TestWithRetry_RetriesOnlyUnavailable(t *testing.T) {
	calls := 0
	_, err := withRetry(context.Background(), testLogger, func() (*Result, error) {
		calls++
		return nil, cgerrors.New(cgerrors.Unavailable, "connection refused")
	})
	require.Error(t, err)
	assert.Equal(t, maxRetries+1, calls)
}

func TestWithRetry_DoesNotRetryNonRetriableKinds(t *testing.T) {
	calls := 0
	_, err := withRetry(context.Background(), testLogger, func() (*Result, error) {
		calls++
		return nil, cgerrors.New(cgerrors.BackendRejected, "syntax error")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_RecoversAfterTransientFailure(t *testing.T) {
	calls := 0
	result, err := withRetry(context.Background(), testLogger, func() (*Result, error) {
		calls++
		if calls < 2 {
			return nil, cgerrors.New(cgerrors.Unavailable, "connection refused")
		}
		return &Result{Columns: []string{"n"}}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.NotNil(t, result)
}

func TestWithRetry_CancelledContextStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	_, err := withRetry(ctx, testLogger, func() (*Result, error) {
		calls++
		return nil, cgerrors.New(cgerrors.Unavailable, "connection refused")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
