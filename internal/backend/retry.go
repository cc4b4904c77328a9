package backend

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/clickgraph/clickgraph/internal/cgerrors"
	"github.com/clickgraph/clickgraph/internal/logging"
)

// maxRetries bounds how many times a retriable backend call is re-attempted,
// mirroring the dead-letter-queue's bounded retry_count convention rather
// than retrying forever.
const maxRetries = 3

const baseBackoff = 100 * time.Millisecond

// withRetry retries fn on Unavailable errors only (spec §4.7: connection
// failures are the sole retriable category) with exponential backoff,
// capped at maxRetries re-attempts after the first call (maxRetries+1
// calls of fn in all).
func withRetry(ctx context.Context, logger *logging.Logger, fn func() (*Result, error)) (*Result, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		var cgErr *cgerrors.Error
		if !errors.As(err, &cgErr) || !cgErr.Retriable {
			return nil, err
		}
		if attempt == maxRetries {
			break
		}

		backoff := time.Duration(math.Pow(2, float64(attempt))) * baseBackoff
		logger.Warn("retrying after unavailable backend", "attempt", attempt+1, "backoff", backoff, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, lastErr
}
