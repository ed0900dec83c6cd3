package services

import (
	"context"
	"errors"
	"time"

	apperrors "matchchat-backend/pkg/errors"
)

const (
	storeRetryAttempts = 3
	storeRetryBackoff  = 25 * time.Millisecond
)

// withStoreRetry retries fn on transient store failures (anything that is
// not a typed domain error) a bounded number of times before surfacing the
// last error. Domain errors pass through immediately.
func withStoreRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < storeRetryAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(storeRetryBackoff):
		}
	}
	return err
}
