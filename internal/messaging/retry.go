package messaging

import (
	"context"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/pkg/errors"
)

const (
	sendAttempts = 3
	maxBackoff   = 30 * time.Second
)

// IsDisconnectionError reports whether err is a transient Service Bus failure
// worth retrying
func IsDisconnectionError(err error) bool {
	var sbErr *azservicebus.Error
	if errors.As(err, &sbErr) {
		return sbErr.Code == azservicebus.CodeConnectionLost || sbErr.Code == azservicebus.CodeTimeout
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// RetryWithBackoff calls fn up to attempts times, doubling the wait from base
// after each retryable failure
func RetryWithBackoff(ctx context.Context, attempts int, base time.Duration, retryable func(error) bool, fn func() error) error {
	var err error
	for retry := 0; retry < attempts; retry++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !retryable(err) || retry == attempts-1 {
			return err
		}

		backoff := base << uint(retry)
		if backoff > maxBackoff {
			backoff = maxBackoff
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
