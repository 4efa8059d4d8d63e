package state

import (
	"context"
	"database/sql/driver"
	"errors"
	"log"
	"net"
	"syscall"
	"time"
)

// RetryPolicy bounds each backend call with a timeout and retries transient
// failures.
type RetryPolicy struct {
	Timeout time.Duration
	Retries int
	Backoff time.Duration
}

// DefaultRetryPolicy allows one retry after a 10 second timeout.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Timeout: 10 * time.Second, Retries: 1, Backoff: 200 * time.Millisecond}
}

// Do runs op, retrying while the error is transient and the parent context
// is still live.
func (p RetryPolicy) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt <= p.Retries; attempt++ {
		if attempt > 0 {
			log.Printf("Retrying %s after error: %v", name, err)
			select {
			case <-ctx.Done():
				return err
			case <-time.After(p.Backoff):
			}
		}

		err = p.attempt(ctx, op)
		if err == nil || !IsTransient(err) || ctx.Err() != nil {
			return err
		}
	}
	return err
}

func (p RetryPolicy) attempt(ctx context.Context, op func(ctx context.Context) error) error {
	if p.Timeout <= 0 {
		return op(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	return op(ctx)
}

// IsTransient reports whether err is worth retrying: timeouts, dropped
// connections and refused connections.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
