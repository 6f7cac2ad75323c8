// Package retryutil provides the bounded, exponential-back-off retry used
// around the staging-frame add-shard call and download shard pulls, and
// the bounded worker queue the upload/download orchestrators fan shard
// work out over.
package retryutil

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gitlab.com/NebulousLabs/errors"
)

// Retryable is implemented by errors that know whether a retry is
// worthwhile (e.g. bridgeerr.BridgeError.Retryable).
type Retryable interface {
	Retryable() bool
}

// Do retries fn up to maxTries times total (the first attempt plus
// maxTries-1 retries) with exponential back-off, stopping early if fn
// returns a nil error or a non-retryable error. With maxTries = retry+1,
// fn is invoked exactly retry+1 times under permanent failure.
func Do(ctx context.Context, maxTries int, fn func() error) error {
	if maxTries < 1 {
		maxTries = 1
	}
	b := backoff.WithContext(bounded(maxTries), ctx)

	var lastErr error
	attempt := 0
	op := func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if r, ok := err.(Retryable); ok && !r.Retryable() {
			return backoff.Permanent(err)
		}
		return err
	}
	if err := backoff.Retry(op, b); err != nil {
		return errors.AddContext(lastErr, "exceeded retry budget")
	}
	return nil
}

// bounded returns an exponential back-off policy capped at maxTries total
// attempts.
func bounded(maxTries int) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 250 * time.Millisecond
	eb.MaxInterval = 10 * time.Second
	eb.MaxElapsedTime = 0 // bounded by attempt count, not wall-clock
	return backoff.WithMaxRetries(eb, uint64(maxTries-1))
}
