package dashboard

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable wraps a single adapter's fetch failure. The
	// aggregator absorbs these and degrades to the remaining sources.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrAllSourcesFailed is returned when every adapter fetch failed.
	ErrAllSourcesFailed = errors.New("all activity sources failed")

	// ErrMalformedRecord marks an external record missing required
	// fields. The record is skipped, not the adapter.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrSyncWrite marks a failed statistic or sync write-back. Callers
	// log it and still return the computed result.
	ErrSyncWrite = errors.New("sync write failed")
)

func sourceErr(name string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, name, err)
}
