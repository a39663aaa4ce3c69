// Package natsutil classifies NATS client errors.
package natsutil

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/pomelocare/dagster/types"
)

// IsConnectivityError reports whether err was caused by the NATS connection rather than
// by the request itself: timeouts, missing servers, closed or dropped connections.
//
// Kept out of the types package so it does not pull in the NATS client.
func IsConnectivityError(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, types.ErrStoreUnavailable) ||
		errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, nats.ErrNoServers) ||
		errors.Is(err, nats.ErrDisconnected) ||
		errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, jetstream.ErrNoStreamResponse) ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "i/o timeout")
}

// Classify tags connectivity failures with types.ErrStoreUnavailable and wraps every
// error with the operation that failed. It returns nil for a nil err.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsConnectivityError(err) && !errors.Is(err, types.ErrStoreUnavailable) {
		return fmt.Errorf("%s: %w: %w", op, types.ErrStoreUnavailable, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}
