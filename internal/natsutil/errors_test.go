package natsutil

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"

	"github.com/pomelocare/dagster/types"
)

func TestIsConnectivityError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"timeout", nats.ErrTimeout, true},
		{"wrapped no servers", fmt.Errorf("get: %w", nats.ErrNoServers), true},
		{"connection closed", nats.ErrConnectionClosed, true},
		{"refused text", errors.New("dial tcp 127.0.0.1:4222: connect: connection refused"), true},
		{"already classified", types.ErrStoreUnavailable, true},
		{"context canceled", context.Canceled, false},
		{"application error", errors.New("bad request"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, IsConnectivityError(tt.err))
		})
	}
}

func TestClassify(t *testing.T) {
	require.NoError(t, Classify("get", nil))

	err := Classify("get", nats.ErrTimeout)
	require.ErrorIs(t, err, types.ErrStoreUnavailable)
	require.ErrorIs(t, err, nats.ErrTimeout)
	require.Contains(t, err.Error(), "get: ")

	plain := Classify("add", errors.New("bad request"))
	require.NotErrorIs(t, plain, types.ErrStoreUnavailable)
	require.Equal(t, "add: bad request", plain.Error())
}
