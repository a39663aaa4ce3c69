package testing

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// StartMiniredis runs an in-process Redis server and returns a client connected to it.
//
// Both are closed through t.Cleanup. Use the returned server to inspect raw keys or to
// simulate an outage with Close.
//
// Example:
//
//	mini, client := dagstertest.StartMiniredis(t)
//	st := store.NewRedis(client)
func StartMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mini.Close)

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mini, client
}
