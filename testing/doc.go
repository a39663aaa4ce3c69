// Package testing provides in-process backends for tests of the dynamic partition stores.
//
// Helpers follow the net/http/httptest convention: they start a real server in the test
// process and register cleanup on the calling test.
//
// Key utilities:
//   - StartEmbeddedNATS: Single NATS server with JetStream
//   - CreateJetStreamKV: In-memory KV bucket on that server
//   - StartMiniredis: In-process Redis server and client
//   - NewTestLogger: types.Logger writing to t.Logf
//
// Example usage:
//
//	import (
//	    "testing"
//	    dagstertest "github.com/pomelocare/dagster/testing"
//	)
//
//	func TestStore(t *testing.T) {
//	    _, client := dagstertest.StartMiniredis(t)
//	    // Use client for your tests
//	}
package testing
