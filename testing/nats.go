package testing

import (
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// StartEmbeddedNATS runs an in-process NATS server with JetStream for one test.
//
// The server listens on a random loopback port and keeps its JetStream state under
// t.TempDir(), so parallel tests never share a server. The server and the returned
// connection are shut down through t.Cleanup.
//
// Parameters:
//   - t: Test that owns the server
//
// Returns:
//   - *server.Server: The embedded server
//   - *nats.Conn: A connected client
//
// Example:
//
//	func TestNATSStore(t *testing.T) {
//	    _, nc := dagstertest.StartEmbeddedNATS(t)
//	    js, _ := jetstream.New(nc)
//	    st, _ := store.NewNATSKV(t.Context(), js, "")
//	}
func StartEmbeddedNATS(t *testing.T) (*server.Server, *nats.Conn) {
	t.Helper()

	ns, err := server.NewServer(&server.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
		NoLog:     true,
	})
	if err != nil {
		t.Fatalf("failed to create embedded NATS server: %v", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		t.Fatal("embedded NATS server not ready within 5s")
	}

	nc, err := nats.Connect(ns.ClientURL(), nats.Timeout(2*time.Second))
	if err != nil {
		ns.Shutdown()
		t.Fatalf("failed to connect to embedded NATS server: %v", err)
	}

	t.Cleanup(func() {
		nc.Close()
		ns.Shutdown()
		ns.WaitForShutdown()
	})

	return ns, nc
}

// NewJetStream returns a JetStream context for nc, failing the test on error.
func NewJetStream(t *testing.T, nc *nats.Conn) jetstream.JetStream {
	t.Helper()

	js, err := jetstream.New(nc)
	if err != nil {
		t.Fatalf("failed to get JetStream context: %v", err)
	}

	return js
}

// CreateJetStreamKV creates an in-memory KV bucket with a single history entry.
//
// Parameters:
//   - t: Test that owns the bucket
//   - nc: Connection from StartEmbeddedNATS
//   - bucketName: Bucket to create
//
// Returns:
//   - jetstream.KeyValue: The created bucket
func CreateJetStreamKV(t *testing.T, nc *nats.Conn, bucketName string) jetstream.KeyValue {
	t.Helper()

	kv, err := NewJetStream(t, nc).CreateKeyValue(t.Context(), jetstream.KeyValueConfig{
		Bucket:      bucketName,
		Description: "dynamic partitions test bucket " + bucketName,
		History:     1,
		Storage:     jetstream.MemoryStorage,
		Replicas:    1,
	})
	if err != nil {
		t.Fatalf("failed to create KV bucket %s: %v", bucketName, err)
	}

	return kv
}
