package events

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	StreamName  = "CLINIC_EVENTS"
	StatsBucket = "CLINIC_STATS"
)

// Counter keys kept in the stats KV bucket. Seeded to zero at startup
// so the stats endpoint never reports missing keys.
var statsKeys = []string{
	"appointments_booked",
	"bookings_rejected",
	"stock_applied",
	"stock_denied",
	"prescriptions_issued",
	"last_event_time",
}

type EmbeddedServer struct {
	server *server.Server
	nc     *nats.Conn
	js     jetstream.JetStream
}

// NewEmbeddedServer starts an in-process NATS server with JetStream
// persistence under dataDir and declares the event stream and stats
// bucket. The server listens on a random port for internal use only.
func NewEmbeddedServer(dataDir string) (*EmbeddedServer, error) {
	opts := &server.Options{
		JetStream: true,
		StoreDir:  filepath.Join(dataDir, "nats-store"),
		Port:      -1,
		HTTPPort:  -1,
	}

	if err := os.MkdirAll(opts.StoreDir, 0755); err != nil {
		return nil, fmt.Errorf("store dir: %w", err)
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("nats server: %w", err)
	}

	ns.Start()

	if !ns.ReadyForConnections(10 * time.Second) {
		return nil, fmt.Errorf("nats server not ready")
	}

	slog.Info("Embedded NATS server started", "clientURL", ns.ClientURL())

	nc, err := nats.Connect(ns.ClientURL())
	if err != nil {
		ns.Shutdown()
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		ns.Shutdown()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	es := &EmbeddedServer{
		server: ns,
		nc:     nc,
		js:     js,
	}

	if err := es.createStream(); err != nil {
		es.Shutdown()
		return nil, err
	}

	if err := es.createStatsBucket(); err != nil {
		es.Shutdown()
		return nil, err
	}

	return es, nil
}

func (es *EmbeddedServer) createStream() error {
	cfg := jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Clinic domain events (bookings, stock changes)",
		Subjects:    []string{"clinic.events.>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		MaxMsgs:     1000000,
	}

	_, err := es.js.CreateOrUpdateStream(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("event stream: %w", err)
	}
	slog.Info("CLINIC_EVENTS stream created")
	return nil
}

func (es *EmbeddedServer) createStatsBucket() error {
	ctx := context.Background()

	kv, err := es.js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      StatsBucket,
		Description: "Operational counters for the stats endpoint",
		History:     10,
		MaxBytes:    1024 * 1024,
		Storage:     jetstream.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("stats bucket: %w", err)
	}

	for _, key := range statsKeys {
		if _, err := kv.Get(ctx, key); err != nil {
			// Key doesn't exist yet, initialize with 0.
			kv.Put(ctx, key, []byte("0"))
		}
	}

	slog.Info("CLINIC_STATS bucket created")
	return nil
}

func (es *EmbeddedServer) JetStream() jetstream.JetStream {
	return es.js
}

func (es *EmbeddedServer) Connection() *nats.Conn {
	return es.nc
}

func (es *EmbeddedServer) Shutdown() {
	if es.nc != nil {
		es.nc.Close()
	}
	if es.server != nil {
		es.server.Shutdown()
		es.server.WaitForShutdown()
	}
	slog.Info("NATS server stopped")
}
