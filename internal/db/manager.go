package db

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/minasoft/clinic-server/internal/config"
)

// Manager owns the single MongoDB handle used by every component. It is
// initialized once per process; all callers share the same instance.
type Manager struct {
	client *mongo.Client
	db     *mongo.Database
}

var (
	sharedMu sync.Mutex
	shared   *Manager
)

// Shared returns the process-wide Manager, connecting and creating the
// collection indexes on first call. Concurrent first callers block on
// the lock until initialization finishes and then receive the same
// handle. If initialization fails nothing is cached, so the error
// surfaces instead of a half-initialized handle.
func Shared(ctx context.Context, cfg *config.Config) (*Manager, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if shared != nil {
		return shared, nil
	}

	m, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	shared = m
	return m, nil
}

// Connect opens a client, verifies the server is reachable and sets up
// the indexes. Most callers want Shared instead; Connect exists for
// tests that need an isolated database.
func Connect(ctx context.Context, cfg *config.Config) (*Manager, error) {
	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect failed: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo unreachable: %w", err)
	}

	m := &Manager{
		client: client,
		db:     client.Database(cfg.DatabaseName),
	}

	if err := m.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("index setup failed: %w", err)
	}

	slog.Info("Database initialized", "database", cfg.DatabaseName)
	return m, nil
}

func (m *Manager) Database() *mongo.Database {
	return m.db
}

func (m *Manager) Collection(name string) *mongo.Collection {
	return m.db.Collection(name)
}

func (m *Manager) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

// Close disconnects the client. Only the main goroutine calls this, on
// process shutdown.
func (m *Manager) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// ensureIndexes declares the indexes for every collection. CreateMany is
// idempotent for identical definitions, so a second process start is a
// no-op. Errors are returned to the caller, not swallowed: serving
// traffic without the uniqueness constraints would be worse than
// failing startup.
func (m *Manager) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	for _, c := range []struct {
		collection string
		models     []mongo.IndexModel
	}{
		{ColUsers, []mongo.IndexModel{
			{Keys: bson.D{{Key: "Username", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "Email", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "ContactNumber", Value: 1}}},
		}},
		{ColPatients, []mongo.IndexModel{
			{Keys: bson.D{{Key: "NRIC", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "PatientName", Value: "text"}}},
			{Keys: bson.D{{Key: "UserID", Value: 1}}},
		}},
		{ColAppointments, []mongo.IndexModel{
			// Compound but deliberately not unique: slot exclusivity is
			// enforced by the booking ledger, not the storage layer.
			{Keys: bson.D{{Key: "appt_date", Value: 1}, {Key: "appt_time", Value: 1}}},
			{Keys: bson.D{{Key: "patient_id", Value: 1}}},
			{Keys: bson.D{{Key: "appt_status", Value: 1}}},
		}},
		{ColMedications, []mongo.IndexModel{
			{Keys: bson.D{{Key: "name", Value: "text"}}},
			{Keys: bson.D{{Key: "quantity", Value: 1}}},
		}},
		{ColPatientHistory, []mongo.IndexModel{
			{Keys: bson.D{{Key: "patient_id", Value: 1}}},
			{Keys: bson.D{{Key: "date", Value: -1}}},
			{Keys: bson.D{{Key: "diagnosis", Value: "text"}}},
		}},
		{ColPrescriptions, []mongo.IndexModel{
			{Keys: bson.D{{Key: "patient_id", Value: 1}, {Key: "date", Value: -1}}},
		}},
	} {
		if _, err := m.db.Collection(c.collection).Indexes().CreateMany(ctx, c.models); err != nil {
			return fmt.Errorf("indexes for %s: %w", c.collection, err)
		}
	}

	slog.Info("Collection indexes created")
	return nil
}
