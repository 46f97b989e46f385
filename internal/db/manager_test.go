//go:build integration

package db

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minasoft/clinic-server/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	return &config.Config{
		MongoURI:     uri,
		DatabaseName: fmt.Sprintf("clinic_test_%d", time.Now().UnixNano()),
	}
}

func TestSharedReturnsSameHandle(t *testing.T) {
	cfg := testConfig(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Simultaneous first callers must all receive the same manager.
	const callers = 4
	managers := make([]*Manager, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			managers[i], errs[i] = Shared(ctx, cfg)
		}()
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, managers[0], managers[i])
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = managers[0].Database().Drop(ctx)
		_ = managers[0].Close(ctx)
		sharedMu.Lock()
		shared = nil
		sharedMu.Unlock()
	})
}

func TestConnectCreatesIndexes(t *testing.T) {
	cfg := testConfig(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	m, err := Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = m.Database().Drop(ctx)
		_ = m.Close(ctx)
	})

	cursor, err := m.Collection(ColAppointments).Indexes().List(ctx)
	require.NoError(t, err)
	var indexes []struct {
		Name   string `bson:"name"`
		Unique bool   `bson:"unique"`
	}
	require.NoError(t, cursor.All(ctx, &indexes))

	var found bool
	for _, idx := range indexes {
		if idx.Name == "appt_date_1_appt_time_1" {
			found = true
			assert.False(t, idx.Unique, "the slot index must stay non-unique")
		}
	}
	assert.True(t, found, "compound slot index missing")

	// Re-running index setup against the same database is a no-op.
	assert.NoError(t, m.ensureIndexes(ctx))
}

func TestConnectFailsFast(t *testing.T) {
	if os.Getenv("MONGO_TEST_URI") == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	_, err := Connect(ctx, &config.Config{
		MongoURI:     "mongodb://127.0.0.1:1",
		DatabaseName: "unreachable",
	})
	assert.Error(t, err)
}
