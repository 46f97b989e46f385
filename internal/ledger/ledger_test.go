//go:build integration

package ledger

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/minasoft/clinic-server/internal/db"
)

// testDatabase connects to the MongoDB named by MONGO_TEST_URI and
// returns a throwaway database dropped at test end.
func testDatabase(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)

	database := client.Database(fmt.Sprintf("clinic_test_%d", time.Now().UnixNano()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = database.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return database
}

func insertMedication(t *testing.T, database *mongo.Database, quantity int) primitive.ObjectID {
	t.Helper()
	res, err := database.Collection(db.ColMedications).InsertOne(context.Background(), db.Medication{
		Name:       "Paracetamol",
		Form:       "Tablet",
		Dosage:     "500mg",
		Quantity:   quantity,
		Indication: "Pain relief",
	})
	require.NoError(t, err)
	return res.InsertedID.(primitive.ObjectID)
}

func currentQuantity(t *testing.T, database *mongo.Database, id primitive.ObjectID) int {
	t.Helper()
	var med db.Medication
	require.NoError(t, database.Collection(db.ColMedications).FindOne(context.Background(), bson.M{"_id": id}).Decode(&med))
	return med.Quantity
}

func TestInventoryConcurrentDecrements(t *testing.T) {
	database := testDatabase(t)
	inv := NewInventory(database)
	medID := insertMedication(t, database, 10)

	// Two decrements of 6 against a stock of 10: only one can land.
	results := make(chan bool, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := inv.ApplyQuantityDelta(context.Background(), medID, -6)
			assert.NoError(t, err)
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for ok := range results {
		if ok {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 4, currentQuantity(t, database, medID))
}

func TestInventoryDecrementToZeroThenDenied(t *testing.T) {
	database := testDatabase(t)
	inv := NewInventory(database)
	medID := insertMedication(t, database, 5)

	ok, err := inv.ApplyQuantityDelta(context.Background(), medID, -5)
	require.NoError(t, err)
	assert.True(t, ok, "exact-zero decrement must succeed")
	assert.Equal(t, 0, currentQuantity(t, database, medID))

	ok, err = inv.ApplyQuantityDelta(context.Background(), medID, -1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, currentQuantity(t, database, medID))
}

func TestInventoryConcurrentIncrements(t *testing.T) {
	database := testDatabase(t)
	inv := NewInventory(database)
	medID := insertMedication(t, database, 0)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := inv.ApplyQuantityDelta(context.Background(), medID, 5)
			assert.NoError(t, err)
			assert.True(t, ok, "increments never fail on stock")
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, currentQuantity(t, database, medID))
}

func TestInventoryZeroDelta(t *testing.T) {
	database := testDatabase(t)
	inv := NewInventory(database)
	medID := insertMedication(t, database, 7)

	ok, err := inv.ApplyQuantityDelta(context.Background(), medID, 0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 7, currentQuantity(t, database, medID))
}

func TestInventoryUnknownMedication(t *testing.T) {
	database := testDatabase(t)
	inv := NewInventory(database)

	ok, err := inv.ApplyQuantityDelta(context.Background(), primitive.NewObjectID(), -1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInventoryRecordChange(t *testing.T) {
	database := testDatabase(t)
	inv := NewInventory(database)
	medID := insertMedication(t, database, 10)

	require.NoError(t, inv.RecordChange(context.Background(), medID, 5))
	require.NoError(t, inv.RecordChange(context.Background(), medID, -3))

	cursor, err := database.Collection(db.ColInventoryLogs).Find(context.Background(),
		bson.M{"med_id": medID},
		options.Find().SetSort(bson.D{{Key: "date", Value: 1}}),
	)
	require.NoError(t, err)
	var logs []db.InventoryLog
	require.NoError(t, cursor.All(context.Background(), &logs))
	require.Len(t, logs, 2)

	assert.Equal(t, db.ChangeAddition, logs[0].ChangeType)
	assert.Equal(t, 5, logs[0].QuantityChanged)
	assert.Equal(t, db.ChangeSubtract, logs[1].ChangeType)
	assert.Equal(t, 3, logs[1].QuantityChanged)
}

func TestBookingConcurrentSameSlot(t *testing.T) {
	database := testDatabase(t)
	booking := NewBooking(database)

	slotDate := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	const workers = 8

	results := make(chan bool, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := booking.BookSlot(context.Background(), db.Appointment{
				PatientID: primitive.NewObjectID(),
				Date:      slotDate,
				Time:      "09:30",
				Status:    db.ApptStatusPending,
				Reason:    "checkup",
			})
			assert.NoError(t, err)
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for ok := range results {
		if ok {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one booking wins the slot")

	count, err := database.Collection(db.ColAppointments).CountDocuments(context.Background(), bson.M{
		"appt_date": slotDate,
		"appt_time": "09:30",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestBookingDistinctSlots(t *testing.T) {
	database := testDatabase(t)
	booking := NewBooking(database)

	slotDate := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	times := []string{"09:00", "09:30", "10:00", "10:30"}

	var wg sync.WaitGroup
	for _, tod := range times {
		tod := tod
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := booking.BookSlot(context.Background(), db.Appointment{
				PatientID: primitive.NewObjectID(),
				Date:      slotDate,
				Time:      tod,
				Status:    db.ApptStatusPending,
				Reason:    "checkup",
			})
			assert.NoError(t, err)
			assert.True(t, ok, tod)
		}()
	}
	wg.Wait()

	count, err := database.Collection(db.ColAppointments).CountDocuments(context.Background(), bson.M{"appt_date": slotDate})
	require.NoError(t, err)
	assert.EqualValues(t, len(times), count)
}

func TestBookingSameTimeDifferentDate(t *testing.T) {
	database := testDatabase(t)
	booking := NewBooking(database)

	for day := 3; day <= 4; day++ {
		ok, err := booking.BookSlot(context.Background(), db.Appointment{
			PatientID: primitive.NewObjectID(),
			Date:      time.Date(2024, 6, day, 0, 0, 0, 0, time.UTC),
			Time:      "11:00",
			Status:    db.ApptStatusPending,
			Reason:    "checkup",
		})
		require.NoError(t, err)
		assert.True(t, ok)
	}
}
