// Package ledger holds the two operations where correctness under
// concurrent requests matters: medication stock changes and appointment
// slot booking. Everything else in the service is plain CRUD.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/minasoft/clinic-server/internal/db"
)

// Inventory applies stock changes to medications while keeping the
// quantity non-negative under concurrent decrements.
type Inventory struct {
	meds *mongo.Collection
	logs *mongo.Collection
}

func NewInventory(database *mongo.Database) *Inventory {
	return &Inventory{
		meds: database.Collection(db.ColMedications),
		logs: database.Collection(db.ColInventoryLogs),
	}
}

// ApplyQuantityDelta changes a medication's stock by delta in a single
// conditional update: the filter only matches when the current quantity
// can absorb a negative delta, and the increment happens in the same
// server-side operation. There is no read-then-write window, so two
// concurrent decrements can never drive the quantity below zero.
//
// Returns (false, nil) when the precondition fails: insufficient stock,
// a lost race, or an unknown id. That is an expected outcome, not an
// error. Errors are reserved for store failures.
func (inv *Inventory) ApplyQuantityDelta(ctx context.Context, medicationID primitive.ObjectID, delta int) (bool, error) {
	required := 0
	if delta < 0 {
		required = -delta
	}

	err := inv.meds.FindOneAndUpdate(ctx,
		bson.M{
			"_id":      medicationID,
			"quantity": bson.M{"$gte": required},
		},
		bson.M{"$inc": bson.M{"quantity": delta}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Err()

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, fmt.Errorf("conditional quantity update: %w", err)
	}
	return true, nil
}

// RecordChange appends one change-log entry for a successful quantity
// change. Callers invoke it after ApplyQuantityDelta reports success.
// The append is a separate write from the quantity update: if the
// process dies between the two, the log under-counts but the stock
// count stays correct. The log is diagnostic, never authoritative.
func (inv *Inventory) RecordChange(ctx context.Context, medicationID primitive.ObjectID, delta int) error {
	changeType := db.ChangeAddition
	changed := delta
	if delta < 0 {
		changeType = db.ChangeSubtract
		changed = -delta
	}

	_, err := inv.logs.InsertOne(ctx, db.InventoryLog{
		MedicationID:    medicationID,
		ChangeType:      changeType,
		QuantityChanged: changed,
		Date:            time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("inventory log append: %w", err)
	}
	return nil
}
