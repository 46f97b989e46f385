package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/minasoft/clinic-server/internal/db"
)

// Booking guarantees that at most one appointment occupies a given
// (date, time) slot. The Appointments compound index is not unique, so
// exclusivity comes entirely from serializing the check-then-insert
// below.
type Booking struct {
	mu    sync.Mutex
	appts *mongo.Collection
}

func NewBooking(database *mongo.Database) *Booking {
	return &Booking{
		appts: database.Collection(db.ColAppointments),
	}
}

// BookSlot claims the appointment's (date, time) slot. The existence
// check and the insert run under one mutex held for the full span, so
// two concurrent requests for the same slot cannot both pass the check.
// The lock serializes all bookings process-wide, not just the contended
// slot; at clinic write volumes that coarseness costs nothing.
//
// Returns (false, nil) when the slot is already taken. The caller keeps
// the same appointment record and may retry with a different slot;
// blind replay after a crash mid-operation is not idempotent.
func (b *Booking) BookSlot(ctx context.Context, appt db.Appointment) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	err := b.appts.FindOne(ctx, bson.M{
		"appt_date": appt.Date,
		"appt_time": appt.Time,
	}).Err()

	switch {
	case err == nil:
		// Slot taken.
		return false, nil
	case !errors.Is(err, mongo.ErrNoDocuments):
		return false, fmt.Errorf("slot lookup: %w", err)
	}

	if _, err := b.appts.InsertOne(ctx, appt); err != nil {
		return false, fmt.Errorf("appointment insert: %w", err)
	}
	return true, nil
}
