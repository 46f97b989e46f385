package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event types carried on the clinic.events.> subjects.
const (
	TypeAppointmentBooked  = "appointment.booked"
	TypeBookingRejected    = "appointment.rejected"
	TypeInventoryApplied   = "inventory.applied"
	TypeInventoryDenied    = "inventory.denied"
	TypePrescriptionIssued = "prescription.issued"
)

// Event is the JSON envelope published for every ledger outcome.
type Event struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	PatientID    string    `json:"patient_id,omitempty"`
	MedicationID string    `json:"medication_id,omitempty"`
	ApptDate     string    `json:"appt_date,omitempty"`
	ApptTime     string    `json:"appt_time,omitempty"`
	Delta        int       `json:"delta,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewEvent builds an envelope with a fresh id and timestamp.
func NewEvent(eventType string) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

// Subject returns the stream subject for the event, derived from its
// type: clinic.events.<type>.<id>.
func (e Event) Subject() string {
	return fmt.Sprintf("clinic.events.%s.%s", e.Type, e.ID)
}

// Publisher writes events to the embedded stream. Publishing is
// best-effort by design: a failed publish is logged and dropped, the
// request that produced it has already committed its authoritative
// write.
type Publisher struct {
	js jetstream.JetStream
}

func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

func (p *Publisher) publish(ctx context.Context, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("Event marshal failed", "type", ev.Type, "error", err)
		return
	}
	if _, err := p.js.Publish(ctx, ev.Subject(), data); err != nil {
		slog.Error("Event publish failed", "type", ev.Type, "id", ev.ID, "error", err)
	}
}

func (p *Publisher) AppointmentBooked(ctx context.Context, patientID primitive.ObjectID, date time.Time, timeOfDay string) {
	ev := NewEvent(TypeAppointmentBooked)
	ev.PatientID = patientID.Hex()
	ev.ApptDate = date.Format("2006-01-02")
	ev.ApptTime = timeOfDay
	p.publish(ctx, ev)
}

func (p *Publisher) BookingRejected(ctx context.Context, patientID primitive.ObjectID, date time.Time, timeOfDay string) {
	ev := NewEvent(TypeBookingRejected)
	ev.PatientID = patientID.Hex()
	ev.ApptDate = date.Format("2006-01-02")
	ev.ApptTime = timeOfDay
	p.publish(ctx, ev)
}

func (p *Publisher) InventoryApplied(ctx context.Context, medicationID primitive.ObjectID, delta int) {
	ev := NewEvent(TypeInventoryApplied)
	ev.MedicationID = medicationID.Hex()
	ev.Delta = delta
	p.publish(ctx, ev)
}

func (p *Publisher) InventoryDenied(ctx context.Context, medicationID primitive.ObjectID, delta int) {
	ev := NewEvent(TypeInventoryDenied)
	ev.MedicationID = medicationID.Hex()
	ev.Delta = delta
	p.publish(ctx, ev)
}

func (p *Publisher) PrescriptionIssued(ctx context.Context, patientID, medicationID primitive.ObjectID, dosage int) {
	ev := NewEvent(TypePrescriptionIssued)
	ev.PatientID = patientID.Hex()
	ev.MedicationID = medicationID.Hex()
	ev.Delta = -dosage
	p.publish(ctx, ev)
}
