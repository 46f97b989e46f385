package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	ev := NewEvent(TypeAppointmentBooked)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, TypeAppointmentBooked, ev.Type)
	assert.WithinDuration(t, time.Now().UTC(), ev.Timestamp, time.Second)

	other := NewEvent(TypeAppointmentBooked)
	assert.NotEqual(t, ev.ID, other.ID)
}

func TestEventSubject(t *testing.T) {
	ev := Event{ID: "abc-123", Type: TypeInventoryDenied}
	assert.Equal(t, "clinic.events.inventory.denied.abc-123", ev.Subject())
}

func TestEventEnvelopeJSON(t *testing.T) {
	ev := NewEvent(TypePrescriptionIssued)
	ev.PatientID = "65f1a2b3c4d5e6f7a8b9c0d1"
	ev.MedicationID = "65f1a2b3c4d5e6f7a8b9c0d2"
	ev.Delta = -5

	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var decoded Event
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, ev.ID, decoded.ID)
	assert.Equal(t, TypePrescriptionIssued, decoded.Type)
	assert.Equal(t, -5, decoded.Delta)

	// Empty booking fields stay out of the payload.
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.NotContains(t, raw, "appt_date")
	assert.NotContains(t, raw, "appt_time")
}
