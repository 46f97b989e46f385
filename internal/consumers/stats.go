package consumers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/minasoft/clinic-server/internal/events"
)

// counterFor maps an event type to the stats bucket key it increments.
var counterFor = map[string]string{
	events.TypeAppointmentBooked:  "appointments_booked",
	events.TypeBookingRejected:    "bookings_rejected",
	events.TypeInventoryApplied:   "stock_applied",
	events.TypeInventoryDenied:    "stock_denied",
	events.TypePrescriptionIssued: "prescriptions_issued",
}

// StatsRecorder consumes clinic events and maintains the counters the
// stats endpoint reports. Delivery is at-least-once; a redelivered
// event can bump a counter twice. The counters are diagnostic, so that
// drift is accepted rather than paid for with exactly-once machinery.
type StatsRecorder struct {
	js jetstream.JetStream
}

func NewStatsRecorder(js jetstream.JetStream) *StatsRecorder {
	return &StatsRecorder{js: js}
}

func (r *StatsRecorder) Start(ctx context.Context) error {
	consumer, err := r.js.CreateOrUpdateConsumer(ctx, events.StreamName, jetstream.ConsumerConfig{
		Name:          "stats-recorder",
		Description:   "Updates operational counters from clinic events",
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
		MaxAckPending: 100,
	})
	if err != nil {
		return fmt.Errorf("stats consumer: %w", err)
	}

	kv, err := r.js.KeyValue(ctx, events.StatsBucket)
	if err != nil {
		return fmt.Errorf("stats bucket: %w", err)
	}

	go func() {
		slog.Info("Stats recorder started", "stream", events.StreamName)

		cons, err := consumer.Consume(func(msg jetstream.Msg) {
			r.processEvent(msg, kv)
		})
		if err != nil {
			slog.Error("Consumer error", "error", err)
			return
		}

		<-ctx.Done()
		cons.Stop()
	}()

	return nil
}

func (r *StatsRecorder) processEvent(msg jetstream.Msg, kv jetstream.KeyValue) {
	var ev events.Event
	if err := json.Unmarshal(msg.Data(), &ev); err != nil {
		slog.Error("Event parse error", "error", err)
		msg.Nak()
		return
	}

	key, ok := counterFor[ev.Type]
	if !ok {
		slog.Warn("Unknown event type", "type", ev.Type, "id", ev.ID)
		msg.Ack()
		return
	}

	ctx := context.Background()
	if err := bumpCounter(ctx, kv, key); err != nil {
		slog.Error("Counter update failed", "key", key, "error", err)
		msg.Nak()
		return
	}
	kv.Put(ctx, "last_event_time", []byte(ev.Timestamp.Format(time.RFC3339)))

	slog.Debug("Event recorded", "type", ev.Type, "id", ev.ID, "counter", key)
	msg.Ack()
}

func bumpCounter(ctx context.Context, kv jetstream.KeyValue, key string) error {
	var current int
	if entry, err := kv.Get(ctx, key); err == nil {
		current, _ = strconv.Atoi(string(entry.Value()))
	}
	_, err := kv.Put(ctx, key, []byte(strconv.Itoa(current+1)))
	return err
}
