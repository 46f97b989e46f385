package web

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSlot(t *testing.T) {
	// Fixed clock: Wednesday 2024-03-13.
	now := time.Date(2024, 3, 13, 15, 45, 0, 0, time.UTC)

	t.Run("valid on-the-hour slot", func(t *testing.T) {
		date, tod, err := parseSlot("2024-03-14", "09:00", now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), date)
		assert.Equal(t, "09:00", tod)
	})

	t.Run("valid half-hour slot", func(t *testing.T) {
		_, tod, err := parseSlot("2024-03-15", "14:30", now)
		require.NoError(t, err)
		assert.Equal(t, "14:30", tod)
	})

	t.Run("today is bookable", func(t *testing.T) {
		_, _, err := parseSlot("2024-03-13", "16:00", now)
		assert.NoError(t, err)
	})

	t.Run("last day of the window is bookable", func(t *testing.T) {
		_, _, err := parseSlot("2024-03-20", "10:00", now)
		assert.NoError(t, err)
	})

	t.Run("beyond the window is rejected", func(t *testing.T) {
		_, _, err := parseSlot("2024-03-21", "10:00", now)
		assert.ErrorIs(t, err, errSlotWindow)
	})

	t.Run("yesterday is rejected", func(t *testing.T) {
		_, _, err := parseSlot("2024-03-12", "10:00", now)
		assert.ErrorIs(t, err, errSlotWindow)
	})

	t.Run("off-interval minutes are rejected", func(t *testing.T) {
		for _, tod := range []string{"09:15", "09:29", "09:31", "09:45", "09:01"} {
			_, _, err := parseSlot("2024-03-14", tod, now)
			assert.ErrorIs(t, err, errSlotInterval, tod)
		}
	})

	t.Run("bad date format", func(t *testing.T) {
		for _, date := range []string{"14-03-2024", "2024/03/14", "tomorrow", ""} {
			_, _, err := parseSlot(date, "09:00", now)
			assert.ErrorIs(t, err, errSlotFormat, date)
		}
	})

	t.Run("bad time format", func(t *testing.T) {
		for _, tod := range []string{"9am", "25:00", "09:60", ""} {
			_, _, err := parseSlot("2024-03-14", tod, now)
			assert.ErrorIs(t, err, errSlotFormat, tod)
		}
	})

	t.Run("time is normalized to HH:MM", func(t *testing.T) {
		_, tod, err := parseSlot("2024-03-14", "08:30", now)
		require.NoError(t, err)
		assert.Equal(t, "08:30", tod)
	})

	t.Run("date lands at midnight UTC", func(t *testing.T) {
		date, _, err := parseSlot("2024-03-16", "11:00", now)
		require.NoError(t, err)
		assert.Equal(t, 0, date.Hour())
		assert.Equal(t, 0, date.Minute())
		assert.Equal(t, time.UTC, date.Location())
	})
}
