package web

import (
	"errors"
	"time"
)

// Booking window: patients and staff can only book within the next
// seven days.
const bookingWindowDays = 7

var (
	errSlotFormat   = errors.New("invalid date or time format")
	errSlotInterval = errors.New("appointments must be booked at 30-minute intervals")
	errSlotWindow   = errors.New("appointments can only be booked within the next 7 days")
)

// parseSlot validates and normalizes a requested appointment slot. The
// date is stored at midnight UTC and the time-of-day as "HH:MM", the
// exact representation the booking ledger matches on.
func parseSlot(dateStr, timeStr string, now time.Time) (time.Time, string, error) {
	date, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
	if err != nil {
		return time.Time{}, "", errSlotFormat
	}
	tod, err := time.Parse("15:04", timeStr)
	if err != nil {
		return time.Time{}, "", errSlotFormat
	}

	if tod.Minute() != 0 && tod.Minute() != 30 {
		return time.Time{}, "", errSlotInterval
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if date.Before(today) || date.After(today.AddDate(0, 0, bookingWindowDays)) {
		return time.Time{}, "", errSlotWindow
	}

	return date, tod.Format("15:04"), nil
}
