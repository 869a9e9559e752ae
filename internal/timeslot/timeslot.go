// Package timeslot provides the interval primitives shared by the booking
// availability checks and the slot discovery grid.
package timeslot

import "time"

// Slot is a candidate booking interval, half-open [Start, End)
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Intervals that merely touch do not overlap,
// so a slot ending exactly when a busy period begins is not a conflict.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Grid generates the candidate slot grid for every working day in
// [rangeStart, rangeEnd] inclusive. Saturdays and Sundays are skipped.
// On each remaining day slots are emitted back to back from workStartHour:00
// in the range's location; a slot that would run past workEndHour:00 is
// discarded rather than clipped. Slots are returned in ascending order.
func Grid(rangeStart, rangeEnd time.Time, slotDuration time.Duration, workStartHour, workEndHour int) []Slot {
	if slotDuration <= 0 {
		return nil
	}

	loc := rangeStart.Location()

	day := time.Date(rangeStart.Year(), rangeStart.Month(), rangeStart.Day(), 0, 0, 0, 0, loc)
	lastDay := time.Date(rangeEnd.Year(), rangeEnd.Month(), rangeEnd.Day(), 0, 0, 0, 0, loc)

	var slots []Slot
	for !day.After(lastDay) {
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			day = day.AddDate(0, 0, 1)
			continue
		}

		dayEnd := time.Date(day.Year(), day.Month(), day.Day(), workEndHour, 0, 0, 0, loc)
		start := time.Date(day.Year(), day.Month(), day.Day(), workStartHour, 0, 0, 0, loc)

		for {
			end := start.Add(slotDuration)
			if end.After(dayEnd) {
				break
			}
			slots = append(slots, Slot{Start: start, End: end})
			start = end
		}

		day = day.AddDate(0, 0, 1)
	}

	return slots
}
