// Package calculator derives free time from a schedule window and the bookings that block it.
// Everything here works in minutes after local midnight of a single day and has no I/O.
package calculator

import (
	"sort"
	"time"

	"expertly/pkg/model"
)

const minutesPerDay = 24 * 60

const NoSlotsMessage = "No free slots left in this window"

// Interval is a half-open range of minutes, [Start, End).
type Interval struct {
	Start int
	End   int
}

func (i Interval) Empty() bool { return i.End <= i.Start }

// FreeIntervals sweeps window left to right, cutting out every blocking interval. Blocks
// are clipped to the window, and the cursor never moves backward, so overlapping or
// nested blocks are handled. The result is ordered and disjoint.
func FreeIntervals(window Interval, blocking []Interval) []Interval {
	if window.Empty() {
		return nil
	}

	clipped := make([]Interval, 0, len(blocking))
	for _, b := range blocking {
		b.Start = max(b.Start, window.Start)
		b.End = min(b.End, window.End)
		if !b.Empty() {
			clipped = append(clipped, b)
		}
	}
	sort.Slice(clipped, func(i, j int) bool {
		if clipped[i].Start == clipped[j].Start {
			return clipped[i].End < clipped[j].End
		}
		return clipped[i].Start < clipped[j].Start
	})

	var free []Interval
	cursor := window.Start
	for _, b := range clipped {
		if cursor < b.Start {
			free = append(free, Interval{Start: cursor, End: b.Start})
		}
		cursor = max(cursor, b.End)
	}
	if cursor < window.End {
		free = append(free, Interval{Start: cursor, End: window.End})
	}
	return free
}

// BlockingIntervals maps appointments onto the minutes of day, which must be local midnight
// in the expert's zone. Rejected and cancelled appointments never block. Fixed-length
// bookings block only when includeFixed is set. An open appointment with no end blocks
// the rest of the day.
func BlockingIntervals(day time.Time, appointments []*model.Appointment, includeFixed bool) []Interval {
	loc := day.Location()
	var out []Interval
	for _, a := range appointments {
		if !a.Status.Occupies() {
			continue
		}
		if !a.IsOpen && !includeFixed {
			continue
		}

		start := minutesFrom(day, a.From.In(loc))
		end := minutesPerDay
		if a.To != nil {
			end = minutesFrom(day, a.To.In(loc))
		}
		iv := Interval{Start: max(start, 0), End: min(end, minutesPerDay)}
		if !iv.Empty() {
			out = append(out, iv)
		}
	}
	return out
}

// minutesFrom is the wall-clock minute of t relative to day's midnight: negative on an
// earlier date, past minutesPerDay on a later one. Wall clock, not elapsed time, so DST
// shifts do not move schedule boundaries.
func minutesFrom(day, t time.Time) int {
	y1, m1, d1 := day.Date()
	y2, m2, d2 := t.Date()
	days := int(time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC).Sub(time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)) / (24 * time.Hour))
	return days*minutesPerDay + model.MinutesOfDay(t)
}

// ForWindow computes one window's availability.
func ForWindow(w *model.ScheduleWindow, day time.Time, appointments []*model.Appointment, includeFixed bool) (model.WindowAvailability, error) {
	start, end, err := w.Bounds()
	if err != nil {
		return model.WindowAvailability{}, err
	}

	out := model.WindowAvailability{
		WindowID:  w.ID,
		StartTime: w.StartTime,
		EndTime:   w.EndTime,
	}

	blocking := BlockingIntervals(day, appointments, includeFixed)
	for _, iv := range FreeIntervals(Interval{Start: start, End: end}, blocking) {
		out.Slots = append(out.Slots, model.TimeRange{
			From: model.FormatClock(iv.Start),
			To:   model.FormatClock(iv.End),
		})
	}
	if len(out.Slots) == 0 {
		out.Message = NoSlotsMessage
	}
	return out, nil
}
