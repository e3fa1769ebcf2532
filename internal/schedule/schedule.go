// Package schedule implements the availability search used to find free
// meeting slots between busy calendar intervals.
package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Interval is a half-open [Start, End) time range. Start must precede End.
type Interval struct {
	Start time.Time
	End   time.Time
}

// DayBlocks groups the free blocks found within one calendar day.
type DayBlocks struct {
	Day    time.Time
	Blocks []Interval
}

// Options configures a free-block search.
type Options struct {
	// WorkdayStart/WorkdayEnd bound the working-hour window, as hours of
	// the day (9 and 17 give a 09:00-17:00 window).
	WorkdayStart int
	WorkdayEnd   int

	// SlotDuration is the minimum length of an emitted free block.
	SlotDuration time.Duration

	// Location is the single timezone all interval arithmetic runs in.
	// Inputs in other zones are converted before the sweep.
	Location *time.Location
}

// DefaultOptions returns a 9-17 working window with 30-minute slots in UTC.
func DefaultOptions() Options {
	return Options{
		WorkdayStart: 9,
		WorkdayEnd:   17,
		SlotDuration: 30 * time.Minute,
		Location:     time.UTC,
	}
}

// FindFreeBlocks sweeps each calendar day in [rangeStart, rangeEnd] and
// returns the free blocks of at least SlotDuration that fall inside the
// working-hour window and overlap no busy interval. Days without a
// qualifying block are omitted. The function is pure: identical inputs
// yield identical output.
func FindFreeBlocks(rangeStart, rangeEnd time.Time, busy []Interval, opts Options) []DayBlocks {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	rangeStart = rangeStart.In(loc)
	rangeEnd = rangeEnd.In(loc)

	normalized := make([]Interval, 0, len(busy))
	for _, b := range busy {
		normalized = append(normalized, Interval{Start: b.Start.In(loc), End: b.End.In(loc)})
	}
	sort.Slice(normalized, func(i, j int) bool {
		return normalized[i].Start.Before(normalized[j].Start)
	})

	var result []DayBlocks

	day := time.Date(rangeStart.Year(), rangeStart.Month(), rangeStart.Day(), 0, 0, 0, 0, loc)
	lastDay := time.Date(rangeEnd.Year(), rangeEnd.Month(), rangeEnd.Day(), 0, 0, 0, 0, loc)

	for !day.After(lastDay) {
		dayStart := day.Add(time.Duration(opts.WorkdayStart) * time.Hour)
		dayEnd := day.Add(time.Duration(opts.WorkdayEnd) * time.Hour)

		// The first and last day may be partial.
		if dayStart.Before(rangeStart) {
			dayStart = rangeStart
		}
		if dayEnd.After(rangeEnd) {
			dayEnd = rangeEnd
		}

		if blocks := sweepDay(dayStart, dayEnd, dayBusy(normalized, day, loc), opts.SlotDuration); len(blocks) > 0 {
			result = append(result, DayBlocks{Day: dayStart, Blocks: blocks})
		}

		day = day.AddDate(0, 0, 1)
	}

	return result
}

// dayBusy selects the busy intervals starting on the given calendar day.
func dayBusy(busy []Interval, day time.Time, loc *time.Location) []Interval {
	var out []Interval
	for _, b := range busy {
		bs := b.Start.In(loc)
		if bs.Year() == day.Year() && bs.YearDay() == day.YearDay() {
			out = append(out, b)
		}
	}
	return out
}

// sweepDay walks the day's busy intervals left to right, emitting every
// gap long enough to hold a slot.
func sweepDay(dayStart, dayEnd time.Time, busy []Interval, slot time.Duration) []Interval {
	if !dayStart.Before(dayEnd) {
		return nil
	}

	var blocks []Interval
	cursor := dayStart

	for _, b := range busy {
		if !cursor.Add(slot).After(b.Start) {
			blocks = append(blocks, Interval{Start: cursor, End: b.Start})
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
	}

	if !cursor.Add(slot).After(dayEnd) {
		blocks = append(blocks, Interval{Start: cursor, End: dayEnd})
	}

	return blocks
}

// FormatAvailability renders free blocks as the human-readable text the
// conversation service hands back to the user.
func FormatAvailability(days []DayBlocks, timezone string) string {
	if len(days) == 0 {
		return "No available slots found in the given date range."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Available time blocks (timezone: %s):\n\n", timezone)
	for _, d := range days {
		fmt.Fprintf(&sb, "%s:\n", d.Day.Format("Monday, January 02, 2006"))
		for _, b := range d.Blocks {
			if b.End.Sub(b.Start) >= 7*time.Hour {
				fmt.Fprintf(&sb, "  All day (%s - %s)\n", b.Start.Format("03:04 PM"), b.End.Format("03:04 PM"))
			} else {
				fmt.Fprintf(&sb, "  %s - %s\n", b.Start.Format("03:04 PM"), b.End.Format("03:04 PM"))
			}
		}
		sb.WriteString("\n")
	}

	return strings.TrimSpace(sb.String())
}
