package layout

import (
	"sort"
	"time"

	"hrcal/internal/model"
)

// MaxVisibleEvents is the number of lanes a month cell renders. Events placed
// on a higher lane are counted in the cell's "+N more" overflow.
const MaxVisibleEvents = 3

// SplitEvents classifies events into single-day and multi-day lists,
// preserving input order. An event is multi-day iff its start and end fall on
// different calendar days; an end before the start counts as single-day.
func SplitEvents(events []model.Event) (single, multi []model.Event) {
	for _, ev := range events {
		if isMultiDay(ev) {
			multi = append(multi, ev)
		} else {
			single = append(single, ev)
		}
	}
	return single, multi
}

func isMultiDay(ev model.Event) bool {
	first, last := eventSpan(ev.StartDate, ev.EndDate)
	return last > first
}

// rowSegment is the part of one multi-day event that falls in a week row.
type rowSegment struct {
	ev       model.Event
	first    int // clipped to the row
	last     int
	start    int // unclipped, used for ordering
	duration int
}

// MonthEventPositions assigns a lane to every multi-day event visible in the
// month grid around selected.
//
// Rows are processed top to bottom. Inside a row the overlapping events are
// ordered by start day, then longer duration first, then id. An event that
// already received a lane in an earlier row keeps it; every other event takes
// the lowest lane not held by an event it overlaps within the row.
//
// singleDay is accepted for symmetry with the cell pass and is not
// lane-assigned here; MonthCellEvents slots single-day events around the
// reserved lanes.
func MonthEventPositions(multiDay, singleDay []model.Event, selected time.Time, weekStart time.Weekday) model.EventPositions {
	positions := make(model.EventPositions)
	if len(multiDay) == 0 {
		return positions
	}

	for _, row := range gridRows(selected, weekStart) {
		segments := make([]rowSegment, 0)
		for _, ev := range multiDay {
			first, last := eventSpan(ev.StartDate, ev.EndDate)
			if last < row[0] || first > row[1] {
				continue
			}
			segments = append(segments, rowSegment{
				ev:       ev,
				first:    max(first, row[0]),
				last:     min(last, row[1]),
				start:    first,
				duration: last - first,
			})
		}
		if len(segments) == 0 {
			continue
		}

		sort.SliceStable(segments, func(i, j int) bool {
			a, b := segments[i], segments[j]
			if a.start != b.start {
				return a.start < b.start
			}
			if a.duration != b.duration {
				return a.duration > b.duration
			}
			return a.ev.ID < b.ev.ID
		})

		placed := make([]rowSegment, 0, len(segments))
		// Continuations first so their lanes are reserved before new events
		// pick theirs.
		for _, seg := range segments {
			if _, ok := positions[seg.ev.ID]; ok {
				placed = append(placed, seg)
			}
		}
		for _, seg := range segments {
			if _, ok := positions[seg.ev.ID]; ok {
				continue
			}
			positions[seg.ev.ID] = lowestFreeLane(seg, placed, positions)
			placed = append(placed, seg)
		}
	}

	return positions
}

func lowestFreeLane(seg rowSegment, placed []rowSegment, positions model.EventPositions) int {
	taken := make(map[int]bool)
	for _, p := range placed {
		if p.last < seg.first || p.first > seg.last {
			continue
		}
		taken[positions[p.ev.ID]] = true
	}
	lane := 0
	for taken[lane] {
		lane++
	}
	return lane
}
