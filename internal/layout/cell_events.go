package layout

import (
	"sort"
	"time"

	"hrcal/internal/model"
)

// MonthCellEvents returns the events touching date, each with the lane it is
// drawn on.
//
// Events present in positions keep their lane. The rest (single-day events,
// or multi-day events the caller did not lay out) fill the lowest free lanes
// in order of start time, then id. Positions are unique within the result,
// which is sorted by position.
func MonthCellEvents(date time.Time, events []model.Event, positions model.EventPositions) []model.PositionedEvent {
	day := dayNumber(date)

	out := make([]model.PositionedEvent, 0)
	pending := make([]model.PositionedEvent, 0)
	taken := make(map[int]bool)

	for _, ev := range events {
		first, last := eventSpan(ev.StartDate, ev.EndDate)
		if day < first || day > last {
			continue
		}
		pe := model.PositionedEvent{Event: ev, MultiDay: last > first}
		if lane, ok := positions[ev.ID]; ok && !taken[lane] {
			pe.Position = lane
			taken[lane] = true
			out = append(out, pe)
			continue
		}
		pending = append(pending, pe)
	}

	sort.SliceStable(pending, func(i, j int) bool {
		a, b := pending[i], pending[j]
		if !a.StartDate.Equal(b.StartDate) {
			return a.StartDate.Before(b.StartDate)
		}
		return a.ID < b.ID
	})

	lane := 0
	for _, pe := range pending {
		for taken[lane] {
			lane++
		}
		pe.Position = lane
		taken[lane] = true
		out = append(out, pe)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// CellOverflow counts the events placed on a lane at or beyond maxVisible.
func CellOverflow(cellEvents []model.PositionedEvent, maxVisible int) int {
	n := 0
	for _, pe := range cellEvents {
		if pe.Position >= maxVisible {
			n++
		}
	}
	return n
}

// VisibleEvents returns the events drawn on lanes below maxVisible.
func VisibleEvents(cellEvents []model.PositionedEvent, maxVisible int) []model.PositionedEvent {
	out := make([]model.PositionedEvent, 0, min(len(cellEvents), maxVisible))
	for _, pe := range cellEvents {
		if pe.Position < maxVisible {
			out = append(out, pe)
		}
	}
	return out
}
