package layout

import (
	"time"

	"hrcal/internal/model"
)

// Filter selects the events shown for a view. Nil id lists mean "all".
type Filter struct {
	View      model.View
	Selected  time.Time
	WeekStart time.Weekday
	UserIDs   []string
	TypeIDs   []string

	// Range, when set, replaces the view window (e.g. with GridRange).
	Range *model.DateRange
}

// VisibleRange returns the inclusive window a view covers around selected.
// Month and agenda cover the calendar month, not the padded grid.
func VisibleRange(view model.View, selected time.Time, weekStart time.Weekday) model.DateRange {
	day := startOfDay(selected)
	var start, end time.Time

	switch view {
	case model.ViewDay:
		start, end = day, day
	case model.ViewWeek:
		start, end = startOfWeek(day, weekStart), endOfWeek(day, weekStart)
	case model.ViewYear:
		start = time.Date(day.Year(), time.January, 1, 0, 0, 0, 0, day.Location())
		end = time.Date(day.Year(), time.December, 31, 0, 0, 0, 0, day.Location())
	default:
		start, end = startOfMonth(day), endOfMonth(day)
	}

	return model.DateRange{Start: start, End: endOfDayTime(end)}
}

func endOfDayTime(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// FilterEvents keeps the events that overlap the view window and match the
// user and type filters.
func FilterEvents(events []model.Event, f Filter) []model.Event {
	rng := VisibleRange(f.View, f.Selected, f.WeekStart)
	if f.Range != nil {
		rng = *f.Range
	}
	users := toSet(f.UserIDs)
	types := toSet(f.TypeIDs)

	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if ev.StartDate.After(rng.End) || ev.EndDate.Before(rng.Start) {
			continue
		}
		if users != nil && !users[ev.User.ID] {
			continue
		}
		if types != nil && !types[ev.Type.ID] {
			continue
		}
		out = append(out, ev)
	}
	return out
}

func toSet(ids []string) map[string]bool {
	if ids == nil {
		return nil
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// YearIndicators counts events per day of year for the year view dots.
// Each event is counted on its start day only, so a span crossing into the
// next year is not shown there.
func YearIndicators(events []model.Event, year int) map[string]int {
	counts := make(map[string]int)
	for _, ev := range events {
		if ev.StartDate.Year() != year {
			continue
		}
		counts[model.DayKey(ev.StartDate)]++
	}
	return counts
}
