package layout

import (
	"time"

	"hrcal/internal/model"
)

// CalendarCells returns the month grid for the month containing selected.
//
// The grid starts on the week start of the first of the month and ends on the
// last day of the week holding the month's last day, so its length is always
// a multiple of 7. Cells are in the location of selected.
func CalendarCells(selected time.Time, weekStart time.Weekday) []model.CalendarCell {
	first := startOfWeek(startOfMonth(selected), weekStart)
	last := endOfWeek(endOfMonth(selected), weekStart)
	month := selected.Month()

	cells := make([]model.CalendarCell, 0, 42)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		cells = append(cells, model.CalendarCell{
			Day:          d.Day(),
			CurrentMonth: d.Month() == month,
			Date:         d,
		})
	}
	return cells
}

// GridRange returns the inclusive range of the month grid around selected,
// padding days included.
func GridRange(selected time.Time, weekStart time.Weekday) model.DateRange {
	return model.DateRange{
		Start: startOfWeek(startOfMonth(selected), weekStart),
		End:   endOfDayTime(endOfWeek(endOfMonth(selected), weekStart)),
	}
}

// gridRows splits the month grid into week rows of [first, last] day numbers.
func gridRows(selected time.Time, weekStart time.Weekday) [][2]int {
	first := dayNumber(startOfWeek(startOfMonth(selected), weekStart))
	last := dayNumber(endOfWeek(endOfMonth(selected), weekStart))

	rows := make([][2]int, 0, 6)
	for start := first; start <= last; start += 7 {
		rows = append(rows, [2]int{start, start + 6})
	}
	return rows
}
