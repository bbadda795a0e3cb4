package layout

import (
	"time"

	"hrcal/internal/model"
)

// HolidayLookup resolves a YYYYMMDD key to a holiday, if any.
type HolidayLookup func(key string) (model.Holiday, bool)

// MonthOptions tunes BuildMonth. Zero values select the defaults.
type MonthOptions struct {
	WeekStart  time.Weekday
	MaxVisible int
	Holidays   HolidayLookup
}

// MonthCell is a grid cell together with what is drawn in it.
type MonthCell struct {
	model.CalendarCell
	Key      string                  `json:"key"`
	Events   []model.PositionedEvent `json:"events"`
	Overflow int                     `json:"overflow"`
	Holiday  *model.Holiday          `json:"holiday,omitempty"`
}

// Month is the complete month-view layout.
type Month struct {
	Year       int                  `json:"year"`
	Month      time.Month           `json:"month"`
	WeekStart  time.Weekday         `json:"week_start"`
	MaxVisible int                  `json:"max_visible"`
	Cells      []MonthCell          `json:"cells"`
	Positions  model.EventPositions `json:"positions"`
}

// BuildMonth runs the full month pipeline over events: classification, lane
// assignment, grid cells and per-cell placement. events is expected to be
// the snapshot already filtered for the month.
func BuildMonth(events []model.Event, selected time.Time, opts MonthOptions) Month {
	if opts.MaxVisible <= 0 {
		opts.MaxVisible = MaxVisibleEvents
	}

	single, multi := SplitEvents(events)
	positions := MonthEventPositions(multi, single, selected, opts.WeekStart)

	// Multi-day first keeps their lanes ahead of single-day slot filling.
	ordered := make([]model.Event, 0, len(events))
	ordered = append(ordered, multi...)
	ordered = append(ordered, single...)

	cells := CalendarCells(selected, opts.WeekStart)
	out := Month{
		Year:       selected.Year(),
		Month:      selected.Month(),
		WeekStart:  opts.WeekStart,
		MaxVisible: opts.MaxVisible,
		Cells:      make([]MonthCell, 0, len(cells)),
		Positions:  positions,
	}

	for _, c := range cells {
		cellEvents := MonthCellEvents(c.Date, ordered, positions)
		mc := MonthCell{
			CalendarCell: c,
			Key:          model.DayKey(c.Date),
			Events:       VisibleEvents(cellEvents, opts.MaxVisible),
			Overflow:     CellOverflow(cellEvents, opts.MaxVisible),
		}
		if opts.Holidays != nil {
			if h, ok := opts.Holidays(mc.Key); ok {
				mc.Holiday = &h
			}
		}
		out.Cells = append(out.Cells, mc)
	}

	return out
}
