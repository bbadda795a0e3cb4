package model

import "time"

// Kind distinguishes the two families of calendar entries the HR backend
// stores: vacation usages and plain schedules.
type Kind string

const (
	KindVacation Kind = "vacation"
	KindSchedule Kind = "schedule"
)

// EventType is the calendar type attached to an event (e.g. DAYOFF,
// BUSINESSTRIP). Color drives the badge styling in the month view.
type EventType struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Kind  Kind   `json:"type"`
	// IsDate marks all-day types. Timed types carry an hour span in Hours.
	IsDate bool `json:"is_date"`
	Hours  int  `json:"hours,omitempty"`
}

// User identifies the owner of an event.
type User struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PicturePath string `json:"picture_path,omitempty"`
}

// Event is a single calendar entry for the visible period. The layout code
// treats events as immutable values.
//
// StartDate and EndDate are both inclusive when compared at day granularity.
//
// ID is unique across every event in a snapshot. CalendarID is the backend
// record key (vacation usage or schedule id); it is only unique within one
// Kind and is zero for read-only sources.
type Event struct {
	ID           int       `json:"id"`
	CalendarID   int       `json:"calendar_id,omitempty"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Type         EventType `json:"type"`
	User         User      `json:"user"`
	VacationType string    `json:"vacation_type,omitempty"`
}

// EventKey returns a snapshot-wide event id for a backend record. Vacation
// usages and schedules are numbered independently, so the kind is folded
// into the low bit.
func EventKey(kind Kind, calendarID int) int {
	key := calendarID << 1
	if kind == KindSchedule {
		key |= 1
	}
	return key
}

// CalendarCell is one day slot of the month grid.
type CalendarCell struct {
	Day          int       `json:"day"`
	CurrentMonth bool      `json:"current_month"`
	Date         time.Time `json:"date"`
}

// EventPositions maps an event id to its lane index.
type EventPositions map[int]int

// PositionedEvent is an event as rendered inside a single day cell.
type PositionedEvent struct {
	Event
	Position int  `json:"position"`
	MultiDay bool `json:"multi_day"`
}

// DateRange is an inclusive [Start, End] range.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// View is the calendar view currently shown.
type View string

const (
	ViewDay    View = "day"
	ViewWeek   View = "week"
	ViewMonth  View = "month"
	ViewYear   View = "year"
	ViewAgenda View = "agenda"
)

// ParseView returns the view for s, defaulting to month.
func ParseView(s string) View {
	switch View(s) {
	case ViewDay, ViewWeek, ViewMonth, ViewYear, ViewAgenda:
		return View(s)
	default:
		return ViewMonth
	}
}

// HolidayKind is the holiday classification used for cell coloring.
type HolidayKind string

const (
	HolidayPublic     HolidayKind = "PUBLIC"
	HolidaySubstitute HolidayKind = "SUBSTITUTE"
	HolidayEtc        HolidayKind = "ETC"
)

// Holiday is a single dated holiday. Key is the YYYYMMDD form of Date.
type Holiday struct {
	Name      string      `json:"name"`
	Key       string      `json:"key"`
	Date      time.Time   `json:"date"`
	Kind      HolidayKind `json:"kind"`
	Recurring bool        `json:"recurring"`
}

// Color returns the text color used for the holiday's day number.
func (h Holiday) Color() string {
	switch h.Kind {
	case HolidayPublic, HolidaySubstitute:
		return "#ff6767"
	case HolidayEtc:
		return "#6767ff"
	default:
		return ""
	}
}

// DayKey formats t as the YYYYMMDD key used for holiday lookups.
func DayKey(t time.Time) string {
	return t.Format("20060102")
}
