// Package schedule builds the update requests the HR backend expects when an
// event is moved by drag & drop or edited through the event form.
package schedule

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"hrcal/internal/model"
)

// wireLayout is the local date-time format the backend accepts.
const wireLayout = "2006-01-02T15:04:05"

const dateLayout = "2006-01-02"

// afternoonShift is the work time of employees starting at 13:00. Their
// break is dinner (18-19) instead of lunch (12-13).
const afternoonShift = "13 ~ 21"

var (
	ErrUnknownType = errors.New("schedule: unknown calendar type")
	ErrInvalidForm = errors.New("schedule: invalid form")
)

// UpdateRequest is a normalized update ready to be sent to the backend.
type UpdateRequest struct {
	Kind   model.Kind `json:"kind"`
	Method string     `json:"method"`
	Path   string     `json:"path"`
	Body   any        `json:"body"`
}

// VacationUsageUpdate is the body of PUT /vacation-usages/{id}.
type VacationUsageUpdate struct {
	VacationUsageID  int    `json:"vacation_usage_id"`
	UserID           string `json:"user_id"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
	VacationType     string `json:"vacation_type"`
	VacationTimeType string `json:"vacation_time_type"`
	VacationDesc     string `json:"vacation_desc"`
}

// ScheduleUpdate is the body of PUT /schedule/{id}.
type ScheduleUpdate struct {
	ScheduleID   int    `json:"schedule_id"`
	UserID       string `json:"user_id"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	ScheduleType string `json:"schedule_type"`
	ScheduleDesc string `json:"schedule_desc"`
}

// FormParams are the fields submitted by the event edit form. Dates are
// YYYY-MM-DD; StartHour/StartMinute are only used for timed types. EventID
// is the backend record key (Event.CalendarID).
type FormParams struct {
	EventID      int    `json:"event_id"`
	UserID       string `json:"user_id"`
	CalendarType string `json:"calendar_type"`
	VacationType string `json:"vacation_type,omitempty"`
	Desc         string `json:"desc,omitempty"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	StartHour    string `json:"start_hour,omitempty"`
	StartMinute  string `json:"start_minute,omitempty"`
	UserWorkTime string `json:"user_work_time,omitempty"`
}

// change is the shape both entry points reduce to before building the
// backend request.
type change struct {
	kind         model.Kind
	eventID      int
	userID       string
	typeID       string
	vacationType string
	desc         string
	start        time.Time
	end          time.Time
}

// UpdateFromDrag builds the request for an event dropped on new dates. The
// event already carries the moved StartDate/EndDate; only dates change. The
// backend path is built from ev.CalendarID, not the snapshot-wide ev.ID.
func UpdateFromDrag(ev model.Event) UpdateRequest {
	return normalize(change{
		kind:         ev.Type.Kind,
		eventID:      ev.CalendarID,
		userID:       ev.User.ID,
		typeID:       ev.Type.ID,
		vacationType: ev.VacationType,
		desc:         ev.Description,
		start:        ev.StartDate,
		end:          ev.EndDate,
	})
}

// UpdateFromForm builds the request for an edit submitted through the form.
//
// All-day types span from the start of the first day to the end of the last
// day. Timed types start at StartHour:StartMinute and end after the type's
// hour span, pushed back one hour when the span crosses the worker's break.
// Dates are read as wall-clock days in loc; nil means time.Local.
func UpdateFromForm(p FormParams, loc *time.Location) (UpdateRequest, error) {
	if loc == nil {
		loc = time.Local
	}
	ct, ok := model.LookupType(p.CalendarType)
	if !ok {
		return UpdateRequest{}, fmt.Errorf("%w: %q", ErrUnknownType, p.CalendarType)
	}

	startDay, err := time.ParseInLocation(dateLayout, p.StartDate, loc)
	if err != nil {
		return UpdateRequest{}, fmt.Errorf("%w: start_date: %v", ErrInvalidForm, err)
	}
	endDay, err := time.ParseInLocation(dateLayout, p.EndDate, loc)
	if err != nil {
		return UpdateRequest{}, fmt.Errorf("%w: end_date: %v", ErrInvalidForm, err)
	}

	c := change{
		kind:         ct.Kind,
		eventID:      p.EventID,
		userID:       p.UserID,
		typeID:       ct.ID,
		vacationType: p.VacationType,
		desc:         p.Desc,
	}

	if ct.IsDate {
		c.start = startDay
		c.end = at(endDay, 23, 59, 59)
		return normalize(c), nil
	}

	hour, err := parseClock(p.StartHour, 23)
	if err != nil {
		return UpdateRequest{}, fmt.Errorf("%w: start_hour: %v", ErrInvalidForm, err)
	}
	minute, err := parseClock(p.StartMinute, 59)
	if err != nil {
		return UpdateRequest{}, fmt.Errorf("%w: start_minute: %v", ErrInvalidForm, err)
	}

	endHour := EndHourWithBreak(hour, ct.Hours, p.UserWorkTime)
	c.start = at(startDay, hour, minute, 0)
	c.end = at(endDay, endHour, minute, 0)
	return normalize(c), nil
}

// EndHourWithBreak returns startHour+hours, plus one when the span starts
// before and ends after the break hour (12 for the morning shift, 18 for
// the afternoon shift).
func EndHourWithBreak(startHour, hours int, workTime string) int {
	endHour := startHour + hours
	breakHour := 12
	if workTime == afternoonShift {
		breakHour = 18
	}
	if startHour < breakHour && endHour > breakHour {
		return endHour + 1
	}
	return endHour
}

func at(day time.Time, hour, minute, sec int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, hour, minute, sec, 0, day.Location())
}

func parseClock(s string, maxVal int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > maxVal {
		return 0, fmt.Errorf("%d out of range 0..%d", n, maxVal)
	}
	return n, nil
}

func normalize(c change) UpdateRequest {
	start := c.start.Format(wireLayout)
	end := c.end.Format(wireLayout)

	if c.kind == model.KindVacation {
		return UpdateRequest{
			Kind:   model.KindVacation,
			Method: http.MethodPut,
			Path:   "/vacation-usages/" + strconv.Itoa(c.eventID),
			Body: VacationUsageUpdate{
				VacationUsageID:  c.eventID,
				UserID:           c.userID,
				StartDate:        start,
				EndDate:          end,
				VacationType:     c.vacationType,
				VacationTimeType: c.typeID,
				VacationDesc:     c.desc,
			},
		}
	}

	return UpdateRequest{
		Kind:   model.KindSchedule,
		Method: http.MethodPut,
		Path:   "/schedule/" + strconv.Itoa(c.eventID),
		Body: ScheduleUpdate{
			ScheduleID:   c.eventID,
			UserID:       c.userID,
			StartDate:    start,
			EndDate:      end,
			ScheduleType: c.typeID,
			ScheduleDesc: c.desc,
		},
	}
}
