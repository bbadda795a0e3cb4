package web

import (
	"embed"
	"fmt"
	"html/template"
	"time"

	"hrcal/internal/layout"
	"hrcal/internal/model"
)

//go:embed templates/month.html.tmpl
var templateFS embed.FS

var monthTemplate = template.Must(template.ParseFS(templateFS, "templates/month.html.tmpl"))

var weekdayNames = [7]string{"일", "월", "화", "수", "목", "금", "토"}

type pageEvent struct {
	Title    string
	Label    string
	Color    string
	MultiDay bool
}

type pageCell struct {
	Day          int
	Key          string
	CurrentMonth bool
	HolidayName  string
	HolidayColor string
	// Lanes has one slot per visible lane; nil slots keep later bars aligned.
	Lanes    []*pageEvent
	Overflow int
}

type monthPage struct {
	Title     string
	UpdatedAt string
	Weekdays  []string
	Weeks     [][]pageCell
}

func newMonthPage(m layout.Month, updatedAt time.Time, loc *time.Location) monthPage {
	page := monthPage{
		Title:    fmt.Sprintf("%d년 %d월", m.Year, int(m.Month)),
		Weekdays: make([]string, 0, 7),
	}
	if !updatedAt.IsZero() {
		page.UpdatedAt = updatedAt.In(loc).Format("2006-01-02 15:04")
	}
	for i := 0; i < 7; i++ {
		page.Weekdays = append(page.Weekdays, weekdayNames[(int(m.WeekStart)+i)%7])
	}

	week := make([]pageCell, 0, 7)
	for _, c := range m.Cells {
		pc := pageCell{
			Day:          c.Day,
			Key:          c.Key,
			CurrentMonth: c.CurrentMonth,
			Lanes:        make([]*pageEvent, m.MaxVisible),
			Overflow:     c.Overflow,
		}
		if c.Holiday != nil {
			pc.HolidayName = c.Holiday.Name
			pc.HolidayColor = c.Holiday.Color()
		}
		for _, ev := range c.Events {
			if ev.Position < 0 || ev.Position >= len(pc.Lanes) {
				continue
			}
			pc.Lanes[ev.Position] = &pageEvent{
				Title:    ev.Title,
				Label:    eventLabel(ev.Event),
				Color:    ev.Type.Color,
				MultiDay: ev.MultiDay,
			}
		}

		week = append(week, pc)
		if len(week) == 7 {
			page.Weeks = append(page.Weeks, week)
			week = make([]pageCell, 0, 7)
		}
	}
	return page
}

// eventLabel is the text drawn inside an event bar.
func eventLabel(ev model.Event) string {
	switch {
	case ev.User.Name != "" && ev.Type.Name != "":
		return ev.User.Name + " " + ev.Type.Name
	case ev.User.Name != "":
		return ev.User.Name + " " + ev.Title
	default:
		return ev.Title
	}
}
