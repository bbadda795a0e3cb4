package web

import (
	"net/http"
	"strconv"
	"time"

	"hrcal/internal/layout"
	appLog "hrcal/internal/log"
	"hrcal/internal/model"
)

type eventsResponse struct {
	View      model.View      `json:"view"`
	Range     model.DateRange `json:"range"`
	Events    []model.Event   `json:"events"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// handleEvents returns the snapshot events visible in a view.
//
// GET /api/events?date=2025-06-15&view=week&users=u1,u2&types=DAYOFF
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	selected, err := s.parseDate(q.Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}

	f := layout.Filter{
		View:      model.ParseView(q.Get("view")),
		Selected:  selected,
		WeekStart: s.cfg.WeekStartDay(),
		UserIDs:   splitList(r, "users"),
		TypeIDs:   splitList(r, "types"),
	}
	snap := s.store.Snapshot()

	writeJSON(w, http.StatusOK, eventsResponse{
		View:      f.View,
		Range:     layout.VisibleRange(f.View, f.Selected, f.WeekStart),
		Events:    layout.FilterEvents(snap.Events, f),
		UpdatedAt: snap.UpdatedAt,
	})
}

// buildMonth lays out the month around selected from the current snapshot.
func (s *Server) buildMonth(r *http.Request, selected time.Time) layout.Month {
	weekStart := s.cfg.WeekStartDay()
	grid := layout.GridRange(selected, weekStart)

	events := layout.FilterEvents(s.store.Snapshot().Events, layout.Filter{
		View:      model.ViewMonth,
		Selected:  selected,
		WeekStart: weekStart,
		UserIDs:   splitList(r, "users"),
		TypeIDs:   splitList(r, "types"),
		Range:     &grid,
	})

	opts := layout.MonthOptions{
		WeekStart:  weekStart,
		MaxVisible: s.cfg.MaxVisibleEvents,
	}
	if s.holidays != nil {
		opts.Holidays = s.holidays.LookupFunc(grid)
	}
	return layout.BuildMonth(events, selected, opts)
}

// handleMonth returns the month layout: grid cells, lanes and overflow.
//
// GET /api/month?date=2025-06-01&users=&types=
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	selected, err := s.parseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}
	writeJSON(w, http.StatusOK, s.buildMonth(r, selected))
}

type yearResponse struct {
	Year       int             `json:"year"`
	Indicators map[string]int  `json:"indicators"`
	Holidays   []model.Holiday `json:"holidays"`
}

// handleYear returns per-day event counts for the year view.
//
// GET /api/year?year=2025
func (s *Server) handleYear(w http.ResponseWriter, r *http.Request) {
	year := s.now().In(s.loc).Year()
	if v := r.URL.Query().Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 9999 {
			writeError(w, http.StatusBadRequest, "invalid year")
			return
		}
		year = n
	}

	resp := yearResponse{
		Year:       year,
		Indicators: layout.YearIndicators(s.store.Snapshot().Events, year),
		Holidays:   []model.Holiday{},
	}
	if s.holidays != nil {
		resp.Holidays = s.holidays.Between(model.DateRange{
			Start: time.Date(year, time.January, 1, 0, 0, 0, 0, s.loc),
			End:   time.Date(year, time.December, 31, 23, 59, 59, 0, s.loc),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTypes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, model.CalendarTypes())
}

// handleCalendarPage renders the month page used by the browser and by the
// PNG capture.
func (s *Server) handleCalendarPage(w http.ResponseWriter, r *http.Request) {
	selected, err := s.parseDate(r.URL.Query().Get("date"))
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	page := newMonthPage(s.buildMonth(r, selected), s.store.Snapshot().UpdatedAt, s.loc)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := monthTemplate.Execute(w, page); err != nil {
		appLog.Error("month page render failed", err)
	}
}
