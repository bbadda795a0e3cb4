package web

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"hrcal/internal/config"
	"hrcal/internal/holiday"
	"hrcal/internal/model"
	"hrcal/internal/refresh"
	"hrcal/internal/schedule"
)

type fakeStore struct {
	snap      refresh.Snapshot
	refreshes atomic.Int32
}

func (f *fakeStore) Snapshot() refresh.Snapshot { return f.snap }

func (f *fakeStore) RefreshNow(context.Context) error {
	f.refreshes.Add(1)
	return nil
}

type fakeUpdater struct {
	got []schedule.UpdateRequest
	err error
}

func (f *fakeUpdater) Apply(_ context.Context, req schedule.UpdateRequest) error {
	f.got = append(f.got, req)
	return f.err
}

func day(d int) time.Time { return time.Date(2025, 6, d, 0, 0, 0, 0, time.UTC) }

func testEvents() []model.Event {
	dayoff, _ := model.LookupType("DAYOFF")
	trip, _ := model.LookupType("BUSINESSTRIP")
	return []model.Event{
		{ID: 1, CalendarID: 1, StartDate: day(2), EndDate: day(4).Add(23 * time.Hour), Title: "휴가", Type: dayoff,
			User: model.User{ID: "u1", Name: "김철수"}},
		{ID: 2, CalendarID: 2, StartDate: day(3), EndDate: day(3), Title: "부산 출장", Type: trip,
			User: model.User{ID: "u2", Name: "이영희"}},
		{ID: 3, StartDate: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), EndDate: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
			Title: "padding day", Type: trip, User: model.User{ID: "u2", Name: "이영희"}},
	}
}

func newTestServer(t *testing.T, opts ...Option) (*Server, *fakeStore) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	cfg.Capture.OutputPath = filepath.Join(t.TempDir(), "preview.png")

	store := &fakeStore{snap: refresh.Snapshot{Events: testEvents(), UpdatedAt: day(1)}}
	holidays := holiday.New([]config.HolidayConfig{{Name: "현충일", Date: "2025-06-06", Type: "PUBLIC"}}, time.UTC)

	opts = append([]Option{WithClock(func() time.Time { return day(15) })}, opts...)
	return NewServer(cfg, store, holidays, opts...), store
}

func do(t *testing.T, h http.Handler, method, target, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, vs := range header {
		req.Header[k] = vs
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
}

func TestBasicAuth(t *testing.T) {
	s, _ := newTestServer(t)
	s.cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "pw"}
	h := s.Handler()

	if rec := do(t, h, http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("/health = %d %q", rec.Code, rec.Body.String())
	}
	if rec := do(t, h, http.MethodGet, "/api/month", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("/api/month without auth = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/month", nil)
	req.SetBasicAuth("admin", "pw")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("/api/month with auth = %d", rec.Code)
	}
}

func TestEventsEndpointFilters(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	var resp eventsResponse
	decode(t, do(t, h, http.MethodGet, "/api/events?date=2025-06-15&users=u2", "", nil), &resp)
	if resp.View != model.ViewMonth || len(resp.Events) != 1 || resp.Events[0].ID != 2 {
		t.Fatalf("events = %+v", resp)
	}

	decode(t, do(t, h, http.MethodGet, "/api/events?date=2025-06-03&view=day", "", nil), &resp)
	if len(resp.Events) != 2 {
		t.Fatalf("day view events = %+v; want 2", resp.Events)
	}

	decode(t, do(t, h, http.MethodGet, "/api/events?date=2025-06-15&users=&types=", "", nil), &resp)
	if len(resp.Events) != 2 {
		t.Fatalf("empty filters = %+v; want all month events", resp.Events)
	}

	if rec := do(t, h, http.MethodGet, "/api/events?date=June", "", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date = %d", rec.Code)
	}
}

func TestMonthEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	var m struct {
		Year  int
		Cells []struct {
			Key     string `json:"key"`
			Holiday *struct {
				Name string `json:"name"`
			} `json:"holiday"`
			Events []struct {
				ID       int  `json:"id"`
				Position int  `json:"position"`
				MultiDay bool `json:"multi_day"`
			} `json:"events"`
		} `json:"cells"`
		Positions map[string]int `json:"positions"`
	}
	decode(t, do(t, s.Handler(), http.MethodGet, "/api/month?date=2025-06-20", "", nil), &m)

	if len(m.Cells) != 35 {
		t.Fatalf("cells = %d; want 35 for June 2025", len(m.Cells))
	}
	if m.Positions["1"] != 0 {
		t.Fatalf("positions = %v; want event 1 on lane 0", m.Positions)
	}

	byKey := map[string]int{}
	for i, c := range m.Cells {
		byKey[c.Key] = i
	}
	june3 := m.Cells[byKey["20250603"]]
	if len(june3.Events) != 2 || june3.Events[0].ID != 1 || june3.Events[1].ID != 2 || june3.Events[1].Position != 1 {
		t.Fatalf("June 3 = %+v", june3.Events)
	}
	if h := m.Cells[byKey["20250606"]].Holiday; h == nil || h.Name != "현충일" {
		t.Fatalf("June 6 holiday = %+v", h)
	}
	if evs := m.Cells[byKey["20250701"]].Events; len(evs) != 1 || evs[0].ID != 3 {
		t.Fatalf("padding cell July 1 = %+v", evs)
	}
}

func TestYearEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	var resp yearResponse
	decode(t, do(t, h, http.MethodGet, "/api/year?year=2025", "", nil), &resp)
	if resp.Indicators["20250602"] != 1 || resp.Indicators["20250603"] != 1 || len(resp.Holidays) != 1 {
		t.Fatalf("year = %+v", resp)
	}
	if rec := do(t, h, http.MethodGet, "/api/year?year=abc", "", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad year = %d", rec.Code)
	}
}

func TestSelectionFlow(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()
	perms := http.Header{permissionsHeader: []string{"SCHEDULE:READ, SCHEDULE:WRITE"}}

	if rec := do(t, h, http.MethodPost, "/api/selection/start", `{"date":"2025-06-10"}`, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("start without permission = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/selection/start", `{"date":"tomorrow"}`, perms); rec.Code != http.StatusBadRequest {
		t.Fatalf("start with bad date = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/selection/start", `{"date":"2025-06-10"}`, perms); rec.Code != http.StatusOK {
		t.Fatalf("start = %d", rec.Code)
	}
	do(t, h, http.MethodPost, "/api/selection/update", `{"date":"2025-06-12"}`, nil)
	do(t, h, http.MethodPost, "/api/selection/update", `{"date":"2025-06-07"}`, nil)

	var end selectionEndResponse
	decode(t, do(t, h, http.MethodPost, "/api/selection/end", "", nil), &end)
	if end.Range == nil || !end.Range.Start.Equal(day(7)) || !end.Range.End.Equal(day(10)) {
		t.Fatalf("end = %+v; want 06-07..06-10", end.Range)
	}

	decode(t, do(t, h, http.MethodPost, "/api/selection/end", "", nil), &end)
	if end.Range != nil {
		t.Fatalf("second end = %+v; want null range", end.Range)
	}
	if s.lastRange == nil || !s.lastRange.End.Equal(day(10)) {
		t.Fatalf("lastRange = %+v", s.lastRange)
	}
}

func TestMoveWithoutUpdater(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/events/1/move", `{"start":"2025-06-09","end":"2025-06-11T23:59:59"}`, nil)
	var resp struct {
		Request struct {
			Kind model.Kind                   `json:"kind"`
			Path string                       `json:"path"`
			Body schedule.VacationUsageUpdate `json:"body"`
		} `json:"request"`
		Applied bool `json:"applied"`
	}
	decode(t, rec, &resp)
	if resp.Applied || resp.Request.Kind != model.KindVacation || resp.Request.Path != "/vacation-usages/1" {
		t.Fatalf("move = %+v", resp)
	}
	if resp.Request.Body.StartDate != "2025-06-09T00:00:00" || resp.Request.Body.EndDate != "2025-06-11T23:59:59" {
		t.Fatalf("move body = %+v", resp.Request.Body)
	}

	if rec := do(t, h, http.MethodPost, "/api/events/99/move", `{"start":"2025-06-09","end":"2025-06-09"}`, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown event = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/events/x/move", `{}`, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id = %d", rec.Code)
	}
}

func TestMoveWithUpdater(t *testing.T) {
	up := &fakeUpdater{}
	s, store := newTestServer(t, WithUpdater(up))
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/events/2/move", `{"start":"2025-06-05","end":"2025-06-05T23:59:59"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("move = %d %s", rec.Code, rec.Body.String())
	}
	if len(up.got) != 1 || up.got[0].Path != "/schedule/2" || store.refreshes.Load() != 1 {
		t.Fatalf("updater got %+v, refreshes %d", up.got, store.refreshes.Load())
	}

	up.err = errors.New("locked")
	if rec := do(t, h, http.MethodPost, "/api/events/2/move", `{"start":"2025-06-05","end":"2025-06-05"}`, nil); rec.Code != http.StatusBadGateway {
		t.Fatalf("rejected move = %d", rec.Code)
	}
}

func TestMoveSharedCalendarID(t *testing.T) {
	up := &fakeUpdater{}
	s, store := newTestServer(t, WithUpdater(up))
	dayoff, _ := model.LookupType("DAYOFF")
	trip, _ := model.LookupType("BUSINESSTRIP")
	vacationID := model.EventKey(model.KindVacation, 7)
	tripID := model.EventKey(model.KindSchedule, 7)
	store.snap.Events = []model.Event{
		{ID: vacationID, CalendarID: 7, StartDate: day(9), EndDate: day(11), Type: dayoff},
		{ID: tripID, CalendarID: 7, StartDate: day(10), EndDate: day(12), Type: trip},
	}
	h := s.Handler()

	target := "/api/events/" + strconv.Itoa(tripID) + "/move"
	if rec := do(t, h, http.MethodPost, target, `{"start":"2025-06-16","end":"2025-06-18"}`, nil); rec.Code != http.StatusOK {
		t.Fatalf("move = %d %s", rec.Code, rec.Body.String())
	}
	target = "/api/events/" + strconv.Itoa(vacationID) + "/move"
	if rec := do(t, h, http.MethodPost, target, `{"start":"2025-06-16","end":"2025-06-16"}`, nil); rec.Code != http.StatusOK {
		t.Fatalf("move = %d %s", rec.Code, rec.Body.String())
	}
	if len(up.got) != 2 || up.got[0].Path != "/schedule/7" || up.got[1].Path != "/vacation-usages/7" {
		t.Fatalf("updater got %+v", up.got)
	}
}

func TestMoveReadOnlyEvent(t *testing.T) {
	up := &fakeUpdater{}
	s, _ := newTestServer(t, WithUpdater(up))
	rec := do(t, s.Handler(), http.MethodPost, "/api/events/3/move", `{"start":"2025-07-02","end":"2025-07-02"}`, nil)
	if rec.Code != http.StatusConflict || len(up.got) != 0 {
		t.Fatalf("read-only move = %d, updates %d", rec.Code, len(up.got))
	}
}

func TestFormUpdate(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	body := `{"event_id":5,"user_id":"u1","calendar_type":"MORNINGOFF","start_date":"2025-06-10","end_date":"2025-06-10","start_hour":"9","start_minute":"0"}`
	var resp updateResponse
	decode(t, do(t, h, http.MethodPost, "/api/events/update", body, nil), &resp)
	if resp.Request.Path != "/vacation-usages/5" {
		t.Fatalf("form update = %+v", resp.Request)
	}

	bad := `{"event_id":5,"calendar_type":"NAPTIME","start_date":"2025-06-10","end_date":"2025-06-10"}`
	if rec := do(t, h, http.MethodPost, "/api/events/update", bad, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown type = %d", rec.Code)
	}
}

func TestCalendarPage(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s.Handler(), http.MethodGet, "/calendar?date=2025-06-01", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("/calendar = %d", rec.Code)
	}
	page := rec.Body.String()
	for _, want := range []string{`data-ready="true"`, "2025년 6월", "김철수 연차", "현충일", "<th>일</th>"} {
		if !strings.Contains(page, want) {
			t.Fatalf("page is missing %q", want)
		}
	}
}

func TestPreview(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	if rec := do(t, h, http.MethodGet, "/preview.png", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing preview = %d", rec.Code)
	}
	if err := os.WriteFile(s.cfg.Capture.OutputPath, []byte("\x89PNG"), 0o644); err != nil {
		t.Fatal(err)
	}
	if rec := do(t, h, http.MethodGet, "/preview.png", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("preview = %d", rec.Code)
	}
}

func TestRunShutsDownOnCancel(t *testing.T) {
	s, _ := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/health = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewMonthPageWeekdays(t *testing.T) {
	s, _ := newTestServer(t)
	s.cfg.WeekStart = "monday"
	req := httptest.NewRequest(http.MethodGet, "/calendar", nil)
	page := newMonthPage(s.buildMonth(req, day(15)), time.Time{}, time.UTC)

	if page.Weekdays[0] != "월" || page.Weekdays[6] != "일" {
		t.Fatalf("weekdays = %v", page.Weekdays)
	}
	if page.UpdatedAt != "" {
		t.Fatalf("UpdatedAt = %q; want empty for zero time", page.UpdatedAt)
	}
	for _, w := range page.Weeks {
		if len(w) != 7 {
			t.Fatalf("week has %d cells", len(w))
		}
	}
}
