package source

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"hrcal/internal/config"
)

var teamFeed = strings.Join([]string{
	"BEGIN:VCALENDAR",
	"VERSION:2.0",
	"PRODID:-//hrcal//test//EN",
	"BEGIN:VEVENT",
	"UID:trip-1",
	"DTSTAMP:20250101T000000Z",
	"SUMMARY:Busan trip",
	"CATEGORIES:BUSINESSTRIP",
	"DTSTART;VALUE=DATE:20250610",
	"DTEND;VALUE=DATE:20250613",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:sync",
	"DTSTAMP:20250101T000000Z",
	"SUMMARY:Weekly sync",
	"DTSTART:20250602T010000Z",
	"DTEND:20250602T020000Z",
	"RRULE:FREQ=WEEKLY;COUNT=6",
	"EXDATE:20250609T010000Z",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:sync",
	"DTSTAMP:20250101T000000Z",
	"RECURRENCE-ID:20250616T010000Z",
	"SUMMARY:Weekly sync (moved)",
	"DTSTART:20250617T030000Z",
	"DTEND:20250617T040000Z",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:old",
	"DTSTAMP:20250101T000000Z",
	"SUMMARY:Last year",
	"DTSTART:20240101T000000Z",
	"DTEND:20240101T010000Z",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"DTSTAMP:20250101T000000Z",
	"SUMMARY:No uid",
	"DTSTART:20250605T000000Z",
	"END:VEVENT",
	"END:VCALENDAR",
	"",
}, "\r\n")

func TestParseICS(t *testing.T) {
	parsed, err := parseICS([]byte(teamFeed))
	if err != nil {
		t.Fatalf("parseICS: %v", err)
	}
	if len(parsed) != 4 {
		t.Fatalf("parsed %d events; want 4 (the UID-less one is skipped)", len(parsed))
	}

	trip := parsed[0]
	if !trip.AllDay || trip.Category != "BUSINESSTRIP" {
		t.Fatalf("trip = %+v", trip)
	}
	if !trip.Start.Equal(time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("trip start = %v", trip.Start)
	}

	sync := parsed[1]
	if sync.RawRRule == "" || len(sync.ExDates) != 1 || sync.AllDay {
		t.Fatalf("sync = %+v", sync)
	}
	if parsed[2].Recurrence == nil {
		t.Fatal("override lost its RECURRENCE-ID")
	}

	if _, err := parseICS(nil); err == nil {
		t.Fatal("expected error for empty body")
	}
}

func TestICSEventsExpandsRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		io.WriteString(w, teamFeed)
	}))
	defer srv.Close()

	src := NewICS(config.SourceConfig{ID: "team", Name: "Team", Type: config.SourceICS, URL: srv.URL},
		NewFetcher(t.TempDir(), srv.Client()), time.UTC)

	events, err := src.Events(context.Background(), june2025())
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].StartDate.Before(events[j].StartDate) })

	var got []string
	for _, ev := range events {
		got = append(got, ev.StartDate.Format("01-02T15")+" "+ev.Title)
		if ev.User.ID != "team" || ev.User.Name != "Team" {
			t.Fatalf("user = %+v", ev.User)
		}
	}
	want := []string{
		"06-02T01 Weekly sync",
		"06-10T00 Busan trip",
		"06-17T03 Weekly sync (moved)",
		"06-23T01 Weekly sync",
		"06-30T01 Weekly sync",
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("events =\n%v\nwant\n%v", got, want)
	}

	trip := events[1]
	if !trip.EndDate.Equal(time.Date(2025, 6, 12, 23, 59, 59, 0, time.UTC)) {
		t.Fatalf("trip end = %v; want exclusive DTEND minus one second", trip.EndDate)
	}
	if trip.Type.ID != "BUSINESSTRIP" || trip.Type.Color != "#03bd9e" {
		t.Fatalf("trip type = %+v", trip.Type)
	}
	if events[0].Type.ID != icsTypeFallback {
		t.Fatalf("uncategorized type = %+v", events[0].Type)
	}

	seen := make(map[int]bool)
	for _, ev := range events {
		if seen[ev.ID] {
			t.Fatalf("duplicate id %d", ev.ID)
		}
		seen[ev.ID] = true
	}
}

func TestExpandKeepsOccurrenceRunningIntoRange(t *testing.T) {
	parsed := []parsedEvent{{
		UID:      "night",
		Summary:  "Night shift",
		Start:    time.Date(2025, 5, 31, 22, 0, 0, 0, time.UTC),
		End:      time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC),
		RawRRule: "FREQ=DAILY;COUNT=1",
	}}
	events := expand(parsed, config.SourceConfig{ID: "s"}, june2025(), time.UTC)
	if len(events) != 1 {
		t.Fatalf("events = %+v; want the occurrence spanning the range start", events)
	}
}
