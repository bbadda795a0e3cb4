package source

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"hrcal/internal/config"
	appLog "hrcal/internal/log"
	"hrcal/internal/model"
)

// maxOccurrencesPerEvent caps recurrence expansion of a single VEVENT.
const maxOccurrencesPerEvent = 2000

// icsTypeFallback is the calendar type given to feed events whose
// CATEGORIES do not name a known type.
const icsTypeFallback = "EVENT"

// parsedEvent is a VEVENT before recurrence expansion.
type parsedEvent struct {
	UID         string
	Summary     string
	Description string
	Category    string

	Start  time.Time
	End    time.Time
	AllDay bool

	RawRRule   string
	ExDates    []time.Time
	Recurrence *time.Time // RECURRENCE-ID of an overridden instance
}

// ICS reads a team calendar feed, e.g. an exported shared calendar of
// trainings and business trips.
type ICS struct {
	src     config.SourceConfig
	fetcher *Fetcher
	loc     *time.Location
}

func NewICS(sc config.SourceConfig, fetcher *Fetcher, loc *time.Location) *ICS {
	if loc == nil {
		loc = time.Local
	}
	return &ICS{src: sc, fetcher: fetcher, loc: loc}
}

func (s *ICS) ID() string { return s.src.ID }

func (s *ICS) Events(ctx context.Context, rng model.DateRange) ([]model.Event, error) {
	res, err := s.fetcher.Get(ctx, Request{Key: s.src.ID, URL: s.src.URL, Header: bearer(s.src.Token)})
	if err != nil {
		return nil, err
	}

	parsed, err := parseICS(res.Body)
	if err != nil {
		appLog.Error("ics parse failed", err, "id", s.src.ID, "url", redactURL(s.src.URL))
		return nil, err
	}

	events := expand(parsed, s.src, rng, s.loc)
	appLog.Info("source ics events", "id", s.src.ID, "vevents", len(parsed), "count", len(events), "from_cache", res.FromCache)
	return events, nil
}

func parseICS(body []byte) ([]parsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("source: empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	out := make([]parsedEvent, 0)
	for _, ve := range cal.Events() {
		pe, err := parseVEvent(ve)
		if err != nil {
			// Skip this event but keep the rest of the feed.
			appLog.Warn("ics vevent skipped", "err", err)
			continue
		}
		out = append(out, pe)
	}
	return out, nil
}

func parseVEvent(ve *ical.VEvent) (parsedEvent, error) {
	var out parsedEvent

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyCategories); p != nil {
		out.Category = strings.ToUpper(strings.TrimSpace(strings.Split(p.Value, ",")[0]))
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return out, err
	}
	end, err := ve.GetEndAt()
	if err != nil {
		// DTEND is optional; a missing one means a zero-length event.
		end = start
	}
	out.Start = start
	out.End = end

	if p := ve.GetProperty(ical.ComponentPropertyDtStart); p != nil {
		if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			out.AllDay = true
		}
		if !strings.Contains(p.Value, "T") {
			out.AllDay = true
		}
	}
	if out.AllDay {
		// Dates carry no zone; pin them to UTC midnight so EXDATE and
		// RECURRENCE-ID values compare equal.
		out.Start = floatingDate(out.Start, time.UTC)
		out.End = floatingDate(out.End, time.UTC)
	}
	zone := out.Start.Location()

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part, zone); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}
	if p := ve.GetProperty(ical.ComponentPropertyRecurrenceId); p != nil {
		if t, err := parseICSTime(p.Value, zone); err == nil {
			out.Recurrence = &t
		}
	}

	return out, nil
}

// parseICSTime handles the basic DATE / DATE-TIME / UTC forms used by
// EXDATE and RECURRENCE-ID. Values without a zone are read in zone.
func parseICSTime(v string, zone *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, zone)
	default:
		return time.ParseInLocation("20060102", v, zone)
	}
}

func floatingDate(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// expand turns parsed VEVENTs into events overlapping rng. Recurring
// events are expanded with their EXDATEs removed and RECURRENCE-ID
// overrides applied.
func expand(parsed []parsedEvent, src config.SourceConfig, rng model.DateRange, loc *time.Location) []model.Event {
	base := make([]parsedEvent, 0, len(parsed))
	overrides := make(map[string][]parsedEvent)
	for _, pe := range parsed {
		if pe.Recurrence != nil {
			overrides[pe.UID] = append(overrides[pe.UID], pe)
			continue
		}
		base = append(base, pe)
	}

	out := make([]model.Event, 0)
	for _, pe := range base {
		if pe.RawRRule == "" {
			if overlapsRange(pe.Start, pe.End, rng) {
				out = append(out, toEvent(pe, pe.Start, pe.End, src, loc))
			}
			continue
		}
		out = append(out, expandRecurring(pe, overrides[pe.UID], src, rng, loc)...)
	}
	return out
}

func expandRecurring(pe parsedEvent, overrides []parsedEvent, src config.SourceConfig, rng model.DateRange, loc *time.Location) []model.Event {
	r, err := rrule.StrToRRule(strings.TrimPrefix(pe.RawRRule, "RRULE:"))
	if err != nil {
		appLog.Error("ics: failed to parse RRULE", err, "uid", pe.UID, "rrule", pe.RawRRule)
		return nil
	}
	r.DTStart(pe.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range pe.ExDates {
		set.ExDate(ex.In(pe.Start.Location()))
	}

	dur := pe.End.Sub(pe.Start)
	// Widen the window by the duration so occurrences starting before the
	// range but still running inside it are kept.
	times := set.Between(rng.Start.In(pe.Start.Location()).Add(-dur), rng.End.In(pe.Start.Location()), true)
	if len(times) > maxOccurrencesPerEvent {
		appLog.Warn("ics: occurrences truncated", "uid", pe.UID, "cap", maxOccurrencesPerEvent)
		times = times[:maxOccurrencesPerEvent]
	}

	out := make([]model.Event, 0, len(times))
	for _, occStart := range times {
		inst, start, end := pe, occStart, occStart.Add(dur)
		for _, ov := range overrides {
			if ov.Recurrence.Equal(occStart) {
				inst, start, end = ov, ov.Start, ov.End
				break
			}
		}
		if !overlapsRange(start, end, rng) {
			continue
		}
		out = append(out, toEvent(inst, start, end, src, loc, occStart.Format(time.RFC3339)))
	}
	return out
}

func overlapsRange(start, end time.Time, rng model.DateRange) bool {
	return !end.Before(rng.Start) && !start.After(rng.End)
}

// toEvent converts one occurrence. All-day DTEND is exclusive, so the
// inclusive end becomes the last second of the previous day.
func toEvent(pe parsedEvent, start, end time.Time, src config.SourceConfig, loc *time.Location, instance ...string) model.Event {
	if pe.AllDay {
		start = floatingDate(start, loc)
		end = floatingDate(end, loc)
		if end.After(start) {
			end = end.Add(-time.Second)
		}
	}

	category := pe.Category
	if category == "" {
		category = icsTypeFallback
	}
	typ, _ := model.LookupType(category)

	key := append([]string{src.ID, pe.UID}, instance...)
	return model.Event{
		ID:          syntheticID(key...),
		StartDate:   start.In(loc),
		EndDate:     end.In(loc),
		Title:       pe.Summary,
		Description: pe.Description,
		Type:        typ,
		User:        model.User{ID: src.ID, Name: src.Name},
	}
}
