// Package holiday provides the holiday overlay for calendar cells.
package holiday

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"hrcal/internal/config"
	appLog "hrcal/internal/log"
	"hrcal/internal/model"
)

const dateLayout = "2006-01-02"

type entry struct {
	name string
	kind model.HolidayKind
	date time.Time
	rule *rrule.RRule
}

// Calendar holds the configured holidays.
type Calendar struct {
	entries []entry
}

// New parses holiday config entries in loc. Invalid entries are logged and
// skipped so one typo does not remove the whole overlay.
func New(cfgs []config.HolidayConfig, loc *time.Location) *Calendar {
	if loc == nil {
		loc = time.Local
	}
	c := &Calendar{}
	for _, hc := range cfgs {
		e, err := parseEntry(hc, loc)
		if err != nil {
			appLog.Error("holiday: skipping invalid entry", err, "name", hc.Name, "date", hc.Date)
			continue
		}
		c.entries = append(c.entries, e)
	}
	return c
}

func parseEntry(hc config.HolidayConfig, loc *time.Location) (entry, error) {
	d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(hc.Date), loc)
	if err != nil {
		return entry{}, err
	}
	e := entry{name: hc.Name, kind: parseKind(hc.Type), date: d}

	if hc.RRule != "" {
		opt, err := rrule.StrToROption(strings.TrimPrefix(hc.RRule, "RRULE:"))
		if err != nil {
			return entry{}, fmt.Errorf("holiday: parse rrule: %w", err)
		}
		opt.Dtstart = d
		r, err := rrule.NewRRule(*opt)
		if err != nil {
			return entry{}, fmt.Errorf("holiday: build rrule: %w", err)
		}
		e.rule = r
	}
	return e, nil
}

func parseKind(s string) model.HolidayKind {
	switch model.HolidayKind(strings.ToUpper(strings.TrimSpace(s))) {
	case model.HolidaySubstitute:
		return model.HolidaySubstitute
	case model.HolidayEtc:
		return model.HolidayEtc
	default:
		return model.HolidayPublic
	}
}

// Between returns the holidays falling inside rng (inclusive), recurring
// ones expanded, sorted by date.
func (c *Calendar) Between(rng model.DateRange) []model.Holiday {
	out := make([]model.Holiday, 0)
	for _, e := range c.entries {
		if e.rule == nil {
			if !e.date.Before(startOfDay(rng.Start)) && !e.date.After(rng.End) {
				out = append(out, e.holiday(e.date, false))
			}
			continue
		}
		for _, t := range e.rule.Between(startOfDay(rng.Start), rng.End, true) {
			out = append(out, e.holiday(t, true))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// LookupFunc indexes the holidays inside rng and returns a YYYYMMDD lookup.
// When two holidays share a day the first configured one wins.
func (c *Calendar) LookupFunc(rng model.DateRange) func(key string) (model.Holiday, bool) {
	index := make(map[string]model.Holiday)
	for _, h := range c.Between(rng) {
		if _, ok := index[h.Key]; !ok {
			index[h.Key] = h
		}
	}
	return func(key string) (model.Holiday, bool) {
		h, ok := index[key]
		return h, ok
	}
}

func (e entry) holiday(t time.Time, recurring bool) model.Holiday {
	return model.Holiday{
		Name:      e.name,
		Key:       model.DayKey(t),
		Date:      t,
		Kind:      e.kind,
		Recurring: recurring,
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
