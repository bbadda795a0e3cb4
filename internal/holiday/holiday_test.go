package holiday

import (
	"testing"
	"time"

	"hrcal/internal/config"
	"hrcal/internal/model"
)

func rangeOf(y1 int, m1 time.Month, d1 int, y2 int, m2 time.Month, d2 int) model.DateRange {
	return model.DateRange{
		Start: time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(y2, m2, d2, 23, 59, 59, 0, time.UTC),
	}
}

func TestBetweenExpandsRecurring(t *testing.T) {
	cal := New([]config.HolidayConfig{
		{Name: "신정", Date: "2024-01-01", Type: "PUBLIC", RRule: "FREQ=YEARLY"},
		{Name: "대체공휴일", Date: "2025-03-03", Type: "substitute"},
		{Name: "창립기념일", Date: "2025-03-15", Type: "ETC"},
		{Name: "broken", Date: "not-a-date"},
		{Name: "bad rule", Date: "2025-03-01", RRule: "FREQ=SOMETIMES"},
	}, time.UTC)

	got := cal.Between(rangeOf(2024, 12, 29, 2025, 3, 31))
	if len(got) != 3 {
		t.Fatalf("Between = %+v; want 3 holidays", got)
	}
	if got[0].Key != "20250101" || !got[0].Recurring || got[0].Kind != model.HolidayPublic {
		t.Fatalf("first = %+v", got[0])
	}
	if got[1].Key != "20250303" || got[1].Kind != model.HolidaySubstitute || got[1].Recurring {
		t.Fatalf("second = %+v", got[1])
	}
	if got[2].Kind != model.HolidayEtc || got[2].Color() != "#6767ff" {
		t.Fatalf("third = %+v", got[2])
	}
}

func TestLookupFunc(t *testing.T) {
	cal := New([]config.HolidayConfig{
		{Name: "현충일", Date: "2025-06-06", Type: "PUBLIC"},
		{Name: "duplicate", Date: "2025-06-06", Type: "ETC"},
	}, time.UTC)

	lookup := cal.LookupFunc(rangeOf(2025, 6, 1, 2025, 7, 5))
	h, ok := lookup("20250606")
	if !ok || h.Name != "현충일" {
		t.Fatalf("lookup(20250606) = %+v, %v", h, ok)
	}
	if _, ok := lookup("20250607"); ok {
		t.Fatal("unexpected holiday on 20250607")
	}

	outside := cal.LookupFunc(rangeOf(2025, 7, 1, 2025, 7, 31))
	if _, ok := outside("20250606"); ok {
		t.Fatal("holiday outside the indexed range must not be found")
	}
}
