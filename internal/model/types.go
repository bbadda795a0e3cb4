package model

// calendarTypes is the catalog of calendar types known to the HR backend.
// Hours is the span a timed type occupies starting from the chosen hour.
var calendarTypes = []EventType{
	{ID: "DAYOFF", Name: "연차", Kind: KindVacation, IsDate: true, Color: "#9e5fff"},
	{ID: "MORNINGOFF", Name: "오전반차", Kind: KindVacation, Hours: 4, Color: "#00a9ff"},
	{ID: "AFTERNOONOFF", Name: "오후반차", Kind: KindVacation, Hours: 4, Color: "#ff5583"},
	{ID: "ONETIMEOFF", Name: "1시간 휴가", Kind: KindVacation, Hours: 1, Color: "#ffbb3b"},
	{ID: "TWOTIMEOFF", Name: "2시간 휴가", Kind: KindVacation, Hours: 2, Color: "#ffbb3b"},
	{ID: "THREETIMEOFF", Name: "3시간 휴가", Kind: KindVacation, Hours: 3, Color: "#ffbb3b"},
	{ID: "FIVETIMEOFF", Name: "5시간 휴가", Kind: KindVacation, Hours: 5, Color: "#ffbb3b"},
	{ID: "SIXTIMEOFF", Name: "6시간 휴가", Kind: KindVacation, Hours: 6, Color: "#ffbb3b"},
	{ID: "SEVENTIMEOFF", Name: "7시간 휴가", Kind: KindVacation, Hours: 7, Color: "#ffbb3b"},
	{ID: "HALFTIMEOFF", Name: "30분 휴가", Kind: KindVacation, Color: "#ffbb3b"},
	{ID: "BUSINESSTRIP", Name: "출장", Kind: KindSchedule, IsDate: true, Color: "#03bd9e"},
	{ID: "EDUCATION", Name: "교육", Kind: KindSchedule, IsDate: true, Color: "#ff6450"},
	{ID: "BIRTHDAY", Name: "생일", Kind: KindSchedule, IsDate: true, Color: "#7bb65a"},
	{ID: "BIRTHPARTY", Name: "생일파티", Kind: KindSchedule, IsDate: true, Color: "#7bb65a"},
	{ID: "HEALTHCHECKHALF", Name: "건강검진(반차)", Kind: KindVacation, Hours: 4, Color: "#707bf5"},
	{ID: "DEFENSE", Name: "민방위", Kind: KindVacation, IsDate: true, Color: "#a06549"},
	{ID: "DEFENSEHALF", Name: "민방위(반차)", Kind: KindVacation, Hours: 4, Color: "#a06549"},
}

const unknownTypeColor = "#9ca3af"

// LookupType returns the catalog entry for id. Unknown ids produce a gray
// all-day schedule type so that foreign data still renders.
func LookupType(id string) (EventType, bool) {
	for _, t := range calendarTypes {
		if t.ID == id {
			return t, true
		}
	}
	return EventType{ID: id, Name: id, Kind: KindSchedule, IsDate: true, Color: unknownTypeColor}, false
}

// CalendarTypes returns a copy of the catalog.
func CalendarTypes() []EventType {
	out := make([]EventType, len(calendarTypes))
	copy(out, calendarTypes)
	return out
}
