package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hrcal/internal/config"
	appLog "hrcal/internal/log"
	"hrcal/internal/model"
	"hrcal/internal/schedule"
)

// ErrAPI is wrapped by every error the HR API reports inside its envelope.
var ErrAPI = errors.New("source: hr api error")

// envelope is the response shape of every HR API endpoint.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Count   int             `json:"count"`
	Data    json.RawMessage `json:"data"`
}

// periodRow is one row of GET /calendar/period. The postgres source scans
// the same columns.
type periodRow struct {
	CalendarID   int    `json:"calendar_id"`
	UserID       string `json:"user_id"`
	UserName     string `json:"user_name"`
	CalendarName string `json:"calendar_name"`
	CalendarType string `json:"calendar_type"`
	CalendarDesc string `json:"calendar_desc"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	DomainType   string `json:"domain_type"`
	VacationType string `json:"vacation_type"`
}

// API reads events from the HR backend.
type API struct {
	id      string
	baseURL string
	token   string
	fetcher *Fetcher
	client  *http.Client
	loc     *time.Location
}

// NewAPI returns an HR API source. client is used for updates; nil selects
// a 15s timeout default.
func NewAPI(sc config.SourceConfig, fetcher *Fetcher, client *http.Client, loc *time.Location) *API {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if loc == nil {
		loc = time.Local
	}
	return &API{
		id:      sc.ID,
		baseURL: strings.TrimRight(sc.URL, "/"),
		token:   sc.Token,
		fetcher: fetcher,
		client:  client,
		loc:     loc,
	}
}

func (a *API) ID() string { return a.id }

// Events calls GET /calendar/period for the days covered by rng.
func (a *API) Events(ctx context.Context, rng model.DateRange) ([]model.Event, error) {
	q := url.Values{}
	q.Set("startDate", rng.Start.In(a.loc).Format("2006-01-02"))
	q.Set("endDate", rng.End.In(a.loc).Format("2006-01-02"))

	res, err := a.fetcher.Get(ctx, Request{
		Key:    a.id,
		URL:    a.baseURL + "/calendar/period?" + q.Encode(),
		Header: bearer(a.token),
	})
	if err != nil {
		return nil, err
	}

	var rows []periodRow
	if err := decodeEnvelope(res.Body, &rows); err != nil {
		return nil, err
	}

	events := make([]model.Event, 0, len(rows))
	for _, r := range rows {
		ev, err := r.toEvent(a.loc)
		if err != nil {
			appLog.Warn("source api: skipping row with bad dates", "id", a.id, "calendar_id", r.CalendarID, "err", err)
			continue
		}
		events = append(events, ev)
	}
	appLog.Info("source api events", "id", a.id, "count", len(events), "from_cache", res.FromCache)
	return events, nil
}

// Apply sends a normalized update request to the backend.
func (a *API) Apply(ctx context.Context, req schedule.UpdateRequest) error {
	body, err := json.Marshal(req.Body)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, a.baseURL+req.Path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, vs := range bearer(a.token) {
		httpReq.Header[k] = vs
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%w: %s %s: status %s", ErrAPI, req.Method, req.Path, resp.Status)
	}
	return decodeEnvelope(data, nil)
}

func decodeEnvelope(body []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("source: decode envelope: %w", err)
	}
	if env.Code != http.StatusOK {
		return fmt.Errorf("%w: code %d: %s", ErrAPI, env.Code, env.Message)
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("source: decode data: %w", err)
	}
	return nil
}

var rowLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseRowTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range rowLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

func (r periodRow) toEvent(loc *time.Location) (model.Event, error) {
	start, err := parseRowTime(r.StartDate, loc)
	if err != nil {
		return model.Event{}, err
	}
	end, err := parseRowTime(r.EndDate, loc)
	if err != nil {
		return model.Event{}, err
	}
	return r.event(start, end), nil
}

func (r periodRow) event(start, end time.Time) model.Event {
	typ, _ := model.LookupType(r.CalendarType)
	switch model.Kind(strings.ToLower(r.DomainType)) {
	case model.KindVacation:
		typ.Kind = model.KindVacation
	case model.KindSchedule:
		typ.Kind = model.KindSchedule
	}

	return model.Event{
		ID:           model.EventKey(typ.Kind, r.CalendarID),
		CalendarID:   r.CalendarID,
		StartDate:    start,
		EndDate:      end,
		Title:        r.CalendarName,
		Description:  r.CalendarDesc,
		Type:         typ,
		User:         model.User{ID: r.UserID, Name: r.UserName},
		VacationType: r.VacationType,
	}
}
