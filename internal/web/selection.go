package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"hrcal/internal/dragselect"
	appLog "hrcal/internal/log"
	"hrcal/internal/model"
	"hrcal/internal/schedule"
)

// permissionsHeader carries the caller's permissions as a comma list.
const permissionsHeader = "X-Permissions"

type dateBody struct {
	Date string `json:"date"`
}

type selectionEndResponse struct {
	Range *model.DateRange `json:"range"`
}

func (s *Server) readDate(r *http.Request) (time.Time, error) {
	var body dateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return time.Time{}, err
	}
	if body.Date == "" {
		return time.Time{}, errors.New("date is required")
	}
	return time.ParseInLocation("2006-01-02", body.Date, s.loc)
}

func grantedPermissions(r *http.Request) []string {
	out := []string{}
	for _, p := range strings.Split(r.Header.Get(permissionsHeader), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// selectionCompleted runs with dragMu held, from EndSelection.
func (s *Server) selectionCompleted(rng model.DateRange) {
	s.lastRange = &rng
	appLog.Info("selection completed", "start", rng.Start.Format("2006-01-02"), "end", rng.End.Format("2006-01-02"))
}

// handleSelectionStart begins a drag selection on a day cell.
//
// POST /api/selection/start {"date":"2025-06-10"}
func (s *Server) handleSelectionStart(w http.ResponseWriter, r *http.Request) {
	date, err := s.readDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}

	allowed := dragselect.HasAnyPermission(grantedPermissions(r), dragselect.CreatePermissions)

	s.dragMu.Lock()
	started := s.drag.StartSelectionWith(date, func() bool { return allowed })
	state := s.drag.Snapshot()
	s.dragMu.Unlock()

	if !started {
		writeError(w, http.StatusForbidden, "missing permission to create events")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleSelectionUpdate moves the selection end while dragging.
func (s *Server) handleSelectionUpdate(w http.ResponseWriter, r *http.Request) {
	date, err := s.readDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}

	s.dragMu.Lock()
	s.drag.UpdateSelection(date)
	state := s.drag.Snapshot()
	s.dragMu.Unlock()

	writeJSON(w, http.StatusOK, state)
}

// handleSelectionEnd finishes the gesture and returns the normalized range,
// or null when no selection was in progress.
func (s *Server) handleSelectionEnd(w http.ResponseWriter, _ *http.Request) {
	s.dragMu.Lock()
	rng, ok := s.drag.EndSelection()
	s.dragMu.Unlock()

	resp := selectionEndResponse{}
	if ok {
		resp.Range = &rng
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSelectionState(w http.ResponseWriter, _ *http.Request) {
	s.dragMu.Lock()
	state := s.drag.Snapshot()
	last := s.lastRange
	s.dragMu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"state": state,
		"last":  last,
	})
}

type moveBody struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type updateResponse struct {
	Request schedule.UpdateRequest `json:"request"`
	Applied bool                   `json:"applied"`
}

var moveLayouts = []string{"2006-01-02T15:04:05", "2006-01-02"}

func (s *Server) parseMoveTime(v string) (time.Time, error) {
	for _, layout := range moveLayouts {
		if t, err := time.ParseInLocation(layout, v, s.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognized time")
}

// handleMove applies a drag & drop of an existing event to new dates. {id}
// is the snapshot-wide Event.ID, which already encodes the record kind.
//
// POST /api/events/{id}/move {"start":"2025-06-12T00:00:00","end":"2025-06-13T23:59:59"}
func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	var body moveBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	start, err := s.parseMoveTime(body.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start")
		return
	}
	end, err := s.parseMoveTime(body.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end")
		return
	}

	ev, ok := s.findEvent(id)
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	if ev.CalendarID == 0 {
		writeError(w, http.StatusConflict, "event is read-only")
		return
	}
	ev.StartDate, ev.EndDate = start, end

	s.submit(w, r, schedule.UpdateFromDrag(ev))
}

// handleFormUpdate applies an edit submitted through the event form.
//
// POST /api/events/update (body: schedule.FormParams)
func (s *Server) handleFormUpdate(w http.ResponseWriter, r *http.Request) {
	var p schedule.FormParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	req, err := schedule.UpdateFromForm(p, s.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.submit(w, r, req)
}

// submit forwards req to the backend when an updater is configured and
// refreshes the snapshot after a successful update.
func (s *Server) submit(w http.ResponseWriter, r *http.Request, req schedule.UpdateRequest) {
	if s.updater == nil {
		writeJSON(w, http.StatusOK, updateResponse{Request: req})
		return
	}

	if err := s.updater.Apply(r.Context(), req); err != nil {
		appLog.Error("event update failed", err, "method", req.Method, "path", req.Path)
		writeError(w, http.StatusBadGateway, "backend rejected the update")
		return
	}
	if err := s.store.RefreshNow(r.Context()); err != nil {
		// The update went through; the next scheduled refresh will catch up.
		appLog.Warn("refresh after update failed", "err", err)
	}
	writeJSON(w, http.StatusOK, updateResponse{Request: req, Applied: true})
}

func (s *Server) findEvent(id int) (model.Event, bool) {
	for _, ev := range s.store.Snapshot().Events {
		if ev.ID == id {
			return ev, true
		}
	}
	return model.Event{}, false
}
