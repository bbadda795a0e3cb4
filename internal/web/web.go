package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"hrcal/internal/config"
	"hrcal/internal/dragselect"
	"hrcal/internal/holiday"
	appLog "hrcal/internal/log"
	"hrcal/internal/model"
	"hrcal/internal/refresh"
	"hrcal/internal/schedule"
)

// Store is the snapshot the server renders from. *refresh.Refresher
// implements it.
type Store interface {
	Snapshot() refresh.Snapshot
	RefreshNow(ctx context.Context) error
}

// Updater sends a normalized update to the HR backend. *source.API
// implements it.
type Updater interface {
	Apply(ctx context.Context, req schedule.UpdateRequest) error
}

// Server provides the calendar API and the server-rendered month page.
type Server struct {
	cfg      *config.Config
	loc      *time.Location
	store    Store
	holidays *holiday.Calendar
	updater  Updater
	mux      *http.ServeMux
	now      func() time.Time

	// dragMu guards the selection machine and lastRange.
	dragMu    sync.Mutex
	drag      *dragselect.Machine
	lastRange *model.DateRange
}

// Option configures a Server.
type Option func(*Server)

// WithUpdater enables forwarding of move and form updates to the backend.
func WithUpdater(u Updater) Option {
	return func(s *Server) { s.updater = u }
}

// WithClock replaces time.Now, which picks the default date.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer constructs a new Server. holidays may be nil.
func NewServer(cfg *config.Config, store Store, holidays *holiday.Calendar, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		loc:      cfg.Location(),
		store:    store,
		holidays: holidays,
		mux:      http.NewServeMux(),
		now:      time.Now,
	}
	s.drag = dragselect.New(s.selectionCompleted)
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials disable auth instead of locking everyone out.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="hrcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Run serves on ln until ctx is canceled, then shuts down gracefully. The
// caller binds ln so the port is open before anything else (e.g. capture)
// requests pages.
func (s *Server) Run(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/types", s.handleTypes)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/month", s.handleMonth)
	s.mux.HandleFunc("GET /api/year", s.handleYear)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)

	s.mux.HandleFunc("POST /api/selection/start", s.handleSelectionStart)
	s.mux.HandleFunc("POST /api/selection/update", s.handleSelectionUpdate)
	s.mux.HandleFunc("POST /api/selection/end", s.handleSelectionEnd)
	s.mux.HandleFunc("GET /api/selection", s.handleSelectionState)

	s.mux.HandleFunc("POST /api/events/{id}/move", s.handleMove)
	s.mux.HandleFunc("POST /api/events/update", s.handleFormUpdate)

	s.mux.HandleFunc("GET /calendar", s.handleCalendarPage)
	s.mux.HandleFunc("GET /preview.png", s.handlePreview)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handlePreview serves the last captured PNG from disk.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	// ServeFile answers 404 for a missing capture.
	http.ServeFile(w, r, s.cfg.Capture.OutputPath)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.store.RefreshNow(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, "refresh failed")
		return
	}
	snap := s.store.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"events":     len(snap.Events),
		"updated_at": snap.UpdatedAt,
	})
}

// parseDate reads a YYYY-MM-DD value in the display location. An empty
// value means today.
func (s *Server) parseDate(v string) (time.Time, error) {
	if v == "" {
		y, m, d := s.now().In(s.loc).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, s.loc), nil
	}
	return time.ParseInLocation("2006-01-02", v, s.loc)
}

// splitList parses a comma list filter. An absent or empty parameter
// returns nil, which the layout filter reads as "all".
func splitList(r *http.Request, key string) []string {
	var out []string
	for _, part := range strings.Split(r.URL.Query().Get(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
