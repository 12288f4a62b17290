// Package web serves the board over HTTP: the laid-out week, commits and refresh.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"weekcal/internal/board"
	"weekcal/internal/config"
	"weekcal/internal/layout"
	appLog "weekcal/internal/log"
	"weekcal/internal/week"
)

const maxBodyBytes = 1 << 20

// Refresher reloads the board from its sources.
type Refresher interface {
	RefreshNow(ctx context.Context) (board.Snapshot, error)
}

// Server exposes the board over HTTP.
type Server struct {
	cfg       *config.Config
	board     *board.Board
	refresher Refresher
	mux       *http.ServeMux
}

// NewServer constructs a new Server. refresher may be nil, in which case
// POST /api/refresh answers 503.
func NewServer(cfg *config.Config, b *board.Board, refresher Refresher) *Server {
	s := &Server{
		cfg:       cfg,
		board:     b,
		refresher: refresher,
		mux:       http.NewServeMux(),
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
			w.Header().Set("WWW-Authenticate", `Basic realm="weekcal", charset="UTF-8"`)
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

// ListenAndServe serves on cfg.Listen until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
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
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/layout", s.handleLayout)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("POST /api/events/move", s.handleMove)
	s.mux.HandleFunc("POST /api/events/resize", s.handleResize)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleLayout(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.layoutOf(s.board.Snapshot()))
}

func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	snap := s.board.Snapshot()
	writeJSON(w, http.StatusOK, eventsResponse{
		Version: snap.Version,
		Events:  layout.Strip(snap.Events),
	})
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.EventID == "" || req.Start == nil || req.Column == nil {
		writeError(w, http.StatusBadRequest, "event_id, start and column are required")
		return
	}

	snap, err := s.board.Move(board.Move{EventID: req.EventID, Start: *req.Start, Column: *req.Column})
	if err != nil {
		writeCommitError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.layoutOf(snap))
}

func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	var req resizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.EventID == "" || req.End == nil {
		writeError(w, http.StatusBadRequest, "event_id and end are required")
		return
	}

	snap, err := s.board.Resize(board.Resize{EventID: req.EventID, End: *req.End})
	if err != nil {
		writeCommitError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.layoutOf(snap))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refresher == nil {
		writeError(w, http.StatusServiceUnavailable, "refresh not available")
		return
	}
	snap, err := s.refresher.RefreshNow(r.Context())
	if err != nil {
		appLog.Error("api refresh failed", err)
		writeError(w, http.StatusBadGateway, "refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, s.layoutOf(snap))
}

// decodeJSON reads a single JSON object into v, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

func writeCommitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, board.ErrEventNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, board.ErrColumnOutOfRange), errors.Is(err, board.ErrTimeOutOfRange):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		appLog.Error("commit failed", err)
		writeError(w, http.StatusInternalServerError, "commit failed")
	}
}

// layoutOf converts a snapshot into the /api/layout response.
func (s *Server) layoutOf(snap board.Snapshot) layoutResponse {
	resp := layoutResponse{
		Version:      snap.Version,
		UpdatedAt:    snap.UpdatedAt,
		Days:         snap.Week.Days,
		Events:       make([]positionedDTO, 0, len(snap.Events)),
		Clusters:     []clusterDTO{},
		CompanyHours: s.companyHours(snap.Week),
	}
	if !snap.Week.Start.IsZero() {
		resp.WeekStart = snap.Week.Start.Format(time.DateOnly)
		resp.Timezone = snap.Week.Start.Location().String()
	}

	seen := make(map[*layout.Cluster]bool)
	for _, p := range snap.Events {
		resp.Events = append(resp.Events, positionedDTO{
			ID:         p.ID,
			Column:     p.Column,
			Start:      p.Start,
			End:        p.End,
			StartClock: week.FormatClock(p.Start),
			EndClock:   week.FormatClock(p.End),
			Assignees:  nonNil(p.Assignees),
			Color:      p.Color,
			Offset:     p.Offset,
			ClusterID:  p.Cluster.ID,
			MaxOffset:  p.Cluster.MaxOffset,
		})
		if !seen[p.Cluster] {
			seen[p.Cluster] = true
			resp.Clusters = append(resp.Clusters, clusterDTO{
				ID:        p.Cluster.ID,
				MaxOffset: p.Cluster.MaxOffset,
				Assignees: nonNil(p.Cluster.Assignees),
			})
		}
	}
	return resp
}

// EncodeLayout writes snap as an indented /api/layout document.
func (s *Server) EncodeLayout(w io.Writer, snap board.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s.layoutOf(snap))
}

// companyHours resolves the configured hours onto the columns of wk.
func (s *Server) companyHours(wk week.Week) []companyHoursDTO {
	out := []companyHoursDTO{}
	if s.cfg == nil || wk.Start.IsZero() {
		return out
	}
	for col := 0; col < wk.Days; col++ {
		wd := wk.Day(col).Weekday()
		for _, h := range s.cfg.CompanyHours {
			if h.Weekday != int(wd) {
				continue
			}
			out = append(out, companyHoursDTO{
				Column:  col,
				Weekday: wd.String(),
				Start:   h.Start * 60,
				End:     h.End * 60,
			})
			break
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
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
