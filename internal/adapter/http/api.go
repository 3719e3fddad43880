package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/couchcryptid/quake-dashboard/internal/dashboard"
	"github.com/couchcryptid/quake-dashboard/internal/refresh"
)

// maxBodyBytes bounds control request bodies.
const maxBodyBytes = 4 << 10

// View is the payload of /api/dashboard and of every control response.
type View struct {
	Dashboard dashboard.Snapshot `json:"dashboard"`
	Refresh   refresh.Status     `json:"refresh"`
}

func (s *Server) view() View {
	return View{Dashboard: s.dash.Snapshot(), Refresh: s.sched.Status()}
}

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.view())
}

// handleRefresh runs a cycle and answers with the refreshed dashboard. The
// cycle is not cancelled if the client disconnects.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.sched.RefreshNow(context.WithoutCancel(r.Context()))
	writeJSON(w, http.StatusOK, s.view())
}

func (s *Server) handleSetEnabled(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := decodeBody(w, r, &req); err != nil || req.Enabled == nil {
		writeError(w, http.StatusBadRequest, `body must be {"enabled": true|false}`)
		return
	}
	s.sched.SetEnabled(*req.Enabled)
	writeJSON(w, http.StatusOK, s.view())
}

// handleSetInterval accepts the interval as a JSON number or string. Input
// that is not a valid interval falls back to the default, as the scheduler
// does for typed input.
func (s *Server) handleSetInterval(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Interval json.RawMessage `json:"interval"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, `body must be {"interval": <seconds>}`)
		return
	}
	raw := strings.Trim(strings.TrimSpace(string(req.Interval)), `"`)
	s.sched.SetInterval(raw)
	writeJSON(w, http.StatusOK, s.view())
}

func (s *Server) handleSetRange(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DaysBack int `json:"days_back"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, `body must be {"days_back": <days>}`)
		return
	}
	if err := s.dash.SetDaysBack(req.DaysBack); err != nil {
		if errors.Is(err, dashboard.ErrInvalidRange) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("time range changed", "days_back", req.DaysBack)
	writeJSON(w, http.StatusOK, s.view())
}

func (s *Server) handleFocus(w http.ResponseWriter, r *http.Request) {
	s.writeFocusResult(w, s.dash.Focus(chi.URLParam(r, "id")))
}

func (s *Server) handleFocusHighlight(w http.ResponseWriter, _ *http.Request) {
	s.writeFocusResult(w, s.dash.FocusHighlight())
}

func (s *Server) writeFocusResult(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, s.dash.Snapshot().Map)
	case errors.Is(err, dashboard.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
