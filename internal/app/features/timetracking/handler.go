// Package timetracking serves the clock: sessions, breaks, history, and
// the org-wide live view managers use to see who is on shift. Stale
// sessions are closed by the auto clock-out sweep in jobs.
package timetracking

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/canvashub/canvashub/internal/app/policy/userpolicy"
	timestore "github.com/canvashub/canvashub/internal/app/store/timetracking"
	userstore "github.com/canvashub/canvashub/internal/app/store/users"
	"github.com/canvashub/canvashub/internal/app/system/apperr"
	"github.com/canvashub/canvashub/internal/app/system/auth"
	"github.com/canvashub/canvashub/internal/app/system/httpjson"
	"github.com/canvashub/canvashub/internal/app/system/normalize"
	"github.com/canvashub/canvashub/internal/app/system/timeouts"
	"github.com/canvashub/canvashub/internal/domain/models"
)

// Handler holds dependencies for the time clock endpoints.
type Handler struct {
	Sessions *timestore.Store
	Users    *userstore.Store
	Log      *zap.Logger
}

func NewHandler(sessions *timestore.Store, users *userstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Sessions: sessions, Users: users, Log: logger}
}

type clockInRequest struct {
	Notes string `json:"notes"`
}

// ClockIn handles POST /time/clock-in.
func (h *Handler) ClockIn(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)
	if actor.OrganizationID == "" {
		httpjson.Error(w, h.Log, apperr.Validationf("time tracking is organization-scoped"))
		return
	}

	// The body is optional; notes only.
	var req clockInRequest
	if r.ContentLength > 0 {
		if err := httpjson.Decode(r, &req); err != nil {
			httpjson.Error(w, h.Log, err)
			return
		}
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "clock in")
	defer cancel()

	sess, err := h.Sessions.ClockIn(ctx, actor.Username, actor.OrganizationID, req.Notes, time.Now())
	if err != nil {
		httpjson.Error(w, h.Log, clockErr(err))
		return
	}
	httpjson.Created(w, sess)
}

// ClockOut handles POST /time/clock-out. Any active break ends with the
// session.
func (h *Handler) ClockOut(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "clock out")
	defer cancel()

	sess, err := h.Sessions.ClockOut(ctx, actor.Username, time.Now())
	if err != nil {
		httpjson.Error(w, h.Log, clockErr(err))
		return
	}
	httpjson.OK(w, sess)
}

type breakRequest struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// StartBreak handles POST /time/breaks/start.
func (h *Handler) StartBreak(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	var req breakRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if !models.ValidBreakType(req.Type) {
		httpjson.Error(w, h.Log, apperr.Validationf("type must be lunch, personal, sick, emergency, or other"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "start break")
	defer cancel()

	sess, err := h.Sessions.StartBreak(ctx, actor.Username, req.Type, req.Reason, time.Now())
	if err != nil {
		httpjson.Error(w, h.Log, clockErr(err))
		return
	}
	httpjson.OK(w, sess)
}

// EndBreak handles POST /time/breaks/end.
func (h *Handler) EndBreak(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "end break")
	defer cancel()

	sess, err := h.Sessions.EndBreak(ctx, actor.Username, "", time.Now())
	if err != nil {
		httpjson.Error(w, h.Log, clockErr(err))
		return
	}
	httpjson.OK(w, sess)
}

// BreakStatus handles GET /time/breaks/status.
func (h *Handler) BreakStatus(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "break status")
	defer cancel()

	sess, err := h.Sessions.Active(ctx, actor.Username)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if sess == nil {
		httpjson.OK(w, map[string]any{"clocked_in": false, "on_break": false})
		return
	}
	httpjson.OK(w, map[string]any{
		"clocked_in":   true,
		"on_break":     sess.OnBreak,
		"active_break": sess.ActiveBreak(),
		"break_count":  len(sess.Breaks),
	})
}

// ForceEndBreak handles POST /time/breaks/{username}/force-end: a manager
// or admin closes a team member's break.
func (h *Handler) ForceEndBreak(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)
	username := normalize.Username(chi.URLParam(r, "username"))

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "force end break")
	defer cancel()

	target, err := h.Users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.Error(w, h.Log, apperr.NotFoundf("user %q not found", username))
			return
		}
		httpjson.Error(w, h.Log, err)
		return
	}
	if !userpolicy.CanManage(actor, target) {
		httpjson.Error(w, h.Log, apperr.Deniedf("not allowed to end this user's break"))
		return
	}

	sess, err := h.Sessions.EndBreak(ctx, username, actor.Username, time.Now())
	if err != nil {
		httpjson.Error(w, h.Log, clockErr(err))
		return
	}
	httpjson.OK(w, sess)
}

// Status handles GET /time/status: the caller's open session, if any.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "clock status")
	defer cancel()

	sess, err := h.Sessions.Active(ctx, actor.Username)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if sess == nil {
		httpjson.OK(w, map[string]any{"clocked_in": false})
		return
	}
	httpjson.OK(w, map[string]any{
		"clocked_in":    true,
		"session":       sess,
		"elapsed_hours": time.Since(sess.ClockIn).Hours(),
	})
}

// History handles GET /time/history with ?since= and ?until= RFC3339
// bounds (default: last 30 days). A manager or admin may pass ?username=
// to read a team member's history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "time history")
	defer cancel()

	username := actor.Username
	if qu := r.URL.Query().Get("username"); qu != "" && normalize.Username(qu) != actor.Username {
		username = normalize.Username(qu)
		target, err := h.Users.GetByUsername(ctx, username)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				httpjson.Error(w, h.Log, apperr.NotFoundf("user %q not found", username))
				return
			}
			httpjson.Error(w, h.Log, err)
			return
		}
		if !userpolicy.CanManage(actor, target) {
			httpjson.Error(w, h.Log, apperr.Deniedf("not allowed to view this user's history"))
			return
		}
	}

	now := time.Now()
	from, to, err := window(r, now.AddDate(0, 0, -30), now)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	sessions, err := h.Sessions.History(ctx, username, from, to)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	var totalWork, totalBreak float64
	for _, s := range sessions {
		totalWork += s.WorkHours
		totalBreak += s.TotalBreakMinutes
	}
	httpjson.OK(w, map[string]any{
		"sessions":            sessions,
		"count":               len(sessions),
		"total_work_hours":    totalWork,
		"total_break_minutes": totalBreak,
	})
}

type dailyRow struct {
	Date         string  `json:"date"`
	Sessions     int     `json:"sessions"`
	WorkHours    float64 `json:"work_hours"`
	BreakMinutes float64 `json:"break_minutes"`
}

// Daily handles GET /time/daily: per-day totals over the window.
func (h *Handler) Daily(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	now := time.Now()
	from, to, err := window(r, now.AddDate(0, 0, -7), now)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "daily summary")
	defer cancel()

	sessions, err := h.Sessions.History(ctx, actor.Username, from, to)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	byDay := map[string]*dailyRow{}
	var order []string
	for _, s := range sessions {
		day := s.ClockIn.Format("2006-01-02")
		row, ok := byDay[day]
		if !ok {
			row = &dailyRow{Date: day}
			byDay[day] = row
			order = append(order, day)
		}
		row.Sessions++
		row.WorkHours += s.WorkHours
		row.BreakMinutes += s.TotalBreakMinutes
	}

	rows := make([]dailyRow, 0, len(order))
	for _, day := range order {
		rows = append(rows, *byDay[day])
	}
	httpjson.OK(w, map[string]any{"days": rows, "count": len(rows)})
}

// ActiveUsers handles GET /time/active: everyone in the org currently on
// the clock. Approval tier (manager and up) via routing.
func (h *Handler) ActiveUsers(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	orgID := actor.OrganizationID
	if orgID == "" {
		orgID = r.URL.Query().Get("org_id")
	}
	if orgID == "" {
		httpjson.Error(w, h.Log, apperr.Validationf("org_id is required"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "active sessions")
	defer cancel()

	sessions, err := h.Sessions.ActiveByOrg(ctx, orgID)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.OK(w, map[string]any{"sessions": sessions, "count": len(sessions)})
}

// window parses optional ?since= / ?until= RFC3339 query bounds.
func window(r *http.Request, defaultFrom, defaultTo time.Time) (time.Time, time.Time, error) {
	from, to := defaultFrom, defaultTo
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return from, to, apperr.Validationf("since must be RFC3339")
		}
		from = t
	}
	if v := r.URL.Query().Get("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return from, to, apperr.Validationf("until must be RFC3339")
		}
		to = t
	}
	return from, to, nil
}

// clockErr maps timestore sentinels onto the API error taxonomy.
func clockErr(err error) error {
	switch {
	case errors.Is(err, timestore.ErrAlreadyClockedIn):
		return apperr.Invalidf("already clocked in")
	case errors.Is(err, timestore.ErrNotClockedIn):
		return apperr.Invalidf("not clocked in")
	case errors.Is(err, timestore.ErrBreakActive):
		return apperr.Invalidf("a break is already active")
	case errors.Is(err, timestore.ErrNoActiveBreak):
		return apperr.Invalidf("no active break")
	default:
		return err
	}
}
