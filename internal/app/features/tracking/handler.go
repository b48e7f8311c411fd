// Package tracking serves live GPS paths. Fixes attach to the caller's
// open work session, so tracking starts at clock-in and stops at
// clock-out.
package tracking

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/canvashub/canvashub/internal/app/policy/userpolicy"
	trackstore "github.com/canvashub/canvashub/internal/app/store/livetracking"
	timestore "github.com/canvashub/canvashub/internal/app/store/timetracking"
	userstore "github.com/canvashub/canvashub/internal/app/store/users"
	"github.com/canvashub/canvashub/internal/app/system/apperr"
	"github.com/canvashub/canvashub/internal/app/system/auth"
	"github.com/canvashub/canvashub/internal/app/system/httpjson"
	"github.com/canvashub/canvashub/internal/app/system/normalize"
	"github.com/canvashub/canvashub/internal/app/system/timeouts"
	"github.com/canvashub/canvashub/internal/domain/models"
)

// Handler holds dependencies for the live tracking endpoints.
type Handler struct {
	Tracks   *trackstore.Store
	Sessions *timestore.Store
	Users    *userstore.Store
	Log      *zap.Logger
}

func NewHandler(tracks *trackstore.Store, sessions *timestore.Store, users *userstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Tracks: tracks, Sessions: sessions, Users: users, Log: logger}
}

type updateRequest struct {
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Accuracy  float64    `json:"accuracy"`
	Speed     float64    `json:"speed"`
	Heading   float64    `json:"heading"`
	Timestamp *time.Time `json:"timestamp"`
}

// Update handles POST /tracking/update: one GPS fix. The caller must be
// clocked in; the fix lands on the tracking document for that session.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	var req updateRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		httpjson.Error(w, h.Log, apperr.Validationf("latitude/longitude out of range"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "tracking update")
	defer cancel()

	sess, err := h.Sessions.Active(ctx, actor.Username)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if sess == nil {
		httpjson.Error(w, h.Log, apperr.Invalidf("not clocked in"))
		return
	}

	at := time.Now()
	if req.Timestamp != nil {
		at = *req.Timestamp
	}

	track, err := h.Tracks.ActiveForSession(ctx, actor.Username, sess.OrganizationID, sess.ID.Hex(), at)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	track, err = h.Tracks.AppendPoint(ctx, track, models.PathPoint{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Accuracy:  req.Accuracy,
		Speed:     req.Speed,
		Heading:   req.Heading,
		Timestamp: at,
	})
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	httpjson.OK(w, map[string]any{
		"current_activity":      track.CurrentActivity,
		"total_distance_meters": track.TotalDistanceMeters,
		"points":                len(track.Path),
	})
}

// currentRow trims a live path down to what the map view needs.
type currentRow struct {
	Username        string            `json:"username"`
	Activity        string            `json:"activity"`
	LastFix         *models.PathPoint `json:"last_fix,omitempty"`
	DistanceMeters  float64           `json:"distance_meters"`
	TrackingMinutes float64           `json:"tracking_minutes"`
}

// Current handles GET /tracking/current: last known positions of everyone
// live in the org. Approval tier via routing.
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	orgID := actor.OrganizationID
	if orgID == "" {
		orgID = r.URL.Query().Get("org_id")
	}
	if orgID == "" {
		httpjson.Error(w, h.Log, apperr.Validationf("org_id is required"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "current positions")
	defer cancel()

	tracks, err := h.Tracks.ActiveByOrg(ctx, orgID)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	rows := make([]currentRow, 0, len(tracks))
	for _, t := range tracks {
		row := currentRow{
			Username:        t.Username,
			Activity:        t.CurrentActivity,
			DistanceMeters:  t.TotalDistanceMeters,
			TrackingMinutes: t.UpdatedAt.Sub(t.StartedAt).Minutes(),
		}
		if n := len(t.Path); n > 0 {
			row.LastFix = &t.Path[n-1]
		}
		rows = append(rows, row)
	}
	httpjson.OK(w, map[string]any{"positions": rows, "count": len(rows)})
}

// Path handles GET /tracking/{username}/path: a user's tracked paths over
// a window (default: today). Users read their own; managers their team.
func (h *Handler) Path(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)
	username := normalize.Username(chi.URLParam(r, "username"))

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "user path")
	defer cancel()

	if username != actor.Username {
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
			httpjson.Error(w, h.Log, apperr.Deniedf("not allowed to view this user's path"))
			return
		}
	}

	now := time.Now()
	from, to, err := window(r, startOfDay(now), now)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	tracks, err := h.Tracks.ForUser(ctx, username, from, to)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.OK(w, map[string]any{"tracks": tracks, "count": len(tracks)})
}

// Analytics handles GET /tracking/{username}/analytics: distance and
// activity breakdown over a window (default: last 7 days).
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)
	username := normalize.Username(chi.URLParam(r, "username"))

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "path analytics")
	defer cancel()

	if username != actor.Username {
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
			httpjson.Error(w, h.Log, apperr.Deniedf("not allowed to view this user's analytics"))
			return
		}
	}

	now := time.Now()
	from, to, err := window(r, now.AddDate(0, 0, -7), now)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	tracks, err := h.Tracks.ForUser(ctx, username, from, to)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	var totalMeters, totalSecs float64
	activitySecs := map[string]float64{}
	for _, t := range tracks {
		totalMeters += t.TotalDistanceMeters
		for _, seg := range t.Segments {
			totalSecs += seg.DurationSecs
			activitySecs[seg.Activity] += seg.DurationSecs
		}
	}
	httpjson.OK(w, map[string]any{
		"username":              username,
		"sessions":              len(tracks),
		"total_distance_meters": totalMeters,
		"total_tracked_seconds": totalSecs,
		"seconds_by_activity":   activitySecs,
		"since":                 from,
		"until":                 to,
	})
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

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
