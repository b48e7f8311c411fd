// Package leaderboard serves the org-wide standings outside any
// competition: lead production over a period and the all-time points
// table.
package leaderboard

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	leadstore "github.com/canvashub/canvashub/internal/app/store/leads"
	userstore "github.com/canvashub/canvashub/internal/app/store/users"
	"github.com/canvashub/canvashub/internal/app/system/apperr"
	"github.com/canvashub/canvashub/internal/app/system/auth"
	"github.com/canvashub/canvashub/internal/app/system/httpjson"
	"github.com/canvashub/canvashub/internal/app/system/timeouts"
	"github.com/canvashub/canvashub/internal/domain/roles"
)

const defaultLimit = 20

// Handler holds dependencies for the leaderboard endpoints.
type Handler struct {
	Users     *userstore.Store
	LeadStore *leadstore.Store
	Log       *zap.Logger
}

func NewHandler(users *userstore.Store, leads *leadstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Users: users, LeadStore: leads, Log: logger}
}

type row struct {
	Username   string  `json:"username"`
	FullName   string  `json:"full_name"`
	Role       string  `json:"role"`
	TotalLeads int64   `json:"total_leads"`
	Approved   int64   `json:"approved_leads"`
	Sold       int64   `json:"sold_leads"`
	SalesValue float64 `json:"sales_value"`
	Rank       int     `json:"rank"`
}

// Leads handles GET /leaderboard/leads: lead production rankings for the
// caller's org over a period (week, month, quarter, all; default month).
func (h *Handler) Leads(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	orgID := actor.OrganizationID
	if actor.Role == roles.SuperAdmin {
		orgID = r.URL.Query().Get("org_id")
	}
	if orgID == "" {
		httpjson.Error(w, h.Log, apperr.Validationf("org_id is required"))
		return
	}

	now := time.Now()
	from, err := periodStart(r.URL.Query().Get("period"), now)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "lead leaderboard")
	defer cancel()

	users, err := h.Users.List(ctx, userstore.ListFilter{OrgID: orgID, ActiveOnly: true})
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	metrics, err := h.LeadStore.MetricsByCreator(ctx, orgID, nil, from, now)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	rows := make([]row, 0, len(users))
	for _, u := range users {
		m := metrics[u.Username]
		rows = append(rows, row{
			Username:   u.Username,
			FullName:   u.FullName(),
			Role:       string(u.Role),
			TotalLeads: m.TotalLeads,
			Approved:   m.Approved,
			Sold:       m.Sold,
			SalesValue: m.SalesValue,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].TotalLeads != rows[j].TotalLeads {
			return rows[i].TotalLeads > rows[j].TotalLeads
		}
		return rows[i].Username < rows[j].Username
	})
	limit := queryLimit(r)
	if len(rows) > limit {
		rows = rows[:limit]
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	httpjson.OK(w, map[string]any{"leaderboard": rows, "count": len(rows), "since": from})
}

type pointsRow struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	Points   int    `json:"points"`
	Rank     int    `json:"rank"`
}

// Points handles GET /leaderboard/points: the all-time points table.
func (h *Handler) Points(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	orgID := actor.OrganizationID
	if actor.Role == roles.SuperAdmin {
		orgID = r.URL.Query().Get("org_id")
	}
	if orgID == "" {
		httpjson.Error(w, h.Log, apperr.Validationf("org_id is required"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "points leaderboard")
	defer cancel()

	users, err := h.Users.TopByPoints(ctx, orgID, int64(queryLimit(r)))
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	rows := make([]pointsRow, 0, len(users))
	for i, u := range users {
		rows = append(rows, pointsRow{
			Username: u.Username,
			FullName: u.FullName(),
			Role:     string(u.Role),
			Points:   u.Points,
			Rank:     i + 1,
		})
	}
	httpjson.OK(w, map[string]any{"leaderboard": rows, "count": len(rows)})
}

func periodStart(period string, now time.Time) (time.Time, error) {
	switch period {
	case "week":
		return now.AddDate(0, 0, -7), nil
	case "", "month":
		return now.AddDate(0, -1, 0), nil
	case "quarter":
		return now.AddDate(0, -3, 0), nil
	case "all":
		return time.Time{}, nil
	default:
		return time.Time{}, apperr.Validationf("period must be week, month, quarter, or all")
	}
}

func queryLimit(r *http.Request) int {
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 && n <= 100 {
		return n
	}
	return defaultLimit
}
