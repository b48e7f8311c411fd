package competitions

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"

	leadstore "github.com/canvashub/canvashub/internal/app/store/leads"
	userstore "github.com/canvashub/canvashub/internal/app/store/users"
	"github.com/canvashub/canvashub/internal/app/system/apperr"
	"github.com/canvashub/canvashub/internal/app/system/auth"
	"github.com/canvashub/canvashub/internal/app/system/httpjson"
	"github.com/canvashub/canvashub/internal/app/system/timeouts"
	"github.com/canvashub/canvashub/internal/domain/models"
	"github.com/canvashub/canvashub/internal/domain/participants"
)

// Leaderboard handles GET /competitions/{competition_id}/leaderboard.
// Completed competitions serve their frozen final leaderboard; live ones
// are ranked from current lead metrics.
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "competition leaderboard")
	defer cancel()

	comp, err := h.loadViewable(ctx, r)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	now := time.Now()
	if participants.Due(comp, now) {
		h.complete(ctx, comp)
	}

	status := participants.StatusAt(comp, now)
	if status == models.CompStatusCompleted {
		httpjson.OK(w, map[string]any{
			"competition_id": comp.CompetitionID,
			"status":         status,
			"winner":         comp.Winner,
			"leaderboard":    comp.FinalLeaderboard,
		})
		return
	}

	board, err := h.rank(ctx, comp, now)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.OK(w, map[string]any{
		"competition_id": comp.CompetitionID,
		"status":         status,
		"leaderboard":    board,
	})
}

// MyStats handles GET /competitions/{competition_id}/my-stats: the
// caller's own rank and score.
func (h *Handler) MyStats(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "competition my stats")
	defer cancel()

	comp, err := h.loadViewable(ctx, r)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	now := time.Now()
	board := comp.FinalLeaderboard
	if participants.StatusAt(comp, now) != models.CompStatusCompleted {
		board, err = h.rank(ctx, comp, now)
		if err != nil {
			httpjson.Error(w, h.Log, err)
			return
		}
	}

	for _, entry := range board {
		if entry.Username == actor.Username {
			httpjson.OK(w, map[string]any{
				"competition_id": comp.CompetitionID,
				"rank":           entry.Rank,
				"score":          entry.Score,
				"participants":   len(board),
			})
			return
		}
	}
	httpjson.OK(w, map[string]any{
		"competition_id": comp.CompetitionID,
		"participating":  false,
		"participants":   len(board),
	})
}

// Participants handles GET /competitions/{competition_id}/participants.
func (h *Handler) Participants(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "competition participants")
	defer cancel()

	comp, err := h.loadViewable(ctx, r)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	resolved, err := h.resolveParticipants(ctx, comp)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	names := make([]string, 0, len(resolved))
	for _, u := range resolved {
		names = append(names, u.Username)
	}
	httpjson.OK(w, map[string]any{
		"competition_id": comp.CompetitionID,
		"mode":           comp.SelectionMode,
		"participants":   names,
		"count":          len(names),
	})
}

type participantsRequest struct {
	Participants []string `json:"participants"`
}

// SetParticipants handles PUT /competitions/{competition_id}/participants
// for specific-mode competitions.
func (h *Handler) SetParticipants(w http.ResponseWriter, r *http.Request) {
	var req participantsRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "set competition participants")
	defer cancel()

	comp, err := h.loadManaged(ctx, r)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if comp.SelectionMode != models.SelectSpecific {
		httpjson.Error(w, h.Log, apperr.Invalidf("participants are derived in %s mode", comp.SelectionMode))
		return
	}

	check := *comp
	check.SelectedParticipants = req.Participants
	if err := h.validateParticipants(ctx, &check); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	if err := h.Comps.SetParticipants(ctx, comp.CompetitionID, req.Participants); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.OK(w, map[string]any{"status": "updated", "count": len(req.Participants)})
}

// AvailableParticipants handles GET
// /competitions/{competition_id}/available-participants: the org users a
// manager can pick from for specific mode.
func (h *Handler) AvailableParticipants(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "available participants")
	defer cancel()

	comp, err := h.loadManaged(ctx, r)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	users, err := h.Users.List(ctx, userstore.ListFilter{OrgID: comp.OrganizationID, ActiveOnly: true})
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	type candidate struct {
		Username string `json:"username"`
		FullName string `json:"full_name"`
		Role     string `json:"role"`
	}
	out := make([]candidate, 0, len(users))
	for _, u := range users {
		out = append(out, candidate{Username: u.Username, FullName: u.FullName(), Role: string(u.Role)})
	}
	httpjson.OK(w, map[string]any{"users": out, "count": len(out)})
}

// Analytics handles GET /competitions/{competition_id}/analytics:
// aggregate production across the participant set.
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "competition analytics")
	defer cancel()

	comp, err := h.loadManaged(ctx, r)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	metrics, creators, err := h.participantMetrics(ctx, comp, time.Now())
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	var totals leadstore.UserMetrics
	active := 0
	for _, name := range creators {
		m := metrics[name]
		totals.TotalLeads += m.TotalLeads
		totals.Approved += m.Approved
		totals.Sold += m.Sold
		totals.SalesValue += m.SalesValue
		if m.TotalLeads > 0 {
			active++
		}
	}
	httpjson.OK(w, map[string]any{
		"competition_id":      comp.CompetitionID,
		"participants":        len(creators),
		"active_participants": active,
		"total_leads":         totals.TotalLeads,
		"approved_leads":      totals.Approved,
		"sold_leads":          totals.Sold,
		"sales_value":         totals.SalesValue,
	})
}

// resolveParticipants loads the org's users and filters them through the
// competition's selection mode.
func (h *Handler) resolveParticipants(ctx context.Context, comp *models.Competition) ([]models.User, error) {
	users, err := h.Users.List(ctx, userstore.ListFilter{OrgID: comp.OrganizationID})
	if err != nil {
		return nil, err
	}
	return participants.Resolve(comp, users), nil
}

// participantMetrics aggregates lead metrics for the participant set over
// the competition window.
func (h *Handler) participantMetrics(ctx context.Context, comp *models.Competition, now time.Time) (map[string]leadstore.UserMetrics, []string, error) {
	resolved, err := h.resolveParticipants(ctx, comp)
	if err != nil {
		return nil, nil, err
	}
	creators := make([]string, 0, len(resolved))
	for _, u := range resolved {
		creators = append(creators, u.Username)
	}

	end := comp.EndDate
	if now.Before(end) {
		end = now
	}
	metrics, err := h.Leads.MetricsByCreator(ctx, comp.OrganizationID, creators, comp.StartDate, end)
	if err != nil {
		return nil, nil, err
	}
	return metrics, creators, nil
}

// rank builds the current leaderboard for a live competition.
func (h *Handler) rank(ctx context.Context, comp *models.Competition, now time.Time) ([]models.LeaderboardEntry, error) {
	resolved, err := h.resolveParticipants(ctx, comp)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*models.User, len(resolved))
	creators := make([]string, 0, len(resolved))
	for i := range resolved {
		byName[resolved[i].Username] = &resolved[i]
		creators = append(creators, resolved[i].Username)
	}

	end := comp.EndDate
	if now.Before(end) {
		end = now
	}
	metrics, err := h.Leads.MetricsByCreator(ctx, comp.OrganizationID, creators, comp.StartDate, end)
	if err != nil {
		return nil, err
	}

	board := make([]models.LeaderboardEntry, 0, len(creators))
	for _, name := range creators {
		u := byName[name]
		board = append(board, models.LeaderboardEntry{
			Username: name,
			FullName: u.FullName(),
			Role:     string(u.Role),
			Score:    metrics[name].Score(comp.Type),
		})
	}
	sort.SliceStable(board, func(i, j int) bool {
		if board[i].Score != board[j].Score {
			return board[i].Score > board[j].Score
		}
		return board[i].Username < board[j].Username
	})
	for i := range board {
		board[i].Rank = i + 1
	}
	return board, nil
}

// complete freezes a past-window competition: first caller through the
// conditional update records the winner, awards the prize, and notifies.
// Losers of the race see the stored terminal state on their next read.
func (h *Handler) complete(ctx context.Context, comp *models.Competition) {
	board, err := h.rank(ctx, comp, comp.EndDate)
	if err != nil {
		h.Log.Error("competition completion ranking failed",
			zap.String("competition_id", comp.CompetitionID), zap.Error(err))
		return
	}

	var winner string
	if len(board) > 0 && board[0].Score > 0 {
		winner = board[0].Username
	}

	won, err := h.Comps.CompleteIfActive(ctx, comp.CompetitionID, winner, board)
	if err != nil {
		h.Log.Error("competition completion failed",
			zap.String("competition_id", comp.CompetitionID), zap.Error(err))
		return
	}
	if !won {
		// Another reader completed it first; reload the stored result.
		if fresh, err := h.Comps.GetByCompetitionID(ctx, comp.CompetitionID); err == nil {
			*comp = *fresh
		}
		return
	}

	now := time.Now()
	comp.Status = models.CompStatusCompleted
	comp.Winner = winner
	comp.FinalLeaderboard = board
	comp.CompletedAt = &now

	if winner != "" && comp.PrizePoints > 0 {
		if _, err := h.Users.AwardPoints(ctx, winner, comp.PrizePoints,
			fmt.Sprintf("Won competition: %s", comp.Title), ""); err != nil {
			h.Log.Error("competition prize award failed",
				zap.String("competition_id", comp.CompetitionID),
				zap.String("winner", winner), zap.Error(err))
		}
		h.Notify.Send(ctx, models.Notification{
			OrganizationID: comp.OrganizationID,
			Title:          "Competition won",
			Message:        fmt.Sprintf("You won %q and earned %d points.", comp.Title, comp.PrizePoints),
			Type:           models.NotifCompetitionWon,
			Recipients:     []string{winner},
			Data:           map[string]string{"competition_id": comp.CompetitionID},
		})
	}
}
