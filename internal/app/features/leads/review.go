package leads

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/canvashub/canvashub/internal/app/policy/leadpolicy"
	leadstore "github.com/canvashub/canvashub/internal/app/store/leads"
	"github.com/canvashub/canvashub/internal/app/system/apperr"
	"github.com/canvashub/canvashub/internal/app/system/auth"
	"github.com/canvashub/canvashub/internal/app/system/httpjson"
	"github.com/canvashub/canvashub/internal/app/system/timeouts"
	"github.com/canvashub/canvashub/internal/domain/leadflow"
	"github.com/canvashub/canvashub/internal/domain/models"
)

// pendingUrgencyAge flags approvals that have waited too long.
const pendingUrgencyAge = 24 * time.Hour

type approveRequest struct {
	Notes string `json:"notes"`
}

// Approve handles POST /leads/{lead_id}/approve.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	var req approveRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "approve lead")
	defer cancel()

	lead, err := h.loadReviewable(ctx, r)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	prev := lead.Status
	award, err := leadflow.Approve(lead, actor.Username, req.Notes, time.Now())
	if err != nil {
		httpjson.Error(w, h.Log, transitionErr(err))
		return
	}
	if err := h.Leads.SaveTransition(ctx, lead, prev); err != nil {
		httpjson.Error(w, h.Log, transitionErr(err))
		return
	}
	h.applyAward(ctx, award)
	h.notifyCreator(ctx, lead, models.NotifLeadApproved,
		"Lead approved",
		fmt.Sprintf("Your lead %s was approved by %s.", lead.LeadID, actor.Username))
	httpjson.OK(w, lead)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// Reject handles POST /leads/{lead_id}/reject.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	var req rejectRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if req.Reason == "" {
		httpjson.Error(w, h.Log, apperr.Validationf("a rejection reason is required"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "reject lead")
	defer cancel()

	lead, err := h.loadReviewable(ctx, r)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	prev := lead.Status
	if err := leadflow.Reject(lead, actor.Username, req.Reason, time.Now()); err != nil {
		httpjson.Error(w, h.Log, transitionErr(err))
		return
	}
	if err := h.Leads.SaveTransition(ctx, lead, prev); err != nil {
		httpjson.Error(w, h.Log, transitionErr(err))
		return
	}
	h.notifyCreator(ctx, lead, models.NotifLeadRejected,
		"Lead rejected",
		fmt.Sprintf("Your lead %s was rejected: %s", lead.LeadID, req.Reason))
	httpjson.OK(w, lead)
}

type soldRequest struct {
	SaleAmount float64    `json:"sale_amount"`
	SaleDate   *time.Time `json:"sale_date"`
	Notes      string     `json:"notes"`
}

// MarkSold handles POST /leads/{lead_id}/sold.
func (h *Handler) MarkSold(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	var req soldRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if req.SaleAmount <= 0 {
		httpjson.Error(w, h.Log, apperr.Validationf("sale_amount must be positive"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "mark lead sold")
	defer cancel()

	lead, err := h.loadReviewable(ctx, r)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	prev := lead.Status
	award, err := leadflow.MarkSold(lead, actor.Username, req.SaleAmount, req.SaleDate, req.Notes, time.Now())
	if err != nil {
		httpjson.Error(w, h.Log, transitionErr(err))
		return
	}
	if err := h.Leads.SaveSale(ctx, lead, prev); err != nil {
		httpjson.Error(w, h.Log, transitionErr(err))
		return
	}
	h.applyAward(ctx, award)
	h.notifyCreator(ctx, lead, models.NotifLeadSold,
		"Lead sold",
		fmt.Sprintf("Your lead %s sold for %.2f.", lead.LeadID, req.SaleAmount))
	httpjson.OK(w, lead)
}

type superstarRequest struct {
	Reason        string `json:"reason"`
	PriorityLevel int    `json:"priority_level"`
	SpecialNotes  string `json:"special_notes"`
}

// MarkSuperstar handles POST /leads/{lead_id}/superstar.
func (h *Handler) MarkSuperstar(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	var req superstarRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if req.Reason == "" {
		httpjson.Error(w, h.Log, apperr.Validationf("a reason is required"))
		return
	}
	if req.PriorityLevel < 0 || req.PriorityLevel > 10 {
		httpjson.Error(w, h.Log, apperr.Validationf("priority_level must be between 0 and 10"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "mark lead superstar")
	defer cancel()

	lead, err := h.loadSuperstarable(ctx, r)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	prev := lead.Status
	award, err := leadflow.MarkSuperstar(lead, models.SuperstarInfo{
		Reason:        req.Reason,
		PriorityLevel: req.PriorityLevel,
		SpecialNotes:  req.SpecialNotes,
		MarkedBy:      actor.Username,
	}, time.Now())
	if err != nil {
		httpjson.Error(w, h.Log, transitionErr(err))
		return
	}
	if err := h.Leads.SaveTransition(ctx, lead, prev); err != nil {
		httpjson.Error(w, h.Log, transitionErr(err))
		return
	}
	h.applyAward(ctx, award)
	h.notifyCreator(ctx, lead, models.NotifLeadSuperstar,
		"Superstar lead",
		fmt.Sprintf("Your lead %s was flagged as a superstar.", lead.LeadID))
	httpjson.OK(w, lead)
}

type pendingLead struct {
	models.Lead
	Urgent bool `json:"urgent"`
}

// Pending handles GET /leads/pending: the approval queue, oldest first,
// with leads waiting more than a day flagged urgent.
func (h *Handler) Pending(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "pending leads")
	defer cancel()

	f, err := h.scopedFilter(ctx, actor)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	leads, err := h.Leads.Pending(ctx, f)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	cutoff := time.Now().Add(-pendingUrgencyAge)
	out := make([]pendingLead, 0, len(leads))
	urgent := 0
	for _, l := range leads {
		p := pendingLead{Lead: l, Urgent: l.CreatedAt.Before(cutoff)}
		if p.Urgent {
			urgent++
		}
		out = append(out, p)
	}
	httpjson.OK(w, map[string]any{"leads": out, "count": len(out), "urgent": urgent})
}

// loadReviewable fetches the lead and checks CanApprove.
func (h *Handler) loadReviewable(ctx context.Context, r *http.Request) (*models.Lead, error) {
	actor, _ := auth.CurrentUser(r)

	lead, err := h.loadRaw(ctx, r)
	if err != nil {
		return nil, err
	}
	if !leadpolicy.CanApprove(actor, lead, h.creatorManager(ctx, lead)) {
		return nil, apperr.Deniedf("not allowed to review this lead")
	}
	return lead, nil
}

// loadSuperstarable fetches the lead and checks CanMarkSuperstar.
func (h *Handler) loadSuperstarable(ctx context.Context, r *http.Request) (*models.Lead, error) {
	actor, _ := auth.CurrentUser(r)

	lead, err := h.loadRaw(ctx, r)
	if err != nil {
		return nil, err
	}
	if !leadpolicy.CanMarkSuperstar(actor, lead, h.creatorManager(ctx, lead)) {
		return nil, apperr.Deniedf("not allowed to flag this lead")
	}
	return lead, nil
}

// transitionErr maps leadflow and store sentinel errors onto conflict
// responses.
func transitionErr(err error) error {
	switch {
	case errors.Is(err, leadflow.ErrNotPending),
		errors.Is(err, leadflow.ErrCancelled),
		errors.Is(err, leadflow.ErrAlreadySold),
		errors.Is(err, leadstore.ErrStatusChanged):
		return apperr.Wrap(err, apperr.InvalidState, err.Error())
	default:
		return err
	}
}
