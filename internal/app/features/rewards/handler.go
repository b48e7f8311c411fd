// Package rewards serves the point store: the catalog admins curate and
// the redemptions users spend their points on. Points move through the
// user ledger; stock moves through conditional updates so the last unit
// cannot be claimed twice.
package rewards

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/canvashub/canvashub/internal/app/policy/contentpolicy"
	blobstore "github.com/canvashub/canvashub/internal/app/store/blobs"
	counterstore "github.com/canvashub/canvashub/internal/app/store/counters"
	notificationstore "github.com/canvashub/canvashub/internal/app/store/notifications"
	rewardstore "github.com/canvashub/canvashub/internal/app/store/rewards"
	userstore "github.com/canvashub/canvashub/internal/app/store/users"
	"github.com/canvashub/canvashub/internal/app/system/apperr"
	"github.com/canvashub/canvashub/internal/app/system/auth"
	"github.com/canvashub/canvashub/internal/app/system/httpjson"
	"github.com/canvashub/canvashub/internal/app/system/timeouts"
	"github.com/canvashub/canvashub/internal/domain/models"
)

// Allowed redemption status transitions set by admins. Cancelled is
// terminal and refunds; delivered is terminal without refund.
var redemptionStatuses = map[string]bool{
	models.RedemptionApproved:  true,
	models.RedemptionShipped:   true,
	models.RedemptionDelivered: true,
	models.RedemptionCancelled: true,
}

// Handler holds dependencies for the point store endpoints.
type Handler struct {
	Rewards  *rewardstore.Store
	Users    *userstore.Store
	Blobs    *blobstore.Store
	Counters *counterstore.Store
	Notify   *notificationstore.Dispatcher
	Log      *zap.Logger
}

func NewHandler(rewards *rewardstore.Store, users *userstore.Store, blobs *blobstore.Store, counters *counterstore.Store, notify *notificationstore.Dispatcher, logger *zap.Logger) *Handler {
	return &Handler{Rewards: rewards, Users: users, Blobs: blobs, Counters: counters, Notify: notify, Log: logger}
}

type imagePayload struct {
	ContentType string `json:"content_type"`
	Data        string `json:"data"` // base64
}

type rewardRequest struct {
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	Category       string         `json:"category"`
	PointsRequired int            `json:"points_required"`
	StockQuantity  *int           `json:"stock_quantity"`
	Featured       bool           `json:"featured"`
	Status         string         `json:"status"`
	Images         []imagePayload `json:"images"`
}

// Create handles POST /rewards. Admin tier only.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	var req rewardRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if err := validateReward(&req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	orgID := actor.OrganizationID
	if orgID == "" || !contentpolicy.CanManageRewards(actor, orgID) {
		httpjson.Error(w, h.Log, apperr.Deniedf("not allowed to manage rewards"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "create reward")
	defer cancel()

	rewardID, err := h.Counters.NextScopedID(ctx, counterstore.KindReward, orgID)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	imageIDs := make([]string, 0, len(req.Images))
	for _, img := range req.Images {
		id, err := h.Blobs.Put(ctx, orgID, models.BlobRewardImage, rewardID, img.ContentType, img.Data, actor.Username)
		if err != nil {
			httpjson.Error(w, h.Log, err)
			return
		}
		imageIDs = append(imageIDs, id)
	}

	reward, err := h.Rewards.Create(ctx, models.Reward{
		RewardID:       rewardID,
		OrganizationID: orgID,
		Name:           req.Name,
		Description:    req.Description,
		Category:       req.Category,
		PointsRequired: req.PointsRequired,
		StockQuantity:  req.StockQuantity,
		IsFeatured:     req.Featured,
		Status:         req.Status,
		ImageIDs:       imageIDs,
		CreatedBy:      actor.Username,
	})
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Created(w, reward)
}

// List handles GET /rewards: the catalog, featured first then cheapest.
// Non-admins see active items only.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	orgID := actor.OrganizationID
	if orgID == "" {
		orgID = r.URL.Query().Get("org_id")
	}
	if orgID == "" || !contentpolicy.CanViewOrgContent(actor, orgID) {
		httpjson.Error(w, h.Log, apperr.Deniedf("the point store is organization-scoped"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list rewards")
	defer cancel()

	activeOnly := !contentpolicy.CanManageRewards(actor, orgID)
	rewards, err := h.Rewards.ListByOrg(ctx, orgID, activeOnly)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.OK(w, map[string]any{"rewards": rewards, "count": len(rewards)})
}

// Get handles GET /rewards/{reward_id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get reward")
	defer cancel()

	reward, err := h.loadViewable(ctx, r)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.OK(w, reward)
}

// Update handles PUT /rewards/{reward_id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if err := validateReward(&req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "update reward")
	defer cancel()

	reward, err := h.loadManaged(ctx, r)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	err = h.Rewards.Update(ctx, reward.RewardID, rewardstore.Update{
		Name:           req.Name,
		Description:    req.Description,
		Category:       req.Category,
		PointsRequired: req.PointsRequired,
		StockQuantity:  req.StockQuantity,
		Status:         req.Status,
		IsFeatured:     req.Featured,
	})
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.OK(w, map[string]string{"status": "updated"})
}

// Delete handles DELETE /rewards/{reward_id}. Existing redemption records
// stay; they carry the reward name.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "delete reward")
	defer cancel()

	reward, err := h.loadManaged(ctx, r)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	if _, err := h.Rewards.Delete(ctx, reward.RewardID); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if _, err := h.Blobs.DeleteByOwner(ctx, models.BlobRewardImage, reward.RewardID); err != nil {
		h.Log.Warn("reward image cleanup failed", zap.String("reward_id", reward.RewardID), zap.Error(err))
	}
	httpjson.OK(w, map[string]string{"status": "deleted"})
}

// Redeem handles POST /rewards/{reward_id}/redeem. Points come off the
// balance first; if the stock take then fails the deduction is refunded.
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "redeem reward")
	defer cancel()

	reward, err := h.loadViewable(ctx, r)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if reward.Status != models.RewardActive {
		httpjson.Error(w, h.Log, apperr.Invalidf("reward %q is not available", reward.RewardID))
		return
	}
	if !reward.InStock() {
		httpjson.Error(w, h.Log, apperr.Invalidf("reward %q is out of stock", reward.RewardID))
		return
	}

	balance, err := h.Users.DeductPoints(ctx, actor.Username, reward.PointsRequired,
		"Redeemed reward: "+reward.Name, actor.Username)
	if err != nil {
		if errors.Is(err, userstore.ErrInsufficientPoints) {
			httpjson.Error(w, h.Log, apperr.Invalidf("not enough points for %q", reward.Name))
			return
		}
		httpjson.Error(w, h.Log, err)
		return
	}

	if err := h.Rewards.TakeStock(ctx, reward.RewardID); err != nil {
		if _, refundErr := h.Users.RefundPoints(ctx, actor.Username, reward.PointsRequired,
			"Refund: "+reward.Name+" out of stock", actor.Username); refundErr != nil {
			h.Log.Error("refund after failed stock take",
				zap.String("username", actor.Username), zap.Error(refundErr))
		}
		if errors.Is(err, rewardstore.ErrOutOfStock) {
			httpjson.Error(w, h.Log, apperr.Invalidf("reward %q is out of stock", reward.RewardID))
			return
		}
		httpjson.Error(w, h.Log, err)
		return
	}

	redemptionID, err := h.Counters.NextScopedID(ctx, counterstore.KindRedemption, reward.OrganizationID)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	redemption, err := h.Rewards.CreateRedemption(ctx, models.Redemption{
		RedemptionID:   redemptionID,
		OrganizationID: reward.OrganizationID,
		RewardID:       reward.RewardID,
		RewardName:     reward.Name,
		Username:       actor.Username,
		PointsSpent:    reward.PointsRequired,
	})
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	h.notifyAdmins(ctx, reward.OrganizationID, &redemption)
	httpjson.Created(w, map[string]any{
		"redemption":       redemption,
		"remaining_points": balance,
	})
}

// MyRedemptions handles GET /rewards/redemptions/mine.
func (h *Handler) MyRedemptions(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "my redemptions")
	defer cancel()

	redemptions, err := h.Rewards.ListRedemptions(ctx, "", actor.Username)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.OK(w, map[string]any{"redemptions": redemptions, "count": len(redemptions)})
}

// Redemptions handles GET /rewards/redemptions: the org-wide fulfillment
// queue. Admin tier only.
func (h *Handler) Redemptions(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	orgID := actor.OrganizationID
	if orgID == "" {
		orgID = r.URL.Query().Get("org_id")
	}
	if orgID == "" || !contentpolicy.CanManageRewards(actor, orgID) {
		httpjson.Error(w, h.Log, apperr.Deniedf("not allowed to view the fulfillment queue"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list redemptions")
	defer cancel()

	redemptions, err := h.Rewards.ListRedemptions(ctx, orgID, r.URL.Query().Get("username"))
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.OK(w, map[string]any{"redemptions": redemptions, "count": len(redemptions)})
}

type statusRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// SetRedemptionStatus handles PUT /rewards/redemptions/{redemption_id}/status.
// Cancelling refunds the points and returns the stock unit.
func (h *Handler) SetRedemptionStatus(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	var req statusRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if !redemptionStatuses[req.Status] {
		httpjson.Error(w, h.Log, apperr.Validationf("status must be approved, shipped, delivered, or cancelled"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "update redemption")
	defer cancel()

	redemptionID := chi.URLParam(r, "redemption_id")
	redemption, err := h.Rewards.GetRedemption(ctx, redemptionID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.Error(w, h.Log, apperr.NotFoundf("redemption %q not found", redemptionID))
			return
		}
		httpjson.Error(w, h.Log, err)
		return
	}
	if !contentpolicy.CanManageRewards(actor, redemption.OrganizationID) {
		httpjson.Error(w, h.Log, apperr.Deniedf("not allowed to update redemptions"))
		return
	}

	err = h.Rewards.SetRedemptionStatus(ctx, redemptionID, req.Status, actor.Username, req.Notes)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// The store refuses updates on cancelled redemptions.
			httpjson.Error(w, h.Log, apperr.Invalidf("redemption %q is cancelled", redemptionID))
			return
		}
		httpjson.Error(w, h.Log, err)
		return
	}

	if req.Status == models.RedemptionCancelled {
		if _, err := h.Users.RefundPoints(ctx, redemption.Username, redemption.PointsSpent,
			"Redemption cancelled: "+redemption.RewardName, actor.Username); err != nil {
			h.Log.Error("refund on cancellation failed",
				zap.String("redemption_id", redemptionID), zap.Error(err))
		}
		if err := h.Rewards.ReturnStock(ctx, redemption.RewardID); err != nil {
			h.Log.Warn("stock return failed", zap.String("reward_id", redemption.RewardID), zap.Error(err))
		}
	}

	h.Notify.Send(ctx, models.Notification{
		OrganizationID: redemption.OrganizationID,
		Title:          "Redemption " + req.Status,
		Message:        redemption.RewardName + " is now " + req.Status,
		Type:           models.NotifRedemptionState,
		Recipients:     []string{redemption.Username},
		Data:           map[string]string{"redemption_id": redemptionID},
	})
	httpjson.OK(w, map[string]string{"status": req.Status})
}

// MyPoints handles GET /rewards/points/mine: balance plus ledger.
func (h *Handler) MyPoints(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "my points")
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, actor.Username)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.OK(w, map[string]any{
		"username": u.Username,
		"points":   u.Points,
		"history":  u.PointsHistory,
	})
}

// Analytics handles GET /rewards/analytics: catalog size and redemption
// totals for the org. Admin tier only.
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	orgID := actor.OrganizationID
	if orgID == "" {
		orgID = r.URL.Query().Get("org_id")
	}
	if orgID == "" || !contentpolicy.CanManageRewards(actor, orgID) {
		httpjson.Error(w, h.Log, apperr.Deniedf("not allowed to view store analytics"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "reward analytics")
	defer cancel()

	rewards, err := h.Rewards.ListByOrg(ctx, orgID, false)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	stats, err := h.Rewards.StatsByOrg(ctx, orgID)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	active := 0
	for _, rw := range rewards {
		if rw.Status == models.RewardActive {
			active++
		}
	}
	httpjson.OK(w, map[string]any{
		"total_rewards":         len(rewards),
		"active_rewards":        active,
		"total_redemptions":     stats.Total,
		"pending_redemptions":   stats.Pending,
		"cancelled_redemptions": stats.Cancelled,
		"points_spent":          stats.PointsSpent,
	})
}

func validateReward(req *rewardRequest) error {
	if req.Name == "" {
		return apperr.Validationf("name is required")
	}
	if req.PointsRequired <= 0 {
		return apperr.Validationf("points_required must be positive")
	}
	if req.StockQuantity != nil && *req.StockQuantity < 0 {
		return apperr.Validationf("stock_quantity must not be negative")
	}
	if req.Status == "" {
		req.Status = models.RewardActive
	}
	if req.Status != models.RewardActive && req.Status != models.RewardInactive {
		return apperr.Validationf("status must be active or inactive")
	}
	return nil
}

func (h *Handler) notifyAdmins(ctx context.Context, orgID string, redemption *models.Redemption) {
	users, err := h.Users.List(ctx, userstore.ListFilter{OrgID: orgID, ActiveOnly: true})
	if err != nil {
		h.Log.Warn("admin lookup for redemption notice failed", zap.Error(err))
		return
	}
	var recipients []string
	for _, u := range users {
		if u.Role.AdminTier() {
			recipients = append(recipients, u.Username)
		}
	}
	h.Notify.Send(ctx, models.Notification{
		OrganizationID: orgID,
		Title:          "Reward redeemed",
		Message:        redemption.Username + " redeemed " + redemption.RewardName,
		Type:           models.NotifRewardRedeemed,
		Recipients:     recipients,
		Data:           map[string]string{"redemption_id": redemption.RedemptionID},
	})
}

func (h *Handler) loadViewable(ctx context.Context, r *http.Request) (*models.Reward, error) {
	actor, _ := auth.CurrentUser(r)
	rewardID := chi.URLParam(r, "reward_id")

	reward, err := h.Rewards.GetByRewardID(ctx, rewardID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFoundf("reward %q not found", rewardID)
		}
		return nil, err
	}
	if !contentpolicy.CanViewOrgContent(actor, reward.OrganizationID) {
		return nil, apperr.NotFoundf("reward %q not found", rewardID)
	}
	return reward, nil
}

func (h *Handler) loadManaged(ctx context.Context, r *http.Request) (*models.Reward, error) {
	actor, _ := auth.CurrentUser(r)

	reward, err := h.loadViewable(ctx, r)
	if err != nil {
		return nil, err
	}
	if !contentpolicy.CanManageRewards(actor, reward.OrganizationID) {
		return nil, apperr.Deniedf("not allowed to manage rewards")
	}
	return reward, nil
}
