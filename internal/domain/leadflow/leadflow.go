// Package leadflow holds the lead lifecycle rules: which status
// transitions are legal, what fields each transition writes, and what
// point award it triggers. Functions mutate the passed lead in place and
// return the award; persistence and ledger writes belong to the caller.
package leadflow

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/canvashub/canvashub/internal/domain/models"
	"github.com/canvashub/canvashub/internal/domain/roles"
)

var (
	ErrNotPending  = errors.New("lead is not pending")
	ErrCancelled   = errors.New("lead is cancelled")
	ErrAlreadySold = errors.New("lead is already sold")
)

// Point schedule.
const (
	CreationPoints = 10
	ApprovalPoints = 25

	// CommissionRate converts sale amount to points. The award is
	// truncated, never rounded up.
	CommissionRate = 0.01

	// SuperstarMultiplier scales priority level into bonus points.
	SuperstarMultiplier = 10
)

// PointAward is a pending ledger entry produced by a transition. A nil
// award means the transition grants no points.
type PointAward struct {
	Username string
	Points   int
	Reason   string
}

// InitialStatus returns the status a new lead starts in. Admin-tier
// creators produce leads that need no review.
func InitialStatus(creator roles.Role) models.LeadStatus {
	if creator.AdminTier() {
		return models.LeadApproved
	}
	return models.LeadPending
}

// Create fills lifecycle fields on a freshly built lead and returns the
// creation award. Canvassers and managers earn creation points; admin-tier
// creators self-approve and earn nothing. A canvasser's lead is routed to
// their manager.
func Create(lead *models.Lead, creator *models.User, now time.Time) *PointAward {
	lead.Status = InitialStatus(creator.Role)
	lead.CreatedBy = creator.Username
	lead.IsActive = true
	lead.CreatedAt = now
	lead.UpdatedAt = now

	switch {
	case creator.Role.AdminTier():
		lead.ApprovedBy = creator.Username
		lead.ApprovalTimestamp = &now
		return nil
	case creator.Role == roles.Canvasser:
		lead.AssignedManager = creator.ManagerID
	}
	return &PointAward{
		Username: creator.Username,
		Points:   CreationPoints,
		Reason:   fmt.Sprintf("Created lead: %s", lead.LeadID),
	}
}

// Approve moves a pending lead to approved and awards the creator.
func Approve(lead *models.Lead, approver string, notes string, now time.Time) (*PointAward, error) {
	if lead.Status != models.LeadPending {
		return nil, ErrNotPending
	}
	lead.Status = models.LeadApproved
	lead.ApprovedBy = approver
	lead.ApprovalTimestamp = &now
	lead.ApprovalNotes = notes
	lead.UpdatedAt = now
	return &PointAward{
		Username: lead.CreatedBy,
		Points:   ApprovalPoints,
		Reason:   fmt.Sprintf("Lead approved: %s", lead.LeadID),
	}, nil
}

// Reject cancels a pending lead. No points move; the creation award is
// intentionally not clawed back.
func Reject(lead *models.Lead, rejector string, reason string, now time.Time) error {
	if lead.Status != models.LeadPending {
		return ErrNotPending
	}
	lead.Status = models.LeadCancelled
	lead.ApprovedBy = rejector
	lead.RejectionReason = reason
	lead.UpdatedAt = now
	return nil
}

// MarkSold records a sale on any live, not-yet-sold lead and pays the
// creator a commission of floor(amount * CommissionRate) points. Amounts
// too small to yield a whole point award nothing.
func MarkSold(lead *models.Lead, soldBy string, amount float64, saleDate *time.Time, notes string, now time.Time) (*PointAward, error) {
	if lead.Status == models.LeadCancelled {
		return nil, ErrCancelled
	}
	if lead.Sold() {
		return nil, ErrAlreadySold
	}
	date := now
	if saleDate != nil {
		date = *saleDate
	}
	lead.SaleAmount = &amount
	lead.SaleDate = &date
	lead.SaleNotes = notes
	lead.SoldBy = soldBy
	if lead.Status != models.LeadSuperstar {
		lead.Status = models.LeadSold
	}
	lead.UpdatedAt = now

	commission := int(math.Floor(amount * CommissionRate))
	if commission <= 0 {
		return nil, nil
	}
	return &PointAward{
		Username: lead.CreatedBy,
		Points:   commission,
		Reason:   fmt.Sprintf("Commission for sold lead: %s", lead.LeadID),
	}, nil
}

// MarkSuperstar overlays superstar info on a live lead. Sale fields are
// preserved; a sold lead stays sold underneath the superstar flag. The
// creator earns priority_level * SuperstarMultiplier bonus points.
func MarkSuperstar(lead *models.Lead, info models.SuperstarInfo, now time.Time) (*PointAward, error) {
	if lead.Status == models.LeadCancelled {
		return nil, ErrCancelled
	}
	info.MarkedAt = now
	lead.Superstar = &info
	lead.Status = models.LeadSuperstar
	lead.UpdatedAt = now

	bonus := info.PriorityLevel * SuperstarMultiplier
	if bonus <= 0 {
		return nil, nil
	}
	return &PointAward{
		Username: lead.CreatedBy,
		Points:   bonus,
		Reason:   fmt.Sprintf("Superstar lead bonus: %s", lead.LeadID),
	}, nil
}
