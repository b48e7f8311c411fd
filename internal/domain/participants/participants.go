// Package participants resolves competition participant sets and derives
// competition status from the clock. It is pure; callers supply the
// candidate users.
package participants

import (
	"fmt"
	"time"

	"github.com/canvashub/canvashub/internal/domain/models"
	"github.com/canvashub/canvashub/internal/domain/roles"
)

// StatusAt derives the effective status of a competition at the given
// instant. Stored terminal states win; otherwise status follows the date
// window.
func StatusAt(c *models.Competition, now time.Time) string {
	switch c.Status {
	case models.CompStatusCompleted, models.CompStatusCancelled:
		return c.Status
	}
	if now.Before(c.StartDate) {
		return models.CompStatusUpcoming
	}
	// Past-window competitions stay active until completion-on-read
	// transitions them.
	return models.CompStatusActive
}

// Due reports whether the competition's window has closed and completion
// should run.
func Due(c *models.Competition, now time.Time) bool {
	return StatusAt(c, now) == models.CompStatusActive && now.After(c.EndDate)
}

// Eligible reports whether a user belongs to the competition's effective
// participant set. Candidates must already be scoped to the competition's
// organization by the caller. A stored specific list is honored as-is:
// deactivating a selected user later does not remove them, while the
// dynamic all/roles modes only ever match active users.
func Eligible(c *models.Competition, u *models.User) bool {
	switch c.SelectionMode {
	case models.SelectSpecific:
		for _, name := range c.SelectedParticipants {
			if name == u.Username {
				return true
			}
		}
		return false
	case models.SelectRoles:
		return u.IsActive && matchesRoles(c.TargetRoles, u.Role)
	default: // all
		if !u.IsActive {
			return false
		}
		if len(c.TargetRoles) == 0 {
			return true
		}
		return matchesRoles(c.TargetRoles, u.Role)
	}
}

func matchesRoles(targets []string, r roles.Role) bool {
	if len(targets) == 0 {
		return true
	}
	for _, t := range targets {
		if roles.Role(t) == r {
			return true
		}
	}
	return false
}

// Resolve filters candidates down to the effective participant set.
func Resolve(c *models.Competition, candidates []models.User) []models.User {
	out := make([]models.User, 0, len(candidates))
	for i := range candidates {
		if Eligible(c, &candidates[i]) {
			out = append(out, candidates[i])
		}
	}
	return out
}

// ValidateSpecific checks a specific-mode participant list at write time:
// every name must resolve to an active user in the competition's
// organization, and the list must satisfy the minimum. Later user changes
// do not invalidate the stored list.
func ValidateSpecific(c *models.Competition, selected []string, lookup map[string]*models.User) error {
	if len(selected) < c.MinParticipants {
		return fmt.Errorf("competition requires at least %d participants, got %d", c.MinParticipants, len(selected))
	}
	for _, name := range selected {
		u, ok := lookup[name]
		if !ok || u == nil {
			return fmt.Errorf("participant %q not found", name)
		}
		if !u.IsActive {
			return fmt.Errorf("participant %q is deactivated", name)
		}
		if u.OrganizationID != c.OrganizationID {
			return fmt.Errorf("participant %q is not in this organization", name)
		}
	}
	return nil
}

// CheckMinimum enforces the participant floor for all/roles modes against
// the resolved set size.
func CheckMinimum(c *models.Competition, resolved int) error {
	if resolved < c.MinParticipants {
		return fmt.Errorf("competition requires at least %d participants, got %d", c.MinParticipants, resolved)
	}
	return nil
}
