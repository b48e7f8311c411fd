package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CompetitionType selects the metric a competition ranks on.
type CompetitionType string

const (
	CompMostLeads    CompetitionType = "most_leads"
	CompMostApproved CompetitionType = "most_approved"
	CompMostSold     CompetitionType = "most_sold"
	CompHighestValue CompetitionType = "highest_value"
)

// ParseCompetitionType validates a competition type string.
func ParseCompetitionType(s string) (CompetitionType, bool) {
	switch CompetitionType(s) {
	case CompMostLeads, CompMostApproved, CompMostSold, CompHighestValue:
		return CompetitionType(s), true
	}
	return "", false
}

// Competition status values. Status is derived from the clock at read time
// except for the terminal completed/cancelled states, which are stored.
const (
	CompStatusUpcoming  = "upcoming"
	CompStatusActive    = "active"
	CompStatusCompleted = "completed"
	CompStatusCancelled = "cancelled"
)

// Participant selection modes.
const (
	SelectAll      = "all"
	SelectRoles    = "roles"
	SelectSpecific = "specific"
)

// LeaderboardEntry is one ranked row in a competition leaderboard.
type LeaderboardEntry struct {
	Username string  `bson:"username" json:"username"`
	FullName string  `bson:"full_name,omitempty" json:"full_name,omitempty"`
	Role     string  `bson:"role,omitempty" json:"role,omitempty"`
	Score    float64 `bson:"score" json:"score"`
	Rank     int     `bson:"rank" json:"rank"`
}

// Competition is an org-scoped contest over a date window.
type Competition struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CompetitionID  string             `bson:"competition_id" json:"competition_id"`
	OrganizationID string             `bson:"organization_id" json:"organization_id"`

	Title            string          `bson:"title" json:"title"`
	Description      string          `bson:"description,omitempty" json:"description,omitempty"`
	Type             CompetitionType `bson:"type" json:"type"`
	StartDate        time.Time       `bson:"start_date" json:"start_date"`
	EndDate          time.Time       `bson:"end_date" json:"end_date"`
	PrizeDescription string          `bson:"prize_description,omitempty" json:"prize_description,omitempty"`
	PrizePoints      int             `bson:"prize_points" json:"prize_points"`

	TargetRoles          []string `bson:"target_roles,omitempty" json:"target_roles,omitempty"`
	MinParticipants      int      `bson:"min_participants" json:"min_participants"`
	SelectionMode        string   `bson:"participant_selection_mode" json:"participant_selection_mode"`
	SelectedParticipants []string `bson:"selected_participants,omitempty" json:"selected_participants,omitempty"`

	Status           string             `bson:"status" json:"status"`
	Winner           string             `bson:"winner,omitempty" json:"winner,omitempty"`
	FinalLeaderboard []LeaderboardEntry `bson:"final_leaderboard,omitempty" json:"final_leaderboard,omitempty"`
	CompletedAt      *time.Time         `bson:"completed_at,omitempty" json:"completed_at,omitempty"`

	CreatedBy   string     `bson:"created_by" json:"created_by"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
	CancelledAt *time.Time `bson:"cancelled_at,omitempty" json:"cancelled_at,omitempty"`
	CancelledBy string     `bson:"cancelled_by,omitempty" json:"cancelled_by,omitempty"`
}
