package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Break types and statuses.
const (
	BreakLunch     = "lunch"
	BreakPersonal  = "personal"
	BreakSick      = "sick"
	BreakEmergency = "emergency"
	BreakOther     = "other"

	BreakActive    = "active"
	BreakCompleted = "completed"
	BreakCancelled = "cancelled"
)

// ValidBreakType reports whether s names a known break type.
func ValidBreakType(s string) bool {
	switch s {
	case BreakLunch, BreakPersonal, BreakSick, BreakEmergency, BreakOther:
		return true
	}
	return false
}

// Break is one pause embedded in a time session. At most one break per
// session may be active.
type Break struct {
	BreakID         string     `bson:"break_id" json:"break_id"`
	Type            string     `bson:"type" json:"type"`
	Status          string     `bson:"status" json:"status"`
	StartTime       time.Time  `bson:"start_time" json:"start_time"`
	EndTime         *time.Time `bson:"end_time,omitempty" json:"end_time,omitempty"`
	DurationMinutes float64    `bson:"duration_minutes" json:"duration_minutes"`
	Reason          string     `bson:"reason,omitempty" json:"reason,omitempty"`
	EndedBy         string     `bson:"ended_by,omitempty" json:"ended_by,omitempty"`
}

// TimeSession is one clock-in/clock-out span for a user. A user has at
// most one session with ClockOut == nil; sessions open longer than eight
// hours are closed by the auto clock-out sweep.
type TimeSession struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username       string             `bson:"username" json:"username"`
	OrganizationID string             `bson:"organization_id" json:"organization_id"`

	ClockIn  time.Time  `bson:"clock_in" json:"clock_in"`
	ClockOut *time.Time `bson:"clock_out,omitempty" json:"clock_out,omitempty"`

	TotalHours float64 `bson:"total_hours" json:"total_hours"`
	WorkHours  float64 `bson:"work_hours" json:"work_hours"`

	Breaks            []Break `bson:"breaks,omitempty" json:"breaks,omitempty"`
	TotalBreakMinutes float64 `bson:"total_break_minutes" json:"total_break_minutes"`
	OnBreak           bool    `bson:"on_break" json:"on_break"`

	AutoClockedOut bool      `bson:"auto_clocked_out" json:"auto_clocked_out"`
	Notes          string    `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updated_at"`
}

// ActiveBreak returns a pointer to the session's active break, or nil.
func (s *TimeSession) ActiveBreak() *Break {
	for i := range s.Breaks {
		if s.Breaks[i].Status == BreakActive {
			return &s.Breaks[i]
		}
	}
	return nil
}
