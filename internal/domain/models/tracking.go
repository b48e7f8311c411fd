package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Activity classifications derived from segment speed.
const (
	ActivityStationary = "stationary"
	ActivityWalking    = "walking"
	ActivityCycling    = "cycling"
	ActivityDriving    = "driving"
	ActivityMoving     = "moving"
	ActivityUnknown    = "unknown"
)

// PathPoint is one GPS fix in a live-tracking path.
type PathPoint struct {
	Latitude  float64   `bson:"latitude" json:"latitude"`
	Longitude float64   `bson:"longitude" json:"longitude"`
	Accuracy  float64   `bson:"accuracy,omitempty" json:"accuracy,omitempty"`
	Speed     float64   `bson:"speed,omitempty" json:"speed,omitempty"`
	Heading   float64   `bson:"heading,omitempty" json:"heading,omitempty"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// PathSegment summarizes the movement between two consecutive fixes.
type PathSegment struct {
	DistanceMeters float64   `bson:"distance_meters" json:"distance_meters"`
	DurationSecs   float64   `bson:"duration_seconds" json:"duration_seconds"`
	SpeedKmh       float64   `bson:"speed_kmh" json:"speed_kmh"`
	Activity       string    `bson:"activity" json:"activity"`
	StartedAt      time.Time `bson:"started_at" json:"started_at"`
}

// LiveTracking is the accumulated GPS path for one user's active work
// session. One document per (username, session).
type LiveTracking struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username       string             `bson:"username" json:"username"`
	OrganizationID string             `bson:"organization_id" json:"organization_id"`
	SessionID      string             `bson:"session_id" json:"session_id"`

	Path     []PathPoint   `bson:"path,omitempty" json:"path,omitempty"`
	Segments []PathSegment `bson:"segments,omitempty" json:"segments,omitempty"`

	TotalDistanceMeters float64 `bson:"total_distance_meters" json:"total_distance_meters"`
	CurrentActivity     string  `bson:"current_activity" json:"current_activity"`

	IsActive  bool      `bson:"is_active" json:"is_active"`
	StartedAt time.Time `bson:"started_at" json:"started_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
