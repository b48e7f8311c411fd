// Package geo holds the GPS math for live tracking: haversine distance,
// segment speed, stationary detection, and activity classification.
package geo

import (
	"math"
	"time"

	"github.com/canvashub/canvashub/internal/domain/models"
)

const earthRadiusMeters = 6371000

// Speed thresholds in km/h for activity classification.
const (
	walkingMaxKmh = 2.0
	cyclingMaxKmh = 15.0
)

// stationaryRadiusMeters bounds the pairwise spread of recent fixes for
// a user to count as stationary.
const stationaryRadiusMeters = 50.0

// Distance returns the haversine great-circle distance in meters between
// two coordinates.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// SpeedKmh converts meters covered over a duration to km/h. Zero or
// negative durations yield zero rather than an infinite speed.
func SpeedKmh(meters float64, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return meters / d.Seconds() * 3.6
}

// DetectActivity classifies a speed into an activity bucket.
func DetectActivity(speedKmh float64) string {
	switch {
	case speedKmh <= 0:
		return models.ActivityStationary
	case speedKmh < walkingMaxKmh:
		return models.ActivityWalking
	case speedKmh < cyclingMaxKmh:
		return models.ActivityCycling
	default:
		return models.ActivityDriving
	}
}

// IsStationary reports whether the last three fixes all sit within the
// stationary radius of each other. Fewer than three fixes never counts as
// stationary.
func IsStationary(path []models.PathPoint) bool {
	if len(path) < 3 {
		return false
	}
	recent := path[len(path)-3:]
	for i := 0; i < len(recent); i++ {
		for j := i + 1; j < len(recent); j++ {
			d := Distance(recent[i].Latitude, recent[i].Longitude, recent[j].Latitude, recent[j].Longitude)
			if d >= stationaryRadiusMeters {
				return false
			}
		}
	}
	return true
}

// Segment builds the movement summary between two consecutive fixes.
func Segment(from, to models.PathPoint) models.PathSegment {
	meters := Distance(from.Latitude, from.Longitude, to.Latitude, to.Longitude)
	dur := to.Timestamp.Sub(from.Timestamp)
	speed := SpeedKmh(meters, dur)
	return models.PathSegment{
		DistanceMeters: meters,
		DurationSecs:   dur.Seconds(),
		SpeedKmh:       speed,
		Activity:       DetectActivity(speed),
		StartedAt:      from.Timestamp,
	}
}
