package geo_test

import (
	"math"
	"testing"
	"time"

	"github.com/canvashub/canvashub/internal/domain/geo"
	"github.com/canvashub/canvashub/internal/domain/models"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		want                   float64 // meters
		tol                    float64
	}{
		{"same point", 40.0, -88.0, 40.0, -88.0, 0, 0.01},
		{"one degree latitude", 0, 0, 1, 0, 111195, 200},
		{"champaign to chicago", 40.1164, -88.2434, 41.8781, -87.6298, 202000, 3000},
	}
	for _, tc := range tests {
		got := geo.Distance(tc.lat1, tc.lng1, tc.lat2, tc.lng2)
		if math.Abs(got-tc.want) > tc.tol {
			t.Errorf("%s: got %.1f m, want %.1f ± %.1f", tc.name, got, tc.want, tc.tol)
		}
	}
}

func TestSpeedKmh(t *testing.T) {
	if got := geo.SpeedKmh(1000, time.Hour); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("1 km over 1 h: got %v, want 1", got)
	}
	if got := geo.SpeedKmh(100, 10*time.Second); math.Abs(got-36.0) > 1e-9 {
		t.Errorf("100 m over 10 s: got %v, want 36", got)
	}
	if got := geo.SpeedKmh(500, 0); got != 0 {
		t.Errorf("zero duration: got %v, want 0", got)
	}
}

func TestDetectActivity(t *testing.T) {
	tests := []struct {
		speed float64
		want  string
	}{
		{0, models.ActivityStationary},
		{1.5, models.ActivityWalking},
		{2.0, models.ActivityCycling},
		{14.9, models.ActivityCycling},
		{15.0, models.ActivityDriving},
		{80, models.ActivityDriving},
	}
	for _, tc := range tests {
		if got := geo.DetectActivity(tc.speed); got != tc.want {
			t.Errorf("DetectActivity(%v): got %s, want %s", tc.speed, got, tc.want)
		}
	}
}

func TestIsStationary(t *testing.T) {
	at := func(lat, lng float64) models.PathPoint {
		return models.PathPoint{Latitude: lat, Longitude: lng}
	}

	clustered := []models.PathPoint{at(40.0000, -88.0000), at(40.0001, -88.0001), at(40.0002, -88.0000)}
	if !geo.IsStationary(clustered) {
		t.Error("fixes within 50 m should be stationary")
	}

	// Roughly 1.1 km between first and last fix.
	moving := []models.PathPoint{at(40.00, -88.00), at(40.005, -88.00), at(40.01, -88.00)}
	if geo.IsStationary(moving) {
		t.Error("spread fixes should not be stationary")
	}

	if geo.IsStationary(clustered[:2]) {
		t.Error("fewer than three fixes never counts as stationary")
	}
}

func TestSegment(t *testing.T) {
	t0 := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	from := models.PathPoint{Latitude: 40.0, Longitude: -88.0, Timestamp: t0}
	to := models.PathPoint{Latitude: 40.001, Longitude: -88.0, Timestamp: t0.Add(60 * time.Second)}

	seg := geo.Segment(from, to)
	if math.Abs(seg.DistanceMeters-111.2) > 1.0 {
		t.Errorf("distance: got %.1f, want ~111.2", seg.DistanceMeters)
	}
	if seg.DurationSecs != 60 {
		t.Errorf("duration: got %v, want 60", seg.DurationSecs)
	}
	// ~111 m per minute is ~6.7 km/h, cycling range.
	if seg.Activity != models.ActivityCycling {
		t.Errorf("activity: got %s, want cycling", seg.Activity)
	}
	if !seg.StartedAt.Equal(t0) {
		t.Errorf("started_at: got %v, want %v", seg.StartedAt, t0)
	}
}
