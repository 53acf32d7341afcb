package checkin

import (
	"math"

	"checkin/internal/session"
)

const (
	earthRadiusM = 6371000

	// DefaultGeofenceRadiusM applies when a session requires location
	// but has no radius configured.
	DefaultGeofenceRadiusM = 100
)

// Haversine returns the great-circle distance in meters between two
// coordinates.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// InsideGeofence classifies a captured coordinate against the session's
// geofence, falling back to defaultRadius (and then the package default)
// when the session has no radius configured. A point exactly on the
// boundary counts as inside.
func InsideGeofence(g *session.Geofence, lat, lng, defaultRadius float64) bool {
	radius := g.RadiusM
	if radius <= 0 {
		radius = defaultRadius
	}
	if radius <= 0 {
		radius = DefaultGeofenceRadiusM
	}
	return Haversine(g.Lat, g.Lng, lat, lng) <= radius
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
