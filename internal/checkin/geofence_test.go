package checkin

import (
	"math"
	"testing"

	"checkin/internal/session"
)

func TestHaversineKnownDistance(t *testing.T) {
	// Congonhas airport to Guarulhos airport, roughly 28.25 km
	// great-circle (the ~34 km between them is by road).
	d := Haversine(-23.6261, -46.6564, -23.4356, -46.4731)
	if math.Abs(d-28250) > 500 {
		t.Fatalf("expected ~28.25km, got %.0fm", d)
	}

	if d := Haversine(10, 20, 10, 20); d != 0 {
		t.Fatalf("distance to self should be 0, got %g", d)
	}
}

func TestInsideGeofenceBoundary(t *testing.T) {
	fence := &session.Geofence{Lat: 0, Lng: 0, RadiusM: 100}

	// ~99.9m north of the reference: inside.
	if !InsideGeofence(fence, 0.000899, 0, 0) {
		t.Fatal("point ~99.9m away should be inside a 100m fence")
	}
	// ~100.2m north: outside.
	if InsideGeofence(fence, 0.000901, 0, 0) {
		t.Fatal("point ~100.2m away should be outside a 100m fence")
	}

	// A point at exactly the radius counts as inside (<= tie-break).
	lat := 0.0009
	exact := &session.Geofence{Lat: 0, Lng: 0, RadiusM: Haversine(0, 0, lat, 0)}
	if !InsideGeofence(exact, lat, 0, 0) {
		t.Fatal("point exactly on the boundary should be inside")
	}
}

func TestInsideGeofenceDefaultRadius(t *testing.T) {
	fence := &session.Geofence{Lat: 0, Lng: 0}

	// Package fallback when neither the session nor the caller sets one.
	if !InsideGeofence(fence, 0.0008, 0, 0) {
		t.Fatal("~89m should be inside the 100m package default")
	}
	if InsideGeofence(fence, 0.0012, 0, 0) {
		t.Fatal("~133m should be outside the 100m package default")
	}

	// A configured default overrides the package one.
	if InsideGeofence(fence, 0.0008, 0, 50) {
		t.Fatal("~89m should be outside a 50m configured default")
	}
	if !InsideGeofence(fence, 0.0008, 0, 150) {
		t.Fatal("~89m should be inside a 150m configured default")
	}

	// A session-configured radius always wins over the default.
	sized := &session.Geofence{Lat: 0, Lng: 0, RadiusM: 100}
	if InsideGeofence(sized, 0.0012, 0, 500) {
		t.Fatal("session radius should take precedence over the default")
	}
}
