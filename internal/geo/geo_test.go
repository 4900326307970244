package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineKm(t *testing.T) {
	paris := Point{Lat: 48.8566, Lng: 2.3522}
	lyon := Point{Lat: 45.7640, Lng: 4.8357}

	assert.InDelta(t, 391.5, HaversineKm(paris, lyon), 1.0)
	assert.InDelta(t, 391.5, HaversineKm(lyon, paris), 1.0)
	assert.Zero(t, HaversineKm(paris, paris))
}

func TestHaversineKm_OneDegreeLatitude(t *testing.T) {
	d := HaversineKm(Point{Lat: 50, Lng: 2}, Point{Lat: 51, Lng: 2})
	assert.InDelta(t, 111.19, d, 0.05)
}

func TestBoundingBox_ExpandsRadius(t *testing.T) {
	origin := Point{Lat: 50, Lng: 2}
	box := BoundingBox(origin, 20, 1.4)

	assert.InDelta(t, 50-28.0/111, box.MinLat, 1e-9)
	assert.InDelta(t, 50+28.0/111, box.MaxLat, 1e-9)
	assert.Greater(t, box.MaxLng-origin.Lng, box.MaxLat-origin.Lat, "longitude delta grows with latitude")
	assert.True(t, box.Contains(origin))
	assert.False(t, box.Contains(Point{Lat: 51, Lng: 2}))
}

func TestBoundingBox_CoversRadiusInEveryDirection(t *testing.T) {
	origin := Point{Lat: 50, Lng: 2}
	box := BoundingBox(origin, 20, 1)
	// a point 19.9 km due east must be inside even without expansion
	east := Point{Lat: 50, Lng: 2 + 19.9/(111*0.6428)}
	assert.True(t, box.Contains(east))
}

func TestBoundingBox_Pole(t *testing.T) {
	box := BoundingBox(Point{Lat: 90, Lng: 0}, 10, 1.4)
	assert.Equal(t, -180.0, box.MinLng)
	assert.Equal(t, 180.0, box.MaxLng)
}

func TestPointValid(t *testing.T) {
	assert.True(t, Point{Lat: 50, Lng: 2}.Valid())
	assert.False(t, Point{Lat: 91, Lng: 2}.Valid())
	assert.False(t, Point{Lat: 0, Lng: -181}.Valid())
}

func TestRound1(t *testing.T) {
	assert.Equal(t, 12.3, Round1(12.34))
	assert.Equal(t, 12.4, Round1(12.36))
	assert.Equal(t, 5.0, Round1(4.99))
}
