package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Roughly a 1km x 1km square around the Jakarta office.
var officePolygon = Polygon{
	{Latitude: -6.200, Longitude: 106.800},
	{Latitude: -6.200, Longitude: 106.809},
	{Latitude: -6.209, Longitude: 106.809},
	{Latitude: -6.209, Longitude: 106.800},
}

func TestValidator_NoPolygonAlwaysValid(t *testing.T) {
	t.Parallel()
	v := NewValidator(50)

	result := v.Validate(Point{Latitude: 80, Longitude: -170}, nil, 10)
	assert.True(t, result.Valid)
	assert.Equal(t, ReasonNoGeofence, result.Reason)

	// Two vertices is not a polygon either.
	result = v.Validate(Point{}, officePolygon[:2], 10)
	assert.True(t, result.Valid)
	assert.Equal(t, ReasonNoGeofence, result.Reason)
}

func TestValidator_PoorAccuracyRejectedFirst(t *testing.T) {
	t.Parallel()
	v := NewValidator(50)

	// Point is well inside, but the fix itself is untrustworthy.
	result := v.Validate(Point{Latitude: -6.2045, Longitude: 106.8045}, officePolygon, 120)
	assert.False(t, result.Valid)
	assert.Equal(t, ReasonPoorGPSAccuracy, result.Reason)
}

func TestValidator_InsidePolygon(t *testing.T) {
	t.Parallel()
	v := NewValidator(50)

	result := v.Validate(Point{Latitude: -6.2045, Longitude: 106.8045}, officePolygon, 10)
	assert.True(t, result.Valid)
	assert.Equal(t, ReasonInside, result.Reason)
}

func TestValidator_OutsidePolygonReportsDistance(t *testing.T) {
	t.Parallel()
	v := NewValidator(50)

	// ~1km east of the eastern edge.
	result := v.Validate(Point{Latitude: -6.2045, Longitude: 106.818}, officePolygon, 10)
	assert.False(t, result.Valid)
	assert.Equal(t, ReasonOutside, result.Reason)
	assert.InDelta(t, 1000, result.DistanceToBoundaryMeters, 150)
}

func TestValidator_AccuracyBufferNearBoundary(t *testing.T) {
	t.Parallel()
	v := NewValidator(50)

	// ~20m east of the eastern edge: outside the raw polygon but within a
	// 30m accuracy radius, so the reading is accepted.
	nearEdge := Point{Latitude: -6.2045, Longitude: 106.80918}

	result := v.Validate(nearEdge, officePolygon, 30)
	assert.True(t, result.Valid)
	assert.Equal(t, ReasonInside, result.Reason)

	// The same reading with a tight 5m accuracy is rejected.
	result = v.Validate(nearEdge, officePolygon, 5)
	assert.False(t, result.Valid)
	assert.Equal(t, ReasonOutside, result.Reason)
	assert.Greater(t, result.DistanceToBoundaryMeters, 5.0)
}

func TestHaversineDistance(t *testing.T) {
	t.Parallel()

	// One degree of latitude is ~111km.
	d := HaversineDistance(0, 0, 1, 0)
	assert.InDelta(t, 111195, d, 200)

	assert.Zero(t, HaversineDistance(-6.2, 106.8, -6.2, 106.8))
}
