package geo

import "math"

const earthRadiusMeters = 6371000

// Geofence decision reasons.
const (
	ReasonInside          = "INSIDE_GEOFENCE"
	ReasonOutside         = "OUTSIDE_GEOFENCE"
	ReasonNoGeofence      = "NO_GEOFENCE"
	ReasonPoorGPSAccuracy = "POOR_GPS_ACCURACY"
)

type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Polygon is an ordered ring of vertices. The closing edge from last vertex
// back to first is implicit. Fewer than three vertices means no geofence is
// configured.
type Polygon []Point

func (p Polygon) IsConfigured() bool { return len(p) >= 3 }

type Result struct {
	Valid  bool
	Reason string
	// DistanceToBoundaryMeters is the minimum distance from the point to any
	// polygon edge. Populated only on rejection, for diagnostics.
	DistanceToBoundaryMeters float64
}

// Validator decides whether a reported coordinate lies inside a tenant's
// geofence, tolerating normal GPS jitter near the boundary.
type Validator struct {
	maxAccuracyMeters float64
}

func NewValidator(maxAccuracyMeters float64) *Validator {
	return &Validator{maxAccuracyMeters: maxAccuracyMeters}
}

// Validate applies the gates in order: an untrustworthy GPS fix is rejected
// outright, an unconfigured geofence accepts unconditionally, and containment
// is tested with the accuracy radius as a boundary buffer so legitimate
// readings near the edge are not punished.
func (v *Validator) Validate(p Point, polygon Polygon, accuracyMeters float64) Result {
	if accuracyMeters > v.maxAccuracyMeters {
		return Result{Valid: false, Reason: ReasonPoorGPSAccuracy}
	}
	if !polygon.IsConfigured() {
		return Result{Valid: true, Reason: ReasonNoGeofence}
	}

	if containsWithBuffer(p, polygon, accuracyMeters) {
		return Result{Valid: true, Reason: ReasonInside}
	}
	return Result{
		Valid:                    false,
		Reason:                   ReasonOutside,
		DistanceToBoundaryMeters: distanceToBoundary(p, polygon),
	}
}

// containsWithBuffer runs ray casting on the raw point, then falls back to a
// boundary-distance check within the accuracy buffer.
func containsWithBuffer(p Point, polygon Polygon, accuracyMeters float64) bool {
	if pointInPolygon(p, polygon) {
		return true
	}
	return accuracyMeters > 0 && distanceToBoundary(p, polygon) <= accuracyMeters
}

// pointInPolygon implements the ray-casting rule: a point is inside when a
// ray cast toward positive longitude crosses the boundary an odd number of
// times.
func pointInPolygon(p Point, polygon Polygon) bool {
	inside := false
	n := len(polygon)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := polygon[i], polygon[j]
		crosses := (a.Latitude > p.Latitude) != (b.Latitude > p.Latitude)
		if !crosses {
			continue
		}
		xIntersect := (b.Longitude-a.Longitude)*(p.Latitude-a.Latitude)/(b.Latitude-a.Latitude) + a.Longitude
		if p.Longitude < xIntersect {
			inside = !inside
		}
	}
	return inside
}

// distanceToBoundary returns the minimum haversine distance in meters from
// the point to any polygon edge.
func distanceToBoundary(p Point, polygon Polygon) float64 {
	minDistance := math.Inf(1)
	n := len(polygon)
	for i := 0; i < n; i++ {
		d := distanceToSegment(p, polygon[i], polygon[(i+1)%n])
		if d < minDistance {
			minDistance = d
		}
	}
	return minDistance
}

// distanceToSegment projects the point onto the segment in the local planar
// approximation, then measures the haversine distance to the nearest point.
// Accurate enough at geofence scales (hundreds of meters).
func distanceToSegment(p, a, b Point) float64 {
	// Scale longitude by cos(latitude) so degrees are comparable.
	cosLat := math.Cos(p.Latitude * math.Pi / 180)

	ax, ay := a.Longitude*cosLat, a.Latitude
	bx, by := b.Longitude*cosLat, b.Latitude
	px, py := p.Longitude*cosLat, p.Latitude

	dx, dy := bx-ax, by-ay
	lengthSq := dx*dx + dy*dy

	t := 0.0
	if lengthSq > 0 {
		t = ((px-ax)*dx + (py-ay)*dy) / lengthSq
		t = math.Max(0, math.Min(1, t))
	}

	nearest := Point{
		Latitude:  ay + t*dy,
		Longitude: (ax + t*dx) / cosLat,
	}
	return HaversineDistance(p.Latitude, p.Longitude, nearest.Latitude, nearest.Longitude)
}

// HaversineDistance returns the great-circle distance between two coordinates
// in meters.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * (math.Pi / 180.0)
	dLon := (lon2 - lon1) * (math.Pi / 180.0)

	lat1Rad := lat1 * (math.Pi / 180.0)
	lat2Rad := lat2 * (math.Pi / 180.0)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1Rad)*math.Cos(lat2Rad)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}
