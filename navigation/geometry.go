package navigation

import (
	"math"
	"slices"
)

const earthRadiusMeters = 6371000.0

// Polyline is an ordered coordinate sequence together with the cumulative
// great-circle length at each vertex. It is derived once per route or step and
// then reused for every location update.
type Polyline struct {
	coords     []GeographicCoordinate
	cumulative []float64 // meters from coords[0] to coords[i]
}

// NewPolyline builds a polyline from coords. The slice is copied.
func NewPolyline(coords []GeographicCoordinate) Polyline {
	p := Polyline{
		coords:     slices.Clone(coords),
		cumulative: make([]float64, len(coords)),
	}
	for i := 1; i < len(coords); i++ {
		p.cumulative[i] = p.cumulative[i-1] + HaversineDistance(coords[i-1], coords[i])
	}
	return p
}

// Coordinates returns a copy of the polyline vertices.
func (p Polyline) Coordinates() []GeographicCoordinate {
	return slices.Clone(p.coords)
}

func (p Polyline) Len() int {
	return len(p.coords)
}

// Length returns the total length of the polyline in meters.
func (p Polyline) Length() float64 {
	if len(p.cumulative) == 0 {
		return 0
	}
	return p.cumulative[len(p.cumulative)-1]
}

// LinePosition is the projection of a coordinate onto a polyline.
type LinePosition struct {
	Point    GeographicCoordinate
	Segment  int     // index of the first vertex of the segment holding Point
	Fraction float64 // position of Point within the segment, 0 to 1
}

// Project returns the point of p nearest to c, measured as planar distance in
// lng/lat space. When two segments are equally near, the earlier one wins.
// The second result is false for an empty polyline.
func (p Polyline) Project(c GeographicCoordinate) (LinePosition, bool) {
	switch len(p.coords) {
	case 0:
		return LinePosition{}, false
	case 1:
		return LinePosition{Point: p.coords[0]}, true
	}

	point, t := closestPointOnSegment(c, p.coords[0], p.coords[1])
	best := LinePosition{Point: point, Segment: 0, Fraction: t}
	bestDist := planarDistanceSquared(c, point)

	for i := 1; i < len(p.coords)-1; i++ {
		point, t := closestPointOnSegment(c, p.coords[i], p.coords[i+1])
		if d := planarDistanceSquared(c, point); d < bestDist {
			bestDist = d
			best = LinePosition{Point: point, Segment: i, Fraction: t}
		}
	}
	return best, true
}

// DistanceAlong returns the distance in meters from the start of p to pos.
func (p Polyline) DistanceAlong(pos LinePosition) float64 {
	if pos.Segment < 0 || pos.Segment >= len(p.coords)-1 {
		return 0
	}
	start := p.cumulative[pos.Segment]
	segLen := p.cumulative[pos.Segment+1] - start
	return start + pos.Fraction*segLen
}

// DistanceToEnd returns the distance in meters along p from the projection of
// c to the last vertex. The second result is false for an empty polyline.
func (p Polyline) DistanceToEnd(c GeographicCoordinate) (float64, bool) {
	pos, ok := p.Project(c)
	if !ok {
		return 0, false
	}
	return math.Max(0, p.Length()-p.DistanceAlong(pos)), true
}

// DistanceFrom returns the great-circle distance in meters from c to its
// projection onto p. The second result is false for an empty polyline.
func (p Polyline) DistanceFrom(c GeographicCoordinate) (float64, bool) {
	pos, ok := p.Project(c)
	if !ok {
		return 0, false
	}
	return HaversineDistance(c, pos.Point), true
}

// PointAt returns the point distance meters along p, clamped to its ends,
// together with the index of the segment holding it. The second result is
// false for an empty polyline.
func (p Polyline) PointAt(distance float64) (LinePosition, bool) {
	switch {
	case len(p.coords) == 0:
		return LinePosition{}, false
	case len(p.coords) == 1 || distance <= 0:
		return LinePosition{Point: p.coords[0]}, true
	case distance >= p.Length():
		last := len(p.coords) - 2
		return LinePosition{Point: p.coords[last+1], Segment: last, Fraction: 1}, true
	}

	i, _ := slices.BinarySearch(p.cumulative, distance)
	seg := max(i-1, 0)
	segLen := p.cumulative[seg+1] - p.cumulative[seg]
	if segLen == 0 {
		return LinePosition{Point: p.coords[seg], Segment: seg}, true
	}

	t := (distance - p.cumulative[seg]) / segLen
	a, b := p.coords[seg], p.coords[seg+1]
	return LinePosition{
		Point:    GeographicCoordinate{Lng: a.Lng + t*(b.Lng-a.Lng), Lat: a.Lat + t*(b.Lat-a.Lat)},
		Segment:  seg,
		Fraction: t,
	}, true
}

// SnapUserLocationToLine moves the location onto the nearest point of line.
// Accuracy, course and timestamp are kept as they are. An empty line leaves
// the location unchanged.
func SnapUserLocationToLine(location UserLocation, line Polyline) UserLocation {
	snapped := location.clone()
	if pos, ok := line.Project(location.Coordinates); ok {
		snapped.Coordinates = pos.Point
	}
	return snapped
}

// closestPointOnSegment projects c onto the segment a-b, clamping to the end
// points. Degenerate segments collapse to a.
func closestPointOnSegment(c, a, b GeographicCoordinate) (GeographicCoordinate, float64) {
	dx := b.Lng - a.Lng
	dy := b.Lat - a.Lat
	denom := dx*dx + dy*dy
	if denom == 0 {
		return a, 0
	}

	t := ((c.Lng-a.Lng)*dx + (c.Lat-a.Lat)*dy) / denom
	switch {
	case t <= 0:
		return a, 0
	case t >= 1:
		return b, 1
	}
	return GeographicCoordinate{Lng: a.Lng + t*dx, Lat: a.Lat + t*dy}, t
}

func planarDistanceSquared(a, b GeographicCoordinate) float64 {
	dx := a.Lng - b.Lng
	dy := a.Lat - b.Lat
	return dx*dx + dy*dy
}

// HaversineDistance returns the great-circle distance between a and b in meters.
func HaversineDistance(a, b GeographicCoordinate) float64 {
	lat1Rad := a.Lat * math.Pi / 180
	lat2Rad := b.Lat * math.Pi / 180
	deltaLat := (b.Lat - a.Lat) * math.Pi / 180
	deltaLon := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
