package navigation

import (
	"testing"
	"time"
)

// metersPerDegree is the length of one degree of longitude on the equator.
const metersPerDegree = earthRadiusMeters * 3.141592653589793 / 180

// equatorPoint returns the coordinate x meters east of (0, 0).
func equatorPoint(x float64) GeographicCoordinate {
	return GeographicCoordinate{Lng: x / metersPerDegree, Lat: 0}
}

func createTestLocation(c GeographicCoordinate) UserLocation {
	return UserLocation{
		Coordinates:        c,
		HorizontalAccuracy: 0,
		Timestamp:          time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

// createTestRoute lays out consecutive steps along the equator; lengths are in meters.
func createTestRoute(lengths ...float64) Route {
	var (
		route  Route
		offset float64
	)
	route.Geometry = append(route.Geometry, equatorPoint(0))
	route.Waypoints = append(route.Waypoints, equatorPoint(0))

	for i, length := range lengths {
		start := equatorPoint(offset)
		offset += length
		end := equatorPoint(offset)

		name := "Equator Road"
		route.Steps = append(route.Steps, RouteStep{
			Geometry:    []GeographicCoordinate{start, end},
			Distance:    length,
			RoadName:    &name,
			Instruction: "Continue " + string(rune('A'+i)),
			VisualInstructions: []VisualInstructions{{
				PrimaryContent:                VisualInstructionContent{Text: "Continue"},
				TriggerDistanceBeforeManeuver: length,
			}},
		})
		route.Geometry = append(route.Geometry, end)
		route.Distance += length
	}
	route.Waypoints = append(route.Waypoints, equatorPoint(offset))
	return route
}

func requireNavigating(t *testing.T, update NavigationStateUpdate) Navigating {
	t.Helper()
	nav, ok := update.(Navigating)
	if !ok {
		t.Fatalf("Expected Navigating update, got %T", update)
	}
	return nav
}

func requireArrived(t *testing.T, update NavigationStateUpdate) {
	t.Helper()
	if _, ok := update.(Arrived); !ok {
		t.Fatalf("Expected Arrived update, got %T", update)
	}
}
