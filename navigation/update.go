package navigation

import "encoding/json"

// UpdateKind discriminates NavigationStateUpdate variants.
type UpdateKind string

const (
	UpdateNavigating UpdateKind = "navigating"
	UpdateArrived    UpdateKind = "arrived"
)

// NavigationStateUpdate is what the controller reports after every call. It
// is either Navigating or Arrived. Values are owned by the caller.
type NavigationStateUpdate interface {
	Kind() UpdateKind
	isNavigationStateUpdate()
}

// Navigating is reported while the trip is in progress.
type Navigating struct {
	SnappedUserLocation          UserLocation           `json:"snapped_user_location"`
	RemainingWaypoints           []GeographicCoordinate `json:"remaining_waypoints"`
	CurrentStep                  RouteStep              `json:"current_step"`
	CurrentStepRemainingDistance float64                `json:"current_step_remaining_distance"`
}

func (Navigating) Kind() UpdateKind { return UpdateNavigating }

func (Navigating) isNavigationStateUpdate() {}

func (n Navigating) MarshalJSON() ([]byte, error) {
	type body Navigating
	return json.Marshal(struct {
		Type UpdateKind `json:"type"`
		body
	}{Type: UpdateNavigating, body: body(n)})
}

// Arrived is terminal: the controller will never report anything else again.
type Arrived struct{}

func (Arrived) Kind() UpdateKind { return UpdateArrived }

func (Arrived) isNavigationStateUpdate() {}

func (Arrived) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type UpdateKind `json:"type"`
	}{Type: UpdateArrived})
}
