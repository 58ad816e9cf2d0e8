package navigation

// tripState is the controller's internal lifecycle: *navigatingState while the
// trip is in progress, completeState once it is over. completeState is
// absorbing.
type tripState interface {
	isTripState()
}

type navigatingState struct {
	lastUserLocation    UserLocation
	snappedUserLocation UserLocation
	route               Route
	routeLine           Polyline
	// remainingWaypoints is a snapshot of route.Waypoints; visited waypoints
	// are not removed yet.
	remainingWaypoints []GeographicCoordinate
	// remainingSteps is never empty; the head is the current step.
	remainingSteps  []RouteStep
	currentStepLine Polyline
}

type completeState struct{}

func (*navigatingState) isTripState() {}

func (completeState) isTripState() {}

// newTripState seeds the lifecycle for route. A route without steps is
// already complete.
func newTripState(location UserLocation, route Route) tripState {
	if len(route.Steps) == 0 {
		return completeState{}
	}

	routeLine := NewPolyline(route.Geometry)
	return &navigatingState{
		lastUserLocation:    location.clone(),
		snappedUserLocation: SnapUserLocationToLine(location, routeLine),
		route:               route,
		routeLine:           routeLine,
		remainingWaypoints:  route.Waypoints,
		remainingSteps:      route.Steps,
		currentStepLine:     route.Steps[0].Polyline(),
	}
}

// stepAdvanceStatus is the outcome of advanceStep.
type stepAdvanceStatus interface {
	isStepAdvanceStatus()
}

// stepAdvanced carries the new current step and its derived polyline.
type stepAdvanced struct {
	step RouteStep
	line Polyline
}

// endOfRoute means the last step was consumed.
type endOfRoute struct{}

func (stepAdvanced) isStepAdvanceStatus() {}

func (endOfRoute) isStepAdvanceStatus() {}

// advanceStep drops the head of steps and reports what is left to do along
// with the shortened slice.
func advanceStep(steps []RouteStep) (stepAdvanceStatus, []RouteStep) {
	if len(steps) <= 1 {
		return endOfRoute{}, nil
	}
	rest := steps[1:]
	return stepAdvanced{step: rest[0], line: rest[0].Polyline()}, rest
}

// advance applies advanceStep to s. It returns false when the route is
// exhausted; the caller must then switch to completeState before releasing
// the lock.
func (s *navigatingState) advance() bool {
	status, rest := advanceStep(s.remainingSteps)
	switch status := status.(type) {
	case stepAdvanced:
		s.remainingSteps = rest
		s.currentStepLine = status.line
		return true
	default:
		return false
	}
}

func (s *navigatingState) currentStep() RouteStep {
	return s.remainingSteps[0]
}

func (s *navigatingState) nextStep() *RouteStep {
	if len(s.remainingSteps) < 2 {
		return nil
	}
	return &s.remainingSteps[1]
}
