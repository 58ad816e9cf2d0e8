package navigation

import (
	"log"
	"os"
	"slices"
	"sync"
)

// abort ends the process when the trip state can no longer be trusted.
// Replaced in tests.
var abort = func(msg string) {
	log.Print(msg)
	os.Exit(2)
}

// NavigationController manages the navigation lifecycle of a single trip.
//
// The lifecycle starts once a route has been selected and a location fix is
// known, and ends when every step has been consumed. Waiting for a fix,
// rerouting and cancellation are handled by the caller.
type NavigationController struct {
	mu       sync.Mutex
	state    tripState
	poisoned bool // a previous holder of mu panicked

	config NavigationControllerConfig
}

// NewNavigationController creates a controller for route starting at
// lastUserLocation. The route is copied; later changes by the caller are not
// observed. A route without steps yields a controller that has already arrived.
func NewNavigationController(lastUserLocation UserLocation, route Route, config NavigationControllerConfig) *NavigationController {
	return &NavigationController{
		state:  newTripState(lastUserLocation, route.Clone()),
		config: config,
	}
}

// lock acquires mu and returns the matching release function, which must be
// deferred. A panic between the two marks the state as poisoned before it
// propagates, and every later acquisition aborts the process.
func (c *NavigationController) lock() func() {
	c.mu.Lock()
	if c.poisoned {
		c.mu.Unlock()
		abort("navigation: trip state lock poisoned by an earlier panic, aborting")
		panic("navigation: trip state lock poisoned")
	}
	return func() {
		if r := recover(); r != nil {
			c.poisoned = true
			c.mu.Unlock()
			panic(r)
		}
		c.mu.Unlock()
	}
}

// State returns the current navigation state without changing it.
func (c *NavigationController) State() NavigationStateUpdate {
	defer c.lock()()

	s, ok := c.state.(*navigatingState)
	if !ok {
		return Arrived{}
	}
	step := s.currentStep()
	return c.navigating(s, step, step.Distance)
}

// AdvanceToNextStep moves to the next step regardless of the configured
// strategy, e.g. for a traveler in a tunnel without GPS reception. Calling it
// after arrival is harmless and returns Arrived.
func (c *NavigationController) AdvanceToNextStep() NavigationStateUpdate {
	defer c.lock()()

	s, ok := c.state.(*navigatingState)
	if !ok {
		return Arrived{}
	}
	if !s.advance() {
		c.state = completeState{}
		return Arrived{}
	}

	step := s.currentStep()
	return c.navigating(s, step, step.Distance)
}

// UpdateUserLocation records a new location fix and returns the resulting
// navigation state.
func (c *NavigationController) UpdateUserLocation(location UserLocation) NavigationStateUpdate {
	defer c.lock()()

	s, ok := c.state.(*navigatingState)
	if !ok {
		return Arrived{}
	}

	s.lastUserLocation = location.clone()
	if len(s.remainingSteps) == 0 {
		c.state = completeState{}
		return Arrived{}
	}

	s.snappedUserLocation = SnapUserLocationToLine(location, s.routeLine)

	// TODO: flag the traveler as off route once the snapped distance exceeds a
	// threshold that accounts for accuracy and travel mode.

	if c.config.stepAdvance().ShouldAdvance(s.currentStepLine, s.nextStep(), s.lastUserLocation) {
		if !s.advance() {
			c.state = completeState{}
			return Arrived{}
		}
	}

	step := s.currentStep()
	var remaining float64
	if c.config.StepDistance != nil {
		remaining = c.config.StepDistance.RemainingDistance(s.lastUserLocation, step, s.currentStepLine)
	}
	return c.navigating(s, step, remaining)
}

// navigating builds an update that shares no memory with s.
func (c *NavigationController) navigating(s *navigatingState, step RouteStep, remaining float64) Navigating {
	return Navigating{
		SnappedUserLocation:          s.snappedUserLocation.clone(),
		RemainingWaypoints:           slices.Clone(s.remainingWaypoints),
		CurrentStep:                  step.Clone(),
		CurrentStepRemainingDistance: remaining,
	}
}
