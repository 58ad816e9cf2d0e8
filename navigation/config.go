package navigation

// NavigationControllerConfig is fixed when the controller is created.
type NavigationControllerConfig struct {
	// StepAdvance decides when to move past the current step. Nil behaves
	// like ManualStepAdvance.
	StepAdvance StepAdvanceStrategy
	// StepDistance estimates CurrentStepRemainingDistance after a location
	// update. Nil reports zero.
	StepDistance StepDistanceEstimator
}

// DefaultNavigationControllerConfig advances 10 meters before the end of each step.
func DefaultNavigationControllerConfig() NavigationControllerConfig {
	return NavigationControllerConfig{
		StepAdvance: DistanceToEndOfStep{Distance: 10},
	}
}

// Validate checks the strategy parameters.
func (c NavigationControllerConfig) Validate() error {
	if c.StepAdvance == nil {
		return nil
	}
	return c.StepAdvance.validate()
}

func (c NavigationControllerConfig) stepAdvance() StepAdvanceStrategy {
	if c.StepAdvance == nil {
		return ManualStepAdvance{}
	}
	return c.StepAdvance
}

// StepDistanceEstimator computes how far the traveler still has to go on the
// current step.
type StepDistanceEstimator interface {
	RemainingDistance(location UserLocation, step RouteStep, stepLine Polyline) float64
}

// AlongStepDistance measures along the step geometry from the projection of
// the raw fix to the end of the step. It ignores curvature between vertices
// and is meant for display, not maneuver timing.
type AlongStepDistance struct{}

func (AlongStepDistance) RemainingDistance(location UserLocation, step RouteStep, stepLine Polyline) float64 {
	remaining, ok := stepLine.DistanceToEnd(location.Coordinates)
	if !ok {
		return step.Distance
	}
	return remaining
}
