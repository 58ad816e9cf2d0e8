package navigation

import (
	"fmt"
	"math"
)

// StepAdvanceStrategy decides whether the traveler has left the current step.
//
// Implementations are pure: they see the cached polyline of the current step,
// the step that follows it (nil on the last step) and the latest raw fix. The
// set of strategies is closed; pick one of ManualStepAdvance,
// DistanceToEndOfStep or RelativeLineStringDistance.
type StepAdvanceStrategy interface {
	ShouldAdvance(currentStep Polyline, nextStep *RouteStep, location UserLocation) bool
	Kind() StepAdvanceKind
	validate() error
}

// StepAdvanceKind names a StepAdvanceStrategy.
type StepAdvanceKind int

const (
	StepAdvanceManual StepAdvanceKind = iota + 1
	StepAdvanceDistanceToEndOfStep
	StepAdvanceRelativeLineStringDistance
)

func (k StepAdvanceKind) String() string {
	switch k {
	case StepAdvanceManual:
		return "manual"
	case StepAdvanceDistanceToEndOfStep:
		return "distance_to_end_of_step"
	case StepAdvanceRelativeLineStringDistance:
		return "relative_line_string_distance"
	default:
		return fmt.Sprintf("StepAdvanceKind(%d)", int(k))
	}
}

// ParseStepAdvanceKind is the inverse of StepAdvanceKind.String.
func ParseStepAdvanceKind(s string) (StepAdvanceKind, error) {
	for _, k := range []StepAdvanceKind{StepAdvanceManual, StepAdvanceDistanceToEndOfStep, StepAdvanceRelativeLineStringDistance} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStepAdvanceStrategy, s)
}

func (k StepAdvanceKind) MarshalText() ([]byte, error) {
	if _, err := ParseStepAdvanceKind(k.String()); err != nil {
		return nil, err
	}
	return []byte(k.String()), nil
}

func (k *StepAdvanceKind) UnmarshalText(text []byte) error {
	v, err := ParseStepAdvanceKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// ManualStepAdvance never advances on its own; the caller must invoke
// AdvanceToNextStep.
type ManualStepAdvance struct{}

func (ManualStepAdvance) ShouldAdvance(Polyline, *RouteStep, UserLocation) bool { return false }

func (ManualStepAdvance) Kind() StepAdvanceKind { return StepAdvanceManual }

func (ManualStepAdvance) validate() error { return nil }

// DistanceToEndOfStep advances once the fix is within Distance meters of the
// end of the current step, measured along the step geometry.
type DistanceToEndOfStep struct {
	// Distance is the threshold in meters.
	Distance float64
	// WidenByAccuracy adds the fix's horizontal accuracy to Distance.
	WidenByAccuracy bool
	// MinimumHorizontalAccuracy rejects fixes whose accuracy is worse than
	// this many meters. Zero disables the check.
	MinimumHorizontalAccuracy float64
}

func (s DistanceToEndOfStep) ShouldAdvance(currentStep Polyline, _ *RouteStep, location UserLocation) bool {
	if !accuracyAcceptable(location, s.MinimumHorizontalAccuracy) {
		return false
	}
	remaining, ok := currentStep.DistanceToEnd(location.Coordinates)
	if !ok {
		return false
	}

	threshold := s.Distance
	if s.WidenByAccuracy {
		threshold += math.Max(0, location.HorizontalAccuracy)
	}
	return remaining <= threshold
}

func (DistanceToEndOfStep) Kind() StepAdvanceKind { return StepAdvanceDistanceToEndOfStep }

func (s DistanceToEndOfStep) validate() error {
	if s.Distance < 0 || math.IsNaN(s.Distance) {
		return ErrInvalidAdvanceDistance
	}
	if s.MinimumHorizontalAccuracy < 0 || math.IsNaN(s.MinimumHorizontalAccuracy) {
		return ErrInvalidHorizontalAccuracy
	}
	return nil
}

// RelativeLineStringDistance advances when the fix is closer to the next
// step's geometry than to the current one, or when it is within
// AutomaticAdvanceDistance meters of the end of the current step. On the last
// step only the end distance applies.
type RelativeLineStringDistance struct {
	// MinimumHorizontalAccuracy rejects fixes whose accuracy is worse than
	// this many meters. Zero disables the check.
	MinimumHorizontalAccuracy float64
	AutomaticAdvanceDistance  float64
}

func (s RelativeLineStringDistance) ShouldAdvance(currentStep Polyline, nextStep *RouteStep, location UserLocation) bool {
	if !accuracyAcceptable(location, s.MinimumHorizontalAccuracy) {
		return false
	}
	remaining, ok := currentStep.DistanceToEnd(location.Coordinates)
	if !ok {
		return false
	}
	if remaining <= s.AutomaticAdvanceDistance {
		return true
	}
	if nextStep == nil {
		return false
	}

	currentDist, _ := currentStep.DistanceFrom(location.Coordinates)
	nextDist, ok := nextStep.Polyline().DistanceFrom(location.Coordinates)
	if !ok {
		return false
	}
	return nextDist < currentDist
}

func (RelativeLineStringDistance) Kind() StepAdvanceKind {
	return StepAdvanceRelativeLineStringDistance
}

func (s RelativeLineStringDistance) validate() error {
	if s.AutomaticAdvanceDistance < 0 || math.IsNaN(s.AutomaticAdvanceDistance) {
		return ErrInvalidAdvanceDistance
	}
	if s.MinimumHorizontalAccuracy < 0 || math.IsNaN(s.MinimumHorizontalAccuracy) {
		return ErrInvalidHorizontalAccuracy
	}
	return nil
}

func accuracyAcceptable(location UserLocation, minimum float64) bool {
	return minimum <= 0 || location.HorizontalAccuracy <= minimum
}

// StepAdvanceOptions is the flat, serializable form of a StepAdvanceStrategy.
// Fields that do not apply to Kind are ignored.
type StepAdvanceOptions struct {
	Kind                      StepAdvanceKind `json:"kind"`
	Distance                  float64         `json:"distance,omitempty"`
	WidenByAccuracy           bool            `json:"widen_by_accuracy,omitempty"`
	MinimumHorizontalAccuracy float64         `json:"minimum_horizontal_accuracy,omitempty"`
	AutomaticAdvanceDistance  float64         `json:"automatic_advance_distance,omitempty"`
}

// Strategy builds and validates the strategy described by o.
func (o StepAdvanceOptions) Strategy() (StepAdvanceStrategy, error) {
	var s StepAdvanceStrategy
	switch o.Kind {
	case StepAdvanceManual:
		s = ManualStepAdvance{}
	case StepAdvanceDistanceToEndOfStep:
		s = DistanceToEndOfStep{
			Distance:                  o.Distance,
			WidenByAccuracy:           o.WidenByAccuracy,
			MinimumHorizontalAccuracy: o.MinimumHorizontalAccuracy,
		}
	case StepAdvanceRelativeLineStringDistance:
		s = RelativeLineStringDistance{
			MinimumHorizontalAccuracy: o.MinimumHorizontalAccuracy,
			AutomaticAdvanceDistance:  o.AutomaticAdvanceDistance,
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStepAdvanceStrategy, o.Kind)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}
