package navigation

import "errors"

// Errors returned by configuration validation and model decoding. The
// controller itself never returns errors.
var (
	ErrInvalidAdvanceDistance     = errors.New("step advance distance must be non-negative")
	ErrInvalidHorizontalAccuracy  = errors.New("minimum horizontal accuracy must be non-negative")
	ErrUnknownStepAdvanceStrategy = errors.New("unknown step advance strategy")
	ErrUnknownManeuverType        = errors.New("unknown maneuver type")
	ErrUnknownManeuverModifier    = errors.New("unknown maneuver modifier")
)
