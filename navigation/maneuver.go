package navigation

import "fmt"

// ManeuverType indicates the type of maneuver to perform. Values follow the
// OSRM vocabulary and are frequently paired with a ManeuverModifier.
type ManeuverType string

const (
	ManeuverTurn           ManeuverType = "turn"
	ManeuverNewName        ManeuverType = "new name"
	ManeuverDepart         ManeuverType = "depart"
	ManeuverArrive         ManeuverType = "arrive"
	ManeuverMerge          ManeuverType = "merge"
	ManeuverOnRamp         ManeuverType = "on ramp"
	ManeuverOffRamp        ManeuverType = "off ramp"
	ManeuverFork           ManeuverType = "fork"
	ManeuverEndOfRoad      ManeuverType = "end of road"
	ManeuverContinue       ManeuverType = "continue"
	ManeuverRoundabout     ManeuverType = "roundabout"
	ManeuverRotary         ManeuverType = "rotary"
	ManeuverRoundaboutTurn ManeuverType = "roundabout turn"
	ManeuverNotification   ManeuverType = "notification"
	ManeuverExitRoundabout ManeuverType = "exit roundabout"
	ManeuverExitRotary     ManeuverType = "exit rotary"
)

func (t ManeuverType) IsValid() bool {
	switch t {
	case ManeuverTurn, ManeuverNewName, ManeuverDepart, ManeuverArrive, ManeuverMerge,
		ManeuverOnRamp, ManeuverOffRamp, ManeuverFork, ManeuverEndOfRoad, ManeuverContinue,
		ManeuverRoundabout, ManeuverRotary, ManeuverRoundaboutTurn, ManeuverNotification,
		ManeuverExitRoundabout, ManeuverExitRotary:
		return true
	default:
		return false
	}
}

func (t ManeuverType) MarshalText() ([]byte, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownManeuverType, string(t))
	}
	return []byte(t), nil
}

func (t *ManeuverType) UnmarshalText(text []byte) error {
	v := ManeuverType(text)
	if !v.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownManeuverType, string(text))
	}
	*t = v
	return nil
}

// ManeuverModifier specifies additional information about a ManeuverType.
type ManeuverModifier string

const (
	ModifierUTurn       ManeuverModifier = "uturn"
	ModifierSharpRight  ManeuverModifier = "sharp right"
	ModifierRight       ManeuverModifier = "right"
	ModifierSlightRight ManeuverModifier = "slight right"
	ModifierStraight    ManeuverModifier = "straight"
	ModifierSlightLeft  ManeuverModifier = "slight left"
	ModifierLeft        ManeuverModifier = "left"
	ModifierSharpLeft   ManeuverModifier = "sharp left"
)

func (m ManeuverModifier) IsValid() bool {
	switch m {
	case ModifierUTurn, ModifierSharpRight, ModifierRight, ModifierSlightRight,
		ModifierStraight, ModifierSlightLeft, ModifierLeft, ModifierSharpLeft:
		return true
	default:
		return false
	}
}

func (m ManeuverModifier) MarshalText() ([]byte, error) {
	if !m.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownManeuverModifier, string(m))
	}
	return []byte(m), nil
}

func (m *ManeuverModifier) UnmarshalText(text []byte) error {
	v := ManeuverModifier(text)
	if !v.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownManeuverModifier, string(text))
	}
	*m = v
	return nil
}
