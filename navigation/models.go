package navigation

import (
	"math"
	"slices"
	"time"
)

// GeographicCoordinate is a WGS84 longitude/latitude pair in decimal degrees.
type GeographicCoordinate struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// CourseOverGround is the direction in which the device is observed to be traveling.
type CourseOverGround struct {
	Degrees  uint16 `json:"degrees"`  // clockwise from true north (N = 0, E = 90, S = 180, W = 270)
	Accuracy uint16 `json:"accuracy"` // degrees
}

// NewCourseOverGround builds a course from a bearing in degrees, wrapping it into 0-359.
// A bearing that is not finite carries no heading and yields 0 degrees with an
// accuracy of 180.
func NewCourseOverGround(degrees float64, accuracy uint16) CourseOverGround {
	if math.IsNaN(degrees) || math.IsInf(degrees, 0) {
		return CourseOverGround{Accuracy: 180}
	}
	degrees = math.Mod(degrees, 360)
	if degrees < 0 {
		degrees += 360
	}
	return CourseOverGround{Degrees: uint16(math.Round(degrees)) % 360, Accuracy: accuracy}
}

// UserLocation is a single location fix reported by the device.
type UserLocation struct {
	Coordinates        GeographicCoordinate `json:"coordinates"`
	HorizontalAccuracy float64              `json:"horizontal_accuracy"` // meters
	CourseOverGround   *CourseOverGround    `json:"course_over_ground,omitempty"`
	Timestamp          time.Time            `json:"timestamp"`
}

// clone returns a copy that shares no memory with l.
func (l UserLocation) clone() UserLocation {
	if l.CourseOverGround != nil {
		cog := *l.CourseOverGround
		l.CourseOverGround = &cog
	}
	return l
}

// Route describes the series of steps needed to travel between two or more points.
type Route struct {
	Geometry []GeographicCoordinate `json:"geometry"`
	// Distance is the total route distance in meters.
	Distance float64 `json:"distance"`
	// Waypoints are the start/end points of the route legs, including the
	// origin. They are distinct from Geometry, which holds every point visited.
	Waypoints []GeographicCoordinate `json:"waypoints"`
	Steps     []RouteStep            `json:"steps"`
}

// Clone returns a deep copy of the route.
func (r Route) Clone() Route {
	steps := make([]RouteStep, len(r.Steps))
	for i, step := range r.Steps {
		steps[i] = step.Clone()
	}
	return Route{
		Geometry:  slices.Clone(r.Geometry),
		Distance:  r.Distance,
		Waypoints: slices.Clone(r.Waypoints),
		Steps:     steps,
	}
}

// RouteStep is a maneuver (such as a turn or merge) followed by travel of a
// certain distance until reaching the next step.
type RouteStep struct {
	Geometry []GeographicCoordinate `json:"geometry"`
	// Distance is the distance in meters to travel after the maneuver to reach the next step.
	Distance           float64              `json:"distance"`
	RoadName           *string              `json:"road_name,omitempty"`
	Instruction        string               `json:"instruction"`
	VisualInstructions []VisualInstructions `json:"visual_instructions"`
	SpokenInstructions []SpokenInstruction  `json:"spoken_instructions,omitempty"`
}

// Polyline derives the step geometry used for snapping and distance calculations.
func (s RouteStep) Polyline() Polyline {
	return NewPolyline(s.Geometry)
}

// Clone returns a deep copy of the step.
func (s RouteStep) Clone() RouteStep {
	out := s
	out.Geometry = slices.Clone(s.Geometry)
	if s.RoadName != nil {
		name := *s.RoadName
		out.RoadName = &name
	}
	if s.VisualInstructions != nil {
		out.VisualInstructions = make([]VisualInstructions, len(s.VisualInstructions))
		for i, vi := range s.VisualInstructions {
			out.VisualInstructions[i] = vi.clone()
		}
	}
	out.SpokenInstructions = slices.Clone(s.SpokenInstructions)
	return out
}

// SpokenInstruction is an instruction meant to be synthesized by a TTS engine.
type SpokenInstruction struct {
	// Text is plain text which can be synthesized with a TTS engine.
	Text string `json:"text"`
	// SSML should be preferred by clients capable of understanding it.
	SSML *string `json:"ssml,omitempty"`
	// TriggerDistanceBeforeManeuver is how far (in meters) from the upcoming
	// maneuver the instruction should be spoken.
	TriggerDistanceBeforeManeuver float64 `json:"trigger_distance_before_maneuver"`
}

// VisualInstructionContent is one line of a banner instruction.
type VisualInstructionContent struct {
	Text                  string            `json:"text"`
	ManeuverType          *ManeuverType     `json:"maneuver_type,omitempty"`
	ManeuverModifier      *ManeuverModifier `json:"maneuver_modifier,omitempty"`
	RoundaboutExitDegrees *uint16           `json:"roundabout_exit_degrees,omitempty"`
}

// VisualInstructions is a banner shown ahead of a maneuver.
type VisualInstructions struct {
	PrimaryContent   VisualInstructionContent  `json:"primary_content"`
	SecondaryContent *VisualInstructionContent `json:"secondary_content,omitempty"`
	// TriggerDistanceBeforeManeuver is how far (in meters) from the upcoming
	// maneuver the banner should start being displayed.
	TriggerDistanceBeforeManeuver float64 `json:"trigger_distance_before_maneuver"`
}

func (v VisualInstructions) clone() VisualInstructions {
	out := v
	out.PrimaryContent = v.PrimaryContent.clone()
	if v.SecondaryContent != nil {
		sc := v.SecondaryContent.clone()
		out.SecondaryContent = &sc
	}
	return out
}

func (c VisualInstructionContent) clone() VisualInstructionContent {
	out := c
	if c.ManeuverType != nil {
		mt := *c.ManeuverType
		out.ManeuverType = &mt
	}
	if c.ManeuverModifier != nil {
		mm := *c.ManeuverModifier
		out.ManeuverModifier = &mm
	}
	if c.RoundaboutExitDegrees != nil {
		deg := *c.RoundaboutExitDegrees
		out.RoundaboutExitDegrees = &deg
	}
	return out
}
