// Package osrm decodes OSRM and Mapbox Directions style route responses into
// navigation routes.
package osrm

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RouteResponse is the top level object of a route service response.
type RouteResponse struct {
	Code      string     `json:"code"`
	Message   string     `json:"message,omitempty"`
	Routes    []Route    `json:"routes"`
	Waypoints []Waypoint `json:"waypoints"`
}

// Waypoint is an input coordinate snapped to the street network.
type Waypoint struct {
	Name     string     `json:"name"`
	Location [2]float64 `json:"location"` // lng, lat
}

type Route struct {
	Distance float64    `json:"distance"` // meters
	Duration float64    `json:"duration"` // seconds
	Geometry Geometry   `json:"geometry"`
	Legs     []RouteLeg `json:"legs"`
}

type RouteLeg struct {
	Distance float64     `json:"distance"`
	Duration float64     `json:"duration"`
	Summary  string      `json:"summary"`
	Steps    []RouteStep `json:"steps"`
}

type RouteStep struct {
	Distance           float64             `json:"distance"`
	Duration           float64             `json:"duration"`
	Geometry           Geometry            `json:"geometry"`
	Name               string              `json:"name"`
	Mode               string              `json:"mode"`
	Maneuver           StepManeuver        `json:"maneuver"`
	BannerInstructions []BannerInstruction `json:"bannerInstructions"`
	VoiceInstructions  []VoiceInstruction  `json:"voiceInstructions"`
}

type StepManeuver struct {
	Location      [2]float64 `json:"location"`
	BearingBefore float64    `json:"bearing_before"`
	BearingAfter  float64    `json:"bearing_after"`
	Type          string     `json:"type"`
	Modifier      string     `json:"modifier,omitempty"`
	Exit          int        `json:"exit,omitempty"`
	Instruction   string     `json:"instruction,omitempty"`
}

// BannerInstruction is a Mapbox extension carrying text for a maneuver banner.
type BannerInstruction struct {
	DistanceAlongGeometry float64        `json:"distanceAlongGeometry"`
	Primary               BannerContent  `json:"primary"`
	Secondary             *BannerContent `json:"secondary,omitempty"`
}

type BannerContent struct {
	Text     string   `json:"text"`
	Type     string   `json:"type,omitempty"`
	Modifier string   `json:"modifier,omitempty"`
	Degrees  *float64 `json:"degrees,omitempty"`
}

// VoiceInstruction is a Mapbox extension carrying a spoken announcement.
type VoiceInstruction struct {
	DistanceAlongGeometry float64 `json:"distanceAlongGeometry"`
	Announcement          string  `json:"announcement"`
	SSMLAnnouncement      string  `json:"ssmlAnnouncement,omitempty"`
}

// Geometry is either a GeoJSON LineString or an encoded polyline string,
// depending on the geometries parameter of the request.
type Geometry struct {
	Coordinates [][2]float64 // lng, lat
	Encoded     string
}

type geoJSONLineString struct {
	Type        string       `json:"type"`
	Coordinates [][2]float64 `json:"coordinates"`
}

func (g *Geometry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*g = Geometry{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var encoded string
		if err := json.Unmarshal(data, &encoded); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
		}
		*g = Geometry{Encoded: encoded}
		return nil
	}

	var line geoJSONLineString
	if err := json.Unmarshal(data, &line); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	if line.Type != "LineString" {
		return fmt.Errorf("%w: unsupported GeoJSON type %q", ErrInvalidGeometry, line.Type)
	}
	*g = Geometry{Coordinates: line.Coordinates}
	return nil
}

func (g Geometry) MarshalJSON() ([]byte, error) {
	if g.Encoded != "" {
		return json.Marshal(g.Encoded)
	}
	coords := g.Coordinates
	if coords == nil {
		coords = [][2]float64{}
	}
	return json.Marshal(geoJSONLineString{Type: "LineString", Coordinates: coords})
}
