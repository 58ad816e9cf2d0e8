package osrm

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/Bucknalla/go-gps-navigator/navigation"
)

// DefaultPolylinePrecision matches the geometries=polyline6 request parameter
// used by navigation clients.
const DefaultPolylinePrecision = 6

type options struct {
	precision int
}

// Option changes how a response is decoded.
type Option func(*options)

// WithPolylinePrecision sets the precision of encoded polyline geometries.
func WithPolylinePrecision(precision int) Option {
	return func(o *options) { o.precision = precision }
}

// ParseRouteResponse decodes a route service response into navigation routes,
// in the order returned by the service.
func ParseRouteResponse(r io.Reader, opts ...Option) ([]navigation.Route, error) {
	var resp RouteResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode route response: %w", err)
	}
	return resp.NavigationRoutes(opts...)
}

// ParseRouteFile reads a route response from a JSON file.
func ParseRouteFile(path string, opts ...Option) ([]navigation.Route, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open route file: %w", err)
	}
	defer f.Close()
	return ParseRouteResponse(f, opts...)
}

// NavigationRoutes converts the response. Steps of all legs are flattened
// into a single list.
func (resp RouteResponse) NavigationRoutes(opts ...Option) ([]navigation.Route, error) {
	o := options{precision: DefaultPolylinePrecision}
	for _, opt := range opts {
		opt(&o)
	}

	if resp.Code != "Ok" {
		if resp.Message != "" {
			return nil, fmt.Errorf("%w: %s: %s", ErrRouteService, resp.Code, resp.Message)
		}
		return nil, fmt.Errorf("%w: %s", ErrRouteService, resp.Code)
	}
	if len(resp.Routes) == 0 {
		return nil, ErrNoRoutes
	}

	waypoints := make([]navigation.GeographicCoordinate, len(resp.Waypoints))
	for i, wp := range resp.Waypoints {
		waypoints[i] = coordinate(wp.Location)
	}

	routes := make([]navigation.Route, 0, len(resp.Routes))
	for i, route := range resp.Routes {
		converted, err := convertRoute(route, waypoints, o)
		if err != nil {
			return nil, fmt.Errorf("route %d: %w", i, err)
		}
		routes = append(routes, converted)
	}
	return routes, nil
}

func convertRoute(route Route, waypoints []navigation.GeographicCoordinate, o options) (navigation.Route, error) {
	geometry, err := route.Geometry.decode(o.precision)
	if err != nil {
		return navigation.Route{}, err
	}

	var steps []navigation.RouteStep
	for li, leg := range route.Legs {
		for si, step := range leg.Steps {
			converted, err := convertStep(step, o)
			if err != nil {
				return navigation.Route{}, fmt.Errorf("leg %d step %d: %w", li, si, err)
			}
			steps = append(steps, converted)
		}
	}

	return navigation.Route{
		Geometry:  geometry,
		Distance:  route.Distance,
		Waypoints: append([]navigation.GeographicCoordinate(nil), waypoints...),
		Steps:     steps,
	}, nil
}

func convertStep(step RouteStep, o options) (navigation.RouteStep, error) {
	geometry, err := step.Geometry.decode(o.precision)
	if err != nil {
		return navigation.RouteStep{}, err
	}

	out := navigation.RouteStep{
		Geometry:    geometry,
		Distance:    step.Distance,
		Instruction: step.Maneuver.Instruction,
	}
	if step.Name != "" {
		name := step.Name
		out.RoadName = &name
	}
	if out.Instruction == "" {
		out.Instruction = instructionText(step.Maneuver, step.Name)
	}

	for _, banner := range step.BannerInstructions {
		visual := navigation.VisualInstructions{
			PrimaryContent:                bannerContent(banner.Primary),
			TriggerDistanceBeforeManeuver: banner.DistanceAlongGeometry,
		}
		if banner.Secondary != nil {
			secondary := bannerContent(*banner.Secondary)
			visual.SecondaryContent = &secondary
		}
		out.VisualInstructions = append(out.VisualInstructions, visual)
	}

	for _, voice := range step.VoiceInstructions {
		spoken := navigation.SpokenInstruction{
			Text:                          voice.Announcement,
			TriggerDistanceBeforeManeuver: voice.DistanceAlongGeometry,
		}
		if voice.SSMLAnnouncement != "" {
			ssml := voice.SSMLAnnouncement
			spoken.SSML = &ssml
		}
		out.SpokenInstructions = append(out.SpokenInstructions, spoken)
	}

	return out, nil
}

// bannerContent drops maneuver types and modifiers outside the known
// vocabulary, such as "use lane", rather than failing the whole route.
func bannerContent(c BannerContent) navigation.VisualInstructionContent {
	out := navigation.VisualInstructionContent{Text: c.Text}
	if t := navigation.ManeuverType(c.Type); t.IsValid() {
		out.ManeuverType = &t
	}
	if m := navigation.ManeuverModifier(c.Modifier); m.IsValid() {
		out.ManeuverModifier = &m
	}
	if c.Degrees != nil && *c.Degrees >= 0 {
		deg := uint16(math.Round(*c.Degrees))
		out.RoundaboutExitDegrees = &deg
	}
	return out
}

// instructionText builds a plain instruction for responses without
// pre-rendered text, as returned by OSRM itself.
func instructionText(m StepManeuver, road string) string {
	onto := ""
	if road != "" {
		onto = " onto " + road
	}

	switch navigation.ManeuverType(m.Type) {
	case navigation.ManeuverDepart:
		if road != "" {
			return "Head out on " + road
		}
		return "Depart"
	case navigation.ManeuverArrive:
		return "You have arrived at your destination"
	case navigation.ManeuverRoundabout, navigation.ManeuverRotary:
		if m.Exit > 0 {
			return fmt.Sprintf("Enter the roundabout and take exit %d%s", m.Exit, onto)
		}
		return "Enter the roundabout" + onto
	}

	text := m.Type
	if text == "" || text == string(navigation.ManeuverNewName) {
		text = "continue"
	}
	if m.Modifier != "" {
		text += " " + m.Modifier
	}
	return strings.ToUpper(text[:1]) + text[1:] + onto
}

// ParseCoord parses a "lat,lon" pair as typed on a command line.
func ParseCoord(s string) (navigation.GeographicCoordinate, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return navigation.GeographicCoordinate{}, fmt.Errorf("%w: %q, expected lat,lon", ErrInvalidCoordinate, s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return navigation.GeographicCoordinate{}, fmt.Errorf("%w: latitude %q", ErrInvalidCoordinate, parts[0])
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return navigation.GeographicCoordinate{}, fmt.Errorf("%w: longitude %q", ErrInvalidCoordinate, parts[1])
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return navigation.GeographicCoordinate{}, fmt.Errorf("%w: %q out of range", ErrInvalidCoordinate, s)
	}
	return navigation.GeographicCoordinate{Lng: lng, Lat: lat}, nil
}

func coordinate(lngLat [2]float64) navigation.GeographicCoordinate {
	return navigation.GeographicCoordinate{Lng: lngLat[0], Lat: lngLat[1]}
}

func (g Geometry) decode(precision int) ([]navigation.GeographicCoordinate, error) {
	if g.Encoded != "" {
		return DecodePolyline(g.Encoded, precision)
	}
	coords := make([]navigation.GeographicCoordinate, len(g.Coordinates))
	for i, c := range g.Coordinates {
		coords[i] = coordinate(c)
	}
	return coords, nil
}
