// Package ui renders navigation state for the terminal.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/Bucknalla/go-gps-navigator/navigation"
)

var faint = color.New(color.Faint)

// FormatDistance formats meters for display.
func FormatDistance(meters float64) string {
	switch {
	case meters < 0:
		return "0 m"
	case meters < 1000:
		return fmt.Sprintf("%.0f m", meters)
	default:
		return fmt.Sprintf("%.1f km", meters/1000)
	}
}

// FormatCoordinate formats a coordinate as "(lat, lng)".
func FormatCoordinate(c navigation.GeographicCoordinate) string {
	return fmt.Sprintf("(%.5f, %.5f)", c.Lat, c.Lng)
}

// FormatManeuver describes the maneuver of a banner, e.g. "turn right".
func FormatManeuver(content navigation.VisualInstructionContent) string {
	var parts []string
	if content.ManeuverType != nil {
		parts = append(parts, string(*content.ManeuverType))
	}
	if content.ManeuverModifier != nil {
		parts = append(parts, string(*content.ManeuverModifier))
	}
	if content.RoundaboutExitDegrees != nil {
		parts = append(parts, fmt.Sprintf("%d°", *content.RoundaboutExitDegrees))
	}
	return strings.Join(parts, " ")
}

// FormatStep formats a step instruction with its road name and length.
func FormatStep(step navigation.RouteStep) string {
	out := color.GreenString(step.Instruction)
	if step.RoadName != nil && *step.RoadName != "" {
		out += " " + color.CyanString(*step.RoadName)
	}
	if len(step.VisualInstructions) > 0 {
		if maneuver := FormatManeuver(step.VisualInstructions[0].PrimaryContent); maneuver != "" {
			out += " " + faint.Sprintf("[%s]", maneuver)
		}
	}
	return out + " " + faint.Sprint(FormatDistance(step.Distance))
}

// FormatUpdate formats a controller update on a single line.
func FormatUpdate(update navigation.NavigationStateUpdate) string {
	switch u := update.(type) {
	case navigation.Navigating:
		return fmt.Sprintf("%s %s - %s to go - %d waypoints left",
			faint.Sprint(FormatCoordinate(u.SnappedUserLocation.Coordinates)),
			color.GreenString(u.CurrentStep.Instruction),
			color.YellowString(FormatDistance(u.CurrentStepRemainingDistance)),
			len(u.RemainingWaypoints))
	case navigation.Arrived:
		return color.New(color.FgGreen, color.Bold).Sprint("Arrived at destination")
	default:
		return color.RedString("(unknown update)")
	}
}

// FormatRoute summarizes a route and lists its steps.
func FormatRoute(route navigation.Route) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s, %d steps\n", color.CyanString(FormatDistance(route.Distance)), len(route.Steps))
	for i, step := range route.Steps {
		fmt.Fprintf(&b, "  %2d. %s\n", i+1, FormatStep(step))
	}
	return b.String()
}

// Printer writes updates to w. Unless Verbose is set, only updates that
// change the current step are written.
type Printer struct {
	w       io.Writer
	Verbose bool

	lastStep *navigation.RouteStep
	arrived  bool
}

func NewPrinter(w io.Writer, verbose bool) *Printer {
	return &Printer{w: w, Verbose: verbose}
}

// Print writes update if it is worth showing and reports whether it did.
func (p *Printer) Print(update navigation.NavigationStateUpdate) bool {
	switch u := update.(type) {
	case navigation.Navigating:
		changed := p.lastStep == nil || !sameStep(*p.lastStep, u.CurrentStep)
		step := u.CurrentStep
		p.lastStep = &step
		if changed {
			fmt.Fprintf(p.w, "%s %s\n", color.New(color.Bold).Sprint("Next:"), FormatStep(step))
		}
		if !changed && !p.Verbose {
			return false
		}
	case navigation.Arrived:
		if p.arrived {
			return false
		}
		p.arrived = true
	}
	fmt.Fprintln(p.w, FormatUpdate(update))
	return true
}

func sameStep(a, b navigation.RouteStep) bool {
	return a.Instruction == b.Instruction && a.Distance == b.Distance && len(a.Geometry) == len(b.Geometry) &&
		(len(a.Geometry) == 0 || a.Geometry[0] == b.Geometry[0])
}
