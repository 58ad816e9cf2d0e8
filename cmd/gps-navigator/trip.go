package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"

	"github.com/Bucknalla/go-gps-navigator/internal/ui"
	"github.com/Bucknalla/go-gps-navigator/navigation"
	"github.com/Bucknalla/go-gps-navigator/osrm"
)

// loadRoute reads an OSRM route response and picks one of its routes.
func loadRoute(path string, index int) (navigation.Route, error) {
	routes, err := osrm.ParseRouteFile(path)
	if err != nil {
		return navigation.Route{}, err
	}
	if index < 0 || index >= len(routes) {
		return navigation.Route{}, fmt.Errorf("route %d not found, %s has %d routes", index, path, len(routes))
	}
	route := routes[index]
	if len(route.Geometry) == 0 {
		return navigation.Route{}, errors.New("route has no geometry")
	}
	return route, nil
}

// controllerConfig builds the controller config from the loaded
// configuration, with the strategy kind overridden when kind is set.
func controllerConfig(kind string) (navigation.NavigationControllerConfig, error) {
	if kind == "" {
		return cfg.ControllerConfig()
	}
	opts, err := cfg.StepAdvanceOptions()
	if err != nil {
		return navigation.NavigationControllerConfig{}, err
	}
	if opts.Kind, err = navigation.ParseStepAdvanceKind(kind); err != nil {
		return navigation.NavigationControllerConfig{}, err
	}
	return cfg.ControllerConfigFor(opts)
}

// startLocation places the traveler at the start of the route.
func startLocation(route navigation.Route, accuracy float64) navigation.UserLocation {
	return navigation.UserLocation{
		Coordinates:        route.Geometry[0],
		HorizontalAccuracy: accuracy,
		Timestamp:          time.Now(),
	}
}

func openSerial(port string, baudRate int) (serial.Port, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(port, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", port, err)
	}
	return p, nil
}

// tripPrinter feeds fixes to a controller and prints the results.
type tripPrinter struct {
	controller *navigation.NavigationController
	printer    *ui.Printer
	last       *navigation.UserLocation
	arrived    bool
}

func newTripPrinter(controller *navigation.NavigationController, out io.Writer, verbose bool) *tripPrinter {
	tp := &tripPrinter{
		controller: controller,
		printer:    ui.NewPrinter(out, verbose),
	}
	tp.printer.Print(controller.State())
	return tp
}

// update returns true once the trip has arrived.
func (tp *tripPrinter) update(location navigation.UserLocation) bool {
	if tp.arrived {
		return true
	}
	tp.last = &location
	update := tp.controller.UpdateUserLocation(location)
	tp.printer.Print(update)
	_, tp.arrived = update.(navigation.Arrived)
	return tp.arrived
}

// settle repeats the last fix, as a receiver parked at the destination would,
// so the remaining short steps at the end of the route can complete. It stops
// once the trip arrives or after one fix per step.
func (tp *tripPrinter) settle(steps int) bool {
	if tp.last == nil {
		return tp.arrived
	}
	for i := 0; i < steps && !tp.arrived; i++ {
		tp.update(*tp.last)
	}
	return tp.arrived
}
