package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Bucknalla/go-gps-navigator/gps"
	"github.com/Bucknalla/go-gps-navigator/internal/ui"
	"github.com/Bucknalla/go-gps-navigator/navigation"
)

var simulateFlags struct {
	route       string
	routeIndex  int
	replay      string
	serial      string
	baudRate    int
	speed       float64
	gpx         bool
	fast        bool
	stepAdvance string
	quiet       bool
	verbose     bool
}

var simulateCmd = &cobra.Command{
	Use:     "simulate --route <file>",
	Aliases: []string{"sim"},
	Short:   "Drive a trip with a simulated GPS receiver",
	Long: `Simulate a GPS receiver traveling along the route and report trip progress.

NMEA sentences are written to the serial port when one is given, so a
second device can follow the same simulated drive.`,
	Args: cobra.NoArgs,
	RunE: runSimulate,
}

func init() {
	f := simulateCmd.Flags()
	f.StringVarP(&simulateFlags.route, "route", "r", "", "OSRM route response (JSON)")
	f.IntVar(&simulateFlags.routeIndex, "route-index", 0, "Index of the route to follow in the response")
	f.StringVar(&simulateFlags.replay, "replay", "", "GPX file to replay instead of following the route")
	f.StringVarP(&simulateFlags.serial, "serial", "s", "", "Serial port for NMEA output (e.g., /dev/ttyUSB0, COM1)")
	f.IntVar(&simulateFlags.baudRate, "baud", 9600, "Serial port baud rate")
	f.Float64Var(&simulateFlags.speed, "speed", 20, "Travel speed in knots")
	f.BoolVar(&simulateFlags.gpx, "gpx", false, "Record the simulated track to a timestamp-named GPX file")
	f.BoolVar(&simulateFlags.fast, "fast", false, "Advance simulated time as fast as possible instead of in real time")
	f.StringVar(&simulateFlags.stepAdvance, "step-advance", "", "Step advance strategy (manual, distance_to_end_of_step, relative_line_string_distance)")
	f.BoolVarP(&simulateFlags.quiet, "quiet", "q", false, "Suppress info messages (only report trip progress)")
	f.BoolVarP(&simulateFlags.verbose, "verbose", "v", false, "Print every update, not only step changes")
	simulateCmd.MarkFlagRequired("route")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	flags := simulateFlags

	route, err := loadRoute(flags.route, flags.routeIndex)
	if err != nil {
		return err
	}
	navConfig, err := controllerConfig(flags.stepAdvance)
	if err != nil {
		return err
	}

	config := cfg.GPSConfig()
	if cmd.Flags().Changed("speed") {
		config.Speed = flags.speed
	}
	if cmd.Flags().Changed("serial") {
		config.SerialPort = flags.serial
	}
	if cmd.Flags().Changed("baud") {
		config.BaudRate = flags.baudRate
	}
	config.ReplayFile = flags.replay
	config.Quiet = flags.quiet
	if flags.gpx {
		if flags.fast {
			return errors.New("--gpx records wall clock time and cannot be combined with --fast")
		}
		config.GPXEnabled = true
		config.GPXFile = fmt.Sprintf("%s.gpx", time.Now().Format("20060102_150405"))
	}
	if flags.fast && config.Speed == 0 && config.ReplayFile == "" && config.Duration == 0 {
		return errors.New("--fast needs a non-zero speed or a duration")
	}

	sim, err := gps.NewSimulator(config, route.Geometry)
	if err != nil {
		return fmt.Errorf("failed to create simulator: %w", err)
	}

	info := cmd.ErrOrStderr()
	if config.Quiet {
		info = io.Discard
	}

	if config.SerialPort != "" {
		port, err := openSerial(config.SerialPort, config.BaudRate)
		if err != nil {
			return err
		}
		defer port.Close()
		sim.SetNMEAWriter(port)
		fmt.Fprintf(info, "Opened serial port: %s at %d baud\n", config.SerialPort, config.BaudRate)
	}

	fmt.Fprintf(info, "Route: %s", ui.FormatRoute(route))
	if config.ReplayFile != "" {
		fmt.Fprintf(info, "Replaying %s at %.1fx\n", config.ReplayFile, config.ReplaySpeed)
	} else {
		fmt.Fprintf(info, "Speed: %.1f knots\n", config.Speed)
	}
	fmt.Fprintf(info, "Step advance: %s\n", navConfig.StepAdvance.Kind())
	if config.GPXEnabled {
		fmt.Fprintf(info, "GPX output: %s\n", config.GPXFile)
	}

	controller := navigation.NewNavigationController(startLocation(route, config.HorizontalAccuracy), route, navConfig)
	trip := newTripPrinter(controller, cmd.OutOrStdout(), flags.verbose)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flags.fast {
		now := time.Now()
		end := now.Add(config.Duration)
		for ctx.Err() == nil {
			now = now.Add(config.OutputRate)
			if location, ok := sim.Tick(now).Location(); ok && trip.update(location) {
				break
			}
			if sim.GetStatus().Completed || (config.Duration > 0 && !now.Before(end)) {
				break
			}
		}
	} else {
		arrived := make(chan struct{})
		var once sync.Once
		sim.AddCallback(func(fix gps.Fix) {
			if location, ok := fix.Location(); ok && trip.update(location) {
				once.Do(func() { close(arrived) })
			}
		})

		if err := sim.Start(); err != nil {
			return fmt.Errorf("failed to start simulator: %w", err)
		}
		fmt.Fprintf(info, "\nPress Ctrl+C to stop\n\n")

		select {
		case <-arrived:
		case <-sim.Done():
		case <-ctx.Done():
		}
		if err := sim.Stop(); err != nil && !errors.Is(err, gps.ErrSimulatorNotRunning) {
			return err
		}
		<-sim.Done()
	}

	if ctx.Err() != nil {
		fmt.Fprintln(info, "Interrupted")
		return nil
	}
	if !trip.settle(len(route.Steps)) {
		fmt.Fprintln(info, "Simulation ended before arrival")
	}
	return nil
}
