package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Bucknalla/go-gps-navigator/gps"
	"github.com/Bucknalla/go-gps-navigator/navigation"
)

var followFlags struct {
	route       string
	routeIndex  int
	serial      string
	baudRate    int
	input       string
	stepAdvance string
	verbose     bool
}

var followCmd = &cobra.Command{
	Use:     "follow --route <file> (--serial <port> | --input <file>)",
	Aliases: []string{"f"},
	Short:   "Navigate a route with fixes from an NMEA receiver",
	Long: `Read NMEA sentences from a GPS receiver on a serial port, or from a
recorded log, and report trip progress until arrival.

Use --input - to read sentences from stdin.`,
	Args: cobra.NoArgs,
	RunE: runFollow,
}

func init() {
	f := followCmd.Flags()
	f.StringVarP(&followFlags.route, "route", "r", "", "OSRM route response (JSON)")
	f.IntVar(&followFlags.routeIndex, "route-index", 0, "Index of the route to follow in the response")
	f.StringVarP(&followFlags.serial, "serial", "s", "", "Serial port of the GPS receiver")
	f.IntVar(&followFlags.baudRate, "baud", 9600, "Serial port baud rate")
	f.StringVarP(&followFlags.input, "input", "i", "", "File of recorded NMEA sentences")
	f.StringVar(&followFlags.stepAdvance, "step-advance", "", "Step advance strategy (manual, distance_to_end_of_step, relative_line_string_distance)")
	f.BoolVarP(&followFlags.verbose, "verbose", "v", false, "Print every update, not only step changes")
	followCmd.MarkFlagRequired("route")
	followCmd.MarkFlagsMutuallyExclusive("serial", "input")
	rootCmd.AddCommand(followCmd)
}

func runFollow(cmd *cobra.Command, args []string) error {
	flags := followFlags

	route, err := loadRoute(flags.route, flags.routeIndex)
	if err != nil {
		return err
	}
	navConfig, err := controllerConfig(flags.stepAdvance)
	if err != nil {
		return err
	}

	source, err := openSource(cmd, flags.serial, flags.input, flags.baudRate)
	if err != nil {
		return err
	}
	closeSource := sync.OnceFunc(func() { source.Close() })
	defer closeSource()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	// A blocking read only returns once the source is closed.
	go func() {
		<-ctx.Done()
		closeSource()
	}()

	controller := navigation.NewNavigationController(startLocation(route, 0), route, navConfig)
	trip := newTripPrinter(controller, cmd.OutOrStdout(), flags.verbose)

	receiver := gps.NewReceiver(source)
	err = receiver.Run(ctx, func(location navigation.UserLocation) {
		if trip.update(location) {
			cancel()
		}
	})

	if skipped := receiver.Skipped(); skipped > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Skipped %d undecodable lines\n", skipped)
	}
	if trip.arrived {
		return nil
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to read NMEA input: %w", err)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Input ended before arrival")
	return nil
}

// openSource opens the NMEA input. The serial port falls back to the one in
// the configuration.
func openSource(cmd *cobra.Command, port, input string, baudRate int) (io.ReadCloser, error) {
	switch {
	case input == "-":
		return io.NopCloser(cmd.InOrStdin()), nil
	case input != "":
		f, err := os.Open(input)
		if err != nil {
			return nil, fmt.Errorf("failed to open NMEA input: %w", err)
		}
		return f, nil
	}

	if port == "" {
		port = cfg.Serial.Port
	}
	if port == "" {
		return nil, errors.New("one of --serial or --input is required")
	}
	if !cmd.Flags().Changed("baud") {
		baudRate = cfg.Serial.BaudRate
	}
	p, err := openSerial(port, baudRate)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Opened serial port: %s at %d baud\n", port, baudRate)
	return p, nil
}
