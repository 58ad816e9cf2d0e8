package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Bucknalla/go-gps-navigator/gps"
)

var testRoutePath = filepath.Join("..", "..", "osrm", "testdata", "route.json")

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// execute runs the root command with args, starting from default flag values.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	for _, c := range append([]*cobra.Command{rootCmd}, rootCmd.Commands()...) {
		c.Flags().VisitAll(reset)
		c.PersistentFlags().VisitAll(reset)
	}

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err = rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestRootCmd_Metadata(t *testing.T) {
	if rootCmd.Use != "gps-navigator" {
		t.Errorf("Expected Use 'gps-navigator', got %q", rootCmd.Use)
	}
	if !strings.Contains(rootCmd.Long, "Examples:") {
		t.Error("Expected examples in Long")
	}
	if rootCmd.PersistentFlags().Lookup("config") == nil {
		t.Error("Expected persistent config flag")
	}

	for _, name := range []string{"simulate", "follow", "serve", "version"} {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("Expected subcommand %s to be registered", name)
		}
	}
}

func TestSimulateCmd_Flags(t *testing.T) {
	tests := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"route", "r", ""},
		{"serial", "s", ""},
		{"speed", "", "20"},
		{"baud", "", "9600"},
		{"fast", "", "false"},
		{"quiet", "q", "false"},
		{"verbose", "v", "false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := simulateCmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("Flag %s not found", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("Expected shorthand %q, got %q", tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("Expected default %q, got %q", tt.defValue, flag.DefValue)
			}
		})
	}
}

func TestVersion(t *testing.T) {
	stdout, _, err := execute(t, "version")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if stdout != "unknown\n" {
		t.Errorf("Expected commit hash for dev builds, got %q", stdout)
	}
}

func TestSimulateFast(t *testing.T) {
	stdout, stderr, err := execute(t, "simulate", "--route", testRoutePath, "--fast")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	for _, want := range []string{
		"Head north on Market Street",
		"Turn right onto Valencia Street",
		"You have arrived at your destination",
		"Arrived at destination",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("Expected %q in output:\n%s", want, stdout)
		}
	}
	if got := strings.Count(stdout, "Next:"); got != 3 {
		t.Errorf("Expected 3 step changes, got %d", got)
	}
	if !strings.Contains(stderr, "Speed: 20.0 knots") {
		t.Errorf("Expected info messages on stderr, got %q", stderr)
	}
}

func TestSimulateQuiet(t *testing.T) {
	stdout, stderr, err := execute(t, "simulate", "-r", testRoutePath, "--fast", "--quiet", "--speed", "40")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if stderr != "" {
		t.Errorf("Expected no info messages, got %q", stderr)
	}
	if !strings.Contains(stdout, "Arrived at destination") {
		t.Errorf("Expected arrival, got:\n%s", stdout)
	}
}

func TestSimulateManualStepAdvance(t *testing.T) {
	stdout, stderr, err := execute(t, "simulate", "--route", testRoutePath, "--fast", "--step-advance", "manual")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if strings.Contains(stdout, "Arrived") {
		t.Errorf("Manual step advance should never arrive on its own:\n%s", stdout)
	}
	if strings.Count(stdout, "Next:") != 1 {
		t.Errorf("Expected to stay on the first step:\n%s", stdout)
	}
	if !strings.Contains(stderr, "Simulation ended before arrival") {
		t.Errorf("Expected early end message, got %q", stderr)
	}
}

func TestSimulateConfigFile(t *testing.T) {
	config := writeFile(t, "config.yaml", "navigation:\n  step_advance: manual\nsimulation:\n  speed: 50\n")

	stdout, stderr, err := execute(t, "--config", config, "simulate", "--route", testRoutePath, "--fast")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if strings.Contains(stdout, "Arrived") {
		t.Errorf("Expected the configured manual strategy:\n%s", stdout)
	}
	if !strings.Contains(stderr, "Speed: 50.0 knots") {
		t.Errorf("Expected configured speed, got %q", stderr)
	}
}

func TestSimulateErrors(t *testing.T) {
	badConfig := writeFile(t, "config.yaml", "simulation:\n  satellites: 40\n")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"Missing route", []string{"simulate", "--fast"}, "required flag"},
		{"Missing route file", []string{"simulate", "--route", "missing.json"}, "missing.json"},
		{"Route index", []string{"simulate", "--route", testRoutePath, "--route-index", "3"}, "route 3 not found"},
		{"Step advance", []string{"simulate", "--route", testRoutePath, "--step-advance", "teleport"}, "teleport"},
		{"GPX with fast", []string{"simulate", "--route", testRoutePath, "--fast", "--gpx"}, "--gpx"},
		{"Fast without speed", []string{"simulate", "--route", testRoutePath, "--fast", "--speed", "0"}, "non-zero speed"},
		{"Invalid config", []string{"--config", badConfig, "simulate", "--route", testRoutePath}, "Satellites"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

// recordDrive simulates a receiver driving the test route and returns its
// NMEA output, starting with one undecodable line.
func recordDrive(t *testing.T) string {
	t.Helper()
	route, err := loadRoute(testRoutePath, 0)
	if err != nil {
		t.Fatalf("Failed to load route: %v", err)
	}

	config := gps.DefaultConfig()
	config.TimeToLock = 0
	config.Seed = 7
	sim, err := gps.NewSimulator(config, route.Geometry)
	if err != nil {
		t.Fatalf("Failed to create simulator: %v", err)
	}

	var buf bytes.Buffer
	buf.WriteString("$GPXXX,garbage\r\n")
	sim.SetNMEAWriter(&buf)

	now := time.Now()
	for i := 0; i < 1000 && !sim.GetStatus().Completed; i++ {
		now = now.Add(time.Second)
		sim.Tick(now)
	}
	// Keep reporting from the destination.
	for i := 0; i < 3; i++ {
		now = now.Add(time.Second)
		sim.Tick(now)
	}
	return buf.String()
}

func TestFollowInput(t *testing.T) {
	input := writeFile(t, "drive.nmea", recordDrive(t))

	stdout, stderr, err := execute(t, "follow", "--route", testRoutePath, "--input", input)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "Turn right onto Valencia Street") {
		t.Errorf("Expected second step in output:\n%s", stdout)
	}
	if !strings.Contains(stdout, "Arrived at destination") {
		t.Errorf("Expected arrival in output:\n%s", stdout)
	}
	if !strings.Contains(stderr, "Skipped 1 undecodable lines") {
		t.Errorf("Expected skipped line count, got %q", stderr)
	}
}

func TestFollowStdin(t *testing.T) {
	drive := recordDrive(t)
	// Stop halfway along the first step.
	lines := strings.SplitAfter(drive, "\n")
	partial := strings.Join(lines[:len(lines)/4], "")

	rootCmd.SetIn(strings.NewReader(partial))
	defer rootCmd.SetIn(nil)

	stdout, stderr, err := execute(t, "follow", "--route", testRoutePath, "--input", "-")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if strings.Contains(stdout, "Arrived") {
		t.Errorf("Did not expect arrival:\n%s", stdout)
	}
	if !strings.Contains(stderr, "Input ended before arrival") {
		t.Errorf("Expected early end message, got %q", stderr)
	}
}

func TestFollowErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"No source", []string{"follow", "--route", testRoutePath}, "--serial or --input"},
		{"Both sources", []string{"follow", "--route", testRoutePath, "--serial", "/dev/null", "--input", "x"}, "none of the others"},
		{"Missing input", []string{"follow", "--route", testRoutePath, "--input", "missing.nmea"}, "failed to open NMEA input"},
		{"Missing route", []string{"follow", "--input", "-"}, "required flag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestServeInvalidPort(t *testing.T) {
	_, _, err := execute(t, "serve", "--port", "70000")
	if err == nil {
		t.Fatal("Expected error for out of range port")
	}
}
