// Package appconfig loads the YAML configuration of the gps-navigator
// command. Every section is optional; missing values keep their defaults.
package appconfig

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/Bucknalla/go-gps-navigator/gps"
	"github.com/Bucknalla/go-gps-navigator/navigation"
)

// Config is the application configuration
type Config struct {
	Navigation NavigationConfig `yaml:"navigation"`
	Simulation SimulationConfig `yaml:"simulation"`
	Serial     SerialConfig     `yaml:"serial"`
	Server     ServerConfig     `yaml:"server"`
}

// NavigationConfig selects the step advance strategy of every controller.
type NavigationConfig struct {
	StepAdvance               string  `yaml:"step_advance" validate:"oneof=manual distance_to_end_of_step relative_line_string_distance"`
	Distance                  float64 `yaml:"distance" validate:"gte=0"`
	WidenByAccuracy           bool    `yaml:"widen_by_accuracy"`
	MinimumHorizontalAccuracy float64 `yaml:"minimum_horizontal_accuracy" validate:"gte=0"`
	AutomaticAdvanceDistance  float64 `yaml:"automatic_advance_distance" validate:"gte=0"`
	// EstimateRemainingDistance reports the distance left on the current step
	// after every location update instead of zero.
	EstimateRemainingDistance bool `yaml:"estimate_remaining_distance"`
}

type SimulationConfig struct {
	Speed              float64       `yaml:"speed" validate:"gte=0"` // knots
	Jitter             float64       `yaml:"jitter" validate:"gte=0,lte=1"`
	HorizontalAccuracy float64       `yaml:"horizontal_accuracy" validate:"gte=0"`
	Altitude           float64       `yaml:"altitude"`
	AltitudeJitter     float64       `yaml:"altitude_jitter" validate:"gte=0,lte=1"`
	Satellites         int           `yaml:"satellites" validate:"gte=4,lte=12"`
	TimeToLock         time.Duration `yaml:"time_to_lock" validate:"gte=0"`
	OutputRate         time.Duration `yaml:"output_rate" validate:"gt=0"`
	Duration           time.Duration `yaml:"duration" validate:"gte=0"`
	ReplaySpeed        float64       `yaml:"replay_speed" validate:"gt=0"`
	ReplayLoop         bool          `yaml:"replay_loop"`
	Seed               int64         `yaml:"seed"`
}

type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate" validate:"gt=0"`
}

type ServerConfig struct {
	Port int `yaml:"port" validate:"gt=0,lte=65535"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	sim := gps.DefaultConfig()
	return Config{
		Navigation: NavigationConfig{
			StepAdvance: navigation.StepAdvanceDistanceToEndOfStep.String(),
			Distance:    10,
		},
		Simulation: SimulationConfig{
			Speed:              sim.Speed,
			Jitter:             sim.Jitter,
			HorizontalAccuracy: sim.HorizontalAccuracy,
			Altitude:           sim.Altitude,
			AltitudeJitter:     sim.AltitudeJitter,
			Satellites:         sim.Satellites,
			TimeToLock:         sim.TimeToLock,
			OutputRate:         sim.OutputRate,
			Duration:           sim.Duration,
			ReplaySpeed:        sim.ReplaySpeed,
			ReplayLoop:         sim.ReplayLoop,
		},
		Serial: SerialConfig{BaudRate: sim.BaudRate},
		Server: ServerConfig{Port: 8080},
	}
}

// Load reads and validates the configuration at path. An empty path returns
// the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if _, err := c.ControllerConfig(); err != nil {
		return err
	}
	return nil
}

// StepAdvanceOptions returns the navigation section in its serializable form.
func (c Config) StepAdvanceOptions() (navigation.StepAdvanceOptions, error) {
	kind, err := navigation.ParseStepAdvanceKind(c.Navigation.StepAdvance)
	if err != nil {
		return navigation.StepAdvanceOptions{}, err
	}
	return navigation.StepAdvanceOptions{
		Kind:                      kind,
		Distance:                  c.Navigation.Distance,
		WidenByAccuracy:           c.Navigation.WidenByAccuracy,
		MinimumHorizontalAccuracy: c.Navigation.MinimumHorizontalAccuracy,
		AutomaticAdvanceDistance:  c.Navigation.AutomaticAdvanceDistance,
	}, nil
}

// ControllerConfig builds the configuration for new navigation controllers.
func (c Config) ControllerConfig() (navigation.NavigationControllerConfig, error) {
	opts, err := c.StepAdvanceOptions()
	if err != nil {
		return navigation.NavigationControllerConfig{}, err
	}
	return c.ControllerConfigFor(opts)
}

// ControllerConfigFor uses opts for step advance and the rest of the
// navigation section as configured.
func (c Config) ControllerConfigFor(opts navigation.StepAdvanceOptions) (navigation.NavigationControllerConfig, error) {
	strategy, err := opts.Strategy()
	if err != nil {
		return navigation.NavigationControllerConfig{}, err
	}
	config := navigation.NavigationControllerConfig{StepAdvance: strategy}
	if c.Navigation.EstimateRemainingDistance {
		config.StepDistance = navigation.AlongStepDistance{}
	}
	return config, nil
}

// GPSConfig converts the simulation and serial sections.
func (c Config) GPSConfig() gps.Config {
	config := gps.DefaultConfig()
	config.Speed = c.Simulation.Speed
	config.Jitter = c.Simulation.Jitter
	config.HorizontalAccuracy = c.Simulation.HorizontalAccuracy
	config.Altitude = c.Simulation.Altitude
	config.AltitudeJitter = c.Simulation.AltitudeJitter
	config.Satellites = c.Simulation.Satellites
	config.TimeToLock = c.Simulation.TimeToLock
	config.OutputRate = c.Simulation.OutputRate
	config.Duration = c.Simulation.Duration
	config.ReplaySpeed = c.Simulation.ReplaySpeed
	config.ReplayLoop = c.Simulation.ReplayLoop
	config.Seed = c.Simulation.Seed
	config.SerialPort = c.Serial.Port
	config.BaudRate = c.Serial.BaudRate
	return config
}
