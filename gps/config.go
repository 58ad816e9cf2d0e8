package gps

import "time"

// Config holds all configuration options for the GPS simulator
type Config struct {
	Speed              float64 // travel speed along the path in knots
	Jitter             float64 // GPS jitter factor (0.0-1.0)
	HorizontalAccuracy float64 // reported accuracy in meters; also bounds positional jitter
	Altitude           float64 // starting altitude in meters
	AltitudeJitter     float64 // altitude jitter factor (0.0-1.0)
	Satellites         int
	TimeToLock         time.Duration
	OutputRate         time.Duration
	SerialPort         string        // Serial port device (e.g., /dev/ttyUSB0, COM1)
	BaudRate           int           // Serial baud rate
	Quiet              bool          // Suppress informational messages
	GPXEnabled         bool          // Record the simulated track to GPXFile
	GPXFile            string        // GPX output filename
	Duration           time.Duration // How long to run the simulation (0 = until the path is complete)
	ReplayFile         string        // GPX file to replay instead of following a path
	ReplaySpeed        float64       // Replay speed multiplier (1.0 = real-time, 2.0 = 2x speed, etc.)
	ReplayLoop         bool          // Loop the replay instead of completing after one pass
	Seed               int64         // Random seed for jitter and satellites (0 = time based)
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		Speed:              20.0, // ~37 km/h, city driving
		Jitter:             0.0,
		HorizontalAccuracy: 5.0,
		Altitude:           45.0,
		AltitudeJitter:     0.0,
		Satellites:         8,
		TimeToLock:         2 * time.Second,
		OutputRate:         1 * time.Second,
		BaudRate:           9600,
		Quiet:              false,
		GPXEnabled:         false,
		Duration:           0,
		ReplaySpeed:        1.0,
		ReplayLoop:         false,
	}
}

// Validate checks if the configuration is valid and returns an error if not
func (c *Config) Validate() error {
	if c.Satellites < 4 || c.Satellites > 12 {
		return ErrInvalidSatelliteCount
	}
	if c.Jitter < 0.0 || c.Jitter > 1.0 {
		return ErrInvalidJitter
	}
	if c.AltitudeJitter < 0.0 || c.AltitudeJitter > 1.0 {
		return ErrInvalidAltitudeJitter
	}
	if c.HorizontalAccuracy < 0.0 {
		return ErrInvalidAccuracy
	}
	if c.BaudRate <= 0 {
		return ErrInvalidBaudRate
	}
	if c.Speed < 0.0 {
		return ErrInvalidSpeed
	}
	if c.OutputRate <= 0 {
		return ErrInvalidOutputRate
	}
	if c.ReplaySpeed <= 0.0 {
		return ErrInvalidReplaySpeed
	}
	if c.GPXEnabled && c.GPXFile == "" {
		return ErrMissingGPXFile
	}
	return nil
}
