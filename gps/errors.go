package gps

import "errors"

// Common errors returned by the GPS simulator
var (
	ErrInvalidSatelliteCount   = errors.New("number of satellites must be between 4 and 12")
	ErrInvalidJitter           = errors.New("jitter must be between 0.0 and 1.0")
	ErrInvalidAltitudeJitter   = errors.New("altitude jitter must be between 0.0 and 1.0")
	ErrInvalidAccuracy         = errors.New("horizontal accuracy must be non-negative")
	ErrInvalidBaudRate         = errors.New("baud rate must be positive")
	ErrInvalidSpeed            = errors.New("speed must be non-negative")
	ErrInvalidOutputRate       = errors.New("output rate must be positive")
	ErrInvalidReplaySpeed      = errors.New("replay speed must be positive")
	ErrMissingGPXFile          = errors.New("GPX recording requires an output file")
	ErrEmptyPath               = errors.New("path must contain at least one coordinate")
	ErrNoTrackPoints           = errors.New("no track points or route points found")
	ErrSimulatorNotRunning     = errors.New("simulator is not running")
	ErrSimulatorAlreadyRunning = errors.New("simulator is already running")
)

// Errors returned while decoding NMEA input
var (
	ErrInvalidSentence     = errors.New("invalid NMEA sentence")
	ErrChecksumMismatch    = errors.New("NMEA checksum mismatch")
	ErrUnsupportedSentence = errors.New("unsupported NMEA sentence")
)
