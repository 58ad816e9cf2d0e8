package gps

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Sentence is a checksum-verified NMEA-0183 sentence split into fields.
type Sentence struct {
	Talker string // e.g. "GP", "GN"
	Type   string // e.g. "RMC", "GGA"
	Fields []string
}

// ParseSentence splits a raw sentence such as "$GPRMC,...*hh". Trailing CR/LF
// is ignored. The checksum is verified when present.
func ParseSentence(raw string) (Sentence, error) {
	line := strings.TrimRight(raw, "\r\n")
	if len(line) < 7 || line[0] != '$' {
		return Sentence{}, fmt.Errorf("%w: %q", ErrInvalidSentence, line)
	}

	body := line
	if star := strings.LastIndexByte(line, '*'); star >= 0 {
		body = line[:star]
		if got, want := strings.ToUpper(line[star+1:]), calculateChecksum(body); got != want {
			return Sentence{}, fmt.Errorf("%w: got %s, want %s", ErrChecksumMismatch, got, want)
		}
	}

	fields := strings.Split(body[1:], ",")
	address := fields[0]
	if len(address) != 5 {
		return Sentence{}, fmt.Errorf("%w: bad address %q", ErrInvalidSentence, address)
	}
	return Sentence{Talker: address[:2], Type: address[2:], Fields: fields[1:]}, nil
}

// RMC is the recommended minimum navigation information.
type RMC struct {
	Time      time.Time
	Valid     bool
	Latitude  float64
	Longitude float64
	Speed     float64 // knots
	Course    float64 // degrees true
	HasCourse bool
}

// ParseRMC decodes an RMC sentence. Void sentences decode without error and
// with Valid false.
func ParseRMC(s Sentence) (RMC, error) {
	if s.Type != "RMC" {
		return RMC{}, fmt.Errorf("%w: %s is not RMC", ErrUnsupportedSentence, s.Type)
	}
	if len(s.Fields) < 9 {
		return RMC{}, fmt.Errorf("%w: RMC has %d fields", ErrInvalidSentence, len(s.Fields))
	}

	var (
		rmc RMC
		err error
	)
	rmc.Valid = s.Fields[1] == "A"
	if rmc.Time, err = parseDateTime(s.Fields[8], s.Fields[0]); err != nil {
		return RMC{}, err
	}
	if !rmc.Valid {
		return rmc, nil
	}

	if rmc.Latitude, err = parseCoordinate(s.Fields[2], s.Fields[3], 2); err != nil {
		return RMC{}, err
	}
	if rmc.Longitude, err = parseCoordinate(s.Fields[4], s.Fields[5], 3); err != nil {
		return RMC{}, err
	}
	if s.Fields[6] != "" {
		if rmc.Speed, err = parseFinite(s.Fields[6]); err != nil || rmc.Speed < 0 {
			return RMC{}, fmt.Errorf("%w: speed %q", ErrInvalidSentence, s.Fields[6])
		}
	}
	if s.Fields[7] != "" {
		if rmc.Course, err = parseFinite(s.Fields[7]); err != nil {
			return RMC{}, fmt.Errorf("%w: course %q", ErrInvalidSentence, s.Fields[7])
		}
		rmc.HasCourse = true
	}
	return rmc, nil
}

// GGA is the fix data sentence.
type GGA struct {
	Quality    int // 0 = no fix
	Satellites int
	HDOP       float64
	Altitude   float64
	Latitude   float64
	Longitude  float64
}

// ParseGGA decodes a GGA sentence.
func ParseGGA(s Sentence) (GGA, error) {
	if s.Type != "GGA" {
		return GGA{}, fmt.Errorf("%w: %s is not GGA", ErrUnsupportedSentence, s.Type)
	}
	if len(s.Fields) < 9 {
		return GGA{}, fmt.Errorf("%w: GGA has %d fields", ErrInvalidSentence, len(s.Fields))
	}

	var (
		gga GGA
		err error
	)
	if gga.Quality, err = strconv.Atoi(s.Fields[5]); err != nil {
		return GGA{}, fmt.Errorf("%w: quality %q", ErrInvalidSentence, s.Fields[5])
	}
	if s.Fields[6] != "" {
		if gga.Satellites, err = strconv.Atoi(s.Fields[6]); err != nil {
			return GGA{}, fmt.Errorf("%w: satellites %q", ErrInvalidSentence, s.Fields[6])
		}
	}
	if gga.Quality == 0 {
		return gga, nil
	}

	if gga.Latitude, err = parseCoordinate(s.Fields[1], s.Fields[2], 2); err != nil {
		return GGA{}, err
	}
	if gga.Longitude, err = parseCoordinate(s.Fields[3], s.Fields[4], 3); err != nil {
		return GGA{}, err
	}
	if gga.HDOP, err = parseFinite(s.Fields[7]); err != nil || gga.HDOP < 0 {
		return GGA{}, fmt.Errorf("%w: HDOP %q", ErrInvalidSentence, s.Fields[7])
	}
	if s.Fields[8] != "" {
		if gga.Altitude, err = parseFinite(s.Fields[8]); err != nil {
			return GGA{}, fmt.Errorf("%w: altitude %q", ErrInvalidSentence, s.Fields[8])
		}
	}
	return gga, nil
}

// parseCoordinate decodes (D)DDMM.MMMM with its hemisphere letter.
func parseCoordinate(value, hemisphere string, degreeDigits int) (float64, error) {
	if len(value) < degreeDigits+2 {
		return 0, fmt.Errorf("%w: coordinate %q", ErrInvalidSentence, value)
	}
	deg, err := strconv.Atoi(value[:degreeDigits])
	if err != nil {
		return 0, fmt.Errorf("%w: coordinate %q", ErrInvalidSentence, value)
	}
	minutes, err := parseFinite(value[degreeDigits:])
	if err != nil || minutes < 0 || minutes >= 60 {
		return 0, fmt.Errorf("%w: coordinate %q", ErrInvalidSentence, value)
	}

	decimal := float64(deg) + minutes/60
	switch hemisphere {
	case "N", "E":
		return decimal, nil
	case "S", "W":
		return -decimal, nil
	default:
		return 0, fmt.Errorf("%w: hemisphere %q", ErrInvalidSentence, hemisphere)
	}
}

// parseFinite is strconv.ParseFloat restricted to finite values.
func parseFinite(field string) (float64, error) {
	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not finite", field)
	}
	return v, nil
}

// parseDateTime combines the DDMMYY and HHMMSS(.SS) fields into a UTC time.
func parseDateTime(date, clock string) (time.Time, error) {
	if len(date) != 6 || len(clock) < 6 {
		return time.Time{}, fmt.Errorf("%w: date %q time %q", ErrInvalidSentence, date, clock)
	}
	t, err := time.Parse("020106150405", date+clock[:6])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q time %q", ErrInvalidSentence, date, clock)
	}
	if len(clock) > 7 && clock[6] == '.' {
		frac, err := strconv.ParseFloat("0"+clock[6:], 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: time %q", ErrInvalidSentence, clock)
		}
		t = t.Add(time.Duration(frac * float64(time.Second)))
	}
	return t, nil
}
