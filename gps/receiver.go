package gps

import (
	"bufio"
	"context"
	"io"

	"github.com/Bucknalla/go-gps-navigator/navigation"
)

// Receiver turns an NMEA stream, such as a serial GPS, into location fixes.
//
// A fix is emitted for every valid RMC sentence. The horizontal accuracy is
// derived from the HDOP of the most recent GGA sentence.
type Receiver struct {
	r       io.Reader
	hdop    float64
	skipped int
}

// NewReceiver creates a receiver reading from r.
func NewReceiver(r io.Reader) *Receiver {
	return &Receiver{r: r}
}

// Skipped returns how many lines could not be decoded so far.
func (rc *Receiver) Skipped() int {
	return rc.skipped
}

// maxSentenceBytes bounds a single line. NMEA sentences are at most 82
// characters; anything longer is line noise.
const maxSentenceBytes = 1024

// Run reads until r is exhausted or ctx is done, calling fn with every fix.
// Undecodable lines, including overlong ones, are skipped. A blocking read is
// only interrupted by closing the underlying reader.
func (rc *Receiver) Run(ctx context.Context, fn func(navigation.UserLocation)) error {
	// partial is set when the last token is a piece of an overlong line.
	var partial bool
	scanner := bufio.NewScanner(rc.r)
	scanner.Buffer(make([]byte, maxSentenceBytes), maxSentenceBytes)
	scanner.Split(func(data []byte, atEOF bool) (int, []byte, error) {
		advance, token, err := bufio.ScanLines(data, atEOF)
		partial = advance == 0 && err == nil && len(data) >= maxSentenceBytes
		if partial {
			return len(data), data, nil
		}
		return advance, token, err
	})

	discarding := false
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if partial || discarding {
			if !discarding {
				rc.skipped++
			}
			discarding = partial
			continue
		}
		location, ok, err := rc.handle(scanner.Text())
		if err != nil {
			rc.skipped++
			continue
		}
		if ok {
			fn(location)
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return scanner.Err()
}

func (rc *Receiver) handle(line string) (navigation.UserLocation, bool, error) {
	if line == "" {
		return navigation.UserLocation{}, false, nil
	}
	s, err := ParseSentence(line)
	if err != nil {
		return navigation.UserLocation{}, false, err
	}

	switch s.Type {
	case "GGA":
		gga, err := ParseGGA(s)
		if err != nil {
			return navigation.UserLocation{}, false, err
		}
		rc.hdop = gga.HDOP
		return navigation.UserLocation{}, false, nil
	case "RMC":
		rmc, err := ParseRMC(s)
		if err != nil || !rmc.Valid {
			return navigation.UserLocation{}, false, err
		}
		return rc.location(rmc), true, nil
	default:
		return navigation.UserLocation{}, false, nil
	}
}

func (rc *Receiver) location(rmc RMC) navigation.UserLocation {
	loc := navigation.UserLocation{
		Coordinates:        navigation.GeographicCoordinate{Lng: rmc.Longitude, Lat: rmc.Latitude},
		HorizontalAccuracy: rc.hdop * userEquivalentRangeError,
		Timestamp:          rmc.Time,
	}
	if rmc.HasCourse {
		cog := navigation.NewCourseOverGround(rmc.Course, courseAccuracy(rmc.Speed))
		loc.CourseOverGround = &cog
	}
	return loc
}
