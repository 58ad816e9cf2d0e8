package gps

import (
	"time"

	"github.com/Bucknalla/go-gps-navigator/navigation"
)

// userEquivalentRangeError converts between HDOP and horizontal accuracy in meters.
const userEquivalentRangeError = 5.0

// Satellite represents a GPS satellite
type Satellite struct {
	ID        int `json:"id"`
	Elevation int `json:"elevation"` // degrees above horizon
	Azimuth   int `json:"azimuth"`   // degrees from north
	SNR       int `json:"snr"`       // signal-to-noise ratio
}

// TrackPoint represents a point in a GPS track
type TrackPoint struct {
	Lat       float64   `xml:"lat,attr"`
	Lon       float64   `xml:"lon,attr"`
	Elevation float64   `xml:"ele"`
	Time      time.Time `xml:"time"`
}

// Position represents the current GPS position and status
type Position struct {
	Latitude           float64     `json:"latitude"`
	Longitude          float64     `json:"longitude"`
	Altitude           float64     `json:"altitude"`
	Speed              float64     `json:"speed"`  // knots
	Course             float64     `json:"course"` // degrees
	HorizontalAccuracy float64     `json:"horizontal_accuracy"`
	IsLocked           bool        `json:"is_locked"`
	Satellites         []Satellite `json:"satellites"`
	Timestamp          time.Time   `json:"timestamp"`
}

// HDOP is the horizontal dilution of precision matching the position accuracy.
func (p Position) HDOP() float64 {
	if p.HorizontalAccuracy <= 0 {
		return 1.0
	}
	return p.HorizontalAccuracy / userEquivalentRangeError
}

// UserLocation converts the position into a navigation fix.
func (p Position) UserLocation() navigation.UserLocation {
	cog := navigation.NewCourseOverGround(p.Course, courseAccuracy(p.Speed))
	return navigation.UserLocation{
		Coordinates:        navigation.GeographicCoordinate{Lng: p.Longitude, Lat: p.Latitude},
		HorizontalAccuracy: p.HorizontalAccuracy,
		CourseOverGround:   &cog,
		Timestamp:          p.Timestamp,
	}
}

// courseAccuracy estimates how far off a course derived from movement can be.
// Slow movement gives a poor heading.
func courseAccuracy(speedKnots float64) uint16 {
	switch {
	case speedKnots < 1:
		return 180
	case speedKnots < 5:
		return 30
	default:
		return 10
	}
}

// Status represents the current simulator status
type Status struct {
	Running          bool          `json:"running"`
	StartTime        time.Time     `json:"start_time,omitempty"`
	ElapsedTime      time.Duration `json:"elapsed_time"`
	Position         Position      `json:"position"`
	Config           Config        `json:"config"`
	DistanceTraveled float64       `json:"distance_traveled"`
	PathLength       float64       `json:"path_length"`
	Completed        bool          `json:"completed"`
	ReplayIndex      int           `json:"replay_index,omitempty"`
	ReplayTotal      int           `json:"replay_total,omitempty"`
}

// Fix is produced on every simulator tick.
type Fix struct {
	Position  Position  `json:"position"`
	Sentences []string  `json:"sentences"`
	Timestamp time.Time `json:"timestamp"`
}

// Location returns the navigation fix; ok is false until the receiver has a lock.
func (f Fix) Location() (navigation.UserLocation, bool) {
	if !f.Position.IsLocked {
		return navigation.UserLocation{}, false
	}
	return f.Position.UserLocation(), true
}
