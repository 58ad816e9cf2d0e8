package gps

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/Bucknalla/go-gps-navigator/navigation"
)

const (
	earthRadiusMeters = 6371000.0
	metersPerSecond   = 0.514444 // per knot
)

// Simulator drives a simulated GPS receiver along a path, such as the
// geometry of a route, emitting a Fix on every tick.
type Simulator struct {
	mu             sync.RWMutex
	config         Config
	rng            *rand.Rand
	path           navigation.Polyline
	traveled       float64 // meters along path
	currentLat     float64
	currentLon     float64
	currentAlt     float64
	currentSpeed   float64 // knots, with jitter applied
	currentCourse  float64 // degrees, with jitter applied
	isLocked       bool
	completed      bool
	lockTime       time.Time
	startTime      time.Time
	lastUpdateTime time.Time
	satellites     []Satellite
	nmeaWriter     io.Writer
	gpxWriter      *GPXWriter
	// Replay mode fields
	replayPoints    []TrackPoint
	replayIndex     int
	replayStartTime time.Time
	// Control fields
	running   bool
	cancel    context.CancelFunc
	ticker    *time.Ticker
	done      chan struct{}
	callbacks []func(Fix)
}

// NewSimulator creates a simulator that travels along path. In replay mode
// the path may be empty; the replayed track is followed instead.
func NewSimulator(config Config, path []navigation.GeographicCoordinate) (*Simulator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.ReplayFile == "" && len(path) == 0 {
		return nil, ErrEmptyPath
	}

	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	now := time.Now()
	sim := &Simulator{
		config:          config,
		rng:             rand.New(rand.NewSource(seed)),
		path:            navigation.NewPolyline(path),
		currentAlt:      config.Altitude,
		currentSpeed:    config.Speed,
		startTime:       now,
		lockTime:        now.Add(config.TimeToLock),
		lastUpdateTime:  now,
		replayStartTime: now,
	}
	if len(path) > 0 {
		sim.currentLat = path[0].Lat
		sim.currentLon = path[0].Lng
		if len(path) > 1 {
			sim.currentCourse = calculateBearing(path[0].Lat, path[0].Lng, path[1].Lat, path[1].Lng)
		}
	}

	if config.ReplayFile != "" {
		points, err := ReadGPXFile(config.ReplayFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load replay file: %w", err)
		}
		sim.replayPoints = points
		sim.currentLat = points[0].Lat
		sim.currentLon = points[0].Lon
		sim.currentAlt = points[0].Elevation
	}

	if config.GPXEnabled {
		gpxWriter, err := NewGPXWriter(config.GPXFile)
		if err != nil {
			return nil, fmt.Errorf("failed to create GPX writer: %w", err)
		}
		sim.gpxWriter = gpxWriter
	}

	sim.initializeSatellites()

	return sim, nil
}

// SetNMEAWriter sets the writer for NMEA output
func (s *Simulator) SetNMEAWriter(writer io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nmeaWriter = writer
}

// AddCallback registers fn to be called with every Fix. Callbacks run in
// registration order on the simulation goroutine.
func (s *Simulator) AddCallback(fn func(Fix)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, fn)
}

// Start starts the simulation loop
func (s *Simulator) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrSimulatorAlreadyRunning
	}

	var ctx context.Context
	ctx, s.cancel = context.WithCancel(context.Background())
	s.ticker = time.NewTicker(s.config.OutputRate)
	s.done = make(chan struct{})
	s.running = true
	s.startTime = time.Now()
	s.lockTime = s.startTime.Add(s.config.TimeToLock)
	s.lastUpdateTime = s.startTime
	s.replayStartTime = s.startTime

	go s.run(ctx, s.ticker, s.done)
	return nil
}

// Stop stops the simulation loop and flushes the GPX recording
func (s *Simulator) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrSimulatorNotRunning
	}

	s.cancel()
	s.ticker.Stop()
	s.running = false

	if s.gpxWriter != nil {
		err := s.gpxWriter.Close()
		s.gpxWriter = nil
		if err != nil {
			return fmt.Errorf("failed to close GPX writer: %w", err)
		}
	}

	return nil
}

// Done is closed when the loop started by the last Start exits, either
// through Stop, the configured duration or completion of the path.
func (s *Simulator) Done() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.done
}

// IsRunning returns whether the simulator is currently running
func (s *Simulator) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// GetStatus returns the current simulator status
func (s *Simulator) GetStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var elapsedTime time.Duration
	if s.running {
		elapsedTime = time.Since(s.startTime)
	}

	return Status{
		Running:          s.running,
		StartTime:        s.startTime,
		ElapsedTime:      elapsedTime,
		Position:         s.position(time.Now()),
		Config:           s.config,
		DistanceTraveled: s.traveled,
		PathLength:       s.path.Length(),
		Completed:        s.completed,
		ReplayIndex:      s.replayIndex,
		ReplayTotal:      len(s.replayPoints),
	}
}

// UpdateConfig updates the simulator configuration (can be called while running)
func (s *Simulator) UpdateConfig(newConfig Config) error {
	if err := newConfig.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	oldRate := s.config.OutputRate
	// Recording and replay are fixed at construction.
	newConfig.GPXEnabled, newConfig.GPXFile = s.config.GPXEnabled, s.config.GPXFile
	newConfig.ReplayFile = s.config.ReplayFile
	s.config = newConfig

	if s.running && oldRate != newConfig.OutputRate {
		s.ticker.Reset(newConfig.OutputRate)
	}

	return nil
}

// run is the main simulation loop
func (s *Simulator) run(ctx context.Context, ticker *time.Ticker, done chan struct{}) {
	defer close(done)

	s.mu.RLock()
	duration := s.config.Duration
	s.mu.RUnlock()

	var durationChan <-chan time.Time
	if duration > 0 {
		durationTimer := time.NewTimer(duration)
		durationChan = durationTimer.C
		defer durationTimer.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			fix := s.Tick(now)

			s.mu.RLock()
			callbacks := s.callbacks
			completed := s.completed
			s.mu.RUnlock()

			for _, fn := range callbacks {
				fn(fix)
			}
			if completed {
				s.Stop()
				return
			}
		case <-durationChan:
			s.Stop()
			return
		}
	}
}

// Tick advances the simulation to now and returns the resulting fix. The
// NMEA sentences are also written to the NMEA writer and, once locked, the
// position is recorded to the GPX track. Start calls Tick on every period of
// the output rate; tests and replays call it directly.
func (s *Simulator) Tick(now time.Time) Fix {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.update(now)

	position := s.position(now)
	fix := Fix{
		Position:  position,
		Sentences: GenerateSentences(position, now),
		Timestamp: now,
	}

	if s.nmeaWriter != nil {
		for _, sentence := range fix.Sentences {
			fmt.Fprint(s.nmeaWriter, sentence)
		}
	}
	s.updateGPX(now)

	return fix
}

// position snapshots the current state. Callers hold mu.
func (s *Simulator) position(now time.Time) Position {
	return Position{
		Latitude:           s.currentLat,
		Longitude:          s.currentLon,
		Altitude:           s.currentAlt,
		Speed:              s.currentSpeed,
		Course:             s.currentCourse,
		HorizontalAccuracy: s.config.HorizontalAccuracy,
		IsLocked:           s.isLocked,
		Satellites:         append([]Satellite(nil), s.satellites...),
		Timestamp:          now,
	}
}

// initializeSatellites initializes the satellite array
func (s *Simulator) initializeSatellites() {
	s.satellites = make([]Satellite, s.config.Satellites)

	for i := range s.satellites {
		s.satellites[i] = Satellite{
			ID:        i + 1,
			Elevation: s.rng.Intn(70) + 10, // 10-80 degrees
			Azimuth:   s.rng.Intn(360),     // 0-359 degrees
			SNR:       s.rng.Intn(30) + 20, // 20-50 dB
		}
	}
}

// update updates the GPS position and satellite information
func (s *Simulator) update(now time.Time) {
	if !s.isLocked && !now.Before(s.lockTime) {
		s.isLocked = true
		// Travel starts at lock.
		s.lastUpdateTime = now
		s.replayStartTime = now
	}

	if s.isLocked && !s.completed {
		if s.config.ReplayFile != "" {
			s.updateReplayPosition(now)
		} else {
			s.updateSpeedAndCourse()
			s.updatePosition(now)
			s.updateAltitude()
		}
	}
	s.lastUpdateTime = now

	s.updateSatellites()
}

// jitterVariation maps the jitter factor to the maximum relative speed
// variation and the maximum course variation in degrees.
func jitterVariation(jitter float64) (speedVariation, courseVariation float64) {
	switch {
	case jitter == 0.0:
		return 0.0, 0.0
	case jitter < 0.2:
		return 0.05, 2.0
	case jitter < 0.7:
		return 0.10 + (jitter-0.2)*0.40, 5.0 + (jitter-0.2)*20.0
	default:
		return 0.30 + (jitter-0.7)*0.67, 15.0 + (jitter-0.7)*50.0
	}
}

// updateSpeedAndCourse applies jitter to the configured speed
func (s *Simulator) updateSpeedAndCourse() {
	speedVariation, _ := jitterVariation(s.config.Jitter)

	speedDelta := (s.rng.Float64() - 0.5) * 2 * s.config.Speed * speedVariation
	s.currentSpeed = math.Max(0, s.config.Speed+speedDelta)
}

// updatePosition moves along the path by the distance covered since the last
// update, then scatters the reported position within the configured accuracy.
func (s *Simulator) updatePosition(now time.Time) {
	deltaTime := now.Sub(s.lastUpdateTime).Seconds()
	if deltaTime <= 0 {
		return
	}

	s.traveled += s.currentSpeed * metersPerSecond * deltaTime
	if s.traveled >= s.path.Length() {
		s.traveled = s.path.Length()
		s.completed = true
	}

	pos, ok := s.path.PointAt(s.traveled)
	if !ok {
		return
	}
	lat, lon := pos.Point.Lat, pos.Point.Lng

	coords := s.path.Coordinates()
	if pos.Segment+1 < len(coords) {
		a, b := coords[pos.Segment], coords[pos.Segment+1]
		if a != b {
			s.currentCourse = calculateBearing(a.Lat, a.Lng, b.Lat, b.Lng)
		}
	}

	_, courseVariation := jitterVariation(s.config.Jitter)
	if courseVariation > 0 {
		s.currentCourse = normalizeCourse(s.currentCourse + (s.rng.Float64()-0.5)*2*courseVariation)
	}

	if s.config.Jitter > 0 && s.config.HorizontalAccuracy > 0 {
		offset := s.rng.Float64() * s.config.Jitter * s.config.HorizontalAccuracy
		lat, lon = calculateNewPosition(lat, lon, offset, s.rng.Float64()*360)
	}

	s.currentLat = lat
	s.currentLon = lon
}

// updateAltitude applies altitude jitter
func (s *Simulator) updateAltitude() {
	if s.config.AltitudeJitter <= 0 {
		return
	}

	maxChange := 1.0 + (s.config.AltitudeJitter * 20.0)
	change := (s.rng.Float64() - 0.5) * 2 * maxChange

	minAltitude := math.Max(s.config.Altitude-100.0, -50.0)
	maxAltitude := s.config.Altitude + 500.0

	s.currentAlt = math.Min(math.Max(s.currentAlt+change, minAltitude), maxAltitude)
}

// updateSatellites simulates satellite movement
func (s *Simulator) updateSatellites() {
	for i := range s.satellites {
		sat := &s.satellites[i]
		sat.Elevation = min(max(sat.Elevation+s.rng.Intn(3)-1, 5), 85)
		sat.Azimuth = (sat.Azimuth + s.rng.Intn(3) - 1 + 360) % 360
		sat.SNR = min(max(sat.SNR+s.rng.Intn(6)-3, 15), 55)
	}
}

// updateGPX adds current position to GPX track if enabled
func (s *Simulator) updateGPX(now time.Time) {
	if s.gpxWriter == nil || !s.isLocked {
		return
	}
	s.gpxWriter.AddTrackPoint(s.currentLat, s.currentLon, s.currentAlt, now)

	// Write to file periodically
	if s.gpxWriter.GetTrackPointCount()%10 == 0 {
		s.gpxWriter.WriteToFile()
	}
}

func normalizeCourse(course float64) float64 {
	course = math.Mod(course, 360)
	if course < 0 {
		course += 360
	}
	return course
}

// calculateDistance calculates distance between two points using Haversine formula
func calculateDistance(lat1, lon1, lat2, lon2 float64) float64 {
	return navigation.HaversineDistance(
		navigation.GeographicCoordinate{Lng: lon1, Lat: lat1},
		navigation.GeographicCoordinate{Lng: lon2, Lat: lat2},
	)
}

// calculateNewPosition calculates a new lat/lon position given starting point, distance, and bearing
// Uses the spherical Earth model for accurate calculations at all speeds and distances
func calculateNewPosition(lat, lon, distance, bearing float64) (newLat, newLon float64) {
	latRad := lat * math.Pi / 180.0
	lonRad := lon * math.Pi / 180.0
	bearingRad := bearing * math.Pi / 180.0

	angularDistance := distance / earthRadiusMeters

	newLatRad := math.Asin(math.Sin(latRad)*math.Cos(angularDistance) +
		math.Cos(latRad)*math.Sin(angularDistance)*math.Cos(bearingRad))

	newLonRad := lonRad + math.Atan2(
		math.Sin(bearingRad)*math.Sin(angularDistance)*math.Cos(latRad),
		math.Cos(angularDistance)-math.Sin(latRad)*math.Sin(newLatRad))

	newLat = newLatRad * 180.0 / math.Pi
	newLon = newLonRad * 180.0 / math.Pi

	// Normalize longitude to -180 to +180 range
	for newLon > 180 {
		newLon -= 360
	}
	for newLon < -180 {
		newLon += 360
	}

	return newLat, newLon
}

// calculateBearing calculates the bearing from point 1 to point 2
func calculateBearing(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLonRad := (lon2 - lon1) * math.Pi / 180

	y := math.Sin(deltaLonRad) * math.Cos(lat2Rad)
	x := math.Cos(lat1Rad)*math.Sin(lat2Rad) - math.Sin(lat1Rad)*math.Cos(lat2Rad)*math.Cos(deltaLonRad)

	return normalizeCourse(math.Atan2(y, x) * 180 / math.Pi)
}
