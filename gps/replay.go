package gps

import (
	"slices"
	"sort"
	"time"
)

// updateReplayPosition moves to the track point that is due at now. Without
// looping the simulation completes after the last point.
func (s *Simulator) updateReplayPosition(now time.Time) {
	points := s.replayPoints
	if len(points) == 0 {
		return
	}

	s.replayIndex = replayIndexAt(points, now.Sub(s.replayStartTime), s.config.ReplaySpeed)
	if s.replayIndex >= len(points) {
		if s.config.ReplayLoop {
			s.replayIndex = 0
			s.replayStartTime = now
		} else {
			s.replayIndex = len(points) - 1
			s.completed = true
		}
	}

	current := points[s.replayIndex]
	s.currentLat, s.currentLon, s.currentAlt = current.Lat, current.Lon, current.Elevation

	if s.replayIndex+1 < len(points) {
		if speed, course, ok := replayMotion(current, points[s.replayIndex+1], sequentialTimestamps(points)); ok {
			s.currentSpeed, s.currentCourse = speed, course
		}
	}
}

// replayIndexAt returns the index of the point due once elapsed has passed,
// scaled by speed. Tracks with usable timestamps follow them; others advance
// one point per second. len(points) means the track is exhausted.
func replayIndexAt(points []TrackPoint, elapsed time.Duration, speed float64) int {
	scaled := time.Duration(float64(elapsed) * speed)
	if !sequentialTimestamps(points) {
		return int(scaled / time.Second)
	}

	target := points[0].Time.Add(scaled)
	if target.After(points[len(points)-1].Time) {
		return len(points)
	}
	next := sort.Search(len(points), func(i int) bool { return target.Before(points[i].Time) })
	return max(next-1, 0)
}

// replayMotion derives the speed in knots and the course of the leg between
// two points.
func replayMotion(from, to TrackPoint, timed bool) (speed, course float64, ok bool) {
	seconds := 1.0
	if timed {
		seconds = to.Time.Sub(from.Time).Seconds()
	}
	if seconds <= 0 {
		return 0, 0, false
	}
	distance := calculateDistance(from.Lat, from.Lon, to.Lat, to.Lon)
	return distance / seconds / metersPerSecond, calculateBearing(from.Lat, from.Lon, to.Lat, to.Lon), true
}

// sequentialTimestamps reports whether the points carry non-decreasing
// timestamps that span some time.
func sequentialTimestamps(points []TrackPoint) bool {
	if len(points) < 2 || points[0].Time.Equal(points[len(points)-1].Time) {
		return false
	}
	return slices.IsSortedFunc(points, func(a, b TrackPoint) int { return a.Time.Compare(b.Time) })
}
