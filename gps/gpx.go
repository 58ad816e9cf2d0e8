package gps

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"time"
)

// GPX represents the root GPX document structure
type GPX struct {
	XMLName xml.Name `xml:"gpx"`
	Version string   `xml:"version,attr"`
	Creator string   `xml:"creator,attr"`
	Xmlns   string   `xml:"xmlns,attr"`
	Track   Track    `xml:"trk"`
	Routes  []Route  `xml:"rte"`
}

// Track represents a GPX track
type Track struct {
	Name         string       `xml:"name"`
	TrackSegment TrackSegment `xml:"trkseg"`
}

// TrackSegment represents a segment of a GPX track
type TrackSegment struct {
	TrackPoints []TrackPoint `xml:"trkpt"`
}

// Route represents a GPX route
type Route struct {
	Name        string       `xml:"name"`
	RoutePoints []TrackPoint `xml:"rtept"`
}

// GPXWriter records simulated fixes as a GPX track. The whole document is
// rewritten on every flush so the file is valid even if the process dies.
type GPXWriter struct {
	filename string
	gpx      *GPX
	file     *os.File
}

// NewGPXWriter creates a new GPX writer
func NewGPXWriter(filename string) (*GPXWriter, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create GPX file %s: %w", filename, err)
	}

	return &GPXWriter{
		filename: filename,
		file:     file,
		gpx: &GPX{
			Version: "1.1",
			Creator: "go-gps-navigator",
			Xmlns:   "http://www.topografix.com/GPX/1/1",
			Track:   Track{Name: "Simulated navigation track"},
		},
	}, nil
}

// AddTrackPoint adds a new track point to the GPX file
func (w *GPXWriter) AddTrackPoint(lat, lon, elevation float64, timestamp time.Time) {
	w.gpx.Track.TrackSegment.TrackPoints = append(w.gpx.Track.TrackSegment.TrackPoints, TrackPoint{
		Lat:       lat,
		Lon:       lon,
		Elevation: elevation,
		Time:      timestamp.UTC(),
	})
}

// WriteToFile writes the current GPX data to the file
func (w *GPXWriter) WriteToFile() error {
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to beginning of file: %w", err)
	}
	if err := w.file.Truncate(0); err != nil {
		return fmt.Errorf("failed to truncate file: %w", err)
	}
	if err := EncodeGPX(w.file, w.gpx); err != nil {
		return err
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}
	return nil
}

// Close writes the final track and closes the file
func (w *GPXWriter) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.WriteToFile()
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	w.file = nil
	return err
}

// GetTrackPointCount returns the number of track points currently stored
func (w *GPXWriter) GetTrackPointCount() int {
	return len(w.gpx.Track.TrackSegment.TrackPoints)
}

// EncodeGPX writes doc as an indented XML document.
func EncodeGPX(out io.Writer, doc *GPX) error {
	if _, err := io.WriteString(out, xml.Header); err != nil {
		return fmt.Errorf("failed to write XML header: %w", err)
	}
	encoder := xml.NewEncoder(out)
	encoder.Indent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode GPX data: %w", err)
	}
	return nil
}

// ReadGPX parses a GPX document and returns its track points, falling back
// to the points of the first route.
func ReadGPX(r io.Reader) ([]TrackPoint, error) {
	var gpx GPX
	if err := xml.NewDecoder(r).Decode(&gpx); err != nil {
		return nil, fmt.Errorf("failed to parse GPX: %w", err)
	}

	points := gpx.Track.TrackSegment.TrackPoints
	if len(points) == 0 && len(gpx.Routes) > 0 {
		points = gpx.Routes[0].RoutePoints
	}
	if len(points) == 0 {
		return nil, ErrNoTrackPoints
	}
	return points, nil
}

// ReadGPXFile reads and parses a GPX file, returning the track points
func ReadGPXFile(filename string) ([]TrackPoint, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open GPX file %s: %w", filename, err)
	}
	defer file.Close()

	points, err := ReadGPX(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return points, nil
}
