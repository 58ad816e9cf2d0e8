package osrm

import (
	"fmt"
	"math"

	"github.com/Bucknalla/go-gps-navigator/navigation"
)

// DecodePolyline decodes an encoded polyline with the given precision (5 for
// OSRM's default "polyline", 6 for "polyline6").
func DecodePolyline(encoded string, precision int) ([]navigation.GeographicCoordinate, error) {
	factor := math.Pow10(precision)
	var (
		coords   []navigation.GeographicCoordinate
		lat, lng int64
	)

	for i := 0; i < len(encoded); {
		dlat, next, err := decodeValue(encoded, i)
		if err != nil {
			return nil, err
		}
		dlng, next, err := decodeValue(encoded, next)
		if err != nil {
			return nil, err
		}
		i = next

		lat += dlat
		lng += dlng
		coords = append(coords, navigation.GeographicCoordinate{
			Lng: float64(lng) / factor,
			Lat: float64(lat) / factor,
		})
	}
	return coords, nil
}

// decodeValue reads one zig-zag encoded varint starting at i.
func decodeValue(encoded string, i int) (int64, int, error) {
	var result int64
	shift := uint(0)
	for {
		if i >= len(encoded) {
			return 0, i, fmt.Errorf("%w: truncated polyline", ErrInvalidGeometry)
		}
		b := int64(encoded[i]) - 63
		i++
		if b < 0 || b > 0x3f || shift > 60 {
			return 0, i, fmt.Errorf("%w: bad polyline byte at %d", ErrInvalidGeometry, i-1)
		}
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}
	if result&1 != 0 {
		return ^(result >> 1), i, nil
	}
	return result >> 1, i, nil
}

// EncodePolyline is the inverse of DecodePolyline.
func EncodePolyline(coords []navigation.GeographicCoordinate, precision int) string {
	factor := math.Pow10(precision)
	var (
		out              []byte
		prevLat, prevLng int64
	)
	for _, c := range coords {
		lat := int64(math.Round(c.Lat * factor))
		lng := int64(math.Round(c.Lng * factor))
		out = encodeValue(out, lat-prevLat)
		out = encodeValue(out, lng-prevLng)
		prevLat, prevLng = lat, lng
	}
	return string(out)
}

func encodeValue(out []byte, v int64) []byte {
	u := v << 1
	if v < 0 {
		u = ^u
	}
	for u >= 0x20 {
		out = append(out, byte((0x20|(u&0x1f))+63))
		u >>= 5
	}
	return append(out, byte(u+63))
}
