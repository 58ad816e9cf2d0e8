package gps

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// calculateChecksum calculates the NMEA checksum for a sentence
func calculateChecksum(sentence string) string {
	var checksum byte
	for i := 1; i < len(sentence); i++ { // Skip the '$' character
		checksum ^= sentence[i]
	}
	return fmt.Sprintf("%02X", checksum)
}

// formatNMEA formats a complete NMEA sentence with checksum
func formatNMEA(sentence string) string {
	checksum := calculateChecksum(sentence)
	return fmt.Sprintf("%s*%s\r\n", sentence, checksum)
}

// GenerateSentences renders p as the NMEA-0183 sentences a receiver emits
// once per epoch. Without a lock only the void GGA, RMC, GLL and VTG
// variants are produced.
func GenerateSentences(p Position, timestamp time.Time) []string {
	if !p.IsLocked {
		return []string{
			generateNoFixGGA(timestamp),
			generateNoFixRMC(timestamp),
			generateNoFixGLL(timestamp),
			generateNoFixVTG(),
		}
	}

	sentences := []string{
		generateGGA(p, timestamp),
		generateRMC(p, timestamp),
		generateGLL(p, timestamp),
		generateVTG(p),
		generateGSA(p),
	}
	sentences = append(sentences, generateGSV(p)...)
	return append(sentences, generateZDA(timestamp))
}

// nmeaLatitude converts decimal degrees to DDMM.MMMM plus hemisphere.
func nmeaLatitude(lat float64) string {
	deg := int(math.Abs(lat))
	minutes := (math.Abs(lat) - float64(deg)) * 60
	hem := "N"
	if lat < 0 {
		hem = "S"
	}
	return fmt.Sprintf("%02d%07.4f,%s", deg, minutes, hem)
}

// nmeaLongitude converts decimal degrees to DDDMM.MMMM plus hemisphere.
func nmeaLongitude(lon float64) string {
	deg := int(math.Abs(lon))
	minutes := (math.Abs(lon) - float64(deg)) * 60
	hem := "E"
	if lon < 0 {
		hem = "W"
	}
	return fmt.Sprintf("%03d%07.4f,%s", deg, minutes, hem)
}

// nmeaFractionalTime formats HHMMSS.SS
func nmeaFractionalTime(t time.Time) string {
	utc := t.UTC()
	return fmt.Sprintf("%02d%02d%02d.%02d", utc.Hour(), utc.Minute(), utc.Second(), utc.Nanosecond()/10000000)
}

// generateGGA generates a GGA (Global Positioning System Fix Data) sentence
func generateGGA(p Position, timestamp time.Time) string {
	timeStr := timestamp.UTC().Format("150405") // HHMMSS

	quality := "1" // 1 = GPS fix
	numSats := fmt.Sprintf("%02d", len(p.Satellites))
	hdop := fmt.Sprintf("%.1f", p.HDOP())
	altitude := fmt.Sprintf("%.1f", p.Altitude) // above mean sea level
	geoidSep := "0.0"

	sentence := fmt.Sprintf("$GPGGA,%s,%s,%s,%s,%s,%s,%s,M,%s,M,,",
		timeStr,
		nmeaLatitude(p.Latitude), nmeaLongitude(p.Longitude),
		quality, numSats, hdop,
		altitude, geoidSep)

	return formatNMEA(sentence)
}

// generateNoFixGGA generates a GGA sentence when there's no GPS fix
func generateNoFixGGA(timestamp time.Time) string {
	timeStr := timestamp.UTC().Format("150405")

	sentence := fmt.Sprintf("$GPGGA,%s,,,,,0,00,,,,,,,", timeStr)
	return formatNMEA(sentence)
}

// generateRMC generates an RMC (Recommended Minimum) sentence
func generateRMC(p Position, timestamp time.Time) string {
	timeStr := timestamp.UTC().Format("150405") // HHMMSS
	dateStr := timestamp.UTC().Format("020106") // DDMMYY

	status := "A" // A = Active, V = Void
	speed := fmt.Sprintf("%.1f", p.Speed)
	course := fmt.Sprintf("%.1f", p.Course)
	mode := "A" // A = Autonomous, D = DGPS, E = DR

	// Magnetic variation and its direction are left empty.
	sentence := fmt.Sprintf("$GPRMC,%s,%s,%s,%s,%s,%s,%s,,,%s",
		timeStr, status,
		nmeaLatitude(p.Latitude), nmeaLongitude(p.Longitude),
		speed, course, dateStr,
		mode)

	return formatNMEA(sentence)
}

// generateNoFixRMC generates an RMC sentence when there's no GPS fix
func generateNoFixRMC(timestamp time.Time) string {
	timeStr := timestamp.UTC().Format("150405")
	dateStr := timestamp.UTC().Format("020106")

	sentence := fmt.Sprintf("$GPRMC,%s,V,,,,,,,%s,,,N", timeStr, dateStr)
	return formatNMEA(sentence)
}

// generateGSA generates a GSA (GPS DOP and active satellites) sentence
func generateGSA(p Position) string {
	mode1 := "A" // A = Automatic, M = Manual
	mode2 := "3" // 1 = No fix, 2 = 2D fix, 3 = 3D fix

	// Up to 12 satellite IDs used for the fix, padded with empty fields
	satIDs := make([]string, 12)
	for i, sat := range p.Satellites {
		if i < 12 {
			satIDs[i] = fmt.Sprintf("%02d", sat.ID)
		}
	}

	hdop := p.HDOP()
	vdop := hdop * 1.5
	pdop := math.Sqrt(hdop*hdop + vdop*vdop)

	sentence := fmt.Sprintf("$GPGSA,%s,%s,%s,%.1f,%.1f,%.1f",
		mode1, mode2,
		strings.Join(satIDs, ","),
		pdop, hdop, vdop)

	return formatNMEA(sentence)
}

// generateGSV generates GSV (GPS Satellites in view) sentences
func generateGSV(p Position) []string {
	var sentences []string

	totalSats := len(p.Satellites)
	totalSentences := (totalSats + 3) / 4 // Round up to nearest 4

	for sentenceNum := 1; sentenceNum <= totalSentences; sentenceNum++ {
		startIdx := (sentenceNum - 1) * 4
		endIdx := min(startIdx+4, totalSats)

		var b strings.Builder
		fmt.Fprintf(&b, "$GPGSV,%d,%d,%02d", totalSentences, sentenceNum, totalSats)

		// Up to 4 satellites per sentence
		for _, sat := range p.Satellites[startIdx:endIdx] {
			fmt.Fprintf(&b, ",%02d,%02d,%03d,%02d", sat.ID, sat.Elevation, sat.Azimuth, sat.SNR)
		}
		for i := endIdx - startIdx; i < 4; i++ {
			b.WriteString(",,,,")
		}

		sentences = append(sentences, formatNMEA(b.String()))
	}

	return sentences
}

// generateVTG generates a VTG (Track Made Good and Ground Speed) sentence
func generateVTG(p Position) string {
	courseTrue := fmt.Sprintf("%.1f", p.Course)
	speedKnots := fmt.Sprintf("%.1f", p.Speed)
	speedKmh := fmt.Sprintf("%.1f", p.Speed*1.852) // 1 knot = 1.852 km/h

	mode := "A" // A = Autonomous, D = DGPS, E = DR

	// Magnetic course is left empty as magnetic variation is not simulated.
	sentence := fmt.Sprintf("$GPVTG,%s,T,,M,%s,N,%s,K,%s",
		courseTrue, speedKnots, speedKmh, mode)

	return formatNMEA(sentence)
}

// generateNoFixVTG generates a VTG sentence when there's no GPS fix
func generateNoFixVTG() string {
	sentence := "$GPVTG,,,,,,,,,N" // N = Not valid
	return formatNMEA(sentence)
}

// generateGLL generates a GLL (Geographic Position - Latitude/Longitude) sentence
func generateGLL(p Position, timestamp time.Time) string {
	status := "A" // A = Data valid, V = Data invalid
	mode := "A"   // A = Autonomous, D = DGPS, E = DR

	sentence := fmt.Sprintf("$GPGLL,%s,%s,%s,%s,%s",
		nmeaLatitude(p.Latitude), nmeaLongitude(p.Longitude),
		nmeaFractionalTime(timestamp), status, mode)

	return formatNMEA(sentence)
}

// generateNoFixGLL generates a GLL sentence when there's no GPS fix
func generateNoFixGLL(timestamp time.Time) string {
	sentence := fmt.Sprintf("$GPGLL,,,,,%s,V,N", nmeaFractionalTime(timestamp)) // V = Invalid, N = Not valid
	return formatNMEA(sentence)
}

// generateZDA generates a ZDA (UTC Date and Time) sentence
func generateZDA(timestamp time.Time) string {
	utc := timestamp.UTC()

	// Local zone hours and minutes are always 00 as output is UTC.
	sentence := fmt.Sprintf("$GPZDA,%s,%02d,%02d,%04d,00,00",
		nmeaFractionalTime(utc), utc.Day(), int(utc.Month()), utc.Year())

	return formatNMEA(sentence)
}
