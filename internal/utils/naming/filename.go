package naming

import (
	"fmt"
	"math"
	"strings"
)

// GenerateTimelapseFilename creates a standardized output filename with metadata
// Format: {provider}_{startYear}-{endYear}_{frequency}_{bbox}
// The extension is added by the exporter based on output format.
func GenerateTimelapseFilename(provider, frequency string, startYear, endYear int, south, west, north, east float64) string {
	bboxStr := fmt.Sprintf("%s-%s_%s-%s",
		SanitizeCoordinate(south, true),
		SanitizeCoordinate(north, true),
		SanitizeCoordinate(west, false),
		SanitizeCoordinate(east, false))

	return fmt.Sprintf("%s_%d-%d_%s_%s", provider, startYear, endYear, frequency, bboxStr)
}

// GenerateFrameDirName creates a standardized directory name for exported frames
// Format: {provider}_{startYear}-{endYear}_frames
func GenerateFrameDirName(provider string, startYear, endYear int) string {
	return fmt.Sprintf("%s_%d-%d_frames", provider, startYear, endYear)
}

// SanitizeCoordinate formats a coordinate for use in filenames (removes minus sign, uses N/S/E/W)
// Replaces decimal point with 'p' for Windows compatibility
func SanitizeCoordinate(coord float64, isLat bool) string {
	dir := "E"
	if isLat {
		if coord < 0 {
			dir = "S"
		} else {
			dir = "N"
		}
	} else {
		if coord < 0 {
			dir = "W"
		} else {
			dir = "E"
		}
	}
	// Format and replace decimal point with 'p'
	coordStr := fmt.Sprintf("%.4f", math.Abs(coord))
	coordStr = strings.Replace(coordStr, ".", "p", 1)
	return coordStr + dir
}
