package common

import "fmt"

// OutputFormat represents the animation container written for a job
type OutputFormat struct {
	GIF bool // Animated GIF
	MP4 bool // H.264 MP4 (requires ffmpeg)
	AVI bool // Motion-JPEG AVI fallback
}

// ParseOutputFormat converts a format string to OutputFormat struct
// Accepted values: "gif", "mp4", "avi", "gif+mp4"
func ParseOutputFormat(format string) (OutputFormat, error) {
	switch format {
	case "gif":
		return OutputFormat{GIF: true}, nil
	case "mp4":
		return OutputFormat{MP4: true}, nil
	case "avi":
		return OutputFormat{AVI: true}, nil
	case "gif+mp4":
		return OutputFormat{GIF: true, MP4: true}, nil
	default:
		return OutputFormat{}, fmt.Errorf("invalid format: %s (must be 'gif', 'mp4', 'avi', or 'gif+mp4')", format)
	}
}

// String returns the string representation of the output format
func (of OutputFormat) String() string {
	switch {
	case of.GIF && of.MP4:
		return "gif+mp4"
	case of.GIF:
		return "gif"
	case of.MP4:
		return "mp4"
	case of.AVI:
		return "avi"
	}
	return "none"
}
