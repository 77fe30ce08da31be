package common

import (
	"fmt"
	"time"
)

// Standard date format constants
const (
	// ISO8601Date is the standard date format used throughout the application
	// for cache keys, file naming, and backend date filters
	ISO8601Date = "2006-01-02"

	// DisplayDate is the human-readable format used for UI display
	DisplayDate = "Jan 02, 2006"

	// CaptionDate is the format used for frame caption overlays when a job
	// asks for full dates instead of window labels
	CaptionDate = "January 2, 2006"
)

// ParseISO8601 parses a date string in ISO 8601 format (YYYY-MM-DD)
func ParseISO8601(dateStr string) (time.Time, error) {
	if dateStr == "" {
		return time.Time{}, fmt.Errorf("date string is empty")
	}
	return time.Parse(ISO8601Date, dateStr)
}

// FormatISO8601 formats a time.Time to ISO 8601 date string (YYYY-MM-DD)
func FormatISO8601(t time.Time) string {
	return t.Format(ISO8601Date)
}

// FormatDisplay formats a time.Time to display format (Jan 02, 2006)
func FormatDisplay(t time.Time) string {
	return t.Format(DisplayDate)
}

// FormatCaption formats a time.Time for frame caption text (January 2, 2006)
func FormatCaption(t time.Time) string {
	return t.Format(CaptionDate)
}
