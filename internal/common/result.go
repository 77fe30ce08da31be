package common

import "image"

// FrameResult represents the outcome of rendering a single composite frame.
// The index preserves chronological order when frames come back from the
// worker pool out of order.
type FrameResult struct {
	// Label is the date-window label the frame was rendered for
	Label string

	// Image is the decoded frame, nil on failure
	Image image.Image

	// Success indicates whether the render succeeded
	Success bool

	// Error contains any error that occurred during rendering
	Error error

	// Index preserves the original order for async operations
	Index int
}
