package common

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// BoundingBox represents a geographic region of interest in WGS84 degrees
type BoundingBox struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// Validate checks if the bounding box is valid
func (b BoundingBox) Validate() error {
	if b.South >= b.North {
		return fmt.Errorf("south (%f) must be less than north (%f)", b.South, b.North)
	}
	if b.West >= b.East {
		return fmt.Errorf("west (%f) must be less than east (%f)", b.West, b.East)
	}
	if b.South < -90 || b.North > 90 {
		return fmt.Errorf("latitude out of range [-90, 90]: south=%f, north=%f", b.South, b.North)
	}
	if b.West < -180 || b.East > 180 {
		return fmt.Errorf("longitude out of range [-180, 180]: west=%f, east=%f", b.West, b.East)
	}
	return nil
}

// Center returns the midpoint of the box
func (b BoundingBox) Center() (lat, lon float64) {
	return (b.South + b.North) / 2, (b.West + b.East) / 2
}

// Coordinates returns the box as [west, south, east, north], the order the
// compositing backend expects region parameters in.
func (b BoundingBox) Coordinates() [4]float64 {
	return [4]float64{b.West, b.South, b.East, b.North}
}

// RenderProgress tracks the progress of a timelapse job for the frontend
type RenderProgress struct {
	Phase        string `json:"phase"` // "composing", "rendering", "annotating", "encoding"
	CurrentFrame int    `json:"currentFrame"`
	TotalFrames  int    `json:"totalFrames"`
	Percent      int    `json:"percent"`
	Status       string `json:"status"`
}

// ValidateCachePath validates that a file path is within the cache directory
// This prevents path traversal attacks from malicious input
func ValidateCachePath(cacheDir, filePath string) error {
	if cacheDir == "" || filePath == "" {
		return fmt.Errorf("cache directory or file path is empty")
	}

	absCacheDir, err := filepath.Abs(cacheDir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for cache directory: %w", err)
	}

	absFilePath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for file: %w", err)
	}

	relPath, err := filepath.Rel(absCacheDir, absFilePath)
	if err != nil {
		return fmt.Errorf("failed to get relative path: %w", err)
	}

	if strings.HasPrefix(relPath, "..") {
		return fmt.Errorf("path traversal attempt detected: %s is outside cache directory %s", filePath, cacheDir)
	}

	return nil
}

// FrameTracker tracks progress across the frames of one job
type FrameTracker struct {
	currentFrame int
	totalFrames  int
	mu           sync.Mutex
}

// NewFrameTracker creates a new frame tracker
func NewFrameTracker(totalFrames int) *FrameTracker {
	return &FrameTracker{totalFrames: totalFrames}
}

// GetProgress returns the current frame and total frames
func (ft *FrameTracker) GetProgress() (current, total int) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return ft.currentFrame, ft.totalFrames
}

// IncrementFrame increments the frame counter and returns the new value
func (ft *FrameTracker) IncrementFrame() int {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.currentFrame++
	return ft.currentFrame
}
