package common

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundingBoxValidate(t *testing.T) {
	valid := BoundingBox{South: 36.0, West: -112.3, North: 36.4, East: -111.8}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name string
		box  BoundingBox
	}{
		{"south above north", BoundingBox{South: 37, West: -112, North: 36, East: -111}},
		{"west past east", BoundingBox{South: 36, West: -111, North: 37, East: -112}},
		{"latitude out of range", BoundingBox{South: -95, West: -112, North: 36, East: -111}},
		{"longitude out of range", BoundingBox{South: 36, West: -181, North: 37, East: -111}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.box.Validate())
		})
	}
}

func TestBoundingBoxCenter(t *testing.T) {
	box := BoundingBox{South: 36.0, West: -112.0, North: 38.0, East: -110.0}
	lat, lon := box.Center()
	assert.InDelta(t, 37.0, lat, 1e-9)
	assert.InDelta(t, -111.0, lon, 1e-9)
}

func TestBoundingBoxCoordinates(t *testing.T) {
	box := BoundingBox{South: 36.0, West: -112.3, North: 36.4, East: -111.8}
	assert.Equal(t, [4]float64{-112.3, 36.0, -111.8, 36.4}, box.Coordinates())
}

func TestValidateCachePath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, ValidateCachePath(dir, filepath.Join(dir, "landsat", "abc", "2021.png")))
	assert.Error(t, ValidateCachePath(dir, filepath.Join(dir, "..", "escape.png")))
	assert.Error(t, ValidateCachePath("", "anything"))
}

func TestFrameTrackerProgress(t *testing.T) {
	ft := NewFrameTracker(4)

	current, total := ft.GetProgress()
	assert.Zero(t, current)
	assert.Equal(t, 4, total)

	assert.Equal(t, 1, ft.IncrementFrame())
	assert.Equal(t, 2, ft.IncrementFrame())

	current, total = ft.GetProgress()
	assert.Equal(t, 2, current)
	assert.Equal(t, 4, total)
}
