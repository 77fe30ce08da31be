package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timelapse-desktop/internal/temporal"
)

func TestPreviewDateWindows(t *testing.T) {
	app := &App{}

	preview, err := app.PreviewDateWindows(temporal.WindowRequest{
		StartYear: 2020, EndYear: 2022,
		SeasonStart: "06-01", SeasonEnd: "09-01",
		Frequency: temporal.FrequencyYear, Step: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, preview.Count)
	assert.Equal(t, []string{"2020", "2021", "2022"}, preview.Labels)
	require.Len(t, preview.Spans, 3)
	assert.Equal(t, "Jun 01, 2020 to Sep 01, 2020", preview.Spans[0])
}

func TestPreviewDateWindowsRejectsBadSeason(t *testing.T) {
	app := &App{}

	_, err := app.PreviewDateWindows(temporal.WindowRequest{
		StartYear: 2020, EndYear: 2021,
		SeasonStart: "13-01", SeasonEnd: "09-01",
		Frequency: temporal.FrequencyMonth, Step: 1,
	})
	require.Error(t, err)

	var verr *temporal.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestGetExportPresets(t *testing.T) {
	app := &App{}

	presets := app.GetExportPresets()
	require.NotEmpty(t, presets)

	assert.Equal(t, "custom", presets[0].ID)
	assert.Zero(t, presets[0].Width)
	assert.Zero(t, presets[0].Height)

	byID := make(map[string]PresetInfo)
	for _, p := range presets {
		assert.NotEmpty(t, p.Label)
		byID[p.ID] = p
	}

	yt, ok := byID["youtube"]
	require.True(t, ok)
	assert.Equal(t, 1920, yt.Width)
	assert.Equal(t, 1080, yt.Height)
}
