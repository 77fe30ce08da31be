package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSeasonPresetsAreValid(t *testing.T) {
	for _, preset := range DefaultSettings().SeasonPresets {
		p := preset
		assert.NoError(t, ValidateSeasonPreset(&p), p.Name)
	}
}

func TestValidateSeasonPreset(t *testing.T) {
	good := SeasonPreset{Name: "summer", SeasonStart: "06-01", SeasonEnd: "08-31", Frequency: "year"}
	require.NoError(t, ValidateSeasonPreset(&good))

	bad := good
	bad.Name = ""
	assert.Error(t, ValidateSeasonPreset(&bad))

	bad = good
	bad.SeasonStart = "13-01"
	assert.Error(t, ValidateSeasonPreset(&bad))

	bad = good
	bad.Frequency = "decade"
	assert.Error(t, ValidateSeasonPreset(&bad))

	// Wrap-around seasons need a sub-year frequency
	wrap := SeasonPreset{Name: "austral", SeasonStart: "12-01", SeasonEnd: "02-28", Frequency: "year"}
	assert.Error(t, ValidateSeasonPreset(&wrap))
	wrap.Frequency = "month"
	assert.NoError(t, ValidateSeasonPreset(&wrap))
}
