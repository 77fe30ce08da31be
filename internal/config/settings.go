package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"timelapse-desktop/internal/temporal"
)

// SeasonPreset is a reusable seasonal window the user can pick instead of
// typing month-day bounds by hand
type SeasonPreset struct {
	Name        string `json:"name"`
	SeasonStart string `json:"seasonStart"` // "MM-DD"
	SeasonEnd   string `json:"seasonEnd"`   // "MM-DD"
	Frequency   string `json:"frequency"`   // "year", "quarter", "month", "day"
	Enabled     bool   `json:"enabled"`
}

// UserSettings represents persistent user preferences
type UserSettings struct {
	// Backend credentials
	ProjectID string `json:"projectID"` // Cloud project the backend bills against

	// Output settings
	OutputPath        string `json:"outputPath"`
	DefaultFormat     string `json:"defaultFormat"` // "gif", "mp4", "avi", "gif+mp4"
	AutoOpenOutputDir bool   `json:"autoOpenOutputDir"`

	// Cache settings
	CacheMaxSizeMB int `json:"cacheMaxSizeMB"`
	CacheTTLDays   int `json:"cacheTTLDays"`

	// Default map settings
	DefaultProvider  string  `json:"defaultProvider"`
	DefaultCenterLat float64 `json:"defaultCenterLat"`
	DefaultCenterLon float64 `json:"defaultCenterLon"`

	// Render settings
	DefaultDimensions    int  `json:"defaultDimensions"` // max output edge in pixels
	MaxConcurrentRenders int  `json:"maxConcurrentRenders"`
	ServerSideRender     bool `json:"serverSideRender"`
	AutoRetryOnRateLimit bool `json:"autoRetryOnRateLimit"`

	// Seasonal window presets
	SeasonPresets []SeasonPreset `json:"seasonPresets"`
	DefaultPreset string         `json:"defaultPreset"` // Name of default preset to apply

	// UI preferences
	Theme string `json:"theme"` // "light", "dark", "system"
}

// DefaultSettings returns default user settings
func DefaultSettings() *UserSettings {
	homeDir, _ := os.UserHomeDir()
	outputPath := filepath.Join(homeDir, "Downloads", "timelapses")

	return &UserSettings{
		OutputPath:           outputPath,
		DefaultFormat:        "gif",
		AutoOpenOutputDir:    true,
		CacheMaxSizeMB:       250,
		CacheTTLDays:         30,
		DefaultProvider:      "landsat",
		DefaultCenterLat:     30.0444, // Cairo, Egypt
		DefaultCenterLon:     31.2357,
		DefaultDimensions:    768,
		MaxConcurrentRenders: 2,
		ServerSideRender:     false,
		AutoRetryOnRateLimit: true,
		SeasonPresets: []SeasonPreset{
			{
				Name:        "Northern Summer (June-August)",
				SeasonStart: "06-01",
				SeasonEnd:   "08-31",
				Frequency:   "year",
				Enabled:     false,
			},
			{
				Name:        "Growing Season (April-October)",
				SeasonStart: "04-01",
				SeasonEnd:   "10-31",
				Frequency:   "year",
				Enabled:     false,
			},
			{
				Name:        "Austral Summer (December-February)",
				SeasonStart: "12-01",
				SeasonEnd:   "02-28",
				Frequency:   "quarter",
				Enabled:     false,
			},
			{
				Name:        "Monthly, Whole Year",
				SeasonStart: "01-01",
				SeasonEnd:   "12-31",
				Frequency:   "month",
				Enabled:     false,
			},
		},
		DefaultPreset: "",
		Theme:         "system",
	}
}

// GetSettingsPath returns the OS-specific settings file path
func GetSettingsPath() string {
	homeDir, _ := os.UserHomeDir()

	// Unified directory structure: ~/.timelapse-desktop/settings/
	baseDir := filepath.Join(homeDir, ".timelapse-desktop", "settings")

	// Ensure directory exists
	os.MkdirAll(baseDir, 0755)

	return filepath.Join(baseDir, "settings.json")
}

// LoadSettings loads user settings from disk
func LoadSettings() (*UserSettings, error) {
	settingsPath := GetSettingsPath()

	// If file doesn't exist, return defaults
	if _, err := os.Stat(settingsPath); os.IsNotExist(err) {
		return DefaultSettings(), nil
	}

	data, err := os.ReadFile(settingsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var settings UserSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	// Merge with defaults for any missing fields
	defaults := DefaultSettings()
	if settings.OutputPath == "" {
		settings.OutputPath = defaults.OutputPath
	}
	if settings.DefaultFormat == "" {
		settings.DefaultFormat = defaults.DefaultFormat
	}
	if settings.CacheMaxSizeMB == 0 {
		settings.CacheMaxSizeMB = defaults.CacheMaxSizeMB
	}
	if settings.CacheTTLDays == 0 {
		settings.CacheTTLDays = defaults.CacheTTLDays
	}
	if settings.DefaultProvider == "" {
		settings.DefaultProvider = defaults.DefaultProvider
	}
	if settings.DefaultDimensions == 0 {
		settings.DefaultDimensions = defaults.DefaultDimensions
	}
	if settings.MaxConcurrentRenders == 0 {
		settings.MaxConcurrentRenders = defaults.MaxConcurrentRenders
	}
	if settings.Theme == "" {
		settings.Theme = defaults.Theme
	}
	if settings.SeasonPresets == nil {
		settings.SeasonPresets = defaults.SeasonPresets
	}

	return &settings, nil
}

// SaveSettings saves user settings to disk
func SaveSettings(settings *UserSettings) error {
	settingsPath := GetSettingsPath()

	// Ensure directory exists
	dir := filepath.Dir(settingsPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.WriteFile(settingsPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	return nil
}

// ValidateSeasonPreset validates a season preset configuration
func ValidateSeasonPreset(preset *SeasonPreset) error {
	if preset.Name == "" {
		return fmt.Errorf("preset name is required")
	}
	if _, err := temporal.ParseFrequency(preset.Frequency); err != nil {
		return err
	}

	// Run the window through the sequencer over a throwaway year pair so
	// malformed month-day bounds are caught at save time
	probe := temporal.WindowRequest{
		StartYear:   2020,
		EndYear:     2021,
		SeasonStart: preset.SeasonStart,
		SeasonEnd:   preset.SeasonEnd,
		Frequency:   temporal.Frequency(preset.Frequency),
		Step:        1,
	}
	if _, err := probe.Sequence(); err != nil {
		return err
	}

	return nil
}
