package main

import (
	"fmt"
	"log"

	"timelapse-desktop/internal/config"
)

// ===================
// Settings Management
// ===================

// GetSettings returns current user settings
func (a *App) GetSettings() (*config.UserSettings, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Return a copy to prevent external modifications
	settingsCopy := *a.settings
	return &settingsCopy, nil
}

// SaveSettings saves user settings to disk and updates app state
func (a *App) SaveSettings(settings *config.UserSettings) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Validate settings
	if settings.OutputPath == "" {
		return fmt.Errorf("output path cannot be empty")
	}
	if settings.CacheMaxSizeMB <= 0 {
		return fmt.Errorf("cache size must be positive")
	}
	if settings.CacheTTLDays <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}
	if settings.MaxConcurrentRenders < 1 {
		return fmt.Errorf("concurrent renders must be at least 1")
	}

	// Save to disk
	if err := config.SaveSettings(settings); err != nil {
		return err
	}

	// Update app state
	a.settings = settings
	a.outputPath = settings.OutputPath
	if a.rateLimitHandler != nil {
		a.rateLimitHandler.SetAutoRetry(settings.AutoRetryOnRateLimit)
	}

	// Note: Cache settings require app restart to take effect
	log.Printf("Settings saved. Cache settings will apply on next restart.")

	return nil
}

// GetSettingsPath returns the OS-specific settings file path
func (a *App) GetSettingsPath() string {
	return config.GetSettingsPath()
}

// SaveMapPosition saves the current map position for session persistence
// Called on app close or periodically to remember the last viewed location
func (a *App) SaveMapPosition(lat, lon float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.settings.DefaultCenterLat = lat
	a.settings.DefaultCenterLon = lon

	if err := config.SaveSettings(a.settings); err != nil {
		return err
	}

	log.Printf("Saved map position: lat=%.6f, lon=%.6f", lat, lon)
	return nil
}

// ===================
// Season Presets
// ===================

// AddSeasonPreset adds a new seasonal window preset
func (a *App) AddSeasonPreset(preset config.SeasonPreset) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Validate preset
	if err := config.ValidateSeasonPreset(&preset); err != nil {
		return err
	}

	// Check for duplicate names
	for _, existing := range a.settings.SeasonPresets {
		if existing.Name == preset.Name {
			return fmt.Errorf("preset with name '%s' already exists", preset.Name)
		}
	}

	a.settings.SeasonPresets = append(a.settings.SeasonPresets, preset)

	if err := config.SaveSettings(a.settings); err != nil {
		return err
	}

	log.Printf("Added season preset: %s", preset.Name)
	return nil
}

// RemoveSeasonPreset removes a seasonal window preset by name
func (a *App) RemoveSeasonPreset(name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	found := false
	newPresets := make([]config.SeasonPreset, 0)
	for _, preset := range a.settings.SeasonPresets {
		if preset.Name != name {
			newPresets = append(newPresets, preset)
		} else {
			found = true
		}
	}

	if !found {
		return fmt.Errorf("preset '%s' not found", name)
	}

	a.settings.SeasonPresets = newPresets

	if err := config.SaveSettings(a.settings); err != nil {
		return err
	}

	log.Printf("Removed season preset: %s", name)
	return nil
}

// UpdateSeasonPreset updates an existing season preset
func (a *App) UpdateSeasonPreset(name string, preset config.SeasonPreset) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Validate preset
	if err := config.ValidateSeasonPreset(&preset); err != nil {
		return err
	}

	found := false
	for i, existing := range a.settings.SeasonPresets {
		if existing.Name == name {
			a.settings.SeasonPresets[i] = preset
			found = true
			break
		}
	}

	if !found {
		return fmt.Errorf("preset '%s' not found", name)
	}

	if err := config.SaveSettings(a.settings); err != nil {
		return err
	}

	log.Printf("Updated season preset: %s", name)
	return nil
}

// SetDefaultSeasonPreset sets the default seasonal window preset
func (a *App) SetDefaultSeasonPreset(name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Verify preset exists
	found := false
	for _, preset := range a.settings.SeasonPresets {
		if preset.Name == name {
			found = true
			break
		}
	}

	if !found && name != "" {
		return fmt.Errorf("preset '%s' not found", name)
	}

	a.settings.DefaultPreset = name

	if err := config.SaveSettings(a.settings); err != nil {
		return err
	}

	log.Printf("Set default season preset: %s", name)
	return nil
}
