package common

import "fmt"

// Provider identifiers used for cache keys, task payloads, and rate-limit state
const (
	ProviderLandsat   = "landsat"
	ProviderSentinel2 = "sentinel2"
	ProviderSentinel1 = "sentinel1"
	ProviderNAIP      = "naip"
	ProviderMODIS     = "modis"
	ProviderGOES      = "goes"
)

// Human-readable names shown in the UI
const (
	DisplayNameLandsat   = "Landsat"
	DisplayNameSentinel2 = "Sentinel-2"
	DisplayNameSentinel1 = "Sentinel-1"
	DisplayNameNAIP      = "NAIP"
	DisplayNameMODIS     = "MODIS NDVI"
	DisplayNameGOES      = "GOES"
)

var providerDisplayNames = map[string]string{
	ProviderLandsat:   DisplayNameLandsat,
	ProviderSentinel2: DisplayNameSentinel2,
	ProviderSentinel1: DisplayNameSentinel1,
	ProviderNAIP:      DisplayNameNAIP,
	ProviderMODIS:     DisplayNameMODIS,
	ProviderGOES:      DisplayNameGOES,
}

// ValidateProvider checks a provider identifier coming from the frontend.
func ValidateProvider(provider string) error {
	if _, ok := providerDisplayNames[provider]; !ok {
		return fmt.Errorf("unknown provider: %s", provider)
	}
	return nil
}

// ProviderDisplayName returns the UI name for a provider identifier, falling
// back to the identifier itself for unknown values.
func ProviderDisplayName(provider string) string {
	if name, ok := providerDisplayNames[provider]; ok {
		return name
	}
	return provider
}

// Providers returns the supported provider identifiers in UI order.
func Providers() []string {
	return []string{
		ProviderLandsat, ProviderSentinel2, ProviderSentinel1,
		ProviderNAIP, ProviderMODIS, ProviderGOES,
	}
}
