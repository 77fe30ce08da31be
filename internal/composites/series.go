// Package composites builds ordered composite specs for each supported
// imagery provider. A builder maps a region plus a temporal window request to
// one declarative spec per emitted date range. Builders validate their own
// options and never perform I/O; evaluation happens on the compositing
// backend.
package composites

import (
	"fmt"

	"timelapse-desktop/internal/common"
	"timelapse-desktop/internal/earthengine"
	"timelapse-desktop/internal/temporal"
)

// Options carries per-provider settings for one series. Fields not relevant
// to the selected provider are ignored.
type Options struct {
	// Bands are human band names ("NIR", "Red", ...); empty uses the
	// provider default
	Bands []string `json:"bands,omitempty"`

	// ApplyCloudMask toggles QA-band cloud masking (Landsat, Sentinel-2)
	ApplyCloudMask bool `json:"applyCloudMask"`

	// CloudPercent drops scenes above this cloud percentage (Sentinel-2)
	CloudPercent float64 `json:"cloudPercent,omitempty"`

	// Reducer overrides the default median reduction
	Reducer earthengine.Reducer `json:"reducer,omitempty"`

	// Orbit passes for Sentinel-1 ("ASCENDING", "DESCENDING")
	Orbit []string `json:"orbit,omitempty"`

	// MODIS settings
	Sensor string `json:"sensor,omitempty"` // "Terra" or "Aqua"
	Index  string `json:"index,omitempty"`  // "NDVI" or "EVI"

	// GOES settings
	Satellite       string   `json:"satellite,omitempty"` // "GOES-16".."GOES-19"
	Scan            string   `json:"scan,omitempty"`      // "full_disk", "conus", "mesoscale"
	BandCombination string   `json:"bandCombination,omitempty"`
	CustomBands     []string `json:"customBands,omitempty"` // [R, G, B] for custom_rgb
}

// Build dispatches to the provider's series builder
func Build(provider string, region common.BoundingBox, window temporal.WindowRequest, opts Options) ([]earthengine.CompositeSpec, error) {
	if err := region.Validate(); err != nil {
		return nil, fmt.Errorf("invalid region: %w", err)
	}

	switch provider {
	case common.ProviderLandsat:
		return LandsatSeries(window, opts)
	case common.ProviderSentinel2:
		return Sentinel2Series(window, opts)
	case common.ProviderSentinel1:
		return Sentinel1Series(window, opts)
	case common.ProviderNAIP:
		return NAIPSeries(window, opts)
	case common.ProviderMODIS:
		return MODISSeries(window, opts)
	case common.ProviderGOES:
		return GOESSeries(window, opts)
	}
	return nil, fmt.Errorf("unknown provider: %s", provider)
}

// windows expands the request, defaulting the reducer
func windows(window temporal.WindowRequest) ([]temporal.DateRange, error) {
	ranges, err := window.Sequence()
	if err != nil {
		return nil, err
	}
	if len(ranges) == 0 {
		return nil, fmt.Errorf("window request produced no date ranges")
	}
	return ranges, nil
}

func reducerOrDefault(r earthengine.Reducer) earthengine.Reducer {
	if r == "" {
		return earthengine.ReducerMedian
	}
	return r
}

// mapBands translates human band names through a provider mapping, passing
// unknown names straight through so native names keep working
func mapBands(names []string, mapping map[string]string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		if native, ok := mapping[n]; ok {
			out[i] = native
		} else {
			out[i] = n
		}
	}
	return out
}
