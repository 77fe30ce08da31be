package composites

import (
	"fmt"
	"strings"

	"timelapse-desktop/internal/earthengine"
	"timelapse-desktop/internal/temporal"
)

const (
	sentinel2Collection = "COPERNICUS/S2_SR_HARMONIZED"
	sentinel1Collection = "COPERNICUS/S1_GRD"

	// Stored values are reflectance x 10000
	sentinel2Scale = 0.0001

	defaultCloudPercent = 30
)

var sentinel2BandMapping = map[string]string{
	"Blue":       "B2",
	"Green":      "B3",
	"Red":        "B4",
	"Red Edge 1": "B5",
	"Red Edge 2": "B6",
	"Red Edge 3": "B7",
	"NIR":        "B8",
	"Red Edge 4": "B8A",
	"SWIR1":      "B11",
	"SWIR2":      "B12",
}

// Sentinel2Series builds one harmonized surface reflectance composite spec
// per date range. Cloud handling combines a scene-level cloud percentage
// filter with optional QA60 bit masking.
func Sentinel2Series(window temporal.WindowRequest, opts Options) ([]earthengine.CompositeSpec, error) {
	bands := opts.Bands
	if len(bands) == 0 {
		bands = []string{"NIR", "Red", "Green"}
	}
	native := mapBands(bands, sentinel2BandMapping)

	cloudPct := opts.CloudPercent
	if cloudPct == 0 {
		cloudPct = defaultCloudPercent
	}
	if cloudPct < 0 || cloudPct > 100 {
		return nil, fmt.Errorf("cloud percentage %.1f out of range [0, 100]", cloudPct)
	}

	ranges, err := windows(window)
	if err != nil {
		return nil, err
	}

	cloud := &earthengine.CloudFilter{
		MetadataProperty: "CLOUDY_PIXEL_PERCENTAGE",
		MaxCloudPercent:  cloudPct,
	}
	if opts.ApplyCloudMask {
		// QA60 bit 10 marks opaque clouds, bit 11 cirrus
		cloud.QABand = "QA60"
		cloud.MaskBits = []int{10, 11}
	}

	specs := make([]earthengine.CompositeSpec, len(ranges))
	for i, r := range ranges {
		start, end := earthengine.WindowSpan(r)
		specs[i] = earthengine.CompositeSpec{
			Collections: []string{sentinel2Collection},
			Start:       start,
			End:         end,
			Bands:       native,
			Scale:       sentinel2Scale,
			Reducer:     reducerOrDefault(opts.Reducer),
			Cloud:       cloud,
			Vis: earthengine.VisParams{
				Bands: native,
				Min:   []float64{0},
				Max:   []float64{0.4},
			},
			Label: r.Label,
		}
	}
	return specs, nil
}

// Sentinel1Series builds one radar backscatter composite spec per date range.
// Only IW-mode scenes carrying the first requested polarisation are used.
func Sentinel1Series(window temporal.WindowRequest, opts Options) ([]earthengine.CompositeSpec, error) {
	bands := opts.Bands
	if len(bands) == 0 {
		bands = []string{"VV"}
	}
	for _, b := range bands {
		switch b {
		case "VV", "VH", "HH", "HV":
		default:
			return nil, fmt.Errorf("unknown sentinel-1 polarisation: %s", b)
		}
	}

	orbit := opts.Orbit
	if len(orbit) == 0 {
		orbit = []string{"ASCENDING", "DESCENDING"}
	}
	upper := make([]string, len(orbit))
	for i, o := range orbit {
		upper[i] = strings.ToUpper(o)
		if upper[i] != "ASCENDING" && upper[i] != "DESCENDING" {
			return nil, fmt.Errorf("unknown orbit pass: %s", o)
		}
	}

	ranges, err := windows(window)
	if err != nil {
		return nil, err
	}

	vis := earthengine.VisParams{
		Bands: bands,
		Min:   []float64{-30},
		Max:   []float64{0},
	}
	if len(bands) == 1 {
		vis.Palette = []string{"000000", "ffffff"}
	}

	specs := make([]earthengine.CompositeSpec, len(ranges))
	for i, r := range ranges {
		start, end := earthengine.WindowSpan(r)
		specs[i] = earthengine.CompositeSpec{
			Collections: []string{sentinel1Collection},
			Start:       start,
			End:         end,
			Bands:       bands,
			Reducer:     reducerOrDefault(opts.Reducer),
			Filters: []earthengine.PropertyFilter{
				{Property: "instrumentMode", Op: "equals", Value: "IW"},
				{Property: "orbitProperties_pass", Op: "inList", Value: upper},
				{Property: "transmitterReceiverPolarisation", Op: "listContains", Value: bands[0]},
			},
			Vis:   vis,
			Label: r.Label,
		}
	}
	return specs, nil
}
