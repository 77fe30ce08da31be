package composites

import (
	"fmt"
	"strings"

	"timelapse-desktop/internal/earthengine"
	"timelapse-desktop/internal/temporal"
)

var goesScanTypes = map[string]string{
	"full_disk": "MCMIPF",
	"conus":     "MCMIPC",
	"mesoscale": "MCMIPM",
}

var goesSatellites = map[string]bool{
	"GOES-16": true,
	"GOES-17": true,
	"GOES-18": true,
	"GOES-19": true,
}

// GOES band combinations
const (
	GOESTrueColor     = "true_color"
	GOESVolcanicAsh   = "volcanic_ash"
	GOESVolcanicGases = "volcanic_gases"
	GOESCustomRGB     = "custom_rgb"
)

// GOESSeries builds weather satellite composite specs, one per date range.
// Day frequency with per-day windows is the usual choice for storm
// animations. The visible channels have no green band; true color derives a
// synthetic one from red, veggie and blue.
func GOESSeries(window temporal.WindowRequest, opts Options) ([]earthengine.CompositeSpec, error) {
	satellite := opts.Satellite
	if satellite == "" {
		satellite = "GOES-19"
	}
	if !goesSatellites[satellite] {
		return nil, fmt.Errorf("unknown goes satellite: %s", satellite)
	}

	scan := opts.Scan
	if scan == "" {
		scan = "full_disk"
	}
	product, ok := goesScanTypes[strings.ToLower(scan)]
	if !ok {
		return nil, fmt.Errorf("unknown goes scan type: %s (must be full_disk, conus, or mesoscale)", scan)
	}

	mode := strings.ToLower(strings.TrimSpace(opts.BandCombination))
	if mode == "" {
		mode = GOESTrueColor
	}

	var expressions []earthengine.BandExpression
	var vis earthengine.VisParams
	switch mode {
	case GOESTrueColor:
		expressions = []earthengine.BandExpression{{
			Name:    "CMI_GREEN",
			Formula: "0.45 * red + 0.10 * nir + 0.45 * blue",
			Inputs:  map[string]string{"blue": "CMI_C01", "red": "CMI_C02", "nir": "CMI_C03"},
		}}
		vis = earthengine.VisParams{
			Bands: []string{"CMI_C02", "CMI_GREEN", "CMI_C01"},
			Min:   []float64{0},
			Max:   []float64{0.8},
		}
	case GOESVolcanicAsh:
		expressions = thermalExpressions("b13 - b11")
		vis = earthengine.VisParams{
			Bands: []string{"GOES_RED", "GOES_GREEN", "GOES_BLUE"},
			Min:   []float64{-6.7, -6.0, 243.6},
			Max:   []float64{2.6, 6.3, 302.4},
		}
	case GOESVolcanicGases:
		expressions = thermalExpressions("b13 - b07")
		vis = earthengine.VisParams{
			Bands: []string{"GOES_RED", "GOES_GREEN", "GOES_BLUE"},
			Min:   []float64{-4.0, -4.0, 243.6},
			Max:   []float64{2.0, 5.0, 302.4},
		}
	case GOESCustomRGB:
		selected := opts.CustomBands
		if len(selected) == 0 {
			selected = []string{"CMI_C02", "CMI_C03", "CMI_C01"}
		}
		if len(selected) != 3 {
			return nil, fmt.Errorf("custom_rgb needs exactly three bands [R, G, B], got %d", len(selected))
		}
		mins := make([]float64, 3)
		maxs := make([]float64, 3)
		for i, b := range selected {
			mins[i], maxs[i] = goesBandRange(b)
		}
		vis = earthengine.VisParams{Bands: selected, Min: mins, Max: maxs}
	default:
		return nil, fmt.Errorf("unknown goes band combination: %s", opts.BandCombination)
	}

	ranges, err := windows(window)
	if err != nil {
		return nil, err
	}

	collection := fmt.Sprintf("NOAA/GOES/%s/%s", satellite[len(satellite)-2:], product)

	specs := make([]earthengine.CompositeSpec, len(ranges))
	for i, r := range ranges {
		start, end := earthengine.WindowSpan(r)
		specs[i] = earthengine.CompositeSpec{
			Collections: []string{collection},
			Start:       start,
			End:         end,
			Reducer:     reducerOrDefault(opts.Reducer),
			Expressions: expressions,
			Vis:         vis,
			Label:       r.Label,
		}
	}
	return specs, nil
}

// thermalExpressions builds the split-window RGB used by the volcanic modes.
// Red is always the C15-C13 difference, blue the clean IR window; the green
// formula distinguishes ash from gases.
func thermalExpressions(greenFormula string) []earthengine.BandExpression {
	inputs := map[string]string{
		"b07": "CMI_C07",
		"b11": "CMI_C11",
		"b13": "CMI_C13",
		"b15": "CMI_C15",
	}
	return []earthengine.BandExpression{
		{Name: "GOES_RED", Formula: "b15 - b13", Inputs: inputs},
		{Name: "GOES_GREEN", Formula: greenFormula, Inputs: inputs},
		{Name: "GOES_BLUE", Formula: "b13", Inputs: inputs},
	}
}

// goesBandRange returns display bounds for a CMI band: reflective channels
// (C01-C06) are reflectance 0..1, emissive channels brightness temperature
func goesBandRange(band string) (min, max float64) {
	var idx int
	if _, err := fmt.Sscanf(band, "CMI_C%02d", &idx); err == nil && idx <= 6 {
		return 0, 1
	}
	return 180, 330
}
