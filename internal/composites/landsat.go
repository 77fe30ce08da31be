package composites

import (
	"fmt"

	"timelapse-desktop/internal/earthengine"
	"timelapse-desktop/internal/temporal"
)

// Landsat Collection 2 Level 2 surface reflectance collections, newest first
var landsatCollections = []string{
	"LANDSAT/LC09/C02/T1_L2",
	"LANDSAT/LC08/C02/T1_L2",
	"LANDSAT/LE07/C02/T1_L2",
	"LANDSAT/LT05/C02/T1_L2",
	"LANDSAT/LT04/C02/T1_L2",
}

var landsatCommonBands = []string{"Blue", "Green", "Red", "NIR", "SWIR1", "SWIR2"}

// OLI (Landsat 8/9) and ETM+/TM (Landsat 4/5/7) number their surface
// reflectance bands differently; both rename to the common set
var landsatRenames = []earthengine.RenameRule{
	{Collection: "LANDSAT/LC09/C02/T1_L2", From: []string{"SR_B2", "SR_B3", "SR_B4", "SR_B5", "SR_B6", "SR_B7"}, To: landsatCommonBands},
	{Collection: "LANDSAT/LC08/C02/T1_L2", From: []string{"SR_B2", "SR_B3", "SR_B4", "SR_B5", "SR_B6", "SR_B7"}, To: landsatCommonBands},
	{Collection: "LANDSAT/LE07/C02/T1_L2", From: []string{"SR_B1", "SR_B2", "SR_B3", "SR_B4", "SR_B5", "SR_B7"}, To: landsatCommonBands},
	{Collection: "LANDSAT/LT05/C02/T1_L2", From: []string{"SR_B1", "SR_B2", "SR_B3", "SR_B4", "SR_B5", "SR_B7"}, To: landsatCommonBands},
	{Collection: "LANDSAT/LT04/C02/T1_L2", From: []string{"SR_B1", "SR_B2", "SR_B3", "SR_B4", "SR_B5", "SR_B7"}, To: landsatCommonBands},
}

const (
	// Collection 2 scale factors converting stored values to reflectance
	landsatScale  = 0.0000275
	landsatOffset = -0.2

	// QA_PIXEL low bits: fill, dilated cloud, cirrus, cloud, cloud shadow
	landsatQAMask = 0b11111

	landsatFirstYear = 1984
)

// LandsatSeries builds one merged Landsat 4-9 composite spec per date range.
// Default visualization is false color (NIR/Red/Green) over reflectance.
func LandsatSeries(window temporal.WindowRequest, opts Options) ([]earthengine.CompositeSpec, error) {
	if window.StartYear < landsatFirstYear {
		return nil, fmt.Errorf("landsat archive starts in %d, requested %d", landsatFirstYear, window.StartYear)
	}

	bands := opts.Bands
	if len(bands) == 0 {
		bands = []string{"NIR", "Red", "Green"}
	}
	for _, b := range bands {
		if !contains(landsatCommonBands, b) {
			return nil, fmt.Errorf("unknown landsat band: %s", b)
		}
	}

	ranges, err := windows(window)
	if err != nil {
		return nil, err
	}

	var cloud *earthengine.CloudFilter
	if opts.ApplyCloudMask {
		cloud = &earthengine.CloudFilter{
			QABand:   "QA_PIXEL",
			MaskBits: []int{0, 1, 2, 3, 4},
		}
	}

	specs := make([]earthengine.CompositeSpec, len(ranges))
	for i, r := range ranges {
		start, end := earthengine.WindowSpan(r)
		specs[i] = earthengine.CompositeSpec{
			Collections: landsatCollections,
			Start:       start,
			End:         end,
			Bands:       bands,
			Renames:     landsatRenames,
			Scale:       landsatScale,
			Offset:      landsatOffset,
			Reducer:     reducerOrDefault(opts.Reducer),
			Cloud:       cloud,
			Vis: earthengine.VisParams{
				Bands: bands,
				Min:   []float64{0},
				Max:   []float64{0.4},
				Gamma: 1,
			},
			Label: r.Label,
		}
	}
	return specs, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
