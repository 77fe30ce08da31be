package composites

import (
	"fmt"

	"timelapse-desktop/internal/earthengine"
	"timelapse-desktop/internal/temporal"
)

const (
	naipCollection = "USDA/NAIP/DOQQ"
	naipFirstYear  = 2003
)

// NAIPSeries builds one annual aerial mosaic spec per year. The program
// flies on a multi-year cycle, so the backend drops years with no coverage.
func NAIPSeries(window temporal.WindowRequest, opts Options) ([]earthengine.CompositeSpec, error) {
	if window.Frequency != temporal.FrequencyYear {
		return nil, fmt.Errorf("naip mosaics are annual; got frequency %s", window.Frequency)
	}
	if window.StartYear < naipFirstYear {
		return nil, fmt.Errorf("naip archive starts in %d, requested %d", naipFirstYear, window.StartYear)
	}

	bands := opts.Bands
	if len(bands) == 0 {
		bands = []string{"R", "G", "B"}
	}
	useNIR := false
	for _, b := range bands {
		switch b {
		case "R", "G", "B":
		case "N":
			useNIR = true
		default:
			return nil, fmt.Errorf("unknown naip band: %s", b)
		}
	}

	ranges, err := windows(window)
	if err != nil {
		return nil, err
	}

	var filters []earthengine.PropertyFilter
	if useNIR {
		// Older NAIP flights carry only three bands
		filters = append(filters, earthengine.PropertyFilter{
			Property: "system:band_names", Op: "listContains", Value: "N",
		})
	}

	specs := make([]earthengine.CompositeSpec, len(ranges))
	for i, r := range ranges {
		start, end := earthengine.WindowSpan(r)
		specs[i] = earthengine.CompositeSpec{
			Collections: []string{naipCollection},
			Start:       start,
			End:         end,
			Bands:       bands,
			Reducer:     earthengine.ReducerMosaic,
			Filters:     filters,
			Vis: earthengine.VisParams{
				Bands: bands,
				Min:   []float64{0},
				Max:   []float64{255},
			},
			Label: r.Label,
		}
	}
	return specs, nil
}
