package composites

import (
	"fmt"
	"time"

	"timelapse-desktop/internal/earthengine"
	"timelapse-desktop/internal/temporal"
)

const (
	modisTerraCollection = "MODIS/061/MOD13A2"
	modisAquaCollection  = "MODIS/061/MYD13A2"
)

// Classic white-to-deep-green vegetation ramp
var modisPalette = []string{
	"FFFFFF", "CE7E45", "DF923D", "F1B555", "FCD163", "99B718",
	"74A901", "66A000", "529400", "3E8601", "207401", "056201",
	"004C00", "023B01", "012E01", "011D01", "011301",
}

// MODISSeries builds vegetation index composite specs. At Day frequency each
// frame is a day-of-year median across every requested year, which animates
// the seasonal greening cycle; at coarser frequencies each frame is a plain
// median over its window.
func MODISSeries(window temporal.WindowRequest, opts Options) ([]earthengine.CompositeSpec, error) {
	collection := modisTerraCollection
	switch opts.Sensor {
	case "", "Terra":
	case "Aqua":
		collection = modisAquaCollection
	default:
		return nil, fmt.Errorf("unknown modis sensor: %s (must be Terra or Aqua)", opts.Sensor)
	}

	index := opts.Index
	if index == "" {
		index = "NDVI"
	}
	if index != "NDVI" && index != "EVI" {
		return nil, fmt.Errorf("unknown modis index: %s (must be NDVI or EVI)", index)
	}

	ranges, err := windows(window)
	if err != nil {
		return nil, err
	}

	vis := earthengine.VisParams{
		Bands:   []string{index},
		Min:     []float64{0},
		Max:     []float64{9000},
		Palette: modisPalette,
	}

	phenology := window.Frequency == temporal.FrequencyDay
	archiveStart := time.Date(window.StartYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	archiveEnd := time.Date(window.EndYear+1, time.January, 1, 0, 0, 0, 0, time.UTC)

	specs := make([]earthengine.CompositeSpec, len(ranges))
	for i, r := range ranges {
		spec := earthengine.CompositeSpec{
			Collections: []string{collection},
			Bands:       []string{index},
			Reducer:     earthengine.ReducerMedian,
			Vis:         vis,
			Label:       r.Label,
		}
		if phenology {
			// Median of this day-of-year across the whole requested archive
			spec.Start = archiveStart
			spec.End = archiveEnd
			spec.Filters = []earthengine.PropertyFilter{
				{Property: "dayOfYear", Op: "equals", Value: r.Start.YearDay()},
			}
		} else {
			spec.Start, spec.End = earthengine.WindowSpan(r)
		}
		specs[i] = spec
	}
	return specs, nil
}
