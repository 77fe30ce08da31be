package composites

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timelapse-desktop/internal/common"
	"timelapse-desktop/internal/earthengine"
	"timelapse-desktop/internal/temporal"
)

var testRegion = common.BoundingBox{South: 36.0, West: -122.5, North: 36.5, East: -122.0}

func summerWindow(startYear, endYear int) temporal.WindowRequest {
	return temporal.WindowRequest{
		StartYear: startYear, EndYear: endYear,
		SeasonStart: "06-10", SeasonEnd: "09-20",
		Frequency: temporal.FrequencyYear, Step: 1,
	}
}

func TestBuildDispatch(t *testing.T) {
	specs, err := Build(common.ProviderLandsat, testRegion, summerWindow(2019, 2021), Options{})
	require.NoError(t, err)
	assert.Len(t, specs, 3)

	_, err = Build("imaginary", testRegion, summerWindow(2019, 2021), Options{})
	assert.Error(t, err)

	badRegion := common.BoundingBox{South: 1, North: 0, West: 0, East: 1}
	_, err = Build(common.ProviderLandsat, badRegion, summerWindow(2019, 2021), Options{})
	assert.Error(t, err)
}

func TestLandsatSeries(t *testing.T) {
	specs, err := LandsatSeries(summerWindow(2019, 2021), Options{ApplyCloudMask: true})
	require.NoError(t, err)
	require.Len(t, specs, 3)

	first := specs[0]
	assert.Equal(t, "2019", first.Label)
	assert.Len(t, first.Collections, 5)
	assert.Len(t, first.Renames, 5)
	assert.Equal(t, []string{"NIR", "Red", "Green"}, first.Bands)
	assert.Equal(t, earthengine.ReducerMedian, first.Reducer)
	assert.InDelta(t, 0.0000275, first.Scale, 1e-10)
	assert.InDelta(t, -0.2, first.Offset, 1e-10)
	require.NotNil(t, first.Cloud)
	assert.Equal(t, "QA_PIXEL", first.Cloud.QABand)

	// Window end is exclusive, one day past the range end
	assert.Equal(t, time.Date(2019, time.June, 10, 0, 0, 0, 0, time.UTC), first.Start)
	assert.Equal(t, time.Date(2019, time.September, 21, 0, 0, 0, 0, time.UTC), first.End)
}

func TestLandsatSeriesValidation(t *testing.T) {
	_, err := LandsatSeries(summerWindow(1972, 1990), Options{})
	assert.Error(t, err)

	_, err = LandsatSeries(summerWindow(2019, 2021), Options{Bands: []string{"Thermal"}})
	assert.Error(t, err)
}

func TestLandsatSeriesNoCloudMask(t *testing.T) {
	specs, err := LandsatSeries(summerWindow(2019, 2021), Options{})
	require.NoError(t, err)
	assert.Nil(t, specs[0].Cloud)
}

func TestSentinel2Series(t *testing.T) {
	specs, err := Sentinel2Series(summerWindow(2019, 2020), Options{
		Bands:          []string{"SWIR1", "NIR", "Red"},
		ApplyCloudMask: true,
	})
	require.NoError(t, err)
	require.Len(t, specs, 2)

	first := specs[0]
	assert.Equal(t, []string{"COPERNICUS/S2_SR_HARMONIZED"}, first.Collections)
	assert.Equal(t, []string{"B11", "B8", "B4"}, first.Bands)
	require.NotNil(t, first.Cloud)
	assert.Equal(t, "QA60", first.Cloud.QABand)
	assert.Equal(t, []int{10, 11}, first.Cloud.MaskBits)
	assert.Equal(t, "CLOUDY_PIXEL_PERCENTAGE", first.Cloud.MetadataProperty)
	assert.InDelta(t, 30, first.Cloud.MaxCloudPercent, 0.01)
	assert.InDelta(t, 0.0001, first.Scale, 1e-10)
}

func TestSentinel2SeriesCloudPercentBounds(t *testing.T) {
	_, err := Sentinel2Series(summerWindow(2019, 2020), Options{CloudPercent: 120})
	assert.Error(t, err)
}

func TestSentinel1Series(t *testing.T) {
	specs, err := Sentinel1Series(summerWindow(2019, 2020), Options{Orbit: []string{"ascending"}})
	require.NoError(t, err)
	require.Len(t, specs, 2)

	first := specs[0]
	assert.Equal(t, []string{"COPERNICUS/S1_GRD"}, first.Collections)
	assert.Equal(t, []string{"VV"}, first.Bands)
	require.Len(t, first.Filters, 3)
	assert.Equal(t, "instrumentMode", first.Filters[0].Property)
	assert.Equal(t, []string{"ASCENDING"}, first.Filters[1].Value)
	assert.Equal(t, []string{"000000", "ffffff"}, first.Vis.Palette)

	_, err = Sentinel1Series(summerWindow(2019, 2020), Options{Bands: []string{"XX"}})
	assert.Error(t, err)

	_, err = Sentinel1Series(summerWindow(2019, 2020), Options{Orbit: []string{"sideways"}})
	assert.Error(t, err)
}

func TestNAIPSeries(t *testing.T) {
	window := summerWindow(2015, 2020)
	window.SeasonStart, window.SeasonEnd = "01-01", "12-31"

	specs, err := NAIPSeries(window, Options{Bands: []string{"N", "R", "G"}})
	require.NoError(t, err)
	require.Len(t, specs, 6)

	first := specs[0]
	assert.Equal(t, earthengine.ReducerMosaic, first.Reducer)
	require.Len(t, first.Filters, 1)
	assert.Equal(t, "system:band_names", first.Filters[0].Property)

	// Monthly sampling makes no sense for an annual program
	window.Frequency = temporal.FrequencyMonth
	_, err = NAIPSeries(window, Options{})
	assert.Error(t, err)

	window.Frequency = temporal.FrequencyYear
	window.StartYear = 1999
	_, err = NAIPSeries(window, Options{})
	assert.Error(t, err)
}

func TestMODISSeriesPhenology(t *testing.T) {
	window := temporal.WindowRequest{
		StartYear: 2015, EndYear: 2020,
		SeasonStart: "01-01", SeasonEnd: "01-31",
		Frequency: temporal.FrequencyDay, Step: 16,
	}
	specs, err := MODISSeries(window, Options{Sensor: "Aqua", Index: "EVI"})
	require.NoError(t, err)
	require.NotEmpty(t, specs)

	first := specs[0]
	assert.Equal(t, []string{"MODIS/061/MYD13A2"}, first.Collections)
	assert.Equal(t, []string{"EVI"}, first.Bands)
	require.Len(t, first.Filters, 1)
	assert.Equal(t, "dayOfYear", first.Filters[0].Property)
	assert.Equal(t, 1, first.Filters[0].Value)
	// Phenology composites reduce across the whole requested archive
	assert.Equal(t, time.Date(2015, time.January, 1, 0, 0, 0, 0, time.UTC), first.Start)
	assert.Equal(t, time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC), first.End)
	assert.Len(t, first.Vis.Palette, 17)
}

func TestMODISSeriesPlainWindows(t *testing.T) {
	specs, err := MODISSeries(summerWindow(2019, 2020), Options{})
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, []string{"MODIS/061/MOD13A2"}, specs[0].Collections)
	assert.Empty(t, specs[0].Filters)

	_, err = MODISSeries(summerWindow(2019, 2020), Options{Sensor: "Hubble"})
	assert.Error(t, err)
	_, err = MODISSeries(summerWindow(2019, 2020), Options{Index: "NDWI"})
	assert.Error(t, err)
}

func TestGOESSeriesTrueColor(t *testing.T) {
	window := temporal.WindowRequest{
		StartYear: 2021, EndYear: 2021,
		SeasonStart: "10-24", SeasonEnd: "10-25",
		Frequency: temporal.FrequencyDay, Step: 1,
	}
	specs, err := GOESSeries(window, Options{})
	require.NoError(t, err)
	require.Len(t, specs, 2)

	first := specs[0]
	assert.Equal(t, []string{"NOAA/GOES/19/MCMIPF"}, first.Collections)
	require.Len(t, first.Expressions, 1)
	assert.Equal(t, "CMI_GREEN", first.Expressions[0].Name)
	assert.Equal(t, []string{"CMI_C02", "CMI_GREEN", "CMI_C01"}, first.Vis.Bands)
}

func TestGOESSeriesModes(t *testing.T) {
	window := temporal.WindowRequest{
		StartYear: 2021, EndYear: 2021,
		SeasonStart: "10-24", SeasonEnd: "10-24",
		Frequency: temporal.FrequencyDay, Step: 1,
	}

	specs, err := GOESSeries(window, Options{Satellite: "GOES-16", Scan: "conus", BandCombination: "volcanic_ash"})
	require.NoError(t, err)
	assert.Equal(t, []string{"NOAA/GOES/16/MCMIPC"}, specs[0].Collections)
	require.Len(t, specs[0].Expressions, 3)
	assert.Equal(t, "b13 - b11", specs[0].Expressions[1].Formula)

	specs, err = GOESSeries(window, Options{BandCombination: "custom_rgb", CustomBands: []string{"CMI_C02", "CMI_C13", "CMI_C01"}})
	require.NoError(t, err)
	// Emissive channel gets brightness-temperature bounds
	assert.InDelta(t, 180, specs[0].Vis.Min[1], 0.01)
	assert.InDelta(t, 330, specs[0].Vis.Max[1], 0.01)

	_, err = GOESSeries(window, Options{Satellite: "GOES-20"})
	assert.Error(t, err)
	_, err = GOESSeries(window, Options{Scan: "hemisphere"})
	assert.Error(t, err)
	_, err = GOESSeries(window, Options{BandCombination: "thermal_rainbow"})
	assert.Error(t, err)
	_, err = GOESSeries(window, Options{BandCombination: "custom_rgb", CustomBands: []string{"CMI_C01"}})
	assert.Error(t, err)
}
