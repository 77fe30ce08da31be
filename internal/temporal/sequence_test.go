package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustSequence(t *testing.T, r WindowRequest) []DateRange {
	t.Helper()
	ranges, err := r.Sequence()
	require.NoError(t, err)
	return ranges
}

func labels(ranges []DateRange) []string {
	out := make([]string, len(ranges))
	for i, r := range ranges {
		out[i] = r.Label
	}
	return out
}

func TestSequenceYearly(t *testing.T) {
	ranges := mustSequence(t, WindowRequest{
		StartYear: 2020, EndYear: 2022,
		SeasonStart: "06-10", SeasonEnd: "09-20",
		Frequency: FrequencyYear, Step: 1,
	})

	assert.Equal(t, []string{"2020", "2021", "2022"}, labels(ranges))
	for _, r := range ranges {
		assert.Equal(t, time.June, r.Start.Month())
		assert.Equal(t, 10, r.Start.Day())
		assert.Equal(t, time.September, r.End.Month())
		assert.Equal(t, 20, r.End.Day())
		assert.Equal(t, r.Start.Year(), r.End.Year())
	}
}

func TestSequenceYearlyStep(t *testing.T) {
	ranges := mustSequence(t, WindowRequest{
		StartYear: 2015, EndYear: 2022,
		SeasonStart: "01-01", SeasonEnd: "12-31",
		Frequency: FrequencyYear, Step: 3,
	})
	assert.Equal(t, []string{"2015", "2018", "2021"}, labels(ranges))
}

func TestSequenceQuarterlyOverlap(t *testing.T) {
	// A June..September season touches Q2 (ends Jun 30) and Q3 (starts Jul 1).
	ranges := mustSequence(t, WindowRequest{
		StartYear: 2021, EndYear: 2021,
		SeasonStart: "06-10", SeasonEnd: "09-20",
		Frequency: FrequencyQuarter, Step: 1,
	})
	assert.Equal(t, []string{"2021-Q2", "2021-Q3"}, labels(ranges))

	// Quarter bounds are full calendar quarters, not clipped to the season.
	require.Len(t, ranges, 2)
	assert.Equal(t, time.Date(2021, time.April, 1, 0, 0, 0, 0, time.UTC), ranges[0].Start)
	assert.Equal(t, time.Date(2021, time.June, 30, 0, 0, 0, 0, time.UTC), ranges[0].End)
	assert.Equal(t, time.Date(2021, time.July, 1, 0, 0, 0, 0, time.UTC), ranges[1].Start)
	assert.Equal(t, time.Date(2021, time.September, 30, 0, 0, 0, 0, time.UTC), ranges[1].End)
}

func TestSequenceQuarterlyWrappingSeason(t *testing.T) {
	// November..February wraps the year boundary. Each year's Q1 is reached by
	// the span begun the previous November and Q4 by the span ending the next
	// February; Q2/Q3 stay excluded and nothing is emitted twice.
	ranges := mustSequence(t, WindowRequest{
		StartYear: 2020, EndYear: 2021,
		SeasonStart: "11-01", SeasonEnd: "02-28",
		Frequency: FrequencyQuarter, Step: 1,
	})
	assert.Equal(t, []string{"2020-Q1", "2020-Q4", "2021-Q1", "2021-Q4"}, labels(ranges))

	seen := make(map[string]int)
	for _, r := range ranges {
		seen[r.Label]++
	}
	for label, n := range seen {
		assert.Equalf(t, 1, n, "quarter %s emitted more than once", label)
	}
}

func TestSequenceMonthly(t *testing.T) {
	ranges := mustSequence(t, WindowRequest{
		StartYear: 2021, EndYear: 2022,
		SeasonStart: "06-10", SeasonEnd: "09-20",
		Frequency: FrequencyMonth, Step: 1,
	})
	assert.Equal(t, []string{
		"2021-06", "2021-07", "2021-08", "2021-09",
		"2022-06", "2022-07", "2022-08", "2022-09",
	}, labels(ranges))

	// Full calendar months regardless of the season's day-of-month bounds.
	assert.Equal(t, time.Date(2021, time.June, 1, 0, 0, 0, 0, time.UTC), ranges[0].Start)
	assert.Equal(t, time.Date(2021, time.June, 30, 0, 0, 0, 0, time.UTC), ranges[0].End)
}

func TestSequenceMonthlyLeapFebruary(t *testing.T) {
	ranges := mustSequence(t, WindowRequest{
		StartYear: 2020, EndYear: 2020,
		SeasonStart: "01-15", SeasonEnd: "03-15",
		Frequency: FrequencyMonth, Step: 1,
	})
	require.Equal(t, []string{"2020-01", "2020-02", "2020-03"}, labels(ranges))
	assert.Equal(t, 29, ranges[1].End.Day())
}

func TestSequenceMonthlyWrappingSeason(t *testing.T) {
	ranges := mustSequence(t, WindowRequest{
		StartYear: 2021, EndYear: 2021,
		SeasonStart: "11-01", SeasonEnd: "02-28",
		Frequency: FrequencyMonth, Step: 1,
	})
	assert.Equal(t, []string{"2021-01", "2021-02", "2021-11", "2021-12"}, labels(ranges))
}

func TestSequenceMonthlyStepStridesWithinYear(t *testing.T) {
	ranges := mustSequence(t, WindowRequest{
		StartYear: 2021, EndYear: 2022,
		SeasonStart: "01-01", SeasonEnd: "12-31",
		Frequency: FrequencyMonth, Step: 3,
	})
	// The stride restarts each January; years are never skipped.
	assert.Equal(t, []string{
		"2021-01", "2021-04", "2021-07", "2021-10",
		"2022-01", "2022-04", "2022-07", "2022-10",
	}, labels(ranges))
}

func TestSequenceDailyCrossesLeapDay(t *testing.T) {
	ranges := mustSequence(t, WindowRequest{
		StartYear: 2020, EndYear: 2020,
		SeasonStart: "02-27", SeasonEnd: "03-02",
		Frequency: FrequencyDay, Step: 1,
	})
	assert.Equal(t, []string{
		"2020-02-27", "2020-02-28", "2020-02-29", "2020-03-01", "2020-03-02",
	}, labels(ranges))
	for _, r := range ranges {
		assert.True(t, r.Start.Equal(r.End))
	}
}

func TestSequenceDailyMultiYearWalk(t *testing.T) {
	ranges := mustSequence(t, WindowRequest{
		StartYear: 2021, EndYear: 2022,
		SeasonStart: "12-30", SeasonEnd: "01-02",
		Frequency: FrequencyDay, Step: 1,
	})
	// One continuous walk across the year boundary, not a per-year restart.
	assert.Equal(t, []string{
		"2021-12-30", "2021-12-31", "2022-01-01", "2022-01-02",
	}, labels(ranges))
}

func TestSequenceDailyStep(t *testing.T) {
	ranges := mustSequence(t, WindowRequest{
		StartYear: 2021, EndYear: 2021,
		SeasonStart: "07-01", SeasonEnd: "07-31",
		Frequency: FrequencyDay, Step: 10,
	})
	assert.Equal(t, []string{"2021-07-01", "2021-07-11", "2021-07-21", "2021-07-31"}, labels(ranges))
}

func TestSequenceValidation(t *testing.T) {
	base := WindowRequest{
		StartYear: 2020, EndYear: 2021,
		SeasonStart: "06-10", SeasonEnd: "09-20",
		Frequency: FrequencyMonth, Step: 1,
	}

	tests := []struct {
		name   string
		mutate func(*WindowRequest)
		field  string
	}{
		{"malformed season start", func(r *WindowRequest) { r.SeasonStart = "13-40" }, "seasonStart"},
		{"malformed season end", func(r *WindowRequest) { r.SeasonEnd = "6-1" }, "seasonEnd"},
		{"day past month end", func(r *WindowRequest) { r.SeasonEnd = "04-31" }, "seasonEnd"},
		{"signed month", func(r *WindowRequest) { r.SeasonStart = "+5-10" }, "seasonStart"},
		{"signed day", func(r *WindowRequest) { r.SeasonEnd = "06--1" }, "seasonEnd"},
		{"leap day boundary", func(r *WindowRequest) { r.SeasonStart = "02-29" }, "seasonStart"},
		{"inverted years", func(r *WindowRequest) { r.StartYear, r.EndYear = 2022, 2020 }, "endYear"},
		{"zero step", func(r *WindowRequest) { r.Step = 0 }, "step"},
		{"unknown frequency", func(r *WindowRequest) { r.Frequency = "decade" }, "frequency"},
		{"yearly wrapping season", func(r *WindowRequest) {
			r.Frequency = FrequencyYear
			r.SeasonStart, r.SeasonEnd = "11-01", "02-28"
		}, "seasonEnd"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := base
			tc.mutate(&req)
			ranges, err := req.Sequence()
			require.Error(t, err)
			assert.Nil(t, ranges)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestSequenceOrderedAndNonInverted(t *testing.T) {
	requests := []WindowRequest{
		{2018, 2023, "06-10", "09-20", FrequencyYear, 1},
		{2018, 2023, "06-10", "09-20", FrequencyQuarter, 1},
		{2018, 2023, "11-01", "02-28", FrequencyQuarter, 1},
		{2018, 2023, "06-10", "09-20", FrequencyMonth, 2},
		{2018, 2023, "11-01", "02-28", FrequencyMonth, 1},
		{2020, 2021, "02-27", "03-02", FrequencyDay, 3},
	}

	for _, req := range requests {
		ranges := mustSequence(t, req)
		require.NotEmpty(t, ranges)
		for i, r := range ranges {
			assert.Falsef(t, r.End.Before(r.Start), "%s %s: inverted range", req.Frequency, r.Label)
			if i > 0 {
				assert.Truef(t, ranges[i-1].Start.Before(r.Start),
					"%s: %s not after %s", req.Frequency, r.Label, ranges[i-1].Label)
			}
		}
	}
}

func TestWraps(t *testing.T) {
	wraps, err := WindowRequest{SeasonStart: "11-01", SeasonEnd: "02-28"}.Wraps()
	require.NoError(t, err)
	assert.True(t, wraps)

	wraps, err = WindowRequest{SeasonStart: "06-10", SeasonEnd: "09-20"}.Wraps()
	require.NoError(t, err)
	assert.False(t, wraps)

	_, err = WindowRequest{SeasonStart: "xx-yy", SeasonEnd: "09-20"}.Wraps()
	assert.Error(t, err)
}

func TestParseFrequency(t *testing.T) {
	for _, s := range []string{"year", "quarter", "month", "day"} {
		f, err := ParseFrequency(s)
		require.NoError(t, err)
		assert.Equal(t, Frequency(s), f)
	}
	_, err := ParseFrequency("weekly")
	assert.Error(t, err)
}
