// Package temporal generates calendar-aware date windows for timelapse
// composites. A WindowRequest describes a multi-year season and a sampling
// frequency; Sequence expands it into ordered, labeled date ranges.
package temporal

import (
	"fmt"
	"strconv"
	"time"
)

// Frequency selects how the season is sampled across years.
type Frequency string

const (
	FrequencyYear    Frequency = "year"
	FrequencyQuarter Frequency = "quarter"
	FrequencyMonth   Frequency = "month"
	FrequencyDay     Frequency = "day"
)

// ParseFrequency maps a frontend string to a Frequency.
func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(s) {
	case FrequencyYear, FrequencyQuarter, FrequencyMonth, FrequencyDay:
		return Frequency(s), nil
	}
	return "", &ValidationError{Field: "frequency", Value: s, Reason: "must be year, quarter, month, or day"}
}

// ValidationError reports a rejected request field before any range is produced.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// WindowRequest describes the temporal extent of a timelapse. SeasonStart and
// SeasonEnd are "MM-DD" strings; a start month after the end month means the
// season wraps the year boundary (e.g. 12-01..02-28).
type WindowRequest struct {
	StartYear   int       `json:"startYear"`
	EndYear     int       `json:"endYear"`
	SeasonStart string    `json:"seasonStart"`
	SeasonEnd   string    `json:"seasonEnd"`
	Frequency   Frequency `json:"frequency"`
	Step        int       `json:"step"`
}

// DateRange is one emitted window. Start and End are inclusive calendar dates
// at UTC midnight, Start <= End always. Label is the human form used for
// frame captions and cache keys ("2021", "2021-Q3", "2021-07", "2021-07-04").
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Label string    `json:"label"`
}

type monthDay struct {
	month time.Month
	day   int
}

// Non-leap reference: Feb 29 is never a valid season boundary.
var daysInMonth = [13]int{0, 31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func parseMonthDay(field, s string) (monthDay, error) {
	// strconv.Atoi accepts signed forms like "+5", so check digits directly
	if len(s) != 5 || s[2] != '-' || !isDigits(s[:2]) || !isDigits(s[3:]) {
		return monthDay{}, &ValidationError{Field: field, Value: s, Reason: "must be MM-DD"}
	}
	m, _ := strconv.Atoi(s[:2])
	d, _ := strconv.Atoi(s[3:])
	if m < 1 || m > 12 {
		return monthDay{}, &ValidationError{Field: field, Value: s, Reason: "month out of range"}
	}
	if d < 1 || d > daysInMonth[m] {
		return monthDay{}, &ValidationError{Field: field, Value: s, Reason: "day out of range for month"}
	}
	return monthDay{month: time.Month(m), day: d}, nil
}

func date(year int, md monthDay) time.Time {
	return time.Date(year, md.month, md.day, 0, 0, 0, 0, time.UTC)
}

func lastDayOfMonth(year int, month time.Month) time.Time {
	return time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
}

// Wraps reports whether the season spans the year boundary. It returns an
// error if either boundary fails to parse.
func (r WindowRequest) Wraps() (bool, error) {
	start, err := parseMonthDay("seasonStart", r.SeasonStart)
	if err != nil {
		return false, err
	}
	end, err := parseMonthDay("seasonEnd", r.SeasonEnd)
	if err != nil {
		return false, err
	}
	return start.month > end.month, nil
}

// Sequence expands the request into ordered date ranges. It is pure and safe
// for concurrent use. All validation happens up front; on failure a
// ValidationError is returned and no ranges are produced.
func (r WindowRequest) Sequence() ([]DateRange, error) {
	start, err := parseMonthDay("seasonStart", r.SeasonStart)
	if err != nil {
		return nil, err
	}
	end, err := parseMonthDay("seasonEnd", r.SeasonEnd)
	if err != nil {
		return nil, err
	}
	if r.StartYear > r.EndYear {
		return nil, &ValidationError{
			Field:  "endYear",
			Value:  strconv.Itoa(r.EndYear),
			Reason: fmt.Sprintf("precedes start year %d", r.StartYear),
		}
	}
	if r.Step < 1 {
		return nil, &ValidationError{Field: "step", Value: strconv.Itoa(r.Step), Reason: "must be at least 1"}
	}

	wraps := start.month > end.month

	switch r.Frequency {
	case FrequencyYear:
		if wraps {
			return nil, &ValidationError{
				Field:  "seasonEnd",
				Value:  r.SeasonEnd,
				Reason: fmt.Sprintf("season wrapping past seasonStart %q cannot form yearly windows", r.SeasonStart),
			}
		}
		return r.yearly(start, end), nil
	case FrequencyQuarter:
		return r.quarterly(start, end, wraps), nil
	case FrequencyMonth:
		return r.monthly(start, end, wraps), nil
	case FrequencyDay:
		return r.daily(start, end), nil
	}
	return nil, &ValidationError{Field: "frequency", Value: string(r.Frequency), Reason: "must be year, quarter, month, or day"}
}

func (r WindowRequest) yearly(start, end monthDay) []DateRange {
	var out []DateRange
	for year := r.StartYear; year <= r.EndYear; year += r.Step {
		out = append(out, DateRange{
			Start: date(year, start),
			End:   date(year, end),
			Label: strconv.Itoa(year),
		})
	}
	return out
}

var quarterMonths = [4]struct {
	first, last time.Month
}{
	{time.January, time.March},
	{time.April, time.June},
	{time.July, time.September},
	{time.October, time.December},
}

func (r WindowRequest) quarterly(start, end monthDay, wraps bool) []DateRange {
	var out []DateRange
	for year := r.StartYear; year <= r.EndYear; year += r.Step {
		// A wrapping season touches this year twice: the tail of the span
		// begun the previous December and the head of the span ending next
		// year. Test both, first match wins so no quarter is emitted twice.
		var spans [][2]time.Time
		if wraps {
			spans = [][2]time.Time{
				{date(year-1, start), date(year, end)},
				{date(year, start), date(year+1, end)},
			}
		} else {
			spans = [][2]time.Time{{date(year, start), date(year, end)}}
		}
		for q, months := range quarterMonths {
			qStart := time.Date(year, months.first, 1, 0, 0, 0, 0, time.UTC)
			qEnd := lastDayOfMonth(year, months.last)
			for _, span := range spans {
				if !qEnd.Before(span[0]) && !qStart.After(span[1]) {
					out = append(out, DateRange{
						Start: qStart,
						End:   qEnd,
						Label: fmt.Sprintf("%d-Q%d", year, q+1),
					})
					break
				}
			}
		}
	}
	return out
}

func monthInSeason(m, first, last time.Month, wraps bool) bool {
	if wraps {
		return m >= first || m <= last
	}
	return m >= first && m <= last
}

func (r WindowRequest) monthly(start, end monthDay, wraps bool) []DateRange {
	var out []DateRange
	// Step strides months within each year; the year loop is unstepped.
	for year := r.StartYear; year <= r.EndYear; year++ {
		for m := 1; m <= 12; m += r.Step {
			month := time.Month(m)
			if !monthInSeason(month, start.month, end.month, wraps) {
				continue
			}
			out = append(out, DateRange{
				Start: time.Date(year, month, 1, 0, 0, 0, 0, time.UTC),
				End:   lastDayOfMonth(year, month),
				Label: fmt.Sprintf("%d-%02d", year, m),
			})
		}
	}
	return out
}

func (r WindowRequest) daily(start, end monthDay) []DateRange {
	var out []DateRange
	last := date(r.EndYear, end)
	for cur := date(r.StartYear, start); !cur.After(last); cur = cur.AddDate(0, 0, r.Step) {
		out = append(out, DateRange{
			Start: cur,
			End:   cur,
			Label: cur.Format("2006-01-02"),
		})
	}
	return out
}
