package earthengine

import (
	"fmt"
	"time"

	"timelapse-desktop/internal/common"
	"timelapse-desktop/internal/temporal"
)

// Reducer selects how images inside one date window are merged server-side
type Reducer string

const (
	ReducerMedian Reducer = "median"
	ReducerMean   Reducer = "mean"
	ReducerMin    Reducer = "min"
	ReducerMax    Reducer = "max"
	ReducerSum    Reducer = "sum"
	ReducerMosaic Reducer = "mosaic"
)

// ParseReducer maps a frontend string to a Reducer
func ParseReducer(s string) (Reducer, error) {
	switch Reducer(s) {
	case ReducerMedian, ReducerMean, ReducerMin, ReducerMax, ReducerSum, ReducerMosaic:
		return Reducer(s), nil
	}
	return "", fmt.Errorf("unknown reducer: %s", s)
}

// CloudFilter describes server-side cloud handling for optical collections
type CloudFilter struct {
	// MaskBits are QA band bit positions to mask out, with the QA band name
	QABand   string `json:"qaBand,omitempty"`
	MaskBits []int  `json:"maskBits,omitempty"`

	// MaxCloudPercent drops whole scenes above this metadata value
	MetadataProperty string  `json:"metadataProperty,omitempty"`
	MaxCloudPercent  float64 `json:"maxCloudPercent,omitempty"`
}

// PropertyFilter restricts a collection by an image metadata property
type PropertyFilter struct {
	Property string      `json:"property"`
	Op       string      `json:"op"` // "equals", "lessThan", "listContains"
	Value    interface{} `json:"value"`
}

// RenameRule renames bands of one source collection to common names before
// merging, so mixed-sensor series reduce over consistent band sets
type RenameRule struct {
	Collection string   `json:"collection"`
	From       []string `json:"from"`
	To         []string `json:"to"`
}

// BandExpression derives a new band server-side from existing ones, e.g. a
// synthetic green channel or a thermal band difference
type BandExpression struct {
	Name    string            `json:"name"`
	Formula string            `json:"formula"`
	Inputs  map[string]string `json:"inputs"`
}

// VisParams controls server-side visualization of the reduced composite
type VisParams struct {
	Bands   []string  `json:"bands,omitempty"`
	Min     []float64 `json:"min,omitempty"`
	Max     []float64 `json:"max,omitempty"`
	Gamma   float64   `json:"gamma,omitempty"`
	Palette []string  `json:"palette,omitempty"`
}

// CompositeSpec declaratively describes one server-side composite: which
// collections to merge, the date window, band selection and scaling, the
// reduction, and how to visualize the result. The backend evaluates it; the
// client never sees intermediate imagery.
type CompositeSpec struct {
	// Collections are backend collection IDs, merged in order
	Collections []string `json:"collections"`

	// Start is inclusive, End exclusive
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	// Bands selected after renaming
	Bands   []string     `json:"bands,omitempty"`
	Renames []RenameRule `json:"renames,omitempty"`

	// Scale and Offset convert stored values to reflectance before reduction
	Scale  float64 `json:"scale,omitempty"`
	Offset float64 `json:"offset,omitempty"`

	Reducer     Reducer          `json:"reducer"`
	Cloud       *CloudFilter     `json:"cloud,omitempty"`
	Filters     []PropertyFilter `json:"filters,omitempty"`
	Expressions []BandExpression `json:"expressions,omitempty"`
	Vis         VisParams        `json:"vis"`

	// Label is the date-window label the composite was built for
	Label string `json:"label"`
}

// WindowSpan converts an inclusive date range into the [start, end) pair the
// backend filters by. The end date is advanced one day so imagery captured on
// the range's last day is included.
func WindowSpan(r temporal.DateRange) (start, end time.Time) {
	return r.Start, r.End.AddDate(0, 0, 1)
}

// Validate checks the spec before any network call
func (c CompositeSpec) Validate() error {
	if len(c.Collections) == 0 {
		return fmt.Errorf("composite has no collections")
	}
	if !c.End.After(c.Start) {
		return fmt.Errorf("composite window end %s not after start %s",
			common.FormatISO8601(c.End), common.FormatISO8601(c.Start))
	}
	if c.Reducer == "" {
		return fmt.Errorf("composite has no reducer")
	}
	if c.Label == "" {
		return fmt.Errorf("composite has no label")
	}
	return nil
}

// VideoSpec describes a server-rendered animation over an ordered set of
// composites
type VideoSpec struct {
	Composites      []CompositeSpec    `json:"composites"`
	Region          common.BoundingBox `json:"region"`
	Dimensions      int                `json:"dimensions"` // max output edge in pixels
	FramesPerSecond int                `json:"framesPerSecond"`
	CRS             string             `json:"crs"`
}

// Default rendering parameters, applied by Validate when unset
const (
	DefaultDimensions = 768
	DefaultFPS        = 10
	DefaultCRS        = "EPSG:3857"

	MaxDimensions = 1920
	MaxFPS        = 30
)

// Validate checks the video spec and fills defaults in place
func (v *VideoSpec) Validate() error {
	if len(v.Composites) == 0 {
		return fmt.Errorf("video has no composites")
	}
	for i, c := range v.Composites {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("composite %d (%s): %w", i, c.Label, err)
		}
	}
	if err := v.Region.Validate(); err != nil {
		return fmt.Errorf("invalid region: %w", err)
	}
	if v.Dimensions == 0 {
		v.Dimensions = DefaultDimensions
	}
	if v.Dimensions < 0 || v.Dimensions > MaxDimensions {
		return fmt.Errorf("dimensions %d out of range [1, %d]", v.Dimensions, MaxDimensions)
	}
	if v.FramesPerSecond == 0 {
		v.FramesPerSecond = DefaultFPS
	}
	if v.FramesPerSecond < 0 || v.FramesPerSecond > MaxFPS {
		return fmt.Errorf("frame rate %d out of range [1, %d]", v.FramesPerSecond, MaxFPS)
	}
	if v.CRS == "" {
		v.CRS = DefaultCRS
	}
	return nil
}

// requestBody builds the JSON payload for one composite
func (c CompositeSpec) requestBody() map[string]interface{} {
	body := map[string]interface{}{
		"collections": c.Collections,
		"startDate":   common.FormatISO8601(c.Start),
		"endDate":     common.FormatISO8601(c.End),
		"reducer":     string(c.Reducer),
		"vis":         c.Vis,
	}
	if len(c.Bands) > 0 {
		body["bands"] = c.Bands
	}
	if len(c.Renames) > 0 {
		body["renames"] = c.Renames
	}
	if c.Scale != 0 {
		body["scale"] = c.Scale
	}
	if c.Offset != 0 {
		body["offset"] = c.Offset
	}
	if c.Cloud != nil {
		body["cloud"] = c.Cloud
	}
	if len(c.Filters) > 0 {
		body["filters"] = c.Filters
	}
	if len(c.Expressions) > 0 {
		body["expressions"] = c.Expressions
	}
	return body
}
