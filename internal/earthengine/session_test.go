package earthengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timelapse-desktop/internal/common"
	"timelapse-desktop/internal/temporal"
)

func testSpec(label string) CompositeSpec {
	return CompositeSpec{
		Collections: []string{"TEST/COLLECTION"},
		Start:       time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC),
		End:         time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC),
		Bands:       []string{"Red", "Green", "Blue"},
		Reducer:     ReducerMedian,
		Label:       label,
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newBackendDouble(t *testing.T, frame []byte) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/projects/test-project/algorithms", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"algorithms":[]}`)
	})
	mux.HandleFunc("/projects/test-project/thumbnails", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "png", body["format"])
		assert.NotEmpty(t, body["collections"])
		json.NewEncoder(w).Encode(map[string]string{"name": "projects/test-project/thumbnails/abc"})
	})
	mux.HandleFunc("/projects/test-project/thumbnails/abc:getPixels", func(w http.ResponseWriter, r *http.Request) {
		w.Write(frame)
	})
	return httptest.NewServer(mux)
}

func TestSessionInitialize(t *testing.T) {
	server := newBackendDouble(t, nil)
	defer server.Close()

	session := NewSession("test-project", "token")
	session.SetBaseURL(server.URL)

	require.False(t, session.Initialized())
	require.NoError(t, session.Initialize(context.Background()))
	assert.True(t, session.Initialized())

	// Idempotent
	require.NoError(t, session.Initialize(context.Background()))
}

func TestSessionInitializeRejectsBadCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "permission denied", http.StatusUnauthorized)
	}))
	defer server.Close()

	session := NewSession("test-project", "bad-token")
	session.SetBaseURL(server.URL)

	err := session.Initialize(context.Background())
	require.Error(t, err)

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusUnauthorized, reqErr.StatusCode)
}

func TestSessionsAreIndependent(t *testing.T) {
	server := newBackendDouble(t, nil)
	defer server.Close()

	a := NewSession("test-project", "token")
	a.SetBaseURL(server.URL)
	b := NewSession("other-project", "token")

	require.NoError(t, a.Initialize(context.Background()))
	assert.True(t, a.Initialized())
	assert.False(t, b.Initialized())
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestRenderFrame(t *testing.T) {
	server := newBackendDouble(t, pngBytes(t))
	defer server.Close()

	session := NewSession("test-project", "token")
	session.SetBaseURL(server.URL)
	require.NoError(t, session.Initialize(context.Background()))

	region := common.BoundingBox{South: 36.0, West: -122.5, North: 36.5, East: -122.0}
	img, err := session.RenderFrame(context.Background(), testSpec("2021-06"), region.Coordinates(), 256)
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())
}

func TestRenderFrameRequiresInitializedSession(t *testing.T) {
	session := NewSession("test-project", "token")
	_, err := session.RenderFrame(context.Background(), testSpec("2021-06"), [4]float64{0, 0, 1, 1}, 256)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not initialized")
}

func TestWindowSpanEndExclusive(t *testing.T) {
	r := temporal.DateRange{
		Start: time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2021, 7, 31, 0, 0, 0, 0, time.UTC),
		Label: "2021-07",
	}
	start, end := WindowSpan(r)
	assert.Equal(t, r.Start, start)
	assert.Equal(t, time.Date(2021, 8, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestCompositeSpecValidate(t *testing.T) {
	spec := testSpec("2021-06")
	require.NoError(t, spec.Validate())

	bad := spec
	bad.Collections = nil
	assert.Error(t, bad.Validate())

	bad = spec
	bad.End = bad.Start
	assert.Error(t, bad.Validate())

	bad = spec
	bad.Label = ""
	assert.Error(t, bad.Validate())
}

func TestVideoSpecValidateFillsDefaults(t *testing.T) {
	spec := VideoSpec{
		Composites: []CompositeSpec{testSpec("2021-06")},
		Region:     common.BoundingBox{South: 36.0, West: -122.5, North: 36.5, East: -122.0},
	}
	require.NoError(t, spec.Validate())
	assert.Equal(t, DefaultDimensions, spec.Dimensions)
	assert.Equal(t, DefaultFPS, spec.FramesPerSecond)
	assert.Equal(t, DefaultCRS, spec.CRS)

	bad := spec
	bad.Region = common.BoundingBox{South: 1, North: 0, West: 0, East: 1}
	assert.Error(t, bad.Validate())
}

func TestParseReducer(t *testing.T) {
	r, err := ParseReducer("median")
	require.NoError(t, err)
	assert.Equal(t, ReducerMedian, r)

	_, err = ParseReducer("average")
	assert.Error(t, err)
}
