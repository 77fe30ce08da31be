package timelapse

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timelapse-desktop/internal/cache"
	"timelapse-desktop/internal/common"
	"timelapse-desktop/internal/composites"
	"timelapse-desktop/internal/earthengine"
	"timelapse-desktop/internal/temporal"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testGIF(t *testing.T, frames int) []byte {
	t.Helper()
	g := &gif.GIF{}
	for i := 0; i < frames; i++ {
		p := image.NewPaletted(image.Rect(0, 0, 8, 8), []color.Color{
			color.RGBA{A: 255}, color.RGBA{R: 255, A: 255},
		})
		g.Image = append(g.Image, p)
		g.Delay = append(g.Delay, 10)
	}
	var buf bytes.Buffer
	require.NoError(t, gif.EncodeAll(&buf, g))
	return buf.Bytes()
}

// backendDouble counts frame render requests so cache hits are observable
type backendDouble struct {
	server       *httptest.Server
	frameRenders int32
	videoRenders int32
}

func newBackendDouble(t *testing.T) *backendDouble {
	t.Helper()
	d := &backendDouble{}
	framePNG := testPNG(t)
	videoGIF := testGIF(t, 3)

	mux := http.NewServeMux()
	mux.HandleFunc("/projects/test-project/algorithms", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"algorithms":[]}`))
	})
	mux.HandleFunc("/projects/test-project/thumbnails", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&d.frameRenders, 1)
		w.Write([]byte(`{"url":"` + d.server.URL + `/frame-pixels"}`))
	})
	mux.HandleFunc("/projects/test-project/videoThumbnails", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&d.videoRenders, 1)
		w.Write([]byte(`{"url":"` + d.server.URL + `/video-pixels"}`))
	})
	mux.HandleFunc("/frame-pixels", func(w http.ResponseWriter, r *http.Request) {
		w.Write(framePNG)
	})
	mux.HandleFunc("/video-pixels", func(w http.ResponseWriter, r *http.Request) {
		w.Write(videoGIF)
	})

	d.server = httptest.NewServer(mux)
	return d
}

func testSession(t *testing.T, d *backendDouble) *earthengine.Session {
	t.Helper()
	session := earthengine.NewSession("test-project", "token")
	session.SetBaseURL(d.server.URL)
	require.NoError(t, session.Initialize(context.Background()))
	return session
}

func testJob(dir string) Job {
	return Job{
		Name:     "grand canyon",
		Provider: common.ProviderLandsat,
		Region:   common.BoundingBox{South: 36.0, West: -112.3, North: 36.4, East: -111.8},
		Window: temporal.WindowRequest{
			StartYear:   2020,
			EndYear:     2022,
			SeasonStart: "06-01",
			SeasonEnd:   "09-01",
			Frequency:   temporal.FrequencyYear,
			Step:        1,
		},
		Options:      composites.Options{},
		OutputFormat: "gif",
		OutputDir:    dir,
	}
}

func decodeGIFFile(t *testing.T, path string) *gif.GIF {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	g, err := gif.DecodeAll(f)
	require.NoError(t, err)
	return g
}

func TestGenerateLocalGIF(t *testing.T) {
	d := newBackendDouble(t)
	defer d.server.Close()

	frameCache, err := cache.NewFrameCache(t.TempDir(), 50, 30)
	require.NoError(t, err)

	gen := NewGenerator(testSession(t, d), frameCache, 2)

	var lastProgress common.RenderProgress
	gen.SetProgressCallback(func(p common.RenderProgress) { lastProgress = p })

	outDir := t.TempDir()
	job := testJob(outDir)

	outPath, err := gen.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, ".gif", filepath.Ext(outPath))

	g := decodeGIFFile(t, outPath)
	assert.Len(t, g.Image, 3)

	assert.Equal(t, "encoding", lastProgress.Phase)
	assert.Equal(t, 100, lastProgress.Percent)

	entries, _, _ := frameCache.Stats()
	assert.Equal(t, 3, entries)
	assert.Equal(t, int32(3), atomic.LoadInt32(&d.frameRenders))

	// Second run serves every frame from cache
	_, err = gen.Generate(context.Background(), testJob(t.TempDir()))
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&d.frameRenders))
}

func TestGenerateServerRender(t *testing.T) {
	d := newBackendDouble(t)
	defer d.server.Close()

	gen := NewGenerator(testSession(t, d), nil, 1)

	job := testJob(t.TempDir())
	job.ServerRender = true
	job.BaseName = "canyon"

	outPath, err := gen.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(job.OutputDir, "canyon.gif"), outPath)
	assert.Equal(t, int32(1), atomic.LoadInt32(&d.videoRenders))
	assert.Zero(t, atomic.LoadInt32(&d.frameRenders))

	g := decodeGIFFile(t, outPath)
	assert.Len(t, g.Image, 3)
}

func TestGenerateRequiresInitializedSession(t *testing.T) {
	gen := NewGenerator(earthengine.NewSession("test-project", "token"), nil, 1)
	_, err := gen.Generate(context.Background(), testJob(t.TempDir()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not initialized")
}

func TestGenerateRejectsBadWindow(t *testing.T) {
	d := newBackendDouble(t)
	defer d.server.Close()

	gen := NewGenerator(testSession(t, d), nil, 1)

	job := testJob(t.TempDir())
	job.Window.SeasonStart = "13-01"
	_, err := gen.Generate(context.Background(), job)
	require.Error(t, err)

	var vErr *temporal.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestGenerateCancelledContext(t *testing.T) {
	d := newBackendDouble(t)
	defer d.server.Close()

	gen := NewGenerator(testSession(t, d), nil, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gen.Generate(ctx, testJob(t.TempDir()))
	require.Error(t, err)
}

func TestSeriesHash(t *testing.T) {
	a := testJob("x")
	b := testJob("y") // output dir does not affect pixels
	assert.Equal(t, SeriesHash(a), SeriesHash(b))

	c := testJob("x")
	c.Region.North += 0.1
	assert.NotEqual(t, SeriesHash(a), SeriesHash(c))

	d := testJob("x")
	d.Options.ApplyCloudMask = true
	assert.NotEqual(t, SeriesHash(a), SeriesHash(d))
}
