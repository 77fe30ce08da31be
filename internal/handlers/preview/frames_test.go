package preview

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timelapse-desktop/internal/cache"
	"timelapse-desktop/internal/earthengine"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.RGBA{G: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newBackendDouble(t *testing.T) *httptest.Server {
	t.Helper()
	frame := testPNG(t)
	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/projects/test-project/algorithms", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"algorithms":[]}`))
	})
	mux.HandleFunc("/projects/test-project/thumbnails", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"url":"%s/pixels"}`, server.URL)
	})
	mux.HandleFunc("/pixels", func(w http.ResponseWriter, r *http.Request) {
		w.Write(frame)
	})
	server = httptest.NewServer(mux)
	return server
}

func newTestServer(t *testing.T) (*Server, *cache.FrameCache) {
	t.Helper()
	backend := newBackendDouble(t)
	t.Cleanup(backend.Close)

	session := earthengine.NewSession("test-project", "token")
	session.SetBaseURL(backend.URL)
	require.NoError(t, session.Initialize(context.Background()))

	frameCache, err := cache.NewFrameCache(t.TempDir(), 10, 30)
	require.NoError(t, err)

	s := NewServer(context.Background(), session, frameCache)
	require.NoError(t, s.Start())
	t.Cleanup(s.Stop)

	return s, frameCache
}

func TestServeCachedFrame(t *testing.T) {
	s, frameCache := newTestServer(t)

	data := testPNG(t)
	require.NoError(t, frameCache.Set("landsat", "abc123", "2021-07", data))

	resp, err := http.Get(s.GetServerURL() + "/frames/landsat/abc123/2021-07.png")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, "HIT", resp.Header.Get("X-Cache-Status"))
}

func TestServeFrameNotCached(t *testing.T) {
	s, _ := newTestServer(t)

	resp, err := http.Get(s.GetServerURL() + "/frames/landsat/missing/2021-07.png")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServeFrameRejectsUnknownProvider(t *testing.T) {
	s, _ := newTestServer(t)

	resp, err := http.Get(s.GetServerURL() + "/frames/bogus/abc/2021.png")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPreviewRendersWindow(t *testing.T) {
	s, _ := newTestServer(t)

	url := s.GetServerURL() + "/preview?provider=landsat" +
		"&south=36.0&west=-112.3&north=36.4&east=-111.8" +
		"&startYear=2020&endYear=2021&seasonStart=06-01&seasonEnd=09-01" +
		"&frequency=year"

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())
}

func TestPreviewRejectsBadRequests(t *testing.T) {
	s, _ := newTestServer(t)

	cases := []string{
		"/preview?provider=landsat&south=36&west=-112&north=36.4&east=-111.8&startYear=2020&endYear=2021&seasonStart=13-01&seasonEnd=09-01&frequency=year",
		"/preview?provider=landsat&south=37&west=-112&north=36&east=-111.8&startYear=2020&endYear=2021&seasonStart=06-01&seasonEnd=09-01&frequency=year",
		"/preview?provider=landsat&south=36&west=-112&north=36.4&east=-111.8&startYear=2020&endYear=2021&seasonStart=06-01&seasonEnd=09-01&frequency=decade",
		"/preview?provider=nope&south=36&west=-112&north=36.4&east=-111.8&startYear=2020&endYear=2021&seasonStart=06-01&seasonEnd=09-01&frequency=year",
	}
	for _, path := range cases {
		resp, err := http.Get(s.GetServerURL() + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
	}
}

func TestCORSHeaders(t *testing.T) {
	s, _ := newTestServer(t)

	req, _ := http.NewRequest("OPTIONS", s.GetServerURL()+"/preview", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
