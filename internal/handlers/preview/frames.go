package preview

import (
	"bytes"
	"fmt"
	"image/png"
	"log"
	"net/http"
	"strconv"
	"strings"

	"timelapse-desktop/internal/common"
	"timelapse-desktop/internal/composites"
	"timelapse-desktop/internal/earthengine"
	"timelapse-desktop/internal/temporal"
)

// handleFrame serves a cached frame
// URL format: /frames/{provider}/{seriesHash}/{label}.png
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/frames/")
	parts := strings.Split(path, "/")

	if len(parts) != 3 {
		http.Error(w, "Invalid URL format. Expected: /frames/{provider}/{seriesHash}/{label}.png", http.StatusBadRequest)
		return
	}

	provider := parts[0]
	seriesHash := parts[1]
	label := strings.TrimSuffix(parts[2], ".png")

	if err := common.ValidateProvider(provider); err != nil {
		http.Error(w, "Unknown provider", http.StatusBadRequest)
		return
	}

	filePath, found := s.frameCache.FramePath(provider, seriesHash, label)
	if !found {
		http.Error(w, "Frame not cached", http.StatusNotFound)
		return
	}

	// The label comes from the request; make sure the resolved path stays
	// inside the cache
	if err := common.ValidateCachePath(s.frameCache.GetCachePath(), filePath); err != nil {
		log.Printf("[PreviewServer] Rejected frame path: %v", err)
		http.Error(w, "Invalid frame path", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("X-Cache-Status", "HIT")
	http.ServeFile(w, r, filePath)
}

// handlePreview renders a single window of a series on demand so the frontend
// can show what a timelapse frame will look like before queueing the job
// Query: provider, south, west, north, east, startYear, endYear,
// seasonStart, seasonEnd, frequency, step, frame, dimensions
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	provider := q.Get("provider")
	if err := common.ValidateProvider(provider); err != nil {
		http.Error(w, "Unknown provider", http.StatusBadRequest)
		return
	}

	region, err := parseRegion(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	window, err := parseWindow(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	specs, err := composites.Build(provider, region, window, composites.Options{})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	frameIndex := 0
	if v := q.Get("frame"); v != "" {
		frameIndex, err = strconv.Atoi(v)
		if err != nil || frameIndex < 0 || frameIndex >= len(specs) {
			http.Error(w, "Invalid frame index", http.StatusBadRequest)
			return
		}
	}

	dimensions := 512
	if v := q.Get("dimensions"); v != "" {
		dimensions, err = strconv.Atoi(v)
		if err != nil || dimensions < 1 || dimensions > earthengine.MaxDimensions {
			http.Error(w, "Invalid dimensions", http.StatusBadRequest)
			return
		}
	}

	img, err := s.session.RenderFrame(r.Context(), specs[frameIndex], region.Coordinates(), dimensions)
	if err != nil {
		log.Printf("[PreviewServer] Preview render failed: %v", err)
		http.Error(w, "Preview render failed", http.StatusBadGateway)
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		http.Error(w, "Failed to encode preview", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Cache-Status", "MISS")
	w.Write(buf.Bytes())
}

func parseRegion(q map[string][]string) (common.BoundingBox, error) {
	coord := func(name string) (float64, error) {
		vals, ok := q[name]
		if !ok || len(vals) == 0 {
			return 0, fmt.Errorf("missing %s", name)
		}
		return strconv.ParseFloat(vals[0], 64)
	}

	var box common.BoundingBox
	var err error
	if box.South, err = coord("south"); err != nil {
		return box, err
	}
	if box.West, err = coord("west"); err != nil {
		return box, err
	}
	if box.North, err = coord("north"); err != nil {
		return box, err
	}
	if box.East, err = coord("east"); err != nil {
		return box, err
	}
	return box, box.Validate()
}

func parseWindow(q map[string][]string) (temporal.WindowRequest, error) {
	get := func(name string) string {
		if vals, ok := q[name]; ok && len(vals) > 0 {
			return vals[0]
		}
		return ""
	}

	startYear, err := strconv.Atoi(get("startYear"))
	if err != nil {
		return temporal.WindowRequest{}, fmt.Errorf("invalid startYear")
	}
	endYear, err := strconv.Atoi(get("endYear"))
	if err != nil {
		return temporal.WindowRequest{}, fmt.Errorf("invalid endYear")
	}

	freq, err := temporal.ParseFrequency(get("frequency"))
	if err != nil {
		return temporal.WindowRequest{}, err
	}

	step := 1
	if v := get("step"); v != "" {
		step, err = strconv.Atoi(v)
		if err != nil {
			return temporal.WindowRequest{}, fmt.Errorf("invalid step")
		}
	}

	return temporal.WindowRequest{
		StartYear:   startYear,
		EndYear:     endYear,
		SeasonStart: get("seasonStart"),
		SeasonEnd:   get("seasonEnd"),
		Frequency:   freq,
		Step:        step,
	}, nil
}
