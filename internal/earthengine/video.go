package earthengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// RenderFrame asks the backend to evaluate one composite over a region and
// returns the decoded thumbnail. This is the per-frame path used by the local
// assembler.
func (s *Session) RenderFrame(ctx context.Context, spec CompositeSpec, region [4]float64, dimensions int) (image.Image, error) {
	if !s.Initialized() {
		return nil, fmt.Errorf("session not initialized")
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if dimensions < 1 || dimensions > MaxDimensions {
		return nil, fmt.Errorf("dimensions %d out of range [1, %d]", dimensions, MaxDimensions)
	}

	body := spec.requestBody()
	body["region"] = region
	body["dimensions"] = dimensions
	body["format"] = "png"

	mediaURL, err := s.createThumbnail(ctx, "thumbnails", body, "frame render")
	if err != nil {
		return nil, err
	}

	data, err := s.fetchMedia(ctx, mediaURL, "frame download")
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame %s: %w", spec.Label, err)
	}
	return img, nil
}

// RenderVideo asks the backend to render the whole animation server-side and
// downloads the result into destDir. Returns the local GIF path.
func (s *Session) RenderVideo(ctx context.Context, spec VideoSpec, destDir, baseName string) (string, error) {
	if !s.Initialized() {
		return "", fmt.Errorf("session not initialized")
	}
	if err := spec.Validate(); err != nil {
		return "", err
	}

	composites := make([]map[string]interface{}, len(spec.Composites))
	for i, c := range spec.Composites {
		composites[i] = c.requestBody()
	}
	body := map[string]interface{}{
		"composites":      composites,
		"region":          spec.Region.Coordinates(),
		"dimensions":      spec.Dimensions,
		"framesPerSecond": spec.FramesPerSecond,
		"crs":             spec.CRS,
		"format":          "gif",
	}

	mediaURL, err := s.createThumbnail(ctx, "videoThumbnails", body, "video render")
	if err != nil {
		return "", err
	}

	data, err := s.fetchMedia(ctx, mediaURL, "video download")
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write through a temp file so a partial download never looks complete
	outPath := filepath.Join(destDir, baseName+".gif")
	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write video: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to finalize video: %w", err)
	}

	return outPath, nil
}

// createThumbnail posts a render request and returns the media URL the
// backend hands back
func (s *Session) createThumbnail(ctx context.Context, resource string, body map[string]interface{}, operation string) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s request: %w", operation, err)
	}

	url := fmt.Sprintf("%s/projects/%s/%s", s.baseURL, s.project, resource)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.do(req, operation)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to parse %s response: %w", operation, err)
	}
	if result.URL != "" {
		return result.URL, nil
	}
	if result.Name == "" {
		return "", fmt.Errorf("%s response carried no media reference", operation)
	}
	return fmt.Sprintf("%s/%s:getPixels", s.baseURL, result.Name), nil
}

// fetchMedia downloads rendered media bytes
func (s *Session) fetchMedia(ctx context.Context, url, operation string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.do(req, operation)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s read failed: %w", operation, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s returned no data", operation)
	}
	return data, nil
}
