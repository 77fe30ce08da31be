package timelapse

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"log"
	"sync"

	"timelapse-desktop/internal/common"
	"timelapse-desktop/internal/earthengine"
)

// SeriesHash fingerprints everything that affects frame pixels except the
// date window, so cached frames are reused across runs with the same region
// and rendering parameters
func SeriesHash(job Job) string {
	payload, _ := json.Marshal(struct {
		Provider   string             `json:"provider"`
		Region     common.BoundingBox `json:"region"`
		Options    interface{}        `json:"options"`
		Dimensions int                `json:"dimensions"`
	}{job.Provider, job.Region, job.Options, job.Dimensions})

	sum := sha1.Sum(payload)
	return hex.EncodeToString(sum[:])[:16]
}

// renderFrames fetches every composite frame through a bounded worker pool,
// consulting the frame cache first. Results come back in chronological order.
func (g *Generator) renderFrames(ctx context.Context, job Job, specs []earthengine.CompositeSpec) ([]common.FrameResult, error) {
	seriesHash := SeriesHash(job)
	region := job.Region.Coordinates()
	dimensions := job.Dimensions
	if dimensions == 0 {
		dimensions = earthengine.DefaultDimensions
	}

	results := make([]common.FrameResult, len(specs))
	tracker := common.NewFrameTracker(len(specs))

	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < g.maxWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				spec := specs[i]
				img, cached, err := g.renderOneFrame(ctx, job.Provider, seriesHash, spec, region, dimensions)

				results[i] = common.FrameResult{
					Label:   spec.Label,
					Image:   img,
					Success: err == nil,
					Error:   err,
					Index:   i,
				}

				tracker.IncrementFrame()
				done, total := tracker.GetProgress()
				status := fmt.Sprintf("Rendered %s", spec.Label)
				if cached {
					status = fmt.Sprintf("Loaded %s from cache", spec.Label)
				}
				g.emitProgress("rendering", done, total, status)
			}
		}()
	}

	dispatch := func() error {
		defer close(jobs)
		for i := range specs {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	}
	dispatchErr := dispatch()
	wg.Wait()

	if dispatchErr != nil {
		return nil, dispatchErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// renderOneFrame returns a single frame, from cache when possible
func (g *Generator) renderOneFrame(ctx context.Context, provider, seriesHash string, spec earthengine.CompositeSpec, region [4]float64, dimensions int) (image.Image, bool, error) {
	if g.frameCache != nil {
		if data, ok := g.frameCache.Get(provider, seriesHash, spec.Label); ok {
			img, err := png.Decode(bytes.NewReader(data))
			if err == nil {
				return img, true, nil
			}
			log.Printf("[Timelapse] Corrupt cached frame %s/%s, re-rendering: %v",
				seriesHash, spec.Label, err)
		}
	}

	img, err := g.session.RenderFrame(ctx, spec, region, dimensions)
	if err != nil {
		return nil, false, err
	}

	if g.frameCache != nil {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err == nil {
			if err := g.frameCache.Set(provider, seriesHash, spec.Label, buf.Bytes()); err != nil {
				log.Printf("[Timelapse] Failed to cache frame %s: %v", spec.Label, err)
			}
		}
	}

	return img, false, nil
}
