// Package timelapse drives one render job end to end: it expands the date
// window into composite specs, renders the frames (server-side animation or
// frame-by-frame through the cache), and hands the result to the video
// exporter.
package timelapse

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"timelapse-desktop/internal/cache"
	"timelapse-desktop/internal/common"
	"timelapse-desktop/internal/composites"
	"timelapse-desktop/internal/earthengine"
	"timelapse-desktop/internal/temporal"
	"timelapse-desktop/internal/utils/naming"
	"timelapse-desktop/internal/video"
)

// Job describes one timelapse render from window to output file
type Job struct {
	Name     string                 `json:"name"`
	Provider string                 `json:"provider"`
	Region   common.BoundingBox     `json:"region"`
	Window   temporal.WindowRequest `json:"window"`
	Options  composites.Options     `json:"options"`

	// Dimensions is the max output edge in pixels; zero uses the backend
	// default
	Dimensions int `json:"dimensions"`

	// ServerRender asks the backend to assemble the whole animation in one
	// call instead of rendering frames individually. Cheaper on requests,
	// but frames skip the local cache.
	ServerRender bool `json:"serverRender"`

	// OutputFormat is "gif", "mp4", "avi", or "gif+mp4"
	OutputFormat string `json:"outputFormat"`

	OutputDir string `json:"outputDir"`

	// BaseName overrides the generated output filename (no extension)
	BaseName string `json:"baseName,omitempty"`

	Export *video.ExportOptions `json:"-"`
}

// Generator renders timelapse jobs against one backend session
type Generator struct {
	session    *earthengine.Session
	frameCache *cache.FrameCache
	maxWorkers int

	onProgress func(common.RenderProgress)
}

// NewGenerator creates a generator. The frame cache is optional; a nil cache
// renders every frame remotely.
func NewGenerator(session *earthengine.Session, frameCache *cache.FrameCache, maxWorkers int) *Generator {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if maxWorkers > 8 {
		maxWorkers = 8
	}
	return &Generator{
		session:    session,
		frameCache: frameCache,
		maxWorkers: maxWorkers,
	}
}

// SetProgressCallback registers a callback invoked as the job advances
func (g *Generator) SetProgressCallback(fn func(common.RenderProgress)) {
	g.onProgress = fn
}

func (g *Generator) emitProgress(phase string, current, total int, status string) {
	if g.onProgress == nil {
		return
	}
	percent := 0
	if total > 0 {
		percent = (current * 100) / total
	}
	g.onProgress(common.RenderProgress{
		Phase:        phase,
		CurrentFrame: current,
		TotalFrames:  total,
		Percent:      percent,
		Status:       status,
	})
}

// Generate runs one job and returns the path of the primary output file
func (g *Generator) Generate(ctx context.Context, job Job) (string, error) {
	if g.session == nil || !g.session.Initialized() {
		return "", fmt.Errorf("backend session not initialized")
	}

	format, err := common.ParseOutputFormat(job.OutputFormat)
	if err != nil {
		return "", err
	}

	specs, err := composites.Build(job.Provider, job.Region, job.Window, job.Options)
	if err != nil {
		return "", fmt.Errorf("failed to build composite series: %w", err)
	}
	if len(specs) == 0 {
		return "", fmt.Errorf("date window produced no frames")
	}

	labels := make([]string, len(specs))
	for i, spec := range specs {
		labels[i] = spec.Label
	}

	g.emitProgress("composing", 0, len(specs),
		fmt.Sprintf("Prepared %d composites", len(specs)))

	if err := os.MkdirAll(job.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	baseName := job.BaseName
	if baseName == "" {
		baseName = naming.GenerateTimelapseFilename(
			job.Provider, string(job.Window.Frequency),
			job.Window.StartYear, job.Window.EndYear,
			job.Region.South, job.Region.West, job.Region.North, job.Region.East)
	}

	opts := job.Export
	if opts == nil {
		opts = video.DefaultExportOptions()
	}

	if job.ServerRender {
		return g.serverRender(ctx, job, specs, labels, baseName, format, opts)
	}
	return g.localRender(ctx, job, specs, baseName, format, opts)
}

// serverRender delegates animation assembly to the backend and annotates the
// returned GIF locally
func (g *Generator) serverRender(ctx context.Context, job Job, specs []earthengine.CompositeSpec, labels []string, baseName string, format common.OutputFormat, opts *video.ExportOptions) (string, error) {
	spec := earthengine.VideoSpec{
		Composites:      specs,
		Region:          job.Region,
		Dimensions:      job.Dimensions,
		FramesPerSecond: opts.FrameRate,
	}

	g.emitProgress("rendering", 0, len(specs), "Requesting animation from backend")

	gifPath, err := g.session.RenderVideo(ctx, spec, job.OutputDir, baseName)
	if err != nil {
		return "", fmt.Errorf("backend render failed: %w", err)
	}

	exporter, err := video.NewExporter(opts)
	if err != nil {
		return "", err
	}
	defer exporter.Close()

	if opts.ShowCaption || opts.ShowProgressBar || opts.Title != "" {
		g.emitProgress("annotating", 0, len(specs), "Annotating frames")
		if err := exporter.AnnotateGIF(gifPath, gifPath, labels); err != nil {
			return "", fmt.Errorf("failed to annotate animation: %w", err)
		}
	}

	outputPath := gifPath
	if format.MP4 {
		mp4Path := strings.TrimSuffix(gifPath, filepath.Ext(gifPath)) + ".mp4"
		g.emitProgress("encoding", len(specs), len(specs), "Converting to MP4")
		if err := exporter.GIFToMP4(gifPath, mp4Path); err != nil {
			return "", fmt.Errorf("failed to convert to MP4: %w", err)
		}
		outputPath = mp4Path
		if !format.GIF {
			os.Remove(gifPath)
		}
	}

	g.emitProgress("encoding", len(specs), len(specs), "Done")
	log.Printf("[Timelapse] Server render complete: %s", outputPath)
	return outputPath, nil
}

// localRender fetches each frame individually (cache-aware) and encodes the
// animation on this machine
func (g *Generator) localRender(ctx context.Context, job Job, specs []earthengine.CompositeSpec, baseName string, format common.OutputFormat, opts *video.ExportOptions) (string, error) {
	results, err := g.renderFrames(ctx, job, specs)
	if err != nil {
		return "", err
	}

	frames := make([]video.Frame, 0, len(results))
	for _, r := range results {
		if !r.Success {
			return "", fmt.Errorf("frame %s failed: %w", r.Label, r.Error)
		}
		frames = append(frames, video.Frame{Image: r.Image, Label: r.Label})
	}

	exporter, err := video.NewExporter(opts)
	if err != nil {
		return "", err
	}
	defer exporter.Close()

	ext := ".gif"
	switch {
	case format.MP4 && !format.GIF:
		ext = ".mp4"
	case format.AVI:
		ext = ".avi"
	}
	outputPath := filepath.Join(job.OutputDir, baseName+ext)

	// The exporter dispatches on its own OutputFormat; keep it in sync with
	// the job
	switch {
	case format.AVI:
		opts.OutputFormat = "avi"
	case format.MP4 && !format.GIF:
		opts.OutputFormat = "mp4"
	default:
		opts.OutputFormat = "gif"
	}

	g.emitProgress("encoding", len(frames), len(frames), "Encoding animation")
	if err := exporter.ExportVideo(frames, outputPath); err != nil {
		return "", fmt.Errorf("failed to encode animation: %w", err)
	}

	if format.GIF && format.MP4 {
		mp4Path := filepath.Join(job.OutputDir, baseName+".mp4")
		if err := exporter.GIFToMP4(outputPath, mp4Path); err != nil {
			return "", fmt.Errorf("failed to convert to MP4: %w", err)
		}
	}

	g.emitProgress("encoding", len(frames), len(frames), "Done")
	log.Printf("[Timelapse] Local render complete: %s (%d frames)", outputPath, len(frames))
	return outputPath, nil
}
