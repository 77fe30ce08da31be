package video

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/icza/mjpeg"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"timelapse-desktop/internal/common"
)

// SocialMediaPreset defines common social media video dimensions
type SocialMediaPreset string

const (
	PresetCustom            SocialMediaPreset = "custom"
	PresetInstagramSquare   SocialMediaPreset = "instagram_square"   // 1080x1080
	PresetInstagramPortrait SocialMediaPreset = "instagram_portrait" // 1080x1350
	PresetInstagramStory    SocialMediaPreset = "instagram_story"    // 1080x1920
	PresetInstagramReel     SocialMediaPreset = "instagram_reel"     // 1080x1920
	PresetTikTok            SocialMediaPreset = "tiktok"             // 1080x1920
	PresetYouTube           SocialMediaPreset = "youtube"            // 1920x1080
	PresetYouTubeShorts     SocialMediaPreset = "youtube_shorts"     // 1080x1920
	PresetTwitter           SocialMediaPreset = "twitter"            // 1280x720
	PresetFacebook          SocialMediaPreset = "facebook"           // 1280x720
)

// GetPresetDimensions returns width and height for a preset
func GetPresetDimensions(preset SocialMediaPreset) (int, int) {
	switch preset {
	case PresetInstagramSquare:
		return 1080, 1080
	case PresetInstagramPortrait:
		return 1080, 1350
	case PresetInstagramStory, PresetInstagramReel, PresetTikTok, PresetYouTubeShorts:
		return 1080, 1920
	case PresetYouTube:
		return 1920, 1080
	case PresetTwitter, PresetFacebook:
		return 1280, 720
	default:
		return 1920, 1080 // Default to YouTube
	}
}

// GetPresetLabel returns a human-readable label for a preset
func GetPresetLabel(preset SocialMediaPreset) string {
	switch preset {
	case PresetInstagramSquare:
		return "Instagram Square (1080×1080)"
	case PresetInstagramPortrait:
		return "Instagram Portrait (1080×1350)"
	case PresetInstagramStory:
		return "Instagram Story (1080×1920)"
	case PresetInstagramReel:
		return "Instagram Reel (1080×1920)"
	case PresetTikTok:
		return "TikTok (1080×1920)"
	case PresetYouTube:
		return "YouTube (1920×1080)"
	case PresetYouTubeShorts:
		return "YouTube Shorts (1080×1920)"
	case PresetTwitter:
		return "Twitter/X (1280×720)"
	case PresetFacebook:
		return "Facebook (1280×720)"
	case PresetCustom:
		return "Custom"
	default:
		return "YouTube (1920×1080)"
	}
}

// Presets lists the selectable dimension presets in display order
func Presets() []SocialMediaPreset {
	return []SocialMediaPreset{
		PresetCustom,
		PresetInstagramSquare,
		PresetInstagramPortrait,
		PresetInstagramStory,
		PresetInstagramReel,
		PresetTikTok,
		PresetYouTube,
		PresetYouTubeShorts,
		PresetTwitter,
		PresetFacebook,
	}
}

// ExportOptions contains all options for timelapse export
type ExportOptions struct {
	// Dimensions; zero values keep the source frame size
	Width  int
	Height int
	Preset SocialMediaPreset

	// Caption overlay (the date-window label of each frame)
	ShowCaption     bool
	CaptionFontSize float64
	CaptionPosition string // "top-left", "top-right", "bottom-left", "bottom-right", "center"
	CaptionColor    color.RGBA
	CaptionShadow   bool
	FontPath        string // Path to font file; empty probes system fonts

	// Progress bar strip across the bottom edge, width proportional to the
	// frame's position in the sequence
	ShowProgressBar   bool
	ProgressBarColor  color.RGBA
	ProgressBarHeight int

	// Title overlay drawn near the bottom-left corner of every frame
	Title string

	// Video settings
	FrameRate    int     // FPS for H.264 output
	FrameDelay   float64 // Seconds each frame is shown
	OutputFormat string  // "mp4", "gif", "avi"
	Quality      int     // 0-100 (for lossy formats)
	UseH264      bool    // Try H.264 encoding via FFmpeg
}

// DefaultExportOptions returns sensible defaults
func DefaultExportOptions() *ExportOptions {
	return &ExportOptions{
		Preset:            PresetCustom,
		ShowCaption:       true,
		CaptionFontSize:   20,
		CaptionPosition:   "top-left",
		CaptionColor:      color.RGBA{255, 255, 255, 255},
		CaptionShadow:     true,
		ShowProgressBar:   true,
		ProgressBarColor:  color.RGBA{255, 255, 255, 255},
		ProgressBarHeight: 5,
		FrameRate:         10,
		FrameDelay:        0.1,
		OutputFormat:      "gif",
		Quality:           90,
		UseH264:           true,
	}
}

// Frame is a single rendered composite plus its date-window label
type Frame struct {
	Image image.Image
	Label string
}

// Exporter annotates frames and encodes the animation
type Exporter struct {
	options    *ExportOptions
	font       font.Face
	ffmpegPath string
}

// NewExporter creates a new exporter. Missing FFmpeg or fonts degrade
// features instead of failing: MP4 falls back to MJPEG AVI, captions are
// skipped.
func NewExporter(opts *ExportOptions) (*Exporter, error) {
	e := &Exporter{
		options: opts,
	}

	if opts.UseH264 {
		path, found := CheckFFmpeg()
		if found {
			e.ffmpegPath = path
			log.Printf("[VideoExport] FFmpeg found at: %s", path)
		} else {
			log.Printf("[VideoExport] FFmpeg not found, will use fallback encoder")
		}
	}

	if opts.ShowCaption || opts.Title != "" {
		if err := e.loadFont(); err != nil {
			log.Printf("[VideoExport] Warning: failed to load font: %v", err)
			// Continue without text overlays
		}
	}

	return e, nil
}

// HasFFmpeg returns true if FFmpeg is available
func (e *Exporter) HasFFmpeg() bool {
	return e.ffmpegPath != ""
}

// ProcessFrame scales one frame to the output size and draws the caption,
// title, and progress bar. Index is the frame's 0-based position, total the
// sequence length; the progress bar spans (index+1)/total of the width.
func (e *Exporter) ProcessFrame(sourceImage image.Image, label string, index, total int) (*image.RGBA, error) {
	opts := e.options

	width, height := opts.Width, opts.Height
	if width == 0 || height == 0 {
		width = sourceImage.Bounds().Dx()
		height = sourceImage.Bounds().Dy()
	}

	output := image.NewRGBA(image.Rect(0, 0, width, height))
	e.resizeAndDrawImage(output, sourceImage)

	if opts.ShowCaption && e.font != nil && label != "" {
		e.drawText(output, captionText(label), opts.CaptionPosition)
	}
	if opts.Title != "" && e.font != nil {
		e.drawTitle(output, opts.Title)
	}
	if opts.ShowProgressBar && total > 0 {
		e.drawProgressBar(output, index, total)
	}

	return output, nil
}

// captionText expands full-date window labels ("2021-07-04") to the long
// caption form; year, quarter, and month labels pass through unchanged
func captionText(label string) string {
	if t, err := common.ParseISO8601(label); err == nil {
		return common.FormatCaption(t)
	}
	return label
}

// resizeAndDrawImage resizes source to fit destination with nearest-neighbor
// scaling (fast, good enough for video)
func (e *Exporter) resizeAndDrawImage(dst *image.RGBA, src image.Image) {
	bounds := src.Bounds()
	dstBounds := dst.Bounds()

	scaleX := float64(bounds.Dx()) / float64(dstBounds.Dx())
	scaleY := float64(bounds.Dy()) / float64(dstBounds.Dy())

	for dy := dstBounds.Min.Y; dy < dstBounds.Max.Y; dy++ {
		for dx := dstBounds.Min.X; dx < dstBounds.Max.X; dx++ {
			sx := bounds.Min.X + int(float64(dx-dstBounds.Min.X)*scaleX)
			sy := bounds.Min.Y + int(float64(dy-dstBounds.Min.Y)*scaleY)

			if sx >= bounds.Min.X && sx < bounds.Max.X && sy >= bounds.Min.Y && sy < bounds.Max.Y {
				dst.Set(dx, dy, src.At(sx, sy))
			}
		}
	}
}

// drawText draws a text overlay at one of the named positions
func (e *Exporter) drawText(dst *image.RGBA, text, position string) {
	if e.font == nil {
		return
	}

	width := dst.Bounds().Dx()
	height := dst.Bounds().Dy()

	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(e.options.CaptionColor),
		Face: e.font,
	}

	bounds, _ := drawer.BoundString(text)
	textWidth := (bounds.Max.X - bounds.Min.X).Ceil()
	textHeight := (bounds.Max.Y - bounds.Min.Y).Ceil()

	var x, y int
	padding := 10

	switch position {
	case "top-left":
		x = padding
		y = padding + textHeight
	case "top-right":
		x = width - textWidth - padding
		y = padding + textHeight
	case "bottom-left":
		x = padding
		y = height - padding
	case "bottom-right":
		x = width - textWidth - padding
		y = height - padding
	case "center":
		x = (width - textWidth) / 2
		y = (height + textHeight) / 2
	default:
		x = padding
		y = padding + textHeight
	}

	if e.options.CaptionShadow {
		shadowDrawer := &font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(color.RGBA{0, 0, 0, 180}),
			Face: e.font,
			Dot:  fixed.P(x+2, y+2),
		}
		shadowDrawer.DrawString(text)
	}

	drawer.Dot = fixed.P(x, y)
	drawer.DrawString(text)
}

// drawTitle draws the title near the bottom-left corner, above the progress
// bar strip
func (e *Exporter) drawTitle(dst *image.RGBA, title string) {
	width := dst.Bounds().Dx()
	height := dst.Bounds().Dy()

	x := width * 2 / 100
	y := height * 93 / 100

	if e.options.CaptionShadow {
		shadowDrawer := &font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(color.RGBA{0, 0, 0, 180}),
			Face: e.font,
			Dot:  fixed.P(x+2, y+2),
		}
		shadowDrawer.DrawString(title)
	}

	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(e.options.CaptionColor),
		Face: e.font,
		Dot:  fixed.P(x, y),
	}
	drawer.DrawString(title)
}

// drawProgressBar fills a strip along the bottom edge proportional to the
// frame's position in the sequence
func (e *Exporter) drawProgressBar(dst *image.RGBA, index, total int) {
	bounds := dst.Bounds()
	height := e.options.ProgressBarHeight
	if height < 1 {
		height = 5
	}

	barWidth := bounds.Dx() * (index + 1) / total
	barTop := bounds.Max.Y - height

	bar := image.Rect(bounds.Min.X, barTop, bounds.Min.X+barWidth, bounds.Max.Y)
	draw.Draw(dst, bar, image.NewUniform(e.options.ProgressBarColor), image.Point{}, draw.Src)
}

// ExportVideo annotates and encodes all frames into outputPath
func (e *Exporter) ExportVideo(frames []Frame, outputPath string) error {
	opts := e.options

	switch opts.OutputFormat {
	case "mp4":
		if e.ffmpegPath != "" && opts.UseH264 {
			return e.exportH264(frames, outputPath)
		}
		aviPath := strings.TrimSuffix(outputPath, ".mp4") + ".avi"
		log.Printf("[VideoExport] FFmpeg not available, falling back to MJPEG AVI: %s", aviPath)
		return e.exportMotionJPEG(frames, aviPath)
	case "avi":
		return e.exportMotionJPEG(frames, outputPath)
	case "gif":
		return e.exportGIF(frames, outputPath)
	default:
		return fmt.Errorf("unsupported output format: %s (supported: mp4, avi, gif)", opts.OutputFormat)
	}
}

// exportH264 creates an MP4 file with H.264 codec using FFmpeg
func (e *Exporter) exportH264(frames []Frame, outputPath string) error {
	if len(frames) == 0 {
		return fmt.Errorf("no frames to export")
	}

	log.Printf("[VideoExport] Exporting H.264 video with %d frames", len(frames))

	tempDir, err := os.MkdirTemp("", "timelapse_frames_*")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	// Duplicate frames so each one holds for FrameDelay seconds
	duplicateCount := int(e.options.FrameDelay * float64(e.options.FrameRate))
	if duplicateCount < 1 {
		duplicateCount = 1
	}

	frameIndex := 0
	for i, frame := range frames {
		processedFrame, err := e.ProcessFrame(frame.Image, frame.Label, i, len(frames))
		if err != nil {
			return fmt.Errorf("failed to process frame %d: %w", i, err)
		}

		for d := 0; d < duplicateCount; d++ {
			framePath := filepath.Join(tempDir, fmt.Sprintf("frame_%05d.png", frameIndex))
			f, err := os.Create(framePath)
			if err != nil {
				return fmt.Errorf("failed to create frame file: %w", err)
			}

			if err := png.Encode(f, processedFrame); err != nil {
				f.Close()
				return fmt.Errorf("failed to encode frame %d: %w", i, err)
			}
			f.Close()
			frameIndex++
		}
	}

	// Map quality 0-100 to CRF 51-0
	crf := 51 - (e.options.Quality * 51 / 100)
	if crf < 0 {
		crf = 0
	}
	if crf > 51 {
		crf = 51
	}

	inputPattern := filepath.Join(tempDir, "frame_%05d.png")
	args := []string{
		"-y",
		"-framerate", fmt.Sprintf("%d", e.options.FrameRate),
		"-i", inputPattern,
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", fmt.Sprintf("%d", crf),
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		outputPath,
	}

	return e.runFFmpeg(args, outputPath)
}

// runFFmpeg executes FFmpeg with a timeout and verifies the output file
func (e *Exporter) runFFmpeg(args []string, outputPath string) error {
	log.Printf("[VideoExport] Running FFmpeg: %s %v", e.ffmpegPath, args)

	cmd := exec.Command(e.ffmpegPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start FFmpeg: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			log.Printf("[VideoExport] FFmpeg stderr: %s", stderr.String())
			return fmt.Errorf("FFmpeg encoding failed: %w\nStderr: %s", err, stderr.String())
		}
	case <-time.After(5 * time.Minute):
		cmd.Process.Kill()
		log.Printf("[VideoExport] FFmpeg timed out after 5 minutes")
		return fmt.Errorf("FFmpeg encoding timed out after 5 minutes")
	}

	if info, err := os.Stat(outputPath); err != nil {
		return fmt.Errorf("output file not created: %w", err)
	} else if info.Size() == 0 {
		return fmt.Errorf("output file is empty")
	}

	log.Printf("[VideoExport] Video exported: %s", outputPath)
	return nil
}

// exportMotionJPEG creates an AVI file with Motion JPEG codec (compatible,
// plays everywhere)
func (e *Exporter) exportMotionJPEG(frames []Frame, outputPath string) error {
	if len(frames) == 0 {
		return fmt.Errorf("no frames to export")
	}

	if !strings.HasSuffix(strings.ToLower(outputPath), ".avi") {
		outputPath = strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".avi"
	}

	// Each frame shows for FrameDelay seconds
	effectiveFPS := int(1.0 / e.options.FrameDelay)
	if effectiveFPS < 1 {
		effectiveFPS = 1
	}
	if effectiveFPS > 30 {
		effectiveFPS = 30
	}

	width, height := e.outputSize(frames[0].Image)

	writer, err := mjpeg.New(outputPath, int32(width), int32(height), int32(effectiveFPS))
	if err != nil {
		return fmt.Errorf("failed to create video writer: %w", err)
	}
	defer writer.Close()

	for i, frame := range frames {
		processedFrame, err := e.ProcessFrame(frame.Image, frame.Label, i, len(frames))
		if err != nil {
			return fmt.Errorf("failed to process frame %d: %w", i, err)
		}

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, processedFrame, &jpeg.Options{Quality: e.options.Quality}); err != nil {
			return fmt.Errorf("failed to encode frame %d as JPEG: %w", i, err)
		}

		if err := writer.AddFrame(buf.Bytes()); err != nil {
			return fmt.Errorf("failed to add frame %d: %w", i, err)
		}
	}

	log.Printf("[VideoExport] MJPEG video exported: %s", outputPath)
	return nil
}

// exportGIF creates an animated GIF with Floyd-Steinberg dithering
func (e *Exporter) exportGIF(frames []Frame, outputPath string) error {
	if len(frames) == 0 {
		return fmt.Errorf("no frames to export")
	}

	palettedImages := make([]*image.Paletted, 0, len(frames))
	delays := make([]int, 0, len(frames))

	// Delay in 100ths of a second
	delay := int(e.options.FrameDelay * 100)
	if delay < 1 {
		delay = 1
	}

	for i, frame := range frames {
		processedFrame, err := e.ProcessFrame(frame.Image, frame.Label, i, len(frames))
		if err != nil {
			return fmt.Errorf("failed to process frame %d: %w", i, err)
		}

		palettedImages = append(palettedImages, ditherFrame(processedFrame))
		delays = append(delays, delay)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	width, height := e.outputSize(frames[0].Image)

	return gif.EncodeAll(f, &gif.GIF{
		Image: palettedImages,
		Delay: delays,
		Config: image.Config{
			Width:  width,
			Height: height,
		},
	})
}

// outputSize returns the configured dimensions, falling back to the source
// frame size
func (e *Exporter) outputSize(first image.Image) (int, int) {
	if e.options.Width > 0 && e.options.Height > 0 {
		return e.options.Width, e.options.Height
	}
	return first.Bounds().Dx(), first.Bounds().Dy()
}

// GIFToMP4 converts an animated GIF to H.264 MP4. The scale filter pads odd
// dimensions; yuv420p requires even width and height.
func (e *Exporter) GIFToMP4(gifPath, mp4Path string) error {
	if e.ffmpegPath == "" {
		return fmt.Errorf("FFmpeg not available for MP4 conversion")
	}

	args := []string{
		"-y",
		"-i", gifPath,
		"-vcodec", "libx264",
		"-crf", "25",
		"-pix_fmt", "yuv420p",
		"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2",
		mp4Path,
	}
	return e.runFFmpeg(args, mp4Path)
}

// Close releases resources
func (e *Exporter) Close() error {
	if e.font != nil {
		return e.font.Close()
	}
	return nil
}
