package video

import (
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"os"
)

// AnnotateGIF decodes a server-rendered GIF, draws the caption, title, and
// progress bar onto each frame, and re-encodes it in place preserving the
// original timing. Labels are matched to frames by index; a short label list
// leaves trailing frames uncaptioned.
func (e *Exporter) AnnotateGIF(inPath, outPath string, labels []string) error {
	f, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("failed to open GIF: %w", err)
	}
	g, err := gif.DecodeAll(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("failed to decode GIF: %w", err)
	}
	if len(g.Image) == 0 {
		return fmt.Errorf("GIF has no frames")
	}

	// Frames may be partial updates over the previous frame; compose onto a
	// running canvas so annotations land on complete images
	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() {
		bounds = g.Image[0].Bounds()
	}
	canvas := image.NewRGBA(bounds)

	total := len(g.Image)
	for i, frame := range g.Image {
		draw.Draw(canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)

		annotated := image.NewRGBA(bounds)
		draw.Draw(annotated, bounds, canvas, bounds.Min, draw.Src)

		if e.options.ShowCaption && e.font != nil && i < len(labels) {
			e.drawText(annotated, labels[i], e.options.CaptionPosition)
		}
		if e.options.Title != "" && e.font != nil {
			e.drawTitle(annotated, e.options.Title)
		}
		if e.options.ShowProgressBar {
			e.drawProgressBar(annotated, i, total)
		}

		g.Image[i] = ditherFrame(annotated)
		if i < len(g.Disposal) {
			g.Disposal[i] = gif.DisposalNone
		}
	}

	tmpPath := outPath + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create output GIF: %w", err)
	}
	if err := gif.EncodeAll(out, g); err != nil {
		out.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to encode GIF: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to finalize GIF: %w", err)
	}
	return os.Rename(tmpPath, outPath)
}
