package video

import (
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"os"
	"runtime"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

// loadFont loads the caption font, probing system font locations when no
// explicit path is configured
func (e *Exporter) loadFont() error {
	path := e.options.FontPath
	if path == "" {
		found, ok := findSystemFont()
		if !ok {
			return fmt.Errorf("no usable system font found")
		}
		path = found
	}

	fontBytes, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read font file: %w", err)
	}

	f, err := opentype.Parse(fontBytes)
	if err != nil {
		return fmt.Errorf("failed to parse font: %w", err)
	}

	size := e.options.CaptionFontSize
	if size <= 0 {
		size = 20
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return fmt.Errorf("failed to create font face: %w", err)
	}

	e.font = face
	return nil
}

// findSystemFont probes well-known sans-serif font locations per OS
func findSystemFont() (string, bool) {
	var candidates []string
	switch runtime.GOOS {
	case "darwin":
		candidates = []string{
			"/System/Library/Fonts/Helvetica.ttc",
			"/System/Library/Fonts/Supplemental/Arial.ttf",
			"/Library/Fonts/Arial.ttf",
		}
	case "windows":
		candidates = []string{
			"C:\\Windows\\Fonts\\arial.ttf",
			"C:\\Windows\\Fonts\\segoeui.ttf",
			"C:\\Windows\\Fonts\\calibri.ttf",
		}
	default:
		candidates = []string{
			"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
			"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
			"/usr/share/fonts/TTF/DejaVuSans.ttf",
			"/usr/share/fonts/dejavu/DejaVuSans.ttf",
		}
	}

	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}

// ditherFrame converts an RGBA frame to a paletted image with
// Floyd-Steinberg dithering for GIF output
func ditherFrame(src *image.RGBA) *image.Paletted {
	bounds := src.Bounds()
	paletted := image.NewPaletted(bounds, palette.Plan9)
	draw.FloydSteinberg.Draw(paletted, bounds, src, image.Point{})
	return paletted
}
