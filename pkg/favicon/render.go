package favicon

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Render draws the text on a supersampled canvas and downsamples it to
// FaviconDim x FaviconDim with an area-averaging filter.
func Render(cfg *Config) (*image.NRGBA, error) {
	canvas, err := RenderCanvas(cfg)
	if err != nil {
		return nil, err
	}
	return imaging.Resize(canvas, cfg.FaviconDim, cfg.FaviconDim, imaging.Box), nil
}

// RenderCanvas returns the full-resolution canvas before downsampling.
func RenderCanvas(cfg *Config) (*image.NRGBA, error) {
	side := cfg.CanvasSize()
	img := image.NewNRGBA(image.Rect(0, 0, side, side))
	draw.Draw(img, img.Bounds(), image.NewUniform(cfg.BackgroundColor), image.Point{}, draw.Src)

	face, err := loadFace(cfg.FontPath, float64(side)*cfg.TextToImageRatio)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	drawCentered(img, face, cfg.Text, cfg.TextColor, image.Pt(side/2, side/2))
	return img, nil
}

// loadFace opens a TrueType/OpenType font (or the first font of a
// collection) at size pixels.
func loadFace(path string, size float64) (font.Face, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w at %s", ErrFontNotFound, path)
	}

	collection, err := opentype.ParseCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font %s: %w", path, err)
	}
	f, err := collection.Font(0)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font %s: %w", path, err)
	}

	// At 72 DPI one point is one pixel.
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	return face, nil
}

// textOrigin returns the dot that puts text's horizontal middle on center
// and the midpoint between the ascender and descender lines on center.
func textOrigin(face font.Face, text string, center image.Point) fixed.Point26_6 {
	metrics := face.Metrics()
	advance := font.MeasureString(face, text)
	return fixed.Point26_6{
		X: fixed.I(center.X) - advance/2,
		Y: fixed.I(center.Y) + (metrics.Ascent-metrics.Descent)/2,
	}
}

func drawCentered(dst draw.Image, face font.Face, text string, fg color.Color, center image.Point) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot:  textOrigin(face, text, center),
	}
	d.DrawString(text)
}
