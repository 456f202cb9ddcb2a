package favicon

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
)

type icoEntry struct {
	Width, Height uint8
	Palette       uint8
	Reserved      uint8
	Planes        uint16
	BitCount      uint16
	Size          uint32
	Offset        uint32
}

func decodeICO(t *testing.T, data []byte) ([]icoEntry, []image.Image) {
	t.Helper()
	r := bytes.NewReader(data)

	var header [3]uint16
	require.NoError(t, binary.Read(r, binary.LittleEndian, &header))
	require.Equal(t, uint16(0), header[0])
	require.Equal(t, uint16(1), header[1])

	entries := make([]icoEntry, header[2])
	require.NoError(t, binary.Read(r, binary.LittleEndian, entries))

	images := make([]image.Image, len(entries))
	for i, e := range entries {
		img, err := png.Decode(bytes.NewReader(data[e.Offset : e.Offset+e.Size]))
		require.NoError(t, err)
		images[i] = img
	}
	return entries, images
}

func sameColor(a, b color.Color) bool {
	r1, g1, b1, a1 := a.RGBA()
	r2, g2, b2, a2 := b.RGBA()
	return r1 == r2 && g1 == g2 && b1 == b2 && a1 == a2
}

func TestBuild_OutputDimensions(t *testing.T) {
	cases := []struct{ dim, scale int }{
		{16, 1},
		{16, 3},
		{24, 2},
		{32, 2},
		{48, 1},
		{64, 1},
		{64, 2},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%dx%d@%d", tc.dim, tc.dim, tc.scale), func(t *testing.T) {
			c := validConfig(t)
			c.FaviconDim = tc.dim
			c.HighRezScaleFactor = tc.scale
			cfg, err := New(c)
			require.NoError(t, err)

			require.NoError(t, Build(cfg))

			data, err := os.ReadFile(cfg.WriteTo)
			require.NoError(t, err)
			entries, images := decodeICO(t, data)

			require.Len(t, images, 1)
			assert.Equal(t, image.Rect(0, 0, tc.dim, tc.dim), images[0].Bounds())
			assert.Equal(t, uint8(tc.dim), entries[0].Width)
			assert.Equal(t, uint8(tc.dim), entries[0].Height)
			assert.Equal(t, uint16(32), entries[0].BitCount)
		})
	}
}

func TestRender_TextOnBackground(t *testing.T) {
	c := validConfig(t)
	c.Text = "H"
	c.FaviconDim = 32
	c.HighRezScaleFactor = 2
	cfg, err := New(c)
	require.NoError(t, err)

	icon, err := Render(cfg)
	require.NoError(t, err)

	assert.True(t, sameColor(cfg.BackgroundColor, icon.At(0, 0)), "corner keeps the background")
	assert.True(t, sameColor(cfg.BackgroundColor, icon.At(31, 31)), "corner keeps the background")

	differs := 0
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			if !sameColor(cfg.BackgroundColor, icon.At(x, y)) {
				differs++
			}
		}
	}
	assert.Greater(t, differs, 0, "text must be drawn")
}

func TestRenderCanvas_HorizontallyCentered(t *testing.T) {
	c := validConfig(t)
	c.Text = "H"
	c.FaviconDim = 16
	c.HighRezScaleFactor = 4
	cfg, err := New(c)
	require.NoError(t, err)

	canvas, err := RenderCanvas(cfg)
	require.NoError(t, err)

	side := cfg.CanvasSize()
	require.Equal(t, image.Rect(0, 0, side, side), canvas.Bounds())

	minX, maxX, minY, maxY := side, -1, side, -1
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			if canvas.NRGBAAt(x, y) != cfg.BackgroundColor {
				minX, maxX = min(minX, x), max(maxX, x)
				minY, maxY = min(minY, y), max(maxY, y)
			}
		}
	}
	require.GreaterOrEqual(t, maxX, 0, "glyph pixels present")

	tolerance := float64(side) * 0.05
	assert.InDelta(t, float64(side)/2, float64(minX+maxX)/2, tolerance)
	assert.InDelta(t, float64(side)/2, float64(minY+maxY)/2, float64(side)*0.15)
}

func TestRenderCanvas_VerticallyCentered(t *testing.T) {
	for _, text := range []string{"H", "g", "Ry"} {
		t.Run(text, func(t *testing.T) {
			c := validConfig(t)
			c.Text = text
			c.FaviconDim = 32
			c.HighRezScaleFactor = 4
			cfg, err := New(c)
			require.NoError(t, err)

			canvas, err := RenderCanvas(cfg)
			require.NoError(t, err)

			side := cfg.CanvasSize()
			minY, maxY := side, -1
			for y := 0; y < side; y++ {
				for x := 0; x < side; x++ {
					if canvas.NRGBAAt(x, y) != cfg.BackgroundColor {
						minY, maxY = min(minY, y), max(maxY, y)
					}
				}
			}
			require.GreaterOrEqual(t, maxY, 0, "glyph pixels present")

			face, err := loadFace(cfg.FontPath, float64(side)*cfg.TextToImageRatio)
			require.NoError(t, err)
			defer face.Close()

			center := image.Pt(side/2, side/2)
			dot := textOrigin(face, text, center)
			m := face.Metrics()

			// Ascender and descender lines straddle the center.
			mid := (dot.Y - m.Ascent + dot.Y + m.Descent) / 2
			assert.InDelta(t, float64(center.Y), float64(mid)/64, 1)

			// The drawn ink sits where the glyph bounds say it should
			// relative to that baseline.
			bounds, _ := font.BoundString(face, text)
			wantTop := (dot.Y + bounds.Min.Y).Floor()
			wantBottom := (dot.Y + bounds.Max.Y).Ceil() - 1
			assert.InDelta(t, wantTop, minY, 2)
			assert.InDelta(t, wantBottom, maxY, 2)
		})
	}
}

func TestRender_InvalidFontData(t *testing.T) {
	c := validConfig(t)
	require.NoError(t, os.WriteFile(c.FontPath, []byte("not a font"), 0644))
	c.FaviconDim = 16
	c.HighRezScaleFactor = 1
	cfg, err := New(c)
	require.NoError(t, err)

	_, err = Render(cfg)
	assert.ErrorContains(t, err, "failed to parse font")
}

func TestEncodeICO(t *testing.T) {
	small := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	large := image.NewNRGBA(image.Rect(0, 0, 256, 256))

	var buf bytes.Buffer
	require.NoError(t, EncodeICO(&buf, small, large))

	entries, images := decodeICO(t, buf.Bytes())
	require.Len(t, entries, 2)
	assert.Equal(t, uint8(16), entries[0].Width)
	assert.Equal(t, uint8(0), entries[1].Width, "256 is stored as 0")
	assert.Equal(t, uint32(6+2*16), entries[0].Offset)
	assert.Equal(t, entries[0].Offset+entries[0].Size, entries[1].Offset)
	assert.Equal(t, 256, images[1].Bounds().Dx())
}

func TestEncodeICO_Errors(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, EncodeICO(&buf))
	assert.Error(t, EncodeICO(&buf, image.NewNRGBA(image.Rect(0, 0, 257, 16))))
}

func TestBuild_CreatesDirectories(t *testing.T) {
	c := validConfig(t)
	c.FaviconDim = 16
	c.HighRezScaleFactor = 1
	c.WriteTo = filepath.Join(t.TempDir(), "a", "b", "c", "favicon.ico")
	cfg, err := New(c)
	require.NoError(t, err)

	require.NoError(t, Build(cfg))

	info, err := os.Stat(cfg.WriteTo)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(6))
}
