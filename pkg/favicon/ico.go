package favicon

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
)

const (
	icoHeaderSize = 6
	icoEntrySize  = 16
)

// EncodeICO writes the images as a PNG-compressed ICO file, one directory
// entry per image.
func EncodeICO(w io.Writer, images ...image.Image) error {
	if len(images) == 0 {
		return errors.New("ico: no images")
	}

	pngs := make([][]byte, len(images))
	for i, img := range images {
		b := img.Bounds()
		if b.Dx() > 256 || b.Dy() > 256 {
			return fmt.Errorf("ico: image %d is %dx%d, max 256x256", i, b.Dx(), b.Dy())
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return fmt.Errorf("ico: png encode: %w", err)
		}
		pngs[i] = buf.Bytes()
	}

	var buf bytes.Buffer
	// reserved, type (1=ICO), count
	binary.Write(&buf, binary.LittleEndian, [3]uint16{0, 1, uint16(len(images))})

	offset := uint32(icoHeaderSize + icoEntrySize*len(images))
	for i, img := range images {
		b := img.Bounds()
		buf.Write([]byte{sizeByte(b.Dx()), sizeByte(b.Dy()), 0, 0}) // width, height, palette, reserved
		binary.Write(&buf, binary.LittleEndian, uint16(1))            // color planes
		binary.Write(&buf, binary.LittleEndian, uint16(32))           // bits per pixel
		binary.Write(&buf, binary.LittleEndian, uint32(len(pngs[i]))) // data size
		binary.Write(&buf, binary.LittleEndian, offset)               // data offset
		offset += uint32(len(pngs[i]))
	}

	for _, p := range pngs {
		buf.Write(p)
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// sizeByte stores 256 as 0, per the ICO directory format.
func sizeByte(n int) uint8 {
	if n >= 256 {
		return 0
	}
	return uint8(n)
}

// Build renders the favicon and writes it to cfg.WriteTo, creating the
// destination directory if needed.
func Build(cfg *Config) error {
	icon, err := Render(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.WriteTo), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(cfg.WriteTo)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", cfg.WriteTo, err)
	}
	if err := EncodeICO(f, icon); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
