// Package imagechan moves one bitmap per TCP connection from the pad to the
// host as a length-prefixed frame. Later moves and resizes of the placed
// image travel as ordinary datagrams.
package imagechan

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"os"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"
)

// DefaultMaxDimension caps the longest edge of a sent image.
const DefaultMaxDimension = 1600

// DefaultJPEGQuality is used for opaque images.
const DefaultJPEGQuality = 85

// DefaultMaxEdge caps either side of a received image, in pixels.
const DefaultMaxEdge = 2 * DefaultMaxDimension

// ErrUnsupportedType is returned for bodies that are not PNG, JPEG or GIF.
var ErrUnsupportedType = errors.New("imagechan: unsupported image type")

// ErrTooLarge is returned for images wider or taller than the decode bound.
var ErrTooLarge = errors.New("imagechan: image too large")

var allowedTypes = []string{"image/png", "image/jpeg", "image/gif"}

// Downscale returns img unchanged when its longest edge fits in maxDim,
// otherwise a resampled copy with the aspect ratio kept.
func Downscale(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return img
	}
	if w >= h {
		h = max(1, h*maxDim/w)
		w = maxDim
	} else {
		w = max(1, w*maxDim/h)
		h = maxDim
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// Compress encodes img as JPEG when it is fully opaque and as PNG when any
// pixel carries alpha.
func Compress(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if isOpaque(img) {
		if quality <= 0 || quality > 100 {
			quality = DefaultJPEGQuality
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("imagechan: encode jpeg: %w", err)
		}
		return buf.Bytes(), nil
	}
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("imagechan: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func isOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return false
			}
		}
	}
	return true
}

// Decode sniffs body and decodes it if the type is allowed. With maxEdge
// above zero the dimensions are read from the image header first and any
// side longer than maxEdge is rejected before pixels are allocated.
func Decode(body []byte, maxEdge int) (image.Image, error) {
	mt := mimetype.Detect(body)
	if !mimetype.EqualsAny(mt.String(), allowedTypes...) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mt.String())
	}
	if maxEdge > 0 {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("imagechan: decode %s: %w", mt.String(), err)
		}
		if cfg.Width > maxEdge || cfg.Height > maxEdge {
			return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
		}
	}
	img, _, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("imagechan: decode %s: %w", mt.String(), err)
	}
	return img, nil
}

// LoadFile reads and decodes an image from disk. Local files are not bounded;
// the sender downscales them.
func LoadFile(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data, 0)
}
