// Package imaging normalizes downloaded images into bounded-size JPEGs.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"math"

	// Decoders registered with image.Decode.
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/use-agent/webkeep/models"
)

// maxPixels guards against decompression bombs.
const maxPixels = 80_000_000

// DefaultQuality is the JPEG quality used when none is configured.
const DefaultQuality = 88

// Normalizer decodes any supported raster image, flattens it onto white,
// shrinks it to fit a square box and re-encodes it as JPEG.
type Normalizer struct {
	quality int
}

// NewNormalizer returns a Normalizer encoding at the given JPEG quality
// (1-100). Out-of-range values fall back to DefaultQuality.
func NewNormalizer(quality int) *Normalizer {
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}
	return &Normalizer{quality: quality}
}

// ResizeSquareMax returns data as a JPEG whose larger side is at most
// maxPx, with the aspect ratio kept. Images already within the box keep
// their size. The returned extension is always "jpg". The encoder uses
// the standard Huffman tables with no entropy optimization, so output is
// somewhat larger than an optimizing encoder would produce at the same
// quality.
func (n *Normalizer) ResizeSquareMax(data []byte, maxPx int) ([]byte, string, error) {
	if maxPx < 1 {
		return nil, "", models.NewArchiveError(models.ErrCodeInvalidInput,
			fmt.Sprintf("max size %d must be at least 1", maxPx), nil)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", models.NewArchiveError(models.ErrCodeDecodeFailed, "unrecognized image data", err)
	}
	if cfg.Width*cfg.Height > maxPixels {
		return nil, "", models.NewArchiveError(models.ErrCodeDecodeFailed,
			fmt.Sprintf("%s image too large: %dx%d", format, cfg.Width, cfg.Height), nil)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", models.NewArchiveError(models.ErrCodeDecodeFailed, "decode "+format+" image", err)
	}

	flat := flatten(src)
	w, h := FitSquare(flat.Bounds().Dx(), flat.Bounds().Dy(), maxPx)

	var out image.Image = flat
	if w != flat.Bounds().Dx() || h != flat.Bounds().Dy() {
		scaled := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), flat, flat.Bounds(), draw.Src, nil)
		out = scaled
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: n.quality}); err != nil {
		return nil, "", models.NewArchiveError(models.ErrCodeDecodeFailed, "encode jpeg", err)
	}
	return buf.Bytes(), "jpg", nil
}

// flatten composites src over an opaque white canvas anchored at (0,0).
func flatten(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst
}

// FitSquare scales (w, h) down so the larger side equals maxPx. Sizes
// already within maxPx are returned unchanged; no side drops below 1.
func FitSquare(w, h, maxPx int) (int, int) {
	if w <= maxPx && h <= maxPx {
		return w, h
	}
	if w >= h {
		return maxPx, scaleSide(h, maxPx, w)
	}
	return scaleSide(w, maxPx, h), maxPx
}

func scaleSide(side, maxPx, larger int) int {
	s := int(math.Round(float64(side) * float64(maxPx) / float64(larger)))
	if s < 1 {
		return 1
	}
	return s
}
