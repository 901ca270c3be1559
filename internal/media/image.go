package media

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/civic-sense/inference-services/internal/apperr"
)

// DefaultMaxDimension bounds the longest edge of images sent to a model.
const DefaultMaxDimension = 1024

// DecodeImage decodes any registered format (JPEG, PNG, GIF, WebP, BMP,
// TIFF), applies EXIF orientation and returns RGBA pixels.
func DecodeImage(r io.Reader) (*image.RGBA, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, apperr.Wrap(apperr.ProcessingFailed, "media.DecodeImage", "Could not decode image", err)
	}
	return ToRGBA(img), nil
}

// ToRGBA copies img into an RGBA image anchored at the origin. RGBA input
// already anchored at the origin is returned as is.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Fit downsizes img so neither edge exceeds maxDimension, preserving the
// aspect ratio. Smaller images are returned unchanged.
func Fit(img image.Image, maxDimension int) image.Image {
	b := img.Bounds()
	w, h := fitDimensions(b.Dx(), b.Dy(), maxDimension)
	if w == b.Dx() && h == b.Dy() {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	log.Debug().
		Int("orig_width", b.Dx()).
		Int("orig_height", b.Dy()).
		Int("new_width", w).
		Int("new_height", h).
		Msg("Image downsized for model input")
	return dst
}

func fitDimensions(width, height, maxDimension int) (int, int) {
	if maxDimension <= 0 || (width <= maxDimension && height <= maxDimension) {
		return width, height
	}
	if width >= height {
		return maxDimension, max(1, height*maxDimension/width)
	}
	return max(1, width*maxDimension/height), maxDimension
}

// EncodeJPEG fits img to maxDimension and encodes it for upload to a model.
func EncodeJPEG(img image.Image, maxDimension int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Fit(img, maxDimension), &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}
