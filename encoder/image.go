package encoder

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"

	"fileconv/config"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

const (
	// webpQuality matches the lossy default of common encoders
	webpQuality = 80
	// jpegQuality is used for plain format conversion; Compress picks its own
	jpegQuality = 95
)

// decodeImage reads PNG, JPEG or WebP. EXIF orientation is applied so the
// pixels look right once the metadata is gone. The header is checked against
// maxPixels before any pixel buffer is allocated.
func decodeImage(data []byte, maxPixels int64) (image.Image, error) {
	webpInput := isWebP(data)

	var cfg image.Config
	var err error
	if webpInput {
		cfg, err = webp.DecodeConfig(bytes.NewReader(data))
	} else {
		cfg, _, err = image.DecodeConfig(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("decode image header: %w", err)
	}
	if px := int64(cfg.Width) * int64(cfg.Height); px > maxPixels {
		return nil, fmt.Errorf("image is %dx%d, over the limit of %d pixels", cfg.Width, cfg.Height, maxPixels)
	}

	if webpInput {
		img, err := webp.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode webp: %w", err)
		}
		return img, nil
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func isWebP(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP"
}

// encodeImage writes img as format. JPEG has no alpha channel, so
// transparent pixels are composited onto white first.
func encodeImage(img image.Image, format string, quality int) ([]byte, error) {
	var buf bytes.Buffer
	var err error

	switch format {
	case config.TypePNG:
		err = imaging.Encode(&buf, img, imaging.PNG)
	case config.TypeJPEG:
		err = imaging.Encode(&buf, flatten(img), imaging.JPEG, imaging.JPEGQuality(quality))
	case config.TypeWebP:
		err = webp.Encode(&buf, img, &webp.Options{Quality: webpQuality})
	default:
		return nil, fmt.Errorf("unsupported image format %s", format)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

func flatten(img image.Image) image.Image {
	if opaque, ok := img.(interface{ Opaque() bool }); ok && opaque.Opaque() {
		return img
	}
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

func (c *Converter) maxPixels() int64 {
	if c.cfg.MaxPixels > 0 {
		return c.cfg.MaxPixels
	}
	return config.DefaultMaxImagePixels
}

func (c *Converter) ConvertImage(ctx context.Context, data []byte, target string) ([]byte, error) {
	img, err := decodeImage(data, c.maxPixels())
	if err != nil {
		return nil, err
	}
	return encodeImage(img, target, jpegQuality)
}

// CompressImage always produces JPEG at the given quality
func (c *Converter) CompressImage(ctx context.Context, data []byte, quality int) ([]byte, error) {
	img, err := decodeImage(data, c.maxPixels())
	if err != nil {
		return nil, err
	}
	return encodeImage(img, config.TypeJPEG, quality)
}

// ResizeImage scales to exactly width x height with a Lanczos filter and
// re-encodes in the source format.
func (c *Converter) ResizeImage(ctx context.Context, data []byte, format string, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", width, height)
	}
	img, err := decodeImage(data, c.maxPixels())
	if err != nil {
		return nil, err
	}
	// the horizontal pass allocates width x source height before scaling vertically
	srcH := int64(img.Bounds().Dy())
	if int64(width)*int64(height) > c.maxPixels() || int64(width)*srcH > c.maxPixels() {
		return nil, fmt.Errorf("resize to %dx%d exceeds the limit of %d pixels", width, height, c.maxPixels())
	}
	return encodeImage(imaging.Resize(img, width, height, imaging.Lanczos), format, jpegQuality)
}

// StripMetadata re-encodes the decoded pixels. None of the encoders write
// EXIF, XMP or ICC chunks, so the result carries pixels only.
func (c *Converter) StripMetadata(ctx context.Context, data []byte, format string) ([]byte, error) {
	img, err := decodeImage(data, c.maxPixels())
	if err != nil {
		return nil, err
	}
	return encodeImage(img, format, jpegQuality)
}
