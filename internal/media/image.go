// Package media prepares product images before they are uploaded and builds
// previews for asset bundles.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"foodviz/internal/domain"
)

// ErrNotImage is returned when the payload cannot be decoded as an image.
var ErrNotImage = errors.New("media: not a supported image")

// Prepared describes an image after normalisation.
type Prepared struct {
	Upload  *domain.Upload
	Width   int
	Height  int
	Resized bool
}

// PrepareImage decodes an operator-provided image, applies EXIF orientation and
// downscales it so neither side exceeds maxDim. Images already within bounds
// and in a web format are passed through untouched.
func PrepareImage(upload *domain.Upload, maxDim int) (*Prepared, error) {
	if upload.Empty() {
		return nil, &domain.FieldError{Field: "image", Message: "image is required"}
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(upload.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	webFormat := format == "jpeg" || format == "png"
	if webFormat && (maxDim <= 0 || (cfg.Width <= maxDim && cfg.Height <= maxDim)) {
		out := *upload
		out.Kind = domain.AssetKindImage
		out.ContentType = "image/" + format
		return &Prepared{Upload: &out, Width: cfg.Width, Height: cfg.Height}, nil
	}

	src, err := imaging.Decode(bytes.NewReader(upload.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	dst := src
	resized := false
	if maxDim > 0 {
		b := src.Bounds()
		if b.Dx() > maxDim || b.Dy() > maxDim {
			dst = imaging.Fit(src, maxDim, maxDim, imaging.Lanczos)
			resized = true
		}
	}

	outFormat := imaging.PNG
	contentType := "image/png"
	ext := ".png"
	if format == "jpeg" {
		outFormat = imaging.JPEG
		contentType = "image/jpeg"
		ext = ".jpg"
	}
	buf := &bytes.Buffer{}
	if err := imaging.Encode(buf, dst, outFormat, imaging.JPEGQuality(88)); err != nil {
		return nil, fmt.Errorf("media: encode: %w", err)
	}
	b := dst.Bounds()
	return &Prepared{
		Upload: &domain.Upload{
			Kind:        domain.AssetKindImage,
			Filename:    replaceExt(upload.Filename, ext),
			ContentType: contentType,
			Data:        buf.Bytes(),
		},
		Width:   b.Dx(),
		Height:  b.Dy(),
		Resized: resized,
	}, nil
}

// Thumbnail renders a PNG preview that fits inside a box of w x h without upscaling.
func Thumbnail(data []byte, w, h int) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	thumb := imaging.Fit(src, w, h, imaging.Lanczos)
	buf := &bytes.Buffer{}
	if err := imaging.Encode(buf, thumb, imaging.PNG); err != nil {
		return nil, fmt.Errorf("media: encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

func replaceExt(name, ext string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "image" + ext
	}
	return strings.TrimSuffix(name, filepath.Ext(name)) + ext
}
