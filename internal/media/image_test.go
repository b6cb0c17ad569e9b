package media

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"foodviz/internal/domain"
)

func encodeTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	buf := &bytes.Buffer{}
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestPrepareImagePassesThroughSmallImages(t *testing.T) {
	data := encodeTestPNG(t, 40, 20)
	got, err := PrepareImage(&domain.Upload{Filename: "dish.png", Data: data}, 100)
	if err != nil {
		t.Fatalf("PrepareImage: %v", err)
	}
	if got.Resized {
		t.Fatalf("small image should not be resized")
	}
	if !bytes.Equal(got.Upload.Data, data) {
		t.Fatalf("expected original bytes to be kept")
	}
	if got.Upload.ContentType != "image/png" {
		t.Fatalf("ContentType = %q", got.Upload.ContentType)
	}
}

func TestPrepareImageDownscales(t *testing.T) {
	data := encodeTestPNG(t, 400, 200)
	got, err := PrepareImage(&domain.Upload{Filename: "dish.PNG", Data: data}, 100)
	if err != nil {
		t.Fatalf("PrepareImage: %v", err)
	}
	if !got.Resized {
		t.Fatalf("expected resize")
	}
	if got.Width != 100 || got.Height != 50 {
		t.Fatalf("size = %dx%d, want 100x50", got.Width, got.Height)
	}
	if got.Upload.Filename != "dish.png" {
		t.Fatalf("Filename = %q", got.Upload.Filename)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(got.Upload.Data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if format != "png" || cfg.Width != 100 || cfg.Height != 50 {
		t.Fatalf("output = %s %dx%d", format, cfg.Width, cfg.Height)
	}
}

func TestPrepareImageRejectsGarbage(t *testing.T) {
	_, err := PrepareImage(&domain.Upload{Filename: "x.png", Data: []byte("not an image")}, 100)
	if !errors.Is(err, ErrNotImage) {
		t.Fatalf("err = %v, want ErrNotImage", err)
	}
}

func TestPrepareImageRequiresData(t *testing.T) {
	_, err := PrepareImage(nil, 100)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestThumbnailDoesNotUpscale(t *testing.T) {
	data := encodeTestPNG(t, 30, 60)
	thumb, err := Thumbnail(data, 256, 256)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(thumb))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	if cfg.Width != 30 || cfg.Height != 60 {
		t.Fatalf("thumbnail = %dx%d, want 30x60", cfg.Width, cfg.Height)
	}
}
