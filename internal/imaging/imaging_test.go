package imaging

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding test PNG: %v", err)
	}
	return buf.Bytes()
}

func TestPrepareConvertsToJPEG(t *testing.T) {
	out, err := Prepare(encodePNG(t, 100, 50))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not decodable JPEG: %v", err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 50 {
		t.Errorf("small image should keep its size, got %v", img.Bounds())
	}
}

func TestPrepareDownscales(t *testing.T) {
	out, err := Prepare(encodePNG(t, MaxDimension*2, MaxDimension))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if img.Bounds().Dx() != MaxDimension {
		t.Errorf("expected width %d, got %d", MaxDimension, img.Bounds().Dx())
	}
	if img.Bounds().Dy() != MaxDimension/2 {
		t.Errorf("expected height %d, got %d", MaxDimension/2, img.Bounds().Dy())
	}
}

func TestPrepareRejectsNonImages(t *testing.T) {
	if _, err := Prepare([]byte("definitely not an image")); err == nil {
		t.Error("expected error for non-image input")
	}
}
