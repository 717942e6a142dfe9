package recognizer

import (
	"bytes"
	"image"
	"image/png"
	"testing"
)

func TestFitWithin(t *testing.T) {
	tests := []struct {
		name         string
		w, h, max    int
		wantW, wantH int
	}{
		{"within bounds", 800, 600, 1920, 800, 600},
		{"landscape over", 4000, 2000, 1920, 1920, 960},
		{"portrait over", 1000, 4000, 1920, 480, 1920},
		{"square over", 3000, 3000, 1920, 1920, 1920},
		{"exactly at bound", 1920, 1080, 1920, 1920, 1080},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := fitWithin(tt.w, tt.h, tt.max)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("fitWithin(%d, %d, %d) = (%d, %d), want (%d, %d)",
					tt.w, tt.h, tt.max, w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encoding test image: %v", err)
	}
	return buf.Bytes()
}

func TestResizeImage_ScalesDown(t *testing.T) {
	out, err := ResizeImage(testPNG(t, 400, 200), 100)
	if err != nil {
		t.Fatalf("ResizeImage() error = %v", err)
	}

	img, format, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("output format = %q, want jpeg", format)
	}
	if got := img.Bounds(); got.Dx() != 100 || got.Dy() != 50 {
		t.Errorf("output bounds = %dx%d, want 100x50", got.Dx(), got.Dy())
	}
}

func TestResizeImage_SmallImageReencodedOnly(t *testing.T) {
	out, err := ResizeImage(testPNG(t, 80, 60), 100)
	if err != nil {
		t.Fatalf("ResizeImage() error = %v", err)
	}

	img, format, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("output format = %q, want jpeg", format)
	}
	if got := img.Bounds(); got.Dx() != 80 || got.Dy() != 60 {
		t.Errorf("output bounds = %dx%d, want 80x60", got.Dx(), got.Dy())
	}
}

func TestResizeImage_InvalidData(t *testing.T) {
	if _, err := ResizeImage([]byte("not an image"), 100); err == nil {
		t.Fatal("expected error for undecodable input")
	}
}
