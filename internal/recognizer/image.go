package recognizer

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// jpegQuality balances upload size against descriptor stability. The
// extraction backend is insensitive to compression above this level.
const jpegQuality = 85

// ResizeImage bounds an image to maxSize pixels on its longest side and
// re-encodes it as JPEG. Detection quality does not benefit from more
// pixels than the backend's input resolution, and smaller uploads keep
// extraction latency down. Images already within bounds are only
// re-encoded so the backend always sees one format.
func ResizeImage(data []byte, maxSize int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	w, h := fitWithin(bounds.Dx(), bounds.Dy(), maxSize)
	if w == bounds.Dx() && h == bounds.Dy() {
		return encodeJPEG(src)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return encodeJPEG(dst)
}

// fitWithin scales (w, h) down proportionally so neither side exceeds max.
// Dimensions already within the limit are returned unchanged.
func fitWithin(w, h, max int) (int, int) {
	if w <= max && h <= max {
		return w, h
	}
	if w > h {
		return max, h * max / w
	}
	return w * max / h, max
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
