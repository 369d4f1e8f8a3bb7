package savestate

import (
	"bytes"
	"image"
	"image/png"

	"golang.org/x/image/draw"
)

// thumbnail scales the image to fit the box and encodes it as PNG.
// Small images are not upscaled.
func thumbnail(src image.Image, w, h int) ([]byte, error) {
	b := src.Bounds()
	sw, sh := b.Dx(), b.Dy()
	if sw == 0 || sh == 0 {
		return nil, errEmptyImage
	}
	dw, dh := sw, sh
	if w > 0 && h > 0 && (sw > w || sh > h) {
		if sw*h > sh*w {
			dw, dh = w, max(1, sh*w/sw)
		} else {
			dw, dh = max(1, sw*h/sh), h
		}
	}
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
