package render

import (
	"image"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/wudi/pdfengine/coords"
)

// Rotate turns img clockwise by a multiple of 90 degrees.
func Rotate(img *image.RGBA, rotation int) *image.RGBA {
	rotation = coords.NormalizeRotation(rotation)
	if rotation == 0 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	dw, dh := w, h
	if rotation != 180 {
		dw, dh = h, w
	}
	var m f64.Aff3
	switch rotation {
	case 90:
		m = f64.Aff3{0, -1, float64(h), 1, 0, 0}
	case 180:
		m = f64.Aff3{-1, 0, float64(w), 0, -1, float64(h)}
	case 270:
		m = f64.Aff3{0, 1, 0, -1, 0, float64(w)}
	}
	m[2] -= m[0]*float64(b.Min.X) + m[1]*float64(b.Min.Y)
	m[5] -= m[3]*float64(b.Min.X) + m[4]*float64(b.Min.Y)
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.NearestNeighbor.Transform(dst, m, img, b, draw.Src, nil)
	return dst
}

// Crop copies r out of img, rebased to the origin.
func Crop(img *image.RGBA, r image.Rectangle) *image.RGBA {
	r = r.Intersect(img.Bounds())
	if r == img.Bounds() {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Copy(dst, image.Point{}, img, r, draw.Src, nil)
	return dst
}

// Thumbnail scales img to fit in a maxDim square, keeping the aspect ratio.
func Thumbnail(img image.Image, maxDim int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxDim <= 0 || w == 0 || h == 0 {
		return image.NewRGBA(image.Rectangle{})
	}
	tw, th := maxDim, maxDim
	if w >= h {
		th = max(1, h*maxDim/w)
	} else {
		tw = max(1, w*maxDim/h)
	}
	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
