// Package render defines the rasterization boundary. The engine treats a
// Renderer as opaque: it asks for a page at a zoom and rotation and gets
// pixels back. Renderers are not safe for concurrent use.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/wudi/pdfengine/coords"
)

// Target selects the purpose of a render; it affects content boxes only.
type Target int

const (
	TargetView Target = iota
	TargetPrint
	TargetExport
)

func (t Target) String() string {
	switch t {
	case TargetView:
		return "view"
	case TargetPrint:
		return "print"
	case TargetExport:
		return "export"
	}
	return "unknown"
}

// Request describes one page render.
type Request struct {
	PageNo int
	// Bounds is the page box in page space.
	Bounds   coords.Rect
	Zoom     float64
	Rotation int
	// Region limits the output to a part of the page, in page space. Empty
	// means the whole page.
	Region coords.Rect
	Target Target
}

// DeviceSize is the pixel size of the full rendered page.
func (r Request) DeviceSize() image.Point {
	m := coords.ViewMatrix(r.Bounds, r.Zoom, r.Rotation)
	box := m.TransformRect(r.Bounds)
	return image.Pt(int(math.Ceil(box.Dx-1e-9)), int(math.Ceil(box.Dy-1e-9)))
}

// DeviceRegion maps Region to pixels; the whole page when Region is empty.
func (r Request) DeviceRegion() image.Rectangle {
	full := image.Rectangle{Max: r.DeviceSize()}
	if r.Region.IsEmpty() {
		return full
	}
	m := coords.ViewMatrix(r.Bounds, r.Zoom, r.Rotation)
	d := m.TransformRect(r.Region)
	return image.Rect(
		int(math.Floor(d.X)), int(math.Floor(d.Y)),
		int(math.Ceil(d.X+d.Dx)), int(math.Ceil(d.Y+d.Dy)),
	).Intersect(full)
}

var ErrEmptyRequest = errors.New("render: empty page or zoom")

func (r Request) Validate() error {
	if r.Bounds.IsEmpty() || r.Zoom <= 0 {
		return fmt.Errorf("page %d: %w", r.PageNo, ErrEmptyRequest)
	}
	return nil
}

type Renderer interface {
	Name() string
	RenderPage(ctx context.Context, req Request) (*image.RGBA, error)
	Close() error
}

// Factory creates a renderer over a document's bytes.
type Factory func(data []byte) (Renderer, error)

// Blank renders white pages of the right size. It is the fallback when no
// rasterizer is linked in.
type Blank struct {
	Background color.Color
}

func NewBlank(data []byte) (Renderer, error) {
	return &Blank{Background: color.White}, nil
}

func (b *Blank) Name() string { return "blank" }

func (b *Blank) RenderPage(ctx context.Context, req Request) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	region := req.DeviceRegion()
	img := image.NewRGBA(image.Rect(0, 0, region.Dx(), region.Dy()))
	bg := b.Background
	if bg == nil {
		bg = color.White
	}
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	return img, nil
}

func (b *Blank) Close() error { return nil }
