//go:build fitz && cgo

package fitz

import (
	"context"
	"fmt"
	"image"
	"sync"

	gofitz "github.com/gen2brain/go-fitz"

	"github.com/wudi/pdfengine/render"
)

// Available reports whether MuPDF was linked in.
const Available = true

type Renderer struct {
	mu  sync.Mutex
	doc *gofitz.Document
}

// New opens data with MuPDF. It matches render.Factory.
func New(data []byte) (render.Renderer, error) {
	doc, err := gofitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("fitz: open: %w", err)
	}
	return &Renderer{doc: doc}, nil
}

func (r *Renderer) Name() string { return "mupdf" }

func (r *Renderer) RenderPage(ctx context.Context, req render.Request) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.doc == nil {
		return nil, fmt.Errorf("fitz: renderer closed")
	}
	img, err := r.doc.ImageDPI(req.PageNo-1, 72*req.Zoom)
	if err != nil {
		return nil, fmt.Errorf("fitz: page %d: %w", req.PageNo, err)
	}
	img = render.Rotate(img, req.Rotation)
	return render.Crop(img, req.DeviceRegion()), nil
}

func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.doc == nil {
		return nil
	}
	err := r.doc.Close()
	r.doc = nil
	return err
}
