package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"strings"
	"time"

	"github.com/wudi/pdfengine/coords"
	"github.com/wudi/pdfengine/elements"
	"github.com/wudi/pdfengine/native"
	"github.com/wudi/pdfengine/observability"
	"github.com/wudi/pdfengine/ocr"
	"github.com/wudi/pdfengine/render"
)

// RenderArgs selects what RenderPage draws. An empty PageRect renders the
// whole page.
type RenderArgs struct {
	PageNo   int
	Zoom     float64
	Rotation int
	PageRect coords.Rect
	Target   render.Target
}

// rendererLocked returns the renderer, creating it on first use. The
// caller holds ctxMu.
func (e *Engine) rendererLocked() (render.Renderer, error) {
	if e.renderer != nil {
		return e.renderer, nil
	}
	r, err := e.opts.renderer(e.data)
	if err != nil {
		return nil, fmt.Errorf("engine: renderer: %w", err)
	}
	e.renderer = r
	return r, nil
}

func (e *Engine) RenderPage(ctx context.Context, args RenderArgs) (*image.RGBA, error) {
	box, err := e.PageMediabox(args.PageNo)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx, span := e.opts.tracer.StartSpan(ctx, observability.SpanRender)
	defer span.Finish()
	span.SetTag("page", args.PageNo)
	span.SetTag("zoom", args.Zoom)

	if err := e.lockContext(); err != nil {
		return nil, err
	}
	defer e.ctxMu.Unlock()
	r, err := e.rendererLocked()
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	start := time.Now()
	img, err := r.RenderPage(ctx, render.Request{
		PageNo:   args.PageNo,
		Bounds:   box,
		Zoom:     args.Zoom,
		Rotation: coords.NormalizeRotation(args.Rotation),
		Region:   args.PageRect,
		Target:   args.Target,
	})
	span.SetTag(observability.MetricRenderTime, time.Since(start))
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("engine: render page %d: %w", args.PageNo, err)
	}
	return img, nil
}

// RenderThumbnail renders a page scaled to fit a maxDim square.
func (e *Engine) RenderThumbnail(ctx context.Context, pageNo, maxDim int) (*image.RGBA, error) {
	if maxDim <= 0 {
		return nil, fmt.Errorf("engine: thumbnail size %d", maxDim)
	}
	box, err := e.PageMediabox(pageNo)
	if err != nil {
		return nil, err
	}
	zoom := float64(maxDim) / math.Max(box.Dx, box.Dy)
	img, err := e.RenderPage(ctx, RenderArgs{PageNo: pageNo, Zoom: zoom})
	if err != nil {
		return nil, err
	}
	return render.Thumbnail(img, maxDim), nil
}

// ImageForElement renders the region of an image element at roughly the
// image's own resolution.
func (e *Engine) ImageForElement(ctx context.Context, el *elements.Element) (*image.RGBA, error) {
	idx, ok := el.AsImage()
	if !ok {
		return nil, fmt.Errorf("engine: element is a %s, not an image", el.Kind)
	}
	info, err := e.GetFull(ctx, el.PageNo)
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(info.Images) {
		return nil, fmt.Errorf("engine: page %d has no image %d", el.PageNo, idx)
	}
	img := info.Images[idx]
	zoom := 1.0
	if img.Rect.Dx > 0 && img.Width > 0 {
		zoom = math.Max(zoom, float64(img.Width)/img.Rect.Dx)
	}
	return e.RenderPage(ctx, RenderArgs{PageNo: el.PageNo, Zoom: zoom, PageRect: img.Rect, Target: render.TargetExport})
}

// ExtractPageText returns the page text. Pages without a text layer are
// recognized with OCR when it is configured.
func (e *Engine) ExtractPageText(ctx context.Context, pageNo int) (string, error) {
	var text string
	err := e.withPage(pageNo, func(p native.Page) error {
		var err error
		text, err = p.Text()
		return err
	})
	if err != nil {
		if errors.Is(err, ErrClosed) || errors.Is(err, ErrOutOfRange) {
			return "", err
		}
		return "", &PageError{PageNo: pageNo, Stage: "text", Err: err}
	}
	if strings.TrimSpace(text) != "" || e.opts.ocr == nil {
		return text, nil
	}
	img, err := e.RenderPage(ctx, RenderArgs{PageNo: pageNo, Zoom: e.opts.ocrZoom, Target: render.TargetExport})
	if err != nil {
		return "", err
	}
	out, err := ocr.PageText(ctx, e.opts.ocr, pageNo, img,
		ocr.WithLanguages(e.opts.ocrLanguages...),
		ocr.WithDPI(int(math.Round(72*e.opts.ocrZoom))))
	if err != nil {
		return "", &PageError{PageNo: pageNo, Stage: "ocr", Err: err}
	}
	return out, nil
}
