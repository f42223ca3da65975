// Package engine is the page oriented document engine. It owns one backend
// context and document per instance and caches per page extraction
// results.
//
// Two locks guard an Engine: ctxMu serializes every call into the backend
// context and the renderer, pagesMu guards the page table. ctxMu may be
// taken before pagesMu, never after it. Backend callbacks go through a
// lockAdapter that holds neither.
package engine

import (
	"context"
	"encoding/hex"
	"image"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/wudi/pdfengine/coords"
	"github.com/wudi/pdfengine/elements"
	"github.com/wudi/pdfengine/fonts"
	"github.com/wudi/pdfengine/labels"
	"github.com/wudi/pdfengine/native"
	"github.com/wudi/pdfengine/observability"
	"github.com/wudi/pdfengine/render"
	"github.com/wudi/pdfengine/scripting"
	"github.com/wudi/pdfengine/security"
	"github.com/wudi/pdfengine/toc"
)

// Document is the engine contract consumed by viewers and tools.
type Document interface {
	ID() string
	FileName() string
	PageCount() int
	Clone(ctx context.Context) (*Engine, error)
	Close() error

	PageMediabox(pageNo int) (coords.Rect, error)
	PageContentBox(ctx context.Context, pageNo int, target render.Target) (coords.Rect, error)
	RenderPage(ctx context.Context, args RenderArgs) (*image.RGBA, error)
	RenderThumbnail(ctx context.Context, pageNo, maxDim int) (*image.RGBA, error)
	Transform(r coords.Rect, pageNo int, zoom float64, rotation int, inverse bool) (coords.Rect, error)

	ExtractPageText(ctx context.Context, pageNo int) (string, error)
	Elements(ctx context.Context, pageNo int) ([]*elements.Element, error)
	ElementAt(ctx context.Context, pageNo int, pt coords.Point) (*elements.Element, error)
	ImageForElement(ctx context.Context, el *elements.Element) (*image.RGBA, error)

	TableOfContents(ctx context.Context) (*toc.Tree, error)
	NamedDest(ctx context.Context, name string) (*elements.Destination, error)
	PageLabel(pageNo int) (string, bool)
	PageByLabel(label string) int
	HasPageLabels() bool

	InvalidateAnnotations(pageNo int) error
	Property(ctx context.Context, p Property) (string, bool)
}

var _ Document = (*Engine)(nil)

type Engine struct {
	id       uuid.UUID
	fileName string
	data     []byte
	password *string
	opts     options
	log      observability.Logger
	closed   atomic.Bool

	// ctxMu guards the backend context, the document, the renderer and
	// the lazily built document level caches below.
	ctxMu    sync.Mutex
	locks    *lockAdapter
	nctx     native.Context
	doc      native.Document
	renderer render.Renderer
	scripts  *scripting.Translator
	toc      *toc.Tree
	tocBuilt bool
	fonts    fonts.List
	fontsOK  bool

	// pagesMu guards the page table.
	pagesMu sync.Mutex
	pages   []*pageRecord

	// Set once while loading.
	outline     *native.Outline
	attachments *native.Outline
	labels      *labels.Table
	perms       security.Permissions
	fingerprint [32]byte
}

// lockContext takes ctxMu unless the engine is closed.
func (e *Engine) lockContext() error {
	e.ctxMu.Lock()
	if e.closed.Load() {
		e.ctxMu.Unlock()
		return ErrClosed
	}
	return nil
}

func (e *Engine) ID() string       { return e.id.String() }
func (e *Engine) FileName() string { return e.fileName }

func (e *Engine) PageCount() int {
	e.pagesMu.Lock()
	defer e.pagesMu.Unlock()
	return len(e.pages)
}

// Close releases the backend resources. Calls after Close fail with
// ErrClosed.
func (e *Engine) Close() error {
	e.ctxMu.Lock()
	defer e.ctxMu.Unlock()
	if e.closed.Swap(true) {
		return nil
	}
	e.release()
	e.log.Debug("engine closed")
	return nil
}

func (e *Engine) PageMediabox(pageNo int) (coords.Rect, error) {
	info, err := e.GetFast(pageNo)
	if err != nil {
		return coords.Rect{}, err
	}
	return info.MediaBox, nil
}

// PageContentBox is the area of the page covered by text, images and
// links, clipped to the media box. View targets also include comments.
// A page without content reports its media box.
func (e *Engine) PageContentBox(ctx context.Context, pageNo int, target render.Target) (coords.Rect, error) {
	info, err := e.GetFull(ctx, pageNo)
	if err != nil {
		return coords.Rect{}, err
	}
	var box coords.Rect
	for _, img := range info.Images {
		box = box.Union(img.Rect)
	}
	for _, l := range info.Links {
		box = box.Union(l.Rect)
	}
	if target == render.TargetView {
		for _, c := range info.Comments {
			box = box.Union(c.Rect)
		}
	}
	if err := e.withPage(pageNo, func(p native.Page) error {
		runs, err := p.TextRuns()
		for _, r := range runs {
			box = box.Union(r.Rect)
		}
		return err
	}); err != nil {
		e.log.Debug("content box without text", observability.Int("page", pageNo), observability.Error("error", err))
	}
	box = box.Intersect(info.MediaBox)
	if box.IsEmpty() {
		return info.MediaBox, nil
	}
	return box, nil
}

// withPage runs fn on the native page under ctxMu.
func (e *Engine) withPage(pageNo int, fn func(native.Page) error) error {
	if err := e.lockContext(); err != nil {
		return err
	}
	defer e.ctxMu.Unlock()
	e.pagesMu.Lock()
	rec, err := e.record(pageNo)
	e.pagesMu.Unlock()
	if err != nil {
		return err
	}
	return fn(rec.page)
}

// Elements lists the page elements in hit-test order: comments, links,
// auto links, then selectable images.
func (e *Engine) Elements(ctx context.Context, pageNo int) ([]*elements.Element, error) {
	info, err := e.GetFull(ctx, pageNo)
	if err != nil {
		return nil, err
	}
	out := make([]*elements.Element, 0, len(info.Comments)+len(info.LinkElements)+len(info.AutoLinks)+len(info.Images))
	out = append(out, info.Comments...)
	out = append(out, info.LinkElements...)
	out = append(out, info.AutoLinks...)
	for _, img := range info.Images {
		if img.Element != nil {
			out = append(out, img.Element)
		}
	}
	return out, nil
}

// ElementAt returns the first element containing pt, in page space, or
// nil.
func (e *Engine) ElementAt(ctx context.Context, pageNo int, pt coords.Point) (*elements.Element, error) {
	els, err := e.Elements(ctx, pageNo)
	if err != nil {
		return nil, err
	}
	return elements.At(els, pt), nil
}

// Annotation is a page annotation as reported by the backend.
type Annotation struct {
	PageNo int
	native.Annotation
}

// Annotations lists the annotations of every page.
func (e *Engine) Annotations(ctx context.Context) ([]Annotation, error) {
	var out []Annotation
	for pageNo := 1; pageNo <= e.PageCount(); pageNo++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err := e.withPage(pageNo, func(p native.Page) error {
			annots, err := p.Annotations()
			for _, a := range annots {
				out = append(out, Annotation{PageNo: pageNo, Annotation: *a})
			}
			return err
		})
		if err != nil {
			return out, &PageError{PageNo: pageNo, Stage: StageComments, Err: err}
		}
	}
	return out, nil
}

func (e *Engine) InvalidateAnnotations(pageNo int) error { return e.InvalidateComments(pageNo) }

// EmbeddedFile returns an attachment by name, looking at the document's
// embedded files first and then at file attachment annotations of
// extracted pages.
func (e *Engine) EmbeddedFile(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.lockContext(); err != nil {
		return nil, err
	}
	data, err := e.doc.EmbeddedFile(name)
	e.ctxMu.Unlock()
	if err == nil {
		return data, nil
	}
	e.pagesMu.Lock()
	defer e.pagesMu.Unlock()
	for _, rec := range e.pages {
		if d, ok := rec.files[name]; ok {
			return d, nil
		}
	}
	return nil, err
}

// PageLabel returns the label of a page, its number when the document
// defines no labels.
func (e *Engine) PageLabel(pageNo int) (string, bool) {
	if pageNo < 1 || pageNo > e.PageCount() {
		return "", false
	}
	if e.labels == nil {
		return strconv.Itoa(pageNo), true
	}
	return e.labels.Label(pageNo)
}

// PageByLabel returns the page carrying label, falling back to reading
// label as a page number. It returns -1 when neither matches.
func (e *Engine) PageByLabel(label string) int {
	if p := e.labels.Page(label); p > 0 {
		return p
	}
	n, err := strconv.Atoi(strings.TrimSpace(label))
	if err != nil || n < 1 || n > e.PageCount() {
		return -1
	}
	return n
}

func (e *Engine) HasPageLabels() bool { return e.labels != nil }

// FileData returns a copy of the document bytes.
func (e *Engine) FileData() []byte { return append([]byte(nil), e.data...) }

// Fingerprint is the hex BLAKE2b-256 digest of the document bytes.
func (e *Engine) Fingerprint() string { return hex.EncodeToString(e.fingerprint[:]) }

func (e *Engine) Permissions() security.Permissions { return e.perms }
func (e *Engine) AllowsPrinting() bool              { return e.perms.Print }
func (e *Engine) AllowsCopying() bool               { return e.perms.Copy }

// HasClipOptimizations is false for pages dominated by one image, where
// clipping the render to the visible region gains nothing.
func (e *Engine) HasClipOptimizations(ctx context.Context, pageNo int) (bool, error) {
	info, err := e.GetFull(ctx, pageNo)
	if err != nil {
		return false, err
	}
	page := info.MediaBox.Area()
	for _, img := range info.Images {
		if page > 0 && img.Rect.Intersect(info.MediaBox).Area() >= 0.9*page {
			return false, nil
		}
	}
	return true, nil
}

// FontList describes the fonts used by every page. It is built once.
func (e *Engine) FontList(ctx context.Context) (fonts.List, error) {
	if err := e.lockContext(); err != nil {
		return nil, err
	}
	defer e.ctxMu.Unlock()
	if e.fontsOK {
		return e.fonts, nil
	}
	e.pagesMu.Lock()
	pages := make([]native.Page, len(e.pages))
	for i, rec := range e.pages {
		pages[i] = rec.page
	}
	e.pagesMu.Unlock()

	refs := make([][]native.FontRef, len(pages))
	for i, p := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fs, err := p.Fonts()
		if err != nil {
			e.log.Warn("font list incomplete", observability.Int("page", i+1), observability.Error("error", err))
		}
		refs[i] = fs
	}
	e.fonts, e.fontsOK = fonts.Collect(refs), true
	return e.fonts, nil
}
