package engine

import (
	"context"

	"github.com/wudi/pdfengine/coords"
	"github.com/wudi/pdfengine/elements"
	"github.com/wudi/pdfengine/native"
)

// ImageInfo is an image drawn on a page. Element is nil for images with no
// area, which cannot be selected.
type ImageInfo struct {
	Rect      coords.Rect
	Transform coords.Matrix
	Name      string
	Width     int
	Height    int
	Element   *elements.Element
}

// PageInfo is a snapshot of a page record. Slices are shared with the
// table and must not be modified.
type PageInfo struct {
	PageNo   int
	MediaBox coords.Rect
	Rotation int

	// Links are owned by the native page.
	Links        []*native.Link
	LinkElements []*elements.Element
	AutoLinks    []*elements.Element
	Comments     []*elements.Element
	Images       []*ImageInfo

	FullyLoaded            bool
	CommentsNeedRebuilding bool
}

// pageRecord is guarded by Engine.pagesMu. page is only used under ctxMu.
type pageRecord struct {
	no       int
	page     native.Page
	mediaBox coords.Rect
	rotation int

	links     []*native.Link
	linkEls   []*elements.Element
	autoLinks []*elements.Element
	comments  []*elements.Element
	images    []*ImageInfo
	files     map[string][]byte

	fullyLoaded            bool
	commentsNeedRebuilding bool
}

func (r *pageRecord) snapshot() PageInfo {
	return PageInfo{
		PageNo:                 r.no,
		MediaBox:               r.mediaBox,
		Rotation:               r.rotation,
		Links:                  r.links,
		LinkElements:           r.linkEls,
		AutoLinks:              r.autoLinks,
		Comments:               r.comments,
		Images:                 r.images,
		FullyLoaded:            r.fullyLoaded,
		CommentsNeedRebuilding: r.commentsNeedRebuilding,
	}
}

func (r *pageRecord) needsWork() bool { return !r.fullyLoaded || r.commentsNeedRebuilding }

// record returns the page record, or ErrOutOfRange. The caller holds
// pagesMu.
func (e *Engine) record(pageNo int) (*pageRecord, error) {
	if pageNo < 1 || pageNo > len(e.pages) {
		return nil, outOfRange(pageNo, len(e.pages))
	}
	return e.pages[pageNo-1], nil
}

// GetFast returns the page record as it is, without parsing anything.
func (e *Engine) GetFast(pageNo int) (PageInfo, error) {
	if e.closed.Load() {
		return PageInfo{}, ErrClosed
	}
	e.pagesMu.Lock()
	defer e.pagesMu.Unlock()
	rec, err := e.record(pageNo)
	if err != nil {
		return PageInfo{}, err
	}
	return rec.snapshot(), nil
}

// GetFull returns the page record after running the extraction pipeline,
// at most once per page. Concurrent callers for the same page wait for the
// first one and share its result. A page whose comments were invalidated
// only has its comments rebuilt.
func (e *Engine) GetFull(ctx context.Context, pageNo int) (PageInfo, error) {
	if e.closed.Load() {
		return PageInfo{}, ErrClosed
	}
	e.pagesMu.Lock()
	rec, err := e.record(pageNo)
	if err != nil {
		e.pagesMu.Unlock()
		return PageInfo{}, err
	}
	if !rec.needsWork() {
		info := rec.snapshot()
		e.pagesMu.Unlock()
		return info, nil
	}
	e.pagesMu.Unlock()

	if err := ctx.Err(); err != nil {
		return PageInfo{}, err
	}
	if err := e.lockContext(); err != nil {
		return PageInfo{}, err
	}
	defer e.ctxMu.Unlock()

	e.pagesMu.Lock()
	loaded, stale, page := rec.fullyLoaded, rec.commentsNeedRebuilding, rec.page
	if loaded && !stale {
		info := rec.snapshot()
		e.pagesMu.Unlock()
		return info, nil
	}
	e.pagesMu.Unlock()

	if !loaded {
		x := e.extractPage(ctx, pageNo, page)
		e.pagesMu.Lock()
		rec.links, rec.linkEls = x.links, x.linkEls
		rec.autoLinks = x.autoLinks
		rec.comments, rec.files = x.comments, x.files
		rec.images = x.images
		rec.fullyLoaded, rec.commentsNeedRebuilding = true, false
		info := rec.snapshot()
		e.pagesMu.Unlock()
		return info, nil
	}

	comments, files := e.extractComments(ctx, pageNo, page)
	e.pagesMu.Lock()
	rec.comments, rec.files = comments, files
	rec.commentsNeedRebuilding = false
	info := rec.snapshot()
	e.pagesMu.Unlock()
	return info, nil
}

// InvalidateComments marks the page's comments stale after an annotation
// edit. Links, auto links and images are kept.
func (e *Engine) InvalidateComments(pageNo int) error {
	e.pagesMu.Lock()
	defer e.pagesMu.Unlock()
	rec, err := e.record(pageNo)
	if err != nil {
		return err
	}
	rec.commentsNeedRebuilding = true
	return nil
}

// BenchLoadPage reports whether the page's native handle is loaded.
func (e *Engine) BenchLoadPage(pageNo int) bool {
	e.pagesMu.Lock()
	defer e.pagesMu.Unlock()
	rec, err := e.record(pageNo)
	return err == nil && rec.page != nil
}
