package engine

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/wudi/pdfengine/autolink"
	"github.com/wudi/pdfengine/coords"
	"github.com/wudi/pdfengine/elements"
	"github.com/wudi/pdfengine/native"
	"github.com/wudi/pdfengine/observability"
	"github.com/wudi/pdfengine/recovery"
)

// Extraction stage names, reported in PageError.Stage.
const (
	StageLinks     = "links"
	StageAutoLinks = "autolinks"
	StageComments  = "comments"
	StageImages    = "images"
)

type extraction struct {
	links     []*native.Link
	linkEls   []*elements.Element
	autoLinks []*elements.Element
	comments  []*elements.Element
	files     map[string][]byte
	images    []*ImageInfo
}

// Annotation subtypes that never become comments.
var nonComment = map[string]bool{
	"Link":        true,
	"Popup":       true,
	"Widget":      true,
	"PrinterMark": true,
	"TrapNet":     true,
	"Watermark":   true,
	"Screen":      true,
	"3D":          true,
	"Sound":       true,
	"Movie":       true,
}

// extractPage runs the four extraction steps. The caller holds ctxMu.
// A failing step is reported to the recovery strategy; ActionFail skips
// the remaining steps.
func (e *Engine) extractPage(ctx context.Context, pageNo int, page native.Page) extraction {
	ctx, span := e.opts.tracer.StartSpan(ctx, observability.SpanExtract)
	defer span.Finish()
	span.SetTag("page", pageNo)
	start := time.Now()

	var x extraction
	steps := []struct {
		stage string
		run   func() error
	}{
		{StageLinks, func() (err error) {
			x.links, x.linkEls, err = e.extractLinks(ctx, pageNo, page)
			return err
		}},
		{StageAutoLinks, func() (err error) {
			x.autoLinks, err = e.extractAutoLinks(pageNo, page, x.links)
			return err
		}},
		{StageComments, func() (err error) {
			x.comments, x.files, err = e.commentElements(pageNo, page)
			return err
		}},
		{StageImages, func() (err error) {
			x.images, err = e.extractImages(pageNo, page)
			return err
		}},
	}
	failures := 0
	for _, s := range steps {
		if err := e.runStep(ctx, pageNo, s.stage, s.run); err != nil {
			failures++
			span.SetError(err)
			if e.opts.strategy.OnError(ctx, err, e.location(pageNo, s.stage)) == recovery.ActionFail {
				break
			}
		}
	}
	elapsed := time.Since(start)
	span.SetTag(observability.MetricExtractTime, elapsed)
	span.SetTag(observability.MetricExtractFailure, failures)
	e.log.Debug("page extracted",
		observability.Int("page", pageNo),
		observability.Int("links", len(x.links)),
		observability.Int("autolinks", len(x.autoLinks)),
		observability.Int("comments", len(x.comments)),
		observability.Int("images", len(x.images)),
		observability.Int("failures", failures),
		observability.Duration("elapsed", elapsed))
	return x
}

// extractComments rebuilds only the comments of a loaded page.
func (e *Engine) extractComments(ctx context.Context, pageNo int, page native.Page) ([]*elements.Element, map[string][]byte) {
	var (
		comments []*elements.Element
		files    map[string][]byte
	)
	err := e.runStep(ctx, pageNo, StageComments, func() (err error) {
		comments, files, err = e.commentElements(pageNo, page)
		return err
	})
	if err != nil {
		e.opts.strategy.OnError(ctx, err, e.location(pageNo, StageComments))
	}
	return comments, files
}

func (e *Engine) location(pageNo int, stage string) recovery.Location {
	return recovery.Location{PageNo: pageNo, Stage: stage, Component: "engine"}
}

// runStep turns step errors and backend panics into a PageError.
func (e *Engine) runStep(ctx context.Context, pageNo int, stage string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("extraction panicked",
				observability.Int("page", pageNo),
				observability.String("stage", stage),
				observability.String("stack", string(debug.Stack())))
			err = &PageError{PageNo: pageNo, Stage: stage, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if err := fn(); err != nil {
		return &PageError{PageNo: pageNo, Stage: stage, Err: err}
	}
	return nil
}

func (e *Engine) extractLinks(ctx context.Context, pageNo int, page native.Page) ([]*native.Link, []*elements.Element, error) {
	links, err := page.Links()
	if err != nil {
		return nil, nil, err
	}
	if max := e.opts.limits.MaxLinksPerPage; len(links) > max {
		links = links[:max]
	}
	els := make([]*elements.Element, 0, len(links))
	for _, l := range links {
		els = append(els, elements.NewLink(pageNo, l.Rect, e.resolveDest(ctx, l.Dest, pageNo)))
	}
	return links, els, nil
}

func (e *Engine) extractAutoLinks(pageNo int, page native.Page, links []*native.Link) ([]*elements.Element, error) {
	runs, err := page.TextRuns()
	if err != nil {
		return nil, err
	}
	skip := make([]coords.Rect, 0, len(links))
	for _, l := range links {
		skip = append(skip, l.Rect)
	}
	matches := autolink.Scan(runs, skip, e.opts.limits.MaxAutoLinksPerPage)
	out := make([]*elements.Element, 0, len(matches))
	for _, m := range matches {
		out = append(out, elements.NewAutoLink(pageNo, m.Rect, m.URL))
	}
	return out, nil
}

func (e *Engine) commentElements(pageNo int, page native.Page) ([]*elements.Element, map[string][]byte, error) {
	annots, err := page.Annotations()
	if err != nil {
		return nil, nil, err
	}
	var (
		out   []*elements.Element
		files map[string][]byte
	)
	for _, a := range annots {
		if len(out) >= e.opts.limits.MaxCommentsPerPage {
			break
		}
		if !isComment(a) {
			continue
		}
		c := elements.Comment{Subtype: a.Subtype, Contents: a.Contents, Author: a.Author, Modified: a.Modified}
		var dest *elements.Destination
		if a.Subtype == "FileAttachment" && a.FileName != "" {
			dest = &elements.Destination{Kind: elements.DestLaunchEmbedded, PageNo: pageNo, Value: a.FileName}
			if a.FileData != nil {
				if files == nil {
					files = make(map[string][]byte)
				}
				files[a.FileName] = a.FileData
			}
		}
		out = append(out, elements.NewComment(pageNo, a.Rect, c, dest))
	}
	return out, files, nil
}

func isComment(a *native.Annotation) bool {
	if nonComment[a.Subtype] {
		return false
	}
	if a.Flags&(native.AnnotFlagHidden|native.AnnotFlagNoView) != 0 {
		return false
	}
	if a.Subtype == "FileAttachment" {
		return true
	}
	return a.Contents != ""
}

func (e *Engine) extractImages(pageNo int, page native.Page) ([]*ImageInfo, error) {
	placements, err := page.Images()
	if err != nil {
		return nil, err
	}
	if max := e.opts.limits.MaxImagesPerPage; len(placements) > max {
		placements = placements[:max]
	}
	out := make([]*ImageInfo, 0, len(placements))
	for i, p := range placements {
		info := &ImageInfo{Rect: p.Rect, Transform: p.Transform, Name: p.Name, Width: p.Width, Height: p.Height}
		if p.Rect.Area() > 0 {
			info.Element = elements.NewImage(pageNo, p.Rect, i)
		}
		out = append(out, info)
	}
	return out, nil
}
