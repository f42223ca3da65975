package engine

import (
	"context"

	"github.com/wudi/pdfengine/elements"
	"github.com/wudi/pdfengine/native"
	"github.com/wudi/pdfengine/observability"
	"github.com/wudi/pdfengine/toc"
)

// resolveDest converts a backend destination, following named
// destinations and running JavaScript actions when scripting is enabled.
// The caller holds ctxMu.
func (e *Engine) resolveDest(ctx context.Context, d native.Dest, pageNo int) *elements.Destination {
	switch d.Kind {
	case native.DestNamed:
		target, err := e.doc.ResolveNamedDest(d.Value)
		if err != nil {
			e.log.Warn("named destination lookup failed",
				observability.String("name", d.Value),
				observability.Error("error", err))
		}
		if target == nil {
			return &elements.Destination{Kind: elements.DestNone, Value: d.Value}
		}
		return elements.FromNative(*target)
	case native.DestJavaScript:
		if e.scripts == nil {
			break
		}
		dest, err := e.scripts.Translate(ctx, d.Value, pageNo, len(e.pages))
		if err != nil {
			e.log.Debug("link script failed",
				observability.Int("page", pageNo),
				observability.Error("error", err))
		}
		if dest != nil {
			return dest
		}
	}
	return elements.FromNative(d)
}

// TableOfContents returns the outline followed by the attachments, or nil
// when the document has neither. The tree is built once.
func (e *Engine) TableOfContents(ctx context.Context) (*toc.Tree, error) {
	if err := e.lockContext(); err != nil {
		return nil, err
	}
	defer e.ctxMu.Unlock()
	if e.tocBuilt {
		return e.toc, nil
	}
	ctx, span := e.opts.tracer.StartSpan(ctx, observability.SpanTOC)
	defer span.Finish()
	e.toc = toc.Build(e.outline, e.attachments, toc.Options{
		Limits:  e.opts.limits,
		Resolve: func(d native.Dest) *elements.Destination { return e.resolveDest(ctx, d, 0) },
	})
	e.tocBuilt = true
	span.SetTag("items", e.toc.Len())
	return e.toc, nil
}

// NamedDest resolves a named destination. A missing name yields nil and no
// error.
func (e *Engine) NamedDest(ctx context.Context, name string) (*elements.Destination, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.lockContext(); err != nil {
		return nil, err
	}
	defer e.ctxMu.Unlock()
	d, err := e.doc.ResolveNamedDest(name)
	if err != nil || d == nil {
		return nil, err
	}
	return elements.FromNative(*d), nil
}
